package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"storyrag/internal/adapter/chunker"
	"storyrag/internal/adapter/fs"
	"storyrag/internal/port"
	"storyrag/internal/usecase"
)

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index story files for retrieval",
	Long: `Read story files, split them into overlapping chunks, embed every chunk
and store the result in the local vector index. Arguments may be .txt files
or directories; directories are searched with the configured glob patterns.

Examples:
  storyrag index stories/
  storyrag index tale.txt fable.txt`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = []string{GetRootDir()}
	}

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	files, err := walker.Resolve(paths)
	if err != nil {
		return fmt.Errorf("failed to resolve story files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no story files found under %v", paths)
	}

	chk, err := chunker.NewCharChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap, cfg.Chunking.Separator)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	batchSize := cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	progress := &progressEmbedder{inner: embedder, batchSize: batchSize}

	idx, err := newIndex(progress)
	if err != nil {
		return err
	}

	ingestUC := usecase.NewIngestUseCase(chk, idx, logger)

	fmt.Printf("Indexing %d story files...\n", len(files))
	result, err := ingestUC.Ingest(files)
	progress.finish()
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\n%s\n", result.Summary())
	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, w := range result.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
	fmt.Printf("\nIndex stored at: %s\n", cfg.IndexPath(GetRootDir()))
	return nil
}

// progressEmbedder feeds the inner embedder batch by batch so the terminal
// progress bar advances during long embedding runs.
type progressEmbedder struct {
	inner     port.Embedder
	batchSize int
	bar       *progressbar.ProgressBar
}

func (p *progressEmbedder) Embed(texts []string) ([][]float32, error) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(len(texts),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}

	var all [][]float32
	for i := 0; i < len(texts); i += p.batchSize {
		end := i + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := p.inner.Embed(texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
		p.bar.Set(end)
	}
	return all, nil
}

func (p *progressEmbedder) EmbedQuery(text string) ([]float32, error) {
	return p.inner.EmbedQuery(text)
}

func (p *progressEmbedder) Dimension() int {
	return p.inner.Dimension()
}

func (p *progressEmbedder) ModelName() string {
	return p.inner.ModelName()
}

func (p *progressEmbedder) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
