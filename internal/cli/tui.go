package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"storyrag/internal/adapter/chunker"
	"storyrag/internal/adapter/fs"
	"storyrag/internal/tui"
	"storyrag/internal/usecase"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [path...]",
	Short: "Interactive character search session",
	Long: `Start an interactive session. With path arguments the given story files
are indexed first; without them the previously persisted index is used.

Examples:
  storyrag tui stories/
  storyrag tui`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	model, err := newLLM()
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	idx, err := newIndex(embedder)
	if err != nil {
		return err
	}

	chk, err := chunker.NewCharChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap, cfg.Chunking.Separator)
	if err != nil {
		return err
	}

	ingestUC := usecase.NewIngestUseCase(chk, idx, logger)
	extractUC := usecase.NewExtractUseCase(idx, model, cfg.Retrieve.TopK, cfg.Retrieve.MaxContextChars, logger)

	summary := ""
	if len(args) > 0 {
		walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
		files, err := walker.Resolve(args)
		if err != nil {
			return fmt.Errorf("failed to resolve story files: %w", err)
		}
		result, err := ingestUC.Ingest(files)
		if err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		summary = result.Summary()
	}

	m := tui.New(extractUC, ingestUC, summary)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	return nil
}
