package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"storyrag/internal/domain"
	"storyrag/internal/usecase"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [character name]",
	Short: "Extract structured info about a character",
	Long: `Retrieve the story passages most relevant to the character and ask the
language model for a structured description: story title, summary,
relationships and character type.

Examples:
  storyrag ask "Alice"
  storyrag ask --json "Bob"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	name := args[0]

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

	extractUC := usecase.NewExtractUseCase(idx, model, cfg.Retrieve.TopK, cfg.Retrieve.MaxContextChars, logger)

	info, err := extractUC.Extract(name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCharacterNotFound):
			fmt.Printf("Character %q was not found in the indexed stories.\n", name)
			return nil
		case errors.Is(err, domain.ErrIndexNotFound), errors.Is(err, domain.ErrNotInitialized):
			return fmt.Errorf("no index found. Run 'storyrag index' first")
		default:
			return err
		}
	}

	if askJSON {
		output, _ := json.MarshalIndent(info, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%s (%s)\n", info.Name, info.CharacterType)
	fmt.Printf("Story: %s\n\n", info.StoryTitle)
	fmt.Printf("%s\n", info.Summary)
	if len(info.Relations) > 0 {
		fmt.Printf("\nRelationships:\n")
		for _, r := range info.Relations {
			fmt.Printf("  - %s: %s\n", r.Name, r.Relation)
		}
	}
	return nil
}
