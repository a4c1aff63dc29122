package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the vector index and its persisted data",
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	idx, err := newIndex(embedder)
	if err != nil {
		return err
	}

	if err := idx.Clear(); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	fmt.Println("All story data cleared.")
	return nil
}
