package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danilop/total-recall/internal/recall/index"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the embedding index from the configured conversation stores",
	Long: `reindex forces a fresh build/refresh pass over the CLI and IDE
conversation stores, embedding any content not already present in the
on-disk cache, and reports the resulting snapshot size.`,
	RunE: runReindex,
}

func runReindex(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.idx.Refresh(context.Background())
	if err != nil {
		return fmt.Errorf("refreshing index: %w", err)
	}

	fmt.Printf("indexed %d messages across %d sessions (dimension %d)\n", snap.Len(), len(snap.Sessions), dimensionOf(snap))
	return nil
}

func dimensionOf(snap *index.Snapshot) int {
	if snap == nil {
		return 0
	}
	return snap.Dimension
}
