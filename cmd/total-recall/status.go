package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and current index state",
	Long: `status loads the configuration, builds (or reuses) the embedding
index, and prints a summary: sources enabled, embedding model, memory
budget, the current snapshot size, cache hit rate, last refresh time, and
memory-budget usage.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("embedding provider: %s (model %s, dimension %d)\n", a.cfg.Embedding.Provider, a.cfg.Embedding.Model, a.provider.Dimension())
	fmt.Printf("cli source: enabled=%v paths=%v\n", a.cfg.Sources.CLI.Enabled, a.cfg.Sources.CLI.Paths)
	fmt.Printf("ide source: enabled=%v patterns=%v\n", a.cfg.Sources.IDE.Enabled, a.cfg.Sources.IDE.Patterns)
	if a.cfg.Memory.NoLimit {
		fmt.Println("memory budget: unlimited")
	} else if a.cfg.Memory.LimitMB > 0 {
		fmt.Printf("memory budget: %d MB\n", a.cfg.Memory.LimitMB)
	} else {
		fmt.Printf("memory budget: %.0f%% of physical RAM\n", a.cfg.Memory.Fraction*100)
	}

	snap, err := a.idx.Refresh(context.Background())
	if err != nil {
		return fmt.Errorf("refreshing index: %w", err)
	}
	fmt.Printf("current snapshot: %d messages across %d sessions\n", snap.Len(), len(snap.Sessions))

	stats := a.idx.Stats()
	fmt.Printf("cache hit rate: %.1f%% (%d hits, %d misses)\n", stats.CacheHitRate()*100, stats.CacheHits, stats.CacheMisses)
	if stats.LastRefresh.IsZero() {
		fmt.Println("last refresh: never")
	} else {
		fmt.Printf("last refresh: %s\n", stats.LastRefresh.Format(time.RFC3339))
	}
	if stats.BudgetNoLimit {
		fmt.Println("memory budget usage: unlimited")
	} else {
		fmt.Printf("memory budget usage: %s / %s\n", formatBytes(stats.BudgetUsedBytes), formatBytes(stats.BudgetLimitBytes))
	}

	return nil
}

// formatBytes renders a byte count in the largest whole unit that keeps it
// above 1, for compact status output.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
