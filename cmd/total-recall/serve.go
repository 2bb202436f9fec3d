package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danilop/total-recall/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `serve builds the embedding index from the configured CLI and IDE
conversation stores, then runs the MCP server on stdio until the process
is signaled to stop.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.logger.Warn(context.Background(), "closing embedding provider", zap.Error(closeErr))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		a.logger.Info(ctx, "received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	if _, err := a.idx.Refresh(ctx); err != nil {
		return fmt.Errorf("building initial index: %w", err)
	}
	a.logger.Info(ctx, "embedding index built", zap.Int("messages", a.idx.Snapshot().Len()))

	server, err := mcp.NewServer(&mcp.Config{
		Name:    "total-recall",
		Version: version,
		Logger:  a.logger.Underlying(),
	}, a.engine)
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	return server.Run(ctx)
}
