//go:build cgo

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danilop/total-recall/internal/embeddings"
)

var forceDownload bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&forceDownload, "force", "f", false, "Force re-download even if ONNX runtime exists")
}

// initCmd downloads the ONNX runtime library the in-process FastEmbed
// provider needs. It is only registered in cgo builds, since the
// non-cgo FastEmbed stub never loads ONNX at all.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Download the ONNX runtime required for local embeddings",
	Long: `Initialize total-recall by downloading the ONNX runtime library used by
the in-process FastEmbed embedding provider. The library is installed to:
  ~/.config/total-recall/lib/

If ONNX_PATH is set, that path takes precedence and no download happens.

Examples:
  # Download the ONNX runtime
  total-recall init

  # Force re-download even if already installed
  total-recall init --force`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if !forceDownload {
		if path := embeddings.GetONNXLibraryPath(); path != "" {
			cmd.Printf("ONNX runtime already installed at: %s\n", path)
			cmd.Println("Use --force to re-download.")
			return nil
		}
	}

	cmd.Printf("Downloading ONNX runtime v%s...\n", embeddings.DefaultONNXRuntimeVersion)

	if err := embeddings.DownloadONNXRuntime(context.Background(), ""); err != nil {
		return fmt.Errorf("failed to download ONNX runtime: %w", err)
	}

	path := embeddings.GetONNXLibraryPath()
	if path == "" {
		return fmt.Errorf("download completed but library not found")
	}

	cmd.Printf("Successfully installed ONNX runtime to: %s\n", path)
	return nil
}
