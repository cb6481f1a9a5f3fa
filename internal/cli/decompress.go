package cli

import (
	"github.com/spf13/cobra"

	"github.com/tracker-tv/workflow-harvest/internal/decompress"
)

var decompressOutDir string

var decompressCmd = &cobra.Command{
	Use:   "decompress",
	Short: "Inflate gzipped snapshot blobs left by older collection runs",
	RunE: func(*cobra.Command, []string) error {
		_, err := decompress.Run(decompressOutDir)
		return err
	},
}

func init() {
	decompressCmd.Flags().StringVar(&decompressOutDir, "out-dir", "data", "output tree root")
	rootCmd.AddCommand(decompressCmd)
}
