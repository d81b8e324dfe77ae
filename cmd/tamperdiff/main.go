package main

import (
	"os"

	"go-tamper-inspector/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tamperdiff",
	Short: "Localize tampered regions between two versions of an image",
	Long: `tamperdiff compares an original image with a possibly tampered copy using
structural similarity, thresholds the difference map and outlines every
changed region on both images.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	logger.SetTextFormat()

	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
