package main

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go-tamper-inspector/internal/analyzer"
	"go-tamper-inspector/internal/logger"
	"go-tamper-inspector/internal/storage"
	"go-tamper-inspector/internal/strategy"
	"go-tamper-inspector/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type compareOptions struct {
	Original  string
	Tampered  string
	OutDir    string
	Preset    string
	Window    int
	Thickness int
	MinArea   int
	Workers   int
	JSON      bool
}

// compareReport is the --json output
type compareReport struct {
	Score     float64                    `json:"score"`
	Threshold uint8                      `json:"threshold"`
	Tampered  bool                       `json:"tampered"`
	Regions   []models.BoundingBox       `json:"regions"`
	Stats     analyzer.DiffStats         `json:"stats"`
	Artifacts models.ComparisonArtifacts `json:"artifacts"`
}

var compareFlags compareOptions

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare an original image with a tampered copy",
	Long: `Computes the structural similarity of the two images, writes the annotated
copies, the difference map and the binary mask to the output directory and
prints the similarity score with every detected region.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompare(compareFlags, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVarP(&compareFlags.Original, "original", "o", "", "Path to the original image (required)")
	compareCmd.MarkFlagRequired("original")
	compareCmd.Flags().StringVarP(&compareFlags.Tampered, "tampered", "t", "", "Path to the tampered image (required)")
	compareCmd.MarkFlagRequired("tampered")
	compareCmd.Flags().StringVarP(&compareFlags.OutDir, "out", "d", ".", "Directory for the output images")
	compareCmd.Flags().StringVar(&compareFlags.Preset, "preset", "standard", "Tuning preset: "+strings.Join(strategy.Names(), ", "))
	compareCmd.Flags().IntVar(&compareFlags.Window, "window", 0, "Side of the similarity window, odd (0 = preset value)")
	compareCmd.Flags().IntVar(&compareFlags.Thickness, "thickness", 0, "Outline thickness in pixels (0 = preset value)")
	compareCmd.Flags().IntVar(&compareFlags.MinArea, "min-area", -1, "Drop regions whose bounding box covers fewer pixels (-1 = preset value)")
	compareCmd.Flags().IntVar(&compareFlags.Workers, "workers", 0, "Goroutines for the similarity computation (0 = all CPUs)")
	compareCmd.Flags().BoolVar(&compareFlags.JSON, "json", false, "Print the result as JSON")
}

func runCompare(flags compareOptions, out io.Writer) error {
	preset, err := strategy.Lookup(flags.Preset)
	if err != nil {
		return err
	}

	options := preset.Apply(analyzer.DefaultOptions()).WithMaxWorkers(flags.Workers)
	if flags.Window > 0 {
		options = options.WithWindowSize(flags.Window)
	}
	if flags.Thickness > 0 {
		options = options.WithBoxStyle(options.BoxColor, flags.Thickness)
	}
	if flags.MinArea >= 0 {
		options = options.WithMinRegionArea(flags.MinArea)
	}

	comparator, err := analyzer.NewImageComparator(options)
	if err != nil {
		return err
	}
	defer comparator.Close()

	original, err := storage.LoadImageFile(flags.Original)
	if err != nil {
		return err
	}
	tampered, err := storage.LoadImageFile(flags.Tampered)
	if err != nil {
		return err
	}

	result, err := comparator.Compare(original, tampered)
	if err != nil {
		return err
	}

	artifacts, err := writeArtifacts(flags.OutDir, result)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"score":   result.Score,
		"regions": len(result.Regions),
		"seconds": result.ProcessingTimeSec,
	}).Debug("Comparison finished")

	report := compareReport{
		Score:     result.Score,
		Threshold: result.Threshold,
		Tampered:  len(result.Regions) > 0,
		Regions:   make([]models.BoundingBox, len(result.Regions)),
		Stats:     result.Stats,
		Artifacts: artifacts,
	}
	for i, r := range result.Regions {
		report.Regions[i] = models.BoundingBox{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	}

	if flags.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(out, report)
	return nil
}

func writeArtifacts(dir string, result *analyzer.ComparisonResult) (models.ComparisonArtifacts, error) {
	var artifacts models.ComparisonArtifacts
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return artifacts, fmt.Errorf("failed to create output directory: %w", err)
	}

	outputs := []struct {
		name string
		img  image.Image
		dst  *string
	}{
		{models.ArtifactOriginalAnnotated, result.Original, &artifacts.OriginalAnnotated},
		{models.ArtifactTamperedAnnotated, result.Tampered, &artifacts.TamperedAnnotated},
		{models.ArtifactDiffMap, result.DiffMap, &artifacts.DiffMap},
		{models.ArtifactMask, result.Mask, &artifacts.Mask},
	}
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		if err := storage.SaveImageFile(path, o.img); err != nil {
			return artifacts, err
		}
		*o.dst = path
	}
	return artifacts, nil
}

func printReport(out io.Writer, report compareReport) {
	fmt.Fprintf(out, "SSIM: %.6f\n", report.Score)
	fmt.Fprintf(out, "Threshold: %d\n", report.Threshold)
	fmt.Fprintf(out, "Regions: %d\n", len(report.Regions))
	for i, r := range report.Regions {
		fmt.Fprintf(out, "  #%d x=%d y=%d w=%d h=%d\n", i+1, r.X, r.Y, r.Width, r.Height)
	}
	fmt.Fprintf(out, "Wrote %s, %s, %s and %s\n",
		report.Artifacts.OriginalAnnotated,
		report.Artifacts.TamperedAnnotated,
		report.Artifacts.DiffMap,
		report.Artifacts.Mask)
}
