package analyzer

import (
	"fmt"
	"image/color"
)

// CompareOptions provides flexible configuration for image comparison
type CompareOptions struct {
	// Structural similarity window
	WindowSize       int
	K1               float64
	K2               float64
	DynamicRange     float64
	SampleCovariance bool

	// Region extraction
	MinRegionArea int

	// Annotation style
	BoxColor     color.RGBA
	BoxThickness int
	BoxPadding   int

	// Performance options
	UseWorkerPool bool
	MaxWorkers    int
}

// DefaultOptions returns default comparison options
func DefaultOptions() CompareOptions {
	return CompareOptions{
		WindowSize:       7,
		K1:               0.01,
		K2:               0.03,
		DynamicRange:     255,
		SampleCovariance: true,
		MinRegionArea:    0,
		BoxColor:         color.RGBA{R: 255, A: 255},
		BoxThickness:     2,
		BoxPadding:       1,
		UseWorkerPool:    true,
		MaxWorkers:       0, // Use default CPU count
	}
}

// WithWindowSize sets the side of the square similarity window
func (opts CompareOptions) WithWindowSize(size int) CompareOptions {
	opts.WindowSize = size
	return opts
}

// WithBoxStyle sets the outline color and thickness used for annotation
func (opts CompareOptions) WithBoxStyle(c color.RGBA, thickness int) CompareOptions {
	opts.BoxColor = c
	opts.BoxThickness = thickness
	return opts
}

// WithMinRegionArea drops regions whose bounding box covers fewer pixels
func (opts CompareOptions) WithMinRegionArea(area int) CompareOptions {
	opts.MinRegionArea = area
	return opts
}

// WithPopulationStatistics switches window variances to population normalization
func (opts CompareOptions) WithPopulationStatistics() CompareOptions {
	opts.SampleCovariance = false
	return opts
}

// WithMaxWorkers bounds the goroutines used for the similarity computation
func (opts CompareOptions) WithMaxWorkers(workers int) CompareOptions {
	opts.MaxWorkers = workers
	opts.UseWorkerPool = workers != 1
	return opts
}

// Validate checks that the options describe a computable pipeline
func (opts CompareOptions) Validate() error {
	if opts.WindowSize < 1 || opts.WindowSize%2 == 0 {
		return fmt.Errorf("window size must be a positive odd number, got %d", opts.WindowSize)
	}
	if opts.DynamicRange <= 0 {
		return fmt.Errorf("dynamic range must be > 0, got %f", opts.DynamicRange)
	}
	if opts.K1 <= 0 || opts.K2 <= 0 {
		return fmt.Errorf("stabilizing constants must be > 0, got K1=%f K2=%f", opts.K1, opts.K2)
	}
	if opts.BoxThickness < 1 {
		return fmt.Errorf("box thickness must be >= 1, got %d", opts.BoxThickness)
	}
	if opts.BoxPadding < 0 || opts.MinRegionArea < 0 {
		return fmt.Errorf("box padding and min region area must be >= 0")
	}
	return nil
}

// c1 and c2 are the luminance and contrast stabilizers
func (opts CompareOptions) c1() float64 {
	v := opts.K1 * opts.DynamicRange
	return v * v
}

func (opts CompareOptions) c2() float64 {
	v := opts.K2 * opts.DynamicRange
	return v * v
}
