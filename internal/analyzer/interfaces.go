package analyzer

import (
	"context"
	"image"
)

// ImageComparator defines the main interface for tamper localization
type ImageComparator interface {
	// Compare runs the pipeline with the comparator's default options
	Compare(original, tampered image.Image) (*ComparisonResult, error)

	// Options-based method
	CompareWithOptions(original, tampered image.Image, options CompareOptions) (*ComparisonResult, error)

	// CompareContext is CompareWithOptions that stops between stages once
	// ctx is done, returning ctx.Err()
	CompareContext(ctx context.Context, original, tampered image.Image, options CompareOptions) (*ComparisonResult, error)

	// Lifecycle management
	Close() error
}

// SimilarityEngine computes the structural similarity of two grayscale images
type SimilarityEngine interface {
	Compute(a, b *image.Gray) (*SimilarityMap, error)
}

// Binarizer converts a difference intensity map into a two-level mask
type Binarizer interface {
	Binarize(diff *image.Gray) (*image.Gray, uint8, error)
}

// RegionExtractor reduces the connected foreground of a mask to bounding boxes
type RegionExtractor interface {
	Extract(mask *image.Gray) ([]Region, error)
}

// Annotator draws region outlines on a copy of an image
type Annotator interface {
	Annotate(img image.Image, regions []Region) *image.NRGBA
}

// DiffStatsCalculator summarizes a similarity map
type DiffStatsCalculator interface {
	Calculate(m *SimilarityMap, mask *image.Gray, regions []Region) DiffStats
}
