package analyzer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// constantMaskCutoff classifies a difference map with a single intensity
const constantMaskCutoff uint8 = 127

// coreComparator implements ImageComparator and orchestrates all stages
type coreComparator struct {
	workerPool      *WorkerPool
	options         CompareOptions
	binarizer       Binarizer
	statsCalculator DiffStatsCalculator
}

// NewImageComparator creates a new comparator with all components
func NewImageComparator(options CompareOptions) (ImageComparator, error) {
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compare options: %w", err)
	}

	var pool *WorkerPool
	if options.UseWorkerPool {
		pool = NewWorkerPool(options.MaxWorkers)
		pool.Start()
	}

	return &coreComparator{
		workerPool:      pool,
		options:         options,
		binarizer:       NewOtsuBinarizer(),
		statsCalculator: NewDiffStatsCalculator(),
	}, nil
}

// Compare runs the pipeline with the comparator's options
func (cc *coreComparator) Compare(original, tampered image.Image) (*ComparisonResult, error) {
	return cc.CompareWithOptions(original, tampered, cc.options)
}

// CompareWithOptions runs grayscale conversion, structural similarity,
// binarization, region extraction and annotation. It returns either the
// complete result or exactly one typed error.
func (cc *coreComparator) CompareWithOptions(original, tampered image.Image, options CompareOptions) (*ComparisonResult, error) {
	return cc.CompareContext(context.Background(), original, tampered, options)
}

// CompareContext runs the pipeline, abandoning it at the next stage
// boundary once ctx is done
func (cc *coreComparator) CompareContext(ctx context.Context, original, tampered image.Image, options CompareOptions) (*ComparisonResult, error) {
	start := time.Now()

	if err := options.Validate(); err != nil {
		return nil, &InvalidInputError{Stage: "options", Reason: err.Error()}
	}
	if original == nil || tampered == nil {
		return nil, invalidInput("compare", "both images are required")
	}
	sizeA, sizeB := original.Bounds().Size(), tampered.Bounds().Size()
	if sizeA.X <= 0 || sizeA.Y <= 0 || sizeB.X <= 0 || sizeB.Y <= 0 {
		return nil, invalidInput("compare", "image has zero dimensions")
	}
	if sizeA != sizeB {
		return nil, &DimensionMismatchError{Original: sizeA, Tampered: sizeB}
	}

	grayA, err := ToGray(original)
	if err != nil {
		return nil, err
	}
	grayB, err := ToGray(tampered)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pool *WorkerPool
	if options.UseWorkerPool {
		pool = cc.workerPool
	}
	simMap, err := NewSimilarityEngine(options, pool).Compute(grayA, grayB)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	diff := simMap.Inverted()
	mask, threshold, err := cc.binarizer.Binarize(diff)
	if err != nil {
		var degenerate *DegenerateInputError
		if !errors.As(err, &degenerate) {
			return nil, err
		}
		threshold = constantMaskCutoff
		mask = ApplyThreshold(diff, threshold)
	}

	regions, err := NewRegionExtractor(options.MinRegionArea).Extract(mask)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	annotator := NewAnnotator(options.BoxColor, options.BoxThickness, options.BoxPadding)

	return &ComparisonResult{
		Score:             simMap.Score,
		DiffMap:           simMap.Rescaled(),
		Mask:              mask,
		Threshold:         threshold,
		Regions:           regions,
		Original:          annotator.Annotate(original, regions),
		Tampered:          annotator.Annotate(tampered, regions),
		Stats:             cc.statsCalculator.Calculate(simMap, mask, regions),
		ProcessingTimeSec: time.Since(start).Seconds(),
	}, nil
}

// Close releases the worker pool
func (cc *coreComparator) Close() error {
	if cc.workerPool != nil {
		cc.workerPool.Close()
	}
	return nil
}
