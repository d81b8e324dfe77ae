package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"go-tamper-inspector/internal/analyzer"
	apperrors "go-tamper-inspector/internal/errors"
	"go-tamper-inspector/internal/logger"
	"go-tamper-inspector/internal/observer"
	"go-tamper-inspector/internal/repository"
	"go-tamper-inspector/internal/storage"
	"go-tamper-inspector/internal/strategy"
	"go-tamper-inspector/pkg/models"
	"go-tamper-inspector/pkg/validation"
)

// ComparisonService defines the interface for tamper localization requests
type ComparisonService interface {
	// CompareUploads compares two images supplied as raw encoded bytes
	CompareUploads(ctx context.Context, original, tampered io.Reader, opts *models.CompareOptionsRequest) (*models.ComparisonResponse, error)

	// CompareURLs fetches both images by reference and compares them
	CompareURLs(ctx context.Context, originalURL, tamperedURL string, opts *models.CompareOptionsRequest) (*models.ComparisonResponse, error)
}

// comparisonService implements ComparisonService
type comparisonService struct {
	imageRepo  repository.ImageRepository
	comparator analyzer.ImageComparator
	artifacts  storage.ArtifactStore
	events     observer.Subject
	dimensions *validation.DimensionValidator
	defaults   analyzer.CompareOptions
	timeout    time.Duration
}

// NewComparisonService creates a new comparison service. defaults are the
// options per-request overrides are applied on top of.
func NewComparisonService(
	imageRepository repository.ImageRepository,
	comparator analyzer.ImageComparator,
	artifacts storage.ArtifactStore,
	events observer.Subject,
	defaults analyzer.CompareOptions,
	timeout time.Duration,
) ComparisonService {
	return &comparisonService{
		imageRepo:  imageRepository,
		comparator: comparator,
		artifacts:  artifacts,
		events:     events,
		dimensions: validation.NewDimensionValidator(validation.ImageLimits{MinSide: 1}),
		defaults:   defaults,
		timeout:    timeout,
	}
}

// CompareUploads decodes both uploads and compares them
func (s *comparisonService) CompareUploads(ctx context.Context, original, tampered io.Reader, opts *models.CompareOptionsRequest) (*models.ComparisonResponse, error) {
	imgA, err := s.decodeUpload("original", original)
	if err != nil {
		return nil, err
	}
	imgB, err := s.decodeUpload("tampered", tampered)
	if err != nil {
		return nil, err
	}

	return s.compare(ctx, imgA, imgB, opts, "", "")
}

// CompareURLs fetches both images and compares them
func (s *comparisonService) CompareURLs(ctx context.Context, originalURL, tamperedURL string, opts *models.CompareOptionsRequest) (*models.ComparisonResponse, error) {
	imgA, err := s.fetch(ctx, originalURL)
	if err != nil {
		return nil, err
	}
	imgB, err := s.fetch(ctx, tamperedURL)
	if err != nil {
		return nil, err
	}

	return s.compare(ctx, imgA, imgB, opts, originalURL, tamperedURL)
}

func (s *comparisonService) decodeUpload(field string, r io.Reader) (image.Image, error) {
	if r == nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s image is required", field), nil)
	}
	img, err := s.imageRepo.DecodeImage(r)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			return nil, err
		}
		return nil, apperrors.NewValidationError(fmt.Sprintf("failed to decode %s image", field), err)
	}
	return img, nil
}

func (s *comparisonService) fetch(ctx context.Context, imageURL string) (image.Image, error) {
	start := time.Now()
	img, err := s.imageRepo.FetchImage(ctx, imageURL)
	if err != nil {
		s.publish(ctx, observer.ComparisonEvent{
			EventType:      observer.ImageFetchFailed,
			Source:         imageURL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, classifyFetchError(err)
	}

	s.publish(ctx, observer.ComparisonEvent{
		EventType:      observer.ImageFetched,
		Source:         imageURL,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"width":  img.Bounds().Dx(),
			"height": img.Bounds().Dy(),
		},
	})
	return img, nil
}

func (s *comparisonService) compare(ctx context.Context, imgA, imgB image.Image, opts *models.CompareOptionsRequest, originalSource, tamperedSource string) (*models.ComparisonResponse, error) {
	start := time.Now()
	id, err := newComparisonID()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to allocate comparison id", err)
	}

	s.publish(ctx, observer.ComparisonEvent{
		EventType:    observer.ComparisonStarted,
		ComparisonID: id,
	})

	response, err := s.run(ctx, id, imgA, imgB, opts)
	if err != nil {
		s.publish(ctx, observer.ComparisonEvent{
			EventType:      observer.ComparisonFailed,
			ComparisonID:   id,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	response.OriginalSource = originalSource
	response.TamperedSource = tamperedSource

	s.publish(ctx, observer.ComparisonEvent{
		EventType:      observer.ComparisonCompleted,
		ComparisonID:   id,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"score":   response.Score,
			"regions": len(response.Regions),
		},
	})
	return response, nil
}

func (s *comparisonService) run(ctx context.Context, id string, imgA, imgB image.Image, opts *models.CompareOptionsRequest) (*models.ComparisonResponse, error) {
	if err := s.dimensions.ValidatePair(imgA.Bounds(), imgB.Bounds()); err != nil {
		return nil, err
	}

	options, err := applyOverrides(s.defaults, opts)
	if err != nil {
		return nil, err
	}

	result, err := s.runPipeline(ctx, imgA, imgB, options)
	if err != nil {
		return nil, err
	}

	artifacts, err := s.storeArtifacts(ctx, id, result)
	if err != nil {
		return nil, err
	}

	return &models.ComparisonResponse{
		ComparisonResult: toModel(id, result, imgA.Bounds().Size(), artifacts),
	}, nil
}

// runPipeline runs the comparator, giving up when the context or the
// comparison timeout expires first. The comparator sees the same context and
// stops at its next stage boundary.
func (s *comparisonService) runPipeline(ctx context.Context, imgA, imgB image.Image, options analyzer.CompareOptions) (*analyzer.ComparisonResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type outcome struct {
		result *analyzer.ComparisonResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := s.comparator.CompareContext(ctx, imgA, imgB, options)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, classifyPipelineError(out.err)
		}
		return out.result, nil
	case <-ctx.Done():
		return nil, apperrors.NewTimeoutError("image comparison timed out", ctx.Err())
	}
}

func (s *comparisonService) storeArtifacts(ctx context.Context, id string, result *analyzer.ComparisonResult) (models.ComparisonArtifacts, error) {
	var artifacts models.ComparisonArtifacts
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

	var stored []string
	for _, out := range outputs {
		data, err := storage.EncodePNGBytes(out.img)
		if err != nil {
			s.discardArtifacts(ctx, id, stored)
			return artifacts, apperrors.NewInternalError("failed to encode "+out.name, err)
		}
		location, err := s.artifacts.Save(ctx, id, out.name, data, "image/png")
		if err != nil {
			s.discardArtifacts(ctx, id, stored)
			return artifacts, apperrors.NewStorageError("failed to store "+out.name, err)
		}
		*out.dst = location
		stored = append(stored, location)
	}

	s.publish(ctx, observer.ComparisonEvent{
		EventType:    observer.ArtifactsStored,
		ComparisonID: id,
		Success:      true,
		Metadata:     map[string]interface{}{"artifacts": len(outputs)},
	})
	return artifacts, nil
}

// discardArtifacts removes a partially stored comparison, logging the
// orphaned locations if that fails too
func (s *comparisonService) discardArtifacts(ctx context.Context, id string, stored []string) {
	if err := s.artifacts.Delete(context.WithoutCancel(ctx), id); err != nil {
		logger.WithFields(map[string]interface{}{
			"comparison_id": id,
			"orphaned":      stored,
		}).WithError(err).Error("Failed to remove partially stored artifacts")
	}
}

func (s *comparisonService) publish(ctx context.Context, event observer.ComparisonEvent) {
	if s.events == nil {
		return
	}
	s.events.NotifyObservers(context.WithoutCancel(ctx), event)
}

// applyOverrides applies the requested preset to the defaults, then
// layers the non-nil request fields on top.
func applyOverrides(defaults analyzer.CompareOptions, opts *models.CompareOptionsRequest) (analyzer.CompareOptions, error) {
	if opts == nil {
		return defaults, nil
	}
	preset, err := strategy.Lookup(opts.Preset)
	if err != nil {
		return defaults, apperrors.NewValidationError("Invalid comparison options", err)
	}

	options := preset.Apply(defaults)
	if opts.WindowSize != nil {
		options = options.WithWindowSize(*opts.WindowSize)
	}
	if opts.BoxThickness != nil {
		options = options.WithBoxStyle(options.BoxColor, *opts.BoxThickness)
	}
	if opts.MinRegionArea != nil {
		options = options.WithMinRegionArea(*opts.MinRegionArea)
	}
	if opts.PopulationStatistics {
		options = options.WithPopulationStatistics()
	}
	return options, nil
}

func classifyPipelineError(err error) error {
	var (
		appErr     *apperrors.AppError
		invalid    *analyzer.InvalidInputError
		mismatch   *analyzer.DimensionMismatchError
		degenerate *analyzer.DegenerateInputError
	)
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.NewTimeoutError("image comparison timed out", err)
	case errors.As(err, &mismatch):
		return apperrors.NewValidationError("Image dimensions do not match", err)
	case errors.As(err, &invalid):
		return apperrors.NewValidationError("Invalid comparison input", err).WithDetails(invalid.Stage)
	case errors.As(err, &degenerate):
		return apperrors.NewProcessingError("Difference map cannot be thresholded", err)
	default:
		return apperrors.NewInternalError("Image comparison failed", err)
	}
}

func classifyFetchError(err error) error {
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeValidation):
		return err
	case errors.Is(err, repository.ErrBlobStorageUnavailable):
		return apperrors.NewValidationError("az:// references are not enabled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("Image fetch timeout", err)
	default:
		return apperrors.NewNetworkError("Failed to fetch image", err)
	}
}

func toModel(id string, result *analyzer.ComparisonResult, size image.Point, artifacts models.ComparisonArtifacts) models.ComparisonResult {
	regions := make([]models.BoundingBox, len(result.Regions))
	for i, r := range result.Regions {
		regions[i] = models.BoundingBox{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	}

	return models.ComparisonResult{
		ID:                id,
		Timestamp:         time.Now().UTC(),
		ProcessingTimeSec: result.ProcessingTimeSec,
		Width:             size.X,
		Height:            size.Y,
		Score:             result.Score,
		Threshold:         result.Threshold,
		Tampered:          len(regions) > 0,
		Regions:           regions,
		Stats: models.ComparisonStats{
			MeanSimilarity:    result.Stats.MeanSimilarity,
			StdDevSimilarity:  result.Stats.StdDevSimilarity,
			MinSimilarity:     result.Stats.MinSimilarity,
			ChangedPixels:     result.Stats.ChangedPixels,
			ChangedPixelRatio: result.Stats.ChangedPixelRatio,
			LargestRegionArea: result.Stats.LargestRegionArea,
		},
		Artifacts: artifacts,
	}
}

func newComparisonID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
