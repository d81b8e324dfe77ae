package validation

import (
	"fmt"
	"image"

	apperrors "go-tamper-inspector/internal/errors"
)

// ImageLimits bounds the images accepted for comparison
type ImageLimits struct {
	MaxPixels int64
	MinSide   int
}

// DefaultImageLimits returns the limits used when none are configured
func DefaultImageLimits() ImageLimits {
	return ImageLimits{
		MaxPixels: 40_000_000,
		MinSide:   1,
	}
}

// DimensionValidator enforces ImageLimits before the pipeline runs
type DimensionValidator struct {
	limits ImageLimits
}

// NewDimensionValidator creates a validator for the given limits
func NewDimensionValidator(limits ImageLimits) *DimensionValidator {
	if limits.MinSide < 1 {
		limits.MinSide = 1
	}
	return &DimensionValidator{limits: limits}
}

// Validate checks a single image's bounds
func (v *DimensionValidator) Validate(bounds image.Rectangle) error {
	width, height := bounds.Dx(), bounds.Dy()
	if width < v.limits.MinSide || height < v.limits.MinSide {
		return apperrors.NewValidationError("Image dimensions too small", nil).
			WithDetails(fmt.Sprintf("got %dx%d, need at least %dx%d", width, height, v.limits.MinSide, v.limits.MinSide))
	}
	if v.limits.MaxPixels > 0 && int64(width)*int64(height) > v.limits.MaxPixels {
		return apperrors.NewValidationError("Image too large", nil).
			WithDetails(fmt.Sprintf("%dx%d exceeds the limit of %d pixels", width, height, v.limits.MaxPixels))
	}
	return nil
}

// ValidateConfig checks decoded header dimensions before a full decode
func (v *DimensionValidator) ValidateConfig(cfg image.Config) error {
	return v.Validate(image.Rect(0, 0, cfg.Width, cfg.Height))
}

// ValidatePair checks both images and that their sizes agree
func (v *DimensionValidator) ValidatePair(original, tampered image.Rectangle) error {
	if err := v.Validate(original); err != nil {
		return err
	}
	if err := v.Validate(tampered); err != nil {
		return err
	}
	if original.Size() != tampered.Size() {
		return apperrors.NewValidationError("Image dimensions do not match", nil).
			WithDetails(fmt.Sprintf("original is %dx%d, tampered is %dx%d",
				original.Dx(), original.Dy(), tampered.Dx(), tampered.Dy()))
	}
	return nil
}
