package analyzer

import (
	"fmt"
	"image"
)

// InvalidInputError reports a malformed or degenerate image: zero dimensions,
// an unsupported channel layout, or a non-binary mask where one is required.
type InvalidInputError struct {
	Stage  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input to %s: %s", e.Stage, e.Reason)
}

// DimensionMismatchError reports two compared images with different sizes.
type DimensionMismatchError struct {
	Original image.Point
	Tampered image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("image dimensions do not match: %dx%d vs %dx%d",
		e.Original.X, e.Original.Y, e.Tampered.X, e.Tampered.Y)
}

// DegenerateInputError reports a difference map whose histogram has fewer
// than two distinct intensities, so no threshold can separate it.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: %s", e.Reason)
}

func invalidInput(stage, format string, args ...interface{}) error {
	return &InvalidInputError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}
