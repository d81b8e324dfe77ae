package repository

import (
	"context"
	"image"
	"io"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// FetchImage retrieves an image by reference (http, https or az)
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)

	// DecodeImage decodes an uploaded image, rejecting oversized ones
	// before the pixel data is decoded
	DecodeImage(r io.Reader) (image.Image, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(imageURL string) error
}
