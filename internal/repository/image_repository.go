package repository

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"go-tamper-inspector/internal/storage"
	"go-tamper-inspector/pkg/validation"
)

// imageRepository implements ImageRepository over HTTP and blob storage
type imageRepository struct {
	fetcher      storage.ImageFetcher
	blobs        storage.BlobStorage
	urlValidator *validation.URLValidator
	dimensions   *validation.DimensionValidator
}

// NewImageRepository creates a repository. blobs may be nil, in which case
// az:// references are rejected. A nil urlValidator accepts any http(s) URL.
func NewImageRepository(fetcher storage.ImageFetcher, blobs storage.BlobStorage, limits validation.ImageLimits, urlValidator *validation.URLValidator) ImageRepository {
	if urlValidator == nil {
		urlValidator = validation.NewURLValidator()
	}
	if blobs != nil {
		urlValidator.WithBlobScheme()
	}
	return &imageRepository{
		fetcher:      fetcher,
		blobs:        blobs,
		urlValidator: urlValidator,
		dimensions:   validation.NewDimensionValidator(limits),
	}
}

// FetchImage retrieves an image by reference and decodes it under the
// same header limits as uploads
func (r *imageRepository) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	if err := r.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(strings.ToLower(imageURL), storage.BlobScheme) {
		if r.blobs == nil {
			return nil, ErrBlobStorageUnavailable
		}
		data, err = r.blobs.GetImage(ctx, imageURL)
	} else {
		data, err = r.fetcher.FetchImage(ctx, imageURL)
	}
	if err != nil {
		return nil, err
	}

	return r.decode(data)
}

// DecodeImage reads the header first so oversized uploads never allocate
// a full pixel buffer.
func (r *imageRepository) DecodeImage(rd io.Reader) (image.Image, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return r.decode(data)
}

func (r *imageRepository) decode(data []byte) (image.Image, error) {
	cfg, _, err := storage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := r.dimensions.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageRejected, err)
	}

	return storage.DecodeImage(bytes.NewReader(data))
}

// ValidateImageURL validates if the provided URL is acceptable
func (r *imageRepository) ValidateImageURL(imageURL string) error {
	if err := r.urlValidator.ValidateImageURL(imageURL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImageURL, err)
	}
	return nil
}
