package repository

import "errors"

var (
	// ErrInvalidImageURL indicates an invalid image URL
	ErrInvalidImageURL = errors.New("invalid image URL")

	// ErrBlobStorageUnavailable indicates an az:// reference without a configured account
	ErrBlobStorageUnavailable = errors.New("blob storage is not configured")

	// ErrImageRejected indicates an image whose dimensions fall outside the limits
	ErrImageRejected = errors.New("image dimensions rejected")
)
