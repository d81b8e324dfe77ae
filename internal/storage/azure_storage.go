package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// BlobScheme prefixes image references stored in the configured account
const BlobScheme = "az://"

// BlobStorage downloads encoded image bytes addressed by az:// references
type BlobStorage interface {
	GetImage(ctx context.Context, blobURL string) ([]byte, error)
}

// AzureStorage reads input images from and writes artifacts to one account
type AzureStorage interface {
	BlobStorage
	ArtifactStore
}

type azureStorage struct {
	client    *azblob.Client
	container string

	mu               sync.Mutex
	containerCreated bool
}

// NewAzureStorage creates blob storage bound to an account; artifacts are
// written to the given container.
func NewAzureStorage(accountName, accountKey, container string) (AzureStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid storage credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &azureStorage{client: client, container: container}, nil
}

// ParseBlobURL splits az://container/path/to/blob into container and blob name
func ParseBlobURL(blobURL string) (string, string, error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	if parsedURL.Scheme != strings.TrimSuffix(BlobScheme, "://") {
		return "", "", fmt.Errorf("blob URL must use the %s scheme", BlobScheme)
	}

	containerName := parsedURL.Host
	blobName := strings.TrimPrefix(parsedURL.Path, "/")
	if containerName == "" || blobName == "" {
		return "", "", fmt.Errorf("blob URL must name a container and a blob: %q", blobURL)
	}
	return containerName, blobName, nil
}

func (s *azureStorage) GetImage(ctx context.Context, blobURL string) ([]byte, error) {
	containerName, blobName, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	// Download blob to stream
	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if size := downloadResponse.ContentLength; size != nil && *size > maxImageBodySize {
		downloadResponse.Body.Close()
		return nil, fmt.Errorf("%w: blob is %d bytes, limit is %d", ErrBodyTooLarge, *size, maxImageBodySize)
	}

	retryReader := downloadResponse.NewRetryReader(ctx, &azblob.RetryReaderOptions{MaxRetries: 3})
	defer retryReader.Close()

	return readBounded(retryReader, maxImageBodySize)
}

// Save uploads one artifact as <comparisonID>/<name> and returns its URL
func (s *azureStorage) Save(ctx context.Context, comparisonID, name string, data []byte, contentType string) (string, error) {
	if err := validateArtifactKey(comparisonID, name); err != nil {
		return "", err
	}
	if err := s.ensureContainer(ctx); err != nil {
		return "", err
	}

	blobName := comparisonID + "/" + name
	_, err := s.client.UploadBuffer(ctx, s.container, blobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("upload of %s failed: %w", blobName, err)
	}

	return strings.TrimRight(s.client.URL(), "/") + "/" + s.container + "/" + blobName, nil
}

// Delete removes every blob under <comparisonID>/
func (s *azureStorage) Delete(ctx context.Context, comparisonID string) error {
	if err := validateComparisonID(comparisonID); err != nil {
		return err
	}

	prefix := comparisonID + "/"
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return nil
			}
			return fmt.Errorf("failed to list artifacts of %s: %w", comparisonID, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			_, err := s.client.DeleteBlob(ctx, s.container, *item.Name, nil)
			if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
				return fmt.Errorf("failed to delete %s: %w", *item.Name, err)
			}
		}
	}
	return nil
}

// ensureContainer creates the artifact container on first successful use
func (s *azureStorage) ensureContainer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.containerCreated {
		return nil
	}
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to create container %s: %w", s.container, err)
	}
	s.containerCreated = true
	return nil
}
