package factory

import (
	"fmt"

	"go-tamper-inspector/internal/analyzer"
	"go-tamper-inspector/internal/config"
	"go-tamper-inspector/internal/storage"
)

// StorageType represents the artifact storage backends
type StorageType string

const (
	// LocalStorage writes artifacts to the local file system
	LocalStorage StorageType = config.BackendLocal
	// AzureStorage uploads artifacts to Azure blob storage
	AzureStorage StorageType = config.BackendAzure
)

// StorageComponents bundles the artifact sink with the optional blob source
type StorageComponents struct {
	Artifacts storage.ArtifactStore
	// Blobs is nil when no Azure account is configured
	Blobs storage.BlobStorage
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(cfg *config.Config) (*StorageComponents, error)
}

// ComparatorFactory creates image comparators
type ComparatorFactory interface {
	CreateComparator(cfg *config.Config) (analyzer.ImageComparator, analyzer.CompareOptions, error)
}

// storageFactory implements StorageFactory
type storageFactory struct{}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() StorageFactory {
	return &storageFactory{}
}

// CreateStorage creates the artifact store for the configured backend. An
// Azure account, when present, also serves az:// inputs for either backend.
func (f *storageFactory) CreateStorage(cfg *config.Config) (*StorageComponents, error) {
	components := &StorageComponents{}

	var azure storage.AzureStorage
	if cfg.AzureStorageAccount != "" && cfg.AzureStorageKey != "" {
		var err error
		azure, err = storage.NewAzureStorage(cfg.AzureStorageAccount, cfg.AzureStorageKey, cfg.AzureContainer)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure storage: %w", err)
		}
		components.Blobs = azure
	}

	switch StorageType(cfg.ArtifactBackend) {
	case LocalStorage:
		store, err := storage.NewLocalArtifactStore(cfg.ArtifactDir, cfg.ArtifactBaseURL)
		if err != nil {
			return nil, err
		}
		components.Artifacts = store
	case AzureStorage:
		if azure == nil {
			return nil, fmt.Errorf("azure backend requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		components.Artifacts = azure
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.ArtifactBackend)
	}

	return components, nil
}

// comparatorFactory implements ComparatorFactory
type comparatorFactory struct{}

// NewComparatorFactory creates a new comparator factory
func NewComparatorFactory() ComparatorFactory {
	return &comparatorFactory{}
}

// CreateComparator builds the pipeline defaults from configuration and a
// comparator that runs with them.
func (f *comparatorFactory) CreateComparator(cfg *config.Config) (analyzer.ImageComparator, analyzer.CompareOptions, error) {
	defaults := analyzer.DefaultOptions()
	options := defaults.
		WithWindowSize(cfg.WindowSize).
		WithBoxStyle(defaults.BoxColor, cfg.BoxThickness).
		WithMaxWorkers(cfg.MaxWorkers)

	comparator, err := analyzer.NewImageComparator(options)
	if err != nil {
		return nil, options, err
	}
	return comparator, options, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory    StorageFactory
	ComparatorFactory ComparatorFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory() *ComponentFactory {
	return &ComponentFactory{
		StorageFactory:    NewStorageFactory(),
		ComparatorFactory: NewComparatorFactory(),
	}
}
