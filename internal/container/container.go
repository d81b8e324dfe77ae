package container

import (
	"fmt"
	"net/http"

	"go-tamper-inspector/internal/analyzer"
	"go-tamper-inspector/internal/config"
	"go-tamper-inspector/internal/factory"
	"go-tamper-inspector/internal/logger"
	"go-tamper-inspector/internal/observer"
	"go-tamper-inspector/internal/repository"
	"go-tamper-inspector/internal/service"
	"go-tamper-inspector/internal/storage"
	"go-tamper-inspector/internal/transport"
	"go-tamper-inspector/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config            *config.Config
	imageFetcher      storage.ImageFetcher
	storage           *factory.StorageComponents
	comparator        analyzer.ImageComparator
	imageRepository   repository.ImageRepository
	events            *observer.EventPublisher
	metrics           *observer.MetricsObserver
	comparisonService service.ComparisonService
	handler           http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory()

	stores, err := components.StorageFactory.CreateStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	comparator, defaults, err := components.ComparatorFactory.CreateComparator(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create comparator: %w", err)
	}

	// Build dependency graph
	urls := urlValidator(cfg)
	imageFetcher := storage.NewHTTPImageFetcher(cfg.ImageFetchTimeout, urls.ValidateImageURL)
	limits := validation.ImageLimits{MaxPixels: cfg.MaxImagePixels, MinSide: 1}
	imageRepository := repository.NewImageRepository(imageFetcher, stores.Blobs, limits, urls)

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	comparisonService := service.NewComparisonService(
		imageRepository,
		comparator,
		stores.Artifacts,
		events,
		defaults,
		cfg.CompareTimeout,
	)
	handler := transport.NewHandler(comparisonService, metrics, cfg)

	return &Container{
		config:            cfg,
		imageFetcher:      imageFetcher,
		storage:           stores,
		comparator:        comparator,
		imageRepository:   imageRepository,
		events:            events,
		metrics:           metrics,
		comparisonService: comparisonService,
		handler:           handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Metrics returns the aggregated comparison counters
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Close waits for pending observer notifications and stops the worker pool
func (c *Container) Close() error {
	c.events.Wait()
	return c.comparator.Close()
}

func urlValidator(cfg *config.Config) *validation.URLValidator {
	validator := validation.NewURLValidator()
	if len(cfg.AllowedImageHosts) > 0 {
		validator = validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.AllowedImageHosts)
	}
	if cfg.DenyLoopbackURLs {
		validator.WithLoopbackDenied()
	}
	return validator
}
