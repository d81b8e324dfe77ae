package observer

import (
	"context"
	"sync"
	"time"

	"go-tamper-inspector/internal/logger"

	"github.com/sirupsen/logrus"
)

// ComparisonEvent represents a comparison lifecycle event
type ComparisonEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	ComparisonID   string                 `json:"comparison_id,omitempty"`
	Source         string                 `json:"source,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of comparison event
type EventType string

const (
	// ComparisonStarted when a comparison begins
	ComparisonStarted EventType = "comparison_started"
	// ComparisonCompleted when a comparison finishes successfully
	ComparisonCompleted EventType = "comparison_completed"
	// ComparisonFailed when a comparison fails
	ComparisonFailed EventType = "comparison_failed"
	// ImageFetched when an input image is fetched
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when an input image cannot be fetched
	ImageFetchFailed EventType = "image_fetch_failed"
	// ArtifactsStored when all output images are persisted
	ArtifactsStored EventType = "artifacts_stored"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event ComparisonEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event ComparisonEvent)
}

// LoggingObserver logs comparison events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles comparison events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event ComparisonEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"comparison_id":   event.ComparisonID,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ComparisonStarted:
		entry.Info("Image comparison started")
	case ComparisonCompleted:
		entry.Info("Image comparison completed")
	case ComparisonFailed:
		entry.Error("Image comparison failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	case ArtifactsStored:
		entry.Debug("Comparison artifacts stored")
	default:
		entry.Info("Comparison event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from comparison events
type MetricsObserver struct {
	mu                   sync.RWMutex
	totalComparisons     int64
	completedComparisons int64
	failedComparisons    int64
	tamperedComparisons  int64
	totalRegions         int64
	failedFetches        int64
	totalProcessingTime  time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles comparison events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event ComparisonEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case ComparisonStarted:
		o.totalComparisons++
	case ComparisonCompleted:
		o.completedComparisons++
		o.totalProcessingTime += event.ProcessingTime
		if regions, ok := event.Metadata["regions"].(int); ok {
			o.totalRegions += int64(regions)
			if regions > 0 {
				o.tamperedComparisons++
			}
		}
	case ComparisonFailed:
		o.failedComparisons++
	case ImageFetchFailed:
		o.failedFetches++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.completedComparisons > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.completedComparisons)
	}

	return map[string]interface{}{
		"total_comparisons":     o.totalComparisons,
		"completed_comparisons": o.completedComparisons,
		"failed_comparisons":    o.failedComparisons,
		"tampered_comparisons":  o.tamperedComparisons,
		"total_regions":         o.totalRegions,
		"failed_fetches":        o.failedFetches,
		"total_processing_time": o.totalProcessingTime.String(),
		"avg_processing_time":   avgProcessingTime.String(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	wg        sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Observers run
// concurrently; use Wait to block until they have all returned.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event ComparisonEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.wg.Add(1)
		go func(obs Observer) {
			defer p.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(logrus.Fields{
						"observer":   obs.GetObserverName(),
						"panic":      r,
						"event_type": event.EventType,
					}).Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until every in-flight notification has been handled
func (p *EventPublisher) Wait() {
	p.wg.Wait()
}
