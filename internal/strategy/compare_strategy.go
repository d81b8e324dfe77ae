package strategy

import (
	"fmt"
	"sort"
	"strings"

	"go-tamper-inspector/internal/analyzer"
)

// CompareStrategy tunes the pipeline for a kind of tampering
type CompareStrategy interface {
	Apply(base analyzer.CompareOptions) analyzer.CompareOptions
	GetStrategyName() string
}

// StandardStrategy keeps the configured defaults
type StandardStrategy struct{}

// NewStandardStrategy creates the default strategy
func NewStandardStrategy() CompareStrategy {
	return &StandardStrategy{}
}

// Apply returns base unchanged
func (s *StandardStrategy) Apply(base analyzer.CompareOptions) analyzer.CompareOptions {
	return base
}

// GetStrategyName returns the strategy name
func (s *StandardStrategy) GetStrategyName() string {
	return "standard"
}

// FineStrategy uses a small window so that edits of a few pixels, such as
// altered digits, are not averaged away.
type FineStrategy struct{}

// NewFineStrategy creates the fine-grained strategy
func NewFineStrategy() CompareStrategy {
	return &FineStrategy{}
}

// Apply narrows the window and keeps every region
func (s *FineStrategy) Apply(base analyzer.CompareOptions) analyzer.CompareOptions {
	return base.WithWindowSize(3).WithMinRegionArea(0)
}

// GetStrategyName returns the strategy name
func (s *FineStrategy) GetStrategyName() string {
	return "fine"
}

// CoarseStrategy targets pasted or removed objects in noisy photographs
type CoarseStrategy struct {
	minRegionArea int
}

// NewCoarseStrategy creates the coarse strategy
func NewCoarseStrategy() CompareStrategy {
	return &CoarseStrategy{minRegionArea: 64}
}

// Apply widens the window and drops speckle regions
func (s *CoarseStrategy) Apply(base analyzer.CompareOptions) analyzer.CompareOptions {
	return base.WithWindowSize(11).WithMinRegionArea(s.minRegionArea)
}

// GetStrategyName returns the strategy name
func (s *CoarseStrategy) GetStrategyName() string {
	return "coarse"
}

var registry = map[string]func() CompareStrategy{
	"standard": NewStandardStrategy,
	"fine":     NewFineStrategy,
	"coarse":   NewCoarseStrategy,
}

// Lookup returns the strategy registered under name; empty means standard
func Lookup(name string) (CompareStrategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return NewStandardStrategy(), nil
	}
	newStrategy, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return newStrategy(), nil
}

// Names lists the registered strategies in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
