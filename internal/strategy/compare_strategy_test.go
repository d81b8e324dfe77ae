package strategy

import (
	"strings"
	"testing"

	"go-tamper-inspector/internal/analyzer"
)

func TestLookup(t *testing.T) {
	base := analyzer.DefaultOptions().WithMinRegionArea(10)

	tests := []struct {
		name         string
		preset       string
		expectedName string
		expectedWin  int
		expectedArea int
	}{
		{"empty is standard", "", "standard", 7, 10},
		{"standard", "standard", "standard", 7, 10},
		{"fine", "fine", "fine", 3, 0},
		{"coarse ignores case", " Coarse ", "coarse", 11, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Lookup(tt.preset)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if s.GetStrategyName() != tt.expectedName {
				t.Errorf("Expected %s, got %s", tt.expectedName, s.GetStrategyName())
			}

			options := s.Apply(base)
			if options.WindowSize != tt.expectedWin {
				t.Errorf("Expected window %d, got %d", tt.expectedWin, options.WindowSize)
			}
			if options.MinRegionArea != tt.expectedArea {
				t.Errorf("Expected min area %d, got %d", tt.expectedArea, options.MinRegionArea)
			}
			if err := options.Validate(); err != nil {
				t.Errorf("Expected valid options, got %v", err)
			}
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("turbo")
	if err == nil {
		t.Fatal("Expected error for unknown preset")
	}
	if !strings.Contains(err.Error(), "coarse, fine, standard") {
		t.Errorf("Expected available presets in error, got %v", err)
	}
}
