package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// ArtifactStore persists the images produced by one comparison and
// returns a location the caller can fetch them from.
type ArtifactStore interface {
	Save(ctx context.Context, comparisonID, name string, data []byte, contentType string) (string, error)

	// Delete removes everything stored for a comparison. Deleting an
	// unknown comparison is not an error.
	Delete(ctx context.Context, comparisonID string) error
}

var artifactNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// validateArtifactKey rejects identifiers that could escape the artifact root
func validateArtifactKey(comparisonID, name string) error {
	if err := validateComparisonID(comparisonID); err != nil {
		return err
	}
	if !artifactNamePattern.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}

func validateComparisonID(comparisonID string) error {
	if !artifactNamePattern.MatchString(comparisonID) || strings.Contains(comparisonID, "..") {
		return fmt.Errorf("invalid comparison id %q", comparisonID)
	}
	return nil
}

type localArtifactStore struct {
	dir     string
	baseURL string
}

// NewLocalArtifactStore stores artifacts under dir/<comparisonID>/ and
// reports them as baseURL/<comparisonID>/<name>.
func NewLocalArtifactStore(dir, baseURL string) (ArtifactStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &localArtifactStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *localArtifactStore) Save(ctx context.Context, comparisonID, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateArtifactKey(comparisonID, name); err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, comparisonID)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create comparison directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(target, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return s.baseURL + "/" + path.Join(comparisonID, name), nil
}

func (s *localArtifactStore) Delete(ctx context.Context, comparisonID string) error {
	if err := validateComparisonID(comparisonID); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.dir, comparisonID)); err != nil {
		return fmt.Errorf("failed to remove comparison directory: %w", err)
	}
	return nil
}
