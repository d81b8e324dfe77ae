package models

import "time"

// Artifact names, shared by the service and the CLI
const (
	ArtifactOriginalAnnotated = "original_with_contours.png"
	ArtifactTamperedAnnotated = "tampered_with_contours.png"
	ArtifactDiffMap           = "diff.png"
	ArtifactMask              = "thresh.png"
)

// BoundingBox is an axis-aligned rectangle in image pixel coordinates
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ComparisonStats summarizes the difference map beyond the score
type ComparisonStats struct {
	MeanSimilarity    float64 `json:"mean_similarity"`
	StdDevSimilarity  float64 `json:"stddev_similarity"`
	MinSimilarity     float64 `json:"min_similarity"`
	ChangedPixels     int     `json:"changed_pixels"`
	ChangedPixelRatio float64 `json:"changed_pixel_ratio"`
	LargestRegionArea int     `json:"largest_region_area"`
}

// ComparisonArtifacts holds the locations of the stored output images
type ComparisonArtifacts struct {
	OriginalAnnotated string `json:"original_with_contours"`
	TamperedAnnotated string `json:"tampered_with_contours"`
	DiffMap           string `json:"diff"`
	Mask              string `json:"thresh"`
}

// ComparisonResult is the complete outcome of comparing two images
type ComparisonResult struct {
	ID                string              `json:"id"`
	Timestamp         time.Time           `json:"timestamp"`
	ProcessingTimeSec float64             `json:"processing_time_sec"`
	Width             int                 `json:"width"`
	Height            int                 `json:"height"`
	Score             float64             `json:"score"`
	Threshold         uint8               `json:"threshold"`
	Tampered          bool                `json:"tampered"`
	Regions           []BoundingBox       `json:"regions"`
	Stats             ComparisonStats     `json:"stats"`
	Artifacts         ComparisonArtifacts `json:"artifacts"`
}
