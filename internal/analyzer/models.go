package analyzer

import (
	"image"
	"math"
)

// Region is the axis-aligned bounding box of one connected group of
// differing pixels. Coordinates are relative to the image origin.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the region as a half-open image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Area returns the number of pixels covered by the bounding box.
func (r Region) Area() int {
	return r.Width * r.Height
}

// Contains reports whether the point lies inside the bounding box.
func (r Region) Contains(x, y int) bool {
	return image.Pt(x, y).In(r.Rect())
}

// SimilarityMap holds the per-pixel structural similarity of two images
// and the overall score derived from it. Values are stored row-major and
// lie in [-1, 1].
type SimilarityMap struct {
	Width  int
	Height int
	Values []float64
	Score  float64
	Window int
}

// At returns the similarity value at (x, y).
func (m *SimilarityMap) At(x, y int) float64 {
	return m.Values[y*m.Width+x]
}

// Rescaled converts the map to a displayable grayscale image where white
// means similar. Negative similarities are clamped to black.
func (m *SimilarityMap) Rescaled() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Values {
		out.Pix[i] = similarityToByte(v)
	}
	return out
}

// Inverted converts the map to the 8-bit difference intensity used for
// binarization: 255 minus the rescaled similarity, so higher means more
// different.
func (m *SimilarityMap) Inverted() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Values {
		out.Pix[i] = 255 - similarityToByte(v)
	}
	return out
}

func similarityToByte(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}

// DiffStats summarizes a comparison beyond the single score.
type DiffStats struct {
	MeanSimilarity    float64 `json:"mean_similarity"`
	StdDevSimilarity  float64 `json:"stddev_similarity"`
	MinSimilarity     float64 `json:"min_similarity"`
	ChangedPixels     int     `json:"changed_pixels"`
	ChangedPixelRatio float64 `json:"changed_pixel_ratio"`
	RegionCount       int     `json:"region_count"`
	LargestRegionArea int     `json:"largest_region_area"`
}

// ComparisonResult is the complete output of one pipeline invocation.
type ComparisonResult struct {
	Score     float64
	DiffMap   *image.Gray
	Mask      *image.Gray
	Threshold uint8
	Regions   []Region
	Original  *image.NRGBA
	Tampered  *image.NRGBA
	Stats     DiffStats

	ProcessingTimeSec float64
}
