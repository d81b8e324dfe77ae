package analyzer

import (
	"image"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// diffStatsCalculator implements DiffStatsCalculator using Gonum
type diffStatsCalculator struct{}

// NewDiffStatsCalculator creates a new statistics calculator using Gonum
func NewDiffStatsCalculator() DiffStatsCalculator {
	return &diffStatsCalculator{}
}

// Calculate summarizes the similarity map, the mask coverage and the regions
func (dc *diffStatsCalculator) Calculate(m *SimilarityMap, mask *image.Gray, regions []Region) DiffStats {
	var stats DiffStats
	if m == nil || len(m.Values) == 0 {
		return stats
	}

	if len(m.Values) > 1 {
		stats.MeanSimilarity, stats.StdDevSimilarity = stat.MeanStdDev(m.Values, nil)
	} else {
		stats.MeanSimilarity = m.Values[0]
	}
	stats.MinSimilarity = floats.Min(m.Values)

	if mask != nil {
		width, height := mask.Bounds().Dx(), mask.Bounds().Dy()
		for y := 0; y < height; y++ {
			for _, v := range mask.Pix[y*mask.Stride : y*mask.Stride+width] {
				if v == maskForeground {
					stats.ChangedPixels++
				}
			}
		}
		if width*height > 0 {
			stats.ChangedPixelRatio = float64(stats.ChangedPixels) / float64(width*height)
		}
	}

	stats.RegionCount = len(regions)
	for _, r := range regions {
		if r.Area() > stats.LargestRegionArea {
			stats.LargestRegionArea = r.Area()
		}
	}
	return stats
}
