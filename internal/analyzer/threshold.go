package analyzer

import (
	"image"
)

const (
	maskForeground uint8 = 255
	maskBackground uint8 = 0
)

// otsuBinarizer implements Binarizer with Otsu's between-class variance
// maximization over a 256-bin histogram.
type otsuBinarizer struct{}

// NewOtsuBinarizer creates an automatic global-threshold binarizer
func NewOtsuBinarizer() Binarizer {
	return &otsuBinarizer{}
}

// Binarize selects a threshold from the image histogram and returns the
// mask together with it. Values strictly above the threshold become
// foreground.
func (b *otsuBinarizer) Binarize(diff *image.Gray) (*image.Gray, uint8, error) {
	if diff == nil {
		return nil, 0, invalidInput("binarize", "difference map is nil")
	}
	width, height := diff.Bounds().Dx(), diff.Bounds().Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, invalidInput("binarize", "difference map has zero dimensions %dx%d", width, height)
	}

	hist := Histogram(diff)
	t, err := OtsuThreshold(hist)
	if err != nil {
		return nil, 0, err
	}
	return ApplyThreshold(diff, t), t, nil
}

// Histogram counts the occurrences of every 8-bit intensity
func Histogram(img *image.Gray) [256]int {
	var hist [256]int
	bounds := img.Bounds()
	for y := 0; y < bounds.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+bounds.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist
}

// OtsuThreshold returns the first intensity maximizing the between-class
// variance of the histogram.
func OtsuThreshold(hist [256]int) (uint8, error) {
	var total, distinct int
	var sumAll float64
	for i, count := range hist {
		if count == 0 {
			continue
		}
		distinct++
		total += count
		sumAll += float64(i) * float64(count)
	}
	if distinct < 2 {
		return 0, &DegenerateInputError{Reason: "difference map has fewer than two distinct intensities"}
	}

	var weightB, sumB float64
	best := -1.0
	threshold := 0
	for i := 0; i < 256; i++ {
		weightB += float64(hist[i])
		if weightB == 0 {
			continue
		}
		weightF := float64(total) - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])

		meanB := sumB / weightB
		meanF := (sumAll - sumB) / weightF
		between := weightB * weightF * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			threshold = i
		}
	}

	return uint8(threshold), nil
}

// ApplyThreshold returns a binary mask of the pixels above t
func ApplyThreshold(img *image.Gray, t uint8) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+bounds.Dx()]
		dst := mask.Pix[y*mask.Stride : y*mask.Stride+bounds.Dx()]
		for x, v := range src {
			if v > t {
				dst[x] = maskForeground
			} else {
				dst[x] = maskBackground
			}
		}
	}
	return mask
}
