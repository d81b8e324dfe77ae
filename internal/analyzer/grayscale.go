package analyzer

import (
	"image"
)

// ToGray converts an image to 8-bit luminance using the ITU-R BT.601
// weights Y = 0.299R + 0.587G + 0.114B, rounded to the nearest integer.
// The result always starts at the origin. Grayscale input is copied.
func ToGray(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, invalidInput("grayscale", "image is nil")
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, invalidInput("grayscale", "image has zero dimensions %dx%d", width, height)
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))

	switch src := img.(type) {
	case *image.Alpha, *image.Alpha16:
		return nil, invalidInput("grayscale", "alpha-only images carry no color channels")
	case *image.Gray:
		for y := 0; y < height; y++ {
			srcOff := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(gray.Pix[y*gray.Stride:y*gray.Stride+width], src.Pix[srcOff:srcOff+width])
		}
	case *image.RGBA:
		// Fast path for the most common decoded layout
		for y := 0; y < height; y++ {
			srcOff := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
			for x := range row {
				p := src.Pix[srcOff+x*4 : srcOff+x*4+3 : srcOff+x*4+3]
				row[x] = luminance(uint32(p[0]), uint32(p[1]), uint32(p[2]))
			}
		}
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			srcOff := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
			for x := range row {
				p := src.Pix[srcOff+x*4 : srcOff+x*4+3 : srcOff+x*4+3]
				row[x] = luminance(uint32(p[0]), uint32(p[1]), uint32(p[2]))
			}
		}
	default:
		for y := 0; y < height; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
			for x := range row {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				row[x] = luminance(r>>8, g>>8, b>>8)
			}
		}
	}

	return gray, nil
}

// luminance weights 8-bit channels in thousandths; +500 rounds half up
func luminance(r, g, b uint32) uint8 {
	return uint8((299*r + 587*g + 114*b + 500) / 1000)
}
