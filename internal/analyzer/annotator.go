package analyzer

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// boxAnnotator implements Annotator by drawing solid outlines inward
// from each region's padded bounding box.
type boxAnnotator struct {
	color     color.NRGBA
	thickness int
	padding   int
}

// NewAnnotator creates an annotator drawing outlines of the given color
// and thickness around regions grown by padding pixels.
func NewAnnotator(c color.Color, thickness, padding int) Annotator {
	if thickness < 1 {
		thickness = 1
	}
	if padding < 0 {
		padding = 0
	}
	return &boxAnnotator{
		color:     color.NRGBAModel.Convert(c).(color.NRGBA),
		thickness: thickness,
		padding:   padding,
	}
}

// Annotate returns a copy of img with every region outlined. The source
// image is never modified.
func (a *boxAnnotator) Annotate(img image.Image, regions []Region) *image.NRGBA {
	out := imaging.Clone(img)
	bounds := out.Bounds()

	for _, region := range regions {
		a.drawBox(out, region.Rect().Inset(-a.padding).Intersect(bounds))
	}
	return out
}

func (a *boxAnnotator) drawBox(dst *image.NRGBA, r image.Rectangle) {
	if r.Empty() {
		return
	}
	t := a.thickness
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if x < r.Min.X+t || x >= r.Max.X-t || y < r.Min.Y+t || y >= r.Max.Y-t {
				dst.SetNRGBA(x, y, a.color)
			}
		}
	}
}
