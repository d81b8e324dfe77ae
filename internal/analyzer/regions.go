package analyzer

import (
	"image"
)

// regionExtractor implements RegionExtractor. Foreground is 8-connected;
// enclosed background holes are filled first so that only outermost
// boundaries produce regions.
type regionExtractor struct {
	minArea int
}

// NewRegionExtractor creates an extractor that drops regions whose
// bounding box covers fewer than minArea pixels.
func NewRegionExtractor(minArea int) RegionExtractor {
	return &regionExtractor{minArea: minArea}
}

// Extract returns one bounding box per connected region, ordered by the
// raster position of each region's first pixel.
func (re *regionExtractor) Extract(mask *image.Gray) ([]Region, error) {
	if mask == nil {
		return nil, invalidInput("regions", "mask is nil")
	}
	width, height := mask.Bounds().Dx(), mask.Bounds().Dy()
	if width <= 0 || height <= 0 {
		return nil, invalidInput("regions", "mask has zero dimensions %dx%d", width, height)
	}

	fg := make([]bool, width*height)
	for y := 0; y < height; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+width]
		for x, v := range row {
			switch v {
			case maskForeground:
				fg[y*width+x] = true
			case maskBackground:
			default:
				return nil, invalidInput("regions", "mask value %d at (%d,%d) is not binary", v, x, y)
			}
		}
	}

	fillHoles(fg, width, height)
	labels, count := labelComponents(fg, width, height)
	if count == 0 {
		return []Region{}, nil
	}

	// Bounding boxes in order of first appearance
	boxes := make([]image.Rectangle, 0, count)
	index := make([]int, count+1)
	for i := range index {
		index[i] = -1
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			l := labels[y*width+x]
			if l == 0 {
				continue
			}
			if index[l] < 0 {
				index[l] = len(boxes)
				boxes = append(boxes, image.Rect(x, y, x+1, y+1))
				continue
			}
			boxes[index[l]] = boxes[index[l]].Union(image.Rect(x, y, x+1, y+1))
		}
	}

	regions := make([]Region, 0, len(boxes))
	for _, box := range boxes {
		r := Region{X: box.Min.X, Y: box.Min.Y, Width: box.Dx(), Height: box.Dy()}
		if r.Area() < re.minArea {
			continue
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// fillHoles marks as foreground every background pixel that cannot reach
// the border through 4-connected background.
func fillHoles(fg []bool, width, height int) {
	outside := make([]bool, len(fg))
	queue := make([]int, 0, 2*(width+height))

	visit := func(i int) {
		if !fg[i] && !outside[i] {
			outside[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < width; x++ {
		visit(x)
		visit((height-1)*width + x)
	}
	for y := 0; y < height; y++ {
		visit(y * width)
		visit(y*width + width - 1)
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%width, i/width
		if x > 0 {
			visit(i - 1)
		}
		if x < width-1 {
			visit(i + 1)
		}
		if y > 0 {
			visit(i - width)
		}
		if y < height-1 {
			visit(i + width)
		}
	}

	for i := range fg {
		if !outside[i] {
			fg[i] = true
		}
	}
}

// labelComponents performs two-pass 8-connected labeling with union-find.
// It returns final labels (0 = background) and the number of components.
func labelComponents(fg []bool, width, height int) ([]int32, int) {
	labels := make([]int32, len(fg))
	parent := []int32{0}

	find := func(l int32) int32 {
		for parent[l] != l {
			parent[l] = parent[parent[l]]
			l = parent[l]
		}
		return l
	}
	union := func(a, b int32) int32 {
		ra, rb := find(a), find(b)
		if ra == rb {
			return ra
		}
		if ra < rb {
			parent[rb] = ra
			return ra
		}
		parent[ra] = rb
		return rb
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if !fg[i] {
				continue
			}
			var current int32
			// Previously visited neighbors: W, NW, N, NE
			neighbors := [4][2]int{{-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
			for _, d := range neighbors {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= width || ny < 0 {
					continue
				}
				l := labels[ny*width+nx]
				if l == 0 {
					continue
				}
				if current == 0 {
					current = find(l)
				} else {
					current = union(current, l)
				}
			}
			if current == 0 {
				current = int32(len(parent))
				parent = append(parent, current)
			}
			labels[i] = current
		}
	}

	// Compact roots to 1..count
	roots := make([]int32, len(parent))
	var count int32
	for i := range labels {
		if labels[i] == 0 {
			continue
		}
		root := find(labels[i])
		if roots[root] == 0 {
			count++
			roots[root] = count
		}
		labels[i] = roots[root]
	}
	return labels, int(count)
}
