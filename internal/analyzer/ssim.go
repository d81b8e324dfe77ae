package analyzer

import (
	"image"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// ssimEngine implements SimilarityEngine with a uniform square window.
// Window sums are kept as exact integers, slid down each row band.
type ssimEngine struct {
	options    CompareOptions
	workerPool *WorkerPool
}

// NewSimilarityEngine creates a structural similarity engine. A nil pool
// computes every row on the calling goroutine.
func NewSimilarityEngine(options CompareOptions, pool *WorkerPool) SimilarityEngine {
	return &ssimEngine{
		options:    options,
		workerPool: pool,
	}
}

// windowSums accumulates the five moments needed by one window
type windowSums struct {
	a, b, aa, bb, ab int64
}

// Compute returns the full-size similarity map of a and b and its score
func (e *ssimEngine) Compute(a, b *image.Gray) (*SimilarityMap, error) {
	if a == nil || b == nil {
		return nil, invalidInput("similarity", "grayscale image is nil")
	}
	sizeA, sizeB := a.Bounds().Size(), b.Bounds().Size()
	if sizeA != sizeB {
		return nil, &DimensionMismatchError{Original: sizeA, Tampered: sizeB}
	}
	width, height := sizeA.X, sizeA.Y
	if width <= 0 || height <= 0 {
		return nil, invalidInput("similarity", "image has zero dimensions %dx%d", width, height)
	}

	win := effectiveWindow(e.options.WindowSize, width, height)
	pad := win / 2

	m := &SimilarityMap{
		Width:  width,
		Height: height,
		Values: make([]float64, width*height),
		Window: win,
	}

	// Reflected source column for every padded column
	cols := make([]int, width+2*pad)
	for px := range cols {
		cols[px] = reflectIndex(px-pad, width)
	}

	bands := e.bandCount(height)
	rowsPerBand := (height + bands - 1) / bands // ceil division

	if e.workerPool == nil || bands == 1 {
		for startY := 0; startY < height; startY += rowsPerBand {
			e.computeBand(a, b, m, cols, win, startY, min(startY+rowsPerBand, height))
		}
	} else {
		var wg sync.WaitGroup
		for startY := 0; startY < height; startY += rowsPerBand {
			endY := min(startY+rowsPerBand, height)
			wg.Add(1)
			job := func(startY, endY int) func() {
				return func() {
					defer wg.Done()
					e.computeBand(a, b, m, cols, win, startY, endY)
				}
			}(startY, endY)
			if !e.workerPool.Submit(job) {
				// Pool already closed, finish on this goroutine
				job()
			}
		}
		wg.Wait()
	}

	m.Score = meanInterior(m, pad)
	return m, nil
}

func (e *ssimEngine) bandCount(height int) int {
	if e.workerPool == nil {
		return 1
	}
	bands := e.workerPool.Workers()
	if bands > height {
		bands = height
	}
	if bands < 1 {
		bands = 1
	}
	return bands
}

// computeBand fills rows [startY, endY) of the map. Column sums over the
// current window rows are slid vertically; window sums are slid horizontally.
func (e *ssimEngine) computeBand(a, b *image.Gray, m *SimilarityMap, cols []int, win, startY, endY int) {
	width, height := m.Width, m.Height
	pad := win / 2
	colSums := make([]windowSums, len(cols))

	addRow := func(y int, sign int64) {
		offA := reflectIndex(y, height) * a.Stride
		offB := reflectIndex(y, height) * b.Stride
		for px, sx := range cols {
			va := int64(a.Pix[offA+sx])
			vb := int64(b.Pix[offB+sx])
			c := &colSums[px]
			c.a += sign * va
			c.b += sign * vb
			c.aa += sign * va * va
			c.bb += sign * vb * vb
			c.ab += sign * va * vb
		}
	}

	for y := startY - pad; y <= startY+pad; y++ {
		addRow(y, 1)
	}

	for y := startY; y < endY; y++ {
		if y > startY {
			addRow(y-1-pad, -1)
			addRow(y+pad, 1)
		}

		var s windowSums
		for px := 0; px < win; px++ {
			s.add(colSums[px], 1)
		}
		row := m.Values[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			if x > 0 {
				s.add(colSums[x+win-1], 1)
				s.add(colSums[x-1], -1)
			}
			row[x] = e.similarity(s, int64(win*win))
		}
	}
}

func (s *windowSums) add(o windowSums, sign int64) {
	s.a += sign * o.a
	s.b += sign * o.b
	s.aa += sign * o.aa
	s.bb += sign * o.bb
	s.ab += sign * o.ab
}

// similarity evaluates the index for one window of n samples. Second
// moments are formed as exact integers so identical windows give equal
// variances and covariance, and the result is symmetric in a and b.
func (e *ssimEngine) similarity(s windowSums, n int64) float64 {
	nf := float64(n)
	norm := nf * nf
	if e.options.SampleCovariance && n > 1 {
		norm = nf * (nf - 1)
	}

	mu1 := float64(s.a) / nf
	mu2 := float64(s.b) / nf
	var1 := float64(n*s.aa-s.a*s.a) / norm
	var2 := float64(n*s.bb-s.b*s.b) / norm
	cov := float64(n*s.ab-s.a*s.b) / norm

	c1, c2 := e.options.c1(), e.options.c2()
	num := (2*mu1*mu2 + c1) * (2*cov + c2)
	den := (mu1*mu1 + mu2*mu2 + c1) * (var1 + var2 + c2)

	v := num / den
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// meanInterior averages the map where the window lies fully inside the image
func meanInterior(m *SimilarityMap, pad int) float64 {
	if m.Width <= 2*pad || m.Height <= 2*pad {
		return stat.Mean(m.Values, nil)
	}
	interior := make([]float64, 0, (m.Width-2*pad)*(m.Height-2*pad))
	for y := pad; y < m.Height-pad; y++ {
		interior = append(interior, m.Values[y*m.Width+pad:(y+1)*m.Width-pad]...)
	}
	return stat.Mean(interior, nil)
}

// effectiveWindow shrinks the window to the largest odd side that fits
func effectiveWindow(size, width, height int) int {
	limit := min(width, height)
	if size > limit {
		size = limit
	}
	if size%2 == 0 {
		size--
	}
	if size < 1 {
		size = 1
	}
	return size
}

// reflectIndex maps i onto [0, n) by mirroring about the edges, repeating
// the edge sample (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
