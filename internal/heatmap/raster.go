package heatmap

import (
	"image"
	"math"
)

// texel is a triangle corner in pixel space carrying a normalized heat value.
type texel struct {
	x, y, t float64
}

// heatBuffer holds one heat value per pixel, -1 where nothing was drawn.
// Overlapping UV islands keep the hotter value.
type heatBuffer struct {
	size int
	heat []float64
}

func newHeatBuffer(size int) *heatBuffer {
	heat := make([]float64, size*size)
	for i := range heat {
		heat[i] = -1
	}
	return &heatBuffer{size: size, heat: heat}
}

// rasterize fills the pixels whose centres fall inside tri.
func (b *heatBuffer) rasterize(tri [3]texel) {
	x0, y0 := tri[0].x, tri[0].y
	x1, y1 := tri[1].x, tri[1].y
	x2, y2 := tri[2].x, tri[2].y

	minX := int(math.Floor(math.Min(math.Min(x0, x1), x2)))
	maxX := int(math.Ceil(math.Max(math.Max(x0, x1), x2)))
	minY := int(math.Floor(math.Min(math.Min(y0, y1), y2)))
	maxY := int(math.Ceil(math.Max(math.Max(y0, y1), y2)))
	if minX < 0 {
		minX = 0
	}
	if maxX >= b.size {
		maxX = b.size - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= b.size {
		maxY = b.size - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-12 && det < 1e-12 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		row := sy * b.size
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < -1e-9 || w1 < -1e-9 || w2 < -1e-9 {
				continue
			}
			t := w0*tri[0].t + w1*tri[1].t + w2*tri[2].t
			if t > b.heat[row+sx] {
				b.heat[row+sx] = t
			}
		}
	}
}

// image colours every drawn pixel through the ramp.
func (b *heatBuffer) image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.size, b.size))
	for i, t := range b.heat {
		if t < 0 {
			continue
		}
		r, g, bl := ramp(t)
		o := i * 4
		img.Pix[o] = r
		img.Pix[o+1] = g
		img.Pix[o+2] = bl
		img.Pix[o+3] = 255
	}
	return img
}

// rampStops runs blue, cyan, green, yellow, red.
var rampStops = [...][3]float64{
	{0, 0, 255},
	{0, 255, 255},
	{0, 255, 0},
	{255, 255, 0},
	{255, 0, 0},
}

func ramp(t float64) (r, g, b uint8) {
	s := t * float64(len(rampStops)-1)
	i := int(s)
	if i >= len(rampStops)-1 {
		c := rampStops[len(rampStops)-1]
		return uint8(c[0]), uint8(c[1]), uint8(c[2])
	}
	f := s - float64(i)
	lo, hi := rampStops[i], rampStops[i+1]
	return clamp8(lo[0] + (hi[0]-lo[0])*f), clamp8(lo[1] + (hi[1]-lo[1])*f), clamp8(lo[2] + (hi[2]-lo[2])*f)
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
