package heatmap

import (
	"image"

	"golang.org/x/image/draw"
)

// downsample scales img to size with filter. Scaling runs on premultiplied
// RGBA so transparent texels outside the UV islands do not bleed their
// colour into island borders.
func downsample(img *image.NRGBA, size int, filter draw.Interpolator) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= size && b.Dy() <= size {
		return img
	}
	if filter == nil {
		filter = draw.CatmullRom
	}

	premul := image.NewRGBA(b)
	draw.Draw(premul, b, img, b.Min, draw.Src)

	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	filter.Scale(scaled, scaled.Bounds(), premul, b, draw.Src, nil)

	out := image.NewNRGBA(scaled.Bounds())
	draw.Draw(out, out.Bounds(), scaled, image.Point{}, draw.Src)
	return out
}
