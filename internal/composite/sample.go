package composite

import (
	"image"
	"image/color"
	"math"

	"github.com/dudu/mouthwarp/internal/geom"
)

// Sample averages the pixels of img within radius of center, weighting
// each one linearly by its closeness to the center. Pixels outside img are
// ignored; if none remain the result is opaque black.
func Sample(img image.Image, center geom.Point, radius float64) color.RGBA {
	if radius <= 0 || !center.Finite() {
		return color.RGBA{A: 255}
	}

	b := img.Bounds()
	x0 := max(b.Min.X, int(math.Floor(center.X-radius)))
	y0 := max(b.Min.Y, int(math.Floor(center.Y-radius)))
	x1 := min(b.Max.X, int(math.Ceil(center.X+radius))+1)
	y1 := min(b.Max.Y, int(math.Ceil(center.Y+radius))+1)

	var r, g, bl, total float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			d := geom.Pt(float64(x)+0.5, float64(y)+0.5).Dist(center)
			w := 1 - d/radius
			if w <= 0 {
				continue
			}
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r += w * float64(cr>>8)
			g += w * float64(cg>>8)
			bl += w * float64(cb>>8)
			total += w
		}
	}
	if total == 0 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{
		R: uint8(math.Round(r / total)),
		G: uint8(math.Round(g / total)),
		B: uint8(math.Round(bl / total)),
		A: 255,
	}
}

// Shade scales the color channels of c by k
func Shade(c color.RGBA, k float64) color.RGBA {
	scale := func(v uint8) uint8 {
		return uint8(math.Round(math.Min(255, math.Max(0, float64(v)*k))))
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}
