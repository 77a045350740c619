package warp

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/dudu/mouthwarp/internal/geom"
)

// Resample draws the sr part of src onto dst through m, which maps src
// coordinates to dst coordinates. Whole-pixel translations are copied
// directly so the result is exact. A dst mask blends by coverage for both
// Src and Over, as golang.org/x/image/draw does; the copy path therefore
// expects an opaque src when a mask is set.
func Resample(interp draw.Interpolator, dst draw.Image, m geom.Affine, src image.Image, sr image.Rectangle, op draw.Op, opts *draw.Options) {
	if m.A == 1 && m.B == 0 && m.D == 0 && m.E == 1 && isWhole(m.C) && isWhole(m.F) {
		d := image.Pt(int(m.C), int(m.F))
		r := sr.Add(d)
		if opts == nil || opts.DstMask == nil {
			draw.Draw(dst, r, src, sr.Min, op)
			return
		}
		draw.DrawMask(dst, r, src, sr.Min, opts.DstMask, opts.DstMaskP.Add(r.Min), draw.Over)
		return
	}
	interp.Transform(dst, m.Aff3(), src, sr, op, opts)
}

func isWhole(v float64) bool {
	return v == math.Trunc(v) && !math.IsInf(v, 0)
}
