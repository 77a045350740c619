// Package warp renders a deformation field as a piecewise-affine image warp
// over a triangle mesh.
package warp

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/dudu/mouthwarp/internal/deform"
	"github.com/dudu/mouthwarp/internal/geom"
	"github.com/dudu/mouthwarp/internal/layout"
)

// MoveThreshold is the displacement in surface pixels below which a vertex
// counts as unmoved
const MoveThreshold = 0.5

// Stats counts what happened to each triangle during a render
type Stats struct {
	Drawn      int
	Unmoved    int
	Degenerate int
	Skipped    int // outside the clip region
}

// Total returns the number of triangles visited
func (s Stats) Total() int {
	return s.Drawn + s.Unmoved + s.Degenerate + s.Skipped
}

// Renderer draws warped frames into a reusable scratch buffer.
// A Renderer is not safe for concurrent use.
type Renderer struct {
	Interpolator draw.Interpolator

	buf    *image.RGBA
	mask   *image.Alpha
	raster vector.Rasterizer
}

// NewRenderer creates a renderer using bilinear resampling
func NewRenderer() *Renderer {
	return &Renderer{Interpolator: draw.BiLinear}
}

// Moved reports whether any vertex of tri moves more than MoveThreshold
func Moved(f *deform.Field, tri geom.Triangle) bool {
	for _, i := range tri {
		if f.Displacement(i).Len() > MoveThreshold {
			return true
		}
	}
	return false
}

// Render draws frame letterboxed onto a surface-sized buffer, then redraws
// every moved triangle whose target bounds meet clip with its content
// resampled from the source triangle. An empty clip region disables
// clipping. The returned image is owned by the renderer and is overwritten
// by the next call.
func (r *Renderer) Render(frame image.Image, st layout.State, f *deform.Field, tris []geom.Triangle, clip geom.Region) (*image.RGBA, Stats) {
	var stats Stats
	buf := r.base(frame, st)

	toSurface := st.Transform()
	for _, tri := range tris {
		dst := tri.Vertices(f.Target)
		if !clip.Empty() && !geom.RegionOf(dst[:]...).Intersects(clip) {
			stats.Skipped++
			continue
		}
		if !Moved(f, tri) {
			stats.Unmoved++
			continue
		}

		src := tri.Vertices(f.Source)
		var srcImg, dstImg [3]geom.Point
		for k := range src {
			srcImg[k] = st.ToImage(src[k])
			dstImg[k] = st.ToImage(dst[k])
		}

		m, ok := geom.SolveAffine(srcImg, dstImg)
		if !ok {
			stats.Degenerate++
			continue
		}
		if _, ok := m.Invert(); !ok {
			stats.Degenerate++
			continue
		}

		s2d := fromFrame(frame).Then(m).Then(toSurface)
		if r.drawTriangle(buf, frame, s2d, dst) {
			stats.Drawn++
		} else {
			stats.Skipped++
		}
	}

	return buf, stats
}

// base resets the scratch buffer to the letterboxed frame
func (r *Renderer) base(frame image.Image, st layout.State) *image.RGBA {
	bounds := image.Rect(0, 0, st.SurfaceW, st.SurfaceH)
	if r.buf == nil || r.buf.Bounds() != bounds {
		r.buf = image.NewRGBA(bounds)
	}
	Letterbox(r.buf, frame, st, r.Interpolator)
	return r.buf
}

// drawTriangle resamples frame through m into the triangle tri of buf.
// It returns false when the triangle covers no pixel of buf.
func (r *Renderer) drawTriangle(buf *image.RGBA, frame image.Image, m geom.Affine, tri [3]geom.Point) bool {
	bbox := geom.RegionOf(tri[:]...).Rect().Intersect(buf.Bounds())
	if bbox.Empty() {
		return false
	}

	if r.mask == nil || r.mask.Bounds().Dx() < bbox.Dx() || r.mask.Bounds().Dy() < bbox.Dy() {
		r.mask = image.NewAlpha(image.Rect(0, 0, max(bbox.Dx(), 64), max(bbox.Dy(), 64)))
	}
	mask := r.mask.SubImage(image.Rect(0, 0, bbox.Dx(), bbox.Dy())).(*image.Alpha)
	for y := 0; y < bbox.Dy(); y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+bbox.Dx()]
		clear(row)
	}

	ox, oy := float32(bbox.Min.X), float32(bbox.Min.Y)
	r.raster.Reset(bbox.Dx(), bbox.Dy())
	r.raster.MoveTo(float32(tri[0].X)-ox, float32(tri[0].Y)-oy)
	r.raster.LineTo(float32(tri[1].X)-ox, float32(tri[1].Y)-oy)
	r.raster.LineTo(float32(tri[2].X)-ox, float32(tri[2].Y)-oy)
	r.raster.ClosePath()
	r.raster.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	dst := buf.SubImage(bbox).(*image.RGBA)
	Resample(r.Interpolator, dst, m, frame, frame.Bounds(), draw.Src, &draw.Options{
		DstMask:  mask,
		DstMaskP: bbox.Min.Mul(-1),
	})
	return true
}

// Letterbox draws frame onto dst at the position described by st and fills
// the bars black
func Letterbox(dst *image.RGBA, frame image.Image, st layout.State, interp draw.Interpolator) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	m := fromFrame(frame).Then(st.Transform())
	Resample(interp, dst, m, frame, frame.Bounds(), draw.Src, nil)
}

// fromFrame maps frame coordinates to image pixels with the origin at the
// frame's top-left corner
func fromFrame(frame image.Image) geom.Affine {
	o := frame.Bounds().Min
	return geom.Translate(-float64(o.X), -float64(o.Y))
}
