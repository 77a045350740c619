// Package composite layers the cavity, the warped face and the displaced
// lower lip onto the output surface.
package composite

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/dudu/mouthwarp/internal/geom"
	"github.com/dudu/mouthwarp/internal/layout"
	"github.com/dudu/mouthwarp/internal/warp"
)

// Config tunes the compositor
type Config struct {
	// GradientStops are the cavity brightness at the top, middle and bottom
	// as fractions of the sampled color
	GradientStops [3]float64 `yaml:"gradient_stops"`
	// SampleRadius of the cavity color disc, in surface pixels
	SampleRadius float64 `yaml:"sample_radius"`
	// SampleOffset moves the sample center along the lip offset, as a
	// fraction of it
	SampleOffset float64 `yaml:"sample_offset"`
	// LipPadding grows the source lip box, in image pixels
	LipPadding float64 `yaml:"lip_padding"`
}

// DefaultConfig returns the standard compositor settings
func DefaultConfig() Config {
	return Config{
		GradientStops: [3]float64{0.6, 0.48, 0.36},
		SampleRadius:  15,
		LipPadding:    5,
	}
}

// Validate checks the config
func (c Config) Validate() error {
	for _, s := range c.GradientStops {
		if s < 0 || s > 1 {
			return fmt.Errorf("composite: gradient stop %v outside [0,1]", s)
		}
	}
	if c.SampleRadius <= 0 {
		return fmt.Errorf("composite: sample radius must be positive, got %v", c.SampleRadius)
	}
	if c.LipPadding < 0 {
		return fmt.Errorf("composite: lip padding must not be negative, got %v", c.LipPadding)
	}
	return nil
}

// Stats describes one composite
type Stats struct {
	CavityColor color.RGBA
	Cavity      image.Rectangle // surface pixels
	Region      image.Rectangle // surface pixels
	LipSource   image.Rectangle // frame pixels
}

// Compositor runs the occlusion passes. It keeps scratch buffers between
// frames and is not safe for concurrent use.
type Compositor struct {
	Config       Config
	Interpolator draw.Interpolator

	surface *image.RGBA
	ctx     *gg.Context
	scratch *gg.Context
}

// NewCompositor creates a compositor
func NewCompositor(cfg Config) (*Compositor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Compositor{Config: cfg, Interpolator: draw.BiLinear}, nil
}

// Compose finishes a frame. surface must already hold the letterboxed
// frame and warped the output of the warp renderer for the same layout.
// The passes run in order:
//
//  1. erase the lower lip at its original position
//  2. fill the opened cavity with a shaded gradient
//  3. paste the warp result inside the region, except over the cavity and
//     the displaced lip
//  4. redraw the lower lip from the frame at its displaced position
func (c *Compositor) Compose(surface *image.RGBA, frame image.Image, st layout.State, warped *image.RGBA, m Mouth) (Stats, error) {
	var stats Stats
	if surface.Bounds().Min != (image.Point{}) {
		return stats, fmt.Errorf("surface must start at the origin, got %v", surface.Bounds())
	}
	if warped.Bounds() != surface.Bounds() {
		return stats, fmt.Errorf("warp buffer %v does not match surface %v", warped.Bounds(), surface.Bounds())
	}
	if err := m.Validate(); err != nil {
		return stats, err
	}

	ctx := c.context(surface)

	c.erase(surface, m.LowerLip)

	cavity := m.Cavity()
	stats.CavityColor = c.sampleCavity(frame, st, m, cavity)
	stats.Cavity = c.fillCavity(ctx, cavity, stats.CavityColor)

	stats.Region = c.pasteWarp(ctx, warped, m.Region, m.MovedLip(), cavity)

	stats.LipSource = c.redrawLip(surface, frame, st, m)

	return stats, nil
}

func (c *Compositor) context(surface *image.RGBA) *gg.Context {
	if c.ctx == nil || c.surface != surface {
		c.ctx = gg.NewContextForRGBA(surface)
		c.surface = surface
	}
	c.ctx.ResetClip()
	c.ctx.ClearPath()
	c.ctx.SetFillRuleWinding()
	return c.ctx
}

// mask rasterizes a closed polygon into an alpha mask the size of the
// surface
func (c *Compositor) mask(bounds image.Rectangle, outline []geom.Point) *image.Alpha {
	w, h := bounds.Dx(), bounds.Dy()
	if c.scratch == nil || c.scratch.Width() != w || c.scratch.Height() != h {
		c.scratch = gg.NewContext(w, h)
	}
	s := c.scratch
	s.SetColor(color.Transparent)
	s.Clear()
	s.SetColor(color.White)
	polygon(s, outline)
	s.Fill()
	return s.AsMask()
}

// erase punches the outline out of the surface, scaling every pixel by the
// uncovered fraction
func (c *Compositor) erase(surface *image.RGBA, outline []geom.Point) {
	mask := c.mask(surface.Bounds(), outline)
	b := geom.RegionOf(outline...).Pad(1).Rect().Intersect(surface.Bounds())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			m := mask.AlphaAt(x, y).A
			if m == 0 {
				continue
			}
			i := surface.PixOffset(x, y)
			px := surface.Pix[i : i+4 : i+4]
			keep := 255 - uint32(m)
			for k := range px {
				px[k] = uint8(uint32(px[k]) * keep / 255)
			}
		}
	}
}

func (c *Compositor) sampleCavity(frame image.Image, st layout.State, m Mouth, cavity []geom.Point) color.RGBA {
	center := Center(cavity).Add(m.Offset.Mul(c.Config.SampleOffset))
	p := st.ToImage(center)
	o := frame.Bounds().Min
	p = p.Add(geom.Pt(float64(o.X), float64(o.Y)))
	return Sample(frame, p, c.Config.SampleRadius/st.ScaleX)
}

func (c *Compositor) fillCavity(ctx *gg.Context, cavity []geom.Point, base color.RGBA) image.Rectangle {
	bounds := geom.RegionOf(cavity...)
	stops := c.Config.GradientStops

	if bounds.Height() < 1 {
		ctx.SetColor(Shade(base, stops[1]))
	} else {
		grad := gg.NewLinearGradient(0, bounds.MinY(), 0, bounds.MaxY())
		grad.AddColorStop(0, Shade(base, stops[0]))
		grad.AddColorStop(0.5, Shade(base, stops[1]))
		grad.AddColorStop(1, Shade(base, stops[2]))
		ctx.SetFillStyle(grad)
	}
	polygon(ctx, cavity)
	ctx.Fill()
	return bounds.Rect()
}

func (c *Compositor) pasteWarp(ctx *gg.Context, warped *image.RGBA, region geom.Region, lip, cavity []geom.Point) image.Rectangle {
	rect := region.Rect().Intersect(warped.Bounds())
	if rect.Empty() {
		return rect
	}

	ctx.SetFillRuleEvenOdd()
	ctx.DrawRectangle(float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()))
	polygon(ctx, lip)
	polygon(ctx, cavity)
	ctx.Clip()
	ctx.DrawImage(warped, 0, 0)

	ctx.ResetClip()
	ctx.SetFillRuleWinding()
	return rect
}

func (c *Compositor) redrawLip(surface *image.RGBA, frame image.Image, st layout.State, m Mouth) image.Rectangle {
	src := geom.EmptyRegion()
	for _, p := range m.LowerLip {
		src = src.Extend(st.ToImage(p))
	}
	o := frame.Bounds().Min
	sr := src.Pad(c.Config.LipPadding).Rect().Add(o).Intersect(frame.Bounds())
	if sr.Empty() {
		return sr
	}

	mask := c.mask(surface.Bounds(), m.MovedLip())
	s2d := geom.Translate(-float64(o.X), -float64(o.Y)).
		Then(st.Transform()).
		Then(geom.Translate(m.Offset.X, m.Offset.Y))
	warp.Resample(c.Interpolator, surface, s2d, frame, sr, draw.Over, &draw.Options{DstMask: mask})
	return sr
}

func polygon(dc *gg.Context, points []geom.Point) {
	if len(points) < 3 {
		return
	}
	dc.NewSubPath()
	dc.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
}
