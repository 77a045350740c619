package geom

import (
	"image"
	"math"

	"github.com/paulmach/orb"
)

// Region is an axis-aligned box in pixel space used for clipping passes
type Region struct {
	orb.Bound
}

// EmptyRegion returns a region that contains nothing and grows on Extend
func EmptyRegion() Region {
	return Region{orb.Bound{
		Min: orb.Point{math.Inf(1), math.Inf(1)},
		Max: orb.Point{math.Inf(-1), math.Inf(-1)},
	}}
}

// RegionOf returns the tight bounds of the given points
func RegionOf(points ...Point) Region {
	r := EmptyRegion()
	for _, p := range points {
		r = r.Extend(p)
	}
	return r
}

// Extend grows the region to include p
func (r Region) Extend(p Point) Region {
	return Region{r.Bound.Extend(p.Orb())}
}

// Pad grows the region by d pixels on every side
func (r Region) Pad(d float64) Region {
	if r.Empty() {
		return r
	}
	return Region{r.Bound.Pad(d)}
}

// Union returns the smallest region containing r and o
func (r Region) Union(o Region) Region {
	if r.Empty() {
		return o
	}
	return Region{r.Bound.Union(o.Bound)}
}

// Intersects reports whether r and o overlap or touch
func (r Region) Intersects(o Region) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.Bound.Intersects(o.Bound)
}

// Empty reports whether the region contains no points
func (r Region) Empty() bool {
	return r.Bound.IsEmpty()
}

// MinX returns the left edge
func (r Region) MinX() float64 { return r.Min[0] }

// MaxX returns the right edge
func (r Region) MaxX() float64 { return r.Max[0] }

// MinY returns the top edge (pixel space grows downward)
func (r Region) MinY() float64 { return r.Min[1] }

// MaxY returns the bottom edge
func (r Region) MaxY() float64 { return r.Max[1] }

// Width returns the region width
func (r Region) Width() float64 {
	if r.Empty() {
		return 0
	}
	return r.Max[0] - r.Min[0]
}

// Height returns the region height
func (r Region) Height() float64 {
	if r.Empty() {
		return 0
	}
	return r.Max[1] - r.Min[1]
}

// Corners returns the four corners clockwise from the top-left
func (r Region) Corners() [4]Point {
	return [4]Point{
		{X: r.Min[0], Y: r.Min[1]},
		{X: r.Max[0], Y: r.Min[1]},
		{X: r.Max[0], Y: r.Max[1]},
		{X: r.Min[0], Y: r.Max[1]},
	}
}

// Rect returns the smallest integer rectangle covering the region
func (r Region) Rect() image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(r.Min[0])), int(math.Floor(r.Min[1])),
		int(math.Ceil(r.Max[0])), int(math.Ceil(r.Max[1])),
	)
}
