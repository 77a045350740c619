package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// Point represents a 2D point in pixel space
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Mul scales p by k
func (p Point) Mul(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Dot returns the dot product of p and q
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Len returns the euclidean length of p
func (p Point) Len() float64 {
	return math.Hypot(p.X, p.Y)
}

// Dist returns the distance between p and q
func (p Point) Dist(q Point) float64 {
	return p.Sub(q).Len()
}

// Finite reports whether both coordinates are finite numbers
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Orb converts p to an orb.Point
func (p Point) Orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// Ring builds a closed orb.Ring from the given points
func Ring(points []Point) orb.Ring {
	ring := make(orb.Ring, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, p.Orb())
	}
	if len(points) > 0 {
		ring = append(ring, points[0].Orb())
	}
	return ring
}
