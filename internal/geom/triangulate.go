package geom

import (
	"errors"
	"fmt"

	"github.com/fogleman/delaunay"
)

// ErrTooFewPoints is returned when triangulating fewer than 3 points
var ErrTooFewPoints = errors.New("need at least 3 points to triangulate")

// Triangle holds three indices into the point slice it was built from
type Triangle [3]int

// Vertices looks up the triangle's corners in points
func (t Triangle) Vertices(points []Point) [3]Point {
	return [3]Point{points[t[0]], points[t[1]], points[t[2]]}
}

// Triangulate computes a Delaunay triangulation of points. The returned
// triangles index into points, so any slice aligned with points (for
// example a deformed copy) can reuse the same topology.
func Triangulate(points []Point) ([]Triangle, error) {
	if len(points) < 3 {
		return nil, ErrTooFewPoints
	}

	pts := make([]delaunay.Point, len(points))
	for i, p := range points {
		pts[i] = delaunay.Point{X: p.X, Y: p.Y}
	}

	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil, fmt.Errorf("delaunay triangulation failed: %w", err)
	}

	ts := tri.Triangles
	triangles := make([]Triangle, 0, len(ts)/3)
	for i := 0; i+2 < len(ts); i += 3 {
		triangles = append(triangles, Triangle{ts[i], ts[i+1], ts[i+2]})
	}
	return triangles, nil
}

// TriangleArea returns the signed area of the triangle abc
func TriangleArea(a, b, c Point) float64 {
	return ((b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)) / 2
}
