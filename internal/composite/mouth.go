package composite

import (
	"fmt"

	"github.com/dudu/mouthwarp/internal/geom"
)

// Mouth is the mouth geometry for one frame in surface pixels. Contours
// are at their undeformed positions.
type Mouth struct {
	// LowerLip is the closed lower lip outline
	LowerLip []geom.Point
	// InnerUpper runs from the left inner corner to the right one and
	// stays fixed while the mouth opens
	InnerUpper []geom.Point
	// InnerLower runs left to right and moves with the lip
	InnerLower []geom.Point

	Offset geom.Point
	// Region bounds the deformed area that the warp result is pasted into
	Region geom.Region
}

// Validate checks that every contour can form a polygon
func (m Mouth) Validate() error {
	if len(m.LowerLip) < 3 {
		return fmt.Errorf("lower lip outline needs at least 3 points, got %d", len(m.LowerLip))
	}
	if len(m.InnerUpper) < 2 || len(m.InnerLower) < 2 {
		return fmt.Errorf("inner lip contours need at least 2 points each")
	}
	return nil
}

// MovedLip returns the lower lip outline displaced by the offset
func (m Mouth) MovedLip() []geom.Point {
	return translate(m.LowerLip, m.Offset)
}

// Cavity returns the opening between the fixed upper inner contour and the
// displaced lower inner contour
func (m Mouth) Cavity() []geom.Point {
	out := make([]geom.Point, 0, len(m.InnerUpper)+len(m.InnerLower))
	out = append(out, m.InnerUpper...)
	for i := len(m.InnerLower) - 1; i >= 0; i-- {
		out = append(out, m.InnerLower[i].Add(m.Offset))
	}
	return out
}

// Center returns the mean of the points
func Center(points []geom.Point) geom.Point {
	var c geom.Point
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = c.Add(p)
	}
	return c.Mul(1 / float64(len(points)))
}

func translate(points []geom.Point, d geom.Point) []geom.Point {
	out := make([]geom.Point, len(points))
	for i, p := range points {
		out[i] = p.Add(d)
	}
	return out
}
