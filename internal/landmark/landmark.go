// Package landmark turns normalized face landmarks into the indexed point
// set the mesh warp runs on.
package landmark

import (
	"errors"
	"fmt"

	"github.com/dudu/mouthwarp/internal/geom"
)

var (
	// ErrNoFace is returned when the landmark set is empty
	ErrNoFace = errors.New("no face landmarks")
	// ErrMissingLandmark is returned when a required index is absent
	ErrMissingLandmark = errors.New("missing landmark")
)

// Set holds one face's landmarks, normalized to [0,1] in image space
type Set []geom.Point

// At returns landmark i, or ErrMissingLandmark when it is out of range or
// not a finite coordinate
func (s Set) At(i int) (geom.Point, error) {
	if i < 0 || i >= len(s) {
		return geom.Point{}, fmt.Errorf("%w: index %d of %d", ErrMissingLandmark, i, len(s))
	}
	p := s[i]
	if !p.Finite() {
		return geom.Point{}, fmt.Errorf("%w: index %d is not finite", ErrMissingLandmark, i)
	}
	return p, nil
}

// Clone returns a copy of s
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// IndexedPoint is a surface-space point tagged with its landmark index.
// Synthetic border points carry negative IDs.
type IndexedPoint struct {
	ID int
	geom.Point
}

// PointSet is an ordered list of indexed points
type PointSet []IndexedPoint

// Points returns the coordinates in order
func (ps PointSet) Points() []geom.Point {
	out := make([]geom.Point, len(ps))
	for i, p := range ps {
		out[i] = p.Point
	}
	return out
}

// IDs returns the identities in order
func (ps PointSet) IDs() []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

// Find returns the point with the given id
func (ps PointSet) Find(id int) (geom.Point, bool) {
	for _, p := range ps {
		if p.ID == id {
			return p.Point, true
		}
	}
	return geom.Point{}, false
}

// IsBorder reports whether id belongs to a synthetic border point
func IsBorder(id int) bool {
	return id < 0
}
