package landmark

import (
	"fmt"

	"github.com/dudu/mouthwarp/internal/geom"
	"github.com/dudu/mouthwarp/internal/layout"
)

// DefaultBorderPadding is how far the synthetic border points sit outside
// the bounding box of the selected landmarks, in surface pixels
const DefaultBorderPadding = 50

// Border point identities, clockwise from the top-left
const (
	BorderTopLeft     = -1
	BorderTopRight    = -2
	BorderBottomRight = -3
	BorderBottomLeft  = -4
)

// Builder selects the mouth and chin landmarks and maps them to surface
// pixels
type Builder struct {
	Scheme        Scheme
	BorderPadding float64
}

// NewBuilder creates a builder for the given scheme
func NewBuilder(scheme Scheme, borderPadding float64) (*Builder, error) {
	if err := scheme.Validate(); err != nil {
		return nil, err
	}
	if borderPadding <= 0 {
		return nil, fmt.Errorf("border padding must be positive, got %v", borderPadding)
	}
	return &Builder{Scheme: scheme, BorderPadding: borderPadding}, nil
}

// Build maps the scheme's landmarks onto the surface and appends four
// border points around them. Any missing landmark fails the whole build.
func (b *Builder) Build(set Set, st layout.State) (PointSet, error) {
	if len(set) == 0 {
		return nil, ErrNoFace
	}

	indices := b.Scheme.Indices()
	ps := make(PointSet, 0, len(indices)+4)
	bounds := geom.EmptyRegion()

	for _, idx := range indices {
		p, err := b.Locate(set, st, idx)
		if err != nil {
			return nil, err
		}
		ps = append(ps, IndexedPoint{ID: idx, Point: p})
		bounds = bounds.Extend(p)
	}

	corners := bounds.Pad(b.BorderPadding).Corners()
	ids := [4]int{BorderTopLeft, BorderTopRight, BorderBottomRight, BorderBottomLeft}
	for i, c := range corners {
		ps = append(ps, IndexedPoint{ID: ids[i], Point: c})
	}

	return ps, nil
}

// Locate maps a single landmark onto the surface
func (b *Builder) Locate(set Set, st layout.State, idx int) (geom.Point, error) {
	p, err := set.At(idx)
	if err != nil {
		return geom.Point{}, err
	}
	return st.Normalized(p), nil
}

// LocateAll maps a list of landmarks onto the surface
func (b *Builder) LocateAll(set Set, st layout.State, indices []int) ([]geom.Point, error) {
	out := make([]geom.Point, len(indices))
	for i, idx := range indices {
		p, err := b.Locate(set, st, idx)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
