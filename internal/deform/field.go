// Package deform computes where every mesh point moves when the lower lip
// and jaw drop.
package deform

import (
	"errors"
	"fmt"
	"math"

	"github.com/dudu/mouthwarp/internal/geom"
	"github.com/dudu/mouthwarp/internal/landmark"
)

// ErrNegativeOpen is returned for an open amount below zero
var ErrNegativeOpen = errors.New("open amount must not be negative")

// Class says how a point responds to the mouth opening
type Class uint8

const (
	Fixed      Class = iota // does not move
	Lip                     // moves by the full offset
	Chin                    // moves by ChinFraction of the offset
	Influenced              // fades out below the lip
)

func (c Class) String() string {
	switch c {
	case Fixed:
		return "fixed"
	case Lip:
		return "lip"
	case Chin:
		return "chin"
	case Influenced:
		return "influenced"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Params tunes how far each class of point travels
type Params struct {
	// LipFraction of the face width the lower lip moves at full open
	LipFraction float64 `yaml:"lip_fraction"`
	// ChinFraction of the lip offset applied to chin points
	ChinFraction float64 `yaml:"chin_fraction"`
	// InfluenceFraction of the lip offset applied just below the lip,
	// fading to zero at FalloffDistance
	InfluenceFraction float64 `yaml:"influence_fraction"`
	FalloffDistance   float64 `yaml:"falloff_distance"`
}

// DefaultParams returns the standard deformation strengths
func DefaultParams() Params {
	return Params{
		LipFraction:       0.2,
		ChinFraction:      0.6,
		InfluenceFraction: 0.3,
		FalloffDistance:   100,
	}
}

// Validate rejects negative strengths and distances
func (p Params) Validate() error {
	if p.LipFraction < 0 || p.ChinFraction < 0 || p.InfluenceFraction < 0 {
		return fmt.Errorf("deform: fractions must not be negative")
	}
	if p.FalloffDistance < 0 {
		return fmt.Errorf("deform: falloff distance must not be negative, got %v", p.FalloffDistance)
	}
	return nil
}

// Falloff returns the fraction of the lip offset applied to an influenced
// point d pixels below the lip
func (p Params) Falloff(d float64) float64 {
	if p.FalloffDistance <= 0 {
		return 0
	}
	return p.InfluenceFraction * math.Max(0, 1-d/p.FalloffDistance)
}

// Sets holds the landmark identities of each moving class
type Sets struct {
	Lip  map[int]bool
	Chin map[int]bool
}

// SetsFor derives the classification sets from a landmark scheme
func SetsFor(s landmark.Scheme) Sets {
	return Sets{Lip: s.LipSet(), Chin: s.ChinSet()}
}

// Input is the per-frame state the field is generated from
type Input struct {
	OpenAmount float64
	// Axis is the unit forehead to chin direction
	Axis geom.Point
	// FaceWidth is the mouth corner distance in surface pixels
	FaceWidth float64
	Sets      Sets
}

// FaceAxis returns the unit vector from forehead to chin, or straight down
// when the two coincide
func FaceAxis(forehead, chin geom.Point) geom.Point {
	d := chin.Sub(forehead)
	n := d.Len()
	if n < geom.DegenerateEpsilon || math.IsNaN(n) {
		return geom.Pt(0, 1)
	}
	return d.Mul(1 / n)
}

// Field pairs every source point with its deformed target. The slices are
// parallel and share indices with the point set the field was built from.
type Field struct {
	IDs     []int
	Source  []geom.Point
	Target  []geom.Point
	Classes []Class

	// Offset is the full lower lip displacement
	Offset geom.Point
	// LipBottom is the projection of the lowest lip point onto the axis
	LipBottom float64
}

// Len returns the number of points in the field
func (f *Field) Len() int {
	return len(f.IDs)
}

// Displacement returns how far point i moves
func (f *Field) Displacement(i int) geom.Point {
	return f.Target[i].Sub(f.Source[i])
}

// Count returns how many points fall in class c
func (f *Field) Count(c Class) int {
	n := 0
	for _, k := range f.Classes {
		if k == c {
			n++
		}
	}
	return n
}

// Generator classifies and displaces point sets
type Generator struct {
	Params Params
}

// NewGenerator creates a generator with the given parameters
func NewGenerator(p Params) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Generator{Params: p}, nil
}

// Offset returns the lower lip displacement for the given frame input
func (g *Generator) Offset(in Input) geom.Point {
	return in.Axis.Mul(in.FaceWidth * g.Params.LipFraction * in.OpenAmount)
}

// Generate builds the deformation field for ps. Border points never move.
func (g *Generator) Generate(ps landmark.PointSet, in Input) (*Field, error) {
	if in.OpenAmount < 0 || math.IsNaN(in.OpenAmount) {
		return nil, fmt.Errorf("generate field for open amount %v: %w", in.OpenAmount, ErrNegativeOpen)
	}
	if in.Axis == (geom.Point{}) {
		in.Axis = geom.Pt(0, 1)
	}

	n := len(ps)
	f := &Field{
		IDs:     make([]int, n),
		Source:  make([]geom.Point, n),
		Target:  make([]geom.Point, n),
		Classes: make([]Class, n),
		Offset:  g.Offset(in),
	}

	f.LipBottom = math.Inf(-1)
	for _, p := range ps {
		if in.Sets.Lip[p.ID] && !landmark.IsBorder(p.ID) {
			f.LipBottom = math.Max(f.LipBottom, p.Dot(in.Axis))
		}
	}

	for i, p := range ps {
		f.IDs[i] = p.ID
		f.Source[i] = p.Point

		class := g.classify(p, in, f.LipBottom)
		f.Classes[i] = class

		var k float64
		switch class {
		case Lip:
			k = 1
		case Chin:
			k = g.Params.ChinFraction
		case Influenced:
			k = g.Params.Falloff(p.Dot(in.Axis) - f.LipBottom)
		}
		f.Target[i] = p.Add(f.Offset.Mul(k))
	}

	return f, nil
}

// Generate builds a field with the default parameters
func Generate(ps landmark.PointSet, in Input) (*Field, error) {
	g := &Generator{Params: DefaultParams()}
	return g.Generate(ps, in)
}

func (g *Generator) classify(p landmark.IndexedPoint, in Input, lipBottom float64) Class {
	switch {
	case landmark.IsBorder(p.ID):
		return Fixed
	case in.Sets.Lip[p.ID]:
		return Lip
	case in.Sets.Chin[p.ID]:
		return Chin
	}
	if math.IsInf(lipBottom, -1) {
		return Fixed
	}
	d := p.Dot(in.Axis) - lipBottom
	if d > 0 && d < g.Params.FalloffDistance {
		return Influenced
	}
	return Fixed
}
