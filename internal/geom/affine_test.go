package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-6

func near(a, b Point) bool {
	return math.Abs(a.X-b.X) < tolerance && math.Abs(a.Y-b.Y) < tolerance
}

func TestSolveAffineExactAtVertices(t *testing.T) {
	tests := []struct {
		name string
		src  [3]Point
		dst  [3]Point
	}{
		{
			name: "identity",
			src:  [3]Point{{0, 0}, {1, 0}, {0, 1}},
			dst:  [3]Point{{0, 0}, {1, 0}, {0, 1}},
		},
		{
			name: "translate",
			src:  [3]Point{{10, 10}, {40, 12}, {22, 50}},
			dst:  [3]Point{{10, 30}, {40, 32}, {22, 70}},
		},
		{
			name: "shear and scale",
			src:  [3]Point{{100, 150}, {200, 150}, {150, 170}},
			dst:  [3]Point{{100, 150}, {200, 150}, {150, 190}},
		},
		{
			name: "flip orientation",
			src:  [3]Point{{0, 0}, {5, 1}, {2, 7}},
			dst:  [3]Point{{3, 3}, {-4, 9}, {8, -2}},
		},
		{
			name: "large coordinates",
			src:  [3]Point{{1280.5, 719.25}, {1100, 600}, {1210, 400}},
			dst:  [3]Point{{1281, 740}, {1100.5, 612}, {1210, 400}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := SolveAffine(tt.src, tt.dst)
			if !ok {
				t.Fatalf("SolveAffine reported degenerate for %v", tt.src)
			}
			for i := range tt.src {
				got := m.Apply(tt.src[i])
				if !near(got, tt.dst[i]) {
					t.Errorf("vertex %d: got %v, want %v", i, got, tt.dst[i])
				}
			}
		})
	}
}

func TestSolveAffineMatchesLinearSolve(t *testing.T) {
	src := [3]Point{{12, 7}, {55, 19}, {31, 64}}
	dst := [3]Point{{14, 9}, {50, 30}, {37, 71}}

	// Solve the 6x6 system independently.
	a := mat.NewDense(6, 6, nil)
	b := mat.NewVecDense(6, nil)
	for i, p := range src {
		a.Set(i*2, 0, p.X)
		a.Set(i*2, 1, p.Y)
		a.Set(i*2, 2, 1)
		a.Set(i*2+1, 3, p.X)
		a.Set(i*2+1, 4, p.Y)
		a.Set(i*2+1, 5, 1)
		b.SetVec(i*2, dst[i].X)
		b.SetVec(i*2+1, dst[i].Y)
	}
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		t.Fatalf("SolveVec: %v", err)
	}

	m, ok := SolveAffine(src, dst)
	if !ok {
		t.Fatal("SolveAffine reported degenerate")
	}
	got := []float64{m.A, m.B, m.C, m.D, m.E, m.F}
	for i, v := range got {
		if math.Abs(v-x.AtVec(i)) > tolerance {
			t.Errorf("coefficient %d: got %v, want %v", i, v, x.AtVec(i))
		}
	}
}

func TestSolveAffineDegenerate(t *testing.T) {
	targets := [][3]Point{
		{{0, 0}, {1, 0}, {0, 1}},
		{{5, 5}, {9, 1}, {3, 8}},
		{{0, 0}, {0, 0}, {0, 0}},
	}
	collinear := [][3]Point{
		{{0, 0}, {1, 0}, {2, 0}},
		{{1, 1}, {2, 2}, {3, 3}},
		{{4, 4}, {4, 4}, {10, 2}},
	}
	for _, src := range collinear {
		for _, dst := range targets {
			if _, ok := SolveAffine(src, dst); ok {
				t.Errorf("SolveAffine(%v, %v) should be degenerate", src, dst)
			}
		}
	}
}

func TestAffineThenAndInvert(t *testing.T) {
	m := Affine{A: 1.5, B: 0.2, C: 10, D: -0.3, E: 0.9, F: -4}
	n := Translate(3, 7).Then(Scale(2, 2))

	p := Pt(12, -5)
	want := n.Apply(m.Apply(p))
	if got := m.Then(n).Apply(p); !near(got, want) {
		t.Fatalf("Then: got %v, want %v", got, want)
	}

	inv, ok := m.Invert()
	if !ok {
		t.Fatal("Invert reported singular")
	}
	if got := inv.Apply(m.Apply(p)); !near(got, p) {
		t.Fatalf("Invert round trip: got %v, want %v", got, p)
	}

	if _, ok := (Affine{A: 1, B: 2, D: 2, E: 4}).Invert(); ok {
		t.Fatal("expected singular transform")
	}
}

func TestAff3Layout(t *testing.T) {
	m := Affine{A: 1, B: 2, C: 3, D: 4, E: 5, F: 6}
	a := m.Aff3()
	for i, want := range []float64{1, 2, 3, 4, 5, 6} {
		if a[i] != want {
			t.Fatalf("Aff3[%d] = %v, want %v", i, a[i], want)
		}
	}
}
