package landmark_test

import (
	"errors"
	"math"
	"testing"

	"github.com/dudu/mouthwarp/internal/geom"
	"github.com/dudu/mouthwarp/internal/landmark"
	"github.com/dudu/mouthwarp/internal/landmark/landmarktest"
	"github.com/dudu/mouthwarp/internal/layout"
)

func newBuilder(t *testing.T) *landmark.Builder {
	t.Helper()
	b, err := landmark.NewBuilder(landmark.FaceMesh468(), landmark.DefaultBorderPadding)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestBuild(t *testing.T) {
	b := newBuilder(t)
	face := landmarktest.DefaultFace()
	st, err := layout.Fit(face.ImageW, face.ImageH, 1280, 720)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	ps, err := b.Build(face.Set(b.Scheme), st)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	indices := b.Scheme.Indices()
	if len(ps) != len(indices)+4 {
		t.Fatalf("expected %d points, got %d", len(indices)+4, len(ps))
	}

	seen := make(map[int]bool)
	for _, p := range ps {
		if seen[p.ID] {
			t.Fatalf("duplicate id %d", p.ID)
		}
		seen[p.ID] = true
	}

	left, ok := ps.Find(b.Scheme.MouthLeft)
	if !ok {
		t.Fatal("mouth corner missing from point set")
	}
	if math.Abs(left.X-590) > 1e-6 || math.Abs(left.Y-420) > 1e-6 {
		t.Fatalf("left corner at %v, want (590,420)", left)
	}

	// Border points enclose every landmark with the configured padding.
	real := geom.RegionOf(ps[:len(indices)].Points()...)
	border := ps[len(indices):]
	want := real.Pad(landmark.DefaultBorderPadding).Corners()
	for i, p := range border {
		if !landmark.IsBorder(p.ID) {
			t.Fatalf("border point %d has id %d", i, p.ID)
		}
		if p.Point != want[i] {
			t.Fatalf("border point %d at %v, want %v", i, p.Point, want[i])
		}
	}
}

func TestBuildLetterboxed(t *testing.T) {
	b := newBuilder(t)
	face := landmarktest.DefaultFace()
	st, err := layout.Fit(face.ImageW, face.ImageH, 640, 640)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	ps, err := b.Build(face.Set(b.Scheme), st)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	right, _ := ps.Find(b.Scheme.MouthRight)
	// scale 0.5, vertical offset (640-360)/2
	want := geom.Pt(690*0.5, 420*0.5+140)
	if math.Abs(right.X-want.X) > 1e-6 || math.Abs(right.Y-want.Y) > 1e-6 {
		t.Fatalf("right corner at %v, want %v", right, want)
	}
}

func TestBuildFailsFast(t *testing.T) {
	b := newBuilder(t)
	st, _ := layout.Fit(1280, 720, 1280, 720)
	full := landmarktest.DefaultFace().Set(b.Scheme)

	if _, err := b.Build(nil, st); !errors.Is(err, landmark.ErrNoFace) {
		t.Fatalf("empty set: got %v, want ErrNoFace", err)
	}

	short := full[:300]
	if _, err := b.Build(short, st); !errors.Is(err, landmark.ErrMissingLandmark) {
		t.Fatalf("short set: got %v, want ErrMissingLandmark", err)
	}

	broken := full.Clone()
	broken[b.Scheme.OuterLower[2]] = geom.Pt(math.NaN(), 0.5)
	if _, err := b.Build(broken, st); !errors.Is(err, landmark.ErrMissingLandmark) {
		t.Fatalf("NaN landmark: got %v, want ErrMissingLandmark", err)
	}
}

func TestNewBuilderValidates(t *testing.T) {
	bad := landmark.FaceMesh468()
	bad.OuterLower = nil
	if _, err := landmark.NewBuilder(bad, 50); err == nil {
		t.Fatal("expected error for scheme without a lower lip")
	}
	if _, err := landmark.NewBuilder(landmark.FaceMesh468(), 0); err == nil {
		t.Fatal("expected error for zero border padding")
	}
}

func TestSchemeSets(t *testing.T) {
	s := landmark.FaceMesh468()

	indices := s.Indices()
	seen := make(map[int]bool)
	for _, i := range indices {
		if seen[i] {
			t.Fatalf("Indices has duplicate %d", i)
		}
		seen[i] = true
	}

	lip := s.LipSet()
	for _, i := range []int{s.MouthLeft, s.MouthRight, s.LowerLipCenter, 17} {
		if !lip[i] {
			t.Errorf("lip set missing %d", i)
		}
	}
	if lip[s.UpperLipCenter] {
		t.Error("upper lip center must not move with the lower lip")
	}
	for i := range s.ChinSet() {
		if lip[i] {
			t.Errorf("chin set overlaps lip set at %d", i)
		}
	}

	outline := s.LowerLipOutline()
	if outline[0] != s.MouthLeft || outline[len(s.OuterLower)+1] != s.MouthRight {
		t.Fatalf("unexpected outline order %v", outline)
	}
}

func TestSmoother(t *testing.T) {
	s := landmark.NewSmoother(0.5, 0.1)

	first := landmark.Set{geom.Pt(0.5, 0.5), geom.Pt(0.6, 0.5)}
	if got := s.Update(first); got[0] != first[0] {
		t.Fatalf("first update should pass through, got %v", got)
	}

	next := landmark.Set{geom.Pt(0.52, 0.5), geom.Pt(0.62, 0.5)}
	got := s.Update(next)
	if math.Abs(got[0].X-0.51) > 1e-9 || math.Abs(got[1].X-0.61) > 1e-9 {
		t.Fatalf("expected halfway blend, got %v", got)
	}

	// A large jump restarts from the new detection.
	far := landmark.Set{geom.Pt(0.1, 0.1), geom.Pt(0.2, 0.1)}
	if got := s.Update(far); got[0] != far[0] {
		t.Fatalf("jump should reset, got %v", got)
	}

	if got := s.Update(nil); len(got) != 0 {
		t.Fatalf("empty update should return empty set, got %v", got)
	}
}
