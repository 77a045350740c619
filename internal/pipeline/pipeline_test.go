package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"
	"time"

	"github.com/dudu/mouthwarp/internal/landmark"
	"github.com/dudu/mouthwarp/internal/landmark/landmarktest"
	"github.com/dudu/mouthwarp/internal/layout"
)

var skin = color.RGBA{200, 150, 120, 255}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newEngine(t *testing.T, cfg Config) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	e, err := New(cfg, nil, clock)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, clock
}

func skinFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(skin), image.Point{}, draw.Src)
	return img
}

func frameFor(t *testing.T, surfaceW, surfaceH int) (Frame, landmarktest.Face) {
	t.Helper()
	face := landmarktest.DefaultFace()
	st, err := layout.Fit(face.ImageW, face.ImageH, surfaceW, surfaceH)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return Frame{
		Image:     skinFrame(face.ImageW, face.ImageH),
		Landmarks: face.Set(landmark.FaceMesh468()),
		Layout:    st,
		Surface:   image.NewRGBA(image.Rect(0, 0, surfaceW, surfaceH)),
	}, face
}

func TestProcessOpensMouth(t *testing.T) {
	e, clock := newEngine(t, DefaultConfig())
	in, face := frameFor(t, 1280, 720)
	in.Time = clock.now.Add(1275 * time.Millisecond)

	res, err := e.Process(in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Face {
		t.Fatal("expected a face")
	}
	if math.Abs(res.OpenAmount-1) > 1e-9 {
		t.Fatalf("open amount = %v, want 1 at the top of the cycle", res.OpenAmount)
	}
	if want := fmt.Sprintf("face detected, mouth open %.2fx", 1.0); res.Status != want {
		t.Fatalf("status = %q, want %q", res.Status, want)
	}
	if res.Triangles == 0 || res.Warp.Drawn == 0 {
		t.Fatalf("expected warped triangles, got %d triangles and %+v", res.Triangles, res.Warp)
	}
	if res.Warp.Total() != res.Triangles {
		t.Fatalf("warp visited %d of %d triangles", res.Warp.Total(), res.Triangles)
	}

	// Lip offset is 0.2 of the 100px mouth, so the cavity spans roughly
	// y=417..443 under the mouth center.
	cx, my := int(face.MouthX), int(face.MouthY)
	got := in.Surface.RGBAAt(cx, my+10)
	if got.R < 70 || got.R > 122 || got.A != 255 {
		t.Fatalf("cavity pixel = %v, want shaded skin", got)
	}
	if res.Composite.CavityColor != skin {
		t.Fatalf("cavity color = %v, want %v", res.Composite.CavityColor, skin)
	}

	// Far from the face nothing changes.
	if got := in.Surface.RGBAAt(50, 50); got != skin {
		t.Fatalf("background pixel = %v, want %v", got, skin)
	}
	if res.Timing.Total <= 0 {
		t.Fatal("expected total timing")
	}
}

func TestProcessLetterboxed(t *testing.T) {
	e, clock := newEngine(t, DefaultConfig())
	in, _ := frameFor(t, 640, 640)
	in.Time = clock.now.Add(1275 * time.Millisecond)

	res, err := e.Process(in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Warp.Drawn == 0 {
		t.Fatalf("expected warped triangles, got %+v", res.Warp)
	}
	if got := in.Surface.RGBAAt(320, 10); got != (color.RGBA{A: 255}) {
		t.Fatalf("bar pixel = %v, want black", got)
	}
	// half scale: mouth center lands at (320, 420/2+140)
	if got := in.Surface.RGBAAt(320, 355); got.R > 122 {
		t.Fatalf("cavity pixel = %v, want shaded", got)
	}
}

func TestProcessNoFace(t *testing.T) {
	e, _ := newEngine(t, DefaultConfig())
	in, _ := frameFor(t, 1280, 720)
	in.Landmarks = nil

	res, err := e.Process(in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Face || res.Status != StatusNoFace {
		t.Fatalf("got face=%v status=%q, want no face", res.Face, res.Status)
	}
	src := in.Image.(*image.RGBA)
	for i := range src.Pix {
		if in.Surface.Pix[i] != src.Pix[i] {
			t.Fatalf("surface differs from the frame at byte %d", i)
		}
	}
}

func TestProcessClosedMouthLeavesFrame(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Animation.MaxScale = 0
	e, _ := newEngine(t, cfg)
	in, _ := frameFor(t, 1280, 720)

	res, err := e.Process(in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Face || res.OpenAmount != 0 || res.Triangles != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := in.Surface.RGBAAt(640, 430); got != skin {
		t.Fatalf("mouth pixel = %v, want untouched %v", got, skin)
	}
}

func TestProcessErrors(t *testing.T) {
	e, _ := newEngine(t, DefaultConfig())

	in, _ := frameFor(t, 1280, 720)
	in.Surface = nil
	if _, err := e.Process(in); !errors.Is(err, ErrNoSurface) {
		t.Fatalf("nil surface: got %v, want ErrNoSurface", err)
	}

	in, _ = frameFor(t, 1280, 720)
	in.Landmarks = in.Landmarks[:100]
	if _, err := e.Process(in); !errors.Is(err, landmark.ErrMissingLandmark) {
		t.Fatalf("short landmarks: got %v, want ErrMissingLandmark", err)
	}

	in, _ = frameFor(t, 1280, 720)
	in.Surface = image.NewRGBA(image.Rect(0, 0, 10, 10))
	if _, err := e.Process(in); !errors.Is(err, ErrLayoutMismatch) {
		t.Fatalf("small surface: got %v, want ErrLayoutMismatch", err)
	}

	in, _ = frameFor(t, 1280, 720)
	in.Image = skinFrame(640, 360)
	if _, err := e.Process(in); !errors.Is(err, ErrLayoutMismatch) {
		t.Fatalf("small image: got %v, want ErrLayoutMismatch", err)
	}
}

func TestProcessIgnoresPreviousFrames(t *testing.T) {
	in, face := frameFor(t, 1280, 720)

	shifted := face
	shifted.MouthX -= 30
	prev, _ := frameFor(t, 1280, 720)
	prev.Landmarks = shifted.Set(landmark.FaceMesh468())

	fresh, clock := newEngine(t, DefaultConfig())
	used, _ := newEngine(t, DefaultConfig())
	at := clock.now.Add(1275 * time.Millisecond)
	prev.Time, in.Time = at, at

	if _, err := used.Process(prev); err != nil {
		t.Fatalf("Process previous frame: %v", err)
	}
	if _, err := used.Process(in); err != nil {
		t.Fatalf("Process after history: %v", err)
	}
	want := image.NewRGBA(in.Surface.Bounds())
	copy(want.Pix, in.Surface.Pix)

	in.Surface = image.NewRGBA(in.Surface.Bounds())
	if _, err := fresh.Process(in); err != nil {
		t.Fatalf("Process fresh: %v", err)
	}
	for i := range want.Pix {
		if in.Surface.Pix[i] != want.Pix[i] {
			t.Fatalf("surfaces differ at byte %d: the engine kept state between frames", i)
		}
	}
}

type fixedSource struct {
	sets []landmark.Set
}

func (s *fixedSource) Detect(image.Image) (landmark.Set, error) {
	set := s.sets[0]
	s.sets = s.sets[1:]
	return set, nil
}

func (s *fixedSource) Close() error { return nil }

func TestSmoothSource(t *testing.T) {
	face := landmarktest.DefaultFace()
	shifted := face
	shifted.MouthX += 6
	a := face.Set(landmark.FaceMesh468())
	b := shifted.Set(landmark.FaceMesh468())

	cfg := DefaultConfig()
	cfg.Smoothing = 0.5
	src := SmoothSource(&fixedSource{sets: []landmark.Set{a, b, b}}, cfg)

	if _, err := src.Detect(nil); err != nil {
		t.Fatalf("Detect: %v", err)
	}
	got, err := src.Detect(nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	i := cfg.Scheme.MouthLeft
	if want := (a[i].X + b[i].X) / 2; math.Abs(got[i].X-want) > 1e-12 {
		t.Fatalf("smoothed x = %v, want %v", got[i].X, want)
	}

	src.Reset()
	got, _ = src.Detect(nil)
	if got[i] != b[i] {
		t.Fatalf("after Reset x = %v, want %v", got[i].X, b[i].X)
	}
}

func TestProcessClassicPreset(t *testing.T) {
	cfg, err := Preset(PresetClassic)
	if err != nil {
		t.Fatalf("Preset: %v", err)
	}
	e, clock := newEngine(t, cfg)
	in, face := frameFor(t, 1280, 720)
	// a quarter period into the sine cycle is fully open
	in.Time = clock.now.Add(750 * time.Millisecond)

	res, err := e.Process(in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.OpenAmount < 0.999 {
		t.Fatalf("open amount = %v, want 1", res.OpenAmount)
	}
	if got := in.Surface.RGBAAt(int(face.MouthX), int(face.MouthY)+8); got != (color.RGBA{A: 255}) {
		t.Fatalf("cavity pixel = %v, want black", got)
	}
}
