// Package pipeline runs the mouth warp effect on one frame at a time.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/image/draw"

	"github.com/dudu/mouthwarp/internal/animation"
	"github.com/dudu/mouthwarp/internal/composite"
	"github.com/dudu/mouthwarp/internal/deform"
	"github.com/dudu/mouthwarp/internal/geom"
	"github.com/dudu/mouthwarp/internal/landmark"
	"github.com/dudu/mouthwarp/internal/layout"
	"github.com/dudu/mouthwarp/internal/warp"
)

var (
	// ErrNoSurface is returned when a frame has nowhere to draw
	ErrNoSurface = errors.New("no drawing surface")
	// ErrLayoutMismatch is returned when the frame or surface size differs
	// from the layout
	ErrLayoutMismatch = errors.New("frame does not match layout")
)

// Status lines shown alongside the output
const (
	StatusNoFace = "no face detected"
	statusFace   = "face detected, mouth open %.2fx"
)

// Frame is one unit of work
type Frame struct {
	Image     image.Image
	Landmarks landmark.Set
	Layout    layout.State
	// Surface receives the output; it must match Layout's surface size
	Surface *image.RGBA
	// Time drives the animation; zero means the engine clock's now
	Time time.Time
}

// Timing holds performance timing information
type Timing struct {
	Base        time.Duration
	Landmarks   time.Duration
	Deform      time.Duration
	Triangulate time.Duration
	Warp        time.Duration
	Composite   time.Duration
	Total       time.Duration
}

// Result describes a processed frame
type Result struct {
	Status     string
	OpenAmount float64
	Face       bool
	Timing     Timing
	Warp       warp.Stats
	Composite  composite.Stats
	Triangles  int
}

// Engine orchestrates the mouth warp. Apart from scratch buffers that every
// frame overwrites it carries nothing between frames: the same Frame always
// produces the same surface. It is not safe for concurrent use.
type Engine struct {
	config     Config
	log        *slog.Logger
	builder    *landmark.Builder
	generator  *deform.Generator
	renderer   *warp.Renderer
	compositor *composite.Compositor
	driver     *animation.Driver
	sets       deform.Sets
	lastTiming Timing
}

// New creates an engine. A nil logger uses slog.Default, a nil clock the
// wall clock.
func New(config Config, logger *slog.Logger, clock animation.Clock) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	builder, err := landmark.NewBuilder(config.Scheme, config.BorderPadding)
	if err != nil {
		return nil, fmt.Errorf("failed to create point set builder: %w", err)
	}

	generator, err := deform.NewGenerator(config.Deform)
	if err != nil {
		return nil, fmt.Errorf("failed to create deformation generator: %w", err)
	}

	compositor, err := composite.NewCompositor(config.Composite)
	if err != nil {
		return nil, fmt.Errorf("failed to create compositor: %w", err)
	}

	waveform, err := animation.WaveformByName(config.Animation.Waveform)
	if err != nil {
		return nil, err
	}
	driver, err := animation.NewDriver(animation.Config{
		Period:   config.Animation.Period,
		BaseOpen: config.Animation.BaseOpen,
		MaxScale: config.Animation.MaxScale,
		Waveform: waveform,
		Clock:    clock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create animation driver: %w", err)
	}

	return &Engine{
		config:     config,
		log:        logger,
		builder:    builder,
		generator:  generator,
		renderer:   warp.NewRenderer(),
		compositor: compositor,
		driver:     driver,
		sets:       deform.SetsFor(config.Scheme),
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// Driver returns the animation driver
func (e *Engine) Driver() *animation.Driver {
	return e.driver
}

// Process renders one frame onto in.Surface. Without landmarks the surface
// holds the letterboxed frame and Result.Face is false.
func (e *Engine) Process(in Frame) (Result, error) {
	totalStart := time.Now()
	var res Result
	var timing Timing

	if in.Surface == nil {
		return res, ErrNoSurface
	}
	if in.Image == nil {
		return res, fmt.Errorf("frame has no image")
	}
	if err := in.Layout.Validate(); err != nil {
		return res, err
	}
	if b := in.Image.Bounds(); b.Dx() != in.Layout.ImageW || b.Dy() != in.Layout.ImageH {
		return res, fmt.Errorf("%w: image %dx%d, layout %dx%d", ErrLayoutMismatch, b.Dx(), b.Dy(), in.Layout.ImageW, in.Layout.ImageH)
	}
	if b := in.Surface.Bounds(); b.Min != (image.Point{}) || b.Dx() != in.Layout.SurfaceW || b.Dy() != in.Layout.SurfaceH {
		return res, fmt.Errorf("%w: surface %v, layout %dx%d", ErrLayoutMismatch, b, in.Layout.SurfaceW, in.Layout.SurfaceH)
	}

	baseStart := time.Now()
	warp.Letterbox(in.Surface, in.Image, in.Layout, draw.BiLinear)
	timing.Base = time.Since(baseStart)

	if in.Time.IsZero() {
		res.OpenAmount = e.driver.Now()
	} else {
		res.OpenAmount = e.driver.OpenAmount(in.Time)
	}

	landmarks := in.Landmarks
	if len(landmarks) == 0 {
		res.Status = StatusNoFace
		return e.finish(res, timing, totalStart), nil
	}
	res.Face = true
	res.Status = fmt.Sprintf(statusFace, res.OpenAmount)

	lmStart := time.Now()
	ps, err := e.builder.Build(landmarks, in.Layout)
	if err != nil {
		return res, fmt.Errorf("failed to build point set: %w", err)
	}
	mouth, input, err := e.measure(landmarks, in.Layout, res.OpenAmount)
	if err != nil {
		return res, err
	}
	timing.Landmarks = time.Since(lmStart)

	deformStart := time.Now()
	field, err := e.generator.Generate(ps, input)
	if err != nil {
		return res, fmt.Errorf("failed to generate deformation: %w", err)
	}
	mouth.Offset = field.Offset
	timing.Deform = time.Since(deformStart)

	if field.Offset.Len() <= warp.MoveThreshold {
		return e.finish(res, timing, totalStart), nil
	}

	triStart := time.Now()
	tris, err := geom.Triangulate(field.Source)
	timing.Triangulate = time.Since(triStart)
	if err != nil {
		e.log.Debug("skipping warp, mesh is degenerate", "points", field.Len(), "error", err)
		return e.finish(res, timing, totalStart), nil
	}
	res.Triangles = len(tris)

	region := geom.RegionOf(field.Source...).Union(geom.RegionOf(field.Target...))
	mouth.Region = region

	warpStart := time.Now()
	warped, stats := e.renderer.Render(in.Image, in.Layout, field, tris, region)
	res.Warp = stats
	timing.Warp = time.Since(warpStart)
	if stats.Degenerate > 0 {
		e.log.Debug("skipped degenerate triangles", "count", stats.Degenerate, "drawn", stats.Drawn)
	}

	compStart := time.Now()
	cstats, err := e.compositor.Compose(in.Surface, in.Image, in.Layout, warped, mouth)
	if err != nil {
		return res, fmt.Errorf("failed to composite: %w", err)
	}
	res.Composite = cstats
	timing.Composite = time.Since(compStart)

	return e.finish(res, timing, totalStart), nil
}

func (e *Engine) finish(res Result, timing Timing, start time.Time) Result {
	timing.Total = time.Since(start)
	res.Timing = timing
	e.lastTiming = timing
	return res
}

// measure locates the mouth contours and the face axis on the surface
func (e *Engine) measure(set landmark.Set, st layout.State, open float64) (composite.Mouth, deform.Input, error) {
	s := e.config.Scheme
	var mouth composite.Mouth

	lower, err := e.builder.LocateAll(set, st, s.LowerLipOutline())
	if err != nil {
		return mouth, deform.Input{}, err
	}
	upper, err := e.builder.LocateAll(set, st, innerContour(s.InnerLeft, s.InnerUpper, s.InnerRight))
	if err != nil {
		return mouth, deform.Input{}, err
	}
	innerLower, err := e.builder.LocateAll(set, st, innerContour(s.InnerLeft, s.InnerLower, s.InnerRight))
	if err != nil {
		return mouth, deform.Input{}, err
	}
	mouth = composite.Mouth{LowerLip: lower, InnerUpper: upper, InnerLower: innerLower}

	ends, err := e.builder.LocateAll(set, st, []int{s.MouthLeft, s.MouthRight, s.Forehead, s.Chin})
	if err != nil {
		return mouth, deform.Input{}, err
	}

	input := deform.Input{
		OpenAmount: open,
		Axis:       deform.FaceAxis(ends[2], ends[3]),
		FaceWidth:  ends[0].Dist(ends[1]),
		Sets:       e.sets,
	}
	return mouth, input, nil
}

func innerContour(left int, contour []int, right int) []int {
	out := make([]int, 0, len(contour)+2)
	out = append(out, left)
	out = append(out, contour...)
	return append(out, right)
}

// LastTiming returns timing from last Process call
func (e *Engine) LastTiming() Timing {
	return e.lastTiming
}
