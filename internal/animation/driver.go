// Package animation drives how far the mouth is forced open over time.
package animation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fogleman/ease"
)

const (
	// DefaultPeriod is the length of one open and close cycle
	DefaultPeriod = 1500 * time.Millisecond
	// DefaultBaseOpen keeps the mouth slightly open at the bottom of the cycle
	DefaultBaseOpen = 0.2
	// OpenPhase is the fraction of the period spent opening
	OpenPhase = 0.85
)

// Waveform maps progress through a period in [0,1) to an opening in [0,1]
type Waveform func(progress float64) float64

// Snap opens linearly for most of the period and then snaps shut with a
// cubic ease-out
func Snap(progress float64) float64 {
	if progress < OpenPhase {
		return progress / OpenPhase
	}
	closing := (progress - OpenPhase) / (1 - OpenPhase)
	return 1 - ease.OutCubic(closing)
}

// Sine opens and closes smoothly
func Sine(progress float64) float64 {
	return (math.Sin(2*math.Pi*progress) + 1) / 2
}

// WaveformByName returns the named waveform: "snap" or "sine"
func WaveformByName(name string) (Waveform, error) {
	switch strings.ToLower(name) {
	case "", "snap":
		return Snap, nil
	case "sine":
		return Sine, nil
	default:
		return nil, fmt.Errorf("unknown waveform %q", name)
	}
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock
var SystemClock Clock = systemClock{}

// Config configures a Driver
type Config struct {
	Period   time.Duration
	BaseOpen float64
	// MaxScale multiplies the opening; 1 is the default strength
	MaxScale float64
	Waveform Waveform
	Clock    Clock
}

// Driver turns time into an open amount. It holds no state besides the
// time it started at, so it is safe for concurrent use.
type Driver struct {
	period   time.Duration
	baseOpen float64
	maxScale float64
	waveform Waveform
	clock    Clock
	start    time.Time
}

// NewDriver creates a driver whose cycle starts now
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("animation period must be positive, got %v", cfg.Period)
	}
	if cfg.BaseOpen < 0 || cfg.BaseOpen > 1 {
		return nil, fmt.Errorf("base open must be in [0,1], got %v", cfg.BaseOpen)
	}
	if cfg.MaxScale < 0 {
		return nil, fmt.Errorf("max scale must not be negative, got %v", cfg.MaxScale)
	}
	if cfg.Waveform == nil {
		cfg.Waveform = Snap
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}

	return &Driver{
		period:   cfg.Period,
		baseOpen: cfg.BaseOpen,
		maxScale: cfg.MaxScale,
		waveform: cfg.Waveform,
		clock:    cfg.Clock,
		start:    cfg.Clock.Now(),
	}, nil
}

// Period returns the cycle length
func (d *Driver) Period() time.Duration {
	return d.period
}

// Normalized returns the waveform value after elapsed time, wrapping every
// period
func (d *Driver) Normalized(elapsed time.Duration) float64 {
	if elapsed < 0 {
		elapsed = 0
	}
	progress := float64(elapsed%d.period) / float64(d.period)
	return clamp01(d.waveform(progress))
}

// At returns the open amount after elapsed time
func (d *Driver) At(elapsed time.Duration) float64 {
	n := d.Normalized(elapsed)
	return (d.baseOpen + n*(1-d.baseOpen)) * d.maxScale
}

// OpenAmount returns the open amount at now
func (d *Driver) OpenAmount(now time.Time) float64 {
	return d.At(now.Sub(d.start))
}

// Now returns the open amount at the driver clock's current time
func (d *Driver) Now() float64 {
	return d.OpenAmount(d.clock.Now())
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
