package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dudu/mouthwarp/internal/animation"
	"github.com/dudu/mouthwarp/internal/composite"
	"github.com/dudu/mouthwarp/internal/deform"
	"github.com/dudu/mouthwarp/internal/landmark"
)

// Preset names
const (
	PresetFull    = "full"
	PresetClassic = "classic"
)

// maxConfigSize caps how much of a config file is read
const maxConfigSize = 1 << 20

// AnimationConfig controls the open and close cycle
type AnimationConfig struct {
	Period   time.Duration `yaml:"period"`
	BaseOpen float64       `yaml:"base_open"`
	MaxScale float64       `yaml:"max_scale"`
	Waveform string        `yaml:"waveform"`
}

// Config holds engine configuration
type Config struct {
	Preset string `yaml:"preset"`

	Scheme        landmark.Scheme  `yaml:"scheme"`
	BorderPadding float64          `yaml:"border_padding"`
	Deform        deform.Params    `yaml:"deform"`
	Composite     composite.Config `yaml:"composite"`
	Animation     AnimationConfig  `yaml:"animation"`

	// Smoothing is the landmark EMA weight; 1 disables smoothing. The
	// engine never smooths: callers wrap their landmark source with
	// SmoothSource before Process.
	Smoothing float64 `yaml:"smoothing"`
	MaxJump   float64 `yaml:"max_jump"`
}

// DefaultConfig returns the full preset
func DefaultConfig() Config {
	return Config{
		Preset:        PresetFull,
		Scheme:        landmark.FaceMesh468(),
		BorderPadding: landmark.DefaultBorderPadding,
		Deform:        deform.DefaultParams(),
		Composite:     composite.DefaultConfig(),
		Animation: AnimationConfig{
			Period:   animation.DefaultPeriod,
			BaseOpen: animation.DefaultBaseOpen,
			MaxScale: 1,
			Waveform: "snap",
		},
		Smoothing: landmark.DefaultSmoothing,
		MaxJump:   landmark.DefaultMaxJump,
	}
}

// Preset returns the named configuration. "full" moves the lip, chin and
// the skin below them with a snapping cycle. "classic" only moves the lip
// over a flat black cavity with a slow sine cycle.
func Preset(name string) (Config, error) {
	cfg := DefaultConfig()
	switch name {
	case "", PresetFull:
		return cfg, nil
	case PresetClassic:
		cfg.Preset = PresetClassic
		cfg.Deform = deform.Params{LipFraction: 0.15}
		cfg.Composite.GradientStops = [3]float64{0, 0, 0}
		cfg.Animation.Period = 3 * time.Second
		cfg.Animation.Waveform = "sine"
		return cfg, nil
	default:
		return Config{}, fmt.Errorf("unknown preset %q", name)
	}
}

// LoadConfig reads a YAML config file. Fields the file leaves out keep the
// values of the preset it names.
func LoadConfig(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config: %w", err)
	}
	if info.Size() > maxConfigSize {
		return Config{}, fmt.Errorf("config file %s too large (%d bytes)", path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	slog.Info("loaded config", "path", path, "preset", cfg.Preset)
	return cfg, nil
}

// ParseConfig decodes YAML config data over the preset it names
func ParseConfig(data []byte) (Config, error) {
	var probe struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return Config{}, err
	}

	cfg, err := Preset(probe.Preset)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config
func (c Config) Validate() error {
	if err := c.Scheme.Validate(); err != nil {
		return err
	}
	if c.BorderPadding <= 0 {
		return fmt.Errorf("border padding must be positive, got %v", c.BorderPadding)
	}
	if err := c.Deform.Validate(); err != nil {
		return err
	}
	if err := c.Composite.Validate(); err != nil {
		return err
	}
	if c.Animation.Period <= 0 {
		return fmt.Errorf("animation period must be positive, got %v", c.Animation.Period)
	}
	if c.Animation.BaseOpen < 0 || c.Animation.BaseOpen > 1 {
		return fmt.Errorf("base open must be in [0,1], got %v", c.Animation.BaseOpen)
	}
	if c.Animation.MaxScale < 0 {
		return fmt.Errorf("max scale must not be negative, got %v", c.Animation.MaxScale)
	}
	if _, err := animation.WaveformByName(c.Animation.Waveform); err != nil {
		return err
	}
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		return fmt.Errorf("smoothing must be in (0,1], got %v", c.Smoothing)
	}
	return nil
}
