package main

import (
	"testing"
	"time"

	"github.com/dudu/mouthwarp/internal/pipeline"
)

func TestSurfaceSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"frame size", 0, 0, 1280, 720},
		{"both", 640, 640, 640, 640},
		{"width only", 640, 0, 640, 360},
		{"height only", 0, 360, 640, 360},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := surfaceSize(Config{Width: tt.width, Height: tt.height}, 1280, 720)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("surfaceSize = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestLoadEngineConfigOverrides(t *testing.T) {
	cfg, err := loadEngineConfig(Config{
		Preset: pipeline.PresetClassic,
		Period: 2 * time.Second,
		Scale:  1.5,
		set:    map[string]bool{"period": true},
	})
	if err != nil {
		t.Fatalf("loadEngineConfig: %v", err)
	}
	if cfg.Preset != pipeline.PresetClassic {
		t.Errorf("preset = %q", cfg.Preset)
	}
	if cfg.Animation.Period != 2*time.Second {
		t.Errorf("period = %v", cfg.Animation.Period)
	}
	if cfg.Animation.MaxScale != 1 {
		t.Errorf("unset scale flag changed max scale to %v", cfg.Animation.MaxScale)
	}

	if _, err := loadEngineConfig(Config{Preset: "loud"}); err == nil {
		t.Error("accepted unknown preset")
	}
	if _, err := loadEngineConfig(Config{Scale: -1, set: map[string]bool{"scale": true}}); err == nil {
		t.Error("accepted negative scale")
	}
}

func TestIsImagePath(t *testing.T) {
	for path, want := range map[string]bool{
		"face.jpg":           true,
		"out/frame_%03d.PNG": true,
		"talk.mp4":           false,
		"noext":              false,
	} {
		if got := isImagePath(path); got != want {
			t.Errorf("isImagePath(%q) = %v, want %v", path, got, want)
		}
	}
}
