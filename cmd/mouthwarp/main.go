package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dudu/mouthwarp/internal/animation"
	"github.com/dudu/mouthwarp/internal/landmark"
	"github.com/dudu/mouthwarp/internal/layout"
	"github.com/dudu/mouthwarp/internal/pipeline"
	"github.com/dudu/mouthwarp/internal/recording"
	"github.com/dudu/mouthwarp/internal/ui"
)

func init() {
	// Lock the main goroutine to the main OS thread.
	// This is required on macOS for OpenCV's highgui (window creation).
	runtime.LockOSThread()
}

type Config struct {
	ConfigFile  string
	Preset      string
	CameraIndex int
	Input       string
	Output      string
	Landmarks   string
	Loop        bool
	Record      string
	MeshModel   string
	DetModel    string
	ORTLibrary  string
	Provider    string
	Width       int
	Height      int
	TargetFPS   int
	Frames      int
	Period      time.Duration
	Scale       float64
	Preview     bool
	Verbose     bool

	set map[string]bool
}

// Live reports whether frames come from a camera
func (c Config) Live() bool {
	return c.Input == ""
}

func main() {
	config := parseFlags()

	level := slog.LevelInfo
	if config.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.ConfigFile, "config", "", "YAML config file")
	flag.StringVar(&config.ConfigFile, "f", "", "YAML config file (shorthand)")
	flag.StringVar(&config.Preset, "preset", "", "Preset when no config file is given: full or classic")
	flag.IntVar(&config.CameraIndex, "camera", 0, "Camera device index")
	flag.IntVar(&config.CameraIndex, "c", 0, "Camera device index (shorthand)")
	flag.StringVar(&config.Input, "input", "", "Image or video to process instead of the camera")
	flag.StringVar(&config.Input, "i", "", "Input image or video (shorthand)")
	flag.StringVar(&config.Output, "output", "", "Write frames to an image (use %d for a sequence) or video file")
	flag.StringVar(&config.Output, "o", "", "Output file (shorthand)")
	flag.StringVar(&config.Landmarks, "landmarks", "", "Play landmarks from a recording instead of running the models")
	flag.StringVar(&config.Landmarks, "l", "", "Landmark recording (shorthand)")
	flag.BoolVar(&config.Loop, "loop", false, "Loop the landmark recording")
	flag.StringVar(&config.Record, "record", "", "Record detected landmarks to a file")
	flag.StringVar(&config.MeshModel, "mesh", "models/face_landmark.onnx", "Face mesh model")
	flag.StringVar(&config.DetModel, "detector", "models/scrfd_10g.onnx", "Face detector model")
	flag.StringVar(&config.ORTLibrary, "ort", "", "ONNX Runtime shared library")
	flag.StringVar(&config.Provider, "provider", "cpu", "Execution provider: cpu or coreml")
	flag.IntVar(&config.Width, "width", 0, "Output width (default: frame width)")
	flag.IntVar(&config.Height, "height", 0, "Output height (default: frame height)")
	flag.IntVar(&config.TargetFPS, "fps", 30, "Target frames per second")
	flag.IntVar(&config.Frames, "frames", 0, "Frames to render from a still image (default: one animation cycle)")
	flag.DurationVar(&config.Period, "period", 0, "Override the animation period")
	flag.Float64Var(&config.Scale, "scale", 0, "Override the maximum open scale")
	flag.BoolVar(&config.Preview, "preview", true, "Show preview window")
	flag.BoolVar(&config.Preview, "p", true, "Show preview window (shorthand)")
	flag.BoolVar(&config.Verbose, "verbose", false, "Debug logging")
	flag.BoolVar(&config.Verbose, "v", false, "Debug logging (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "MouthWarp - Animated mouth opening on live or recorded faces\n\n")
		fmt.Fprintf(os.Stderr, "Usage: mouthwarp [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  mouthwarp\n")
		fmt.Fprintf(os.Stderr, "  mouthwarp --preset classic --record session.jsonl\n")
		fmt.Fprintf(os.Stderr, "  mouthwarp -i face.jpg -o out/frame_%%03d.png\n")
		fmt.Fprintf(os.Stderr, "  mouthwarp -i talk.mp4 -l talk.jsonl -o talk_open.mp4\n")
	}

	flag.Parse()

	config.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		config.set[f.Name] = true
	})
	return config
}

func loadEngineConfig(config Config) (pipeline.Config, error) {
	var cfg pipeline.Config
	var err error
	switch {
	case config.ConfigFile != "":
		cfg, err = pipeline.LoadConfig(config.ConfigFile)
	case config.Preset != "":
		cfg, err = pipeline.Preset(config.Preset)
	default:
		cfg = pipeline.DefaultConfig()
	}
	if err != nil {
		return cfg, err
	}

	if config.set["period"] {
		cfg.Animation.Period = config.Period
	}
	if config.set["scale"] {
		cfg.Animation.MaxScale = config.Scale
	}
	return cfg, cfg.Validate()
}

func run(config Config) error {
	fmt.Println("MouthWarp starting...")

	engineConfig, err := loadEngineConfig(config)
	if err != nil {
		return err
	}

	src, err := openSource(config)
	if err != nil {
		return err
	}
	defer src.Close()

	fps := float64(config.TargetFPS)
	if r, ok := src.(interface{ FPS() float64 }); ok && r.FPS() > 0 && !config.Live() {
		fps = r.FPS()
	}

	// Offline renders step a frame clock so output does not depend on speed
	var clock animation.Clock = animation.SystemClock
	var frameClock *animation.FrameClock
	if !config.Live() {
		frameClock, err = animation.NewFrameClock(time.Unix(0, 0), fps)
		if err != nil {
			return err
		}
		clock = frameClock
	}

	engine, err := pipeline.New(engineConfig, slog.Default(), clock)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	slog.Info("engine ready",
		"preset", engineConfig.Preset,
		"period", engineConfig.Animation.Period,
		"waveform", engineConfig.Animation.Waveform)

	if !config.Live() && !config.set["preview"] && !config.set["p"] {
		config.Preview = false
	}
	if !config.Live() && config.Frames == 0 {
		// one full cycle from a still image
		config.Frames = max(1, int(engineConfig.Animation.Period.Seconds()*fps+0.5))
	}
	if s, ok := src.(interface{ SetRepeat(int) }); ok {
		s.SetRepeat(config.Frames)
	}

	fmt.Println("Loading landmarks...")
	source, err := openLandmarks(config)
	if err != nil {
		return err
	}
	defer source.Close()

	// recordings already hold smoothed landmarks
	marks := source
	var smoothed *pipeline.SmoothedSource
	if config.Landmarks == "" {
		smoothed = pipeline.SmoothSource(source, engineConfig)
		marks = smoothed
	}

	var recorder *recording.Writer
	if config.Record != "" {
		recorder, err = recording.Create(config.Record)
		if err != nil {
			return err
		}
		defer recorder.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var (
		window  *ui.Window
		sink    pipeline.FrameSink
		surface *image.RGBA
		frameNo int
		start   = time.Now()
	)
	defer func() {
		if window != nil {
			window.Close()
		}
		if sink != nil {
			if err := sink.Close(); err != nil {
				slog.Error("failed to close output", "error", err)
			}
		}
	}()

	if config.Live() {
		fmt.Println("\nRunning... Press 'q' to quit, 'r' to reset smoothing")
	}

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		default:
		}

		img, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if config.Live() {
				continue
			}
			return err
		}

		b := img.Bounds()
		w, h := surfaceSize(config, b.Dx(), b.Dy())
		st, err := layout.Fit(b.Dx(), b.Dy(), w, h)
		if err != nil {
			return err
		}
		if surface == nil || surface.Bounds().Dx() != w || surface.Bounds().Dy() != h {
			surface = image.NewRGBA(image.Rect(0, 0, w, h))
		}

		set, err := marks.Detect(img)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
			set = nil
		}
		if recorder != nil {
			ms := time.Since(start).Milliseconds()
			if frameClock != nil {
				ms = frameClock.Now().Sub(time.Unix(0, 0)).Milliseconds()
			}
			if err := recorder.Write(recording.NewEntry(frameNo, ms, set)); err != nil {
				return err
			}
		}

		frame := pipeline.Frame{Image: img, Landmarks: set, Layout: st, Surface: surface}
		if frameClock != nil {
			frame.Time = frameClock.Now()
		}
		res, err := engine.Process(frame)
		if err != nil {
			if errors.Is(err, landmark.ErrMissingLandmark) {
				slog.Debug("landmarks incomplete", "frame", frameNo, "error", err)
			} else {
				fmt.Printf("Warning: %v\n", err)
			}
		}

		if config.Output != "" {
			if sink == nil {
				sink, err = openSink(config.Output, fps, w, h)
				if err != nil {
					return err
				}
			}
			if err := sink.Write(surface); err != nil {
				return err
			}
		}

		printTiming(res)

		if config.Preview {
			if window == nil {
				window = ui.NewWindow("MouthWarp", w, h)
			}
			if err := window.Show(surface, res.Status); err != nil {
				return err
			}
			// WaitKey must be called to process window events on macOS
			switch window.WaitKey(10) {
			case ui.KeyQuit, ui.KeyEscape:
				fmt.Println("\nQuitting...")
				return nil
			case ui.KeyReset:
				if smoothed != nil {
					smoothed.Reset()
				}
			}
		}

		frameNo++
		if frameClock != nil {
			frameClock.Step()
		}
	}

	fmt.Printf("\nDone, %d frames\n", frameNo)
	return nil
}

// surfaceSize returns the output size, filling a missing dimension from
// the frame's aspect ratio
func surfaceSize(config Config, frameW, frameH int) (int, int) {
	w, h := config.Width, config.Height
	switch {
	case w > 0 && h > 0:
	case w > 0:
		h = max(1, w*frameH/frameW)
	case h > 0:
		w = max(1, h*frameW/frameH)
	default:
		w, h = frameW, frameH
	}
	return w, h
}

func printTiming(res pipeline.Result) {
	timing := res.Timing
	if timing.Total <= 0 {
		return
	}
	ms := func(d time.Duration) float64 {
		return float64(d.Microseconds()) / 1000
	}
	fps := float64(time.Second) / float64(timing.Total)
	fmt.Printf("\rL:%5.1fms W:%5.1fms C:%5.1fms T:%5.1fms (%.1f FPS) open %.2f  ",
		ms(timing.Landmarks),
		ms(timing.Warp),
		ms(timing.Composite),
		ms(timing.Total),
		fps,
		res.OpenAmount)
}
