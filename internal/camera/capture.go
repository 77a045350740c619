// Package camera reads frames from webcams and video files and writes the
// results back out.
package camera

import (
	"fmt"
	"image"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// Capture reads frames from a webcam or a video file
type Capture struct {
	source *gocv.VideoCapture
	frame  gocv.Mat
	name   string
	file   bool
	fps    float64
	width  int
	height int
	mu     sync.Mutex
}

// NewCapture creates a new camera capture from device with default 720p resolution
func NewCapture(deviceID int, targetFPS int) (*Capture, error) {
	return NewCaptureWithResolution(deviceID, targetFPS, 1280, 720)
}

// NewCaptureWithResolution creates a new camera capture with specified resolution
func NewCaptureWithResolution(deviceID int, targetFPS int, width, height int) (*Capture, error) {
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", deviceID, err)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))
	webcam.Set(gocv.VideoCaptureFPS, float64(targetFPS))

	// camera may not support the requested resolution
	return newCapture(webcam, fmt.Sprintf("camera %d", deviceID), false, float64(targetFPS)), nil
}

// OpenFile opens a video file. Read returns io.EOF after the last frame.
func OpenFile(path string) (*Capture, error) {
	video, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !video.IsOpened() {
		video.Close()
		return nil, fmt.Errorf("failed to open video %s", path)
	}
	return newCapture(video, path, true, 0), nil
}

func newCapture(vc *gocv.VideoCapture, name string, file bool, fps float64) *Capture {
	if reported := vc.Get(gocv.VideoCaptureFPS); reported > 0 {
		fps = reported
	}
	return &Capture{
		source: vc,
		frame:  gocv.NewMat(),
		name:   name,
		file:   file,
		fps:    fps,
		width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
	}
}

// Read captures the next frame
func (c *Capture) Read() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source == nil {
		return nil, io.EOF
	}
	if !c.source.Read(&c.frame) || c.frame.Empty() {
		if c.file {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame from %s", c.name)
	}
	img, err := c.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame from %s: %w", c.name, err)
	}
	return img, nil
}

// Width returns frame width
func (c *Capture) Width() int {
	return c.width
}

// Height returns frame height
func (c *Capture) Height() int {
	return c.height
}

// FPS returns the source frame rate, or 0 when unknown
func (c *Capture) FPS() float64 {
	return c.fps
}

// Close releases the device or file
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source == nil {
		return nil
	}
	err := c.source.Close()
	c.source = nil
	if cerr := c.frame.Close(); err == nil {
		err = cerr
	}
	return err
}
