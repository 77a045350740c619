// Package ui shows the live preview.
package ui

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"
)

// Keys the preview reacts to
const (
	KeyQuit   = 'q'
	KeyEscape = 27
	KeyReset  = 'r'
)

// Window manages the preview display
type Window struct {
	window     *gocv.Window
	name       string
	lastFrame  time.Time
	frameCount int
	fps        float64
}

// NewWindow creates a new preview window sized to the output surface
func NewWindow(name string, width, height int) *Window {
	window := gocv.NewWindow(name)
	// Force window to appear on macOS
	window.ResizeWindow(width, height)
	window.MoveWindow(100, 100)
	return &Window{
		window:    window,
		name:      name,
		lastFrame: time.Now(),
	}
}

// Show displays a frame with the status line and FPS counter
func (w *Window) Show(frame image.Image, status string) error {
	w.frameCount++
	now := time.Now()

	elapsed := now.Sub(w.lastFrame)
	if elapsed >= time.Second {
		w.fps = float64(w.frameCount) / elapsed.Seconds()
		w.frameCount = 0
		w.lastFrame = now
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	green := color.RGBA{R: 0, G: 255, B: 0, A: 255}
	gocv.PutText(&mat, fmt.Sprintf("FPS: %.1f", w.fps), image.Pt(10, 30),
		gocv.FontHersheyPlain, 2, green, 2)
	if status != "" {
		gocv.PutText(&mat, status, image.Pt(10, mat.Rows()-15),
			gocv.FontHersheyPlain, 1.5, green, 2)
	}

	w.window.IMShow(mat)
	return nil
}

// WaitKey waits for key press, returns key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// FPS returns current frames per second
func (w *Window) FPS() float64 {
	return w.fps
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}
