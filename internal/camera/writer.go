package camera

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// DefaultCodec is the fourcc used for video output
const DefaultCodec = "mp4v"

// VideoWriter encodes frames into a video file
type VideoWriter struct {
	writer *gocv.VideoWriter
	path   string
	width  int
	height int
	frames int
}

// NewVideoWriter creates a color video of the given size
func NewVideoWriter(path, codec string, fps float64, width, height int) (*VideoWriter, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("video fps must be positive, got %v", fps)
	}
	if codec == "" {
		codec = DefaultCodec
	}
	w, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create video %s: %w", path, err)
	}
	return &VideoWriter{writer: w, path: path, width: width, height: height}, nil
}

// Write appends one frame, which must match the writer's size
func (v *VideoWriter) Write(img image.Image) error {
	if b := img.Bounds(); b.Dx() != v.width || b.Dy() != v.height {
		return fmt.Errorf("frame %dx%d does not match video %dx%d", b.Dx(), b.Dy(), v.width, v.height)
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()
	if err := v.writer.Write(mat); err != nil {
		return fmt.Errorf("failed to write frame %d to %s: %w", v.frames, v.path, err)
	}
	v.frames++
	return nil
}

// Frames returns how many frames were written
func (v *VideoWriter) Frames() int {
	return v.frames
}

// Close finishes the file
func (v *VideoWriter) Close() error {
	return v.writer.Close()
}

// ImageWriter saves each frame as an image file. A path without a %d verb
// is overwritten by every frame.
type ImageWriter struct {
	pattern string
	frames  int
}

// NewImageWriter creates the output directory and checks the extension
func NewImageWriter(pattern string) (*ImageWriter, error) {
	if _, err := imaging.FormatFromFilename(pattern); err != nil {
		return nil, fmt.Errorf("unsupported image output %s: %w", pattern, err)
	}
	if dir := filepath.Dir(pattern); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return &ImageWriter{pattern: pattern}, nil
}

// Path returns the file name frame n is saved under
func (w *ImageWriter) Path(n int) string {
	if strings.Contains(w.pattern, "%") {
		return fmt.Sprintf(w.pattern, n)
	}
	return w.pattern
}

// Write saves img
func (w *ImageWriter) Write(img image.Image) error {
	path := w.Path(w.frames)
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	w.frames++
	return nil
}

// Close is a no-op
func (w *ImageWriter) Close() error {
	return nil
}

// Still serves a single image as a frame source, repeated Repeat times
type Still struct {
	img    image.Image
	Repeat int
	served int
}

// OpenImage loads an image file, honoring EXIF orientation
func OpenImage(path string) (*Still, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return &Still{img: img, Repeat: 1}, nil
}

// NewStill wraps an in-memory image
func NewStill(img image.Image, repeat int) *Still {
	return &Still{img: img, Repeat: repeat}
}

// Image returns the underlying image
func (s *Still) Image() image.Image {
	return s.img
}

// Read returns the image until it has been served Repeat times
func (s *Still) Read() (image.Image, error) {
	if s.served >= s.Repeat {
		return nil, io.EOF
	}
	s.served++
	return s.img, nil
}

// Close is a no-op
func (s *Still) Close() error {
	return nil
}

// SetRepeat changes how many times the image is served
func (s *Still) SetRepeat(n int) {
	s.Repeat = n
}
