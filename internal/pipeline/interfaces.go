package pipeline

import (
	"image"

	"github.com/dudu/mouthwarp/internal/landmark"
)

// LandmarkSource produces face landmarks for a frame. An empty set with a
// nil error means no face was found.
type LandmarkSource interface {
	Detect(img image.Image) (landmark.Set, error)
	Close() error
}

// FrameSource yields frames until it returns io.EOF
type FrameSource interface {
	Read() (image.Image, error)
	Close() error
}

// FrameSink consumes composited frames
type FrameSink interface {
	Write(img image.Image) error
	Close() error
}

// SmoothedSource applies temporal smoothing to another landmark source
type SmoothedSource struct {
	LandmarkSource
	smoother *landmark.Smoother
}

// SmoothSource wraps src with the smoothing settings of config
func SmoothSource(src LandmarkSource, config Config) *SmoothedSource {
	return &SmoothedSource{
		LandmarkSource: src,
		smoother:       landmark.NewSmoother(config.Smoothing, config.MaxJump),
	}
}

// Detect returns the smoothed landmarks of img
func (s *SmoothedSource) Detect(img image.Image) (landmark.Set, error) {
	set, err := s.LandmarkSource.Detect(img)
	if err != nil {
		return nil, err
	}
	return s.smoother.Update(set), nil
}

// Reset drops the smoothing history
func (s *SmoothedSource) Reset() {
	s.smoother.Reset()
}
