package animation

import (
	"fmt"
	"time"
)

// FrameClock is a Clock that only moves when Step is called, one frame
// interval at a time. Offline renders use it so the animation does not
// depend on how fast frames are processed.
type FrameClock struct {
	now  time.Time
	step time.Duration
}

// NewFrameClock creates a clock at start that advances 1/fps per Step
func NewFrameClock(start time.Time, fps float64) (*FrameClock, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %v", fps)
	}
	return &FrameClock{
		now:  start,
		step: time.Duration(float64(time.Second) / fps),
	}, nil
}

// Now returns the current frame time
func (c *FrameClock) Now() time.Time {
	return c.now
}

// Step advances one frame
func (c *FrameClock) Step() {
	c.now = c.now.Add(c.step)
}

// Interval returns the time between frames
func (c *FrameClock) Interval() time.Duration {
	return c.step
}
