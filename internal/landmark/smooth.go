package landmark

const (
	// DefaultSmoothing is the EMA weight of the newest landmark set
	DefaultSmoothing = 0.5

	// DefaultMaxJump is the mean per-landmark movement, in normalized
	// units, above which the smoother restarts instead of blending
	DefaultMaxJump = 0.1
)

// Smoother applies exponential moving average smoothing to successive
// landmark sets to reduce detector jitter
type Smoother struct {
	Alpha   float64
	MaxJump float64

	state Set
}

// NewSmoother creates a smoother. alpha=1 disables smoothing.
func NewSmoother(alpha, maxJump float64) *Smoother {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultSmoothing
	}
	if maxJump <= 0 {
		maxJump = DefaultMaxJump
	}
	return &Smoother{Alpha: alpha, MaxJump: maxJump}
}

// Update blends set into the running average and returns the smoothed set.
// An empty set clears the history.
func (s *Smoother) Update(set Set) Set {
	if len(set) == 0 {
		s.state = nil
		return set
	}
	if s.state == nil || len(s.state) != len(set) || s.jump(set) > s.MaxJump {
		s.state = set.Clone()
		return s.state.Clone()
	}

	for i, p := range set {
		if !p.Finite() {
			continue
		}
		prev := s.state[i]
		if !prev.Finite() {
			s.state[i] = p
			continue
		}
		s.state[i] = prev.Add(p.Sub(prev).Mul(s.Alpha))
	}
	return s.state.Clone()
}

// Reset clears the history
func (s *Smoother) Reset() {
	s.state = nil
}

func (s *Smoother) jump(set Set) float64 {
	var total float64
	var n int
	for i, p := range set {
		if !p.Finite() || !s.state[i].Finite() {
			continue
		}
		total += p.Dist(s.state[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
