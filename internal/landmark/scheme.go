package landmark

import (
	"fmt"
)

// Scheme names the landmark indices the effect reads. The default is the
// 468-point face mesh layout; every index list can be overridden from the
// engine config file.
type Scheme struct {
	MouthLeft      int `yaml:"mouth_left"`
	MouthRight     int `yaml:"mouth_right"`
	InnerLeft      int `yaml:"inner_left"`
	InnerRight     int `yaml:"inner_right"`
	UpperLipCenter int `yaml:"upper_lip_center"`
	LowerLipCenter int `yaml:"lower_lip_center"`
	Forehead       int `yaml:"forehead"`
	Chin           int `yaml:"chin"`

	// Contours run from the left corner to the right corner and exclude
	// the corners themselves.
	OuterUpper []int `yaml:"outer_upper"`
	OuterLower []int `yaml:"outer_lower"`
	InnerUpper []int `yaml:"inner_upper"`
	InnerLower []int `yaml:"inner_lower"`

	ChinRegion []int `yaml:"chin_region"`
	Surround   []int `yaml:"surround"`
}

// FaceMesh468 returns the index scheme for the 468-point face mesh topology
func FaceMesh468() Scheme {
	return Scheme{
		MouthLeft:      61,
		MouthRight:     291,
		InnerLeft:      78,
		InnerRight:     308,
		UpperLipCenter: 13,
		LowerLipCenter: 14,
		Forehead:       10,
		Chin:           152,

		OuterUpper: []int{185, 40, 39, 37, 0, 267, 269, 270, 409},
		OuterLower: []int{146, 91, 181, 84, 17, 314, 405, 321, 375},
		InnerUpper: []int{191, 80, 81, 82, 13, 312, 311, 310, 415},
		InnerLower: []int{95, 88, 178, 87, 14, 317, 402, 318, 324},

		ChinRegion: []int{18, 83, 313, 200, 199, 175, 201, 421, 208, 428, 171, 396, 152, 148, 377},
		Surround: []int{
			57, 287, 43, 273, 106, 335, 204, 424, 202, 422, 210, 430,
			169, 394, 135, 364, 136, 365, 150, 379, 149, 378, 176, 400,
			164, 167, 393, 92, 322, 165, 391,
		},
	}
}

// Validate checks that the scheme has every contour the effect needs
func (s Scheme) Validate() error {
	if len(s.OuterLower) == 0 {
		return fmt.Errorf("scheme: outer_lower is empty")
	}
	if len(s.InnerUpper) == 0 || len(s.InnerLower) == 0 {
		return fmt.Errorf("scheme: inner lip contours are empty")
	}
	if s.MouthLeft == s.MouthRight {
		return fmt.Errorf("scheme: mouth corners must differ (both %d)", s.MouthLeft)
	}
	for _, idx := range s.Indices() {
		if idx < 0 {
			return fmt.Errorf("scheme: negative landmark index %d", idx)
		}
	}
	for _, idx := range []int{s.UpperLipCenter, s.Forehead, s.Chin} {
		if idx < 0 {
			return fmt.Errorf("scheme: negative landmark index %d", idx)
		}
	}
	return nil
}

// Indices returns every landmark the point set is built from, deduplicated,
// in first-seen order
func (s Scheme) Indices() []int {
	var out []int
	seen := make(map[int]bool)
	add := func(idx ...int) {
		for _, i := range idx {
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}

	add(s.MouthLeft, s.MouthRight)
	add(s.OuterUpper...)
	add(s.OuterLower...)
	add(s.InnerLeft, s.InnerRight)
	add(s.InnerUpper...)
	add(s.InnerLower...)
	add(s.LowerLipCenter)
	add(s.ChinRegion...)
	add(s.Surround...)
	return out
}

// LipSet returns the indices that move with the lower lip: the corners,
// the outer and inner lower contours and the lower lip center
func (s Scheme) LipSet() map[int]bool {
	set := map[int]bool{
		s.MouthLeft:      true,
		s.MouthRight:     true,
		s.InnerLeft:      true,
		s.InnerRight:     true,
		s.LowerLipCenter: true,
	}
	for _, i := range s.OuterLower {
		set[i] = true
	}
	for _, i := range s.InnerLower {
		set[i] = true
	}
	return set
}

// ChinSet returns the chin region indices that are not part of the lip
func (s Scheme) ChinSet() map[int]bool {
	lip := s.LipSet()
	set := make(map[int]bool, len(s.ChinRegion))
	for _, i := range s.ChinRegion {
		if !lip[i] {
			set[i] = true
		}
	}
	return set
}

// LowerLipOutline returns the closed outline of the lower lip: left corner,
// outer lower contour, right corner, then back along the inner lower contour
func (s Scheme) LowerLipOutline() []int {
	out := make([]int, 0, len(s.OuterLower)+len(s.InnerLower)+4)
	out = append(out, s.MouthLeft)
	out = append(out, s.OuterLower...)
	out = append(out, s.MouthRight, s.InnerRight)
	for i := len(s.InnerLower) - 1; i >= 0; i-- {
		out = append(out, s.InnerLower[i])
	}
	out = append(out, s.InnerLeft)
	return out
}
