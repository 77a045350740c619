// Package landmarktest builds synthetic face landmark sets for tests.
package landmarktest

import (
	"math"

	"github.com/dudu/mouthwarp/internal/geom"
	"github.com/dudu/mouthwarp/internal/landmark"
)

// MeshSize is the number of landmarks in a face mesh set
const MeshSize = 468

// Face describes a synthetic upright face in image pixels
type Face struct {
	ImageW, ImageH int

	// Center of the mouth and half the distance between the corners
	MouthX, MouthY float64
	HalfWidth      float64
}

// DefaultFace returns a face centered in a 1280x720 image with corners
// 100px apart
func DefaultFace() Face {
	return Face{ImageW: 1280, ImageH: 720, MouthX: 640, MouthY: 420, HalfWidth: 50}
}

// Set builds normalized landmarks for the face using the given scheme
func (f Face) Set(s landmark.Scheme) landmark.Set {
	px := make([]geom.Point, MeshSize)
	filler := geom.Pt(f.MouthX, f.MouthY-200)
	for i := range px {
		px[i] = filler
	}

	w := f.HalfWidth
	cx, my := f.MouthX, f.MouthY

	px[s.MouthLeft] = geom.Pt(cx-w, my)
	px[s.MouthRight] = geom.Pt(cx+w, my)
	px[s.InnerLeft] = geom.Pt(cx-w*0.8, my)
	px[s.InnerRight] = geom.Pt(cx+w*0.8, my)
	px[s.Forehead] = geom.Pt(cx, my-w*4)

	arc(px, s.OuterUpper, cx, my, w, -w*0.24)
	arc(px, s.OuterLower, cx, my, w, w*0.3)
	arc(px, s.InnerUpper, cx, my, w*0.8, -w*0.06)
	arc(px, s.InnerLower, cx, my, w*0.8, w*0.06)

	for k, idx := range s.ChinRegion {
		ring := 1 + float64(k/5)
		angle := math.Pi * (0.15 + 0.7*float64(k%5)/4)
		px[idx] = geom.Pt(
			cx+math.Cos(angle)*w*0.6*ring,
			my+w*0.5+math.Sin(angle)*w*0.4*ring,
		)
	}
	px[s.Chin] = geom.Pt(cx, my+w*2)

	for k, idx := range s.Surround {
		angle := 2 * math.Pi * (float64(k) + 0.5) / float64(len(s.Surround))
		px[idx] = geom.Pt(cx+math.Cos(angle)*w*2.2, my+w*0.2+math.Sin(angle)*w*1.6)
	}

	set := make(landmark.Set, MeshSize)
	for i, p := range px {
		set[i] = geom.Pt(p.X/float64(f.ImageW), p.Y/float64(f.ImageH))
	}
	return set
}

// arc spreads indices evenly between the corners at cx±halfW, bulging by
// depth at the middle
func arc(px []geom.Point, indices []int, cx, y, halfW, depth float64) {
	n := len(indices)
	for k, idx := range indices {
		t := float64(k+1) / float64(n+1)
		px[idx] = geom.Pt(cx-halfW+2*halfW*t, y+depth*math.Sin(math.Pi*t))
	}
}
