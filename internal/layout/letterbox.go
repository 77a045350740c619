// Package layout maps normalized image coordinates onto a drawing surface
// that may have a different size and aspect ratio than the source image.
package layout

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/dudu/mouthwarp/internal/geom"
)

// ErrEmptyImage is returned when the image or surface has a zero dimension
var ErrEmptyImage = errors.New("image and surface must have non-zero size")

// State describes where the source image lands on the drawing surface.
// It is recomputed by the caller whenever the surface changes and passed
// into the engine with every frame.
type State struct {
	ImageW, ImageH     int
	SurfaceW, SurfaceH int

	ScaleX, ScaleY   float64
	OffsetX, OffsetY float64
}

// Fit letterboxes an imageW x imageH image into a surfaceW x surfaceH
// surface, preserving the aspect ratio and centering the result.
func Fit(imageW, imageH, surfaceW, surfaceH int) (State, error) {
	if imageW <= 0 || imageH <= 0 || surfaceW <= 0 || surfaceH <= 0 {
		return State{}, fmt.Errorf("fit %dx%d into %dx%d: %w", imageW, imageH, surfaceW, surfaceH, ErrEmptyImage)
	}

	scale := math.Min(float64(surfaceW)/float64(imageW), float64(surfaceH)/float64(imageH))
	drawW := float64(imageW) * scale
	drawH := float64(imageH) * scale

	return State{
		ImageW:   imageW,
		ImageH:   imageH,
		SurfaceW: surfaceW,
		SurfaceH: surfaceH,
		ScaleX:   scale,
		ScaleY:   scale,
		OffsetX:  (float64(surfaceW) - drawW) / 2,
		OffsetY:  (float64(surfaceH) - drawH) / 2,
	}, nil
}

// Validate checks that the state can map points in both directions
func (s State) Validate() error {
	if s.ImageW <= 0 || s.ImageH <= 0 || s.SurfaceW <= 0 || s.SurfaceH <= 0 {
		return ErrEmptyImage
	}
	if s.ScaleX <= 0 || s.ScaleY <= 0 {
		return fmt.Errorf("invalid layout scale %vx%v", s.ScaleX, s.ScaleY)
	}
	return nil
}

// DrawWidth returns the width of the image on the surface
func (s State) DrawWidth() float64 {
	return float64(s.ImageW) * s.ScaleX
}

// DrawHeight returns the height of the image on the surface
func (s State) DrawHeight() float64 {
	return float64(s.ImageH) * s.ScaleY
}

// DrawRect returns the surface rectangle covered by the image
func (s State) DrawRect() image.Rectangle {
	return image.Rect(
		int(math.Round(s.OffsetX)),
		int(math.Round(s.OffsetY)),
		int(math.Round(s.OffsetX+s.DrawWidth())),
		int(math.Round(s.OffsetY+s.DrawHeight())),
	)
}

// Normalized maps a normalized [0,1] image coordinate to surface pixels
func (s State) Normalized(p geom.Point) geom.Point {
	return geom.Point{
		X: p.X*float64(s.ImageW)*s.ScaleX + s.OffsetX,
		Y: p.Y*float64(s.ImageH)*s.ScaleY + s.OffsetY,
	}
}

// ToSurface maps an image pixel coordinate to surface pixels
func (s State) ToSurface(p geom.Point) geom.Point {
	return s.Transform().Apply(p)
}

// ToImage maps a surface pixel coordinate back to image pixels
func (s State) ToImage(p geom.Point) geom.Point {
	return geom.Point{
		X: (p.X - s.OffsetX) / s.ScaleX,
		Y: (p.Y - s.OffsetY) / s.ScaleY,
	}
}

// Transform returns the image-pixel to surface-pixel transform
func (s State) Transform() geom.Affine {
	return geom.Affine{A: s.ScaleX, C: s.OffsetX, E: s.ScaleY, F: s.OffsetY}
}

// Inverse returns the surface-pixel to image-pixel transform
func (s State) Inverse() geom.Affine {
	return geom.Affine{
		A: 1 / s.ScaleX, C: -s.OffsetX / s.ScaleX,
		E: 1 / s.ScaleY, F: -s.OffsetY / s.ScaleY,
	}
}
