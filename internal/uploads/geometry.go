package uploads

import (
	"image"
	"math"
)

const (
	initialFraction = 0.9
	aspectTolerance = 0.01
	boundsEpsilon   = 1e-6
)

// Size is a width and height in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is a crop selection in displayed pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// initialSelection centers a selection covering 90% of the displayed width.
// With an aspect ratio the height follows it, and when that overflows 90% of
// the displayed height the height is capped and the width follows instead.
func initialSelection(display Size, aspect float64) Rect {
	w := display.Width * initialFraction
	h := display.Height * initialFraction

	if aspect > 0 {
		h = w / aspect
		if maxH := display.Height * initialFraction; h > maxH {
			h = maxH
			w = h * aspect
		}
	}

	return Rect{
		X:      (display.Width - w) / 2,
		Y:      (display.Height - h) / 2,
		Width:  w,
		Height: h,
	}
}

func (r Rect) scale(sx, sy float64) Rect {
	return Rect{
		X:      r.X * sx,
		Y:      r.Y * sy,
		Width:  r.Width * sx,
		Height: r.Height * sy,
	}
}

func (r Rect) within(bounds Size) bool {
	return r.X >= -boundsEpsilon &&
		r.Y >= -boundsEpsilon &&
		r.Width > 0 &&
		r.Height > 0 &&
		r.X+r.Width <= bounds.Width+boundsEpsilon &&
		r.Y+r.Height <= bounds.Height+boundsEpsilon
}

func (r Rect) matchesAspect(aspect float64) bool {
	if aspect <= 0 {
		return true
	}
	if r.Height <= 0 {
		return false
	}
	return math.Abs(r.Width/r.Height-aspect)/aspect <= aspectTolerance
}

// naturalRegion maps a displayed selection to natural pixels using the
// natural/displayed ratio on each axis, clamped to the natural bounds.
func (r Rect) naturalRegion(natural, display Size) image.Rectangle {
	sx := natural.Width / display.Width
	sy := natural.Height / display.Height
	n := r.scale(sx, sy)

	region := image.Rect(
		int(math.Round(n.X)),
		int(math.Round(n.Y)),
		int(math.Round(n.X+n.Width)),
		int(math.Round(n.Y+n.Height)),
	)
	return region.Intersect(image.Rect(0, 0, int(natural.Width), int(natural.Height)))
}
