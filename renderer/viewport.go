package renderer

import "math"

// Viewport is a pixel rectangle with its origin at the bottom-left corner.
type Viewport struct {
	X, Y, Width, Height int
}

// Letterbox fits an image of the given aspect ratio (width / height) into a
// winW x winH framebuffer without distortion, centred, with equal margins
// on the padded axis.
func Letterbox(winW, winH int, aspect float64) Viewport {
	if winW <= 0 || winH <= 0 || aspect <= 0 || math.IsInf(aspect, 0) || math.IsNaN(aspect) {
		return Viewport{Width: max(winW, 0), Height: max(winH, 0)}
	}
	viewW, viewH := winW, winH
	if float64(winW)/float64(winH) > aspect {
		viewW = int(math.Round(float64(winH) * aspect))
	} else {
		viewH = int(math.Round(float64(winW) / aspect))
	}
	return Viewport{
		X:      (winW - viewW) / 2,
		Y:      (winH - viewH) / 2,
		Width:  viewW,
		Height: viewH,
	}
}

// Aspect returns width / height, or 0 for an empty size.
func Aspect(width, height int) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return float64(width) / float64(height)
}
