package media

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// PatternPrefix marks an input that names a generated test pattern
// instead of a file, e.g. "checker:640x360".
const PatternPrefix = "checker:"

var (
	checkerLight = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	checkerDark  = color.RGBA{R: 25, G: 25, B: 25, A: 255}
)

// Checker draws a w x h checkerboard with cells squares along the shorter
// side, starting with c1 in the top-left corner.
func Checker(w, h, cells int, c1, c2 color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	block := max(min(w, h)/max(cells, 1), 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := c2
			if (x/block+y/block)%2 == 0 {
				c = c1
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// IsPattern reports whether input names a generated pattern.
func IsPattern(input string) bool {
	return strings.HasPrefix(input, PatternPrefix)
}

// OpenPattern parses "checker:WxH" into a Still holding an 8-cell
// checkerboard.
func OpenPattern(input string) (*Still, error) {
	size := strings.TrimPrefix(input, PatternPrefix)
	var w, h int
	if _, err := fmt.Sscanf(size, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("pattern %q: want %sWIDTHxHEIGHT", input, PatternPrefix)
	}
	return NewStill(Checker(w, h, 8, checkerLight, checkerDark)), nil
}
