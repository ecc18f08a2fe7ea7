// Package media decodes input files into RGBA frames ready for upload:
// tightly packed, 8 bits per channel, bottom row first.
package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Source is a stream of frames. Next returns a nil image when the frame is
// unchanged since the last call and io.EOF once the stream has ended.
type Source interface {
	Next() (*image.RGBA, error)
	// Size is the frame size in pixels; every frame has the same size.
	Size() (int, int)
	Close() error
}

var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
}

// IsVideo reports whether path names a video container by its extension.
func IsVideo(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// LoadImage decodes a PNG, JPEG, GIF, BMP, TIFF or WebP file into RGBA,
// top row first, with its origin at (0, 0).
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %q: %w", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %w", path, err)
	}
	rgba := clone.AsRGBA(img)
	if rgba.Rect.Dx() == 0 || rgba.Rect.Dy() == 0 {
		return nil, fmt.Errorf("decode image %q: empty %s image", path, format)
	}
	return rgba, nil
}

// FlipVertical returns a copy of img with its rows reversed, turning a
// top-down image into the bottom-up layout textures expect.
func FlipVertical(img image.Image) *image.RGBA {
	return transform.FlipV(img)
}

// Still is a Source holding one image. The first Next returns it; later
// calls report no change.
type Still struct {
	frame *image.RGBA
	sent  bool
}

// NewStill flips img for upload and wraps it.
func NewStill(img image.Image) *Still {
	return &Still{frame: FlipVertical(img)}
}

// OpenImage loads path as a Still.
func OpenImage(path string) (*Still, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return NewStill(img), nil
}

func (s *Still) Next() (*image.RGBA, error) {
	if s.sent {
		return nil, nil
	}
	s.sent = true
	return s.frame, nil
}

func (s *Still) Size() (int, int) {
	return s.frame.Rect.Dx(), s.frame.Rect.Dy()
}

func (s *Still) Close() error { return nil }
