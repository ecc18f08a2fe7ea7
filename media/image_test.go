package media

import (
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// gradient has a distinct red value per column and green value per row.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), A: 255})
		}
	}
	return img
}

func writeFile(t *testing.T, name string, encode func(io.Writer) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, encode(f))
	require.NoError(t, f.Close())
	return path
}

func TestLoadImageFormats(t *testing.T) {
	src := gradient(5, 3)
	tests := []struct {
		name   string
		encode func(io.Writer) error
	}{
		{"in.png", func(w io.Writer) error { return png.Encode(w, src) }},
		{"in.bmp", func(w io.Writer) error { return bmp.Encode(w, src) }},
		{"in.tiff", func(w io.Writer) error { return tiff.Encode(w, src, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := LoadImage(writeFile(t, tt.name, tt.encode))
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 5, 3), img.Rect)
			assert.Equal(t, src.RGBAAt(4, 2), img.RGBAAt(4, 2))
			assert.Equal(t, src.RGBAAt(0, 0), img.RGBAAt(0, 0))
		})
	}
}

func TestLoadImagePaletted(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	pal.SetColorIndex(1, 0, 1)
	path := writeFile(t, "in.gif", func(w io.Writer) error { return gif.Encode(w, pal, nil) })

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(0, 0))
}

func TestLoadImageErrors(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a png"), 0o644))
	_, err = LoadImage(garbage)
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestFlipVertical(t *testing.T) {
	src := gradient(4, 3)
	flipped := FlipVertical(src)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, src.RGBAAt(x, 2-y), flipped.RGBAAt(x, y))
		}
	}
}

func TestStill(t *testing.T) {
	src := gradient(4, 2)
	s := NewStill(src)
	w, h := s.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)

	first, err := s.Next()
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, src.RGBAAt(3, 1), first.RGBAAt(3, 0), "first frame is bottom-up")

	for i := 0; i < 3; i++ {
		next, err := s.Next()
		assert.NoError(t, err)
		assert.Nil(t, next)
	}
	assert.NoError(t, s.Close())
}

func TestIsVideo(t *testing.T) {
	assert.True(t, IsVideo("clip.mp4"))
	assert.True(t, IsVideo("/tmp/Clip.MOV"))
	assert.True(t, IsVideo("a.webm"))
	assert.False(t, IsVideo("photo.png"))
	assert.False(t, IsVideo("noext"))
}

func TestChecker(t *testing.T) {
	light := color.RGBA{255, 255, 255, 255}
	dark := color.RGBA{0, 0, 0, 255}
	img := Checker(16, 8, 4, light, dark)

	assert.Equal(t, image.Rect(0, 0, 16, 8), img.Rect)
	assert.Equal(t, light, img.RGBAAt(0, 0))
	assert.Equal(t, light, img.RGBAAt(1, 1))
	assert.Equal(t, dark, img.RGBAAt(2, 0))
	assert.Equal(t, dark, img.RGBAAt(0, 2))
	assert.Equal(t, light, img.RGBAAt(2, 2))

	tiny := Checker(3, 3, 10, light, dark)
	assert.Equal(t, dark, tiny.RGBAAt(1, 0), "cells are at least one pixel")
}

func TestOpenPattern(t *testing.T) {
	assert.True(t, IsPattern("checker:64x32"))
	assert.False(t, IsPattern("checker.png"))

	s, err := OpenPattern("checker:64x32")
	require.NoError(t, err)
	w, h := s.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)

	for _, bad := range []string{"checker:", "checker:64", "checker:0x10", "checker:axb"} {
		_, err := OpenPattern(bad)
		assert.Error(t, err, bad)
	}
}
