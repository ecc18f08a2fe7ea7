package gpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atsuki/internal/gpu"
	"atsuki/internal/gpu/gputest"
)

var clampLinear = gpu.Sampling{Filter: gpu.FilterLinear, Wrap: gpu.WrapClampToEdge}

func TestTextureReleaseOnce(t *testing.T) {
	b := gputest.New()
	tex, err := gpu.NewTexture(b, gpu.TextureSpec{Width: 4, Height: 2, Format: gpu.FormatRGB16F, Sampling: clampLinear})
	require.NoError(t, err)
	assert.NotZero(t, tex.ID())
	assert.Equal(t, gpu.FormatRGB16F, tex.Format())

	tex.Release()
	tex.Release()
	assert.Zero(t, tex.ID())
	assert.Empty(t, b.Errors, "second Release must not reach the backend")
	assert.Zero(t, b.LiveTotal())
}

func TestTextureRequiresSampling(t *testing.T) {
	b := gputest.New()
	_, err := gpu.NewTexture(b, gpu.TextureSpec{Width: 4, Height: 4, Sampling: gpu.Sampling{Filter: gpu.FilterLinear}})
	assert.Error(t, err)
	_, err = gpu.NewTexture(b, gpu.TextureSpec{Width: 0, Height: 4, Sampling: clampLinear})
	assert.Error(t, err)
	assert.Zero(t, b.LiveTotal())
}

func TestTextureUploadSizeMismatch(t *testing.T) {
	b := gputest.New()
	tex, err := gpu.NewTexture(b, gpu.TextureSpec{Width: 2, Height: 2, Format: gpu.FormatRGBA8, Sampling: clampLinear})
	require.NoError(t, err)
	defer tex.Release()

	assert.Error(t, tex.Upload(3, 2, make([]byte, 24)))
	require.NoError(t, tex.Upload(2, 2, []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 255, 255, 255, 255,
	}))
	assert.Equal(t, float32(1), b.Pixels(tex.ID())[0])
}

func TestStackReleasesInReverse(t *testing.T) {
	var order []string
	var s gpu.Stack
	for _, name := range []string{"quad", "pass0", "pass1", "display"} {
		s.Push(releaseFunc(func() { order = append(order, name) }))
	}
	s.Release()
	assert.Equal(t, []string{"display", "pass1", "pass0", "quad"}, order)

	s.Release()
	assert.Len(t, order, 4)
}

type releaseFunc func()

func (f releaseFunc) Release() { f() }
