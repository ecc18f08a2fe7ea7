package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"atsuki/internal/gpu"
)

// Surface is the window the loop presents to.
type Surface interface {
	ShouldClose() bool
	PollEvents()
	// FramebufferSize is the drawable size in pixels.
	FramebufferSize() (int, int)
	SwapBuffers()
	// SetStatus shows a short pipeline status, empty when all is well.
	SetStatus(status string)
}

// FrameSource yields input frames already flipped so that row 0 is the
// bottom row. Next returns a nil image when the current frame is unchanged
// and io.EOF when the stream has ended.
type FrameSource interface {
	Next() (*image.RGBA, error)
}

// InputTexture is the RGBA8 texture frames are uploaded into. The driver
// owns it; passes only sample it.
type InputTexture struct {
	tex *gpu.Texture
}

// NewInputTexture allocates a texture sized to img and uploads it.
func NewInputTexture(b gpu.Backend, img *image.RGBA, sampling gpu.Sampling) (*InputTexture, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	tex, err := gpu.NewTexture(b, gpu.TextureSpec{
		Width:    w,
		Height:   h,
		Format:   gpu.FormatRGBA8,
		Sampling: sampling,
		Pixels:   packed(img),
	})
	if err != nil {
		return nil, fmt.Errorf("input texture: %w", err)
	}
	return &InputTexture{tex: tex}, nil
}

// Update replaces the texture contents with img, which must have the same
// size as the first frame.
func (t *InputTexture) Update(img *image.RGBA) error {
	return t.tex.Upload(img.Rect.Dx(), img.Rect.Dy(), packed(img))
}

func (t *InputTexture) ID() gpu.TextureID { return t.tex.ID() }

func (t *InputTexture) Size() (int, int) { return t.tex.Size() }

func (t *InputTexture) Release() {
	if t == nil {
		return
	}
	t.tex.Release()
}

// packed returns img's pixels without row padding.
func packed(img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == w*4 && len(img.Pix) == w*h*4 {
		return img.Pix
	}
	out := make([]byte, 0, w*h*4)
	for y := 0; y < h; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		out = append(out, img.Pix[off:off+w*4]...)
	}
	return out
}

// Run drives the frame loop until the surface asks to close, ctx is
// cancelled or src runs out of frames. input must already hold the first
// frame: each iteration polls events, executes the pipeline on the current
// input, presents it and only then pulls the next frame from src, so the
// last frame of a stream is shown before Run returns.
func Run(ctx context.Context, s Surface, p *Pipeline, src FrameSource, input *InputTexture) error {
	frames := 0
	defer func() { slog.Info("render loop stopped", "frames", frames) }()

	status := ""
	for !s.ShouldClose() {
		if ctx.Err() != nil {
			return nil
		}
		s.PollEvents()

		final := p.Execute(input.ID())
		fbWidth, fbHeight := s.FramebufferSize()
		p.Present(final, fbWidth, fbHeight)
		s.SwapBuffers()
		frames++

		if st := p.Status(); st != status {
			status = st
			s.SetStatus(st)
		}

		img, err := src.Next()
		if errors.Is(err, io.EOF) {
			slog.Info("end of input stream")
			return nil
		}
		if err != nil {
			return fmt.Errorf("next frame: %w", err)
		}
		if img != nil {
			if err := input.Update(img); err != nil {
				return err
			}
		}
	}
	return nil
}
