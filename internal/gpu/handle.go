package gpu

import "fmt"

// noCopy marks owning types so `go vet` flags accidental copies, which
// would duplicate the underlying GPU name.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Texture owns one GPU texture.
type Texture struct {
	_ noCopy

	b      Backend
	id     TextureID
	width  int
	height int
	format Format
}

// NewTexture allocates a texture described by spec.
func NewTexture(b Backend, spec TextureSpec) (*Texture, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("texture: invalid size %dx%d", spec.Width, spec.Height)
	}
	if err := spec.Sampling.Validate(); err != nil {
		return nil, fmt.Errorf("texture: %w", err)
	}
	id, err := b.CreateTexture(spec)
	if err != nil {
		return nil, fmt.Errorf("texture %dx%d %s: %w", spec.Width, spec.Height, spec.Format, err)
	}
	return &Texture{b: b, id: id, width: spec.Width, height: spec.Height, format: spec.Format}, nil
}

// ID returns the live texture name, or 0 after Release.
func (t *Texture) ID() TextureID { return t.id }

func (t *Texture) Size() (int, int) { return t.width, t.height }

func (t *Texture) Format() Format { return t.format }

// Upload replaces the texture contents. The size must match.
func (t *Texture) Upload(width, height int, pixels []byte) error {
	if t.id == 0 {
		return fmt.Errorf("texture: upload after release")
	}
	if width != t.width || height != t.height {
		return fmt.Errorf("texture: upload size %dx%d does not match %dx%d", width, height, t.width, t.height)
	}
	t.b.UpdateTexture(t.id, width, height, pixels)
	return nil
}

// Release deletes the texture. Further calls are no-ops.
func (t *Texture) Release() {
	if t == nil || t.id == 0 {
		return
	}
	t.b.DeleteTexture(t.id)
	t.id = 0
}

// Framebuffer owns one off-screen framebuffer.
type Framebuffer struct {
	_ noCopy

	b  Backend
	id FramebufferID
}

// NewFramebuffer creates a framebuffer whose only color attachment is tex.
func NewFramebuffer(b Backend, tex *Texture) (*Framebuffer, error) {
	id, err := b.CreateFramebuffer(tex.ID())
	if err != nil {
		return nil, err
	}
	return &Framebuffer{b: b, id: id}, nil
}

func (f *Framebuffer) ID() FramebufferID { return f.id }

// Release deletes the framebuffer. Further calls are no-ops.
func (f *Framebuffer) Release() {
	if f == nil || f.id == 0 {
		return
	}
	f.b.DeleteFramebuffer(f.id)
	f.id = 0
}

// Releaser is anything owning GPU state.
type Releaser interface {
	Release()
}

// Stack releases what was pushed onto it in reverse order. It is used on
// setup paths so a failure half way through frees exactly what exists.
type Stack struct {
	items []Releaser
}

func (s *Stack) Push(r Releaser) { s.items = append(s.items, r) }

// Release pops and releases every item, last pushed first.
func (s *Stack) Release() {
	for i := len(s.items) - 1; i >= 0; i-- {
		s.items[i].Release()
	}
	s.items = nil
}
