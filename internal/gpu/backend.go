// Package gpu defines the small slice of a graphics API the pass pipeline
// needs, plus owning wrappers that release each GPU object exactly once.
//
// All methods must be called from the goroutine that owns the graphics
// context.
package gpu

import "fmt"

// Raw GPU object names. Zero is never a valid object, except that
// FramebufferID 0 names the default (on-screen) framebuffer.
type (
	TextureID     uint32
	FramebufferID uint32
	ProgramID     uint32
	ShaderID      uint32
	GeometryID    uint32
)

// Screen is the default framebuffer.
const Screen FramebufferID = 0

// Stage is a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Format is the storage format of a texture.
type Format int

const (
	// FormatRGBA8 is 8 bits per channel, used for uploaded input frames.
	FormatRGBA8 Format = iota
	// FormatRGB16F is half-float RGB, used for intermediate pass targets.
	FormatRGB16F
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGB16F:
		return "RGB16F"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Filter selects how a texture is sampled between texels.
type Filter int

const (
	FilterNone Filter = iota
	FilterNearest
	FilterLinear
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterLinear:
		return "linear"
	}
	return "none"
}

// Wrap selects how texture coordinates outside [0, 1] are resolved.
type Wrap int

const (
	WrapNone Wrap = iota
	WrapClampToEdge
	WrapRepeat
	WrapMirroredRepeat
)

func (w Wrap) String() string {
	switch w {
	case WrapClampToEdge:
		return "clamp"
	case WrapRepeat:
		return "repeat"
	case WrapMirroredRepeat:
		return "mirror"
	}
	return "none"
}

// Sampling is the sampling policy baked into a texture when it is created.
type Sampling struct {
	Filter Filter
	Wrap   Wrap
}

// Validate reports whether both halves of the policy were chosen explicitly.
func (s Sampling) Validate() error {
	if s.Filter == FilterNone {
		return fmt.Errorf("sampling: filter not set")
	}
	if s.Wrap == WrapNone {
		return fmt.Errorf("sampling: wrap mode not set")
	}
	return nil
}

// TextureSpec describes a texture allocation. Pixels may be nil to
// allocate storage without initial contents; otherwise it must hold
// Width*Height texels in Format, bottom row first.
type TextureSpec struct {
	Width    int
	Height   int
	Format   Format
	Sampling Sampling
	Pixels   []byte
}

// UniformType is the declared type of an active uniform. Types the
// pipeline never sets, such as matrices or bools, are UniformOther.
type UniformType int

const (
	UniformOther UniformType = iota
	UniformInt
	UniformFloat
	UniformVec2
	UniformVec3
	UniformVec4
	UniformSampler
)

func (t UniformType) String() string {
	switch t {
	case UniformInt:
		return "int"
	case UniformFloat:
		return "float"
	case UniformVec2:
		return "vec2"
	case UniformVec3:
		return "vec3"
	case UniformVec4:
		return "vec4"
	case UniformSampler:
		return "sampler2D"
	}
	return "other"
}

// Color is a linear RGBA clear color.
type Color struct {
	R, G, B, A float32
}

// Backend is the graphics API surface used by the pipeline.
type Backend interface {
	// CompileShader always returns a shader object. ok is false when the
	// compiler rejected src; log then holds its diagnostic.
	CompileShader(stage Stage, src string) (id ShaderID, log string, ok bool)
	DeleteShader(id ShaderID)

	// LinkProgram always returns a program object, even when linking
	// failed (ok == false). Such a program is never drawable.
	LinkProgram(vertex, fragment ShaderID) (id ProgramID, log string, ok bool)
	DeleteProgram(id ProgramID)
	UseProgram(id ProgramID)

	// UniformLocation returns -1 when the program has no such active uniform.
	UniformLocation(p ProgramID, name string) int32
	// ActiveUniforms lists the active uniforms of a linked program.
	ActiveUniforms(p ProgramID) map[string]UniformType
	Uniform1i(loc int32, v int32)
	Uniform1f(loc int32, v float32)
	Uniform2f(loc int32, x, y float32)
	Uniform3f(loc int32, x, y, z float32)
	Uniform4f(loc int32, x, y, z, w float32)

	CreateTexture(spec TextureSpec) (TextureID, error)
	// UpdateTexture replaces the full contents of a texture of the same size.
	UpdateTexture(id TextureID, width, height int, pixels []byte)
	DeleteTexture(id TextureID)
	// BindTexture binds id to the given texture unit.
	BindTexture(unit int, id TextureID)

	// CreateFramebuffer attaches tex as the sole color attachment of a new
	// framebuffer and reports an error if the result is incomplete.
	CreateFramebuffer(tex TextureID) (FramebufferID, error)
	DeleteFramebuffer(id FramebufferID)
	BindFramebuffer(id FramebufferID)

	Viewport(x, y, width, height int)
	ClearColor(c Color)
	Clear()

	// CreateQuad uploads interleaved x, y, u, v vertices drawn as a
	// triangle strip.
	CreateQuad(vertices []float32) (GeometryID, error)
	DeleteQuad(id GeometryID)
	DrawQuad(id GeometryID)
}
