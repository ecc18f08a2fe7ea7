// Package opengl implements gpu.Backend on an OpenGL 4.1 core context.
package opengl

import (
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"atsuki/internal/gpu"
)

// quad holds the buffer objects behind one gpu.GeometryID (the VAO name).
type quad struct {
	vao         uint32
	vbo         uint32
	vertexCount int32
}

// Backend issues OpenGL calls. It carries no state of its own beyond the
// vertex buffers behind each quad.
type Backend struct {
	quads map[gpu.GeometryID]*quad
}

var _ gpu.Backend = (*Backend)(nil)

// NewBackend loads the OpenGL function pointers.
// Must be called after the GLFW window context is made current.
func NewBackend() (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	slog.Info("OpenGL ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))

	gl.Disable(gl.DEPTH_TEST)
	return &Backend{quads: make(map[gpu.GeometryID]*quad)}, nil
}

// ── Shaders ───────────────────────────────────────────────────────────────────

func (b *Backend) CompileShader(stage gpu.Stage, src string) (gpu.ShaderID, string, bool) {
	kind := uint32(gl.VERTEX_SHADER)
	if stage == gpu.StageFragment {
		kind = gl.FRAGMENT_SHADER
	}
	shader := gl.CreateShader(kind)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		return gpu.ShaderID(shader), infoLog(logLen, func(buf *uint8) {
			gl.GetShaderInfoLog(shader, logLen, nil, buf)
		}), false
	}
	return gpu.ShaderID(shader), "", true
}

func (b *Backend) DeleteShader(id gpu.ShaderID) {
	gl.DeleteShader(uint32(id))
}

func (b *Backend) LinkProgram(vertex, fragment gpu.ShaderID) (gpu.ProgramID, string, bool) {
	prog := gl.CreateProgram()
	gl.AttachShader(prog, uint32(vertex))
	gl.AttachShader(prog, uint32(fragment))
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		return gpu.ProgramID(prog), infoLog(logLen, func(buf *uint8) {
			gl.GetProgramInfoLog(prog, logLen, nil, buf)
		}), false
	}
	return gpu.ProgramID(prog), "", true
}

// infoLog reads a driver log of logLen bytes (including the terminator).
func infoLog(logLen int32, read func(buf *uint8)) string {
	if logLen <= 0 {
		return "(no log)"
	}
	log := strings.Repeat("\x00", int(logLen+1))
	read(gl.Str(log))
	return strings.TrimRight(log, "\x00\n")
}

func (b *Backend) DeleteProgram(id gpu.ProgramID) {
	gl.DeleteProgram(uint32(id))
}

func (b *Backend) UseProgram(id gpu.ProgramID) {
	gl.UseProgram(uint32(id))
}

func (b *Backend) UniformLocation(p gpu.ProgramID, name string) int32 {
	return gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
}

func (b *Backend) ActiveUniforms(p gpu.ProgramID) map[string]gpu.UniformType {
	var count, maxLen int32
	gl.GetProgramiv(uint32(p), gl.ACTIVE_UNIFORMS, &count)
	gl.GetProgramiv(uint32(p), gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLen)
	out := make(map[string]gpu.UniformType, count)
	if count == 0 || maxLen == 0 {
		return out
	}
	buf := make([]uint8, maxLen)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveUniform(uint32(p), uint32(i), maxLen, &length, &size, &xtype, &buf[0])
		out[string(buf[:length])] = uniformType(xtype)
	}
	return out
}

func uniformType(xtype uint32) gpu.UniformType {
	switch xtype {
	case gl.INT:
		return gpu.UniformInt
	case gl.FLOAT:
		return gpu.UniformFloat
	case gl.FLOAT_VEC2:
		return gpu.UniformVec2
	case gl.FLOAT_VEC3:
		return gpu.UniformVec3
	case gl.FLOAT_VEC4:
		return gpu.UniformVec4
	case gl.SAMPLER_2D:
		return gpu.UniformSampler
	}
	return gpu.UniformOther
}

func (b *Backend) Uniform1i(loc int32, v int32)            { gl.Uniform1i(loc, v) }
func (b *Backend) Uniform1f(loc int32, v float32)          { gl.Uniform1f(loc, v) }
func (b *Backend) Uniform2f(loc int32, x, y float32)       { gl.Uniform2f(loc, x, y) }
func (b *Backend) Uniform3f(loc int32, x, y, z float32)    { gl.Uniform3f(loc, x, y, z) }
func (b *Backend) Uniform4f(loc int32, x, y, z, w float32) { gl.Uniform4f(loc, x, y, z, w) }

// ── Textures ──────────────────────────────────────────────────────────────────

// formats maps gpu.Format to internal format, pixel format and pixel type.
func formats(f gpu.Format) (internal int32, format, xtype uint32) {
	switch f {
	case gpu.FormatRGB16F:
		return gl.RGB16F, gl.RGB, gl.FLOAT
	default:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
	}
}

func glFilter(f gpu.Filter) int32 {
	if f == gpu.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func glWrap(w gpu.Wrap) int32 {
	switch w {
	case gpu.WrapRepeat:
		return gl.REPEAT
	case gpu.WrapMirroredRepeat:
		return gl.MIRRORED_REPEAT
	}
	return gl.CLAMP_TO_EDGE
}

func (b *Backend) CreateTexture(spec gpu.TextureSpec) (gpu.TextureID, error) {
	internal, format, xtype := formats(spec.Format)
	if spec.Pixels != nil && spec.Format == gpu.FormatRGBA8 && len(spec.Pixels) < spec.Width*spec.Height*4 {
		return 0, fmt.Errorf("pixel buffer holds %d bytes, need %d", len(spec.Pixels), spec.Width*spec.Height*4)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	var data unsafe.Pointer
	if len(spec.Pixels) > 0 {
		data = gl.Ptr(spec.Pixels)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal,
		int32(spec.Width), int32(spec.Height), 0, format, xtype, data)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(spec.Sampling.Filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(spec.Sampling.Filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(spec.Sampling.Wrap))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(spec.Sampling.Wrap))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		gl.DeleteTextures(1, &id)
		return 0, fmt.Errorf("glTexImage2D: error 0x%X", e)
	}
	return gpu.TextureID(id), nil
}

func (b *Backend) UpdateTexture(id gpu.TextureID, width, height int, pixels []byte) {
	if len(pixels) == 0 {
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height),
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (b *Backend) DeleteTexture(id gpu.TextureID) {
	tex := uint32(id)
	gl.DeleteTextures(1, &tex)
}

func (b *Backend) BindTexture(unit int, id gpu.TextureID) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
}

// ── Framebuffers ──────────────────────────────────────────────────────────────

func (b *Backend) CreateFramebuffer(tex gpu.TextureID) (gpu.FramebufferID, error) {
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0,
		gl.TEXTURE_2D, uint32(tex), 0)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fbo)
		return 0, fmt.Errorf("framebuffer incomplete: status=0x%X", status)
	}
	return gpu.FramebufferID(fbo), nil
}

func (b *Backend) DeleteFramebuffer(id gpu.FramebufferID) {
	fbo := uint32(id)
	gl.DeleteFramebuffers(1, &fbo)
}

func (b *Backend) BindFramebuffer(id gpu.FramebufferID) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(id))
}

func (b *Backend) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (b *Backend) ClearColor(c gpu.Color) {
	gl.ClearColor(c.R, c.G, c.B, c.A)
}

func (b *Backend) Clear() {
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// ── Geometry ──────────────────────────────────────────────────────────────────

const floatsPerVertex = 4 // x, y, u, v

func (b *Backend) CreateQuad(vertices []float32) (gpu.GeometryID, error) {
	if len(vertices) == 0 || len(vertices)%floatsPerVertex != 0 {
		return 0, fmt.Errorf("quad: %d floats is not a whole number of x,y,u,v vertices", len(vertices))
	}
	q := &quad{vertexCount: int32(len(vertices) / floatsPerVertex)}

	gl.GenVertexArrays(1, &q.vao)
	gl.GenBuffers(1, &q.vbo)
	gl.BindVertexArray(q.vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, q.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	stride := int32(floatsPerVertex * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, stride, gl.PtrOffset(2*4))

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	id := gpu.GeometryID(q.vao)
	b.quads[id] = q
	return id, nil
}

func (b *Backend) DeleteQuad(id gpu.GeometryID) {
	q, ok := b.quads[id]
	if !ok {
		return
	}
	gl.DeleteBuffers(1, &q.vbo)
	gl.DeleteVertexArrays(1, &q.vao)
	delete(b.quads, id)
}

func (b *Backend) DrawQuad(id gpu.GeometryID) {
	q, ok := b.quads[id]
	if !ok {
		return
	}
	gl.BindVertexArray(q.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, q.vertexCount)
	gl.BindVertexArray(0)
}
