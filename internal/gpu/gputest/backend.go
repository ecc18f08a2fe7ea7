// Package gputest provides an in-memory gpu.Backend for tests.
//
// Textures are float RGBA images on the CPU. A linked program is executed
// on DrawQuad by sampling the texture bound for its "image" sampler with
// nearest filtering and applying the operation named by a "// fake: <op>"
// line in the fragment source:
//
//	identity  (default) copy the input
//	invert    1 - rgb
//	gain      rgb * uniform gain (1 when unset)
//
// A shader fails to compile when its source is blank or contains "#error".
// Like GL, setting a uniform through a setter of the wrong type records an
// error and leaves the value unchanged.
package gputest

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"atsuki/internal/gpu"
)

// Draw records one DrawQuad that executed.
type Draw struct {
	Framebuffer gpu.FramebufferID
	Program     gpu.ProgramID
	Input       gpu.TextureID
	Viewport    [4]int
}

type texture struct {
	width, height int
	format        gpu.Format
	sampling      gpu.Sampling
	pix           []float32 // RGBA, bottom row first
}

type shader struct {
	stage gpu.Stage
	src   string
	ok    bool
}

type program struct {
	fragment string
	linked   bool
	uniforms map[string]int32
	types    map[int32]gpu.UniformType
	values   map[int32][]float32
}

// Backend is a software gpu.Backend. The zero value is not usable; call New.
type Backend struct {
	next uint32

	textures     map[gpu.TextureID]*texture
	framebuffers map[gpu.FramebufferID]gpu.TextureID
	shaders      map[gpu.ShaderID]*shader
	programs     map[gpu.ProgramID]*program
	quads        map[gpu.GeometryID][]float32

	boundFB  gpu.FramebufferID
	viewport [4]int
	clear    gpu.Color
	current  gpu.ProgramID
	units    map[int]gpu.TextureID

	// Screen holds what the last draw to the default framebuffer produced,
	// Viewport[2] x Viewport[3] texels.
	Screen       []float32
	ScreenSource gpu.TextureID

	Draws    []Draw
	Compiles int
	Links    int
	// Errors collects misuse such as double deletes or draws with no
	// geometry.
	Errors []string
}

var _ gpu.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{
		textures:     make(map[gpu.TextureID]*texture),
		framebuffers: make(map[gpu.FramebufferID]gpu.TextureID),
		shaders:      make(map[gpu.ShaderID]*shader),
		programs:     make(map[gpu.ProgramID]*program),
		quads:        make(map[gpu.GeometryID][]float32),
		units:        make(map[int]gpu.TextureID),
	}
}

func (b *Backend) id() uint32 {
	b.next++
	return b.next
}

func (b *Backend) errorf(format string, args ...any) {
	b.Errors = append(b.Errors, fmt.Sprintf(format, args...))
}

// Live reports how many objects of each kind are currently allocated.
func (b *Backend) Live() (textures, framebuffers, programs, shaders, quads int) {
	return len(b.textures), len(b.framebuffers), len(b.programs), len(b.shaders), len(b.quads)
}

// LiveTotal is the sum of Live.
func (b *Backend) LiveTotal() int {
	t, f, p, s, q := b.Live()
	return t + f + p + s + q
}

// Pixels returns a copy of a texture's RGBA contents.
func (b *Backend) Pixels(id gpu.TextureID) []float32 {
	t, ok := b.textures[id]
	if !ok {
		return nil
	}
	return append([]float32(nil), t.pix...)
}

// TextureSampling returns the sampling policy a texture was created with.
func (b *Backend) TextureSampling(id gpu.TextureID) gpu.Sampling {
	if t, ok := b.textures[id]; ok {
		return t.sampling
	}
	return gpu.Sampling{}
}

// UniformValue returns the last value set for name on program p.
func (b *Backend) UniformValue(p gpu.ProgramID, name string) ([]float32, bool) {
	prog, ok := b.programs[p]
	if !ok {
		return nil, false
	}
	loc, ok := prog.uniforms[name]
	if !ok {
		return nil, false
	}
	v, ok := prog.values[loc]
	return v, ok
}

// ── Shaders ───────────────────────────────────────────────────────────────────

func (b *Backend) CompileShader(stage gpu.Stage, src string) (gpu.ShaderID, string, bool) {
	b.Compiles++
	id := gpu.ShaderID(b.id())
	sh := &shader{stage: stage, src: src, ok: true}
	b.shaders[id] = sh
	switch {
	case strings.TrimSpace(src) == "":
		sh.ok = false
		return id, "0:1(1): error: syntax error, unexpected end of file", false
	case strings.Contains(src, "#error"):
		sh.ok = false
		return id, "0:1(1): error: #error directive", false
	}
	return id, "", true
}

func (b *Backend) DeleteShader(id gpu.ShaderID) {
	if _, ok := b.shaders[id]; !ok {
		b.errorf("DeleteShader(%d): unknown shader", id)
		return
	}
	delete(b.shaders, id)
}

var uniformDecl = regexp.MustCompile(`uniform\s+(\w+)\s+(\w+)\s*;`)

var glslTypes = map[string]gpu.UniformType{
	"int":       gpu.UniformInt,
	"float":     gpu.UniformFloat,
	"vec2":      gpu.UniformVec2,
	"vec3":      gpu.UniformVec3,
	"vec4":      gpu.UniformVec4,
	"sampler2D": gpu.UniformSampler,
}

func (b *Backend) LinkProgram(vertex, fragment gpu.ShaderID) (gpu.ProgramID, string, bool) {
	b.Links++
	id := gpu.ProgramID(b.id())
	prog := &program{
		uniforms: make(map[string]int32),
		types:    make(map[int32]gpu.UniformType),
		values:   make(map[int32][]float32),
	}
	b.programs[id] = prog

	vs, fs := b.shaders[vertex], b.shaders[fragment]
	if vs == nil || fs == nil || !vs.ok || !fs.ok {
		return id, "error: linking with uncompiled/unspecialized shader", false
	}
	prog.linked = true
	prog.fragment = fs.src
	for _, src := range []string{vs.src, fs.src} {
		for _, m := range uniformDecl.FindAllStringSubmatch(src, -1) {
			if _, dup := prog.uniforms[m[2]]; !dup {
				loc := int32(len(prog.uniforms))
				prog.uniforms[m[2]] = loc
				prog.types[loc] = glslTypes[m[1]]
			}
		}
	}
	return id, "", true
}

func (b *Backend) DeleteProgram(id gpu.ProgramID) {
	if _, ok := b.programs[id]; !ok {
		b.errorf("DeleteProgram(%d): unknown program", id)
		return
	}
	delete(b.programs, id)
	if b.current == id {
		b.current = 0
	}
}

func (b *Backend) UseProgram(id gpu.ProgramID) {
	b.current = id
}

func (b *Backend) UniformLocation(p gpu.ProgramID, name string) int32 {
	prog, ok := b.programs[p]
	if !ok || !prog.linked {
		return -1
	}
	if loc, ok := prog.uniforms[name]; ok {
		return loc
	}
	return -1
}

func (b *Backend) ActiveUniforms(p gpu.ProgramID) map[string]gpu.UniformType {
	prog, ok := b.programs[p]
	if !ok || !prog.linked {
		return nil
	}
	out := make(map[string]gpu.UniformType, len(prog.uniforms))
	for name, loc := range prog.uniforms {
		out[name] = prog.types[loc]
	}
	return out
}

func (b *Backend) set(loc int32, setter gpu.UniformType, v ...float32) {
	if loc < 0 {
		return
	}
	prog, ok := b.programs[b.current]
	if !ok || !prog.linked {
		b.errorf("uniform %d set with no usable program", loc)
		return
	}
	declared := prog.types[loc]
	compatible := declared == setter || declared == gpu.UniformOther ||
		(setter == gpu.UniformInt && declared == gpu.UniformSampler)
	if !compatible {
		b.errorf("GL_INVALID_OPERATION: %s setter on %s uniform %d", setter, declared, loc)
		return
	}
	prog.values[loc] = v
}

func (b *Backend) Uniform1i(loc int32, v int32)         { b.set(loc, gpu.UniformInt, float32(v)) }
func (b *Backend) Uniform1f(loc int32, v float32)       { b.set(loc, gpu.UniformFloat, v) }
func (b *Backend) Uniform2f(loc int32, x, y float32)    { b.set(loc, gpu.UniformVec2, x, y) }
func (b *Backend) Uniform3f(loc int32, x, y, z float32) { b.set(loc, gpu.UniformVec3, x, y, z) }
func (b *Backend) Uniform4f(loc int32, x, y, z, w float32) {
	b.set(loc, gpu.UniformVec4, x, y, z, w)
}

// ── Textures ──────────────────────────────────────────────────────────────────

func (b *Backend) CreateTexture(spec gpu.TextureSpec) (gpu.TextureID, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return 0, fmt.Errorf("invalid size %dx%d", spec.Width, spec.Height)
	}
	t := &texture{
		width:    spec.Width,
		height:   spec.Height,
		format:   spec.Format,
		sampling: spec.Sampling,
		pix:      make([]float32, spec.Width*spec.Height*4),
	}
	if spec.Pixels != nil {
		if err := t.upload(spec.Pixels); err != nil {
			return 0, err
		}
	}
	id := gpu.TextureID(b.id())
	b.textures[id] = t
	return id, nil
}

func (t *texture) upload(pixels []byte) error {
	if t.format != gpu.FormatRGBA8 {
		return fmt.Errorf("upload to %s texture", t.format)
	}
	if len(pixels) < len(t.pix) {
		return fmt.Errorf("pixel buffer holds %d bytes, need %d", len(pixels), len(t.pix))
	}
	for i := range t.pix {
		t.pix[i] = float32(pixels[i]) / 255
	}
	return nil
}

func (b *Backend) UpdateTexture(id gpu.TextureID, width, height int, pixels []byte) {
	t, ok := b.textures[id]
	if !ok {
		b.errorf("UpdateTexture(%d): unknown texture", id)
		return
	}
	if width != t.width || height != t.height {
		b.errorf("UpdateTexture(%d): size %dx%d, texture is %dx%d", id, width, height, t.width, t.height)
		return
	}
	if err := t.upload(pixels); err != nil {
		b.errorf("UpdateTexture(%d): %v", id, err)
	}
}

func (b *Backend) DeleteTexture(id gpu.TextureID) {
	if _, ok := b.textures[id]; !ok {
		b.errorf("DeleteTexture(%d): unknown texture", id)
		return
	}
	delete(b.textures, id)
}

func (b *Backend) BindTexture(unit int, id gpu.TextureID) {
	b.units[unit] = id
}

// ── Framebuffers ──────────────────────────────────────────────────────────────

func (b *Backend) CreateFramebuffer(tex gpu.TextureID) (gpu.FramebufferID, error) {
	if _, ok := b.textures[tex]; !ok {
		return 0, fmt.Errorf("framebuffer incomplete: missing attachment %d", tex)
	}
	id := gpu.FramebufferID(b.id())
	b.framebuffers[id] = tex
	return id, nil
}

func (b *Backend) DeleteFramebuffer(id gpu.FramebufferID) {
	if _, ok := b.framebuffers[id]; !ok {
		b.errorf("DeleteFramebuffer(%d): unknown framebuffer", id)
		return
	}
	delete(b.framebuffers, id)
}

func (b *Backend) BindFramebuffer(id gpu.FramebufferID) {
	if id != gpu.Screen {
		if _, ok := b.framebuffers[id]; !ok {
			b.errorf("BindFramebuffer(%d): unknown framebuffer", id)
		}
	}
	b.boundFB = id
}

func (b *Backend) Viewport(x, y, width, height int) {
	b.viewport = [4]int{x, y, width, height}
}

func (b *Backend) ClearColor(c gpu.Color) {
	b.clear = c
}

func (b *Backend) Clear() {
	c := []float32{b.clear.R, b.clear.G, b.clear.B, b.clear.A}
	if b.boundFB == gpu.Screen {
		b.Screen = make([]float32, b.viewport[2]*b.viewport[3]*4)
		for i := range b.Screen {
			b.Screen[i] = c[i%4]
		}
		b.ScreenSource = 0
		return
	}
	t := b.textures[b.framebuffers[b.boundFB]]
	if t == nil {
		return
	}
	for i := range t.pix {
		t.pix[i] = c[i%4]
	}
}

// ── Geometry ──────────────────────────────────────────────────────────────────

func (b *Backend) CreateQuad(vertices []float32) (gpu.GeometryID, error) {
	if len(vertices) == 0 || len(vertices)%4 != 0 {
		return 0, fmt.Errorf("quad: %d floats", len(vertices))
	}
	id := gpu.GeometryID(b.id())
	b.quads[id] = append([]float32(nil), vertices...)
	return id, nil
}

func (b *Backend) DeleteQuad(id gpu.GeometryID) {
	if _, ok := b.quads[id]; !ok {
		b.errorf("DeleteQuad(%d): unknown quad", id)
		return
	}
	delete(b.quads, id)
}

func (b *Backend) DrawQuad(id gpu.GeometryID) {
	if _, ok := b.quads[id]; !ok {
		b.errorf("DrawQuad(%d): unknown quad", id)
		return
	}
	prog, ok := b.programs[b.current]
	if !ok || !prog.linked {
		// GL_INVALID_OPERATION: nothing is drawn.
		return
	}

	unit := 0
	if loc, ok := prog.uniforms["image"]; ok {
		if v, ok := prog.values[loc]; ok {
			unit = int(v[0])
		}
	}
	inputID := b.units[unit]
	src := b.textures[inputID]

	b.Draws = append(b.Draws, Draw{
		Framebuffer: b.boundFB,
		Program:     b.current,
		Input:       inputID,
		Viewport:    b.viewport,
	})

	w, h := b.viewport[2], b.viewport[3]
	out := make([]float32, w*h*4)
	op := operation(prog.fragment)
	gain := float32(1)
	if loc, ok := prog.uniforms["gain"]; ok {
		if v, ok := prog.values[loc]; ok {
			gain = v[0]
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var px [4]float32
			if src != nil {
				px = src.sample((float64(x)+0.5)/float64(w), (float64(y)+0.5)/float64(h))
			}
			for c := 0; c < 3; c++ {
				switch op {
				case "invert":
					px[c] = 1 - px[c]
				case "gain":
					px[c] *= gain
				}
			}
			copy(out[(y*w+x)*4:], px[:])
		}
	}

	if b.boundFB == gpu.Screen {
		b.Screen = out
		b.ScreenSource = inputID
		return
	}
	dst := b.textures[b.framebuffers[b.boundFB]]
	if dst == nil {
		return
	}
	vx, vy := b.viewport[0], b.viewport[1]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tx, ty := vx+x, vy+y
			if tx < 0 || ty < 0 || tx >= dst.width || ty >= dst.height {
				continue
			}
			copy(dst.pix[(ty*dst.width+tx)*4:(ty*dst.width+tx)*4+4], out[(y*w+x)*4:])
		}
	}
	if dst.format == gpu.FormatRGB16F {
		for i := 3; i < len(dst.pix); i += 4 {
			dst.pix[i] = 1
		}
	}
}

func (t *texture) sample(u, v float64) [4]float32 {
	x := clamp(int(math.Floor(u*float64(t.width))), t.width)
	y := clamp(int(math.Floor(v*float64(t.height))), t.height)
	var px [4]float32
	copy(px[:], t.pix[(y*t.width+x)*4:])
	return px
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func operation(fragment string) string {
	for _, line := range strings.Split(fragment, "\n") {
		line = strings.TrimSpace(line)
		if op, ok := strings.CutPrefix(line, "// fake:"); ok {
			return strings.TrimSpace(op)
		}
	}
	return "identity"
}
