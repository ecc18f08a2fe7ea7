package renderer

import (
	"fmt"
	"log/slog"

	"atsuki/internal/gpu"
	"atsuki/shader"
)

// Built-in uniforms every pass and the display stage may declare.
const (
	// SamplerUniform is the sampler2D bound to the stage's input texture.
	SamplerUniform = "image"
	// TexelSizeUniform receives (1/width, 1/height) of the stage's target.
	TexelSizeUniform = "texelSize"
	// InputUnit is the texture unit the input texture is bound to.
	InputUnit = 0
)

var passClear = gpu.Color{A: 1}

// PassSpec describes one render pass.
type PassSpec struct {
	Name          string
	Width, Height int
	VertexPath    string
	FragmentPath  string
	// Sampling applies to the pass's output texture, i.e. to how the next
	// stage reads it. It has no default.
	Sampling gpu.Sampling
	Params   Params
	Watch    shader.WatchMode
}

// RenderPass renders its program into an off-screen texture of a fixed
// size. It owns the texture, the framebuffer and the program.
type RenderPass struct {
	name          string
	b             gpu.Backend
	width, height int
	target        *gpu.Texture
	fbo           *gpu.Framebuffer
	program       *shader.Program
	params        Params
}

// NewRenderPass allocates an RGB16F target of exactly spec.Width x
// spec.Height and builds the pass program. Shader problems are logged, not
// returned; only GPU allocation failures are errors.
func NewRenderPass(b gpu.Backend, spec PassSpec) (*RenderPass, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("pass %q: invalid size %dx%d", spec.Name, spec.Width, spec.Height)
	}
	if err := spec.Sampling.Validate(); err != nil {
		return nil, fmt.Errorf("pass %q: %w", spec.Name, err)
	}

	target, err := gpu.NewTexture(b, gpu.TextureSpec{
		Width:    spec.Width,
		Height:   spec.Height,
		Format:   gpu.FormatRGB16F,
		Sampling: spec.Sampling,
	})
	if err != nil {
		return nil, fmt.Errorf("pass %q: %w", spec.Name, err)
	}
	fbo, err := gpu.NewFramebuffer(b, target)
	if err != nil {
		target.Release()
		return nil, fmt.Errorf("pass %q: %w", spec.Name, err)
	}

	slog.Info("render pass allocated",
		"pass", spec.Name, "size", fmt.Sprintf("%dx%d", spec.Width, spec.Height), "format", target.Format(),
		"filter", spec.Sampling.Filter, "wrap", spec.Sampling.Wrap, "fragment", spec.FragmentPath)

	rp := &RenderPass{
		name:    spec.Name,
		b:       b,
		width:   spec.Width,
		height:  spec.Height,
		target:  target,
		fbo:     fbo,
		program: newProgram(b, spec.VertexPath, spec.FragmentPath, spec.Watch),
		params:  spec.Params,
	}
	rp.checkParams()
	return rp, nil
}

// checkParams reports configured values the live program cannot take.
func (rp *RenderPass) checkParams() {
	for _, name := range rp.params.Mismatched(rp.program) {
		slog.Warn("uniform type mismatch, value skipped", "pass", rp.name, "uniform", name,
			"declared", rp.program.UniformType(name), "value", rp.params[name])
	}
}

func newProgram(b gpu.Backend, vertexPath, fragmentPath string, watch shader.WatchMode) *shader.Program {
	return shader.New(b, vertexPath, fragmentPath,
		shader.WithDetector(shader.NewDetector(watch, fragmentPath)))
}

// Run renders the pass: reload its program if the source changed, clear
// the target, and unless the program is broken, draw geom sampling input.
// params are uploaded after the built-in uniforms so they can override them.
func (rp *RenderPass) Run(input gpu.TextureID, geom *Geometry, params Params) {
	if rp.program.ReloadIfChanged() {
		rp.checkParams()
	}

	rp.b.BindFramebuffer(rp.fbo.ID())
	rp.b.Viewport(0, 0, rp.width, rp.height)
	rp.b.ClearColor(passClear)
	rp.b.Clear()

	if !rp.program.Linked() {
		return
	}
	useWithInput(rp.b, rp.program, input, rp.width, rp.height)
	params.Apply(rp.b, rp.program)
	geom.Draw()
}

// useWithInput makes prog current, binds input to InputUnit and fills the
// built-in uniforms.
func useWithInput(b gpu.Backend, prog *shader.Program, input gpu.TextureID, width, height int) {
	b.UseProgram(prog.Handle())
	b.BindTexture(InputUnit, input)
	if loc := prog.UniformLocation(SamplerUniform); loc >= 0 {
		b.Uniform1i(loc, InputUnit)
	}
	if loc := prog.UniformLocation(TexelSizeUniform); loc >= 0 && width > 0 && height > 0 {
		b.Uniform2f(loc, 1/float32(width), 1/float32(height))
	}
}

func (rp *RenderPass) Name() string { return rp.name }

// Output is the texture the pass renders into.
func (rp *RenderPass) Output() gpu.TextureID { return rp.target.ID() }

func (rp *RenderPass) Size() (int, int) { return rp.width, rp.height }

func (rp *RenderPass) Program() *shader.Program { return rp.program }

// Params returns the parameter set the pass was configured with.
func (rp *RenderPass) Params() Params { return rp.params }

// Release frees the program, the framebuffer and the texture, in that
// order. Further calls are no-ops.
func (rp *RenderPass) Release() {
	if rp == nil {
		return
	}
	rp.program.Release()
	rp.fbo.Release()
	rp.target.Release()
}
