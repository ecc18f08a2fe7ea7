package renderer

import (
	"fmt"
	"log/slog"
	"strings"

	"atsuki/internal/gpu"
	"atsuki/shader"
)

// PipelineSpec lists the passes in execution order plus the display stage
// that presents the last pass output to the window.
type PipelineSpec struct {
	Passes      []PassSpec
	VertexPath  string
	DisplayPath string
	Watch       shader.WatchMode
	// ClearColor fills the screen outside the letterboxed viewport.
	ClearColor gpu.Color
	// Aspect is the width/height ratio the display viewport is fitted to,
	// normally the source image's.
	Aspect float64
}

// Pipeline runs its passes in order, each reading the previous pass output,
// and presents the result. It owns the passes, the display program and the
// quad they share.
type Pipeline struct {
	b       gpu.Backend
	quad    *Geometry
	passes  []*RenderPass
	display *shader.Program
	clear   gpu.Color
	aspect  float64

	resources gpu.Stack
}

// NewPipeline allocates every pass. If any allocation fails, everything
// created so far is released before the error is returned.
func NewPipeline(b gpu.Backend, spec PipelineSpec) (*Pipeline, error) {
	p := &Pipeline{
		b:      b,
		clear:  spec.ClearColor,
		aspect: spec.Aspect,
	}

	quad, err := NewFullscreenQuad(b)
	if err != nil {
		return nil, err
	}
	p.quad = quad
	p.resources.Push(quad)

	for i, ps := range spec.Passes {
		if ps.VertexPath == "" {
			ps.VertexPath = spec.VertexPath
		}
		if ps.Watch == "" {
			ps.Watch = spec.Watch
		}
		if ps.Name == "" {
			ps.Name = fmt.Sprintf("pass%d", i)
		}
		rp, err := NewRenderPass(b, ps)
		if err != nil {
			p.resources.Release()
			return nil, err
		}
		p.passes = append(p.passes, rp)
		p.resources.Push(rp)
	}

	p.display = newProgram(b, spec.VertexPath, spec.DisplayPath, spec.Watch)
	p.resources.Push(p.display)

	slog.Info("pipeline ready", "passes", len(p.passes), "display", spec.DisplayPath)
	return p, nil
}

// Passes returns the passes in execution order.
func (p *Pipeline) Passes() []*RenderPass { return p.passes }

// Pass looks a pass up by name.
func (p *Pipeline) Pass(name string) (*RenderPass, bool) {
	for _, rp := range p.passes {
		if rp.Name() == name {
			return rp, true
		}
	}
	return nil, false
}

// Display is the program used to present the final texture.
func (p *Pipeline) Display() *shader.Program { return p.display }

// Status names the stages whose program is not drawable, e.g.
// "shader error: edges, display". It is empty when every stage linked.
func (p *Pipeline) Status() string {
	var broken []string
	for _, rp := range p.passes {
		if !rp.Program().Linked() {
			broken = append(broken, rp.Name())
		}
	}
	if !p.display.Linked() {
		broken = append(broken, "display")
	}
	if len(broken) == 0 {
		return ""
	}
	return "shader error: " + strings.Join(broken, ", ")
}

// Execute runs every pass on input and returns the last pass output, or
// input itself when there are no passes.
func (p *Pipeline) Execute(input gpu.TextureID) gpu.TextureID {
	tex := input
	for _, rp := range p.passes {
		rp.Run(tex, p.quad, rp.Params())
		tex = rp.Output()
	}
	return tex
}

// Present draws final into the default framebuffer, letterboxed inside a
// fbWidth x fbHeight drawable. It returns the viewport it used.
func (p *Pipeline) Present(final gpu.TextureID, fbWidth, fbHeight int) Viewport {
	vp := Letterbox(fbWidth, fbHeight, p.aspect)

	p.b.BindFramebuffer(gpu.Screen)
	p.b.Viewport(vp.X, vp.Y, vp.Width, vp.Height)
	p.b.ClearColor(p.clear)
	p.b.Clear()

	p.display.ReloadIfChanged()
	if !p.display.Linked() {
		return vp
	}
	useWithInput(p.b, p.display, final, vp.Width, vp.Height)
	p.quad.Draw()
	return vp
}

// Release frees the display program, then the passes in reverse order, then
// the quad. Further calls are no-ops.
func (p *Pipeline) Release() {
	if p == nil {
		return
	}
	p.resources.Release()
}
