// Package shader builds GPU programs from vertex/fragment source files and
// rebuilds them when the fragment source changes on disk.
package shader

import (
	"log/slog"

	"atsuki/internal/gpu"
)

// Program owns one linked GPU program. The program name is replaced on
// every reload, so callers must ask Handle each frame instead of keeping it.
type Program struct {
	b            gpu.Backend
	vertexPath   string
	fragmentPath string
	detector     Detector

	id       gpu.ProgramID
	linked   bool
	rebuilds int
	uniforms map[string]gpu.UniformType
}

// Option configures a Program.
type Option func(*Program)

// WithDetector replaces the default modification-time detector on the
// fragment source.
func WithDetector(d Detector) Option {
	return func(p *Program) { p.detector = d }
}

// New compiles and links the two sources. It never fails: unreadable
// files, compile errors and link errors are logged and leave the program
// in a non-drawable state until a reload fixes it.
func New(b gpu.Backend, vertexPath, fragmentPath string, opts ...Option) *Program {
	p := &Program{b: b, vertexPath: vertexPath, fragmentPath: fragmentPath}
	for _, opt := range opts {
		opt(p)
	}
	// The timestamp is taken before reading so an edit landing during the
	// build is picked up by the next check.
	if p.detector == nil {
		p.detector = NewModTimeDetector(fragmentPath)
	}
	p.build()
	return p
}

func (p *Program) build() {
	vsrc := readSource(p.vertexPath)
	fsrc := readSource(p.fragmentPath)

	vert, log, ok := p.b.CompileShader(gpu.StageVertex, vsrc)
	if !ok {
		slog.Error("shader compilation error", "stage", gpu.StageVertex, "path", p.vertexPath, "log", log)
	}
	frag, log, ok := p.b.CompileShader(gpu.StageFragment, fsrc)
	if !ok {
		slog.Error("shader compilation error", "stage", gpu.StageFragment, "path", p.fragmentPath, "log", log)
	}

	p.id, log, p.linked = p.b.LinkProgram(vert, frag)
	p.uniforms = nil
	if p.linked {
		p.uniforms = p.b.ActiveUniforms(p.id)
	} else {
		slog.Error("shader program link error", "vertex", p.vertexPath, "fragment", p.fragmentPath, "log", log)
	}

	p.b.DeleteShader(vert)
	p.b.DeleteShader(frag)
}

// ReloadIfChanged rebuilds the program from the current contents of both
// files when the fragment source changed. It reports whether it rebuilt.
func (p *Program) ReloadIfChanged() bool {
	if p.id == 0 || !p.detector.Changed() {
		return false
	}
	slog.Info("reloading shader", "path", p.fragmentPath)
	p.b.DeleteProgram(p.id)
	p.id = 0
	p.build()
	p.rebuilds++
	return true
}

// Handle returns the live program name.
func (p *Program) Handle() gpu.ProgramID { return p.id }

// Linked reports whether the live program linked and can be drawn with.
func (p *Program) Linked() bool { return p.linked }

// Rebuilds counts reloads since creation.
func (p *Program) Rebuilds() int { return p.rebuilds }

func (p *Program) FragmentPath() string { return p.fragmentPath }

// UniformLocation looks name up on the live program; -1 when absent.
func (p *Program) UniformLocation(name string) int32 {
	if !p.linked {
		return -1
	}
	return p.b.UniformLocation(p.id, name)
}

// UniformType is the declared type of an active uniform of the live
// program. Absent uniforms report gpu.UniformOther.
func (p *Program) UniformType(name string) gpu.UniformType {
	return p.uniforms[name]
}

// Release deletes the program and stops watching its source. Further calls
// are no-ops.
func (p *Program) Release() {
	if p == nil || p.id == 0 {
		return
	}
	p.b.DeleteProgram(p.id)
	p.id = 0
	p.linked = false
	p.uniforms = nil
	if err := p.detector.Close(); err != nil {
		slog.Warn("closing shader watcher", "path", p.fragmentPath, "err", err)
	}
}
