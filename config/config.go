// Package config reads the pipeline description: which fragment shaders run
// in which order, at what resolution, and how their outputs are sampled.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileName is looked up in the shader directory when no config path is
// given.
const FileName = "pipeline.toml"

//go:embed default.toml
var defaultTOML []byte

var (
	ErrNoPasses = errors.New("config: pipeline has no passes")
	ErrSampling = errors.New("config: sampling policy")
)

// Pipeline is the decoded pipeline.toml.
type Pipeline struct {
	Vertex     string     `toml:"vertex"`
	Display    string     `toml:"display"`
	Watch      string     `toml:"watch"`
	ClearColor [4]float32 `toml:"clear_color"`
	Window     Window     `toml:"window"`
	Input      Sampling   `toml:"input"`
	Passes     []Pass     `toml:"pass"`
}

type Window struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Title     string `toml:"title"`
	VSync     bool   `toml:"vsync"`
	Resizable bool   `toml:"resizable"`
}

type Sampling struct {
	Filter string `toml:"filter"`
	Wrap   string `toml:"wrap"`
}

// Pass describes one render pass. Its target is either Width x Height, or
// the source size multiplied by Scale (1 when neither is set).
type Pass struct {
	Name     string         `toml:"name"`
	Fragment string         `toml:"fragment"`
	Scale    float64        `toml:"scale"`
	Width    int            `toml:"width"`
	Height   int            `toml:"height"`
	Filter   string         `toml:"filter"`
	Wrap     string         `toml:"wrap"`
	Uniforms map[string]any `toml:"uniforms"`
}

func defaults() *Pipeline {
	return &Pipeline{
		Vertex:     "fullscreen_quad.vert",
		Display:    "display.frag",
		Watch:      "poll",
		ClearColor: [4]float32{0, 0, 0, 1},
		Window: Window{
			Width:     1280,
			Height:    720,
			Title:     "ATSUKI",
			VSync:     true,
			Resizable: true,
		},
	}
}

// Decode reads a pipeline from r on top of the defaults. Unknown keys are
// errors. The result is validated.
func Decode(r io.Reader) (*Pipeline, error) {
	p := defaults()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, len(strict.Errors))
			for i := range strict.Errors {
				keys[i] = strings.Join(strict.Errors[i].Key(), ".")
			}
			return nil, fmt.Errorf("config: unknown keys %s", strings.Join(keys, ", "))
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load decodes the file at path.
func Load(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Default returns the built-in pipeline.
func Default() *Pipeline {
	p, err := Decode(bytes.NewReader(defaultTOML))
	if err != nil {
		panic(fmt.Sprintf("embedded default.toml: %v", err))
	}
	return p
}

// Resolve picks the pipeline for a run: the explicit path if given, else
// pipeline.toml in shaderDir if it exists, else the built-in default. It
// also returns a description of where the pipeline came from.
func Resolve(path, shaderDir string) (*Pipeline, string, error) {
	if path != "" {
		p, err := Load(path)
		return p, path, err
	}
	local := filepath.Join(shaderDir, FileName)
	if _, err := os.Stat(local); err == nil {
		p, err := Load(local)
		return p, local, err
	}
	slog.Debug("no pipeline file, using built-in default", "looked", local)
	return Default(), "built-in default", nil
}

// Validate checks the pipeline and fills in pass names from their
// fragment file names.
func (p *Pipeline) Validate() error {
	if len(p.Passes) == 0 {
		return ErrNoPasses
	}
	switch p.Watch {
	case "poll", "notify":
	default:
		return fmt.Errorf("config: watch %q: want poll or notify", p.Watch)
	}
	if p.Vertex == "" || p.Display == "" {
		return fmt.Errorf("config: vertex and display shaders are required")
	}
	if p.Window.Width <= 0 || p.Window.Height <= 0 {
		return fmt.Errorf("config: invalid window size %dx%d", p.Window.Width, p.Window.Height)
	}
	if _, err := p.Input.sampling(); err != nil {
		return fmt.Errorf("input: %w", err)
	}

	seen := make(map[string]bool, len(p.Passes))
	for i := range p.Passes {
		pass := &p.Passes[i]
		if pass.Fragment == "" {
			return fmt.Errorf("config: pass %d: fragment is required", i)
		}
		if pass.Name == "" {
			pass.Name = strings.TrimSuffix(filepath.Base(pass.Fragment), filepath.Ext(pass.Fragment))
		}
		if seen[pass.Name] {
			return fmt.Errorf("config: duplicate pass name %q", pass.Name)
		}
		seen[pass.Name] = true
		if err := pass.validate(); err != nil {
			return fmt.Errorf("config: pass %q: %w", pass.Name, err)
		}
	}
	return nil
}

func (ps *Pass) validate() error {
	if _, err := (Sampling{Filter: ps.Filter, Wrap: ps.Wrap}).sampling(); err != nil {
		return err
	}
	sized := ps.Width != 0 || ps.Height != 0
	switch {
	case sized && ps.Scale != 0:
		return fmt.Errorf("set either scale or width/height, not both")
	case sized && (ps.Width <= 0 || ps.Height <= 0):
		return fmt.Errorf("invalid size %dx%d", ps.Width, ps.Height)
	case ps.Scale < 0:
		return fmt.Errorf("invalid scale %g", ps.Scale)
	}
	_, err := params(ps.Uniforms)
	return err
}
