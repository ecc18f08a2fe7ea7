package config

import (
	"fmt"
	"math"
	"path/filepath"

	"atsuki/internal/gpu"
	"atsuki/renderer"
	"atsuki/shader"
)

var filters = map[string]gpu.Filter{
	"nearest": gpu.FilterNearest,
	"linear":  gpu.FilterLinear,
}

var wraps = map[string]gpu.Wrap{
	"clamp":  gpu.WrapClampToEdge,
	"repeat": gpu.WrapRepeat,
	"mirror": gpu.WrapMirroredRepeat,
}

func (s Sampling) sampling() (gpu.Sampling, error) {
	f, ok := filters[s.Filter]
	if !ok {
		return gpu.Sampling{}, fmt.Errorf("%w: filter %q: want nearest or linear", ErrSampling, s.Filter)
	}
	w, ok := wraps[s.Wrap]
	if !ok {
		return gpu.Sampling{}, fmt.Errorf("%w: wrap %q: want clamp, repeat or mirror", ErrSampling, s.Wrap)
	}
	return gpu.Sampling{Filter: f, Wrap: w}, nil
}

// InputSampling is the sampling policy of the uploaded source texture.
func (p *Pipeline) InputSampling() (gpu.Sampling, error) {
	return p.Input.sampling()
}

// Size returns the pass target size for a srcW x srcH source.
func (ps *Pass) Size(srcW, srcH int) (int, int) {
	if ps.Width > 0 && ps.Height > 0 {
		return ps.Width, ps.Height
	}
	scale := ps.Scale
	if scale == 0 {
		scale = 1
	}
	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	return max(w, 1), max(h, 1)
}

// Spec resolves the pipeline against a shader directory and a source size.
// Relative shader paths are taken relative to shaderDir.
func (p *Pipeline) Spec(shaderDir string, srcW, srcH int) (renderer.PipelineSpec, error) {
	watch := shader.WatchMode(p.Watch)
	spec := renderer.PipelineSpec{
		VertexPath:  resolve(shaderDir, p.Vertex),
		DisplayPath: resolve(shaderDir, p.Display),
		Watch:       watch,
		ClearColor:  gpu.Color{R: p.ClearColor[0], G: p.ClearColor[1], B: p.ClearColor[2], A: p.ClearColor[3]},
		Aspect:      renderer.Aspect(srcW, srcH),
	}
	for i := range p.Passes {
		pass := &p.Passes[i]
		sampling, err := Sampling{Filter: pass.Filter, Wrap: pass.Wrap}.sampling()
		if err != nil {
			return renderer.PipelineSpec{}, fmt.Errorf("config: pass %q: %w", pass.Name, err)
		}
		values, err := params(pass.Uniforms)
		if err != nil {
			return renderer.PipelineSpec{}, fmt.Errorf("config: pass %q: %w", pass.Name, err)
		}
		w, h := pass.Size(srcW, srcH)
		spec.Passes = append(spec.Passes, renderer.PassSpec{
			Name:         pass.Name,
			Width:        w,
			Height:       h,
			VertexPath:   spec.VertexPath,
			FragmentPath: resolve(shaderDir, pass.Fragment),
			Sampling:     sampling,
			Params:       values,
			Watch:        watch,
		})
	}
	return spec, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// params converts TOML uniform values: an integer sets an int uniform (or a
// float one, converted at upload), a float a float uniform, and an array of
// 2 to 4 numbers a vector.
func params(uniforms map[string]any) (renderer.Params, error) {
	if len(uniforms) == 0 {
		return nil, nil
	}
	out := make(renderer.Params, len(uniforms))
	for name, raw := range uniforms {
		v, err := value(raw)
		if err != nil {
			return nil, fmt.Errorf("uniform %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func value(raw any) (renderer.Value, error) {
	switch v := raw.(type) {
	case int64:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("integer %d out of range", v)
		}
		return renderer.Int(v), nil
	case float64:
		return renderer.Float(v), nil
	case []any:
		f := make([]float32, len(v))
		for i, e := range v {
			switch n := e.(type) {
			case int64:
				f[i] = float32(n)
			case float64:
				f[i] = float32(n)
			default:
				return nil, fmt.Errorf("vector element %d is %T, want a number", i, e)
			}
		}
		switch len(f) {
		case 2:
			return renderer.Vec2{f[0], f[1]}, nil
		case 3:
			return renderer.Vec3{f[0], f[1], f[2]}, nil
		case 4:
			return renderer.Vec4{f[0], f[1], f[2], f[3]}, nil
		}
		return nil, fmt.Errorf("vector of %d elements, want 2 to 4", len(f))
	}
	return nil, fmt.Errorf("unsupported value %T", raw)
}
