package renderer

import (
	"sort"

	"atsuki/internal/gpu"
	"atsuki/shader"
)

// Value is a uniform value that knows how to upload itself.
type Value interface {
	apply(b gpu.Backend, loc int32)
	kind() gpu.UniformType
}

type (
	Int   int32
	Float float32
	Vec2  [2]float32
	Vec3  [3]float32
	Vec4  [4]float32
)

func (v Int) apply(b gpu.Backend, loc int32)   { b.Uniform1i(loc, int32(v)) }
func (v Float) apply(b gpu.Backend, loc int32) { b.Uniform1f(loc, float32(v)) }
func (v Vec2) apply(b gpu.Backend, loc int32)  { b.Uniform2f(loc, v[0], v[1]) }
func (v Vec3) apply(b gpu.Backend, loc int32)  { b.Uniform3f(loc, v[0], v[1], v[2]) }
func (v Vec4) apply(b gpu.Backend, loc int32)  { b.Uniform4f(loc, v[0], v[1], v[2], v[3]) }

func (Int) kind() gpu.UniformType   { return gpu.UniformInt }
func (Float) kind() gpu.UniformType { return gpu.UniformFloat }
func (Vec2) kind() gpu.UniformType  { return gpu.UniformVec2 }
func (Vec3) kind() gpu.UniformType  { return gpu.UniformVec3 }
func (Vec4) kind() gpu.UniformType  { return gpu.UniformVec4 }

// coerce fits v to the declared type of its uniform. An Int feeds a float
// uniform; any other mismatch is refused.
func coerce(v Value, declared gpu.UniformType) (Value, bool) {
	if declared == gpu.UniformOther || v.kind() == declared {
		return v, true
	}
	if i, ok := v.(Int); ok && declared == gpu.UniformFloat {
		return Float(i), true
	}
	return nil, false
}

// Params is a named set of pass parameters (thresholds, grid sizes, ...)
// uploaded to the pass program after the built-in uniforms and before the
// draw. Names the program does not declare are skipped, as are values
// whose type does not fit the declaration (see Mismatched).
type Params map[string]Value

func (ps Params) names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply uploads every value to the program that is currently in use, in
// name order.
func (ps Params) Apply(b gpu.Backend, prog *shader.Program) {
	if len(ps) == 0 {
		return
	}
	for _, name := range ps.names() {
		loc := prog.UniformLocation(name)
		if loc < 0 {
			continue
		}
		if v, ok := coerce(ps[name], prog.UniformType(name)); ok {
			v.apply(b, loc)
		}
	}
}

// Mismatched returns, in name order, the params prog declares with a type
// their value cannot be uploaded as.
func (ps Params) Mismatched(prog *shader.Program) []string {
	var out []string
	for _, name := range ps.names() {
		if prog.UniformLocation(name) < 0 {
			continue
		}
		if _, ok := coerce(ps[name], prog.UniformType(name)); !ok {
			out = append(out, name)
		}
	}
	return out
}
