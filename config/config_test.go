package config

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atsuki/internal/gpu"
	"atsuki/internal/gpu/gputest"
	"atsuki/renderer"
	"atsuki/shader"
)

const minimal = `
[input]
filter = "linear"
wrap = "clamp"

[[pass]]
fragment = "passthrough.frag"
filter = "nearest"
wrap = "repeat"
`

func decode(t *testing.T, src string) (*Pipeline, error) {
	t.Helper()
	return Decode(strings.NewReader(src))
}

func TestDecodeAppliesDefaults(t *testing.T) {
	p, err := decode(t, minimal)
	require.NoError(t, err)

	assert.Equal(t, "fullscreen_quad.vert", p.Vertex)
	assert.Equal(t, "display.frag", p.Display)
	assert.Equal(t, "poll", p.Watch)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, p.ClearColor)
	assert.Equal(t, Window{Width: 1280, Height: 720, Title: "ATSUKI", VSync: true, Resizable: true}, p.Window)
	require.Len(t, p.Passes, 1)
	assert.Equal(t, "passthrough", p.Passes[0].Name, "name defaults to the fragment file name")
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown key", minimal + "\nbogus = 1\n", "bogus"},
		{"bad watch", "watch = \"inotify\"\n" + minimal, "watch"},
		{"duplicate names", minimal + "\n[[pass]]\nfragment = \"passthrough.frag\"\nfilter = \"linear\"\nwrap = \"clamp\"\n", "duplicate"},
		{"missing fragment", "[input]\nfilter = \"linear\"\nwrap = \"clamp\"\n[[pass]]\nfilter = \"linear\"\nwrap = \"clamp\"\n", "fragment is required"},
		{"scale and size", minimal + "scale = 0.5\nwidth = 10\nheight = 10\n", "not both"},
		{"half a size", minimal + "width = 10\n", "invalid size"},
		{"negative scale", minimal + "scale = -1.0\n", "invalid scale"},
		{"bad uniform", minimal + "[pass.uniforms]\nlabel = \"text\"\n", `uniform "label"`},
		{"long vector", minimal + "[pass.uniforms]\nv = [1, 2, 3, 4, 5]\n", "want 2 to 4"},
		{"not toml", "[[pass", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(t, tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSamplingIsRequired(t *testing.T) {
	_, err := decode(t, "[input]\nfilter = \"linear\"\nwrap = \"clamp\"\n[[pass]]\nfragment = \"a.frag\"\nfilter = \"linear\"\n")
	assert.ErrorIs(t, err, ErrSampling)

	_, err = decode(t, "[[pass]]\nfragment = \"a.frag\"\nfilter = \"linear\"\nwrap = \"clamp\"\n")
	assert.ErrorIs(t, err, ErrSampling, "input sampling has no default either")

	_, err = decode(t, "[input]\nfilter = \"cubic\"\nwrap = \"clamp\"\n[[pass]]\nfragment = \"a.frag\"\nfilter = \"linear\"\nwrap = \"clamp\"\n")
	assert.ErrorIs(t, err, ErrSampling)
}

func TestNoPasses(t *testing.T) {
	_, err := decode(t, "[input]\nfilter = \"linear\"\nwrap = \"clamp\"\n")
	assert.ErrorIs(t, err, ErrNoPasses)
}

func TestDefaultPipeline(t *testing.T) {
	p := Default()
	names := make([]string, len(p.Passes))
	for i, ps := range p.Passes {
		names[i] = ps.Name
	}
	assert.Equal(t, []string{"dog", "edges", "ascii"}, names)

	s, err := p.InputSampling()
	require.NoError(t, err)
	assert.Equal(t, gpu.Sampling{Filter: gpu.FilterLinear, Wrap: gpu.WrapClampToEdge}, s)
}

func TestSpec(t *testing.T) {
	p, err := decode(t, `
watch = "notify"
clear_color = [0.1, 0.2, 0.3, 1.0]

[input]
filter = "linear"
wrap = "clamp"

[[pass]]
name = "half"
fragment = "blur.frag"
scale = 0.5
filter = "linear"
wrap = "mirror"

[pass.uniforms]
radius = 3
strength = 0.5
offset = [1.0, 2]
tint = [1.0, 0.5, 0.25]
mask = [1, 1, 1, 0]

[[pass]]
name = "fixed"
fragment = "/abs/grid.frag"
width = 80
height = 45
filter = "nearest"
wrap = "repeat"
`)
	require.NoError(t, err)

	spec, err := p.Spec("/shaders", 1920, 1080)
	require.NoError(t, err)

	assert.Equal(t, "/shaders/fullscreen_quad.vert", spec.VertexPath)
	assert.Equal(t, "/shaders/display.frag", spec.DisplayPath)
	assert.Equal(t, shader.WatchNotify, spec.Watch)
	assert.Equal(t, gpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}, spec.ClearColor)
	assert.InDelta(t, 16.0/9.0, spec.Aspect, 1e-9)

	require.Len(t, spec.Passes, 2)
	half := spec.Passes[0]
	assert.Equal(t, "half", half.Name)
	assert.Equal(t, 960, half.Width)
	assert.Equal(t, 540, half.Height)
	assert.Equal(t, "/shaders/blur.frag", half.FragmentPath)
	assert.Equal(t, spec.VertexPath, half.VertexPath)
	assert.Equal(t, gpu.Sampling{Filter: gpu.FilterLinear, Wrap: gpu.WrapMirroredRepeat}, half.Sampling)
	assert.Equal(t, renderer.Params{
		"radius":   renderer.Int(3),
		"strength": renderer.Float(0.5),
		"offset":   renderer.Vec2{1, 2},
		"tint":     renderer.Vec3{1, 0.5, 0.25},
		"mask":     renderer.Vec4{1, 1, 1, 0},
	}, half.Params)

	fixed := spec.Passes[1]
	assert.Equal(t, "/abs/grid.frag", fixed.FragmentPath)
	assert.Equal(t, 80, fixed.Width)
	assert.Equal(t, 45, fixed.Height)
	assert.Equal(t, gpu.Sampling{Filter: gpu.FilterNearest, Wrap: gpu.WrapRepeat}, fixed.Sampling)
	assert.Nil(t, fixed.Params)
}

func TestPassSizeNeverZero(t *testing.T) {
	ps := Pass{Scale: 0.01}
	w, h := ps.Size(10, 10)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()

	p, from, err := Resolve("", dir)
	require.NoError(t, err)
	assert.Equal(t, "built-in default", from)
	assert.Len(t, p.Passes, 3)

	local := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(local, []byte(minimal), 0o644))
	p, from, err = Resolve("", dir)
	require.NoError(t, err)
	assert.Equal(t, local, from)
	assert.Len(t, p.Passes, 1)

	explicit := filepath.Join(t.TempDir(), "other.toml")
	require.NoError(t, os.WriteFile(explicit, []byte("[[pass]]\n"), 0o644))
	_, from, err = Resolve(explicit, dir)
	assert.Equal(t, explicit, from)
	require.Error(t, err)
	assert.Contains(t, err.Error(), explicit)

	_, _, err = Resolve(filepath.Join(dir, "missing.toml"), dir)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShippedShadersBuild(t *testing.T) {
	dir := filepath.Join("..", "shaders")
	frags, err := filepath.Glob(filepath.Join(dir, "*.frag"))
	require.NoError(t, err)
	require.NotEmpty(t, frags)

	b := gputest.New()
	vert := filepath.Join(dir, Default().Vertex)
	for _, frag := range frags {
		prog := shader.New(b, vert, frag)
		assert.True(t, prog.Linked(), filepath.Base(frag))
		assert.Equal(t, gpu.UniformSampler, prog.UniformType(renderer.SamplerUniform), filepath.Base(frag))
		prog.Release()
	}
	assert.Zero(t, b.LiveTotal())
}

func TestDefaultPipelineBuilds(t *testing.T) {
	b := gputest.New()
	spec, err := Default().Spec(filepath.Join("..", "shaders"), 64, 36)
	require.NoError(t, err)

	p, err := renderer.NewPipeline(b, spec)
	require.NoError(t, err)
	defer p.Release()

	for _, rp := range p.Passes() {
		assert.True(t, rp.Program().Linked(), rp.Name())
	}
	assert.True(t, p.Display().Linked())
	assert.Empty(t, p.Status())
	for _, ps := range spec.Passes {
		rp, _ := p.Pass(ps.Name)
		for name := range ps.Params {
			assert.GreaterOrEqual(t, rp.Program().UniformLocation(name), int32(0), "%s declares %s", ps.Name, name)
		}
		assert.Empty(t, ps.Params.Mismatched(rp.Program()), ps.Name)
	}
}

func TestIntegerUniformOnFloatShader(t *testing.T) {
	p, err := decode(t, `
[input]
filter = "linear"
wrap = "clamp"

[[pass]]
name = "edges"
fragment = "edge_detection.frag"
filter = "nearest"
wrap = "clamp"

[pass.uniforms]
edgeThreshold = 1
`)
	require.NoError(t, err)
	spec, err := p.Spec(filepath.Join("..", "shaders"), 8, 8)
	require.NoError(t, err)

	b := gputest.New()
	pl, err := renderer.NewPipeline(b, spec)
	require.NoError(t, err)
	defer pl.Release()

	sampling, err := p.InputSampling()
	require.NoError(t, err)
	in, err := renderer.NewInputTexture(b, image.NewRGBA(image.Rect(0, 0, 8, 8)), sampling)
	require.NoError(t, err)
	defer in.Release()
	pl.Execute(in.ID())

	rp, _ := pl.Pass("edges")
	v, ok := b.UniformValue(rp.Program().Handle(), "edgeThreshold")
	require.True(t, ok)
	assert.Equal(t, []float32{1}, v)
	assert.Empty(t, b.Errors)
}
