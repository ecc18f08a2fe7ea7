package renderer

import (
	"fmt"

	"atsuki/internal/gpu"
)

// quadVertices covers clip space with texture coordinates running 0..1,
// drawn as a four-vertex triangle strip.
var quadVertices = [...]float32{
	// x,  y,    u,   v
	-1, 1, 0, 1,
	-1, -1, 0, 0,
	1, 1, 1, 1,
	1, -1, 1, 0,
}

// Geometry is the shared full-screen quad. It is immutable once created.
type Geometry struct {
	b  gpu.Backend
	id gpu.GeometryID
}

// NewFullscreenQuad uploads the quad. Every pass and the display stage
// draw the same instance.
func NewFullscreenQuad(b gpu.Backend) (*Geometry, error) {
	id, err := b.CreateQuad(quadVertices[:])
	if err != nil {
		return nil, fmt.Errorf("fullscreen quad: %w", err)
	}
	return &Geometry{b: b, id: id}, nil
}

// Draw issues one draw call with whatever program is current.
func (g *Geometry) Draw() {
	g.b.DrawQuad(g.id)
}

func (g *Geometry) Release() {
	if g == nil || g.id == 0 {
		return
	}
	g.b.DeleteQuad(g.id)
	g.id = 0
}
