package vulkan

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
)

func TestClipGlyphs(t *testing.T) {
	vertices := make([]metadata.TextVertex, (OverlayMaxGlyphs+3)*4)
	indices := make([]uint32, (OverlayMaxGlyphs+3)*6)

	v, i := clipGlyphs(vertices, indices)
	assert.Len(t, v, OverlayMaxGlyphs*4)
	assert.Len(t, i, OverlayMaxGlyphs*6)

	v, i = clipGlyphs(vertices[:8], indices[:12])
	assert.Len(t, v, 8)
	assert.Len(t, i, 12)
}

func TestOverlayProjection(t *testing.T) {
	p := overlayProjection(800, 600)
	topLeft := p.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	bottomRight := p.Mul4x1(mgl32.Vec4{800, 600, 0, 1})
	assert.InDelta(t, -1, topLeft.X(), 1e-5)
	assert.InDelta(t, -1, topLeft.Y(), 1e-5)
	assert.InDelta(t, 1, bottomRight.X(), 1e-5)
	assert.InDelta(t, 1, bottomRight.Y(), 1e-5)
}
