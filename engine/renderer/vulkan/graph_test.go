package vulkan

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
)

func TestSubpassPipelinesPerMode(t *testing.T) {
	overlay := []PipelineKind{PipelineLightMarkers, PipelineGizmo, PipelineOverlayText}

	deferred := subpassPipelines(metadata.RenderSettings{Mode: metadata.RenderModeDeferred, View: metadata.GBufferViewRenderedScene})
	assert.Equal(t, []PipelineKind{PipelineGBuffer}, deferred[SubpassGBuffer])
	assert.Equal(t, []PipelineKind{PipelineDeferredBRDF}, deferred[SubpassLighting])
	assert.Equal(t, overlay, deferred[SubpassOverlay])

	visualize := subpassPipelines(metadata.RenderSettings{Mode: metadata.RenderModeDeferred, View: metadata.GBufferViewNormal})
	assert.Equal(t, []PipelineKind{PipelineGBuffer}, visualize[SubpassGBuffer])
	assert.Equal(t, []PipelineKind{PipelineGBufferVisualize}, visualize[SubpassLighting])
	assert.Equal(t, overlay, visualize[SubpassOverlay])

	// Forward ignores the G-buffer view; the G-buffer subpass still runs empty.
	forward := subpassPipelines(metadata.RenderSettings{Mode: metadata.RenderModeForward, View: metadata.GBufferViewAlbedo})
	assert.Empty(t, forward[SubpassGBuffer])
	assert.Equal(t, []PipelineKind{PipelineForwardBRDF}, forward[SubpassLighting])
	assert.Equal(t, overlay, forward[SubpassOverlay])
}

func TestSubpassPipelinesMatchTheirSubpass(t *testing.T) {
	for _, settings := range []metadata.RenderSettings{
		{Mode: metadata.RenderModeDeferred},
		{Mode: metadata.RenderModeForward},
		{Mode: metadata.RenderModeDeferred, View: metadata.GBufferViewRenderedScene},
	} {
		for subpass, kinds := range subpassPipelines(settings) {
			for _, k := range kinds {
				assert.Equal(t, uint32(subpass), pipelineParams[k].Subpass)
			}
		}
	}
}

func TestGizmoRect(t *testing.T) {
	rect := gizmoRect(vk.Extent2D{Width: 1280, Height: 720})
	assert.Equal(t, int32(0), rect.Offset.X)
	assert.Equal(t, int32(620), rect.Offset.Y)
	assert.Equal(t, vk.Extent2D{Width: GizmoSize, Height: GizmoSize}, rect.Extent)

	small := gizmoRect(vk.Extent2D{Width: 300, Height: 40})
	assert.Equal(t, int32(0), small.Offset.Y)
	assert.Equal(t, vk.Extent2D{Width: 40, Height: 40}, small.Extent)
}

func TestGizmoTransform(t *testing.T) {
	m := gizmoTransform(mgl32.Ident4())

	x := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 0.8, x.X(), 1e-6)
	assert.InDelta(t, 0.5, x.Z(), 1e-6)

	y := m.Mul4x1(mgl32.Vec4{0, 1, 0, 1})
	assert.InDelta(t, -0.8, y.Y(), 1e-6)

	toward := m.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	away := m.Mul4x1(mgl32.Vec4{0, 0, 1, 1})
	assert.InDelta(t, 1, toward.Z(), 1e-6)
	assert.InDelta(t, 0, away.Z(), 1e-6)

	// Translation of the view does not move the gizmo.
	moved := gizmoTransform(mgl32.Translate3D(5, -2, 7))
	assert.True(t, moved.ApproxEqual(m))
}
