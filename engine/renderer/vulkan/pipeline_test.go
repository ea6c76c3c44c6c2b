package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckGeneration(t *testing.T) {
	assert.NoError(t, checkGeneration(3, 3))
	err := checkGeneration(2, 3)
	assert.ErrorIs(t, err, core.ErrStalePipeline)
	assert.Contains(t, err.Error(), "generation 2")
}

func TestVertexInputLayouts(t *testing.T) {
	tests := []struct {
		layout     VertexLayout
		strides    []uint32
		attributes int
	}{
		{VertexLayoutNone, nil, 0},
		{VertexLayoutMesh, []uint32{44}, 4},
		{VertexLayoutMeshInstanced, []uint32{44, 128}, 12},
		{VertexLayoutGizmo, []uint32{36}, 3},
		{VertexLayoutText, []uint32{16}, 2},
	}
	for _, tt := range tests {
		bindings, attributes := vertexInput(tt.layout)
		require.Len(t, bindings, len(tt.strides), "layout %d", tt.layout)
		for i, b := range bindings {
			assert.Equal(t, uint32(i), b.Binding)
			assert.Equal(t, tt.strides[i], b.Stride, "layout %d binding %d", tt.layout, i)
		}
		assert.Len(t, attributes, tt.attributes, "layout %d", tt.layout)
		for i, a := range attributes {
			assert.Equal(t, uint32(i), a.Location)
		}
	}
}

func TestVertexInputInstanceColumns(t *testing.T) {
	bindings, attributes := vertexInput(VertexLayoutMeshInstanced)
	assert.Equal(t, vk.VertexInputRateInstance, bindings[1].InputRate)
	for i, a := range attributes[4:] {
		assert.Equal(t, uint32(1), a.Binding)
		assert.Equal(t, vk.FormatR32g32b32a32Sfloat, a.Format)
		assert.Equal(t, uint32(i*16), a.Offset)
	}
}

func TestPipelineParams(t *testing.T) {
	subpasses := map[PipelineKind]uint32{
		PipelineGBuffer:          SubpassGBuffer,
		PipelineDeferredBRDF:     SubpassLighting,
		PipelineForwardBRDF:      SubpassLighting,
		PipelineGBufferVisualize: SubpassLighting,
		PipelineLightMarkers:     SubpassOverlay,
		PipelineGizmo:            SubpassOverlay,
		PipelineOverlayText:      SubpassOverlay,
	}
	require.Len(t, subpasses, int(PipelineKindCount))
	for kind, subpass := range subpasses {
		p := pipelineParams[kind]
		assert.Equal(t, subpass, p.Subpass, "kind %d", kind)
		assert.Equal(t, uint32(len(subpassPlan[subpass].Colors)), p.ColorCount, "kind %d", kind)
		assert.NotEmpty(t, p.Shader)
	}
	assert.False(t, pipelineParams[PipelineDeferredBRDF].DepthTest)
	assert.True(t, pipelineParams[PipelineOverlayText].Blend)
}
