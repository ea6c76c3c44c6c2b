package vulkan

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShaderSource struct {
	broken map[string]bool
	loads  map[string]int
}

func newFakeShaderSource(broken ...string) *fakeShaderSource {
	src := &fakeShaderSource{broken: map[string]bool{}, loads: map[string]int{}}
	for _, name := range broken {
		src.broken[name] = true
	}
	return src
}

func (s *fakeShaderSource) LoadShaderProgram(name string) (*metadata.ShaderProgramCode, error) {
	s.loads[name]++
	if s.broken[name] {
		return nil, errors.New("shader has size 0, not a multiple of 4")
	}
	return &metadata.ShaderProgramCode{
		Name: name,
		Stages: map[metadata.ShaderStage][]uint32{
			metadata.ShaderStageVertex:   {0x07230203},
			metadata.ShaderStageFragment: {0x07230203},
		},
	}, nil
}

func TestLoadPipelineShadersLoadsEachProgramOnce(t *testing.T) {
	src := newFakeShaderSource()
	prepared, err := loadPipelineShaders(src)
	require.NoError(t, err)

	for _, params := range pipelineParams {
		code, err := prepared.LoadShaderProgram(params.Shader)
		require.NoError(t, err)
		assert.Equal(t, params.Shader, code.Name)
		assert.Equal(t, 1, src.loads[params.Shader])
	}

	_, err = prepared.LoadShaderProgram("missing")
	assert.ErrorIs(t, err, core.ErrMissingShaderStage)
}

func TestLoadPipelineShadersFailsOnAnyProgram(t *testing.T) {
	_, err := loadPipelineShaders(newFakeShaderSource(metadata.ShaderGizmo))
	require.Error(t, err)
	assert.Contains(t, err.Error(), metadata.ShaderGizmo)
}

func TestShaderReloadKeepsPipelinesWhenALoadFails(t *testing.T) {
	pipelines := &PipelineSet{}
	renderpass := &VulkanRenderpass{Generation: 3}
	vr := &VulkanRenderer{
		context: &RenderContext{Pipelines: pipelines, Renderpass: renderpass, RenderpassGeneration: 3},
		shaders: newFakeShaderSource(metadata.ShaderDeferredBRDF),
	}
	vr.ReloadShaders()
	require.True(t, vr.shadersDirty)

	assert.False(t, vr.prepareShaderReload())
	assert.False(t, vr.shadersDirty)
	assert.False(t, vr.needsRebuild)
	assert.Nil(t, vr.pendingShaders)
	assert.Same(t, pipelines, vr.context.Pipelines)
	assert.Same(t, renderpass, vr.context.Renderpass)
	assert.Equal(t, uint64(3), vr.context.RenderpassGeneration)
}

func TestShaderReloadSchedulesRebuildOnceLoaded(t *testing.T) {
	vr := &VulkanRenderer{
		context: &RenderContext{},
		shaders: newFakeShaderSource(),
	}
	vr.ReloadShaders()

	assert.True(t, vr.prepareShaderReload())
	assert.False(t, vr.shadersDirty)
	assert.True(t, vr.needsRebuild)
	require.NotNil(t, vr.pendingShaders)
	for _, params := range pipelineParams {
		assert.Contains(t, vr.pendingShaders, params.Shader)
	}
}
