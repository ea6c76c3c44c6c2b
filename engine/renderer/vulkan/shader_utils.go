package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// ShaderSource loads the compiled stages of a named program.
type ShaderSource interface {
	LoadShaderProgram(name string) (*metadata.ShaderProgramCode, error)
}

// preparedShaders serves programs loaded ahead of a pipeline rebuild.
type preparedShaders map[string]*metadata.ShaderProgramCode

func (p preparedShaders) LoadShaderProgram(name string) (*metadata.ShaderProgramCode, error) {
	code, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("%w: program '%s' was not prepared", core.ErrMissingShaderStage, name)
	}
	return code, nil
}

// loadPipelineShaders reads every program the pipeline set is built from.
func loadPipelineShaders(source ShaderSource) (preparedShaders, error) {
	prepared := preparedShaders{}
	for _, params := range pipelineParams {
		if _, ok := prepared[params.Shader]; ok {
			continue
		}
		code, err := source.LoadShaderProgram(params.Shader)
		if err != nil {
			return nil, fmt.Errorf("shader program '%s': %w", params.Shader, err)
		}
		prepared[params.Shader] = code
	}
	return prepared, nil
}

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	Stage  metadata.ShaderStage
	Handle vk.ShaderModule
}

type VulkanShaderProgram struct {
	Name   string
	Stages []VulkanShaderStage
}

func stageFlagBits(stage metadata.ShaderStage) (vk.ShaderStageFlagBits, error) {
	switch stage {
	case metadata.ShaderStageVertex:
		return vk.ShaderStageVertexBit, nil
	case metadata.ShaderStageFragment:
		return vk.ShaderStageFragmentBit, nil
	case metadata.ShaderStageGeometry:
		return vk.ShaderStageGeometryBit, nil
	}
	return 0, fmt.Errorf("%w: %s", core.ErrUnknownShaderStage, stage)
}

// ShaderProgramCreate creates one module per stage, in stage order.
func ShaderProgramCreate(vc *RenderContext, code *metadata.ShaderProgramCode) (*VulkanShaderProgram, error) {
	program := &VulkanShaderProgram{Name: code.Name}
	for stage := metadata.ShaderStage(0); stage < metadata.ShaderStageCount; stage++ {
		words, ok := code.Stages[stage]
		if !ok {
			continue
		}
		createInfo := vk.ShaderModuleCreateInfo{
			SType:    vk.StructureTypeShaderModuleCreateInfo,
			CodeSize: uint64(len(words) * 4),
			PCode:    words,
		}
		var module vk.ShaderModule
		err := lockPool.SafeCall(ShaderManagement, func() error {
			return vkError("vkCreateShaderModule", vk.CreateShaderModule(vc.Device.LogicalDevice, &createInfo, vc.Allocator, &module))
		})
		if err != nil {
			program.Destroy(vc)
			err = fmt.Errorf("shader '%s' %s stage: %w", code.Name, stage, err)
			core.LogError(err.Error())
			return nil, err
		}
		program.Stages = append(program.Stages, VulkanShaderStage{Stage: stage, Handle: module})
	}
	return program, nil
}

func (p *VulkanShaderProgram) stageInfos() ([]vk.PipelineShaderStageCreateInfo, error) {
	infos := make([]vk.PipelineShaderStageCreateInfo, 0, len(p.Stages))
	for _, s := range p.Stages {
		bits, err := stageFlagBits(s.Stage)
		if err != nil {
			return nil, err
		}
		infos = append(infos, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  bits,
			Module: s.Handle,
			PName:  VulkanSafeString("main"),
		})
	}
	return infos, nil
}

// Destroy releases the modules. Pipelines built from them stay valid.
func (p *VulkanShaderProgram) Destroy(vc *RenderContext) {
	for _, s := range p.Stages {
		vk.DestroyShaderModule(vc.Device.LogicalDevice, s.Handle, vc.Allocator)
	}
	p.Stages = nil
}
