package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type PipelineKind int

const (
	PipelineGBuffer PipelineKind = iota
	PipelineDeferredBRDF
	PipelineForwardBRDF
	PipelineGBufferVisualize
	PipelineLightMarkers
	PipelineGizmo
	PipelineOverlayText
	PipelineKindCount
)

// VertexLayout selects the vertex input state of a pipeline.
type VertexLayout int

const (
	// No vertex input: a full-screen triangle generated from gl_VertexIndex.
	VertexLayoutNone VertexLayout = iota
	// Vertex attributes only.
	VertexLayoutMesh
	// Vertex attributes plus the per-instance model and inverse model matrices.
	VertexLayoutMeshInstanced
	VertexLayoutGizmo
	VertexLayoutText
)

/**
 * @brief Everything that distinguishes one graphics pipeline from another.
 * The rest of the fixed-function state is shared.
 */
type PipelineParams struct {
	Shader     string
	Subpass    uint32
	Vertex     VertexLayout
	ColorCount uint32
	Blend      bool
	DepthTest  bool
	DepthWrite bool
	CullMode   metadata.FaceCullMode
}

var pipelineParams = [PipelineKindCount]PipelineParams{
	PipelineGBuffer: {
		Shader: metadata.ShaderGBuffer, Subpass: SubpassGBuffer, Vertex: VertexLayoutMeshInstanced,
		ColorCount: GBufferCount, DepthTest: true, DepthWrite: true, CullMode: metadata.FaceCullModeNone,
	},
	PipelineDeferredBRDF: {
		Shader: metadata.ShaderDeferredBRDF, Subpass: SubpassLighting, Vertex: VertexLayoutNone,
		ColorCount: 1, CullMode: metadata.FaceCullModeNone,
	},
	PipelineForwardBRDF: {
		Shader: metadata.ShaderForwardBRDF, Subpass: SubpassLighting, Vertex: VertexLayoutMeshInstanced,
		ColorCount: 1, DepthTest: true, DepthWrite: true, CullMode: metadata.FaceCullModeNone,
	},
	PipelineGBufferVisualize: {
		Shader: metadata.ShaderGBufferVisualize, Subpass: SubpassLighting, Vertex: VertexLayoutNone,
		ColorCount: 1, CullMode: metadata.FaceCullModeNone,
	},
	PipelineLightMarkers: {
		Shader: metadata.ShaderLightMarkers, Subpass: SubpassOverlay, Vertex: VertexLayoutMesh,
		ColorCount: 1, DepthTest: true, DepthWrite: true, CullMode: metadata.FaceCullModeNone,
	},
	PipelineGizmo: {
		Shader: metadata.ShaderGizmo, Subpass: SubpassOverlay, Vertex: VertexLayoutGizmo,
		ColorCount: 1, DepthTest: true, DepthWrite: true, CullMode: metadata.FaceCullModeNone,
	},
	PipelineOverlayText: {
		Shader: metadata.ShaderOverlayText, Subpass: SubpassOverlay, Vertex: VertexLayoutText,
		ColorCount: 1, Blend: true, CullMode: metadata.FaceCullModeNone,
	},
}

func attribute(location, binding uint32, format vk.Format, offset uintptr) vk.VertexInputAttributeDescription {
	return vk.VertexInputAttributeDescription{
		Location: location,
		Binding:  binding,
		Format:   format,
		Offset:   uint32(offset),
	}
}

// vertexInput returns the bindings and attributes of a layout.
func vertexInput(layout VertexLayout) ([]vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription) {
	var v metadata.Vertex
	meshBinding := vk.VertexInputBindingDescription{Binding: 0, Stride: uint32(unsafe.Sizeof(v)), InputRate: vk.VertexInputRateVertex}
	meshAttributes := []vk.VertexInputAttributeDescription{
		attribute(0, 0, vk.FormatR32g32b32Sfloat, unsafe.Offsetof(v.Pos)),
		attribute(1, 0, vk.FormatR32g32Sfloat, unsafe.Offsetof(v.UV)),
		attribute(2, 0, vk.FormatR32g32b32Sfloat, unsafe.Offsetof(v.Normal)),
		attribute(3, 0, vk.FormatR32g32b32Sfloat, unsafe.Offsetof(v.Tangent)),
	}

	switch layout {
	case VertexLayoutMesh:
		return []vk.VertexInputBindingDescription{meshBinding}, meshAttributes
	case VertexLayoutMeshInstanced:
		var inst metadata.InstanceBlock
		bindings := []vk.VertexInputBindingDescription{
			meshBinding,
			{Binding: 1, Stride: uint32(unsafe.Sizeof(inst)), InputRate: vk.VertexInputRateInstance},
		}
		attributes := append([]vk.VertexInputAttributeDescription(nil), meshAttributes...)
		// A mat4 takes four consecutive vec4 locations.
		column := unsafe.Sizeof(inst.ModelMat) / 4
		for i := uintptr(0); i < 4; i++ {
			attributes = append(attributes, attribute(4+uint32(i), 1, vk.FormatR32g32b32a32Sfloat, unsafe.Offsetof(inst.ModelMat)+i*column))
		}
		for i := uintptr(0); i < 4; i++ {
			attributes = append(attributes, attribute(8+uint32(i), 1, vk.FormatR32g32b32a32Sfloat, unsafe.Offsetof(inst.InvModelMat)+i*column))
		}
		return bindings, attributes
	case VertexLayoutGizmo:
		var g metadata.GizmoVertex
		return []vk.VertexInputBindingDescription{{Binding: 0, Stride: uint32(unsafe.Sizeof(g)), InputRate: vk.VertexInputRateVertex}},
			[]vk.VertexInputAttributeDescription{
				attribute(0, 0, vk.FormatR32g32b32Sfloat, unsafe.Offsetof(g.Pos)),
				attribute(1, 0, vk.FormatR32g32b32Sfloat, unsafe.Offsetof(g.Color)),
				attribute(2, 0, vk.FormatR32g32b32Sfloat, unsafe.Offsetof(g.Normal)),
			}
	case VertexLayoutText:
		var t metadata.TextVertex
		return []vk.VertexInputBindingDescription{{Binding: 0, Stride: uint32(unsafe.Sizeof(t)), InputRate: vk.VertexInputRateVertex}},
			[]vk.VertexInputAttributeDescription{
				attribute(0, 0, vk.FormatR32g32Sfloat, unsafe.Offsetof(t.Pos)),
				attribute(1, 0, vk.FormatR32g32Sfloat, unsafe.Offsetof(t.UV)),
			}
	}
	return nil, nil
}

/**
 * @brief Holds a Vulkan pipeline and the render pass generation it was built
 * against.
 */
type VulkanPipeline struct {
	Handle     vk.Pipeline
	Kind       PipelineKind
	Subpass    uint32
	Generation uint64
}

// checkGeneration fails when the pipeline targets a render pass that no longer exists.
func checkGeneration(pipeline, renderpass uint64) error {
	if pipeline != renderpass {
		return fmt.Errorf("%w: built for generation %d, render pass is at %d", core.ErrStalePipeline, pipeline, renderpass)
	}
	return nil
}

func NewGraphicsPipeline(vc *RenderContext, params PipelineParams, program *VulkanShaderProgram, renderpass *VulkanRenderpass, layout vk.PipelineLayout) (*VulkanPipeline, error) {
	stages, err := program.stageInfos()
	if err != nil {
		return nil, err
	}

	// Viewport and scissor are dynamic; the counts still have to be declared.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	switch params.CullMode {
	case metadata.FaceCullModeNone:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		fallthrough
	case metadata.FaceCullModeBack:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	// Reversed depth: nearer fragments have greater depth.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		DepthCompareOp:    vk.CompareOpGreaterOrEqual,
		StencilTestEnable: vk.False,
	}
	if params.DepthTest {
		depthStencil.DepthTestEnable = vk.True
	}
	if params.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	writeMask := vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit)
	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, params.ColorCount)
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:    vk.False,
			ColorWriteMask: writeMask,
		}
		if params.Blend {
			blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
				BlendEnable:         vk.True,
				SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
				DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				ColorBlendOp:        vk.BlendOpAdd,
				SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
				DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				AlphaBlendOp:        vk.BlendOpAdd,
				ColorWriteMask:      writeMask,
			}
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	bindings, attributes := vertexInput(params.Vertex)
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout,
		RenderPass:          renderpass.Handle,
		Subpass:             params.Subpass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		return vkError("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
			vc.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			vc.Allocator,
			pipelines))
	}); err != nil {
		err = fmt.Errorf("pipeline '%s': %w", params.Shader, err)
		core.LogError(err.Error())
		return nil, err
	}

	core.LogDebug("Graphics pipeline '%s' created for subpass %d.", params.Shader, params.Subpass)
	return &VulkanPipeline{
		Handle:     pipelines[0],
		Subpass:    params.Subpass,
		Generation: renderpass.Generation,
	}, nil
}

func (pipeline *VulkanPipeline) Destroy(vc *RenderContext) {
	if pipeline.Handle != vk.NullPipeline {
		_ = lockPool.SafeCall(PipelineManagement, func() error {
			vk.DestroyPipeline(vc.Device.LogicalDevice, pipeline.Handle, vc.Allocator)
			return nil
		})
		pipeline.Handle = vk.NullPipeline
	}
}

// Bind refuses a pipeline built for an older render pass.
func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, renderpass *VulkanRenderpass) error {
	if err := checkGeneration(pipeline.Generation, renderpass.Generation); err != nil {
		return err
	}
	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
	return nil
}

// PipelineSet holds one pipeline per kind, all built against the same render pass.
type PipelineSet struct {
	Pipelines [PipelineKindCount]*VulkanPipeline
}

/**
 * @brief Loads every program from source and builds the pipelines. A missing
 * shader stage fails the whole set; what was built so far is destroyed.
 */
func PipelineSetCreate(vc *RenderContext, source ShaderSource, renderpass *VulkanRenderpass, layout *StandardPipelineLayout) (*PipelineSet, error) {
	set := &PipelineSet{}
	for kind, params := range pipelineParams {
		code, err := source.LoadShaderProgram(params.Shader)
		if err != nil {
			set.Destroy(vc)
			core.LogError(err.Error())
			return nil, err
		}
		program, err := ShaderProgramCreate(vc, code)
		if err != nil {
			set.Destroy(vc)
			return nil, err
		}
		pipeline, err := NewGraphicsPipeline(vc, params, program, renderpass, layout.Handle)
		program.Destroy(vc)
		if err != nil {
			set.Destroy(vc)
			return nil, err
		}
		pipeline.Kind = PipelineKind(kind)
		set.Pipelines[kind] = pipeline
	}
	return set, nil
}

func (ps *PipelineSet) Get(kind PipelineKind) *VulkanPipeline {
	return ps.Pipelines[kind]
}

func (ps *PipelineSet) Destroy(vc *RenderContext) {
	for i, p := range ps.Pipelines {
		if p != nil {
			p.Destroy(vc)
			ps.Pipelines[i] = nil
		}
	}
}
