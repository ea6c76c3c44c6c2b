package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// Attachment indices of the render pass and of every framebuffer.
const (
	AttachmentSwapchain uint32 = iota
	AttachmentDepth
	AttachmentPosition
	AttachmentNormal
	AttachmentAlbedo
	AttachmentMRHA
	AttachmentMaterialIndex
	AttachmentCount
)

const (
	SubpassGBuffer uint32 = iota
	SubpassLighting
	SubpassOverlay
	SubpassCount
)

// AttachmentSpec describes an attachment the renderer allocates itself.
type AttachmentSpec struct {
	Index  uint32
	Name   string
	Format vk.Format
	Usage  vk.ImageUsageFlags
	Aspect vk.ImageAspectFlags
	Extent vk.Extent2D
}

var gbufferFormats = [GBufferCount]struct {
	name   string
	format vk.Format
}{
	{"position", vk.FormatR32g32b32a32Sfloat},
	{"normal", vk.FormatR16g16b16a16Sfloat},
	{"albedo", vk.FormatR8g8b8a8Unorm},
	{"mrha", vk.FormatR8g8b8a8Unorm},
	{"material_index", vk.FormatR32Uint},
}

func depthAttachmentSpec(extent vk.Extent2D) AttachmentSpec {
	return AttachmentSpec{
		Index:  AttachmentDepth,
		Name:   "depth",
		Format: vk.FormatD32Sfloat,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Aspect: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		Extent: extent,
	}
}

// attachmentPlan lists the depth buffer and the G-buffer at extent, in attachment order.
func attachmentPlan(extent vk.Extent2D) []AttachmentSpec {
	plan := []AttachmentSpec{depthAttachmentSpec(extent)}
	for i, g := range gbufferFormats {
		plan = append(plan, AttachmentSpec{
			Index:  AttachmentPosition + uint32(i),
			Name:   g.name,
			Format: g.format,
			Usage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit |
				vk.ImageUsageInputAttachmentBit |
				vk.ImageUsageTransientAttachmentBit),
			Aspect: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			Extent: extent,
		})
	}
	return plan
}

type subpassSpec struct {
	Name   string
	Inputs []uint32
	Colors []uint32
	Depth  bool
}

var gbufferAttachments = []uint32{AttachmentPosition, AttachmentNormal, AttachmentAlbedo, AttachmentMRHA, AttachmentMaterialIndex}

var subpassPlan = [SubpassCount]subpassSpec{
	SubpassGBuffer:  {Name: "gbuffer", Colors: gbufferAttachments, Depth: true},
	SubpassLighting: {Name: "lighting", Inputs: gbufferAttachments, Colors: []uint32{AttachmentSwapchain}, Depth: true},
	SubpassOverlay:  {Name: "overlay", Colors: []uint32{AttachmentSwapchain}, Depth: true},
}

func subpassDependencies() []vk.SubpassDependency {
	colorOut := vk.PipelineStageColorAttachmentOutputBit
	return []vk.SubpassDependency{
		{
			// The previous frame still reads and writes the G-buffer and depth this pass clears.
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    SubpassGBuffer,
			SrcStageMask:  vk.PipelineStageFlags(colorOut | vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit | vk.PipelineStageFragmentShaderBit),
			DstStageMask:  vk.PipelineStageFlags(colorOut | vk.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
		},
		{
			SrcSubpass:      SubpassGBuffer,
			DstSubpass:      SubpassLighting,
			SrcStageMask:    vk.PipelineStageFlags(colorOut | vk.PipelineStageLateFragmentTestsBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit | vk.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessInputAttachmentReadBit | vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		},
		{
			SrcSubpass:    SubpassLighting,
			DstSubpass:    SubpassOverlay,
			SrcStageMask:  vk.PipelineStageFlags(colorOut | vk.PipelineStageLateFragmentTestsBit),
			DstStageMask:  vk.PipelineStageFlags(colorOut | vk.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit |
				vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		},
		{
			SrcSubpass:    SubpassOverlay,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(colorOut),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit),
		},
	}
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	// Incremented on every rebuild; pipelines record the value they were built against.
	Generation  uint64
	Extent      vk.Extent2D
	ClearValues []vk.ClearValue
}

/**
 * @brief Creates the single render pass: G-buffer write, lighting (deferred,
 * forward or visualize) and overlay subpasses over seven attachments.
 */
func RenderpassCreate(vc *RenderContext, colorFormat vk.Format, extent vk.Extent2D, generation uint64) (*VulkanRenderpass, error) {
	descriptions := make([]vk.AttachmentDescription, AttachmentCount)
	descriptions[AttachmentSwapchain] = vk.AttachmentDescription{
		Format:         colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	for _, a := range attachmentPlan(extent) {
		final := vk.ImageLayoutColorAttachmentOptimal
		if a.Index == AttachmentDepth {
			final = vk.ImageLayoutDepthStencilAttachmentOptimal
		}
		descriptions[a.Index] = vk.AttachmentDescription{
			Format:         a.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    final,
		}
	}

	subpasses := make([]vk.SubpassDescription, 0, SubpassCount)
	for _, sp := range subpassPlan {
		desc := vk.SubpassDescription{
			PipelineBindPoint: vk.PipelineBindPointGraphics,
		}
		for _, i := range sp.Inputs {
			desc.PInputAttachments = append(desc.PInputAttachments, vk.AttachmentReference{Attachment: i, Layout: vk.ImageLayoutShaderReadOnlyOptimal})
		}
		desc.InputAttachmentCount = uint32(len(desc.PInputAttachments))
		for _, i := range sp.Colors {
			desc.PColorAttachments = append(desc.PColorAttachments, vk.AttachmentReference{Attachment: i, Layout: vk.ImageLayoutColorAttachmentOptimal})
		}
		desc.ColorAttachmentCount = uint32(len(desc.PColorAttachments))
		if sp.Depth {
			desc.PDepthStencilAttachment = &vk.AttachmentReference{
				Attachment: AttachmentDepth,
				Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
			}
		}
		subpasses = append(subpasses, desc)
	}

	dependencies := subpassDependencies()
	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descriptions)),
		PAttachments:    descriptions,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	rp := &VulkanRenderpass{
		Generation: generation,
		Extent:     extent,
	}
	if err := vkError("vkCreateRenderPass", vk.CreateRenderPass(vc.Device.LogicalDevice, &renderpassCreateInfo, vc.Allocator, &rp.Handle)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	// Reversed depth: the far plane is 0.
	rp.ClearValues = make([]vk.ClearValue, AttachmentCount)
	rp.ClearValues[AttachmentSwapchain].SetColor([]float32{0.0, 0.0, 0.0, 1.0})
	rp.ClearValues[AttachmentDepth].SetDepthStencil(0.0, 0)
	for _, i := range gbufferAttachments {
		rp.ClearValues[i].SetColor([]float32{0.0, 0.0, 0.0, 0.0})
	}
	core.LogDebug("Renderpass created, generation %d.", generation)
	return rp, nil
}

func (vr *VulkanRenderpass) Destroy(vc *RenderContext) {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(vc.Device.LogicalDevice, vr.Handle, vc.Allocator)
		vr.Handle = vk.NullRenderPass
	}
}

func (vr *VulkanRenderpass) Begin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vr.Extent,
		},
		ClearValueCount: uint32(len(vr.ClearValues)),
		PClearValues:    vr.ClearValues,
	}
	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) NextSubpass(commandBuffer *VulkanCommandBuffer) {
	vk.CmdNextSubpass(commandBuffer.Handle, vk.SubpassContentsInline)
}

func (vr *VulkanRenderpass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
