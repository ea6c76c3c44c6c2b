package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// MaxFramesInFlight is the number of frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

/**
 * @brief Everything the renderer owns on the GPU, split by lifetime:
 * objects that live as long as the device and objects rebuilt with the
 * swapchain.
 */
type RenderContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain    *VulkanSwapchain
	Renderpass   *VulkanRenderpass
	GBuffer      []*VulkanImage
	Framebuffers []*VulkanFramebuffer
	Pipelines    *PipelineSet

	Layout *StandardPipelineLayout

	// Incremented every time the render pass is rebuilt.
	RenderpassGeneration uint64

	deviceScope    *Scope
	swapchainScope *Scope
}

func NewRenderContext() *RenderContext {
	return &RenderContext{
		deviceScope:    NewScope("device"),
		swapchainScope: NewScope("swapchain"),
	}
}

func (vc *RenderContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	memoryProperties := vc.Device.Memory
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
