package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(vc *RenderContext, renderpass *VulkanRenderpass, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	fb := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(fb.Attachments)),
		PAttachments:    fb.Attachments,
		Width:           renderpass.Extent.Width,
		Height:          renderpass.Extent.Height,
		Layers:          1,
	}
	if err := vkError("vkCreateFramebuffer", vk.CreateFramebuffer(vc.Device.LogicalDevice, &framebufferCreateInfo, vc.Allocator, &fb.Handle)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return fb, nil
}

func (vfb *VulkanFramebuffer) Destroy(vc *RenderContext) {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(vc.Device.LogicalDevice, vfb.Handle, vc.Allocator)
	}
	vfb.Handle = vk.NullFramebuffer
	vfb.Attachments = nil
	vfb.Renderpass = nil
}

// framebufferViews orders the views as the render pass expects them.
func framebufferViews(swapchainView, depthView vk.ImageView, gbuffer []*VulkanImage) []vk.ImageView {
	views := make([]vk.ImageView, 0, AttachmentCount)
	views = append(views, swapchainView, depthView)
	for _, img := range gbuffer {
		views = append(views, img.View)
	}
	return views
}
