package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanFence struct {
	Handle vk.Fence
}

func NewFence(vc *RenderContext, createSignaled bool) (*VulkanFence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if err := vkError("vkCreateFence", vk.CreateFence(vc.Device.LogicalDevice, &fenceCreateInfo, vc.Allocator, &handle)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanFence{Handle: handle}, nil
}

func (vf *VulkanFence) Destroy(vc *RenderContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(vc.Device.LogicalDevice, vf.Handle, vc.Allocator)
		vf.Handle = vk.NullFence
	}
}

// Wait blocks until the GPU signals the fence. Only a device error ends the wait early.
func (vf *VulkanFence) Wait(vc *RenderContext) error {
	result := vk.WaitForFences(vc.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, vk.MaxUint64)
	switch result {
	case vk.Success:
		return nil
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	case vk.ErrorOutOfHostMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		core.LogError("vk_fence_wait - An unknown error has occurred.")
	}
	return fmt.Errorf("fence wait: %w", vkError("vkWaitForFences", result))
}

func (vf *VulkanFence) Reset(vc *RenderContext) error {
	if err := vkError("vkResetFences", vk.ResetFences(vc.Device.LogicalDevice, 1, []vk.Fence{vf.Handle})); err != nil {
		core.LogError(err.Error())
		return err
	}
	return nil
}
