package vulkan

import (
	"errors"
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	emath "github.com/spaghettifunk/lumen/engine/math"
)

type VulkanSwapchain struct {
	Config SurfaceConfig
	Handle vk.Swapchain
	Images []vk.Image
	Views  []vk.ImageView

	DepthAttachment *VulkanImage
}

type SurfaceSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// SurfaceConfig is the outcome of negotiating with the surface.
type SurfaceConfig struct {
	ImageCount   uint32
	Format       vk.SurfaceFormat
	PresentMode  vk.PresentMode
	Extent       vk.Extent2D
	Transform    vk.SurfaceTransformFlagBits
	DepthFormat  vk.Format
	DepthSamples vk.SampleCountFlagBits
}

/**
 * @brief Picks image count, color format, present mode and extent for the
 * requested framebuffer size. Present mode is always FIFO, the one mode every
 * implementation must support.
 * @returns ErrSurfaceMinimized when the resulting extent has a zero side.
 */
func negotiateSurface(support SurfaceSupport, width, height uint32) (SurfaceConfig, error) {
	caps := support.Capabilities
	config := SurfaceConfig{
		PresentMode:  vk.PresentModeFifo,
		Transform:    caps.CurrentTransform,
		DepthFormat:  vk.FormatD32Sfloat,
		DepthSamples: vk.SampleCount1Bit,
	}

	config.ImageCount = caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && config.ImageCount > caps.MaxImageCount {
		config.ImageCount = caps.MaxImageCount
	}

	if len(support.Formats) == 0 {
		return config, fmt.Errorf("surface reports no formats")
	}
	config.Format = support.Formats[0]
	for _, f := range support.Formats {
		if (f.Format == vk.FormatR8g8b8a8Srgb || f.Format == vk.FormatB8g8r8a8Srgb) &&
			f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			config.Format = f
			break
		}
	}

	if caps.CurrentExtent.Width != math.MaxUint32 {
		config.Extent = caps.CurrentExtent
	} else {
		config.Extent = vk.Extent2D{
			Width:  emath.Clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
			Height: emath.Clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
		}
	}
	if config.Extent.Width == 0 || config.Extent.Height == 0 {
		return config, core.ErrSurfaceMinimized
	}
	return config, nil
}

func querySurfaceSupport(gpu vk.PhysicalDevice, surface vk.Surface) (SurfaceSupport, error) {
	var support SurfaceSupport
	if err := vkError("vkGetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &support.Capabilities)); err != nil {
		return support, err
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := vkError("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)); err != nil {
		return support, err
	}
	if formatCount > 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := vkError("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, support.Formats)); err != nil {
			return support, err
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if err := vkError("vkGetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, nil)); err != nil {
		return support, err
	}
	if modeCount > 0 {
		support.PresentModes = make([]vk.PresentMode, modeCount)
		if err := vkError("vkGetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, support.PresentModes)); err != nil {
			return support, err
		}
	}
	return support, nil
}

/**
 * @brief Builds the swapchain, one view per image and the depth image. On
 * error everything created so far is destroyed; a chain is never left half
 * built.
 */
func createSurfaceChain(vc *RenderContext, width, height uint32) (*VulkanSwapchain, error) {
	support, err := querySurfaceSupport(vc.Device.PhysicalDevice, vc.Surface)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	config, err := negotiateSurface(support, width, height)
	if err != nil {
		return nil, err
	}

	swapchain := &VulkanSwapchain{Config: config}
	device := vc.Device.LogicalDevice

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vc.Surface,
		MinImageCount:    config.ImageCount,
		ImageFormat:      config.Format.Format,
		ImageColorSpace:  config.Format.ColorSpace,
		ImageExtent:      config.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		// A single queue family does both graphics and present.
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     config.Transform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      config.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if err := vkError("vkCreateSwapchain", vk.CreateSwapchain(device, &swapchainCreateInfo, vc.Allocator, &swapchain.Handle)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	var imageCount uint32
	if err := vkError("vkGetSwapchainImages", vk.GetSwapchainImages(device, swapchain.Handle, &imageCount, nil)); err != nil {
		swapchain.destroy(vc)
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Images = make([]vk.Image, imageCount)
	if err := vkError("vkGetSwapchainImages", vk.GetSwapchainImages(device, swapchain.Handle, &imageCount, swapchain.Images)); err != nil {
		swapchain.destroy(vc)
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Config.ImageCount = imageCount

	for i := range swapchain.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   config.Format.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := vkError("vkCreateImageView", vk.CreateImageView(device, &viewInfo, vc.Allocator, &view)); err != nil {
			swapchain.destroy(vc)
			core.LogError(err.Error())
			return nil, err
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	depth, err := ImageCreate(vc, ImageCreateInfo{
		Width:      config.Extent.Width,
		Height:     config.Extent.Height,
		Format:     config.DepthFormat,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Memory:     vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Aspect:     vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		CreateView: true,
	})
	if err != nil {
		swapchain.destroy(vc)
		return nil, err
	}
	swapchain.DepthAttachment = depth

	core.LogInfo("Swapchain created: %dx%d, %d images.", config.Extent.Width, config.Extent.Height, imageCount)
	return swapchain, nil
}

func (vs *VulkanSwapchain) destroy(vc *RenderContext) {
	device := vc.Device.LogicalDevice
	if vs.DepthAttachment != nil {
		vs.DepthAttachment.Destroy(vc)
		vs.DepthAttachment = nil
	}
	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for _, view := range vs.Views {
		vk.DestroyImageView(device, view, vc.Allocator)
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, vs.Handle, vc.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

// acquire returns the index of the next presentable image, signalling semaphore
// when it is ready.
func (vs *VulkanSwapchain) acquire(vc *RenderContext, semaphore vk.Semaphore) (uint32, error) {
	var index uint32
	result := vk.AcquireNextImage(vc.Device.LogicalDevice, vs.Handle, vk.MaxUint64, semaphore, vk.NullFence, &index)
	switch result {
	case vk.Success, vk.Suboptimal:
		return index, nil
	case vk.ErrorOutOfDate:
		return 0, core.ErrSwapchainOutOfDate
	}
	return 0, vkError("vkAcquireNextImage", result)
}

func (vs *VulkanSwapchain) present(vc *RenderContext, semaphore vk.Semaphore, index uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{index},
	}
	var result vk.Result
	_ = lockPool.SafeQueueCall(vc.Device.QueueIndex, func() error {
		result = vk.QueuePresent(vc.Device.Queue, &presentInfo)
		return nil
	})
	if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
		return core.ErrSwapchainOutOfDate
	}
	return vkError("vkQueuePresent", result)
}

func isStale(err error) bool {
	return errors.Is(err, core.ErrSwapchainOutOfDate)
}
