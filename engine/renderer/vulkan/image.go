package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// VulkanImage owns one image, its memory and at most one view. A zero value
// is the null image.
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
	Aspect vk.ImageAspectFlags
}

// IsNull reports whether the image has no view to bind.
func (vi *VulkanImage) IsNull() bool {
	return vi == nil || vi.Handle == vk.NullImage || vi.View == vk.NullImageView
}

type ImageCreateInfo struct {
	Width      uint32
	Height     uint32
	Format     vk.Format
	Usage      vk.ImageUsageFlags
	Memory     vk.MemoryPropertyFlags
	Aspect     vk.ImageAspectFlags
	CreateView bool
}

func ImageCreate(vc *RenderContext, info ImageCreateInfo) (*VulkanImage, error) {
	img := &VulkanImage{
		Width:  info.Width,
		Height: info.Height,
		Format: info.Format,
		Aspect: info.Aspect,
	}
	device := vc.Device.LogicalDevice

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    info.Format,
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         info.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if err := vkError("vkCreateImage", vk.CreateImage(device, &imageCreateInfo, vc.Allocator, &img.Handle)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, img.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := vc.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(info.Memory))
	if memoryType == -1 {
		img.Destroy(vc)
		err := fmt.Errorf("required memory type not found, image not valid")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if err := vkError("vkAllocateMemory", vk.AllocateMemory(device, &allocateInfo, vc.Allocator, &img.Memory)); err != nil {
		img.Destroy(vc)
		core.LogError(err.Error())
		return nil, err
	}
	if err := vkError("vkBindImageMemory", vk.BindImageMemory(device, img.Handle, img.Memory, 0)); err != nil {
		img.Destroy(vc)
		core.LogError(err.Error())
		return nil, err
	}

	if info.CreateView {
		if err := img.CreateView(vc); err != nil {
			img.Destroy(vc)
			return nil, err
		}
	}
	return img, nil
}

func (vi *VulkanImage) CreateView(vc *RenderContext) error {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vi.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   vi.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vi.Aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	if err := vkError("vkCreateImageView", vk.CreateImageView(vc.Device.LogicalDevice, &viewCreateInfo, vc.Allocator, &vi.View)); err != nil {
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (vi *VulkanImage) Destroy(vc *RenderContext) {
	device := vc.Device.LogicalDevice
	if vi.View != vk.NullImageView {
		vk.DestroyImageView(device, vi.View, vc.Allocator)
		vi.View = vk.NullImageView
	}
	if vi.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, vi.Memory, vc.Allocator)
		vi.Memory = vk.NullDeviceMemory
	}
	if vi.Handle != vk.NullImage {
		vk.DestroyImage(device, vi.Handle, vc.Allocator)
		vi.Handle = vk.NullImage
	}
}

// transitionBarrier builds a layout transition for the whole color image.
func transitionBarrier(image vk.Image, from, to vk.ImageLayout, srcAccess, dstAccess vk.AccessFlagBits) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
}
