package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// VulkanBuffer owns one buffer and its memory allocation.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlags

	// Non-nil while the memory is mapped.
	mapped unsafe.Pointer
}

func BufferCreate(vc *RenderContext, size uint64, usage vk.BufferUsageFlagBits, memoryFlags vk.MemoryPropertyFlagBits) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("buffer size must be greater than zero")
	}
	buffer := &VulkanBuffer{
		Size:  size,
		Usage: vk.BufferUsageFlags(usage),
	}
	device := vc.Device.LogicalDevice

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Usage:       buffer.Usage,
		Size:        vk.DeviceSize(size),
		SharingMode: vk.SharingModeExclusive,
	}
	if err := vkError("vkCreateBuffer", vk.CreateBuffer(device, &bufferInfo, vc.Allocator, &buffer.Handle)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer.Handle, &requirements)
	requirements.Deref()

	memoryIndex := vc.FindMemoryIndex(requirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex == -1 {
		buffer.Destroy(vc)
		err := fmt.Errorf("unable to create vulkan buffer because the required memory type index was not found")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	if err := vkError("vkAllocateMemory", vk.AllocateMemory(device, &allocateInfo, vc.Allocator, &buffer.Memory)); err != nil {
		buffer.Destroy(vc)
		core.LogError(err.Error())
		return nil, err
	}
	if err := vkError("vkBindBufferMemory", vk.BindBufferMemory(device, buffer.Handle, buffer.Memory, 0)); err != nil {
		buffer.Destroy(vc)
		core.LogError(err.Error())
		return nil, err
	}
	return buffer, nil
}

func (vb *VulkanBuffer) Destroy(vc *RenderContext) {
	device := vc.Device.LogicalDevice
	if vb.mapped != nil {
		vk.UnmapMemory(device, vb.Memory)
		vb.mapped = nil
	}
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, vb.Memory, vc.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, vb.Handle, vc.Allocator)
		vb.Handle = vk.NullBuffer
	}
}

// Map keeps the whole buffer mapped until Destroy. Host-coherent memory only.
func (vb *VulkanBuffer) Map(vc *RenderContext) error {
	if vb.mapped != nil {
		return nil
	}
	var ptr unsafe.Pointer
	if err := vkError("vkMapMemory", vk.MapMemory(vc.Device.LogicalDevice, vb.Memory, 0, vk.DeviceSize(vb.Size), 0, &ptr)); err != nil {
		core.LogError(err.Error())
		return err
	}
	vb.mapped = ptr
	return nil
}

// Write copies data into the mapped range at offset.
func (vb *VulkanBuffer) Write(offset uint64, data []byte) error {
	if vb.mapped == nil {
		return fmt.Errorf("buffer is not mapped")
	}
	if offset+uint64(len(data)) > vb.Size {
		return fmt.Errorf("write of %d bytes at offset %d overflows buffer of %d bytes", len(data), offset, vb.Size)
	}
	dst := unsafe.Slice((*byte)(unsafe.Add(vb.mapped, offset)), len(data))
	copy(dst, data)
	return nil
}

// Staging creates a host visible buffer already filled with data.
func Staging(vc *RenderContext, data []byte) (*VulkanBuffer, error) {
	staging, err := BufferCreate(vc, uint64(len(data)), vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	if err := staging.Map(vc); err != nil {
		staging.Destroy(vc)
		return nil, err
	}
	if err := staging.Write(0, data); err != nil {
		staging.Destroy(vc)
		return nil, err
	}
	return staging, nil
}

/**
 * @brief Creates a device local buffer and fills it through a staging buffer
 * and a one-shot copy. The staging buffer is destroyed once the copy has
 * completed.
 */
func UploadDeviceLocal(vc *RenderContext, usage vk.BufferUsageFlagBits, data []byte) (*VulkanBuffer, error) {
	staging, err := Staging(vc, data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(vc)

	buffer, err := BufferCreate(vc, uint64(len(data)), usage|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}

	pool := vc.Device.TransientCommandPool
	cb, err := AllocateAndBeginSingleUse(vc, pool)
	if err != nil {
		buffer.Destroy(vc)
		return nil, err
	}
	vk.CmdCopyBuffer(cb.Handle, staging.Handle, buffer.Handle, 1, []vk.BufferCopy{{
		Size: vk.DeviceSize(len(data)),
	}})
	if err := cb.EndSingleUse(vc, pool, vc.Device.Queue); err != nil {
		buffer.Destroy(vc)
		return nil, err
	}
	return buffer, nil
}

// sliceBytes views a slice of plain values as raw bytes without copying.
func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// valueBytes views a single value as raw bytes without copying.
func valueBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}
