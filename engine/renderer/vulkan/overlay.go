package vulkan

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Glyphs one overlay can show. Longer strings are cut.
const OverlayMaxGlyphs = 256

/**
 * @brief Host visible geometry of the overlay text. Each frame slot owns one
 * so the CPU never rewrites vertices the GPU is still reading.
 */
type OverlayText struct {
	Vertices   *VulkanBuffer
	Indices    *VulkanBuffer
	IndexCount uint32

	// Last string written, to skip identical rewrites.
	text string
}

func OverlayTextCreate(vc *RenderContext, scope *Scope) (*OverlayText, error) {
	overlay := &OverlayText{}
	var v metadata.TextVertex
	sizes := []struct {
		out   **VulkanBuffer
		size  uint64
		usage vk.BufferUsageFlagBits
	}{
		{&overlay.Vertices, uint64(OverlayMaxGlyphs*4) * uint64(unsafe.Sizeof(v)), vk.BufferUsageVertexBufferBit},
		{&overlay.Indices, uint64(OverlayMaxGlyphs*6) * 4, vk.BufferUsageIndexBufferBit},
	}
	for _, s := range sizes {
		buffer, err := BufferCreate(vc, s.size, s.usage, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			return nil, err
		}
		scope.Push(func() { buffer.Destroy(vc) })
		if err := buffer.Map(vc); err != nil {
			return nil, err
		}
		*s.out = buffer
	}
	return overlay, nil
}

// clipGlyphs drops quads past the buffer capacity.
func clipGlyphs(vertices []metadata.TextVertex, indices []uint32) ([]metadata.TextVertex, []uint32) {
	if len(vertices) > OverlayMaxGlyphs*4 {
		vertices = vertices[:OverlayMaxGlyphs*4]
	}
	if len(indices) > OverlayMaxGlyphs*6 {
		indices = indices[:OverlayMaxGlyphs*6]
	}
	return vertices, indices
}

// Update lays out text at the top-left corner. Must only be called on a slot that is Recording.
func (o *OverlayText) Update(font *metadata.FontData, text string, x, y, scale float32) error {
	if text == o.text && o.IndexCount > 0 {
		return nil
	}
	vertices, indices := clipGlyphs(font.LayoutText(text, x, y, scale))
	if len(indices) > 0 {
		if err := o.Vertices.Write(0, sliceBytes(vertices)); err != nil {
			return err
		}
		if err := o.Indices.Write(0, sliceBytes(indices)); err != nil {
			return err
		}
	}
	o.IndexCount = uint32(len(indices))
	o.text = text
	return nil
}

// overlayProjection maps framebuffer pixels, origin top-left, to clip space.
func overlayProjection(width, height uint32) mgl32.Mat4 {
	return mgl32.Ortho(0, float32(width), 0, float32(height), -1, 1)
}

// Record draws the text. The overlay pipeline must already be bound.
func (o *OverlayText) Record(commandBuffer *VulkanCommandBuffer, layout vk.PipelineLayout, width, height uint32) {
	if o.IndexCount == 0 {
		return
	}
	pc := metadata.DrawPushConstants{Transform: overlayProjection(width, height)}
	vk.CmdPushConstants(commandBuffer.Handle, layout, vk.ShaderStageFlags(allGraphicsStageBits), 0, pushConstantSize, unsafe.Pointer(&pc))
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{o.Vertices.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, o.Indices.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(commandBuffer.Handle, o.IndexCount, 1, 0, 0, 0)
}
