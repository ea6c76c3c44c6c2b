package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	emath "github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type SlotState int

const (
	SlotIdle SlotState = iota
	SlotAcquiring
	SlotRecording
	SlotSubmitted
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "Idle"
	case SlotAcquiring:
		return "Acquiring"
	case SlotRecording:
		return "Recording"
	case SlotSubmitted:
		return "Submitted"
	}
	return fmt.Sprintf("SlotState(%d)", int(s))
}

// fenceGate is the "frame available" fence of every slot.
type fenceGate interface {
	wait(slot int) error
	reset(slot int) error
}

/**
 * @brief Round-robin over the frame slots. The fence wait in begin is the only
 * backpressure: a slot is reused only after the GPU retired its previous
 * submission, so at most len(states) slots are ever Recording or Submitted.
 */
type frameScheduler struct {
	states []SlotState
	active int
	gate   fenceGate
}

func newFrameScheduler(slots int, gate fenceGate) *frameScheduler {
	return &frameScheduler{
		states: make([]SlotState, slots),
		gate:   gate,
	}
}

// begin waits for the active slot to retire and moves it to Acquiring.
func (s *frameScheduler) begin() (int, error) {
	cur := s.active
	if err := s.gate.wait(cur); err != nil {
		return cur, err
	}
	s.states[cur] = SlotAcquiring
	return cur, nil
}

// abort returns the slot to Idle after a stale acquire. The fence stays signaled.
func (s *frameScheduler) abort(cur int) {
	s.states[cur] = SlotIdle
}

// acquired advances the active index and rearms the slot's fence.
func (s *frameScheduler) acquired(cur int) error {
	s.active = (cur + 1) % len(s.states)
	if err := s.gate.reset(cur); err != nil {
		return err
	}
	s.states[cur] = SlotRecording
	return nil
}

func (s *frameScheduler) submitted(cur int) {
	s.states[cur] = SlotSubmitted
}

// inFlight counts slots that are Recording or Submitted.
func (s *frameScheduler) inFlight() int {
	n := 0
	for _, st := range s.states {
		if st == SlotRecording || st == SlotSubmitted {
			n++
		}
	}
	return n
}

type FrameSync struct {
	// Signaled when the GPU finished this slot's command buffer.
	Fence *VulkanFence
	// Signaled by acquire, waited on by the submit.
	ImagePresented vk.Semaphore
	// Signaled by the submit, waited on by present.
	RenderFinished vk.Semaphore
}

/**
 * @brief Resources exclusively owned by one frame slot.
 */
type Frame struct {
	CommandPool   vk.CommandPool
	CommandBuffer *VulkanCommandBuffer

	FrameUniform *VulkanBuffer
	ViewUniform  *VulkanBuffer

	FrameSet     vk.DescriptorSet
	ViewSet      vk.DescriptorSet
	MaterialSets []vk.DescriptorSet

	Overlay *OverlayText

	Sync FrameSync
}

func createSemaphore(vc *RenderContext, scope *Scope) (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := vkError("vkCreateSemaphore", vk.CreateSemaphore(vc.Device.LogicalDevice, &semaphoreCreateInfo, vc.Allocator, &semaphore)); err != nil {
		core.LogError(err.Error())
		return vk.NullSemaphore, err
	}
	device := vc.Device.LogicalDevice
	scope.Push(func() { vk.DestroySemaphore(device, semaphore, vc.Allocator) })
	return semaphore, nil
}

// FrameCreate builds one slot. Everything it creates is pushed into scope.
func FrameCreate(vc *RenderContext, descriptors *DescriptorAllocator, materialCount int, scope *Scope) (*Frame, error) {
	frame := &Frame{}
	device := vc.Device.LogicalDevice

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: vc.Device.QueueIndex,
	}
	if err := vkError("vkCreateCommandPool", vk.CreateCommandPool(device, &poolCreateInfo, vc.Allocator, &frame.CommandPool)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	pool := frame.CommandPool
	scope.Push(func() { vk.DestroyCommandPool(device, pool, vc.Allocator) })

	cb, err := NewVulkanCommandBuffer(vc, frame.CommandPool, true)
	if err != nil {
		return nil, err
	}
	frame.CommandBuffer = cb

	uniforms := []struct {
		out  **VulkanBuffer
		size uint64
	}{
		{&frame.FrameUniform, uint64(unsafe.Sizeof(metadata.FrameUniformBlock{}))},
		{&frame.ViewUniform, uint64(unsafe.Sizeof(metadata.ViewUniformBlock{}))},
	}
	limits := vc.Device.Properties.Limits
	limits.Deref()
	for _, u := range uniforms {
		size := emath.AlignUp(u.size, uint64(limits.MinUniformBufferOffsetAlignment))
		buffer, err := BufferCreate(vc, size, vk.BufferUsageUniformBufferBit,
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			return nil, err
		}
		scope.Push(func() { buffer.Destroy(vc) })
		if err := buffer.Map(vc); err != nil {
			return nil, err
		}
		*u.out = buffer
	}

	if frame.FrameSet, err = descriptors.Allocate(vc, PerFrame); err != nil {
		return nil, err
	}
	if frame.ViewSet, err = descriptors.Allocate(vc, PerView); err != nil {
		return nil, err
	}
	for i := 0; i < materialCount; i++ {
		set, err := descriptors.Allocate(vc, PerMaterial)
		if err != nil {
			return nil, err
		}
		frame.MaterialSets = append(frame.MaterialSets, set)
	}
	updateDescriptorSets(vc, []vk.WriteDescriptorSet{
		bufferWrite(frame.FrameSet, BindingFrameUniform, frame.FrameUniform),
		bufferWrite(frame.ViewSet, BindingViewUniform, frame.ViewUniform),
	})

	overlay, err := OverlayTextCreate(vc, scope)
	if err != nil {
		return nil, err
	}
	frame.Overlay = overlay

	// Created signaled so the first wait on this slot returns immediately.
	fence, err := NewFence(vc, true)
	if err != nil {
		return nil, err
	}
	scope.Push(func() { fence.Destroy(vc) })
	frame.Sync.Fence = fence

	if frame.Sync.ImagePresented, err = createSemaphore(vc, scope); err != nil {
		return nil, err
	}
	if frame.Sync.RenderFinished, err = createSemaphore(vc, scope); err != nil {
		return nil, err
	}
	return frame, nil
}

// resetCommandPool releases the memory of every command buffer recorded from the pool.
func (f *Frame) resetCommandPool(vc *RenderContext) error {
	flags := vk.CommandPoolResetFlags(vk.CommandPoolResetReleaseResourcesBit)
	if err := vkError("vkResetCommandPool", vk.ResetCommandPool(vc.Device.LogicalDevice, f.CommandPool, flags)); err != nil {
		core.LogError(err.Error())
		return err
	}
	f.CommandBuffer.Reset()
	return nil
}

func (f *Frame) writeUniforms(frameBlock *metadata.FrameUniformBlock, viewBlock *metadata.ViewUniformBlock) error {
	if err := f.FrameUniform.Write(0, valueBytes(frameBlock)); err != nil {
		return err
	}
	return f.ViewUniform.Write(0, valueBytes(viewBlock))
}

// frameFences adapts the slots' fences to the scheduler.
type frameFences struct {
	vc     *RenderContext
	frames []*Frame
}

func (g frameFences) wait(slot int) error {
	return g.frames[slot].Sync.Fence.Wait(g.vc)
}

func (g frameFences) reset(slot int) error {
	return g.frames[slot].Sync.Fence.Reset(g.vc)
}
