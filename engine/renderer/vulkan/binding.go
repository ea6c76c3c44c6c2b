package vulkan

import (
	"fmt"
	"sort"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Frequency groups bindings by how often they change. The value is also the set index.
type Frequency int

const (
	PerFrame Frequency = iota
	PerView
	PerMaterial
	PerDraw
	FrequencyCount
)

func (f Frequency) String() string {
	switch f {
	case PerFrame:
		return "PerFrame"
	case PerView:
		return "PerView"
	case PerMaterial:
		return "PerMaterial"
	case PerDraw:
		return "PerDraw"
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

const (
	SamplerCount = uint32(metadata.TextureFilterCount)
	GBufferCount = uint32(5)
)

// Bindings of the PerFrame set.
const (
	BindingFrameUniform uint32 = iota
	BindingFrameSamplers
	BindingFrameGBuffer
	BindingFrameOverlayAtlas
)

// Binding of the PerView and PerMaterial sets.
const (
	BindingViewUniform  uint32 = 0
	BindingMaterialMaps uint32 = 0
)

const (
	pushConstantSize     = uint32(unsafe.Sizeof(metadata.DrawPushConstants{}))
	allGraphicsStageBits = vk.ShaderStageVertexBit | vk.ShaderStageGeometryBit | vk.ShaderStageFragmentBit
)

type BindingDecl struct {
	Binding uint32
	Type    vk.DescriptorType
	Count   uint32
	Stages  vk.ShaderStageFlagBits
}

/**
 * @brief The fixed descriptor layout, one list per frequency. PerDraw has no
 * descriptors; per-draw data travels as instance attributes and push
 * constants.
 */
var bindingTable = [FrequencyCount][]BindingDecl{
	PerFrame: {
		{Binding: BindingFrameUniform, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stages: allGraphicsStageBits},
		{Binding: BindingFrameSamplers, Type: vk.DescriptorTypeSampler, Count: SamplerCount, Stages: vk.ShaderStageFragmentBit},
		{Binding: BindingFrameGBuffer, Type: vk.DescriptorTypeInputAttachment, Count: GBufferCount, Stages: vk.ShaderStageFragmentBit},
		{Binding: BindingFrameOverlayAtlas, Type: vk.DescriptorTypeSampledImage, Count: 1, Stages: vk.ShaderStageFragmentBit},
	},
	PerView: {
		{Binding: BindingViewUniform, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stages: allGraphicsStageBits},
	},
	PerMaterial: {
		{Binding: BindingMaterialMaps, Type: vk.DescriptorTypeSampledImage, Count: uint32(metadata.MapCount), Stages: vk.ShaderStageFragmentBit},
	},
	PerDraw: {},
}

// Fails to compile if the table and the enumeration disagree.
var _ [FrequencyCount]struct{} = [len(bindingTable)]struct{}{}

// PoolRequest is the number of sets wanted per frequency. Every frequency but
// PerFrame is needed once per frame set, so those counts are multiplied by
// the PerFrame count.
type PoolRequest struct {
	Sets [FrequencyCount]uint32
}

func (r PoolRequest) effectiveSets() [FrequencyCount]uint32 {
	var sets [FrequencyCount]uint32
	frames := r.Sets[PerFrame]
	for f := Frequency(0); f < FrequencyCount; f++ {
		if f == PerFrame {
			sets[f] = frames
			continue
		}
		sets[f] = r.Sets[f] * frames
	}
	return sets
}

// MaxSets is the number of sets the pool must be able to hand out.
func (r PoolRequest) MaxSets() uint32 {
	var total uint32
	for _, n := range r.effectiveSets() {
		total += n
	}
	return total
}

// DescriptorCounts is the per-type histogram of descriptors the request needs.
func (r PoolRequest) DescriptorCounts() map[vk.DescriptorType]uint32 {
	counts := make(map[vk.DescriptorType]uint32)
	sets := r.effectiveSets()
	for f, decls := range bindingTable {
		for _, d := range decls {
			counts[d.Type] += d.Count * sets[f]
		}
	}
	return counts
}

// PoolSizes lists the histogram ordered by descriptor type, zero entries dropped.
func (r PoolRequest) PoolSizes() []vk.DescriptorPoolSize {
	counts := r.DescriptorCounts()
	sizes := make([]vk.DescriptorPoolSize, 0, len(counts))
	for t, n := range counts {
		if n == 0 {
			continue
		}
		sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: n})
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].Type < sizes[j].Type })
	return sizes
}

// setBudget tracks live sets against what a pool was sized for.
type setBudget struct {
	limit [FrequencyCount]uint32
	live  [FrequencyCount]uint32
}

func newSetBudget(r PoolRequest) setBudget {
	return setBudget{limit: r.effectiveSets()}
}

func (b *setBudget) take(f Frequency) error {
	if f < 0 || f >= FrequencyCount {
		return fmt.Errorf("invalid frequency %d", int(f))
	}
	if b.live[f] >= b.limit[f] {
		return fmt.Errorf("%w: %s has %d of %d sets live", core.ErrDescriptorPoolExhausted, f, b.live[f], b.limit[f])
	}
	b.live[f]++
	return nil
}

func (b *setBudget) reset() {
	b.live = [FrequencyCount]uint32{}
}

/**
 * @brief The layout every pipeline shares: immutable samplers, one set
 * layout per frequency and the push constant range.
 */
type StandardPipelineLayout struct {
	Samplers   [SamplerCount]vk.Sampler
	SetLayouts [FrequencyCount]vk.DescriptorSetLayout
	Handle     vk.PipelineLayout
}

func createSampler(vc *RenderContext, config metadata.SamplerConfig) (vk.Sampler, error) {
	filter := vk.FilterLinear
	mipmap := vk.SamplerMipmapModeLinear
	if config.Filter == metadata.TextureFilterModeNearest {
		filter = vk.FilterNearest
		mipmap = vk.SamplerMipmapModeNearest
	}
	address := vk.SamplerAddressModeRepeat
	switch config.Repeat {
	case metadata.TextureRepeatMirroredRepeat:
		address = vk.SamplerAddressModeMirroredRepeat
	case metadata.TextureRepeatClampToEdge:
		address = vk.SamplerAddressModeClampToEdge
	case metadata.TextureRepeatClampToBorder:
		address = vk.SamplerAddressModeClampToBorder
	}

	limits := vc.Device.Properties.Limits
	limits.Deref()
	anisotropy := config.MaxAnisotropy
	if anisotropy > limits.MaxSamplerAnisotropy {
		anisotropy = limits.MaxSamplerAnisotropy
	}

	samplerInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        filter,
		MinFilter:        filter,
		MipmapMode:       mipmap,
		AddressModeU:     address,
		AddressModeV:     address,
		AddressModeW:     address,
		AnisotropyEnable: vk.False,
		MaxAnisotropy:    anisotropy,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
		CompareOp:        vk.CompareOpAlways,
	}
	if anisotropy > 1 {
		samplerInfo.AnisotropyEnable = vk.True
	}
	var sampler vk.Sampler
	if err := vkError("vkCreateSampler", vk.CreateSampler(vc.Device.LogicalDevice, &samplerInfo, vc.Allocator, &sampler)); err != nil {
		core.LogError(err.Error())
		return vk.NullSampler, err
	}
	return sampler, nil
}

// StandardPipelineLayoutCreate pushes every object it creates into scope.
func StandardPipelineLayoutCreate(vc *RenderContext, scope *Scope) (*StandardPipelineLayout, error) {
	layout := &StandardPipelineLayout{}
	device := vc.Device.LogicalDevice

	for i, config := range metadata.ImmutableSamplers() {
		sampler, err := createSampler(vc, config)
		if err != nil {
			return nil, err
		}
		layout.Samplers[i] = sampler
		scope.Push(func() { vk.DestroySampler(device, sampler, vc.Allocator) })
	}

	for f, decls := range bindingTable {
		bindings := make([]vk.DescriptorSetLayoutBinding, 0, len(decls))
		for _, d := range decls {
			b := vk.DescriptorSetLayoutBinding{
				Binding:         d.Binding,
				DescriptorType:  d.Type,
				DescriptorCount: d.Count,
				StageFlags:      vk.ShaderStageFlags(d.Stages),
			}
			if d.Type == vk.DescriptorTypeSampler {
				b.PImmutableSamplers = layout.Samplers[:]
			}
			bindings = append(bindings, b)
		}
		layoutInfo := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}
		var setLayout vk.DescriptorSetLayout
		if err := vkError("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(device, &layoutInfo, vc.Allocator, &setLayout)); err != nil {
			core.LogError(err.Error())
			return nil, err
		}
		layout.SetLayouts[f] = setLayout
		scope.Push(func() { vk.DestroyDescriptorSetLayout(device, setLayout, vc.Allocator) })
	}

	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(FrequencyCount),
		PSetLayouts:            layout.SetLayouts[:],
		PushConstantRangeCount: 1,
		PPushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(allGraphicsStageBits),
			Offset:     0,
			Size:       pushConstantSize,
		}},
	}
	if err := vkError("vkCreatePipelineLayout", vk.CreatePipelineLayout(device, &pipelineLayoutInfo, vc.Allocator, &layout.Handle)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	handle := layout.Handle
	scope.Push(func() { vk.DestroyPipelineLayout(device, handle, vc.Allocator) })
	return layout, nil
}

// DescriptorAllocator hands out sets from a pool sized exactly for one request.
type DescriptorAllocator struct {
	Pool   vk.DescriptorPool
	layout *StandardPipelineLayout
	budget setBudget
}

func DescriptorAllocatorCreate(vc *RenderContext, layout *StandardPipelineLayout, request PoolRequest, scope *Scope) (*DescriptorAllocator, error) {
	sizes := request.PoolSizes()
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       request.MaxSets(),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	allocator := &DescriptorAllocator{
		layout: layout,
		budget: newSetBudget(request),
	}
	device := vc.Device.LogicalDevice
	if err := vkError("vkCreateDescriptorPool", vk.CreateDescriptorPool(device, &poolInfo, vc.Allocator, &allocator.Pool)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	pool := allocator.Pool
	scope.Push(func() { vk.DestroyDescriptorPool(device, pool, vc.Allocator) })
	core.LogDebug("Descriptor pool created: %d sets, %d pool sizes.", request.MaxSets(), len(sizes))
	return allocator, nil
}

// Allocate returns ErrDescriptorPoolExhausted past the reserved count.
func (da *DescriptorAllocator) Allocate(vc *RenderContext, f Frequency) (vk.DescriptorSet, error) {
	if err := da.budget.take(f); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     da.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{da.layout.SetLayouts[f]},
	}
	sets := make([]vk.DescriptorSet, 1)
	if err := vkError("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(vc.Device.LogicalDevice, &allocateInfo, &sets[0])); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return sets[0], nil
}

// Reset returns every set to the pool.
func (da *DescriptorAllocator) Reset(vc *RenderContext) error {
	if err := vkError("vkResetDescriptorPool", vk.ResetDescriptorPool(vc.Device.LogicalDevice, da.Pool, 0)); err != nil {
		core.LogError(err.Error())
		return err
	}
	da.budget.reset()
	return nil
}

func bufferWrite(set vk.DescriptorSet, binding uint32, buffer *VulkanBuffer) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer.Handle,
			Offset: 0,
			Range:  vk.DeviceSize(buffer.Size),
		}},
	}
}

func imageWrite(set vk.DescriptorSet, binding uint32, kind vk.DescriptorType, layout vk.ImageLayout, views []vk.ImageView) vk.WriteDescriptorSet {
	infos := make([]vk.DescriptorImageInfo, len(views))
	for i, v := range views {
		infos[i] = vk.DescriptorImageInfo{
			ImageView:   v,
			ImageLayout: layout,
		}
	}
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: uint32(len(infos)),
		DescriptorType:  kind,
		PImageInfo:      infos,
	}
}

func updateDescriptorSets(vc *RenderContext, writes []vk.WriteDescriptorSet) {
	if len(writes) == 0 {
		return
	}
	vk.UpdateDescriptorSets(vc.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}
