package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Material is one set of texture maps. A null map falls back to the default material's.
type Material struct {
	Name string
	Maps [metadata.MapCount]VulkanImage
}

type MaterialSet struct {
	Materials []*Material
	Default   *Material
}

// EffectiveMap returns m's map of the given kind, or the default's when m has none.
func (ms *MaterialSet) EffectiveMap(m *Material, kind metadata.MapKind) *VulkanImage {
	if m != nil && !m.Maps[kind].IsNull() {
		return &m.Maps[kind]
	}
	return &ms.Default.Maps[kind]
}

// Validate fails when the default material cannot back every fallback.
func (ms *MaterialSet) Validate() error {
	if ms.Default == nil {
		return fmt.Errorf("%w: no default material", core.ErrDefaultMaterialIncomplete)
	}
	for k := metadata.MapKind(0); k < metadata.MapCount; k++ {
		if ms.Default.Maps[k].IsNull() {
			return fmt.Errorf("%w: %s", core.ErrDefaultMaterialIncomplete, k)
		}
	}
	return nil
}

// Count includes the default material, which has index 0.
func (ms *MaterialSet) Count() int {
	return len(ms.Materials) + 1
}

// At returns the material with the given index as seen by shaders.
func (ms *MaterialSet) At(index int) *Material {
	if index == 0 {
		return ms.Default
	}
	return ms.Materials[index-1]
}

// IndexOf returns the shader index of the named material, 0 when unknown.
func (ms *MaterialSet) IndexOf(name string) uint32 {
	for i, m := range ms.Materials {
		if m.Name == name {
			return uint32(i + 1)
		}
	}
	return 0
}

// materialImageInfos lists the views bound at the material binding, fallback applied.
func (ms *MaterialSet) materialImageInfos(m *Material) []vk.ImageView {
	views := make([]vk.ImageView, metadata.MapCount)
	for k := metadata.MapKind(0); k < metadata.MapCount; k++ {
		views[k] = ms.EffectiveMap(m, k).View
	}
	return views
}

// link writes every material's maps into the matching PerMaterial set of a frame.
func (ms *MaterialSet) link(vc *RenderContext, sets []vk.DescriptorSet) {
	writes := make([]vk.WriteDescriptorSet, 0, ms.Count())
	for i := 0; i < ms.Count() && i < len(sets); i++ {
		writes = append(writes, imageWrite(sets[i], BindingMaterialMaps, vk.DescriptorTypeSampledImage,
			vk.ImageLayoutShaderReadOnlyOptimal, ms.materialImageInfos(ms.At(i))))
	}
	updateDescriptorSets(vc, writes)
}

func mapFormat(kind metadata.MapKind) vk.Format {
	if kind == metadata.MapAlbedo {
		return vk.FormatR8g8b8a8Srgb
	}
	return vk.FormatR8g8b8a8Unorm
}

func newMaterial(src metadata.MaterialSource, loader *ImageLoader) *Material {
	m := &Material{Name: src.Name}
	for k := metadata.MapKind(0); k < metadata.MapCount; k++ {
		if src.Paths[k] == "" {
			continue
		}
		m.Maps[k].Format = mapFormat(k)
		loader.Enqueue(src.Paths[k], &m.Maps[k])
	}
	return m
}

/**
 * @brief Queues every map of the scanned materials on the loader and uploads
 * them in one batch. The images are released with scope.
 */
func MaterialSetLoad(vc *RenderContext, loader *ImageLoader, sources []metadata.MaterialSource, def metadata.MaterialSource, scope *Scope) (*MaterialSet, error) {
	ms := &MaterialSet{Default: newMaterial(def, loader)}
	for _, src := range sources {
		ms.Materials = append(ms.Materials, newMaterial(src, loader))
	}
	if err := loader.Finalize(); err != nil {
		return nil, err
	}
	for i := 0; i < ms.Count(); i++ {
		m := ms.At(i)
		for k := range m.Maps {
			img := &m.Maps[k]
			scope.Push(func() { img.Destroy(vc) })
		}
	}
	if err := ms.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("Loaded %d materials.", ms.Count())
	return ms, nil
}
