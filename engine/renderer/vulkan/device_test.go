package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suitableAdapter() AdapterInfo {
	return AdapterInfo{
		Name: "Test GPU",
		Type: vk.PhysicalDeviceTypeDiscreteGpu,
		Features: AdapterFeatures{
			GeometryShader:     true,
			TessellationShader: true,
			FillModeNonSolid:   true,
			DepthClamp:         true,
			SamplerAnisotropy:  true,
		},
		Extensions: []string{"VK_KHR_maintenance1", vk.KhrSwapchainExtensionName},
		QueueFamilies: []QueueFamilyInfo{
			{Transfer: true},
			{Graphics: true, Transfer: true, Compute: true, Present: true},
		},
		FormatCount:      2,
		PresentModeCount: 1,
	}
}

func TestCheckAdapterAcceptsSuitableDevice(t *testing.T) {
	index, err := checkAdapter(suitableAdapter())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), index)

	integrated := suitableAdapter()
	integrated.Type = vk.PhysicalDeviceTypeIntegratedGpu
	_, err = checkAdapter(integrated)
	assert.NoError(t, err)
}

func TestCheckAdapterRejections(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*AdapterInfo)
		reason string
	}{
		{"no geometry shader", func(a *AdapterInfo) { a.Features.GeometryShader = false }, "geometryShader"},
		{"no tessellation", func(a *AdapterInfo) { a.Features.TessellationShader = false }, "tessellationShader"},
		{"no wireframe", func(a *AdapterInfo) { a.Features.FillModeNonSolid = false }, "fillModeNonSolid"},
		{"no depth clamp", func(a *AdapterInfo) { a.Features.DepthClamp = false }, "depthClamp"},
		{"no anisotropy", func(a *AdapterInfo) { a.Features.SamplerAnisotropy = false }, "samplerAnisotropy"},
		{"software", func(a *AdapterInfo) { a.Type = vk.PhysicalDeviceTypeCpu }, "neither discrete nor integrated"},
		{"virtual", func(a *AdapterInfo) { a.Type = vk.PhysicalDeviceTypeVirtualGpu }, "neither discrete nor integrated"},
		{"no swapchain", func(a *AdapterInfo) { a.Extensions = []string{"VK_KHR_maintenance1"} }, vk.KhrSwapchainExtensionName},
		{"present on another family", func(a *AdapterInfo) {
			a.QueueFamilies = []QueueFamilyInfo{
				{Graphics: true, Transfer: true, Compute: true},
				{Present: true},
			}
		}, "no queue family"},
		{"no compute", func(a *AdapterInfo) {
			a.QueueFamilies = []QueueFamilyInfo{{Graphics: true, Transfer: true, Present: true}}
		}, "no queue family"},
		{"no formats", func(a *AdapterInfo) { a.FormatCount = 0 }, "swapchain support"},
		{"no present modes", func(a *AdapterInfo) { a.PresentModeCount = 0 }, "swapchain support"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := suitableAdapter()
			tt.modify(&info)
			_, err := checkAdapter(info)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestRequiredFeaturesMatchAdapterCheck(t *testing.T) {
	f := requiredFeatures()
	assert.Equal(t, vk.Bool32(vk.True), f.GeometryShader)
	assert.Equal(t, vk.Bool32(vk.True), f.TessellationShader)
	assert.Equal(t, vk.Bool32(vk.True), f.FillModeNonSolid)
	assert.Equal(t, vk.Bool32(vk.True), f.DepthClamp)
	assert.Equal(t, vk.Bool32(vk.True), f.SamplerAnisotropy)
}
