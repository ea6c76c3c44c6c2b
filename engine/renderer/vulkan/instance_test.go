package vulkan

import (
	"runtime"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestRequiredInstanceExtensions(t *testing.T) {
	platform := []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}

	withValidation := requiredInstanceExtensions(platform, true)
	assert.Equal(t, "VK_KHR_surface", withValidation[0])
	assert.Contains(t, withValidation, "VK_KHR_xcb_surface")
	assert.Contains(t, withValidation, vk.ExtDebugReportExtensionName)

	seen := map[string]int{}
	for _, e := range withValidation {
		seen[e]++
	}
	assert.Equal(t, 1, seen["VK_KHR_surface"])

	without := requiredInstanceExtensions(platform, false)
	assert.NotContains(t, without, vk.ExtDebugReportExtensionName)

	if runtime.GOOS == "darwin" {
		assert.Contains(t, without, "VK_KHR_portability_enumeration")
	} else {
		assert.Len(t, without, 2)
	}
}

func TestMissingLayers(t *testing.T) {
	available := []string{"VK_LAYER_MESA_device_select", validationLayerName}
	assert.Empty(t, missingLayers([]string{validationLayerName}, available))
	assert.Equal(t, []string{validationLayerName}, missingLayers([]string{validationLayerName}, available[:1]))
	assert.Empty(t, missingLayers(nil, nil))
}
