package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surfaceSupport(current vk.Extent2D) SurfaceSupport {
	return SurfaceSupport{
		Capabilities: vk.SurfaceCapabilities{
			MinImageCount:    2,
			MaxImageCount:    3,
			CurrentExtent:    current,
			MinImageExtent:   vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:   vk.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform: vk.SurfaceTransformIdentityBit,
		},
		Formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeFifo, vk.PresentModeImmediate},
	}
}

func TestNegotiateSurfacePrefersSrgbAndFifo(t *testing.T) {
	config, err := negotiateSurface(surfaceSupport(vk.Extent2D{Width: 1280, Height: 720}), 800, 600)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), config.ImageCount)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, config.Format.Format)
	assert.Equal(t, vk.PresentModeFifo, config.PresentMode)
	// The surface dictates the extent when it reports one.
	assert.Equal(t, vk.Extent2D{Width: 1280, Height: 720}, config.Extent)
	assert.Equal(t, vk.FormatD32Sfloat, config.DepthFormat)
	assert.Equal(t, vk.SampleCount1Bit, config.DepthSamples)
}

func TestNegotiateSurfaceFallsBackToFirstFormat(t *testing.T) {
	support := surfaceSupport(vk.Extent2D{Width: 640, Height: 480})
	support.Formats = support.Formats[:1]
	config, err := negotiateSurface(support, 640, 480)
	require.NoError(t, err)
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, config.Format.Format)
}

func TestNegotiateSurfaceImageCount(t *testing.T) {
	support := surfaceSupport(vk.Extent2D{Width: 640, Height: 480})
	support.Capabilities.MaxImageCount = 0
	config, err := negotiateSurface(support, 640, 480)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), config.ImageCount, "no upper bound")

	support.Capabilities.MinImageCount = 3
	support.Capabilities.MaxImageCount = 3
	config, err = negotiateSurface(support, 640, 480)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), config.ImageCount, "clamped to max")
}

func TestNegotiateSurfaceClampsRequestedSize(t *testing.T) {
	undefined := vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}

	config, err := negotiateSurface(surfaceSupport(undefined), 640, 480)
	require.NoError(t, err)
	assert.Equal(t, vk.Extent2D{Width: 640, Height: 480}, config.Extent)

	config, err = negotiateSurface(surfaceSupport(undefined), 10000, 480)
	require.NoError(t, err)
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 480}, config.Extent)
}

func TestNegotiateSurfaceAfterResize(t *testing.T) {
	before, err := negotiateSurface(surfaceSupport(vk.Extent2D{Width: 1280, Height: 720}), 1280, 720)
	require.NoError(t, err)
	after, err := negotiateSurface(surfaceSupport(vk.Extent2D{Width: 640, Height: 480}), 640, 480)
	require.NoError(t, err)

	assert.Equal(t, vk.Extent2D{Width: 640, Height: 480}, after.Extent)
	assert.Equal(t, before.Format, after.Format)
	assert.Equal(t, before.ImageCount, after.ImageCount)
}

func TestNegotiateSurfaceIsStableForSameRequest(t *testing.T) {
	for _, current := range []vk.Extent2D{
		{Width: 1280, Height: 720},
		{Width: math.MaxUint32, Height: math.MaxUint32},
	} {
		support := surfaceSupport(current)
		first, err := negotiateSurface(support, 1280, 720)
		require.NoError(t, err)
		second, err := negotiateSurface(support, 1280, 720)
		require.NoError(t, err)

		assert.Equal(t, vk.Extent2D{Width: 1280, Height: 720}, first.Extent)
		assert.Equal(t, first.Extent, second.Extent)
		assert.Equal(t, first, second)
	}
}

func TestNegotiateSurfaceMinimized(t *testing.T) {
	_, err := negotiateSurface(surfaceSupport(vk.Extent2D{Width: 0, Height: 0}), 0, 0)
	assert.ErrorIs(t, err, core.ErrSurfaceMinimized)
}

func TestNegotiateSurfaceWithoutFormats(t *testing.T) {
	support := surfaceSupport(vk.Extent2D{Width: 640, Height: 480})
	support.Formats = nil
	_, err := negotiateSurface(support, 640, 480)
	assert.Error(t, err)
}

func TestIsStale(t *testing.T) {
	assert.True(t, isStale(core.ErrSwapchainOutOfDate))
	assert.False(t, isStale(core.ErrSurfaceMinimized))
	assert.False(t, isStale(nil))
}
