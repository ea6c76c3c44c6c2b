package core

import (
	"errors"
)

var (
	// Returned by acquire/present when the surface chain no longer matches the surface.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date, rebuild required")
	// Returned while the window has a zero-sized framebuffer.
	ErrSurfaceMinimized = errors.New("surface has zero extent")
)

var (
	ErrNoSuitableDevice          = errors.New("no physical device meets the requirements")
	ErrMissingValidationLayer    = errors.New("required validation layer is missing")
	ErrDescriptorPoolExhausted   = errors.New("descriptor pool reservation exceeded")
	ErrStalePipeline             = errors.New("pipeline targets a destroyed render pass")
	ErrMissingShaderStage        = errors.New("shader stage file not found")
	ErrUnknownShaderStage        = errors.New("unknown shader stage suffix")
	ErrConfigNotFound            = errors.New("config file not found")
	ErrDefaultMaterialIncomplete = errors.New("default material is missing a map")
	ErrUnknown                   = errors.New("unknown")
)
