package engine

import (
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
}

// Initialize runs once the renderer is up; meshes are uploaded through it.
type Initialize func(r *renderer.Renderer) error
type Update func(deltaTime float64) error

// Render fills the scene drawn this frame.
type Render func(scene *vulkan.RenderScene, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
