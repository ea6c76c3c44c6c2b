package renderer

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

type RendererBackend interface {
	Initialize(cfg vulkan.BackendConfig) error
	Shutdown() error
	Resized(width, height uint32)
	ReloadShaders()
	Minimized() bool
	DrawFrame(scene *vulkan.RenderScene, settings metadata.RenderSettings) error
	UploadMesh(data metadata.MeshData, instances []metadata.InstanceBlock) (*vulkan.GPUMesh, error)
	MaterialIndex(name string) uint32
}

type RendererType uint8

const (
	Vulkan RendererType = iota
)

/**
 * @brief Front end of the backend: owns the render settings toggled by the
 * keyboard and forwards window events.
 */
type Renderer struct {
	backend  RendererBackend
	settings metadata.RenderSettings
}

func New(backend RendererBackend, mode metadata.RenderMode) *Renderer {
	return &Renderer{
		backend: backend,
		settings: metadata.RenderSettings{
			Mode: mode,
			View: metadata.GBufferViewRenderedScene,
		},
	}
}

func (r *Renderer) Initialize(cfg vulkan.BackendConfig) error {
	return r.backend.Initialize(cfg)
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

func (r *Renderer) OnResize(width, height uint32) {
	r.backend.Resized(width, height)
}

func (r *Renderer) OnShadersChanged() {
	r.backend.ReloadShaders()
}

func (r *Renderer) Minimized() bool {
	return r.backend.Minimized()
}

func (r *Renderer) Settings() metadata.RenderSettings {
	return r.settings
}

// ToggleMode switches between the deferred and the forward path.
func (r *Renderer) ToggleMode() {
	if r.settings.Mode == metadata.RenderModeDeferred {
		r.settings.Mode = metadata.RenderModeForward
	} else {
		r.settings.Mode = metadata.RenderModeDeferred
	}
	core.LogInfo("render mode: %s", r.settings.Label())
}

// CycleView selects the next G-buffer view. Ignored in forward mode.
func (r *Renderer) CycleView() {
	if r.settings.Mode != metadata.RenderModeDeferred {
		return
	}
	r.settings.View = r.settings.View.Next()
	core.LogInfo("render mode: %s", r.settings.Label())
}

func (r *Renderer) UploadMesh(data metadata.MeshData, instances []metadata.InstanceBlock) (*vulkan.GPUMesh, error) {
	return r.backend.UploadMesh(data, instances)
}

// MaterialIndex resolves a material directory name. Unknown names get the default material.
func (r *Renderer) MaterialIndex(name string) uint32 {
	return r.backend.MaterialIndex(name)
}

func (r *Renderer) DrawFrame(scene *vulkan.RenderScene) error {
	if err := r.backend.DrawFrame(scene, r.settings); err != nil {
		core.LogError("DrawFrame failed: %s", err)
		return err
	}
	return nil
}
