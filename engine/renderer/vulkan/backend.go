package vulkan

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// SurfaceHost is the window the renderer presents to.
type SurfaceHost interface {
	RequiredExtensions() []string
	CreateVulkanSurface(instance vk.Instance) (vk.Surface, error)
}

/**
 * @brief Everything the backend needs at startup. Font and FontAtlas are
 * optional; without them no overlay text is drawn.
 */
type BackendConfig struct {
	AppName    string
	Width      uint32
	Height     uint32
	Validation bool

	Host    SurfaceHost
	Shaders ShaderSource
	Jobs    *systems.JobSystem

	Materials       []metadata.MaterialSource
	DefaultMaterial metadata.MaterialSource

	Font      *metadata.FontData
	FontAtlas string
}

type VulkanRenderer struct {
	FrameNumber uint64

	context     *RenderContext
	shaders     ShaderSource
	descriptors *DescriptorAllocator
	frames      []*Frame
	scheduler   *frameScheduler
	materials   *MaterialSet

	font      *metadata.FontData
	fontAtlas VulkanImage

	gizmo       *GPUMesh
	lightMarker *GPUMesh

	overlay OverlayRecorder

	// Set by a resize, a loaded shader change or a stale surface; consumed by the next tick.
	needsRebuild bool
	minimized    bool
	// Set when compiled shaders changed on disk. Checked before any teardown.
	shadersDirty bool
	// Programs loaded for the pending rebuild, nil when pipelines load from disk.
	pendingShaders preparedShaders
}

func New() *VulkanRenderer {
	return &VulkanRenderer{
		context: NewRenderContext(),
	}
}

/**
 * @brief Creates the device level objects, uploads materials and the font
 * atlas, creates the frame slots and then everything that depends on the
 * swapchain. On error every object created so far is released.
 */
func (vr *VulkanRenderer) Initialize(cfg BackendConfig) (err error) {
	vc := vr.context
	vc.FramebufferWidth = cfg.Width
	vc.FramebufferHeight = cfg.Height
	vr.shaders = cfg.Shaders
	vr.font = cfg.Font

	defer func() {
		if err != nil {
			vc.swapchainScope.Release()
			vc.deviceScope.Release()
		}
	}()

	if err := createInstance(vc, cfg.AppName, cfg.Host.RequiredExtensions(), cfg.Validation); err != nil {
		return err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := cfg.Host.CreateVulkanSurface(vc.Instance)
	if err != nil {
		return err
	}
	vc.Surface = surface
	instance := vc.Instance
	vc.deviceScope.Push(func() {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(instance, surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	})
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vc); err != nil {
		return err
	}

	layout, err := StandardPipelineLayoutCreate(vc, vc.deviceScope)
	if err != nil {
		return err
	}
	vc.Layout = layout

	loader := NewImageLoader(vc, cfg.Jobs)
	atlas := &vr.fontAtlas
	if cfg.FontAtlas != "" {
		loader.Enqueue(cfg.FontAtlas, atlas)
	}
	vc.deviceScope.Push(func() { atlas.Destroy(vc) })
	// The font atlas rides in the same upload batch as the materials.
	materials, err := MaterialSetLoad(vc, loader, cfg.Materials, cfg.DefaultMaterial, vc.deviceScope)
	if err != nil {
		return err
	}
	vr.materials = materials
	if vr.fontAtlas.IsNull() {
		vr.font = nil
	}

	request := PoolRequest{}
	request.Sets[PerFrame] = MaxFramesInFlight
	request.Sets[PerView] = 1
	request.Sets[PerMaterial] = uint32(materials.Count())
	descriptors, err := DescriptorAllocatorCreate(vc, layout, request, vc.deviceScope)
	if err != nil {
		return err
	}
	vr.descriptors = descriptors

	if err := vr.createFrames(); err != nil {
		return err
	}

	cube := metadata.GenerateCube(0.1)
	if vr.lightMarker, err = MeshCreate(vc, cube, nil, vc.deviceScope); err != nil {
		return err
	}
	if vr.gizmo, err = GizmoMeshCreate(vc, vc.deviceScope); err != nil {
		return err
	}

	if err := vr.rebuildSwapchainDependents(); err != nil && !errors.Is(err, core.ErrSurfaceMinimized) {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createFrames() error {
	vc := vr.context
	// Sampled in place of a missing font atlas so the binding is always valid.
	atlasView := vr.materials.Default.Maps[metadata.MapAlbedo].View
	if !vr.fontAtlas.IsNull() {
		atlasView = vr.fontAtlas.View
	}

	vr.frames = make([]*Frame, MaxFramesInFlight)
	for i := range vr.frames {
		frame, err := FrameCreate(vc, vr.descriptors, vr.materials.Count(), vc.deviceScope)
		if err != nil {
			return err
		}
		vr.materials.link(vc, frame.MaterialSets)
		updateDescriptorSets(vc, []vk.WriteDescriptorSet{
			imageWrite(frame.FrameSet, BindingFrameOverlayAtlas, vk.DescriptorTypeSampledImage,
				vk.ImageLayoutShaderReadOnlyOptimal, []vk.ImageView{atlasView}),
		})
		vr.frames[i] = frame
	}
	vr.scheduler = newFrameScheduler(len(vr.frames), frameFences{vc: vc, frames: vr.frames})
	core.LogDebug("%d frame slots created.", len(vr.frames))
	return nil
}

// Shutdown waits for the GPU and releases everything, newest first.
func (vr *VulkanRenderer) Shutdown() error {
	vc := vr.context
	if vc.Device != nil && vc.Device.LogicalDevice != nil {
		if err := vc.Device.WaitIdle(); err != nil {
			core.LogError(err.Error())
		}
	}
	vc.swapchainScope.Release()
	vc.deviceScope.Release()
	return nil
}

// Resized records the new framebuffer size. The rebuild happens on the next frame.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height
	vr.needsRebuild = true
	core.LogInfo("Vulkan renderer backend->resized: w/h/gen: %d/%d/%d", width, height, vr.context.RenderpassGeneration)
}

// ReloadShaders rebuilds the pipelines through the same path as a resize,
// once every program loads.
func (vr *VulkanRenderer) ReloadShaders() {
	vr.shadersDirty = true
}

/**
 * @brief Loads every pipeline program before anything is torn down. A program
 * that fails to load (often one still being written) keeps the current
 * pipelines in use; the next change event retries.
 * @returns true when a rebuild was scheduled.
 */
func (vr *VulkanRenderer) prepareShaderReload() bool {
	vr.shadersDirty = false
	prepared, err := loadPipelineShaders(vr.shaders)
	if err != nil {
		core.LogWarn("Shader reload skipped, keeping current pipelines: %s", err)
		return false
	}
	vr.pendingShaders = prepared
	vr.needsRebuild = true
	return true
}

// Minimized reports whether drawing is suspended until the window has a size again.
func (vr *VulkanRenderer) Minimized() bool {
	return vr.minimized
}

func (vr *VulkanRenderer) SetOverlayRecorder(recorder OverlayRecorder) {
	vr.overlay = recorder
}

func (vr *VulkanRenderer) Materials() *MaterialSet {
	return vr.materials
}

func (vr *VulkanRenderer) MaterialIndex(name string) uint32 {
	if vr.materials == nil {
		return 0
	}
	return vr.materials.IndexOf(name)
}

func (vr *VulkanRenderer) LightMarker() *GPUMesh {
	return vr.lightMarker
}

func (vr *VulkanRenderer) Gizmo() *GPUMesh {
	return vr.gizmo
}

// UploadMesh creates device local geometry that lives as long as the device.
// Scene meshes are always instanced; no instances means one at the origin.
func (vr *VulkanRenderer) UploadMesh(data metadata.MeshData, instances []metadata.InstanceBlock) (*GPUMesh, error) {
	if len(instances) == 0 {
		instances = []metadata.InstanceBlock{metadata.NewInstanceBlock(mgl32.Ident4())}
	}
	return MeshCreate(vr.context, data, instances, vr.context.deviceScope)
}

/**
 * @brief Destroys everything sized by the swapchain, newest first: pipelines,
 * framebuffers, G-buffer, render pass and the chain itself.
 */
func (vr *VulkanRenderer) teardownSwapchainDependents() error {
	vc := vr.context
	if err := vc.Device.WaitIdle(); err != nil {
		core.LogError(err.Error())
		return err
	}
	vc.swapchainScope.Release()
	vc.Pipelines = nil
	vc.Framebuffers = nil
	vc.GBuffer = nil
	vc.Renderpass = nil
	vc.Swapchain = nil
	return nil
}

/**
 * @brief Builds the chain and everything depending on it at the current
 * framebuffer size. The render pass generation is bumped so pipelines built
 * for the previous pass can no longer be bound.
 * @returns ErrSurfaceMinimized while the window has no area.
 */
func (vr *VulkanRenderer) rebuildSwapchainDependents() error {
	vc := vr.context
	scope := vc.swapchainScope

	chain, err := createSurfaceChain(vc, vc.FramebufferWidth, vc.FramebufferHeight)
	if err != nil {
		if errors.Is(err, core.ErrSurfaceMinimized) {
			vr.minimized = true
		}
		return err
	}
	vr.minimized = false
	scope.Push(func() { chain.destroy(vc) })
	vc.Swapchain = chain
	extent := chain.Config.Extent
	vc.FramebufferWidth = extent.Width
	vc.FramebufferHeight = extent.Height

	vc.RenderpassGeneration++
	rp, err := RenderpassCreate(vc, chain.Config.Format.Format, extent, vc.RenderpassGeneration)
	if err != nil {
		return err
	}
	scope.Push(func() { rp.Destroy(vc) })
	vc.Renderpass = rp

	vc.GBuffer = vc.GBuffer[:0]
	for _, spec := range attachmentPlan(extent) {
		if spec.Index == AttachmentDepth {
			continue
		}
		img, err := ImageCreate(vc, ImageCreateInfo{
			Width:      spec.Extent.Width,
			Height:     spec.Extent.Height,
			Format:     spec.Format,
			Usage:      spec.Usage,
			Memory:     vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			Aspect:     spec.Aspect,
			CreateView: true,
		})
		if err != nil {
			return fmt.Errorf("G-buffer attachment '%s': %w", spec.Name, err)
		}
		scope.Push(func() { img.Destroy(vc) })
		vc.GBuffer = append(vc.GBuffer, img)
	}

	vc.Framebuffers = make([]*VulkanFramebuffer, 0, len(chain.Views))
	for _, view := range chain.Views {
		fb, err := FramebufferCreate(vc, rp, framebufferViews(view, chain.DepthAttachment.View, vc.GBuffer))
		if err != nil {
			return err
		}
		scope.Push(func() { fb.Destroy(vc) })
		vc.Framebuffers = append(vc.Framebuffers, fb)
	}

	var source ShaderSource = vr.shaders
	if vr.pendingShaders != nil {
		source = vr.pendingShaders
	}
	pipelines, err := PipelineSetCreate(vc, source, rp, vc.Layout)
	if err != nil {
		return err
	}
	vr.pendingShaders = nil
	scope.Push(func() { pipelines.Destroy(vc) })
	vc.Pipelines = pipelines

	vr.linkInputAttachments()
	vr.needsRebuild = false
	return nil
}

// linkInputAttachments points every frame's G-buffer binding at the current attachments.
func (vr *VulkanRenderer) linkInputAttachments() {
	views := make([]vk.ImageView, len(vr.context.GBuffer))
	for i, img := range vr.context.GBuffer {
		views[i] = img.View
	}
	writes := make([]vk.WriteDescriptorSet, 0, len(vr.frames))
	for _, frame := range vr.frames {
		writes = append(writes, imageWrite(frame.FrameSet, BindingFrameGBuffer, vk.DescriptorTypeInputAttachment,
			vk.ImageLayoutShaderReadOnlyOptimal, views))
	}
	updateDescriptorSets(vr.context, writes)
}

// rebuild runs the whole recreation protocol. A minimized window is not an error.
func (vr *VulkanRenderer) rebuild() error {
	if vr.context.FramebufferWidth == 0 || vr.context.FramebufferHeight == 0 {
		vr.minimized = true
		return nil
	}
	if err := vr.teardownSwapchainDependents(); err != nil {
		return err
	}
	if err := vr.rebuildSwapchainDependents(); err != nil {
		if errors.Is(err, core.ErrSurfaceMinimized) {
			return nil
		}
		return err
	}
	core.LogInfo("Swapchain rebuilt: %dx%d, render pass generation %d.",
		vr.context.FramebufferWidth, vr.context.FramebufferHeight, vr.context.RenderpassGeneration)
	return nil
}

/**
 * @brief One tick: wait for the slot, acquire, record, submit and present.
 * A stale surface triggers a rebuild and ends the tick early without error.
 */
func (vr *VulkanRenderer) DrawFrame(scene *RenderScene, settings metadata.RenderSettings) error {
	vc := vr.context
	if vr.shadersDirty {
		vr.prepareShaderReload()
	}
	if vr.needsRebuild || vr.minimized {
		if err := vr.rebuild(); err != nil {
			return err
		}
		if vr.minimized {
			return nil
		}
	}

	cur, err := vr.scheduler.begin()
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	frame := vr.frames[cur]

	imageIndex, err := vc.Swapchain.acquire(vc, frame.Sync.ImagePresented)
	if isStale(err) {
		vr.scheduler.abort(cur)
		return vr.rebuild()
	}
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := vr.scheduler.acquired(cur); err != nil {
		return err
	}

	if err := frame.resetCommandPool(vc); err != nil {
		return err
	}
	if err := vr.writeFrameData(frame, scene, settings); err != nil {
		return err
	}

	drawn := *scene
	if drawn.LightMarker == nil {
		drawn.LightMarker = vr.lightMarker
	}
	if drawn.Gizmo == nil {
		drawn.Gizmo = vr.gizmo
	}

	cb := frame.CommandBuffer
	if err := cb.Begin(true, false, false); err != nil {
		return err
	}
	recorder := graphRecorder{
		cb:         cb,
		renderpass: vc.Renderpass,
		pipelines:  vc.Pipelines,
		layout:     vc.Layout.Handle,
		frame:      frame,
		scene:      &drawn,
		settings:   settings,
		overlay:    vr.overlay,
	}
	if err := recorder.record(vc.Framebuffers[imageIndex]); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}

	if err := vr.submit(frame); err != nil {
		return err
	}
	vr.scheduler.submitted(cur)

	if err := vc.Swapchain.present(vc, frame.Sync.RenderFinished, imageIndex); err != nil {
		if !isStale(err) {
			core.LogError(err.Error())
			return err
		}
		vr.needsRebuild = true
	}
	vr.FrameNumber++
	return nil
}

func (vr *VulkanRenderer) writeFrameData(frame *Frame, scene *RenderScene, settings metadata.RenderSettings) error {
	vc := vr.context
	var frameBlock metadata.FrameUniformBlock
	frameBlock.SetLights(scene.Lights)
	viewBlock := scene.Camera.ViewBlock(vc.FramebufferWidth, vc.FramebufferHeight)
	if err := frame.writeUniforms(&frameBlock, &viewBlock); err != nil {
		return err
	}
	if vr.font != nil {
		return frame.Overlay.Update(vr.font, settings.Label(), 10, 10, 1)
	}
	return nil
}

// submit waits on the acquired image and signals the slot's fence and render-finished semaphore.
func (vr *VulkanRenderer) submit(frame *Frame) error {
	vc := vr.context
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{frame.Sync.ImagePresented},
		// Color writes wait until the image is actually available.
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{frame.CommandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.Sync.RenderFinished},
	}
	err := lockPool.SafeQueueCall(vc.Device.QueueIndex, func() error {
		return vkError("vkQueueSubmit", vk.QueueSubmit(vc.Device.Queue, 1, []vk.SubmitInfo{submitInfo}, frame.Sync.Fence.Handle))
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	frame.CommandBuffer.UpdateSubmitted()
	return nil
}
