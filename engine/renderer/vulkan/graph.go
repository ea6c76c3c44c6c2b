package vulkan

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// GizmoSize is the side of the gizmo viewport in pixels.
const GizmoSize = 100

// OverlayRecorder records extra draws at the end of the overlay subpass,
// after the renderer's own overlay.
type OverlayRecorder func(commandBuffer *VulkanCommandBuffer, extent vk.Extent2D)

/**
 * @brief What the graph draws. Meshes are drawn in order with the geometry
 * pipelines; the ground plane is expected first.
 */
type RenderScene struct {
	Meshes      []*GPUMesh
	LightMarker *GPUMesh
	Gizmo       *GPUMesh
	Lights      []metadata.Light
	Camera      metadata.Camera
}

// subpassPipelines lists the pipelines each subpass records in the given mode.
func subpassPipelines(settings metadata.RenderSettings) [SubpassCount][]PipelineKind {
	var plan [SubpassCount][]PipelineKind
	switch {
	case settings.Mode == metadata.RenderModeForward:
		plan[SubpassLighting] = []PipelineKind{PipelineForwardBRDF}
	case settings.Visualizing():
		plan[SubpassGBuffer] = []PipelineKind{PipelineGBuffer}
		plan[SubpassLighting] = []PipelineKind{PipelineGBufferVisualize}
	default:
		plan[SubpassGBuffer] = []PipelineKind{PipelineGBuffer}
		plan[SubpassLighting] = []PipelineKind{PipelineDeferredBRDF}
	}
	plan[SubpassOverlay] = []PipelineKind{PipelineLightMarkers, PipelineGizmo, PipelineOverlayText}
	return plan
}

// gizmoRect is the square in the bottom-left corner holding the gizmo.
func gizmoRect(extent vk.Extent2D) vk.Rect2D {
	size := uint32(GizmoSize)
	if extent.Width < size {
		size = extent.Width
	}
	if extent.Height < size {
		size = extent.Height
	}
	return vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: int32(extent.Height - size)},
		Extent: vk.Extent2D{Width: size, Height: size},
	}
}

/**
 * @brief Rotation part of the view followed by a flat projection: view z in
 * [-1, 1] maps to depth [1, 0] so the nearer arrow wins the reversed depth
 * test, and Y is flipped like the scene projection.
 */
func gizmoTransform(view mgl32.Mat4) mgl32.Mat4 {
	rotation := view.Mat3().Mat4()
	const scale = 0.8
	projection := mgl32.Mat4{
		scale, 0, 0, 0,
		0, -scale, 0, 0,
		0, 0, -0.5, 0,
		0, 0, 0.5, 1,
	}
	return projection.Mul4(rotation)
}

type graphRecorder struct {
	cb         *VulkanCommandBuffer
	renderpass *VulkanRenderpass
	pipelines  *PipelineSet
	layout     vk.PipelineLayout
	frame      *Frame
	scene      *RenderScene
	settings   metadata.RenderSettings
	overlay    OverlayRecorder
}

func (g *graphRecorder) push(pc *metadata.DrawPushConstants) {
	vk.CmdPushConstants(g.cb.Handle, g.layout, vk.ShaderStageFlags(allGraphicsStageBits), 0, pushConstantSize, unsafe.Pointer(pc))
}

func (g *graphRecorder) setViewport(rect vk.Rect2D) {
	vk.CmdSetViewport(g.cb.Handle, 0, 1, []vk.Viewport{{
		X:        float32(rect.Offset.X),
		Y:        float32(rect.Offset.Y),
		Width:    float32(rect.Extent.Width),
		Height:   float32(rect.Extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}})
	vk.CmdSetScissor(g.cb.Handle, 0, 1, []vk.Rect2D{rect})
}

func (g *graphRecorder) bindMaterial(index uint32) {
	if int(index) >= len(g.frame.MaterialSets) {
		index = 0
	}
	vk.CmdBindDescriptorSets(g.cb.Handle, vk.PipelineBindPointGraphics, g.layout, uint32(PerMaterial), 1,
		[]vk.DescriptorSet{g.frame.MaterialSets[index]}, 0, nil)
}

// drawMeshes draws every scene mesh with the bound pipeline, material set rebound per draw.
func (g *graphRecorder) drawMeshes() {
	for _, mesh := range g.scene.Meshes {
		g.bindMaterial(mesh.MaterialIndex)
		pc := metadata.DrawPushConstants{Transform: mgl32.Ident4(), MaterialIndex: mesh.MaterialIndex}
		g.push(&pc)
		mesh.Draw(g.cb, 1)
	}
}

func (g *graphRecorder) fullScreenTriangle(option uint32) {
	pc := metadata.DrawPushConstants{Transform: mgl32.Ident4(), Option: option}
	g.push(&pc)
	vk.CmdDraw(g.cb.Handle, 3, 1, 0, 0)
}

func (g *graphRecorder) recordPipeline(kind PipelineKind) error {
	extent := g.renderpass.Extent
	full := vk.Rect2D{Extent: extent}

	if kind == PipelineGizmo {
		rect := gizmoRect(extent)
		// Only the depth of the gizmo corner is cleared so the arrows are never hidden by the scene.
		clear := vk.ClearAttachment{AspectMask: vk.ImageAspectFlags(vk.ImageAspectDepthBit)}
		clear.ClearValue.SetDepthStencil(0.0, 0)
		vk.CmdClearAttachments(g.cb.Handle, 1, []vk.ClearAttachment{clear}, 1, []vk.ClearRect{{
			Rect:       rect,
			LayerCount: 1,
		}})
		g.setViewport(rect)
		defer g.setViewport(full)
	}

	if err := g.pipelines.Get(kind).Bind(g.cb, g.renderpass); err != nil {
		return err
	}

	switch kind {
	case PipelineGBuffer, PipelineForwardBRDF:
		g.drawMeshes()
	case PipelineDeferredBRDF:
		g.fullScreenTriangle(0)
	case PipelineGBufferVisualize:
		g.fullScreenTriangle(uint32(g.settings.View))
	case PipelineLightMarkers:
		count := len(g.scene.Lights)
		if count > metadata.MaxLights {
			count = metadata.MaxLights
		}
		if g.scene.LightMarker != nil && count > 0 {
			pc := metadata.DrawPushConstants{Transform: mgl32.Ident4()}
			g.push(&pc)
			g.scene.LightMarker.Draw(g.cb, uint32(count))
		}
	case PipelineGizmo:
		if g.scene.Gizmo != nil {
			view := g.scene.Camera.ViewBlock(extent.Width, extent.Height).ViewMat
			pc := metadata.DrawPushConstants{Transform: gizmoTransform(view)}
			g.push(&pc)
			g.scene.Gizmo.Draw(g.cb, 1)
		}
	case PipelineOverlayText:
		g.frame.Overlay.Record(g.cb, g.layout, extent.Width, extent.Height)
	}
	return nil
}

/**
 * @brief Records the whole render pass into the frame's command buffer.
 * Every subpass is entered in every mode; a subpass with nothing to draw
 * still clears and transitions its attachments.
 */
func (g *graphRecorder) record(framebuffer *VulkanFramebuffer) error {
	g.renderpass.Begin(g.cb, framebuffer.Handle)
	g.setViewport(vk.Rect2D{Extent: g.renderpass.Extent})

	vk.CmdBindDescriptorSets(g.cb.Handle, vk.PipelineBindPointGraphics, g.layout, uint32(PerFrame), 3,
		[]vk.DescriptorSet{g.frame.FrameSet, g.frame.ViewSet, g.frame.MaterialSets[0]}, 0, nil)

	for subpass, kinds := range subpassPipelines(g.settings) {
		if subpass > 0 {
			g.renderpass.NextSubpass(g.cb)
		}
		for _, kind := range kinds {
			if err := g.recordPipeline(kind); err != nil {
				g.renderpass.End(g.cb)
				return err
			}
		}
		if uint32(subpass) == SubpassOverlay && g.overlay != nil {
			g.overlay(g.cb, g.renderpass.Extent)
		}
	}

	g.renderpass.End(g.cb)
	return nil
}
