package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief Device local geometry. Instances are optional; a mesh without
 * an instance buffer is drawn once per call with the instance count given
 * at draw time.
 */
type GPUMesh struct {
	Name          string
	Vertices      *VulkanBuffer
	Indices       *VulkanBuffer
	Instances     *VulkanBuffer
	IndexCount    uint32
	InstanceCount uint32
	// Index into the material set, pushed with every draw.
	MaterialIndex uint32
}

// uploadGeometry uploads vertices and indices of any vertex type.
func uploadGeometry[V any](vc *RenderContext, name string, vertices []V, indices []uint32, scope *Scope) (*GPUMesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("mesh '%s' has no geometry", name)
	}
	mesh := &GPUMesh{Name: name, IndexCount: uint32(len(indices)), InstanceCount: 1}

	vb, err := UploadDeviceLocal(vc, vk.BufferUsageVertexBufferBit, sliceBytes(vertices))
	if err != nil {
		return nil, err
	}
	scope.Push(func() { vb.Destroy(vc) })
	mesh.Vertices = vb

	ib, err := UploadDeviceLocal(vc, vk.BufferUsageIndexBufferBit, sliceBytes(indices))
	if err != nil {
		return nil, err
	}
	scope.Push(func() { ib.Destroy(vc) })
	mesh.Indices = ib
	return mesh, nil
}

func MeshCreate(vc *RenderContext, data metadata.MeshData, instances []metadata.InstanceBlock, scope *Scope) (*GPUMesh, error) {
	mesh, err := uploadGeometry(vc, data.Name, data.Vertices, data.Indices, scope)
	if err != nil {
		return nil, err
	}
	if len(instances) > 0 {
		buf, err := UploadDeviceLocal(vc, vk.BufferUsageVertexBufferBit, sliceBytes(instances))
		if err != nil {
			return nil, err
		}
		scope.Push(func() { buf.Destroy(vc) })
		mesh.Instances = buf
		mesh.InstanceCount = uint32(len(instances))
	}
	return mesh, nil
}

func GizmoMeshCreate(vc *RenderContext, scope *Scope) (*GPUMesh, error) {
	vertices, indices := metadata.GenerateGizmo()
	return uploadGeometry(vc, "gizmo", vertices, indices, scope)
}

// Draw binds the mesh buffers and issues one indexed draw over all instances.
func (m *GPUMesh) Draw(commandBuffer *VulkanCommandBuffer, instanceCount uint32) {
	if m.Instances != nil {
		vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 2, []vk.Buffer{m.Vertices.Handle, m.Instances.Handle}, []vk.DeviceSize{0, 0})
		instanceCount = m.InstanceCount
	} else {
		vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{m.Vertices.Handle}, []vk.DeviceSize{0})
	}
	vk.CmdBindIndexBuffer(commandBuffer.Handle, m.Indices.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(commandBuffer.Handle, m.IndexCount, instanceCount, 0, 0, 0)
}
