package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// Format used when the target image does not ask for one.
const defaultTextureFormat = vk.FormatR8g8b8a8Unorm

type loadTask struct {
	ID     uuid.UUID
	Path   string
	Target *VulkanImage
	Format vk.Format

	// Filled on the worker.
	data    *metadata.ImageResourceData
	staging *VulkanBuffer
	image   *VulkanImage
	err     error
}

/**
 * @brief GPU side of an upload batch. stage runs on worker goroutines, the
 * rest on the caller of Finalize.
 */
type uploadBackend interface {
	// stage creates the staging buffer and the destination image of a decoded task.
	stage(task *loadTask) error
	// record writes barriers and copies for every task into one command buffer.
	record(tasks []*loadTask) error
	// submit submits the recorded command buffer and waits for the queue to drain.
	submit() error
	// finish creates the view, publishes the image and destroys the staging buffer.
	finish(task *loadTask) error
	// discard releases whatever stage created.
	discard(task *loadTask)
}

/**
 * @brief Collects image loads and performs them as one batch: parallel
 * decode and staging, then a single submission for all copies.
 */
type ImageLoader struct {
	jobs    *systems.JobSystem
	backend uploadBackend
	decode  func(path string) (*metadata.ImageResourceData, error)

	mu    sync.Mutex
	tasks []*loadTask
}

func NewImageLoader(vc *RenderContext, jobs *systems.JobSystem) *ImageLoader {
	decoder := &loaders.ImageLoader{}
	return &ImageLoader{
		jobs:    jobs,
		backend: &vulkanUploader{vc: vc},
		decode:  decoder.Load,
	}
}

// Enqueue records a load of path into target. target.Format selects the image
// format when set.
func (il *ImageLoader) Enqueue(path string, target *VulkanImage) uuid.UUID {
	task := &loadTask{
		ID:     uuid.New(),
		Path:   path,
		Target: target,
		Format: target.Format,
	}
	if task.Format == vk.FormatUndefined {
		task.Format = defaultTextureFormat
	}
	il.mu.Lock()
	il.tasks = append(il.tasks, task)
	il.mu.Unlock()
	return task.ID
}

// Pending is the number of tasks waiting for Finalize.
func (il *ImageLoader) Pending() int {
	il.mu.Lock()
	defer il.mu.Unlock()
	return len(il.tasks)
}

/**
 * @brief Runs every queued task. A task that fails to decode or stage is
 * logged and leaves its target null; the other tasks still complete. The
 * returned error is only set when the batch submission itself fails.
 */
func (il *ImageLoader) Finalize() error {
	il.mu.Lock()
	tasks := il.tasks
	il.tasks = nil
	il.mu.Unlock()

	if len(tasks) == 0 {
		return nil
	}
	batch := uuid.New()
	core.LogDebug("upload batch %s: %d images", batch, len(tasks))

	jobs := make([]systems.JobTask, len(tasks))
	for i, task := range tasks {
		task := task
		jobs[i] = systems.JobTask{
			ID: task.ID,
			OnStart: func() error {
				data, err := il.decode(task.Path)
				if err != nil {
					return err
				}
				task.data = data
				return il.backend.stage(task)
			},
			OnFailure: func(err error) {
				task.err = err
			},
		}
	}
	if err := il.jobs.RunBatched(jobs, systems.MaxJoinBatch); err != nil {
		for _, task := range tasks {
			il.backend.discard(task)
		}
		return fmt.Errorf("upload batch %s: %w", batch, err)
	}

	staged := make([]*loadTask, 0, len(tasks))
	for _, task := range tasks {
		if task.err != nil {
			core.LogWarn("failed to load image '%s': %s", task.Path, task.err)
			il.backend.discard(task)
			continue
		}
		staged = append(staged, task)
	}
	if len(staged) == 0 {
		return nil
	}

	if err := il.backend.record(staged); err != nil {
		for _, task := range staged {
			il.backend.discard(task)
		}
		return err
	}
	if err := il.backend.submit(); err != nil {
		for _, task := range staged {
			il.backend.discard(task)
		}
		return err
	}
	for _, task := range staged {
		if err := il.backend.finish(task); err != nil {
			core.LogWarn("failed to finish image '%s': %s", task.Path, err)
			il.backend.discard(task)
		}
	}
	core.LogDebug("upload batch %s: %d of %d images ready", batch, len(staged), len(tasks))
	return nil
}

type vulkanUploader struct {
	vc *RenderContext
	cb *VulkanCommandBuffer
}

func (u *vulkanUploader) stage(task *loadTask) error {
	staging, err := Staging(u.vc, task.data.Pixels[:task.data.Size()])
	if err != nil {
		return err
	}
	image, err := ImageCreate(u.vc, ImageCreateInfo{
		Width:  task.data.Width,
		Height: task.data.Height,
		Format: task.Format,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		Memory: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Aspect: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		staging.Destroy(u.vc)
		return err
	}
	task.staging = staging
	task.image = image
	// Pixels live in the staging buffer now.
	task.data = nil
	return nil
}

func (u *vulkanUploader) record(tasks []*loadTask) error {
	cb, err := AllocateAndBeginSingleUse(u.vc, u.vc.Device.TransientCommandPool)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		image := task.image.Handle
		toTransfer := transitionBarrier(image, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, 0, vk.AccessTransferWriteBit)
		vk.CmdPipelineBarrier(cb.Handle,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toTransfer})

		region := vk.BufferImageCopy{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{
				Width:  task.image.Width,
				Height: task.image.Height,
				Depth:  1,
			},
		}
		vk.CmdCopyBufferToImage(cb.Handle, task.staging.Handle, image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

		toShader := transitionBarrier(image, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, vk.AccessTransferWriteBit, vk.AccessShaderReadBit)
		vk.CmdPipelineBarrier(cb.Handle,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toShader})
	}
	u.cb = cb
	return nil
}

func (u *vulkanUploader) submit() error {
	cb := u.cb
	u.cb = nil
	if cb == nil {
		return fmt.Errorf("no upload recorded")
	}
	return cb.EndSingleUse(u.vc, u.vc.Device.TransientCommandPool, u.vc.Device.Queue)
}

func (u *vulkanUploader) finish(task *loadTask) error {
	if err := task.image.CreateView(u.vc); err != nil {
		return err
	}
	*task.Target = *task.image
	task.image = nil
	task.staging.Destroy(u.vc)
	task.staging = nil
	return nil
}

func (u *vulkanUploader) discard(task *loadTask) {
	if task.staging != nil {
		task.staging.Destroy(u.vc)
		task.staging = nil
	}
	if task.image != nil {
		task.image.Destroy(u.vc)
		task.image = nil
	}
}
