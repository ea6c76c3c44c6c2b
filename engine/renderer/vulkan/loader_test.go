package vulkan

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu        sync.Mutex
	staged    int
	recorded  []string
	submits   int
	finished  int
	discarded int
	failStage string
}

func (f *fakeUploader) stage(task *loadTask) error {
	if task.Path == f.failStage {
		return errors.New("out of memory")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staged++
	task.image = &VulkanImage{Width: task.data.Width, Height: task.data.Height, Format: task.Format}
	return nil
}

func (f *fakeUploader) record(tasks []*loadTask) error {
	for _, t := range tasks {
		f.recorded = append(f.recorded, t.Path)
	}
	return nil
}

func (f *fakeUploader) submit() error {
	f.submits++
	return nil
}

func (f *fakeUploader) finish(task *loadTask) error {
	f.finished++
	*task.Target = *task.image
	return nil
}

func (f *fakeUploader) discard(task *loadTask) {
	f.discarded++
}

// loaded reports whether the fake published an image into target.
func loaded(target *VulkanImage) bool {
	return target.Width > 0 && target.Height > 0
}

func newTestLoader(t *testing.T, backend uploadBackend) *ImageLoader {
	jobs, err := systems.NewJobSystem(4, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Shutdown() })

	return &ImageLoader{
		jobs:    jobs,
		backend: backend,
		decode: func(path string) (*metadata.ImageResourceData, error) {
			if strings.HasSuffix(path, "broken.png") {
				return nil, fmt.Errorf("failed to decode image '%s'", path)
			}
			return &metadata.ImageResourceData{ChannelCount: 4, Width: 2, Height: 2, Pixels: make([]uint8, 16)}, nil
		},
	}
}

func TestImageLoaderFinalizeWithoutTasksDoesNotSubmit(t *testing.T) {
	backend := &fakeUploader{}
	loader := newTestLoader(t, backend)

	require.NoError(t, loader.Finalize())
	assert.Equal(t, 0, backend.submits)
	assert.Empty(t, backend.recorded)
}

func TestImageLoaderFailedDecodeLeavesTargetNull(t *testing.T) {
	backend := &fakeUploader{}
	loader := newTestLoader(t, backend)

	var albedo, broken, normal VulkanImage
	albedo.Format = vk.FormatR8g8b8a8Srgb
	loader.Enqueue("materials/bricks/albedo.png", &albedo)
	loader.Enqueue("materials/bricks/broken.png", &broken)
	loader.Enqueue("materials/bricks/normal.png", &normal)
	assert.Equal(t, 3, loader.Pending())

	require.NoError(t, loader.Finalize())

	assert.Equal(t, 1, backend.submits)
	assert.ElementsMatch(t, []string{"materials/bricks/albedo.png", "materials/bricks/normal.png"}, backend.recorded)
	assert.True(t, loaded(&albedo))
	assert.True(t, loaded(&normal))
	assert.False(t, loaded(&broken))
	assert.Equal(t, vk.FormatR8g8b8a8Srgb, albedo.Format)
	assert.Equal(t, defaultTextureFormat, normal.Format)
	assert.Equal(t, 1, backend.discarded)
	assert.Equal(t, 0, loader.Pending())
}

func TestImageLoaderFailedStageIsAbsorbed(t *testing.T) {
	backend := &fakeUploader{failStage: "b.png"}
	loader := newTestLoader(t, backend)

	var a, b VulkanImage
	loader.Enqueue("a.png", &a)
	loader.Enqueue("b.png", &b)

	require.NoError(t, loader.Finalize())
	assert.True(t, loaded(&a))
	assert.False(t, loaded(&b))
	assert.Equal(t, 1, backend.submits)
}

func TestImageLoaderAllFailedDoesNotSubmit(t *testing.T) {
	backend := &fakeUploader{}
	loader := newTestLoader(t, backend)

	var img VulkanImage
	loader.Enqueue("broken.png", &img)

	require.NoError(t, loader.Finalize())
	assert.Equal(t, 0, backend.submits)
	assert.False(t, loaded(&img))
}

func TestImageLoaderLargeBatchSubmitsOnce(t *testing.T) {
	backend := &fakeUploader{}
	loader := newTestLoader(t, backend)

	n := systems.MaxJoinBatch*2 + 7
	targets := make([]VulkanImage, n)
	for i := range targets {
		loader.Enqueue(fmt.Sprintf("textures/%03d.png", i), &targets[i])
	}

	require.NoError(t, loader.Finalize())
	assert.Equal(t, 1, backend.submits)
	assert.Equal(t, n, backend.staged)
	assert.Equal(t, n, backend.finished)
	for i := range targets {
		assert.True(t, loaded(&targets[i]), "target %d", i)
	}

	// A second Finalize has nothing left to do.
	require.NoError(t, loader.Finalize())
	assert.Equal(t, 1, backend.submits)
}
