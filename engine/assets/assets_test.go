package assets

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, AssetTypeShader, determineAssetType("shaders/gbuffer.vert.spv"))
	assert.Equal(t, AssetTypeNone, determineAssetType("shaders/gbuffer.comp.spv"))
	assert.Equal(t, AssetTypeNone, determineAssetType("shaders/gbuffer.vert"))
	assert.Equal(t, AssetTypeImage, determineAssetType("materials/default/albedo.png"))
	assert.Equal(t, AssetTypeImage, determineAssetType("x.webp"))
	assert.Equal(t, AssetTypeFont, determineAssetType("fonts/overlay.fnt"))
	assert.Equal(t, AssetTypeNone, determineAssetType("config.toml"))
}

func TestAssetManagerPaths(t *testing.T) {
	am := NewAssetManager(core.ResourcePathConfig{CommonRoot: "/data", ShaderRoot: "/data/shaders"}, nil)
	assert.Equal(t, filepath.Join("/data", "fonts", "overlay.fnt"), am.FontPath("overlay"))
	assert.Equal(t, filepath.Join("/data", "materials"), am.Materials.Root)
	assert.Equal(t, "/data/shaders", am.Shaders.Root)
}

func TestWatchFiresShadersChanged(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "gizmo.vert.spv")
	require.NoError(t, os.WriteFile(existing, []byte{3, 2, 35, 7}, 0o644))

	bus := core.NewEventBus()
	var mu sync.Mutex
	var changed []string
	bus.Register(core.EVENT_CODE_SHADERS_CHANGED, func(ctx core.EventContext) {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, ctx.Data.(*core.FileEvent).Path)
	})

	am := NewAssetManager(core.ResourcePathConfig{CommonRoot: root, ShaderRoot: root}, bus)
	require.NoError(t, am.Watch())
	defer am.Shutdown()

	info, ok := am.Known(existing)
	require.True(t, ok)
	assert.Equal(t, AssetTypeShader, info.Type)

	target := filepath.Join(root, "gbuffer.frag.spv")
	require.NoError(t, os.WriteFile(target, []byte{3, 2, 35, 7}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		bus.Dispatch()
		mu.Lock()
		defer mu.Unlock()
		return len(changed) > 0
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range changed {
		assert.Equal(t, target, p)
	}
}

func TestShutdownWithoutWatch(t *testing.T) {
	am := NewAssetManager(core.ResourcePathConfig{}, nil)
	am.Shutdown()
	require.Error(t, func() error {
		return NewAssetManager(core.ResourcePathConfig{ShaderRoot: filepath.Join(t.TempDir(), "missing")}, nil).Watch()
	}())
}
