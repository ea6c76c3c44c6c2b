package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))
}

func TestLoadConfigResolvesRootsRelativeToDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[resource_path]
common_root = "../assets"
shader_root = "../assets/shaders"

[renderer]
loader_workers = 4
render_mode = "forward"
`)

	cfg, err := LoadConfigFrom(dir)
	require.NoError(t, err)

	parent := filepath.Dir(dir)
	assert.Equal(t, filepath.Join(parent, "assets"), cfg.ResourcePath.CommonRoot)
	assert.Equal(t, filepath.Join(parent, "assets", "shaders"), cfg.ResourcePath.ShaderRoot)
	assert.Equal(t, 4, cfg.Renderer.LoaderWorkers)
	assert.Equal(t, "forward", cfg.Renderer.RenderMode)
	// untouched sections keep defaults
	assert.Equal(t, uint32(1280), cfg.Window.Width)
	assert.True(t, cfg.Renderer.Validation)
}

func TestLoadConfigKeepsAbsoluteRoots(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "elsewhere")
	writeConfig(t, dir, "[resource_path]\ncommon_root = \""+filepath.ToSlash(abs)+"\"\n")

	cfg, err := LoadConfigFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(abs), cfg.ResourcePath.CommonRoot)
	assert.Equal(t, filepath.Join(dir, "assets", "shaders"), cfg.ResourcePath.ShaderRoot)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfigFrom(t.TempDir())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadConfigRejectsMalformedToml(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[resource_path\ncommon_root = ")
	_, err := LoadConfigFrom(dir)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadConfigClampsWorkerCount(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[renderer]\nloader_workers = 0\n")
	cfg, err := LoadConfigFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Renderer.LoaderWorkers)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, InfoLevel, ParseLogLevel("INFO"))
	assert.Equal(t, WarnLevel, ParseLogLevel(" warning "))
	assert.Equal(t, ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, DebugLevel, ParseLogLevel("verbose"))
}
