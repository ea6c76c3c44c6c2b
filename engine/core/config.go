package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const ConfigFileName = "config.toml"

type ResourcePathConfig struct {
	CommonRoot string `toml:"common_root"`
	ShaderRoot string `toml:"shader_root"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	Validation    bool   `toml:"validation"`
	LoaderWorkers int    `toml:"loader_workers"`
	LogLevel      string `toml:"log_level"`
	RenderMode    string `toml:"render_mode"`
	WatchShaders  bool   `toml:"watch_shaders"`
}

type Config struct {
	ResourcePath ResourcePathConfig `toml:"resource_path"`
	Window       WindowConfig       `toml:"window"`
	Renderer     RendererConfig     `toml:"renderer"`
}

func DefaultConfig() *Config {
	return &Config{
		ResourcePath: ResourcePathConfig{
			CommonRoot: "assets",
			ShaderRoot: "assets/shaders",
		},
		Window: WindowConfig{
			Title:  "Lumen",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Validation:    true,
			LoaderWorkers: 8,
			LogLevel:      "debug",
			RenderMode:    "deferred",
			WatchShaders:  true,
		},
	}
}

// LoadConfig reads config.toml from the directory of the running executable.
func LoadConfig() (*Config, error) {
	exe, err := os.Executable()
	if err != nil {
		err = fmt.Errorf("failed to locate executable: %w", err)
		LogError(err.Error())
		return nil, err
	}
	return LoadConfigFrom(filepath.Dir(exe))
}

// LoadConfigFrom reads config.toml in dir and resolves the resource roots
// relative to dir. Keys absent from the file keep their defaults.
func LoadConfigFrom(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		} else {
			err = fmt.Errorf("failed to read %s: %w", path, err)
		}
		LogError(err.Error())
		return nil, err
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		err = fmt.Errorf("failed to parse %s: %w", path, err)
		LogError(err.Error())
		return nil, err
	}
	cfg.ResourcePath.CommonRoot = resolveRoot(dir, cfg.ResourcePath.CommonRoot)
	cfg.ResourcePath.ShaderRoot = resolveRoot(dir, cfg.ResourcePath.ShaderRoot)
	if cfg.Renderer.LoaderWorkers <= 0 {
		cfg.Renderer.LoaderWorkers = 1
	}
	return cfg, nil
}

func resolveRoot(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}
