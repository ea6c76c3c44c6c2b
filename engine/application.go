package engine

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type ApplicationConfig struct {
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name       string
	LogLevel   core.LogLevel
	RenderMode metadata.RenderMode
	// Font used for the overlay label, looked up under the fonts directory.
	OverlayFont string
}

// ApplicationConfigFrom takes the window and renderer sections of the loaded config.
func ApplicationConfigFrom(cfg *core.Config) *ApplicationConfig {
	mode := metadata.RenderModeDeferred
	if cfg.Renderer.RenderMode == "forward" {
		mode = metadata.RenderModeForward
	}
	return &ApplicationConfig{
		StartWidth:  cfg.Window.Width,
		StartHeight: cfg.Window.Height,
		Name:        cfg.Window.Title,
		LogLevel:    core.ParseLogLevel(cfg.Renderer.LogLevel),
		RenderMode:  mode,
		OverlayFont: "default",
	}
}
