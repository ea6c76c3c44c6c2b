package engine

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Size of the job queue shared by the loader workers.
const jobQueueSize = 256

// Seconds between two frame time reports in the log.
const metricsReportInterval = 5.0

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.Config
	isRunning    bool
	isSuspended  bool
	events       *core.EventBus
	platform     *platform.Platform
	assetManager *assets.AssetManager
	jobs         *systems.JobSystem
	renderer     *renderer.Renderer
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.FrameMetrics
	lastTime     float64
	scene        vulkan.RenderScene
}

func New(g *Game, cfg *core.Config) (*Engine, error) {
	core.SetLogLevel(g.ApplicationConfig.LogLevel)

	events := core.NewEventBus()
	p, err := platform.New(events)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	jobs, err := systems.NewJobSystem(cfg.Renderer.LoaderWorkers, jobQueueSize)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		events:       events,
		platform:     p,
		assetManager: assets.NewAssetManager(cfg.ResourcePath, events),
		jobs:         jobs,
		renderer:     renderer.New(vulkan.New(), g.ApplicationConfig.RenderMode),
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		isRunning:    true,
		isSuspended:  false,
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	app := e.gameInstance.ApplicationConfig

	e.registerEvents()

	if err := e.platform.Startup(app.Name, app.StartWidth, app.StartHeight); err != nil {
		return err
	}
	e.width, e.height = e.platform.FramebufferSize()

	if e.config.Renderer.WatchShaders {
		if err := e.assetManager.Watch(); err != nil {
			core.LogWarn("shader hot reload disabled: %s", err.Error())
		}
	}

	materials, def, err := e.assetManager.Materials.Scan()
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	backendConfig := vulkan.BackendConfig{
		AppName:         app.Name,
		Width:           e.width,
		Height:          e.height,
		Validation:      e.config.Renderer.Validation,
		Host:            e.platform,
		Shaders:         e.assetManager,
		Jobs:            e.jobs,
		Materials:       materials,
		DefaultMaterial: def,
	}
	font, pages, err := e.assetManager.Fonts.Load(e.assetManager.FontPath(app.OverlayFont))
	if err != nil {
		core.LogWarn("overlay text disabled: %s", err.Error())
	} else if len(pages) > 0 {
		backendConfig.Font = font
		backendConfig.FontAtlas = pages[0]
	}

	if err := e.renderer.Initialize(backendConfig); err != nil {
		return err
	}

	if err := e.gameInstance.FnInitialize(e.renderer); err != nil {
		return err
	}
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) registerEvents() {
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e.onResized)
	e.events.Register(core.EVENT_CODE_SHADERS_CHANGED, e.onShadersChanged)
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var runningTime float64 = 0.0

	for e.isRunning {
		e.platform.PumpMessages()
		e.events.Dispatch()
		if !e.isRunning {
			break
		}

		if e.isSuspended {
			// Nothing to present to; sleep until the OS reports something.
			e.platform.WaitMessages()
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		var currentTime float64 = e.clock.Elapsed()
		var delta float64 = (currentTime - e.lastTime)
		var frameStartTime float64 = e.platform.GetAbsoluteTime()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			err = fmt.Errorf("game update failed: %w", err)
			core.LogError(err.Error())
			return err
		}

		e.scene = vulkan.RenderScene{}
		if err := e.gameInstance.FnRender(&e.scene, delta); err != nil {
			err = fmt.Errorf("game render failed: %w", err)
			core.LogError(err.Error())
			return err
		}

		if err := e.renderer.DrawFrame(&e.scene); err != nil {
			return err
		}
		if e.renderer.Minimized() {
			core.LogInfo("Window minimized, suspending application.")
			e.isSuspended = true
		}

		var frameElapsedTime float64 = e.platform.GetAbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		runningTime += frameElapsedTime
		if runningTime >= metricsReportInterval {
			core.LogDebug("%.0f fps, %.2f ms/frame", e.metrics.FPS(), e.metrics.FrameTime())
			runningTime = 0
		}

		// Update last time
		e.lastTime = currentTime
	}

	return nil
}

// Quit asks the loop to stop after the current frame. Safe from any goroutine.
func (e *Engine) Quit() {
	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if err := e.renderer.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if err := e.jobs.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	e.assetManager.Shutdown()
	e.events.Shutdown()
	return e.platform.Shutdown()
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		{
			core.LogInfo("EVENT_CODE_APPLICATION_QUIT recieved, shutting down.")
			e.isRunning = false
		}
	}
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	switch ke.KeyCode {
	case core.KEY_F:
		e.renderer.ToggleMode()
	case core.KEY_V:
		e.renderer.CycleView()
	default:
		core.LogDebug("'%c' key pressed in window.", ke.KeyCode)
	}
}

func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	width := se.WindowWidth
	height := se.WindowHeight

	// Check if different. If so, trigger a resize event.
	if width == e.width && height == e.height && !e.isSuspended {
		return
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
	e.renderer.OnResize(width, height)
}

func (e *Engine) onShadersChanged(context core.EventContext) {
	if fe, ok := context.Data.(*core.FileEvent); ok {
		core.LogInfo("reloading pipelines after change to %s", fe.Path)
	}
	e.renderer.OnShadersChanged()
}

// Settings exposes the current render mode and G-buffer view.
func (e *Engine) Settings() metadata.RenderSettings {
	return e.renderer.Settings()
}
