package engine

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spaghettifunk/trigon/engine/assets"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/platform"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/vulkan"
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

type Engine struct {
	config       *Config
	currentStage Stage

	// Written from signal and watcher goroutines.
	isRunning   atomic.Bool
	isSuspended atomic.Bool

	platform     *platform.Platform
	assetManager *assets.AssetManager
	backend      *vulkan.VulkanRenderer
	renderer     *renderer.Renderer

	clock    *core.Clock
	lastTime float64
}

func New(cfg *Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager(cfg.Renderer.WatchShaders)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		config:       cfg,
		currentStage: EngineStageUninitialized,
		platform:     p,
		assetManager: am,
		clock:        core.NewClock(),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := core.SetLogLevel(e.config.Log.Level); err != nil {
		core.LogWarn("unknown log level `%s`, keeping the default", e.config.Log.Level)
	}

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_SHADERS_CHANGED, e, e.onShadersChanged)

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	w := e.config.Window
	if err := e.platform.Startup(w.Title, w.PosX, w.PosY, w.Width, w.Height); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(e.config.Renderer.ShaderDir); err != nil {
		return err
	}

	e.backend = vulkan.New(e.platform, vulkan.Options{
		AppName:        w.Title,
		Debug:          e.config.Renderer.Debug,
		FramesInFlight: e.config.Renderer.FramesInFlight,
		ShaderProgram:  e.config.Renderer.ShaderProgram,
		Shaders:        e.assetManager,
	})
	if err := e.backend.Initialize(); err != nil {
		// Initialize already released what it created.
		e.backend = nil
		return err
	}

	r, err := renderer.New(e.backend, e.platform)
	if err != nil {
		return err
	}
	e.renderer = r

	// Reload events call into the renderer from the watcher goroutine.
	if err := e.assetManager.Watch(); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the frame loop until a quit is requested or a frame fails.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			core.LogInfo("Signal received, shutting down.")
			e.isRunning.Store(false)
		}
	}()

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()
	var sinceLog float64

	for e.isRunning.Load() && !e.platform.ShouldClose() {
		if e.isSuspended.Load() {
			// Nothing can be presented to a minimized window.
			e.platform.WaitMessages()
			continue
		}
		e.platform.PumpMessages()

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if err := e.renderer.DrawFrame(currentTime); err != nil {
			core.LogError("Frame failed, shutting down: %s", err.Error())
			e.isRunning.Store(false)
			return err
		}

		core.MetricsUpdate(delta)
		sinceLog += delta
		if sinceLog >= 1.0 {
			fps, frameMS := core.MetricsFrame()
			core.LogDebug("FPS: %.0f, frame time: %.3fms, frames: %d, rebuilds: %d", fps, frameMS, e.renderer.FrameCount(), e.renderer.Rebuilds())
			sinceLog = 0
		}

		core.InputUpdate()
		e.lastTime = currentTime
	}
	return nil
}

// Shutdown waits for in-flight frames and tears everything down in reverse
// order of creation.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	if e.backend != nil {
		e.backend.Shutdown()
	}
	if err := e.assetManager.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	return core.InputShutdown()
}

func (e *Engine) onEvent(context core.EventContext) bool {
	if context.Type == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	switch ke.KeyCode {
	case core.KEY_ESCAPE:
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_APPLICATION_QUIT,
		})
		return true
	case core.KEY_F5:
		if e.renderer != nil {
			core.LogInfo("Reloading shaders.")
			e.renderer.RequestPipelineReload()
		}
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	width, height := se.WindowWidth, se.WindowHeight
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		if !e.isSuspended.Swap(true) {
			core.LogInfo("Window minimized, suspending application.")
		}
	} else if e.isSuspended.Swap(false) {
		core.LogInfo("Window restored, resuming application.")
	}

	if e.renderer != nil {
		e.renderer.Resized(width, height)
	}
	return true
}

func (e *Engine) onShadersChanged(context core.EventContext) bool {
	if ae, ok := context.Data.(*core.AssetEvent); ok {
		core.LogInfo("Shaders %v changed, reloading pipeline.", ae.Paths)
	}
	e.renderer.RequestPipelineReload()
	return true
}
