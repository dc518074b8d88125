package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/anima-gpu/engine/assets"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/platform"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// frames between two metrics log lines
const metricsLogInterval = 600

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *vulkan.VulkanRenderer
	events       *core.EventBus
	clock        *core.Clock
	metrics      *core.Metrics
	width        uint32
	height       uint32
	lastTime     float64
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = &ApplicationConfig{Config: core.DefaultConfig()}
	}
	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	cfg := g.ApplicationConfig
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		platform:     p,
		assetManager: assets.NewAssetManager(),
		events:       core.NewEventBus(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        cfg.Application.Width,
		height:       cfg.Application.Height,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting
	g := e.gameInstance
	if g.FnBoot != nil {
		if err := g.FnBoot(g.ApplicationConfig); err != nil {
			return err
		}
	}
	cfg := g.ApplicationConfig.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	core.SetLogLevel(cfg.Level())
	e.currentStage = EngineStageBootComplete

	e.currentStage = EngineStageInitializing
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	app := cfg.Application
	if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.Width, app.Height); err != nil {
		return err
	}
	e.width, e.height = e.platform.FramebufferSize()

	if err := e.assetManager.Initialize(cfg.Assets.Directory, cfg.Assets.Watch); err != nil {
		return err
	}

	info := vulkan.ContextCreateInfoFromConfig(cfg, e.platform.RequiredInstanceExtensions())
	info.GetInstanceProcAddr = platform.GetInstanceProcAddress()
	info.GetSurface = e.platform.GetSurface
	info.Width, info.Height = e.width, e.height

	r, err := vulkan.NewVulkanRenderer(info, cfg, e.platform.FramebufferSize)
	if err != nil {
		return fmt.Errorf("failed to initialize the renderer: %w", err)
	}
	e.renderer = r
	rebuildTargets := r.Frames.OnSwapchainRecreated
	r.Frames.OnSwapchainRecreated = func() error {
		if err := rebuildTargets(); err != nil {
			return err
		}
		e.events.Fire(core.EVENT_CODE_SWAPCHAIN_RECREATED, e, core.EventContext{})
		return nil
	}

	if g.FnInitialize != nil {
		if err := g.FnInitialize(e); err != nil {
			return err
		}
	}
	if g.FnOnResize != nil {
		if err := g.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine run before initialization: %w", core.ErrNotReady)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
			break
		}
		if e.platform.TakeResized() {
			w, h := e.platform.FramebufferSize()
			e.events.Fire(core.EVENT_CODE_RESIZED, e, core.EventContext{Width: w, Height: h})
		}
		e.drainAssetChanges()

		if e.isSuspended {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.Time()

		if err := e.frame(delta); err != nil {
			core.LogError("Frame failed, shutting down: %s", err)
			e.isRunning.Store(false)
			return err
		}

		e.metrics.Update(e.platform.Time()-frameStartTime, max(e.renderer.Frames.FrameTimes()/1000.0, 0))
		if n := e.renderer.Frames.Counter(); n > 0 && n%metricsLogInterval == 0 {
			core.LogDebug("FPS %.0f, CPU %.2f ms, GPU %.3f ms", e.metrics.FPS(), e.metrics.FrameTime(), e.metrics.GPUFrameTime())
		}
		e.lastTime = currentTime
	}
	e.clock.Stop()
	return nil
}

func (e *Engine) frame(delta float64) error {
	g := e.gameInstance
	if g.FnUpdate != nil {
		if err := g.FnUpdate(delta); err != nil {
			return fmt.Errorf("game update: %w", err)
		}
	}

	fc, err := e.renderer.BeginFrame()
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		// rebuilt already, try again next iteration
		return nil
	}
	if err != nil {
		return err
	}
	if g.FnRender != nil {
		if err := g.FnRender(fc, delta); err != nil {
			return fmt.Errorf("game render: %w", err)
		}
	}
	return e.renderer.EndFrame(fc)
}

func (e *Engine) drainAssetChanges() {
	for {
		select {
		case name, ok := <-e.assetManager.Changes():
			if !ok {
				return
			}
			e.events.Fire(core.EVENT_CODE_ASSET_CHANGED, e, core.EventContext{Name: name})
		default:
			return
		}
	}
}

// Quit asks the main loop to stop. Safe to call from any goroutine.
func (e *Engine) Quit() {
	e.isRunning.Store(false)
}

// Shutdown tears everything down in reverse order. Call it from the
// goroutine that ran Run once Run has returned.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.renderer != nil {
		if err := e.renderer.WaitIdle(); err != nil {
			errs = append(errs, err)
		}
	}
	if fn := e.gameInstance.FnShutdown; fn != nil {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
		e.renderer = nil
	}
	if err := e.assetManager.Close(); err != nil {
		errs = append(errs, err)
	}
	e.events.Shutdown()
	if err := e.platform.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

func (e *Engine) Renderer() *vulkan.VulkanRenderer { return e.renderer }
func (e *Engine) Assets() *assets.AssetManager     { return e.assetManager }
func (e *Engine) Events() *core.EventBus           { return e.events }
func (e *Engine) Platform() *platform.Platform     { return e.platform }
func (e *Engine) Metrics() *core.Metrics           { return e.metrics }

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	width, height := context.Width, context.Height
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.renderer.Resized(width, height); err != nil && !errors.Is(err, core.ErrSwapchainOutOfDate) {
		core.LogError("swapchain rebuild after resize: %s", err)
	}
	if fn := e.gameInstance.FnOnResize; fn != nil {
		if err := fn(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	// other listeners may want the new size too
	return false
}
