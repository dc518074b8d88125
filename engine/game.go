package engine

import (
	"github.com/spaghettifunk/anima-gpu/engine/renderer/vulkan"
)

// Game is the set of callbacks the engine drives. Every hook is optional.
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnBoot            Boot
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Boot runs before any subsystem starts and may adjust the configuration.
type Boot func(config *ApplicationConfig) error

// Initialize runs once the renderer is up, before the first frame.
type Initialize func(e *Engine) error
type Update func(deltaTime float64) error

// Render records draws into the open main render pass of frame.
type Render func(frame *vulkan.FrameContext, deltaTime float64) error
type OnResize func(width uint32, height uint32) error

// Shutdown runs after the GPU went idle and before the renderer is torn down.
type Shutdown func() error
