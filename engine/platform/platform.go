package platform

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window
	Input  *InputState

	startTime float64
	resized   bool
	width     int
	height    int
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		return err
	}
	p.Window = window
	p.width, p.height = window.GetFramebufferSize()

	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	p.Input = NewInputState(window)
	p.startTime = glfw.GetTime()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes window events and refreshes the input snapshot.
// It returns false once the window has been asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	if p.Input != nil {
		p.Input.Update()
	}
	return !p.Window.ShouldClose()
}

// Time is the number of seconds since Startup.
func (p *Platform) Time() float64 {
	return glfw.GetTime() - p.startTime
}

// FramebufferSize returns the size in pixels of the drawable area.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	return uint32(p.width), uint32(p.height)
}

// TakeResized reports whether the framebuffer changed size since the last call.
func (p *Platform) TakeResized() bool {
	r := p.resized
	p.resized = false
	return r
}

// RequiredInstanceExtensions lists the instance extensions the window system
// needs to present.
func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// GetSurface creates a presentation surface for the window. It matches the
// surface callback signature expected by the vulkan context.
func (p *Platform) GetSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		err = fmt.Errorf("failed to create window surface: %w", err)
		core.LogError(err.Error())
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// GetInstanceProcAddress is the loader entry point the bindings are initialized from.
func GetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.width, p.height = width, height
	p.resized = true
}
