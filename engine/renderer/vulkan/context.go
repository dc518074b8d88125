package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

const (
	defaultApplicationName    = "Default Application Name"
	defaultApplicationVersion = 0x1000
	defaultEngineName         = "Anima GPU"
)

// SurfaceFunc returns a presentation surface bound to the host window.
type SurfaceFunc func(instance vk.Instance) (vk.Surface, error)

// DebugReportFunc receives validation reports. Returning vk.False lets the
// offending call proceed.
type DebugReportFunc func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint, messageCode int32, layerPrefix string, message string, userData unsafe.Pointer) vk.Bool32

type ContextCreateInfo struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string

	RequiredInstanceLayers     []string
	OptionalInstanceLayers     []string
	RequiredInstanceExtensions []string
	OptionalInstanceExtensions []string
	RequiredDeviceExtensions   []string
	OptionalDeviceExtensions   []string

	// DebugReportFlags is ignored when DebugReportCallback is nil.
	DebugReportFlags    vk.DebugReportFlags
	DebugReportCallback DebugReportFunc

	// GetInstanceProcAddr initializes the bindings when set. Hosts that
	// already called vk.Init leave it nil.
	GetInstanceProcAddr unsafe.Pointer
	GetSurface          SurfaceFunc
	Allocator           *vk.AllocationCallbacks

	// Width and Height are used when the surface leaves the extent to the
	// application.
	Width  uint32
	Height uint32

	// PreferredDevice selects a physical device by name when present.
	PreferredDevice string
}

// ContextCreateInfoFromConfig turns the [context] section of a config file
// into creation options. The window system's extensions are appended to the
// required instance extensions.
func ContextCreateInfoFromConfig(cfg *core.Config, windowExtensions []string) *ContextCreateInfo {
	info := &ContextCreateInfo{
		ApplicationName:            cfg.Application.Name,
		ApplicationVersion:         cfg.Application.Version,
		RequiredInstanceLayers:     cfg.Context.RequiredInstanceLayers,
		OptionalInstanceLayers:     cfg.Context.OptionalInstanceLayers,
		RequiredInstanceExtensions: append(append([]string{}, cfg.Context.RequiredInstanceExtensions...), windowExtensions...),
		OptionalInstanceExtensions: cfg.Context.OptionalInstanceExtensions,
		RequiredDeviceExtensions:   cfg.Context.RequiredDeviceExtensions,
		OptionalDeviceExtensions:   cfg.Context.OptionalDeviceExtensions,
		DebugReportFlags:           DebugReportFlagsFromNames(cfg.Context.DebugReport),
		Width:                      cfg.Application.Width,
		Height:                     cfg.Application.Height,
	}
	if info.DebugReportFlags != 0 {
		info.DebugReportCallback = LogDebugReport
	}
	return info
}

func DebugReportFlagsFromNames(names []string) vk.DebugReportFlags {
	var flags vk.DebugReportFlagBits
	for _, name := range names {
		switch name {
		case "error":
			flags |= vk.DebugReportErrorBit
		case "warning":
			flags |= vk.DebugReportWarningBit
		case "info":
			flags |= vk.DebugReportInformationBit
		case "performance":
			flags |= vk.DebugReportPerformanceWarningBit
		case "debug":
			flags |= vk.DebugReportDebugBit
		}
	}
	return vk.DebugReportFlags(flags)
}

// LogDebugReport routes validation reports to the engine logger.
func LogDebugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.False
}

type VulkanContext struct {
	Allocator *vk.AllocationCallbacks
	Instance  vk.Instance
	Surface   vk.Surface

	debugReport vk.DebugReportCallback

	// Names accepted during bring-up, kept for later capability queries.
	InstanceLayers     []string
	InstanceExtensions []string
	DeviceExtensions   []string

	Device        *VulkanDevice
	PipelineCache vk.PipelineCache
	Swapchain     *VulkanSwapchain

	// The framebuffer's current size, used when the surface does not
	// dictate the swapchain extent.
	FramebufferWidth  uint32
	FramebufferHeight uint32

	info  ContextCreateInfo
	locks *VulkanLockPool

	// setObjectName stays a no-op unless VK_EXT_debug_marker was enabled.
	setObjectName func(objectType vk.DebugReportObjectType, object uint64, name string)
}

// NewVulkanContext runs the instance, device and swapchain phases in order.
// A failing phase tears down whatever the earlier phases built.
func NewVulkanContext(info *ContextCreateInfo) (*VulkanContext, error) {
	if info == nil || info.GetSurface == nil {
		return nil, fmt.Errorf("context needs a surface callback: %w", core.ErrInvalidArgument)
	}
	vc := &VulkanContext{
		Allocator:         info.Allocator,
		FramebufferWidth:  info.Width,
		FramebufferHeight: info.Height,
		info:              *info,
		locks:             NewVulkanLockPool(),
		setObjectName:     func(vk.DebugReportObjectType, uint64, string) {},
	}
	if err := vc.InitInstance(); err != nil {
		vc.Destroy()
		return nil, err
	}
	if err := vc.InitDevice(); err != nil {
		vc.Destroy()
		return nil, err
	}
	if err := vc.InitSwapchain(vk.NullSwapchain); err != nil {
		vc.Destroy()
		return nil, err
	}
	return vc, nil
}

func containsName(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

func (vc *VulkanContext) IsInstanceLayerEnabled(name string) bool {
	return containsName(vc.InstanceLayers, name)
}

func (vc *VulkanContext) IsInstanceExtensionEnabled(name string) bool {
	return containsName(vc.InstanceExtensions, name)
}

func (vc *VulkanContext) IsDeviceExtensionEnabled(name string) bool {
	return containsName(vc.DeviceExtensions, name)
}

// SetObjectName attaches a debug label to a GPU object handle.
func (vc *VulkanContext) SetObjectName(object uint64, objectType vk.DebugReportObjectType, name string) {
	if name == "" || object == 0 {
		return
	}
	vc.setObjectName(objectType, object, name)
}

func nameObject[T any](vc *VulkanContext, handle T, objectType vk.DebugReportObjectType, name string) {
	if name == "" {
		return
	}
	vc.SetObjectName(handleValue(handle), objectType, name)
}

func (vc *VulkanContext) enableDebugMarkers() {
	if !vc.IsDeviceExtensionEnabled(vk.ExtDebugMarkerExtensionName) {
		return
	}
	device := vc.Device.LogicalDevice
	vc.setObjectName = func(objectType vk.DebugReportObjectType, object uint64, name string) {
		info := vk.DebugMarkerObjectNameInfo{
			SType:       vk.StructureTypeDebugMarkerObjectNameInfo,
			ObjectType:  objectType,
			Object:      object,
			PObjectName: VulkanSafeString(name),
		}
		if res := vk.DebugMarkerSetObjectName(device, &info); res != vk.Success {
			core.LogWarn("failed to name object %q: %s", name, VulkanResultString(res, false))
		}
	}
	core.LogDebug("Debug markers enabled.")
}

// FindMemoryIndex returns the first memory type allowed by typeBits that has
// every property in propertyFlags.
func (vc *VulkanContext) FindMemoryIndex(typeBits uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	memoryProperties := vc.Device.Memory
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryType := memoryProperties.MemoryTypes[i]
		memoryType.Deref()
		if typeBits&(1<<i) != 0 && memoryType.PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	err := fmt.Errorf("no memory type in 0x%x with properties 0x%x: %w", typeBits, propertyFlags, core.ErrOutOfDeviceMemory)
	core.LogWarn(err.Error())
	return 0, err
}

// FormatSupports reports whether format has every feature bit for the tiling.
func (vc *VulkanContext) FormatSupports(format vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) bool {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(vc.Device.PhysicalDevice, format, &properties)
	properties.Deref()
	if tiling == vk.ImageTilingLinear {
		return properties.LinearTilingFeatures&features == features
	}
	return properties.OptimalTilingFeatures&features == features
}

// DetectDepthFormat picks the first depth format usable as an optimal-tiled
// depth attachment.
func (vc *VulkanContext) DetectDepthFormat() (vk.Format, error) {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		if vc.FormatSupports(candidate, vk.ImageTilingOptimal, flags) {
			vc.Device.DepthFormat = candidate
			return candidate, nil
		}
	}
	err := fmt.Errorf("no depth attachment format: %w", core.ErrUnsupportedFormat)
	core.LogError(err.Error())
	return vk.FormatUndefined, err
}

// WaitIdle blocks until the device finished every submission.
func (vc *VulkanContext) WaitIdle() error {
	if vc.Device == nil || vc.Device.LogicalDevice == nil {
		return nil
	}
	return check(vk.DeviceWaitIdle(vc.Device.LogicalDevice), "vkDeviceWaitIdle")
}

// Destroy releases everything in reverse creation order. It is safe on a
// partially built context.
func (vc *VulkanContext) Destroy() {
	if vc.Device != nil && vc.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vc.Device.LogicalDevice)
		if vc.Swapchain != nil {
			core.LogInfo("Destroying swapchain...")
			vc.Swapchain.destroy(vc)
			vc.Swapchain = nil
		}
		if vc.PipelineCache != nil {
			vk.DestroyPipelineCache(vc.Device.LogicalDevice, vc.PipelineCache, vc.Allocator)
			vc.PipelineCache = nil
		}
	}
	if vc.Device != nil {
		vc.destroyDevice()
	}
	if vc.Instance != nil {
		if vc.Surface != vk.NullSurface {
			vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
			vc.Surface = vk.NullSurface
		}
		if vc.debugReport != vk.NullDebugReportCallback {
			core.LogDebug("Destroying Vulkan debugger...")
			vk.DestroyDebugReportCallback(vc.Instance, vc.debugReport, vc.Allocator)
			vc.debugReport = vk.NullDebugReportCallback
		}
		core.LogInfo("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
	vc.InstanceLayers, vc.InstanceExtensions, vc.DeviceExtensions = nil, nil, nil
}
