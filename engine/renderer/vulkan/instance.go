package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

const portabilityEnumerationExtension = "VK_KHR_portability_enumeration"

// dedupe keeps the first occurrence of every name. Some loaders reject
// duplicated layer or extension names.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// selectNames accepts every optional name that is available, then every
// required one, failing with missing wrapped around the first required name
// that is not available.
func selectNames(available, required, optional []string, missing error) ([]string, error) {
	var out []string
	for _, name := range optional {
		if containsName(available, name) {
			out = append(out, name)
		} else {
			core.LogDebug("Optional '%s' is not available.", name)
		}
	}
	for _, name := range required {
		if !containsName(available, name) {
			return nil, fmt.Errorf("'%s': %w", name, missing)
		}
		out = append(out, name)
	}
	return dedupe(out), nil
}

func enumerateInstanceLayers() ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return nil, err
	}
	layers := make([]vk.LayerProperties, count)
	if err := check(vk.EnumerateInstanceLayerProperties(&count, layers), "vkEnumerateInstanceLayerProperties"); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range layers[:count] {
		layers[i].Deref()
		names = append(names, cString(layers[i].LayerName[:]))
	}
	return names, nil
}

// enumerateInstanceExtensions lists the implicit extensions plus the ones
// contributed by every layer.
func enumerateInstanceExtensions(layers []string) ([]string, error) {
	var names []string
	for _, layer := range append([]string{""}, layers...) {
		var count uint32
		layerName := layer
		if layerName != "" {
			layerName = VulkanSafeString(layerName)
		}
		if err := check(vk.EnumerateInstanceExtensionProperties(layerName, &count, nil), "vkEnumerateInstanceExtensionProperties"); err != nil {
			return nil, err
		}
		if count == 0 {
			continue
		}
		props := make([]vk.ExtensionProperties, count)
		if err := check(vk.EnumerateInstanceExtensionProperties(layerName, &count, props), "vkEnumerateInstanceExtensionProperties"); err != nil {
			return nil, err
		}
		for i := range props[:count] {
			props[i].Deref()
			names = append(names, cString(props[i].ExtensionName[:]))
		}
	}
	return dedupe(names), nil
}

// InitInstance creates the instance with the accepted layers and
// extensions, registers the debug report callback and obtains the surface.
func (vc *VulkanContext) InitInstance() error {
	info := &vc.info
	if info.GetInstanceProcAddr != nil {
		vk.SetGetInstanceProcAddr(info.GetInstanceProcAddr)
		if err := vk.Init(); err != nil {
			err = fmt.Errorf("failed to initialize vk: %w", err)
			core.LogError(err.Error())
			return err
		}
	}

	availableLayers, err := enumerateInstanceLayers()
	if err != nil {
		return err
	}
	layers, err := selectNames(availableLayers, info.RequiredInstanceLayers, info.OptionalInstanceLayers, core.ErrLayerNotPresent)
	if err != nil {
		core.LogError("Instance layer selection failed: %s", err)
		return err
	}

	availableExtensions, err := enumerateInstanceExtensions(layers)
	if err != nil {
		return err
	}
	optional := info.OptionalInstanceExtensions
	if runtime.GOOS == "darwin" {
		optional = append(append([]string{}, optional...), portabilityEnumerationExtension, "VK_KHR_get_physical_device_properties2")
	}
	extensions, err := selectNames(availableExtensions, info.RequiredInstanceExtensions, optional, core.ErrExtensionNotPresent)
	if err != nil {
		core.LogError("Instance extension selection failed: %s", err)
		return err
	}
	for _, l := range layers {
		core.LogInfo("Instance layer: %s", l)
	}
	for _, e := range extensions {
		core.LogInfo("Instance extension: %s", e)
	}

	appName := info.ApplicationName
	if appName == "" {
		appName = defaultApplicationName
	}
	appVersion := info.ApplicationVersion
	if appVersion == 0 {
		appVersion = defaultApplicationVersion
	}
	engineName := info.EngineName
	if engineName == "" {
		engineName = defaultEngineName
	}
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: appVersion,
		PApplicationName:   VulkanSafeString(appName),
		EngineVersion:      defaultApplicationVersion,
		PEngineName:        VulkanSafeString(engineName),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	if containsName(extensions, portabilityEnumerationExtension) {
		createInfo.Flags |= vk.InstanceCreateFlags(vk.InstanceCreateEnumeratePortabilityBit)
	}

	var instance vk.Instance
	if err := check(vk.CreateInstance(&createInfo, vc.Allocator, &instance), "vkCreateInstance"); err != nil {
		return err
	}
	vc.Instance = instance
	if err := vk.InitInstance(vc.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	vc.InstanceLayers = layers
	vc.InstanceExtensions = extensions
	core.LogInfo("Vulkan Instance created.")

	if info.DebugReportCallback != nil && vc.IsInstanceExtensionEnabled(vk.ExtDebugReportExtensionName) {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       info.DebugReportFlags,
			PfnCallback: vk.DebugReportCallbackFunc(info.DebugReportCallback),
		}
		var dbg vk.DebugReportCallback
		if err := check(vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, vc.Allocator, &dbg), "vkCreateDebugReportCallback"); err != nil {
			return err
		}
		vc.debugReport = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := info.GetSurface(vc.Instance)
	if err != nil {
		return err
	}
	vc.Surface = surface
	core.LogInfo("Vulkan surface created.")
	return nil
}
