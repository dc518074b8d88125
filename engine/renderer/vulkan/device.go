package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32
	GraphicsQueue      vk.Queue
	PresentQueue       vk.Queue

	GraphicsCommandPool vk.CommandPool

	Name          string
	Properties    vk.PhysicalDeviceProperties
	Features      vk.PhysicalDeviceFeatures
	Memory        vk.PhysicalDeviceMemoryProperties
	QueueFamilies []vk.QueueFamilyProperties

	DepthFormat vk.Format
}

// TimestampValidBits is the number of meaningful bits in timestamps written
// on the graphics queue.
func (d *VulkanDevice) TimestampValidBits() uint32 {
	if int(d.GraphicsQueueIndex) >= len(d.QueueFamilies) {
		return 0
	}
	return d.QueueFamilies[d.GraphicsQueueIndex].TimestampValidBits
}

// TimestampPeriod is the number of nanoseconds per timestamp tick.
func (d *VulkanDevice) TimestampPeriod() float32 {
	return d.Properties.Limits.TimestampPeriod
}

// MinUniformBufferOffsetAlignment bounds dynamic uniform offsets.
func (d *VulkanDevice) MinUniformBufferOffsetAlignment() uint64 {
	return uint64(d.Properties.Limits.MinUniformBufferOffsetAlignment)
}

type queueFamilySupport struct {
	Graphics bool
	Present  bool
}

// selectQueueFamilies prefers one family doing both graphics and present,
// otherwise the first graphics family and the first present family.
func selectQueueFamilies(families []queueFamilySupport) (graphics uint32, present uint32, ok bool) {
	for i, f := range families {
		if f.Graphics && f.Present {
			return uint32(i), uint32(i), true
		}
	}
	g, p := -1, -1
	for i, f := range families {
		if f.Graphics && g < 0 {
			g = i
		}
		if f.Present && p < 0 {
			p = i
		}
	}
	if g < 0 || p < 0 {
		return 0, 0, false
	}
	return uint32(g), uint32(p), true
}

type physicalDeviceCandidate struct {
	handle     vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
	features   vk.PhysicalDeviceFeatures
	memory     vk.PhysicalDeviceMemoryProperties
	families   []vk.QueueFamilyProperties
	graphics   uint32
	present    uint32
}

func (vc *VulkanContext) inspectPhysicalDevice(pd vk.PhysicalDevice) (*physicalDeviceCandidate, error) {
	c := &physicalDeviceCandidate{handle: pd}
	vk.GetPhysicalDeviceProperties(pd, &c.properties)
	c.properties.Deref()
	c.properties.Limits.Deref()
	vk.GetPhysicalDeviceFeatures(pd, &c.features)
	c.features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(pd, &c.memory)
	c.memory.Deref()

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	c.families = make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, c.families)

	support := make([]queueFamilySupport, familyCount)
	core.LogInfo("Graphics | Present | Compute | Transfer | Name")
	for i := range c.families {
		c.families[i].Deref()
		flags := c.families[i].QueueFlags
		var supportsPresent vk.Bool32
		if err := check(vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), vc.Surface, &supportsPresent), "vkGetPhysicalDeviceSurfaceSupport"); err != nil {
			return nil, err
		}
		support[i] = queueFamilySupport{
			Graphics: flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			Present:  supportsPresent == vk.True,
		}
		core.LogInfo("   %5t |   %5t |   %5t |    %5t | family %d of %s",
			support[i].Graphics,
			support[i].Present,
			flags&vk.QueueFlags(vk.QueueComputeBit) != 0,
			flags&vk.QueueFlags(vk.QueueTransferBit) != 0,
			i, vk.ToString(c.properties.DeviceName[:]))
	}
	var ok bool
	c.graphics, c.present, ok = selectQueueFamilies(support)
	if !ok {
		return nil, nil
	}
	return c, nil
}

func logDeviceInfo(c *physicalDeviceCandidate) {
	core.LogInfo("Selected device: '%s'.", vk.ToString(c.properties.DeviceName[:]))
	switch c.properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	driver := vk.Version(c.properties.DriverVersion)
	core.LogInfo("GPU Driver version: %d.%d.%d", driver.Major(), driver.Minor(), driver.Patch())
	api := vk.Version(c.properties.ApiVersion)
	core.LogInfo("Vulkan API version: %d.%d.%d", api.Major(), api.Minor(), api.Patch())

	for j := uint32(0); j < c.memory.MemoryHeapCount; j++ {
		heap := c.memory.MemoryHeaps[j]
		heap.Deref()
		memorySizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
	core.LogDebug("Graphics Family Index: %d", c.graphics)
	core.LogDebug("Present Family Index:  %d", c.present)
}

func (vc *VulkanContext) selectPhysicalDevice() (*physicalDeviceCandidate, error) {
	var count uint32
	if err := check(vk.EnumeratePhysicalDevices(vc.Instance, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	if count == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found: %w", core.ErrFeatureMissing)
		core.LogError(err.Error())
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check(vk.EnumeratePhysicalDevices(vc.Instance, &count, devices), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}

	var chosen *physicalDeviceCandidate
	for _, pd := range devices[:count] {
		c, err := vc.inspectPhysicalDevice(pd)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		if vc.info.PreferredDevice == "" {
			chosen = c
			break
		}
		if vk.ToString(c.properties.DeviceName[:]) == vc.info.PreferredDevice {
			chosen = c
			break
		}
		if chosen == nil {
			chosen = c
		}
	}
	if chosen == nil {
		err := fmt.Errorf("no physical device offers graphics and present queues: %w", core.ErrFeatureMissing)
		core.LogError(err.Error())
		return nil, err
	}
	return chosen, nil
}

// enumerateDeviceExtensions lists the device extensions exposed implicitly
// and through every enabled instance layer.
func enumerateDeviceExtensions(pd vk.PhysicalDevice, layers []string) ([]string, error) {
	var names []string
	for _, layer := range append([]string{""}, layers...) {
		layerName := layer
		if layerName != "" {
			layerName = VulkanSafeString(layerName)
		}
		var count uint32
		if err := check(vk.EnumerateDeviceExtensionProperties(pd, layerName, &count, nil), "vkEnumerateDeviceExtensionProperties"); err != nil {
			return nil, err
		}
		if count == 0 {
			continue
		}
		props := make([]vk.ExtensionProperties, count)
		if err := check(vk.EnumerateDeviceExtensionProperties(pd, layerName, &count, props), "vkEnumerateDeviceExtensionProperties"); err != nil {
			return nil, err
		}
		for i := range props[:count] {
			props[i].Deref()
			names = append(names, cString(props[i].ExtensionName[:]))
		}
	}
	return dedupe(names), nil
}

// InitDevice selects a physical device, creates the logical device with one
// queue per selected family and every feature the device reports, and
// creates the graphics command pool and the pipeline cache.
func (vc *VulkanContext) InitDevice() error {
	c, err := vc.selectPhysicalDevice()
	if err != nil {
		return err
	}
	logDeviceInfo(c)

	available, err := enumerateDeviceExtensions(c.handle, vc.InstanceLayers)
	if err != nil {
		return err
	}
	optional := vc.info.OptionalDeviceExtensions
	if containsName(available, portabilitySubsetExtension) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		optional = append(append([]string{}, optional...), portabilitySubsetExtension)
	}
	extensions, err := selectNames(available, vc.info.RequiredDeviceExtensions, optional, core.ErrExtensionNotPresent)
	if err != nil {
		core.LogError("Device extension selection failed: %s", err)
		return err
	}
	for _, e := range extensions {
		core.LogInfo("Device extension: %s", e)
	}

	// NOTE: Do not create additional queues for shared indices.
	families := []uint32{c.graphics}
	if c.present != c.graphics {
		families = append(families, c.present)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{c.features},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		// Ignored by current loaders, older ones expect the instance layers.
		EnabledLayerCount:   uint32(len(vc.InstanceLayers)),
		PpEnabledLayerNames: VulkanSafeStrings(vc.InstanceLayers),
	}

	device := &VulkanDevice{
		PhysicalDevice:     c.handle,
		GraphicsQueueIndex: c.graphics,
		PresentQueueIndex:  c.present,
		Name:               vk.ToString(c.properties.DeviceName[:]),
		Properties:         c.properties,
		Features:           c.features,
		Memory:             c.memory,
		QueueFamilies:      c.families,
	}
	if err := check(vk.CreateDevice(c.handle, &deviceCreateInfo, vc.Allocator, &device.LogicalDevice), "vkCreateDevice"); err != nil {
		return err
	}
	vc.Device = device
	vc.DeviceExtensions = extensions
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(device.LogicalDevice, device.GraphicsQueueIndex, 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.PresentQueueIndex, 0, &device.PresentQueue)
	vc.locks.SetQueueFamily(device.GraphicsQueueIndex)
	vc.locks.SetQueueFamily(device.PresentQueueIndex)
	core.LogInfo("Queues obtained.")

	vc.enableDebugMarkers()
	nameObject(vc, device.GraphicsQueue, vk.DebugReportObjectTypeQueue, "graphics-queue")

	pool, err := CreateCommandPool(vc, device.GraphicsQueueIndex,
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit), "graphics-command-pool")
	if err != nil {
		return err
	}
	device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	if _, err := vc.DetectDepthFormat(); err != nil {
		return err
	}
	cache, err := CreatePipelineCache(vc, nil, "pipeline-cache")
	if err != nil {
		return err
	}
	vc.PipelineCache = cache
	return nil
}

func (vc *VulkanContext) destroyDevice() {
	d := vc.Device
	d.GraphicsQueue = nil
	d.PresentQueue = nil
	if d.LogicalDevice != nil {
		if d.GraphicsCommandPool != nil {
			core.LogInfo("Destroying command pools...")
			vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, vc.Allocator)
			d.GraphicsCommandPool = nil
		}
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(d.LogicalDevice, vc.Allocator)
		d.LogicalDevice = nil
	}
	// Physical devices are not destroyed.
	core.LogInfo("Releasing physical device resources...")
	d.PhysicalDevice = nil
	vc.Device = nil
	vc.setObjectName = func(vk.DebugReportObjectType, uint64, string) {}
}
