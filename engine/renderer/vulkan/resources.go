package vulkan

import (
	"sort"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Every Create helper wraps one creation call: create, check the result,
// then label the object when name is not empty. Destroy helpers accept nil
// handles.

func CreateCommandPool(vc *VulkanContext, queueFamilyIndex uint32, flags vk.CommandPoolCreateFlags, name string) (vk.CommandPool, error) {
	ci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            flags,
		QueueFamilyIndex: queueFamilyIndex,
	}
	var pool vk.CommandPool
	if err := check(vk.CreateCommandPool(vc.Device.LogicalDevice, &ci, vc.Allocator, &pool), "vkCreateCommandPool"); err != nil {
		return nil, err
	}
	nameObject(vc, pool, vk.DebugReportObjectTypeCommandPool, name)
	return pool, nil
}

func DestroyCommandPool(vc *VulkanContext, pool vk.CommandPool) {
	if pool != nil {
		vk.DestroyCommandPool(vc.Device.LogicalDevice, pool, vc.Allocator)
	}
}

func CreateSemaphore(vc *VulkanContext, name string) (vk.Semaphore, error) {
	ci := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var semaphore vk.Semaphore
	if err := check(vk.CreateSemaphore(vc.Device.LogicalDevice, &ci, vc.Allocator, &semaphore), "vkCreateSemaphore"); err != nil {
		return vk.NullSemaphore, err
	}
	nameObject(vc, semaphore, vk.DebugReportObjectTypeSemaphore, name)
	return semaphore, nil
}

func DestroySemaphore(vc *VulkanContext, semaphore vk.Semaphore) {
	if semaphore != vk.NullSemaphore {
		vk.DestroySemaphore(vc.Device.LogicalDevice, semaphore, vc.Allocator)
	}
}

func CreateFence(vc *VulkanContext, signaled bool, name string) (vk.Fence, error) {
	ci := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		ci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := check(vk.CreateFence(vc.Device.LogicalDevice, &ci, vc.Allocator, &fence), "vkCreateFence"); err != nil {
		return vk.NullFence, err
	}
	nameObject(vc, fence, vk.DebugReportObjectTypeFence, name)
	return fence, nil
}

func DestroyFence(vc *VulkanContext, fence vk.Fence) {
	if fence != vk.NullFence {
		vk.DestroyFence(vc.Device.LogicalDevice, fence, vc.Allocator)
	}
}

func CreateEvent(vc *VulkanContext, name string) (vk.Event, error) {
	ci := vk.EventCreateInfo{SType: vk.StructureTypeEventCreateInfo}
	var event vk.Event
	if err := check(vk.CreateEvent(vc.Device.LogicalDevice, &ci, vc.Allocator, &event), "vkCreateEvent"); err != nil {
		return nil, err
	}
	nameObject(vc, event, vk.DebugReportObjectTypeEvent, name)
	return event, nil
}

func DestroyEvent(vc *VulkanContext, event vk.Event) {
	if event != nil {
		vk.DestroyEvent(vc.Device.LogicalDevice, event, vc.Allocator)
	}
}

func CreateQueryPool(vc *VulkanContext, ci *vk.QueryPoolCreateInfo, name string) (vk.QueryPool, error) {
	var pool vk.QueryPool
	if err := check(vk.CreateQueryPool(vc.Device.LogicalDevice, ci, vc.Allocator, &pool), "vkCreateQueryPool"); err != nil {
		return nil, err
	}
	nameObject(vc, pool, vk.DebugReportObjectTypeQueryPool, name)
	return pool, nil
}

func DestroyQueryPool(vc *VulkanContext, pool vk.QueryPool) {
	if pool != nil {
		vk.DestroyQueryPool(vc.Device.LogicalDevice, pool, vc.Allocator)
	}
}

// CreatePipelineCache seeds the cache with initialData when given.
func CreatePipelineCache(vc *VulkanContext, initialData []byte, name string) (vk.PipelineCache, error) {
	ci := vk.PipelineCacheCreateInfo{SType: vk.StructureTypePipelineCacheCreateInfo}
	if len(initialData) > 0 {
		ci.InitialDataSize = uint(len(initialData))
		ci.PInitialData = unsafe.Pointer(&initialData[0])
	}
	var cache vk.PipelineCache
	if err := check(vk.CreatePipelineCache(vc.Device.LogicalDevice, &ci, vc.Allocator, &cache), "vkCreatePipelineCache"); err != nil {
		return nil, err
	}
	nameObject(vc, cache, vk.DebugReportObjectTypePipelineCache, name)
	return cache, nil
}

func DestroyPipelineCache(vc *VulkanContext, cache vk.PipelineCache) {
	if cache != nil {
		vk.DestroyPipelineCache(vc.Device.LogicalDevice, cache, vc.Allocator)
	}
}

func CreatePipelineLayout(vc *VulkanContext, setLayouts []vk.DescriptorSetLayout, pushConstants []vk.PushConstantRange, name string) (vk.PipelineLayout, error) {
	ci := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(pushConstants)),
		PPushConstantRanges:    pushConstants,
	}
	var layout vk.PipelineLayout
	if err := check(vk.CreatePipelineLayout(vc.Device.LogicalDevice, &ci, vc.Allocator, &layout), "vkCreatePipelineLayout"); err != nil {
		return nil, err
	}
	nameObject(vc, layout, vk.DebugReportObjectTypePipelineLayout, name)
	return layout, nil
}

func DestroyPipelineLayout(vc *VulkanContext, layout vk.PipelineLayout) {
	if layout != nil {
		vk.DestroyPipelineLayout(vc.Device.LogicalDevice, layout, vc.Allocator)
	}
}

func CreateRenderPass(vc *VulkanContext, ci *vk.RenderPassCreateInfo, name string) (vk.RenderPass, error) {
	var pass vk.RenderPass
	if err := check(vk.CreateRenderPass(vc.Device.LogicalDevice, ci, vc.Allocator, &pass), "vkCreateRenderPass"); err != nil {
		return nil, err
	}
	nameObject(vc, pass, vk.DebugReportObjectTypeRenderPass, name)
	return pass, nil
}

func DestroyRenderPass(vc *VulkanContext, pass vk.RenderPass) {
	if pass != nil {
		vk.DestroyRenderPass(vc.Device.LogicalDevice, pass, vc.Allocator)
	}
}

// CreateGraphicsPipeline builds one pipeline through the context's
// pipeline cache.
func CreateGraphicsPipeline(vc *VulkanContext, ci *vk.GraphicsPipelineCreateInfo, name string) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	err := vc.locks.SafeCall(PipelineManagement, func() error {
		return check(vk.CreateGraphicsPipelines(vc.Device.LogicalDevice, vc.PipelineCache, 1, []vk.GraphicsPipelineCreateInfo{*ci}, vc.Allocator, pipelines), "vkCreateGraphicsPipelines")
	})
	if err != nil {
		return nil, err
	}
	nameObject(vc, pipelines[0], vk.DebugReportObjectTypePipeline, name)
	return pipelines[0], nil
}

func CreateComputePipeline(vc *VulkanContext, ci *vk.ComputePipelineCreateInfo, name string) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	err := vc.locks.SafeCall(PipelineManagement, func() error {
		return check(vk.CreateComputePipelines(vc.Device.LogicalDevice, vc.PipelineCache, 1, []vk.ComputePipelineCreateInfo{*ci}, vc.Allocator, pipelines), "vkCreateComputePipelines")
	})
	if err != nil {
		return nil, err
	}
	nameObject(vc, pipelines[0], vk.DebugReportObjectTypePipeline, name)
	return pipelines[0], nil
}

func DestroyPipeline(vc *VulkanContext, pipeline vk.Pipeline) {
	if pipeline != nil {
		vk.DestroyPipeline(vc.Device.LogicalDevice, pipeline, vc.Allocator)
	}
}

func CreateDescriptorSetLayout(vc *VulkanContext, bindings []vk.DescriptorSetLayoutBinding, name string) (vk.DescriptorSetLayout, error) {
	ci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(vc.Device.LogicalDevice, &ci, vc.Allocator, &layout), "vkCreateDescriptorSetLayout"); err != nil {
		return nil, err
	}
	nameObject(vc, layout, vk.DebugReportObjectTypeDescriptorSetLayout, name)
	return layout, nil
}

func DestroyDescriptorSetLayout(vc *VulkanContext, layout vk.DescriptorSetLayout) {
	if layout != nil {
		vk.DestroyDescriptorSetLayout(vc.Device.LogicalDevice, layout, vc.Allocator)
	}
}

// SamplerCreateInfo fills a sampler covering every mip level with one
// address mode on all axes.
func SamplerCreateInfo(filter vk.Filter, mipmapMode vk.SamplerMipmapMode, addressMode vk.SamplerAddressMode) vk.SamplerCreateInfo {
	return vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        filter,
		MinFilter:        filter,
		MipmapMode:       mipmapMode,
		AddressModeU:     addressMode,
		AddressModeV:     addressMode,
		AddressModeW:     addressMode,
		MaxAnisotropy:    1.0,
		AnisotropyEnable: vk.False,
		CompareEnable:    vk.False,
		CompareOp:        vk.CompareOpNever,
		MinLod:           0.0,
		MaxLod:           vk.LodClampNone,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
	}
}

func CreateSampler(vc *VulkanContext, ci *vk.SamplerCreateInfo, name string) (vk.Sampler, error) {
	var sampler vk.Sampler
	if err := check(vk.CreateSampler(vc.Device.LogicalDevice, ci, vc.Allocator, &sampler), "vkCreateSampler"); err != nil {
		return nil, err
	}
	nameObject(vc, sampler, vk.DebugReportObjectTypeSampler, name)
	return sampler, nil
}

func DestroySampler(vc *VulkanContext, sampler vk.Sampler) {
	if sampler != nil {
		vk.DestroySampler(vc.Device.LogicalDevice, sampler, vc.Allocator)
	}
}

func CreateFramebuffer(vc *VulkanContext, ci *vk.FramebufferCreateInfo, name string) (vk.Framebuffer, error) {
	var framebuffer vk.Framebuffer
	if err := check(vk.CreateFramebuffer(vc.Device.LogicalDevice, ci, vc.Allocator, &framebuffer), "vkCreateFramebuffer"); err != nil {
		return nil, err
	}
	nameObject(vc, framebuffer, vk.DebugReportObjectTypeFramebuffer, name)
	return framebuffer, nil
}

func DestroyFramebuffer(vc *VulkanContext, framebuffer vk.Framebuffer) {
	if framebuffer != nil {
		vk.DestroyFramebuffer(vc.Device.LogicalDevice, framebuffer, vc.Allocator)
	}
}

// BufferCreateInfo describes an exclusive buffer of size bytes.
func BufferCreateInfo(size uint64, usage vk.BufferUsageFlags) vk.BufferCreateInfo {
	return vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
}

func CreateBuffer(vc *VulkanContext, ci *vk.BufferCreateInfo, name string) (vk.Buffer, error) {
	var buffer vk.Buffer
	err := vc.locks.SafeCall(ResourceManagement, func() error {
		return check(vk.CreateBuffer(vc.Device.LogicalDevice, ci, vc.Allocator, &buffer), "vkCreateBuffer")
	})
	if err != nil {
		return vk.NullBuffer, err
	}
	nameObject(vc, buffer, vk.DebugReportObjectTypeBuffer, name)
	return buffer, nil
}

func DestroyBuffer(vc *VulkanContext, buffer vk.Buffer) {
	if buffer != vk.NullBuffer {
		vk.DestroyBuffer(vc.Device.LogicalDevice, buffer, vc.Allocator)
	}
}

func CreateBufferView(vc *VulkanContext, ci *vk.BufferViewCreateInfo, name string) (vk.BufferView, error) {
	var view vk.BufferView
	if err := check(vk.CreateBufferView(vc.Device.LogicalDevice, ci, vc.Allocator, &view), "vkCreateBufferView"); err != nil {
		return nil, err
	}
	nameObject(vc, view, vk.DebugReportObjectTypeBufferView, name)
	return view, nil
}

func DestroyBufferView(vc *VulkanContext, view vk.BufferView) {
	if view != nil {
		vk.DestroyBufferView(vc.Device.LogicalDevice, view, vc.Allocator)
	}
}

func CreateImage(vc *VulkanContext, ci *vk.ImageCreateInfo, name string) (vk.Image, error) {
	var image vk.Image
	err := vc.locks.SafeCall(ResourceManagement, func() error {
		return check(vk.CreateImage(vc.Device.LogicalDevice, ci, vc.Allocator, &image), "vkCreateImage")
	})
	if err != nil {
		return nil, err
	}
	nameObject(vc, image, vk.DebugReportObjectTypeImage, name)
	return image, nil
}

func DestroyImage(vc *VulkanContext, image vk.Image) {
	if image != nil {
		vk.DestroyImage(vc.Device.LogicalDevice, image, vc.Allocator)
	}
}

func CreateImageView(vc *VulkanContext, ci *vk.ImageViewCreateInfo, name string) (vk.ImageView, error) {
	var view vk.ImageView
	if err := check(vk.CreateImageView(vc.Device.LogicalDevice, ci, vc.Allocator, &view), "vkCreateImageView"); err != nil {
		return vk.NullImageView, err
	}
	nameObject(vc, view, vk.DebugReportObjectTypeImageView, name)
	return view, nil
}

func DestroyImageView(vc *VulkanContext, view vk.ImageView) {
	if view != vk.NullImageView {
		vk.DestroyImageView(vc.Device.LogicalDevice, view, vc.Allocator)
	}
}

// DescriptorPoolSizes turns per-type descriptor counts into pool sizes,
// ordered by type so the result is stable.
func DescriptorPoolSizes(counts map[vk.DescriptorType]uint32) []vk.DescriptorPoolSize {
	sizes := make([]vk.DescriptorPoolSize, 0, len(counts))
	for t, n := range counts {
		if n == 0 {
			continue
		}
		sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: n})
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].Type < sizes[j].Type })
	return sizes
}

func CreateDescriptorPool(vc *VulkanContext, maxSets uint32, sizes []vk.DescriptorPoolSize, flags vk.DescriptorPoolCreateFlags, name string) (vk.DescriptorPool, error) {
	ci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         flags,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if err := check(vk.CreateDescriptorPool(vc.Device.LogicalDevice, &ci, vc.Allocator, &pool), "vkCreateDescriptorPool"); err != nil {
		return nil, err
	}
	nameObject(vc, pool, vk.DebugReportObjectTypeDescriptorPool, name)
	return pool, nil
}

func DestroyDescriptorPool(vc *VulkanContext, pool vk.DescriptorPool) {
	if pool != nil {
		vk.DestroyDescriptorPool(vc.Device.LogicalDevice, pool, vc.Allocator)
	}
}
