package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// DeviceMemoryAllocation is a non-owning view of (memory, offset, size)
// inside an arena, or a dedicated allocation when arena is nil.
type DeviceMemoryAllocation struct {
	Memory          vk.DeviceMemory
	Offset          uint64
	Size            uint64
	MemoryTypeIndex uint32
	Properties      vk.MemoryPropertyFlags

	arena    DeviceMemoryArena
	mapped   unsafe.Pointer
	mapCount int
}

func (a *DeviceMemoryAllocation) Dedicated() bool { return a.arena == nil }

func (a *DeviceMemoryAllocation) HostVisible() bool {
	return a.Properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
}

func allocateMemory(vc *VulkanContext, arena DeviceMemoryArena, reqs vk.MemoryRequirements, props vk.MemoryPropertyFlags) (*DeviceMemoryAllocation, error) {
	typeIndex, err := vc.FindMemoryIndex(reqs.MemoryTypeBits, props)
	if err != nil {
		return nil, err
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}
	alloc := &DeviceMemoryAllocation{
		Size:            uint64(reqs.Size),
		MemoryTypeIndex: typeIndex,
		Properties:      props,
		arena:           arena,
	}
	if arena != nil {
		memory, offset, err := arena.Allocate(&info, uint64(reqs.Alignment))
		if err != nil {
			core.LogError("arena allocation of %d bytes failed: %s", reqs.Size, err)
			return nil, err
		}
		alloc.Memory, alloc.Offset = memory, offset
		return alloc, nil
	}
	err = vc.locks.SafeCall(MemoryManagement, func() error {
		return check(vk.AllocateMemory(vc.Device.LogicalDevice, &info, vc.Allocator, &alloc.Memory), "vkAllocateMemory")
	})
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

// AllocateAndBindBufferMemory reserves memory with props for buffer and
// binds it.
func AllocateAndBindBufferMemory(vc *VulkanContext, arena DeviceMemoryArena, buffer vk.Buffer, props vk.MemoryPropertyFlags) (*DeviceMemoryAllocation, error) {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vc.Device.LogicalDevice, buffer, &reqs)
	reqs.Deref()
	alloc, err := allocateMemory(vc, arena, reqs, props)
	if err != nil {
		return nil, err
	}
	if err := check(vk.BindBufferMemory(vc.Device.LogicalDevice, buffer, alloc.Memory, vk.DeviceSize(alloc.Offset)), "vkBindBufferMemory"); err != nil {
		alloc.Free(vc)
		return nil, err
	}
	return alloc, nil
}

// AllocateAndBindImageMemory reserves memory with props for image and binds
// it.
func AllocateAndBindImageMemory(vc *VulkanContext, arena DeviceMemoryArena, image vk.Image, props vk.MemoryPropertyFlags) (*DeviceMemoryAllocation, error) {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(vc.Device.LogicalDevice, image, &reqs)
	reqs.Deref()
	alloc, err := allocateMemory(vc, arena, reqs, props)
	if err != nil {
		return nil, err
	}
	if err := check(vk.BindImageMemory(vc.Device.LogicalDevice, image, alloc.Memory, vk.DeviceSize(alloc.Offset)), "vkBindImageMemory"); err != nil {
		alloc.Free(vc)
		return nil, err
	}
	return alloc, nil
}

type memoryMapper interface {
	mapBase(vc *VulkanContext) (unsafe.Pointer, error)
	unmapBase(vc *VulkanContext)
}

// MapAllocation returns the allocation's bytes in host memory. Calls nest;
// the memory stays mapped until the matching number of UnmapAllocation
// calls.
func MapAllocation(vc *VulkanContext, a *DeviceMemoryAllocation) ([]byte, error) {
	if !a.HostVisible() {
		return nil, fmt.Errorf("memory type %d is not host visible: %w", a.MemoryTypeIndex, core.ErrInvalidArgument)
	}
	if a.mapCount == 0 {
		if m, ok := a.arena.(memoryMapper); ok {
			base, err := m.mapBase(vc)
			if err != nil {
				return nil, err
			}
			a.mapped = unsafe.Add(base, a.Offset)
		} else if a.arena != nil {
			return nil, fmt.Errorf("arena memory cannot be mapped: %w", core.ErrInvalidArgument)
		} else {
			var ptr unsafe.Pointer
			if err := check(vk.MapMemory(vc.Device.LogicalDevice, a.Memory, 0, vk.DeviceSize(a.Size), 0, &ptr), "vkMapMemory"); err != nil {
				return nil, err
			}
			a.mapped = ptr
		}
	}
	a.mapCount++
	return mappedBytes(a.mapped, a.Size), nil
}

func UnmapAllocation(vc *VulkanContext, a *DeviceMemoryAllocation) {
	if a.mapCount == 0 {
		return
	}
	a.mapCount--
	if a.mapCount > 0 {
		return
	}
	if m, ok := a.arena.(memoryMapper); ok {
		m.unmapBase(vc)
	} else if a.Dedicated() {
		vk.UnmapMemory(vc.Device.LogicalDevice, a.Memory)
	}
	a.mapped = nil
}

// Free returns the allocation to its arena or releases dedicated memory.
// Resources bound to it must already be destroyed.
func (a *DeviceMemoryAllocation) Free(vc *VulkanContext) {
	if a == nil || a.Memory == nil {
		return
	}
	for a.mapCount > 0 {
		UnmapAllocation(vc, a)
	}
	if a.Dedicated() {
		vk.FreeMemory(vc.Device.LogicalDevice, a.Memory, vc.Allocator)
	} else {
		a.arena.Free(a.Memory, a.Offset)
	}
	a.Memory = nil
}
