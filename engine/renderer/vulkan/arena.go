package vulkan

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// DeviceMemoryArena hands out (memory, offset) pairs. Resources bound to an
// allocation must be destroyed before the arena releases its memory.
type DeviceMemoryArena interface {
	Allocate(info *vk.MemoryAllocateInfo, alignment uint64) (vk.DeviceMemory, uint64, error)
	Free(memory vk.DeviceMemory, offset uint64)
}

type ArenaFlags uint32

const (
	// ArenaFlagSingleThread advances the arena without atomics. Only for
	// callers that never allocate from two goroutines at once.
	ArenaFlagSingleThread ArenaFlags = 1 << iota
)

// flatBump aligns top up and reserves size bytes. It fails when the bump
// wraps around, runs past maxOffset or ends below baseOffset.
func flatBump(top, alignment, size, baseOffset, maxOffset uint64) (aligned uint64, newTop uint64, ok bool) {
	if alignment == 0 {
		alignment = 1
	}
	aligned = (top + alignment - 1) &^ (alignment - 1)
	if aligned < top {
		return 0, 0, false
	}
	newTop = aligned + size
	if newTop < aligned || newTop > maxOffset || newTop < baseOffset {
		return 0, 0, false
	}
	return aligned, newTop, true
}

// FlatArena bump-allocates from one block of device memory of a single
// memory type. Free is a no-op; the whole block goes away with Destroy.
type FlatArena struct {
	memory          vk.DeviceMemory
	memoryTypeIndex uint32
	baseOffset      uint64
	maxOffset       uint64
	flags           ArenaFlags
	top             uint64

	// set when the arena allocated memory itself
	vc *VulkanContext

	mapMu    sync.Mutex
	mapped   unsafe.Pointer
	mapCount int
}

// NewFlatArena allocates size bytes of memoryTypeIndex and bump-allocates
// from them.
func NewFlatArena(vc *VulkanContext, memoryTypeIndex uint32, size uint64, flags ArenaFlags, name string) (*FlatArena, error) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryTypeIndex,
	}
	var memory vk.DeviceMemory
	err := vc.locks.SafeCall(MemoryManagement, func() error {
		return check(vk.AllocateMemory(vc.Device.LogicalDevice, &info, vc.Allocator, &memory), "vkAllocateMemory")
	})
	if err != nil {
		return nil, err
	}
	nameObject(vc, memory, vk.DebugReportObjectTypeDeviceMemory, name)
	core.LogDebug("Flat arena '%s' holds %d bytes of memory type %d.", name, size, memoryTypeIndex)
	fa := NewFlatArenaFromMemory(memory, memoryTypeIndex, 0, size, flags)
	fa.vc = vc
	return fa, nil
}

// NewFlatArenaFromMemory wraps memory the caller owns. Offsets handed out
// lie within [baseOffset, maxOffset].
func NewFlatArenaFromMemory(memory vk.DeviceMemory, memoryTypeIndex uint32, baseOffset, maxOffset uint64, flags ArenaFlags) *FlatArena {
	return &FlatArena{
		memory:          memory,
		memoryTypeIndex: memoryTypeIndex,
		baseOffset:      baseOffset,
		maxOffset:       maxOffset,
		flags:           flags,
		top:             baseOffset,
	}
}

func (fa *FlatArena) Allocate(info *vk.MemoryAllocateInfo, alignment uint64) (vk.DeviceMemory, uint64, error) {
	if info.MemoryTypeIndex != fa.memoryTypeIndex {
		return nil, 0, fmt.Errorf("arena holds memory type %d, %d requested: %w", fa.memoryTypeIndex, info.MemoryTypeIndex, core.ErrOutOfDeviceMemory)
	}
	if alignment != 0 && alignment&(alignment-1) != 0 {
		core.Assert(false, "arena alignment %d is not a power of two", alignment)
		return nil, 0, fmt.Errorf("alignment %d: %w", alignment, core.ErrInvalidArgument)
	}
	size := uint64(info.AllocationSize)

	if fa.flags&ArenaFlagSingleThread != 0 {
		aligned, newTop, ok := flatBump(fa.top, alignment, size, fa.baseOffset, fa.maxOffset)
		if !ok {
			return nil, 0, fa.exhausted(size, fa.top)
		}
		fa.top = newTop
		return fa.memory, aligned, nil
	}
	for {
		top := atomic.LoadUint64(&fa.top)
		aligned, newTop, ok := flatBump(top, alignment, size, fa.baseOffset, fa.maxOffset)
		if !ok {
			return nil, 0, fa.exhausted(size, top)
		}
		if atomic.CompareAndSwapUint64(&fa.top, top, newTop) {
			return fa.memory, aligned, nil
		}
	}
}

func (fa *FlatArena) exhausted(size, top uint64) error {
	return fmt.Errorf("arena cannot fit %d bytes at %d (limit %d): %w", size, top, fa.maxOffset, core.ErrOutOfDeviceMemory)
}

// Free does nothing: space comes back only when the arena is destroyed.
func (fa *FlatArena) Free(memory vk.DeviceMemory, offset uint64) {}

// Top is the current bump offset.
func (fa *FlatArena) Top() uint64 {
	if fa.flags&ArenaFlagSingleThread != 0 {
		return fa.top
	}
	return atomic.LoadUint64(&fa.top)
}

func (fa *FlatArena) Memory() vk.DeviceMemory { return fa.memory }

func (fa *FlatArena) MemoryTypeIndex() uint32 { return fa.memoryTypeIndex }

// mapBase maps the whole block once and counts the users. Vulkan allows a
// single mapping per memory object, so allocations share it.
func (fa *FlatArena) mapBase(vc *VulkanContext) (unsafe.Pointer, error) {
	fa.mapMu.Lock()
	defer fa.mapMu.Unlock()
	if fa.mapCount == 0 {
		var ptr unsafe.Pointer
		if err := check(vk.MapMemory(vc.Device.LogicalDevice, fa.memory, 0, vk.DeviceSize(vk.WholeSize), 0, &ptr), "vkMapMemory"); err != nil {
			return nil, err
		}
		fa.mapped = ptr
	}
	fa.mapCount++
	return fa.mapped, nil
}

func (fa *FlatArena) unmapBase(vc *VulkanContext) {
	fa.mapMu.Lock()
	defer fa.mapMu.Unlock()
	if fa.mapCount == 0 {
		return
	}
	fa.mapCount--
	if fa.mapCount == 0 {
		vk.UnmapMemory(vc.Device.LogicalDevice, fa.memory)
		fa.mapped = nil
	}
}

// Destroy frees the block if the arena allocated it.
func (fa *FlatArena) Destroy() {
	if fa.vc == nil || fa.memory == nil {
		return
	}
	if fa.mapCount > 0 {
		vk.UnmapMemory(fa.vc.Device.LogicalDevice, fa.memory)
		fa.mapCount, fa.mapped = 0, nil
	}
	vk.FreeMemory(fa.vc.Device.LogicalDevice, fa.memory, fa.vc.Allocator)
	fa.memory = nil
}
