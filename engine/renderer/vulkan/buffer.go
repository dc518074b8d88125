package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	amath "github.com/spaghettifunk/anima-gpu/engine/math"
)

// VulkanBuffer is a buffer with its own memory.
type VulkanBuffer struct {
	Handle     vk.Buffer
	Size       uint64
	Usage      vk.BufferUsageFlags
	Allocation *DeviceMemoryAllocation
}

// NewVulkanBuffer creates a buffer and binds memory with props from arena,
// or dedicated memory when arena is nil.
func NewVulkanBuffer(vc *VulkanContext, arena DeviceMemoryArena, size uint64, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags, name string) (*VulkanBuffer, error) {
	ci := BufferCreateInfo(size, usage)
	handle, err := CreateBuffer(vc, &ci, name)
	if err != nil {
		return nil, err
	}
	alloc, err := AllocateAndBindBufferMemory(vc, arena, handle, props)
	if err != nil {
		DestroyBuffer(vc, handle)
		return nil, err
	}
	return &VulkanBuffer{Handle: handle, Size: size, Usage: usage, Allocation: alloc}, nil
}

func (vb *VulkanBuffer) Destroy(vc *VulkanContext) {
	DestroyBuffer(vc, vb.Handle)
	vb.Handle = vk.NullBuffer
	vb.Allocation.Free(vc)
	vb.Allocation = nil
}

// PipelinedBuffer keeps one copy of a buffer per pipelined frame. All
// copies live in a single block of memory so host-visible ones share one
// persistent mapping.
type PipelinedBuffer struct {
	Size    uint64
	buffers []vk.Buffer
	allocs  []*DeviceMemoryAllocation
	mapped  [][]byte
	arena   *FlatArena
	access  vk.AccessFlags
}

func NewPipelinedBuffer(vc *VulkanContext, depth int, size uint64, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags, name string) (*PipelinedBuffer, error) {
	if depth < 1 || size == 0 {
		return nil, fmt.Errorf("pipelined buffer of %d x %d bytes: %w", depth, size, core.ErrInvalidArgument)
	}
	hostVisible := props&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
	if hostVisible {
		props |= vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	} else {
		usage |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	pb := &PipelinedBuffer{Size: size, access: accessForUsage(usage)}

	ci := BufferCreateInfo(size, usage)
	for i := 0; i < depth; i++ {
		buffer, err := CreateBuffer(vc, &ci, fmt.Sprintf("%s %d", name, i))
		if err != nil {
			pb.Destroy(vc)
			return nil, err
		}
		pb.buffers = append(pb.buffers, buffer)
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vc.Device.LogicalDevice, pb.buffers[0], &reqs)
	reqs.Deref()
	typeIndex, err := vc.FindMemoryIndex(reqs.MemoryTypeBits, props)
	if err != nil {
		pb.Destroy(vc)
		return nil, err
	}
	stride := amath.AlignUp(uint64(reqs.Size), max(uint64(reqs.Alignment), 1))
	pb.arena, err = NewFlatArena(vc, typeIndex, stride*uint64(depth), ArenaFlagSingleThread, name)
	if err != nil {
		pb.Destroy(vc)
		return nil, err
	}

	for _, buffer := range pb.buffers {
		alloc, err := AllocateAndBindBufferMemory(vc, pb.arena, buffer, props)
		if err != nil {
			pb.Destroy(vc)
			return nil, err
		}
		pb.allocs = append(pb.allocs, alloc)
		if hostVisible {
			bytes, err := MapAllocation(vc, alloc)
			if err != nil {
				pb.Destroy(vc)
				return nil, err
			}
			pb.mapped = append(pb.mapped, bytes[:size])
		}
	}
	return pb, nil
}

func accessForUsage(usage vk.BufferUsageFlags) vk.AccessFlags {
	var access vk.AccessFlags
	if usage&vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit) != 0 {
		access |= vk.AccessFlags(vk.AccessVertexAttributeReadBit)
	}
	if usage&vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit) != 0 {
		access |= vk.AccessFlags(vk.AccessIndexReadBit)
	}
	if usage&vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit) != 0 {
		access |= vk.AccessFlags(vk.AccessUniformReadBit)
	}
	if usage&vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit) != 0 {
		access |= vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit)
	}
	if access == 0 {
		access = vk.AccessFlags(vk.AccessMemoryReadBit)
	}
	return access
}

func (pb *PipelinedBuffer) Depth() int { return len(pb.buffers) }

func (pb *PipelinedBuffer) Handle(pframe int) vk.Buffer { return pb.buffers[pframe] }

// Mapped is the persistent mapping of a copy, nil for device-local memory.
func (pb *PipelinedBuffer) Mapped(pframe int) []byte {
	if pb.mapped == nil {
		return nil
	}
	return pb.mapped[pframe]
}

// Load writes data at dstOffset of one copy, directly when mapped and
// through a staging upload otherwise.
func (pb *PipelinedBuffer) Load(vc *VulkanContext, pframe int, data []byte, dstOffset uint64) error {
	if dstOffset+uint64(len(data)) > pb.Size {
		return fmt.Errorf("load of %d bytes at %d into a %d byte buffer: %w", len(data), dstOffset, pb.Size, core.ErrInvalidArgument)
	}
	if m := pb.Mapped(pframe); m != nil {
		copy(m[dstOffset:], data)
		return nil
	}
	return BufferUpload(vc, pb.buffers[pframe], dstOffset, data, pb.access)
}

func (pb *PipelinedBuffer) Destroy(vc *VulkanContext) {
	for _, buffer := range pb.buffers {
		DestroyBuffer(vc, buffer)
	}
	pb.buffers = nil
	for _, alloc := range pb.allocs {
		alloc.Free(vc)
	}
	pb.allocs, pb.mapped = nil, nil
	if pb.arena != nil {
		pb.arena.Destroy()
		pb.arena = nil
	}
}
