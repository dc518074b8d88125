package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(vc *VulkanContext, pool vk.CommandPool, isPrimary bool, name string) (*VulkanCommandBuffer, error) {
	cb := &VulkanCommandBuffer{
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}
	handles := make([]vk.CommandBuffer, 1)
	err := vc.locks.SafeCall(CommandBufferManagement, func() error {
		return check(vk.AllocateCommandBuffers(vc.Device.LogicalDevice, &allocateInfo, handles), "vkAllocateCommandBuffers")
	})
	if err != nil {
		return nil, err
	}
	cb.Handle = handles[0]
	cb.State = COMMAND_BUFFER_STATE_READY
	nameObject(vc, cb.Handle, vk.DebugReportObjectTypeCommandBuffer, name)
	return cb, nil
}

func (v *VulkanCommandBuffer) Free(vc *VulkanContext, pool vk.CommandPool) {
	if v.Handle != nil {
		vk.FreeCommandBuffers(vc.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
	}
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}
	if err := check(vk.BeginCommandBuffer(v.Handle, &beginInfo), "vkBeginCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if err := check(vk.EndCommandBuffer(v.Handle), "vkEndCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

// Reset returns the buffer to the initial state. The pool must have been
// created with RESET_COMMAND_BUFFER.
func (v *VulkanCommandBuffer) Reset() error {
	if err := check(vk.ResetCommandBuffer(v.Handle, 0), "vkResetCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// OneShot is a command buffer recorded once, submitted to the graphics
// queue and waited on. It owns a transient pool and fence that go away
// after Submit or Abort.
type OneShot struct {
	CommandBuffer *VulkanCommandBuffer

	pool  vk.CommandPool
	fence vk.Fence
}

// BeginOneShot creates the transient objects and starts recording.
func BeginOneShot(vc *VulkanContext, name string) (*OneShot, error) {
	shot := &OneShot{}
	var err error
	shot.pool, err = CreateCommandPool(vc, vc.Device.GraphicsQueueIndex, vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit), name)
	if err != nil {
		return nil, err
	}
	shot.fence, err = CreateFence(vc, false, name)
	if err != nil {
		shot.Abort(vc)
		return nil, err
	}
	shot.CommandBuffer, err = NewVulkanCommandBuffer(vc, shot.pool, true, name)
	if err != nil {
		shot.Abort(vc)
		return nil, err
	}
	if err := shot.CommandBuffer.Begin(true, false, false); err != nil {
		shot.Abort(vc)
		return nil, err
	}
	return shot, nil
}

func (shot *OneShot) Handle() vk.CommandBuffer { return shot.CommandBuffer.Handle }

// Submit ends recording, submits, blocks on the fence and releases the
// transient objects whatever the outcome.
func (shot *OneShot) Submit(vc *VulkanContext) error {
	defer shot.Abort(vc)
	if err := shot.CommandBuffer.End(); err != nil {
		return err
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{shot.CommandBuffer.Handle},
	}
	err := vc.locks.SafeQueueCall(vc.Device.GraphicsQueueIndex, func() error {
		return check(vk.QueueSubmit(vc.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, shot.fence), "vkQueueSubmit")
	})
	if err != nil {
		return err
	}
	shot.CommandBuffer.UpdateSubmitted()
	if err := check(vk.WaitForFences(vc.Device.LogicalDevice, 1, []vk.Fence{shot.fence}, vk.True, vk.MaxUint64), "vkWaitForFences"); err != nil {
		return fmt.Errorf("one-shot submission did not complete: %w", err)
	}
	return nil
}

// Abort releases the transient objects without submitting.
func (shot *OneShot) Abort(vc *VulkanContext) {
	if shot.pool != nil {
		// Destroying the pool frees its command buffers.
		DestroyCommandPool(vc, shot.pool)
		shot.pool = nil
	}
	if shot.CommandBuffer != nil {
		shot.CommandBuffer.Handle = nil
		shot.CommandBuffer.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	if shot.fence != vk.NullFence {
		DestroyFence(vc, shot.fence)
		shot.fence = vk.NullFence
	}
}

// RunOneShot records fn into a one-shot command buffer and waits for it.
func RunOneShot(vc *VulkanContext, name string, fn func(cb vk.CommandBuffer) error) error {
	shot, err := BeginOneShot(vc, name)
	if err != nil {
		return err
	}
	if err := fn(shot.Handle()); err != nil {
		core.LogError("recording '%s' failed: %s", name, err)
		shot.Abort(vc)
		return err
	}
	return shot.Submit(vc)
}
