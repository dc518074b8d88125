package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// VulkanFence remembers whether it was seen signaled so waits on a
// retired frame return immediately.
type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(vc *VulkanContext, createSignaled bool, name string) (*VulkanFence, error) {
	handle, err := CreateFence(vc, createSignaled, name)
	if err != nil {
		return nil, err
	}
	return &VulkanFence{Handle: handle, IsSignaled: createSignaled}, nil
}

func (vf *VulkanFence) Destroy(vc *VulkanContext) {
	DestroyFence(vc, vf.Handle)
	vf.Handle = vk.NullFence
	vf.IsSignaled = false
}

// Wait blocks until the fence is signaled or timeoutNs passes.
func (vf *VulkanFence) Wait(vc *VulkanContext, timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(vc.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vkWaitForFences timed out after %d ns", timeoutNs)
		return fmt.Errorf("fence wait timed out: %w", core.ErrNotReady)
	default:
		return check(result, "vkWaitForFences")
	}
}

func (vf *VulkanFence) Reset(vc *VulkanContext) error {
	if !vf.IsSignaled {
		return nil
	}
	if err := check(vk.ResetFences(vc.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}), "vkResetFences"); err != nil {
		return err
	}
	vf.IsSignaled = false
	return nil
}
