package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// ResultError maps a failed result onto the engine error kinds. It returns
// nil for the non-error codes.
func ResultError(result vk.Result) error {
	if VulkanResultIsSuccess(result) {
		return nil
	}
	var kind error
	switch result {
	case vk.ErrorOutOfDeviceMemory:
		kind = core.ErrOutOfDeviceMemory
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
		kind = core.ErrOutOfHostMemory
	case vk.ErrorLayerNotPresent:
		kind = core.ErrLayerNotPresent
	case vk.ErrorExtensionNotPresent:
		kind = core.ErrExtensionNotPresent
	case vk.ErrorFeatureNotPresent:
		kind = core.ErrFeatureMissing
	case vk.ErrorFormatNotSupported:
		kind = core.ErrUnsupportedFormat
	case vk.ErrorOutOfDate:
		kind = core.ErrSwapchainOutOfDate
	case vk.ErrorDeviceLost:
		kind = core.ErrDeviceLost
	default:
		kind = core.ErrUnknown
	}
	return fmt.Errorf("%s: %w", VulkanResultString(result, false), kind)
}

// check logs and returns a wrapped error when result is a failure.
func check(result vk.Result, op string) error {
	err := ResultError(result)
	if err == nil {
		return nil
	}
	err = fmt.Errorf("%s failed: %w", op, err)
	core.LogError(err.Error())
	return err
}
