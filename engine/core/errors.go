package core

import (
	"errors"
)

var (
	ErrLayerNotPresent     = errors.New("required layer not present")
	ErrExtensionNotPresent = errors.New("required extension not present")
	ErrOutOfDeviceMemory   = errors.New("out of device memory")
	ErrOutOfHostMemory     = errors.New("out of host memory")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrFileCorrupt         = errors.New("file corrupt")
	ErrFeatureMissing      = errors.New("feature not supported")
	ErrNotReady            = errors.New("not ready")
	ErrSwapchainOutOfDate  = errors.New("swapchain resized or recreated")
	ErrDeviceLost          = errors.New("device lost")
	ErrUnknown             = errors.New("unknown")
)
