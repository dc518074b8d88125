package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	amath "github.com/spaghettifunk/anima-gpu/engine/math"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	PresentMode vk.PresentMode
	Usage       vk.ImageUsageFlags
	Images      []vk.Image
	Views       []vk.ImageView

	// Generation counts rebuilds so hosts can tell stale framebuffers apart.
	Generation uint64
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// QuerySwapchainSupport reads the surface capabilities, formats and present
// modes of a physical device.
func QuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	info := &VulkanSwapchainSupportInfo{}
	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities), "vkGetPhysicalDeviceSurfaceCapabilities"); err != nil {
		return nil, err
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
		return nil, err
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := check(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
			return nil, err
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if err := check(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
		return nil, err
	}
	if modeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, modeCount)
		if err := check(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, info.PresentModes), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// chooseSurfaceFormat maps a surface without preference to B8G8R8A8_UNORM
// in the non-linear sRGB space, otherwise takes the first format offered.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	if len(formats) == 0 || (len(formats) == 1 && formats[0].Format == vk.FormatUndefined) {
		return vk.SurfaceFormat{
			Format:     vk.FormatB8g8r8a8Unorm,
			ColorSpace: vk.ColorSpaceSrgbNonlinear,
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// chooseImageCount asks for one image more than the minimum. A zero maximum
// means there is no limit.
func chooseImageCount(minCount, maxCount uint32) uint32 {
	count := minCount + 1
	if maxCount > 0 && count > maxCount {
		count = maxCount
	}
	return count
}

// chooseExtent uses the surface extent unless the surface leaves it to the
// application, in which case the requested size is clamped to the limits.
func chooseExtent(current, minExtent, maxExtent vk.Extent2D, width, height uint32) vk.Extent2D {
	if current.Width != math.MaxUint32 {
		return current
	}
	return vk.Extent2D{
		Width:  amath.Clamp(width, minExtent.Width, maxExtent.Width),
		Height: amath.Clamp(height, minExtent.Height, maxExtent.Height),
	}
}

func chooseTransform(supported vk.SurfaceTransformFlags, current vk.SurfaceTransformFlagBits) vk.SurfaceTransformFlagBits {
	if supported&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		return vk.SurfaceTransformIdentityBit
	}
	return current
}

func chooseCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	candidates := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for _, c := range candidates {
		if supported&vk.CompositeAlphaFlags(c) != 0 {
			return c
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func chooseUsage(supported vk.ImageUsageFlags) vk.ImageUsageFlags {
	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	if supported&vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}
	return usage
}

// InitSwapchain creates the swapchain, passing old so the presentation
// engine can recycle it. The previous swapchain of the context and its views
// are destroyed afterwards. Framebuffers over the old views are the host's
// to rebuild.
func (vc *VulkanContext) InitSwapchain(old vk.Swapchain) error {
	support, err := QuerySwapchainSupport(vc.Device.PhysicalDevice, vc.Surface)
	if err != nil {
		return err
	}
	if len(support.PresentModes) == 0 {
		err := fmt.Errorf("surface offers no present modes: %w", core.ErrFeatureMissing)
		core.LogError(err.Error())
		return err
	}
	caps := support.Capabilities

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats),
		PresentMode: choosePresentMode(support.PresentModes),
		Extent:      chooseExtent(caps.CurrentExtent, caps.MinImageExtent, caps.MaxImageExtent, vc.FramebufferWidth, vc.FramebufferHeight),
		Usage:       chooseUsage(caps.SupportedUsageFlags),
	}
	if swapchain.Extent.Width == 0 || swapchain.Extent.Height == 0 {
		return fmt.Errorf("surface extent is %dx%d: %w", swapchain.Extent.Width, swapchain.Extent.Height, core.ErrSwapchainOutOfDate)
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vc.Surface,
		MinImageCount:    chooseImageCount(caps.MinImageCount, caps.MaxImageCount),
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       swapchain.Usage,
		PreTransform:     chooseTransform(caps.SupportedTransforms, caps.CurrentTransform),
		CompositeAlpha:   chooseCompositeAlpha(caps.SupportedCompositeAlpha),
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	// Setup the queue family indices
	if vc.Device.GraphicsQueueIndex != vc.Device.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{vc.Device.GraphicsQueueIndex, vc.Device.PresentQueueIndex}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	err = vc.locks.SafeCall(SwapchainManagement, func() error {
		return check(vk.CreateSwapchain(vc.Device.LogicalDevice, &createInfo, vc.Allocator, &swapchain.Handle), "vkCreateSwapchain")
	})
	if err != nil {
		return err
	}

	previous := vc.Swapchain
	if previous != nil {
		swapchain.Generation = previous.Generation + 1
		previous.destroy(vc)
	}
	vc.Swapchain = swapchain

	var imageCount uint32
	if err := check(vk.GetSwapchainImages(vc.Device.LogicalDevice, swapchain.Handle, &imageCount, nil), "vkGetSwapchainImages"); err != nil {
		return err
	}
	swapchain.Images = make([]vk.Image, imageCount)
	if err := check(vk.GetSwapchainImages(vc.Device.LogicalDevice, swapchain.Handle, &imageCount, swapchain.Images), "vkGetSwapchainImages"); err != nil {
		return err
	}

	swapchain.Views = make([]vk.ImageView, 0, imageCount)
	for i, image := range swapchain.Images {
		nameObject(vc, image, vk.DebugReportObjectTypeImage, fmt.Sprintf("swapchain-image-%d", i))
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		view, err := CreateImageView(vc, &viewInfo, fmt.Sprintf("swapchain-view-%d", i))
		if err != nil {
			return err
		}
		swapchain.Views = append(swapchain.Views, view)
	}
	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d.",
		swapchain.Extent.Width, swapchain.Extent.Height, len(swapchain.Images), swapchain.PresentMode)
	return nil
}

// RecreateSwapchain rebuilds the swapchain for a new framebuffer size.
func (vc *VulkanContext) RecreateSwapchain(width, height uint32) error {
	if err := vc.WaitIdle(); err != nil {
		return err
	}
	vc.FramebufferWidth, vc.FramebufferHeight = width, height
	old := vk.NullSwapchain
	if vc.Swapchain != nil {
		old = vc.Swapchain.Handle
	}
	return vc.InitSwapchain(old)
}

// AcquireNextImage returns the index of the next presentable image. A
// suboptimal swapchain is still used; an out of date one yields
// core.ErrSwapchainOutOfDate.
func (vs *VulkanSwapchain) AcquireNextImage(vc *VulkanContext, timeoutNS uint64, imageAvailable vk.Semaphore, fence vk.Fence) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(vc.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailable, fence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		return imageIndex, nil
	case vk.ErrorOutOfDate:
		return 0, fmt.Errorf("acquire: %w", core.ErrSwapchainOutOfDate)
	default:
		return 0, check(result, "vkAcquireNextImage")
	}
}

// Present returns the image to the swapchain once renderComplete is
// signalled. Suboptimal and out of date results ask for a rebuild.
func (vs *VulkanSwapchain) Present(vc *VulkanContext, renderComplete vk.Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	var result vk.Result
	vc.locks.SafeQueueCall(vc.Device.PresentQueueIndex, func() error {
		result = vk.QueuePresent(vc.Device.PresentQueue, &presentInfo)
		return nil
	})
	switch result {
	case vk.Success:
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return fmt.Errorf("present: %w", core.ErrSwapchainOutOfDate)
	default:
		return check(result, "vkQueuePresent")
	}
}

func (vs *VulkanSwapchain) destroy(vc *VulkanContext) {
	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for _, view := range vs.Views {
		DestroyImageView(vc, view)
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(vc.Device.LogicalDevice, vs.Handle, vc.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}
