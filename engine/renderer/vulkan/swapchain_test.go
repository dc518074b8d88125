package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestChooseSurfaceFormat(t *testing.T) {
	got := chooseSurfaceFormat([]vk.SurfaceFormat{{Format: vk.FormatUndefined}})
	if got.Format != vk.FormatB8g8r8a8Unorm || got.ColorSpace != vk.ColorSpaceSrgbNonlinear {
		t.Errorf("no preference: got %v", got)
	}

	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	if got := chooseSurfaceFormat(formats); got.Format != vk.FormatR8g8b8a8Srgb {
		t.Errorf("expected the first format, got %v", got.Format)
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		modes []vk.PresentMode
		want  vk.PresentMode
	}{
		{[]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}, vk.PresentModeMailbox},
		{[]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}, vk.PresentModeFifo},
		{nil, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		if got := choosePresentMode(tt.modes); got != tt.want {
			t.Errorf("choosePresentMode(%v) = %v, want %v", tt.modes, got, tt.want)
		}
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct{ min, max, want uint32 }{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
		{1, 2, 2},
	}
	for _, tt := range tests {
		if got := chooseImageCount(tt.min, tt.max); got != tt.want {
			t.Errorf("chooseImageCount(%d, %d) = %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestChooseExtent(t *testing.T) {
	minE := vk.Extent2D{Width: 16, Height: 16}
	maxE := vk.Extent2D{Width: 4096, Height: 2048}

	current := vk.Extent2D{Width: 800, Height: 600}
	if got := chooseExtent(current, minE, maxE, 1280, 720); got != current {
		t.Errorf("surface extent should win, got %v", got)
	}

	free := vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	if got := chooseExtent(free, minE, maxE, 1280, 720); got.Width != 1280 || got.Height != 720 {
		t.Errorf("requested extent not used, got %v", got)
	}
	if got := chooseExtent(free, minE, maxE, 8000, 8); got.Width != 4096 || got.Height != 16 {
		t.Errorf("extent not clamped, got %v", got)
	}
}

func TestChooseTransformAndAlpha(t *testing.T) {
	rotated := vk.SurfaceTransformRotate90Bit
	if got := chooseTransform(vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit|rotated), rotated); got != vk.SurfaceTransformIdentityBit {
		t.Errorf("identity not preferred, got %v", got)
	}
	if got := chooseTransform(vk.SurfaceTransformFlags(rotated), rotated); got != rotated {
		t.Errorf("current transform not kept, got %v", got)
	}

	if got := chooseCompositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit | vk.CompositeAlphaInheritBit)); got != vk.CompositeAlphaOpaqueBit {
		t.Errorf("opaque not preferred, got %v", got)
	}
	if got := chooseCompositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit)); got != vk.CompositeAlphaInheritBit {
		t.Errorf("expected inherit, got %v", got)
	}
}

func TestChooseUsage(t *testing.T) {
	color := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	if got := chooseUsage(color); got != color {
		t.Errorf("usage = 0x%x, want 0x%x", got, color)
	}
	withDst := color | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	if got := chooseUsage(withDst | vk.ImageUsageFlags(vk.ImageUsageSampledBit)); got != withDst {
		t.Errorf("usage = 0x%x, want 0x%x", got, withDst)
	}
}

func TestSwapchainTargetsStale(t *testing.T) {
	vc := &VulkanContext{Swapchain: &VulkanSwapchain{Generation: 3}}
	st := &SwapchainTargets{generation: 3}
	if st.Stale(vc) {
		t.Errorf("targets of the current swapchain reported stale")
	}
	vc.Swapchain.Generation++
	if !st.Stale(vc) {
		t.Errorf("targets survived a swapchain rebuild")
	}
}
