package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(vc *VulkanContext, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView, name string) (*VulkanFramebuffer, error) {
	outFramebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var err error
	if outFramebuffer.Handle, err = CreateFramebuffer(vc, &createInfo, name); err != nil {
		return nil, err
	}
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(vc *VulkanContext) {
	DestroyFramebuffer(vc, vfb.Handle)
	vfb.Attachments = nil
	vfb.Handle = nil
	vfb.Renderpass = nil
}

// SwapchainTargets holds one framebuffer per swapchain image plus the depth
// image they share. Rebuild after every swapchain recreation.
type SwapchainTargets struct {
	Renderpass   *VulkanRenderpass
	Depth        *VulkanImage
	Framebuffers []*VulkanFramebuffer
	generation   uint64
}

func NewSwapchainTargets(vc *VulkanContext, renderpass *VulkanRenderpass) (*SwapchainTargets, error) {
	st := &SwapchainTargets{Renderpass: renderpass}
	if err := st.Rebuild(vc); err != nil {
		return nil, err
	}
	return st, nil
}

// Stale reports whether the swapchain changed since the last Rebuild.
func (st *SwapchainTargets) Stale(vc *VulkanContext) bool {
	return st.generation != vc.Swapchain.Generation
}

func (st *SwapchainTargets) Rebuild(vc *VulkanContext) error {
	st.destroy(vc)
	sc := vc.Swapchain
	extent := sc.Extent
	st.Renderpass.SetRenderArea(0, 0, float32(extent.Width), float32(extent.Height))

	if st.Renderpass.DepthFormat != vk.FormatUndefined {
		ci := vk.ImageCreateInfo{
			SType:         vk.StructureTypeImageCreateInfo,
			ImageType:     vk.ImageType2d,
			Format:        st.Renderpass.DepthFormat,
			Extent:        vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
			MipLevels:     1,
			ArrayLayers:   1,
			Samples:       vk.SampleCount1Bit,
			Tiling:        vk.ImageTilingOptimal,
			Usage:         vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			SharingMode:   vk.SharingModeExclusive,
			InitialLayout: vk.ImageLayoutUndefined,
		}
		depth, err := CreateImageWithTransition(vc, nil, &ci, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			vk.ImageLayoutDepthStencilAttachmentOptimal, "swapchain depth")
		if err != nil {
			return err
		}
		st.Depth = depth
	}

	st.Framebuffers = make([]*VulkanFramebuffer, 0, len(sc.Views))
	for i, view := range sc.Views {
		attachments := []vk.ImageView{view}
		if st.Depth != nil {
			attachments = append(attachments, st.Depth.View)
		}
		fb, err := FramebufferCreate(vc, st.Renderpass, extent.Width, extent.Height, attachments, fmt.Sprintf("swapchain framebuffer %d", i))
		if err != nil {
			st.destroy(vc)
			return err
		}
		st.Framebuffers = append(st.Framebuffers, fb)
	}
	st.generation = sc.Generation
	return nil
}

func (st *SwapchainTargets) destroy(vc *VulkanContext) {
	for _, fb := range st.Framebuffers {
		fb.Destroy(vc)
	}
	st.Framebuffers = nil
	if st.Depth != nil {
		st.Depth.Destroy(vc)
		st.Depth = nil
	}
}

func (st *SwapchainTargets) Destroy(vc *VulkanContext) {
	st.destroy(vc)
}
