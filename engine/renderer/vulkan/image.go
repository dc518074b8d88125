package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-gpu/engine/format"
)

// VulkanImage bundles an image with its memory and default view. Layout is
// the layout the image was left in by the last helper that touched it.
type VulkanImage struct {
	Handle     vk.Image
	View       vk.ImageView
	Allocation *DeviceMemoryAllocation
	CreateInfo vk.ImageCreateInfo
	Layout     vk.ImageLayout
}

func (vi *VulkanImage) Width() uint32  { return vi.CreateInfo.Extent.Width }
func (vi *VulkanImage) Height() uint32 { return vi.CreateInfo.Extent.Height }

func (vi *VulkanImage) Destroy(vc *VulkanContext) {
	DestroyImageView(vc, vi.View)
	vi.View = vk.NullImageView
	DestroyImage(vc, vi.Handle)
	vi.Handle = nil
	vi.Allocation.Free(vc)
	vi.Allocation = nil
}

const viewUsage = vk.ImageUsageSampledBit | vk.ImageUsageStorageBit | vk.ImageUsageColorAttachmentBit |
	vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageInputAttachmentBit

// CreateImageWithTransition creates the image, binds memory with props from
// arena (dedicated when nil), creates a view when the usage needs one and
// moves the image from ci.InitialLayout to finalLayout in a one-shot
// submission when the two differ.
func CreateImageWithTransition(vc *VulkanContext, arena DeviceMemoryArena, ci *vk.ImageCreateInfo, props vk.MemoryPropertyFlags, finalLayout vk.ImageLayout, name string) (*VulkanImage, error) {
	vi := &VulkanImage{CreateInfo: *ci, Layout: ci.InitialLayout}
	var err error
	if vi.Handle, err = CreateImage(vc, ci, name); err != nil {
		return nil, err
	}
	if vi.Allocation, err = AllocateAndBindImageMemory(vc, arena, vi.Handle, props); err != nil {
		vi.Destroy(vc)
		return nil, err
	}
	if ci.Usage&vk.ImageUsageFlags(viewUsage) != 0 {
		viewInfo := ImageViewCreateInfo(vi.Handle, ci)
		if vi.View, err = CreateImageView(vc, &viewInfo, name); err != nil {
			vi.Destroy(vc)
			return nil, err
		}
	}
	if finalLayout != ci.InitialLayout {
		err = RunOneShot(vc, name+" transition", func(cb vk.CommandBuffer) error {
			barrier := imageBarrier(vi.Handle, ci.Format, ci.InitialLayout, finalLayout, 0, ci.MipLevels, 0, ci.ArrayLayers)
			cmdImageBarriers(cb, vk.PipelineStageTopOfPipeBit, vk.PipelineStageAllCommandsBit, barrier)
			return nil
		})
		if err != nil {
			vi.Destroy(vc)
			return nil, err
		}
		vi.Layout = finalLayout
	}
	return vi, nil
}

// ImageViewCreateInfo describes a view of every mip and layer of image.
// 2D images created cube compatible with a multiple of six layers get a
// cube (or cube array) view.
func ImageViewCreateInfo(image vk.Image, ci *vk.ImageCreateInfo) vk.ImageViewCreateInfo {
	return vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: imageViewType(ci),
		Format:   ci.Format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectMask(ci.Format),
			BaseMipLevel:   0,
			LevelCount:     ci.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     ci.ArrayLayers,
		},
	}
}

func imageViewType(ci *vk.ImageCreateInfo) vk.ImageViewType {
	switch ci.ImageType {
	case vk.ImageType1d:
		if ci.ArrayLayers > 1 {
			return vk.ImageViewType1dArray
		}
		return vk.ImageViewType1d
	case vk.ImageType3d:
		return vk.ImageViewType3d
	}
	cube := ci.Flags&vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit) != 0 && ci.ArrayLayers%6 == 0
	switch {
	case cube && ci.ArrayLayers > 6:
		return vk.ImageViewTypeCubeArray
	case cube:
		return vk.ImageViewTypeCube
	case ci.ArrayLayers > 1:
		return vk.ImageViewType2dArray
	}
	return vk.ImageViewType2d
}

func aspectMask(f vk.Format) vk.ImageAspectFlags {
	ff := format.Format(f)
	var mask vk.ImageAspectFlagBits
	if ff.IsDepth() {
		mask |= vk.ImageAspectDepthBit
	}
	if ff.HasStencil() {
		mask |= vk.ImageAspectStencilBit
	}
	if mask == 0 {
		mask = vk.ImageAspectColorBit
	}
	return vk.ImageAspectFlags(mask)
}

// layoutAccess is the access mask matching work done in a layout.
func layoutAccess(layout vk.ImageLayout) vk.AccessFlags {
	switch layout {
	case vk.ImageLayoutPreinitialized:
		return vk.AccessFlags(vk.AccessHostWriteBit)
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit)
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.AccessFlags(vk.AccessTransferReadBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessShaderReadBit)
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit)
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit)
	case vk.ImageLayoutDepthStencilReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessShaderReadBit)
	case vk.ImageLayoutPresentSrc:
		return vk.AccessFlags(vk.AccessMemoryReadBit)
	case vk.ImageLayoutGeneral:
		return vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit)
	}
	return 0
}

// imageBarrier moves a mip/layer range between layouts with the access
// masks implied by the layouts.
func imageBarrier(image vk.Image, f vk.Format, oldLayout, newLayout vk.ImageLayout, baseMip, mipCount, baseLayer, layerCount uint32) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       layoutAccess(oldLayout),
		DstAccessMask:       layoutAccess(newLayout),
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectMask(f),
			BaseMipLevel:   baseMip,
			LevelCount:     mipCount,
			BaseArrayLayer: baseLayer,
			LayerCount:     layerCount,
		},
	}
}

func cmdImageBarriers(cb vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlagBits, barriers ...vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cb, vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage), 0,
		0, nil, 0, nil, uint32(len(barriers)), barriers)
}

func cmdBufferBarriers(cb vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlagBits, barriers ...vk.BufferMemoryBarrier) {
	vk.CmdPipelineBarrier(cb, vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage), 0,
		0, nil, uint32(len(barriers)), barriers, 0, nil)
}
