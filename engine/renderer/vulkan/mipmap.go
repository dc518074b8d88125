package vulkan

import (
	"fmt"
	"math/bits"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// MipLevelCount is the length of the full mip chain for the extent.
func MipLevelCount(width, height, depth uint32) uint32 {
	return uint32(bits.Len32(max(width, height, depth, 1)))
}

// blitRegion maps the whole of mip level-1 onto the whole of level, halving
// each dimension with a floor of one texel.
func blitRegion(base vk.Extent3D, level uint32, aspect vk.ImageAspectFlags, layerCount uint32) vk.ImageBlit {
	src := mipExtent(base, level-1)
	dst := mipExtent(base, level)
	return vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: level - 1, BaseArrayLayer: 0, LayerCount: layerCount},
		SrcOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(src.Width), Y: int32(src.Height), Z: int32(src.Depth)},
		},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: level, BaseArrayLayer: 0, LayerCount: layerCount},
		DstOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(dst.Width), Y: int32(dst.Height), Z: int32(dst.Depth)},
		},
	}
}

// GenerateMipmaps fills mips 1..n-1 of every layer by successive blits from
// mip 0, which must already hold the image and sit in img.Layout. Every mip
// ends in finalLayout. Formats that cannot be blitted with optimal tiling
// return ErrFeatureMissing and the mips have to come from the file.
func GenerateMipmaps(vc *VulkanContext, img *VulkanImage, finalLayout vk.ImageLayout, finalAccess vk.AccessFlags) error {
	ci := &img.CreateInfo
	blit := vk.FormatFeatureFlags(vk.FormatFeatureBlitSrcBit | vk.FormatFeatureBlitDstBit)
	if !vc.FormatSupports(ci.Format, vk.ImageTilingOptimal, blit) {
		return fmt.Errorf("format %d cannot be blitted: %w", ci.Format, core.ErrFeatureMissing)
	}
	filter := vk.FilterLinear
	if !vc.FormatSupports(ci.Format, vk.ImageTilingOptimal, vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit)) {
		filter = vk.FilterNearest
	}
	if ci.MipLevels <= 1 {
		return nil
	}

	aspect := aspectMask(ci.Format)
	layers := ci.ArrayLayers
	err := RunOneShot(vc, "generate mipmaps", func(cb vk.CommandBuffer) error {
		cmdImageBarriers(cb, vk.PipelineStageAllCommandsBit, vk.PipelineStageTransferBit,
			imageBarrier(img.Handle, ci.Format, img.Layout, vk.ImageLayoutTransferSrcOptimal, 0, 1, 0, layers))
		for level := uint32(1); level < ci.MipLevels; level++ {
			cmdImageBarriers(cb, vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit,
				imageBarrier(img.Handle, ci.Format, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, level, 1, 0, layers))
			region := blitRegion(ci.Extent, level, aspect, layers)
			vk.CmdBlitImage(cb, img.Handle, vk.ImageLayoutTransferSrcOptimal, img.Handle, vk.ImageLayoutTransferDstOptimal,
				1, []vk.ImageBlit{region}, filter)
			// the level just written is the source of the next blit
			cmdImageBarriers(cb, vk.PipelineStageTransferBit, vk.PipelineStageTransferBit,
				imageBarrier(img.Handle, ci.Format, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, level, 1, 0, layers))
		}
		final := imageBarrier(img.Handle, ci.Format, vk.ImageLayoutTransferSrcOptimal, finalLayout, 0, ci.MipLevels, 0, layers)
		final.DstAccessMask = finalAccess
		cmdImageBarriers(cb, vk.PipelineStageTransferBit, vk.PipelineStageAllCommandsBit, final)
		return nil
	})
	if err != nil {
		return err
	}
	img.Layout = finalLayout
	return nil
}
