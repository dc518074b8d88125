package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
)

const hostStaging = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit

// stagingBuffer is a host-visible transfer source holding a copy of src.
func stagingBuffer(vc *VulkanContext, src []byte, name string) (vk.Buffer, *DeviceMemoryAllocation, error) {
	ci := BufferCreateInfo(uint64(len(src)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	buffer, err := CreateBuffer(vc, &ci, name)
	if err != nil {
		return nil, nil, err
	}
	alloc, err := AllocateAndBindBufferMemory(vc, nil, buffer, vk.MemoryPropertyFlags(hostStaging))
	if err != nil {
		DestroyBuffer(vc, buffer)
		return nil, nil, err
	}
	mapped, err := MapAllocation(vc, alloc)
	if err != nil {
		DestroyBuffer(vc, buffer)
		alloc.Free(vc)
		return nil, nil, err
	}
	copy(mapped, src)
	UnmapAllocation(vc, alloc)
	return buffer, alloc, nil
}

// BufferUpload copies src into dst at dstOffset through a staging buffer
// and blocks until the copy has retired. Later reads of the range must use
// finalAccess.
func BufferUpload(vc *VulkanContext, dst vk.Buffer, dstOffset uint64, src []byte, finalAccess vk.AccessFlags) error {
	if len(src) == 0 {
		return nil
	}
	size := vk.DeviceSize(len(src))
	staging, alloc, err := stagingBuffer(vc, src, "buffer upload staging")
	if err != nil {
		return err
	}
	defer func() {
		DestroyBuffer(vc, staging)
		alloc.Free(vc)
	}()

	return RunOneShot(vc, "buffer upload", func(cb vk.CommandBuffer) error {
		cmdBufferBarriers(cb, vk.PipelineStageHostBit, vk.PipelineStageTransferBit,
			bufferBarrier(staging, 0, size, vk.AccessFlags(vk.AccessHostWriteBit), vk.AccessFlags(vk.AccessTransferReadBit)),
			bufferBarrier(dst, vk.DeviceSize(dstOffset), size,
				vk.AccessFlags(vk.AccessMemoryReadBit|vk.AccessMemoryWriteBit), vk.AccessFlags(vk.AccessTransferWriteBit)))
		vk.CmdCopyBuffer(cb, staging, dst, 1, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: vk.DeviceSize(dstOffset),
			Size:      size,
		}})
		cmdBufferBarriers(cb, vk.PipelineStageTransferBit, vk.PipelineStageAllCommandsBit,
			bufferBarrier(dst, vk.DeviceSize(dstOffset), size, vk.AccessFlags(vk.AccessTransferWriteBit), finalAccess))
		return nil
	})
}

func bufferBarrier(buffer vk.Buffer, offset, size vk.DeviceSize, src, dst vk.AccessFlags) vk.BufferMemoryBarrier {
	return vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       src,
		DstAccessMask:       dst,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer,
		Offset:              offset,
		Size:                size,
	}
}

func mipExtent(extent vk.Extent3D, level uint32) vk.Extent3D {
	return vk.Extent3D{
		Width:  max(1, extent.Width>>level),
		Height: max(1, extent.Height>>level),
		Depth:  max(1, extent.Depth>>level),
	}
}

// copyRows writes tightly packed rows of src into dst laid out with the
// driver's pitches.
func copyRows(dst []byte, offset, rowPitch, depthPitch uint64, src []byte, rowBytes, rows, slices uint64) error {
	if rowBytes*rows*slices > uint64(len(src)) {
		return fmt.Errorf("%d bytes of pixels, %d needed: %w", len(src), rowBytes*rows*slices, core.ErrInvalidArgument)
	}
	if rowBytes > rowPitch && rows > 1 {
		return fmt.Errorf("row of %d bytes does not fit pitch %d: %w", rowBytes, rowPitch, core.ErrInvalidArgument)
	}
	if slices > 1 && depthPitch == 0 {
		depthPitch = rowPitch * rows
	}
	for z := uint64(0); z < slices; z++ {
		for y := uint64(0); y < rows; y++ {
			at := offset + z*depthPitch + y*rowPitch
			if at+rowBytes > uint64(len(dst)) {
				return fmt.Errorf("row %d of slice %d past the mapped range: %w", y, z, core.ErrInvalidArgument)
			}
			from := (z*rows + y) * rowBytes
			copy(dst[at:at+rowBytes], src[from:from+rowBytes])
		}
	}
	return nil
}

// linearStagingSupported reports whether the device can create a linear,
// transfer-source image of the format and extent.
func linearStagingSupported(vc *VulkanContext, ci *vk.ImageCreateInfo) bool {
	var props vk.ImageFormatProperties
	res := vk.GetPhysicalDeviceImageFormatProperties(vc.Device.PhysicalDevice, ci.Format, ci.ImageType,
		vk.ImageTilingLinear, vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit), 0, &props)
	if res != vk.Success {
		return false
	}
	props.Deref()
	props.MaxExtent.Deref()
	return ci.Extent.Width <= props.MaxExtent.Width && ci.Extent.Height <= props.MaxExtent.Height &&
		ci.Extent.Depth <= props.MaxExtent.Depth
}

// ImageUploadSubresource copies one (mip, layer) of pixels into dst and
// leaves it in finalLayout. pixels holds the subresource tightly packed.
// The staging source is a linear image when the device supports one for
// the format and a buffer otherwise.
func ImageUploadSubresource(vc *VulkanContext, dst *VulkanImage, sub loaders.Subresource, pixels []byte, finalLayout vk.ImageLayout, finalAccess vk.AccessFlags) error {
	dci := &dst.CreateInfo
	if sub.MipLevel >= dci.MipLevels || sub.ArrayLayer >= dci.ArrayLayers {
		return fmt.Errorf("subresource (%d, %d) outside %d mips x %d layers: %w",
			sub.MipLevel, sub.ArrayLayer, dci.MipLevels, dci.ArrayLayers, core.ErrInvalidArgument)
	}
	extent := mipExtent(dci.Extent, sub.MipLevel)
	f := format.Format(dci.Format)
	if f.BytesPerBlock() == 0 {
		return fmt.Errorf("image format %s: %w", f, core.ErrUnsupportedFormat)
	}
	info := f.Info()
	rowBytes := uint64(f.RowPitch(extent.Width))
	rows := uint64((extent.Height + info.BlockHeight - 1) / info.BlockHeight)
	slices := uint64(extent.Depth)
	if need := rowBytes * rows * slices; uint64(len(pixels)) < need {
		return fmt.Errorf("subresource (%d, %d) needs %d bytes, got %d: %w", sub.MipLevel, sub.ArrayLayer, need, len(pixels), core.ErrInvalidArgument)
	}

	sci := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     dci.ImageType,
		Format:        dci.Format,
		Extent:        extent,
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingLinear,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutPreinitialized,
	}
	if !linearStagingSupported(vc, &sci) {
		core.LogDebug("no linear staging for %s, uploading through a buffer", f)
		return imageUploadFromBuffer(vc, dst, sub, extent, pixels[:rowBytes*rows*slices], finalLayout, finalAccess)
	}

	staging, err := CreateImage(vc, &sci, "image upload staging")
	if err != nil {
		return err
	}
	defer DestroyImage(vc, staging)
	alloc, err := AllocateAndBindImageMemory(vc, nil, staging, vk.MemoryPropertyFlags(hostStaging))
	if err != nil {
		return err
	}
	defer alloc.Free(vc)

	var layout vk.SubresourceLayout
	vk.GetImageSubresourceLayout(vc.Device.LogicalDevice, staging, &vk.ImageSubresource{
		AspectMask: aspectMask(dci.Format),
	}, &layout)
	layout.Deref()

	mapped, err := MapAllocation(vc, alloc)
	if err != nil {
		return err
	}
	err = copyRows(mapped, uint64(layout.Offset), uint64(layout.RowPitch), uint64(layout.DepthPitch), pixels, rowBytes, rows, slices)
	UnmapAllocation(vc, alloc)
	if err != nil {
		return err
	}

	aspect := aspectMask(dci.Format)
	err = RunOneShot(vc, "image upload", func(cb vk.CommandBuffer) error {
		cmdImageBarriers(cb, vk.PipelineStageHostBit, vk.PipelineStageTransferBit,
			imageBarrier(staging, dci.Format, vk.ImageLayoutPreinitialized, vk.ImageLayoutTransferSrcOptimal, 0, 1, 0, 1),
			imageBarrier(dst.Handle, dci.Format, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, sub.MipLevel, 1, sub.ArrayLayer, 1))
		vk.CmdCopyImage(cb, staging, vk.ImageLayoutTransferSrcOptimal, dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageCopy{{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: 0, BaseArrayLayer: 0, LayerCount: 1},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: sub.MipLevel, BaseArrayLayer: sub.ArrayLayer, LayerCount: 1},
			Extent:         extent,
		}})
		finishSubresource(cb, dst, sub, finalLayout, finalAccess)
		return nil
	})
	if err != nil {
		return err
	}
	dst.Layout = finalLayout
	return nil
}

func imageUploadFromBuffer(vc *VulkanContext, dst *VulkanImage, sub loaders.Subresource, extent vk.Extent3D, pixels []byte, finalLayout vk.ImageLayout, finalAccess vk.AccessFlags) error {
	dci := &dst.CreateInfo
	staging, alloc, err := stagingBuffer(vc, pixels, "image upload staging")
	if err != nil {
		return err
	}
	defer func() {
		DestroyBuffer(vc, staging)
		alloc.Free(vc)
	}()
	err = RunOneShot(vc, "image upload", func(cb vk.CommandBuffer) error {
		cmdImageBarriers(cb, vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit,
			imageBarrier(dst.Handle, dci.Format, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, sub.MipLevel, 1, sub.ArrayLayer, 1))
		vk.CmdCopyBufferToImage(cb, staging, dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     aspectMask(dci.Format),
				MipLevel:       sub.MipLevel,
				BaseArrayLayer: sub.ArrayLayer,
				LayerCount:     1,
			},
			ImageExtent: extent,
		}})
		finishSubresource(cb, dst, sub, finalLayout, finalAccess)
		return nil
	})
	if err != nil {
		return err
	}
	dst.Layout = finalLayout
	return nil
}

func finishSubresource(cb vk.CommandBuffer, dst *VulkanImage, sub loaders.Subresource, finalLayout vk.ImageLayout, finalAccess vk.AccessFlags) {
	barrier := imageBarrier(dst.Handle, dst.CreateInfo.Format, vk.ImageLayoutTransferDstOptimal, finalLayout, sub.MipLevel, 1, sub.ArrayLayer, 1)
	barrier.DstAccessMask = finalAccess
	cmdImageBarriers(cb, vk.PipelineStageTransferBit, vk.PipelineStageAllCommandsBit, barrier)
}
