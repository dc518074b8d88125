package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gpu/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/mesh"
)

func textureCreateInfo(img *loaders.Image, mipLevels uint32, generateMips bool) vk.ImageCreateInfo {
	ci := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vk.Format(img.Format),
		Extent:        vk.Extent3D{Width: img.Width, Height: img.Height, Depth: max(img.Depth, 1)},
		MipLevels:     mipLevels,
		ArrayLayers:   max(img.ArrayLayers, 1),
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if img.Depth > 1 {
		ci.ImageType = vk.ImageType3d
	}
	if img.IsCube() {
		ci.Flags |= vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}
	if generateMips {
		ci.Usage |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	return ci
}

// LoadTextureFromFile decodes an image file into a device-local image in
// SHADER_READ_ONLY_OPTIMAL. With generateMips, files holding a single mip
// get a full chain blitted on the GPU when the format allows it.
func LoadTextureFromFile(vc *VulkanContext, arena DeviceMemoryArena, path string, generateMips bool) (*VulkanImage, error) {
	img, err := loaders.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return CreateTexture(vc, arena, img, generateMips, path)
}

// CreateTexture uploads every subresource of a decoded image.
func CreateTexture(vc *VulkanContext, arena DeviceMemoryArena, img *loaders.Image, generateMips bool, name string) (*VulkanImage, error) {
	f := vk.Format(img.Format)
	if !vc.FormatSupports(f, vk.ImageTilingOptimal, vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit)) {
		return nil, fmt.Errorf("%s: format %s cannot be sampled: %w", name, img.Format, core.ErrUnsupportedFormat)
	}

	mipLevels := max(img.MipLevels, 1)
	generate := generateMips && mipLevels == 1 && !img.Format.IsCompressed()
	if generate {
		blit := vk.FormatFeatureFlags(vk.FormatFeatureBlitSrcBit | vk.FormatFeatureBlitDstBit)
		if vc.FormatSupports(f, vk.ImageTilingOptimal, blit) {
			mipLevels = MipLevelCount(img.Width, img.Height, max(img.Depth, 1))
		} else {
			core.LogWarn("%s: format %s cannot be blitted, keeping a single mip", name, img.Format)
			generate = false
		}
	}

	ci := textureCreateInfo(img, mipLevels, generate)
	texture, err := CreateImageWithTransition(vc, arena, &ci, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), ci.InitialLayout, name)
	if err != nil {
		return nil, err
	}

	shaderRead := vk.AccessFlags(vk.AccessShaderReadBit)
	for layer := uint32(0); layer < ci.ArrayLayers; layer++ {
		for mip := uint32(0); mip < max(img.MipLevels, 1); mip++ {
			sub := loaders.Subresource{MipLevel: mip, ArrayLayer: layer}
			pixels, err := img.SubresourceData(sub)
			if err != nil {
				texture.Destroy(vc)
				return nil, err
			}
			layout, access := vk.ImageLayoutShaderReadOnlyOptimal, shaderRead
			if generate {
				// mip 0 stays a transfer target until the chain is blitted
				layout, access = vk.ImageLayoutTransferDstOptimal, vk.AccessFlags(vk.AccessTransferWriteBit)
			}
			if err := ImageUploadSubresource(vc, texture, sub, pixels, layout, access); err != nil {
				texture.Destroy(vc)
				return nil, err
			}
		}
	}

	if generate {
		if err := GenerateMipmaps(vc, texture, vk.ImageLayoutShaderReadOnlyOptimal, shaderRead); err != nil {
			texture.Destroy(vc)
			return nil, err
		}
	}
	core.LogDebug("Texture '%s' loaded: %dx%d %s, %d mips, %d layers.", name, img.Width, img.Height, img.Format, mipLevels, ci.ArrayLayers)
	return texture, nil
}

// GPUMesh is a mesh resident in device-local vertex and index buffers.
type GPUMesh struct {
	Vertices   *VulkanBuffer
	Indices    *VulkanBuffer
	IndexCount uint32
	Format     VulkanMeshFormat
	Metadata   mesh.Metadata
}

// UploadMesh copies a host mesh into new device-local buffers.
func UploadMesh(vc *VulkanContext, arena DeviceMemoryArena, m *mesh.Mesh, name string) (*GPUMesh, error) {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return nil, fmt.Errorf("mesh '%s' is empty: %w", name, core.ErrInvalidArgument)
	}
	mf, err := MeshFormat(m.Layout, m.Topology)
	if err != nil {
		return nil, err
	}
	gm := &GPUMesh{IndexCount: uint32(len(m.Indices)), Format: mf, Metadata: m.Metadata}

	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	gm.Vertices, err = NewVulkanBuffer(vc, arena, uint64(len(m.Vertices)),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit), deviceLocal, name+" vertices")
	if err != nil {
		return nil, err
	}
	indexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&m.Indices[0])), len(m.Indices)*4)
	gm.Indices, err = NewVulkanBuffer(vc, arena, uint64(len(indexBytes)),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit), deviceLocal, name+" indices")
	if err != nil {
		gm.Destroy(vc)
		return nil, err
	}

	err = errors.Join(
		BufferUpload(vc, gm.Vertices.Handle, 0, m.Vertices, vk.AccessFlags(vk.AccessVertexAttributeReadBit)),
		BufferUpload(vc, gm.Indices.Handle, 0, indexBytes, vk.AccessFlags(vk.AccessIndexReadBit)),
	)
	if err != nil {
		gm.Destroy(vc)
		return nil, err
	}
	return gm, nil
}

// Draw binds the buffers and draws instances copies starting at
// firstInstance.
func (gm *GPUMesh) Draw(cb vk.CommandBuffer, firstInstance, instances uint32) {
	vk.CmdBindVertexBuffers(cb, 0, 1, []vk.Buffer{gm.Vertices.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cb, gm.Indices.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cb, gm.IndexCount, instances, 0, 0, firstInstance)
}

func (gm *GPUMesh) Destroy(vc *VulkanContext) {
	if gm.Vertices != nil {
		gm.Vertices.Destroy(vc)
		gm.Vertices = nil
	}
	if gm.Indices != nil {
		gm.Indices.Destroy(vc)
		gm.Indices = nil
	}
}
