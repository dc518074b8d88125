package loaders

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
)

const (
	ddsMagic           uint32 = 0x20534444 // "DDS "
	ddsHeaderSize             = 124
	ddsPixelFormatSize        = 32
	ddsDX10HeaderSize         = 20

	ddsFlagMipMapCount uint32 = 0x20000
	ddsFlagDepth       uint32 = 0x800000

	ddsCaps2Cubemap         uint32 = 0x200
	ddsCaps2CubemapAllFaces uint32 = 0xFE00
	ddsCaps2Volume          uint32 = 0x200000

	ddpfAlphaPixels uint32 = 0x1
	ddpfAlpha       uint32 = 0x2
	ddpfFourCC      uint32 = 0x4
	ddpfRGB         uint32 = 0x40
	ddpfLuminance   uint32 = 0x20000

	dx10MiscTextureCube    uint32 = 0x4
	dx10DimensionTexture3D uint32 = 4
)

type ddsPixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      uint32
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

type ddsHeader struct {
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       ddsPixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
}

type ddsHeaderDX10 struct {
	DXGIFormat        uint32
	ResourceDimension uint32
	MiscFlag          uint32
	ArraySize         uint32
	MiscFlags2        uint32
}

func fourCC(s string) uint32 {
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
}

var ddsFourCCFormats = map[uint32]format.Format{
	fourCC("DXT1"): format.FormatBC1RGBAUnormBlock,
	fourCC("DXT2"): format.FormatBC2UnormBlock,
	fourCC("DXT3"): format.FormatBC2UnormBlock,
	fourCC("DXT4"): format.FormatBC3UnormBlock,
	fourCC("DXT5"): format.FormatBC3UnormBlock,
	fourCC("ATI1"): format.FormatBC4UnormBlock,
	fourCC("BC4U"): format.FormatBC4UnormBlock,
	fourCC("BC4S"): format.FormatBC4SnormBlock,
	fourCC("ATI2"): format.FormatBC5UnormBlock,
	fourCC("BC5U"): format.FormatBC5UnormBlock,
	fourCC("BC5S"): format.FormatBC5SnormBlock,
	// D3DFMT values stored in the four-cc field
	36:  format.FormatR16G16B16A16Unorm,
	111: format.FormatR16Sfloat,
	112: format.FormatR16G16Sfloat,
	113: format.FormatR16G16B16A16Sfloat,
	114: format.FormatR32Sfloat,
	115: format.FormatR32G32Sfloat,
	116: format.FormatR32G32B32A32Sfloat,
}

var dxgiFormats = map[uint32]format.Format{
	2:  format.FormatR32G32B32A32Sfloat,
	6:  format.FormatR32G32B32Sfloat,
	10: format.FormatR16G16B16A16Sfloat,
	11: format.FormatR16G16B16A16Unorm,
	16: format.FormatR32G32Sfloat,
	24: format.FormatA2B10G10R10UnormPack32,
	26: format.FormatB10G11R11UfloatPack32,
	28: format.FormatR8G8B8A8Unorm,
	29: format.FormatR8G8B8A8Srgb,
	34: format.FormatR16G16Sfloat,
	35: format.FormatR16G16Unorm,
	41: format.FormatR32Sfloat,
	49: format.FormatR8G8Unorm,
	54: format.FormatR16Sfloat,
	56: format.FormatR16Unorm,
	61: format.FormatR8Unorm,
	67: format.FormatE5B9G9R9UfloatPack32,
	71: format.FormatBC1RGBAUnormBlock,
	72: format.FormatBC1RGBASrgbBlock,
	74: format.FormatBC2UnormBlock,
	75: format.FormatBC2SrgbBlock,
	77: format.FormatBC3UnormBlock,
	78: format.FormatBC3SrgbBlock,
	80: format.FormatBC4UnormBlock,
	81: format.FormatBC4SnormBlock,
	83: format.FormatBC5UnormBlock,
	84: format.FormatBC5SnormBlock,
	85: format.FormatR5G6B5UnormPack16,
	86: format.FormatA1R5G5B5UnormPack16,
	87: format.FormatB8G8R8A8Unorm,
	91: format.FormatB8G8R8A8Srgb,
	95: format.FormatBC6HUfloatBlock,
	96: format.FormatBC6HSfloatBlock,
	98: format.FormatBC7UnormBlock,
	99: format.FormatBC7SrgbBlock,
}

// ddsMaskFormat maps an uncompressed legacy pixel format by its bit masks.
func ddsMaskFormat(pf ddsPixelFormat) format.Format {
	type masks struct{ bits, r, g, b, a uint32 }
	m := masks{pf.RGBBitCount, pf.RBitMask, pf.GBitMask, pf.BBitMask, pf.ABitMask}
	if pf.Flags&ddpfAlphaPixels == 0 {
		m.a = 0
	}
	switch {
	case pf.Flags&ddpfRGB != 0:
		switch m {
		case masks{32, 0xFF, 0xFF00, 0xFF0000, 0xFF000000}, masks{32, 0xFF, 0xFF00, 0xFF0000, 0}:
			return format.FormatR8G8B8A8Unorm
		case masks{32, 0xFF0000, 0xFF00, 0xFF, 0xFF000000}, masks{32, 0xFF0000, 0xFF00, 0xFF, 0}:
			return format.FormatB8G8R8A8Unorm
		case masks{24, 0xFF, 0xFF00, 0xFF0000, 0}:
			return format.FormatR8G8B8Unorm
		case masks{24, 0xFF0000, 0xFF00, 0xFF, 0}:
			return format.FormatB8G8R8Unorm
		case masks{16, 0xF800, 0x7E0, 0x1F, 0}:
			return format.FormatR5G6B5UnormPack16
		case masks{16, 0x7C00, 0x3E0, 0x1F, 0x8000}:
			return format.FormatA1R5G5B5UnormPack16
		case masks{32, 0xFFFF, 0xFFFF0000, 0, 0}:
			return format.FormatR16G16Unorm
		}
	case pf.Flags&ddpfLuminance != 0:
		switch pf.RGBBitCount {
		case 8:
			return format.FormatR8Unorm
		case 16:
			if m.a != 0 {
				return format.FormatR8G8Unorm
			}
			return format.FormatR16Unorm
		}
	case pf.Flags&ddpfAlpha != 0 && pf.RGBBitCount == 8:
		return format.FormatR8Unorm
	}
	return format.FormatUndefined
}

func decodeDDS(data []byte) (*Image, error) {
	if len(data) < 4 || binary.LittleEndian.Uint32(data) != ddsMagic {
		return nil, errors.WithMessage(core.ErrFileCorrupt, "missing DDS magic")
	}
	var h ddsHeader
	if err := readHeader(data, 4, binary.LittleEndian, &h); err != nil {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "dds header: %v", err)
	}
	if h.Size != ddsHeaderSize || h.PixelFormat.Size != ddsPixelFormatSize {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "dds header size %d, pixel format size %d", h.Size, h.PixelFormat.Size)
	}
	pixelOffset := 4 + ddsHeaderSize

	img := &Image{
		Width:       max(1, h.Width),
		Height:      max(1, h.Height),
		Depth:       1,
		MipLevels:   1,
		ArrayLayers: 1,
	}
	if h.Flags&ddsFlagMipMapCount != 0 && h.MipMapCount > 0 {
		img.MipLevels = h.MipMapCount
	}
	volume := h.Flags&ddsFlagDepth != 0 && h.Caps2&ddsCaps2Volume != 0
	if volume {
		img.Depth = max(1, h.Depth)
	}
	if h.Caps2&ddsCaps2Cubemap != 0 {
		if h.Caps2&ddsCaps2CubemapAllFaces != ddsCaps2CubemapAllFaces {
			return nil, errors.WithMessage(core.ErrUnsupportedFormat, "dds cube map without all six faces")
		}
		img.Flags |= ImageFlagCube
		img.ArrayLayers = 6
	}

	if h.PixelFormat.Flags&ddpfFourCC != 0 && h.PixelFormat.FourCC == fourCC("DX10") {
		var dx10 ddsHeaderDX10
		if err := readHeader(data, pixelOffset, binary.LittleEndian, &dx10); err != nil {
			return nil, errors.WithMessagef(core.ErrFileCorrupt, "dds dx10 header: %v", err)
		}
		pixelOffset += ddsDX10HeaderSize
		f, ok := dxgiFormats[dx10.DXGIFormat]
		if !ok {
			return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "dxgi format %d", dx10.DXGIFormat)
		}
		img.Format = f
		layers := max(1, dx10.ArraySize)
		if dx10.MiscFlag&dx10MiscTextureCube != 0 {
			img.Flags |= ImageFlagCube
			layers *= 6
		}
		img.ArrayLayers = layers
		if dx10.ResourceDimension == dx10DimensionTexture3D {
			img.Depth = max(1, h.Depth)
		}
	} else if h.PixelFormat.Flags&ddpfFourCC != 0 {
		f, ok := ddsFourCCFormats[h.PixelFormat.FourCC]
		if !ok {
			return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "dds four-cc 0x%08X", h.PixelFormat.FourCC)
		}
		img.Format = f
	} else {
		img.Format = ddsMaskFormat(h.PixelFormat)
		if img.Format == format.FormatUndefined {
			return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "dds pixel format flags 0x%X, %d bits", h.PixelFormat.Flags, h.PixelFormat.RGBBitCount)
		}
	}

	// the header pitch is frequently wrong, so derive it from the format
	img.RowPitch = img.Format.RowPitch(img.Width)
	img.DepthPitch = uint32(img.Format.ImageSize(img.Width, img.Height, 1))
	img.PixelOffset = pixelOffset

	need := pixelOffset + int(img.ArrayLayers)*img.ddsLayerSize()
	if len(data) < need {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "dds has %d bytes, need %d", len(data), need)
	}
	img.Data = data
	binary.LittleEndian.PutUint32(img.Data, uint32(pixelOffset))
	return img, nil
}

func (img *Image) ddsLayerSize() int {
	size := 0
	for m := uint32(0); m < img.MipLevels; m++ {
		size += img.mipSize(m)
	}
	return size
}

// mips of one layer are stored large to small, layers back to back
func (img *Image) ddsLocate(sub Subresource) (int, int) {
	base := int(binary.LittleEndian.Uint32(img.Data))
	off := base + int(sub.ArrayLayer)*img.ddsLayerSize()
	for m := uint32(0); m < sub.MipLevel; m++ {
		off += img.mipSize(m)
	}
	return off, img.mipSize(sub.MipLevel)
}
