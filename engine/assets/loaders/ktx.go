package loaders

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
)

var ktxIdentifier = []byte{0xAB, 'K', 'T', 'X', ' ', '1', '1', 0xBB, '\r', '\n', 0x1A, '\n'}

const (
	ktxHeaderSize        = 12 + 13*4
	ktxEndianness        = 0x04030201
	ktxEndiannessSwapped = 0x01020304
)

type ktxHeader struct {
	Endianness            uint32
	GLType                uint32
	GLTypeSize            uint32
	GLFormat              uint32
	GLInternalFormat      uint32
	GLBaseInternalFormat  uint32
	PixelWidth            uint32
	PixelHeight           uint32
	PixelDepth            uint32
	NumberOfArrayElements uint32
	NumberOfFaces         uint32
	NumberOfMipmapLevels  uint32
	BytesOfKeyValueData   uint32
}

var ktxInternalFormats = map[uint32]format.Format{
	0x8229: format.FormatR8Unorm,
	0x822B: format.FormatR8G8Unorm,
	0x8051: format.FormatR8G8B8Unorm,
	0x8058: format.FormatR8G8B8A8Unorm,
	0x8C41: format.FormatR8G8B8Srgb,
	0x8C43: format.FormatR8G8B8A8Srgb,
	0x822A: format.FormatR16Unorm,
	0x822C: format.FormatR16G16Unorm,
	0x805B: format.FormatR16G16B16A16Unorm,
	0x822D: format.FormatR16Sfloat,
	0x822F: format.FormatR16G16Sfloat,
	0x881B: format.FormatR16G16B16Sfloat,
	0x881A: format.FormatR16G16B16A16Sfloat,
	0x822E: format.FormatR32Sfloat,
	0x8230: format.FormatR32G32Sfloat,
	0x8815: format.FormatR32G32B32Sfloat,
	0x8814: format.FormatR32G32B32A32Sfloat,
	0x8D62: format.FormatR5G6B5UnormPack16,
	0x8056: format.FormatR4G4B4A4UnormPack16,
	0x8057: format.FormatR5G5B5A1UnormPack16,
	0x8059: format.FormatA2B10G10R10UnormPack32,
	0x8C3A: format.FormatB10G11R11UfloatPack32,
	0x8C3D: format.FormatE5B9G9R9UfloatPack32,

	0x83F0: format.FormatBC1RGBUnormBlock,
	0x83F1: format.FormatBC1RGBAUnormBlock,
	0x83F2: format.FormatBC2UnormBlock,
	0x83F3: format.FormatBC3UnormBlock,
	0x8C4C: format.FormatBC1RGBSrgbBlock,
	0x8C4D: format.FormatBC1RGBASrgbBlock,
	0x8C4E: format.FormatBC2SrgbBlock,
	0x8C4F: format.FormatBC3SrgbBlock,
	0x8DBB: format.FormatBC4UnormBlock,
	0x8DBC: format.FormatBC4SnormBlock,
	0x8DBD: format.FormatBC5UnormBlock,
	0x8DBE: format.FormatBC5SnormBlock,
	0x8E8C: format.FormatBC7UnormBlock,
	0x8E8D: format.FormatBC7SrgbBlock,
	0x8E8E: format.FormatBC6HSfloatBlock,
	0x8E8F: format.FormatBC6HUfloatBlock,

	0x9274: format.FormatETC2R8G8B8UnormBlock,
	0x9275: format.FormatETC2R8G8B8SrgbBlock,
	0x9276: format.FormatETC2R8G8B8A1UnormBlock,
	0x9277: format.FormatETC2R8G8B8A1SrgbBlock,
	0x9278: format.FormatETC2R8G8B8A8UnormBlock,
	0x9279: format.FormatETC2R8G8B8A8SrgbBlock,
	0x9270: format.FormatEACR11UnormBlock,
	0x9271: format.FormatEACR11SnormBlock,
	0x9272: format.FormatEACR11G11UnormBlock,
	0x9273: format.FormatEACR11G11SnormBlock,
}

func init() {
	// GL_COMPRESSED_RGBA_ASTC_4x4 onwards, and the SRGB8_ALPHA8 variants,
	// follow the same footprint order as the Vulkan formats
	for i, dim := range format.ASTCBlockSizes {
		ktxInternalFormats[0x93B0+uint32(i)], _ = format.ASTCFormat(dim[0], dim[1], false)
		ktxInternalFormats[0x93D0+uint32(i)], _ = format.ASTCFormat(dim[0], dim[1], true)
	}
}

func pad4(n int) int {
	return (n + 3) &^ 3
}

// decodeKTX reads a KTX 1.1 container. Files written on a big-endian host
// are byte-swapped in place, so Data is always little-endian afterwards.
func decodeKTX(data []byte) (*Image, error) {
	if len(data) < ktxHeaderSize || !bytes.Equal(data[:12], ktxIdentifier) {
		return nil, errors.WithMessage(core.ErrFileCorrupt, "missing KTX identifier")
	}
	var order binary.ByteOrder
	switch binary.LittleEndian.Uint32(data[12:]) {
	case ktxEndianness:
		order = binary.LittleEndian
	case ktxEndiannessSwapped:
		order = binary.BigEndian
	default:
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "ktx endianness marker 0x%08X", binary.LittleEndian.Uint32(data[12:]))
	}
	swap := order == binary.BigEndian

	var h ktxHeader
	if err := readHeader(data, 12, order, &h); err != nil {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "ktx header: %v", err)
	}
	if swap {
		for i := 12; i < ktxHeaderSize; i += 4 {
			binary.LittleEndian.PutUint32(data[i:], order.Uint32(data[i:]))
		}
	}

	f, ok := ktxInternalFormats[h.GLInternalFormat]
	if !ok {
		return nil, errors.WithMessagef(core.ErrUnsupportedFormat, "ktx internal format 0x%04X", h.GLInternalFormat)
	}
	if h.NumberOfFaces != 1 && h.NumberOfFaces != 6 {
		return nil, errors.WithMessagef(core.ErrFileCorrupt, "ktx has %d faces", h.NumberOfFaces)
	}
	if h.PixelWidth == 0 {
		return nil, errors.WithMessage(core.ErrFileCorrupt, "ktx has zero width")
	}

	img := &Image{
		Width:        h.PixelWidth,
		Height:       max(1, h.PixelHeight),
		Depth:        max(1, h.PixelDepth),
		MipLevels:    max(1, h.NumberOfMipmapLevels),
		ArrayLayers:  max(1, h.NumberOfArrayElements) * h.NumberOfFaces,
		Format:       f,
		ktxCubeFaces: h.NumberOfFaces == 6 && h.NumberOfArrayElements == 0,
	}
	if h.NumberOfFaces == 6 {
		img.Flags |= ImageFlagCube
	}
	img.RowPitch = f.RowPitch(img.Width)
	img.DepthPitch = uint32(f.ImageSize(img.Width, img.Height, 1))
	img.PixelOffset = ktxHeaderSize + int(h.BytesOfKeyValueData)
	if img.PixelOffset > len(data) {
		return nil, errors.WithMessage(core.ErrFileCorrupt, "ktx key/value data truncated")
	}
	img.Data = data

	// validate every record, normalising byte order on the way
	off := img.PixelOffset
	for m := uint32(0); m < img.MipLevels; m++ {
		if off+4 > len(data) {
			return nil, errors.WithMessagef(core.ErrFileCorrupt, "ktx mip %d record truncated", m)
		}
		imageSize := int(order.Uint32(data[off:]))
		if swap {
			binary.LittleEndian.PutUint32(data[off:], uint32(imageSize))
		}
		faceStride, total := img.ktxLevelLayout(imageSize)
		if off+4+total > len(data) {
			return nil, errors.WithMessagef(core.ErrFileCorrupt, "ktx mip %d needs %d bytes", m, total)
		}
		if perLayer := total / int(img.ArrayLayers); perLayer < img.mipSize(m) {
			return nil, errors.WithMessagef(core.ErrFileCorrupt, "ktx mip %d has %d bytes per layer, need %d", m, perLayer, img.mipSize(m))
		}
		if swap && h.GLTypeSize > 1 {
			for face := 0; face < img.faceCount(); face++ {
				start := off + 4 + face*faceStride
				swapElements(data[start:start+imageSize], int(h.GLTypeSize))
			}
		}
		off += 4 + pad4(total)
	}
	return img, nil
}

func (img *Image) faceCount() int {
	if img.ktxCubeFaces {
		return 6
	}
	return 1
}

// ktxLevelLayout returns the distance between separately padded faces and the
// byte size of the whole level.
func (img *Image) ktxLevelLayout(imageSize int) (int, int) {
	if img.ktxCubeFaces {
		return pad4(imageSize), 6 * pad4(imageSize)
	}
	return imageSize, imageSize
}

func (img *Image) ktxLocate(sub Subresource) (int, int, error) {
	off := img.PixelOffset
	for m := uint32(0); ; m++ {
		if off+4 > len(img.Data) {
			return 0, 0, errors.WithMessagef(core.ErrFileCorrupt, "ktx mip %d record truncated", m)
		}
		imageSize := int(binary.LittleEndian.Uint32(img.Data[off:]))
		_, total := img.ktxLevelLayout(imageSize)
		if m == sub.MipLevel {
			layerStride := total / int(img.ArrayLayers)
			return off + 4 + int(sub.ArrayLayer)*layerStride, img.mipSize(m), nil
		}
		off += 4 + pad4(total)
	}
}

func swapElements(b []byte, size int) {
	for i := 0; i+size <= len(b); i += size {
		for lo, hi := i, i+size-1; lo < hi; lo, hi = lo+1, hi-1 {
			b[lo], b[hi] = b[hi], b[lo]
		}
	}
}
