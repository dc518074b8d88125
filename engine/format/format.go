// Package format describes the pixel and vertex formats understood by the
// loaders, the mesh builders and the GPU layer. Format values share their
// numbering with VkFormat so they can be handed to the driver unchanged.
package format

import "fmt"

type Format uint32

const (
	FormatUndefined Format = 0

	FormatR4G4B4A4UnormPack16 Format = 2
	FormatB4G4R4A4UnormPack16 Format = 3
	FormatR5G6B5UnormPack16   Format = 4
	FormatB5G6R5UnormPack16   Format = 5
	FormatR5G5B5A1UnormPack16 Format = 6
	FormatB5G5R5A1UnormPack16 Format = 7
	FormatA1R5G5B5UnormPack16 Format = 8

	FormatR8Unorm Format = 9
	FormatR8Snorm Format = 10
	FormatR8Uint  Format = 13
	FormatR8Sint  Format = 14
	FormatR8Srgb  Format = 15

	FormatR8G8Unorm Format = 16
	FormatR8G8Snorm Format = 17
	FormatR8G8Uint  Format = 20
	FormatR8G8Sint  Format = 21
	FormatR8G8Srgb  Format = 22

	FormatR8G8B8Unorm Format = 23
	FormatR8G8B8Snorm Format = 24
	FormatR8G8B8Uint  Format = 27
	FormatR8G8B8Sint  Format = 28
	FormatR8G8B8Srgb  Format = 29
	FormatB8G8R8Unorm Format = 30
	FormatB8G8R8Srgb  Format = 36

	FormatR8G8B8A8Unorm Format = 37
	FormatR8G8B8A8Snorm Format = 38
	FormatR8G8B8A8Uint  Format = 41
	FormatR8G8B8A8Sint  Format = 42
	FormatR8G8B8A8Srgb  Format = 43
	FormatB8G8R8A8Unorm Format = 44
	FormatB8G8R8A8Srgb  Format = 50

	FormatA2R10G10B10UnormPack32 Format = 58
	FormatA2B10G10R10UnormPack32 Format = 64
	FormatA2B10G10R10UintPack32  Format = 68

	FormatR16Unorm  Format = 70
	FormatR16Snorm  Format = 71
	FormatR16Uint   Format = 74
	FormatR16Sint   Format = 75
	FormatR16Sfloat Format = 76

	FormatR16G16Unorm  Format = 77
	FormatR16G16Snorm  Format = 78
	FormatR16G16Uint   Format = 81
	FormatR16G16Sint   Format = 82
	FormatR16G16Sfloat Format = 83

	FormatR16G16B16Unorm  Format = 84
	FormatR16G16B16Snorm  Format = 85
	FormatR16G16B16Uint   Format = 88
	FormatR16G16B16Sint   Format = 89
	FormatR16G16B16Sfloat Format = 90

	FormatR16G16B16A16Unorm  Format = 91
	FormatR16G16B16A16Snorm  Format = 92
	FormatR16G16B16A16Uint   Format = 95
	FormatR16G16B16A16Sint   Format = 96
	FormatR16G16B16A16Sfloat Format = 97

	FormatR32Uint   Format = 98
	FormatR32Sint   Format = 99
	FormatR32Sfloat Format = 100

	FormatR32G32Uint   Format = 101
	FormatR32G32Sint   Format = 102
	FormatR32G32Sfloat Format = 103

	FormatR32G32B32Uint   Format = 104
	FormatR32G32B32Sint   Format = 105
	FormatR32G32B32Sfloat Format = 106

	FormatR32G32B32A32Uint   Format = 107
	FormatR32G32B32A32Sint   Format = 108
	FormatR32G32B32A32Sfloat Format = 109

	FormatB10G11R11UfloatPack32 Format = 122
	FormatE5B9G9R9UfloatPack32  Format = 123

	FormatD16Unorm        Format = 124
	FormatX8D24UnormPack32 Format = 125
	FormatD32Sfloat       Format = 126
	FormatS8Uint          Format = 127
	FormatD16UnormS8Uint  Format = 128
	FormatD24UnormS8Uint  Format = 129
	FormatD32SfloatS8Uint Format = 130

	FormatBC1RGBUnormBlock  Format = 131
	FormatBC1RGBSrgbBlock   Format = 132
	FormatBC1RGBAUnormBlock Format = 133
	FormatBC1RGBASrgbBlock  Format = 134
	FormatBC2UnormBlock     Format = 135
	FormatBC2SrgbBlock      Format = 136
	FormatBC3UnormBlock     Format = 137
	FormatBC3SrgbBlock      Format = 138
	FormatBC4UnormBlock     Format = 139
	FormatBC4SnormBlock     Format = 140
	FormatBC5UnormBlock     Format = 141
	FormatBC5SnormBlock     Format = 142
	FormatBC6HUfloatBlock   Format = 143
	FormatBC6HSfloatBlock   Format = 144
	FormatBC7UnormBlock     Format = 145
	FormatBC7SrgbBlock      Format = 146

	FormatETC2R8G8B8UnormBlock   Format = 147
	FormatETC2R8G8B8SrgbBlock    Format = 148
	FormatETC2R8G8B8A1UnormBlock Format = 149
	FormatETC2R8G8B8A1SrgbBlock  Format = 150
	FormatETC2R8G8B8A8UnormBlock Format = 151
	FormatETC2R8G8B8A8SrgbBlock  Format = 152
	FormatEACR11UnormBlock       Format = 153
	FormatEACR11SnormBlock       Format = 154
	FormatEACR11G11UnormBlock    Format = 155
	FormatEACR11G11SnormBlock    Format = 156

	FormatASTC4x4UnormBlock   Format = 157
	FormatASTC4x4SrgbBlock    Format = 158
	FormatASTC5x4UnormBlock   Format = 159
	FormatASTC5x4SrgbBlock    Format = 160
	FormatASTC5x5UnormBlock   Format = 161
	FormatASTC5x5SrgbBlock    Format = 162
	FormatASTC6x5UnormBlock   Format = 163
	FormatASTC6x5SrgbBlock    Format = 164
	FormatASTC6x6UnormBlock   Format = 165
	FormatASTC6x6SrgbBlock    Format = 166
	FormatASTC8x5UnormBlock   Format = 167
	FormatASTC8x5SrgbBlock    Format = 168
	FormatASTC8x6UnormBlock   Format = 169
	FormatASTC8x6SrgbBlock    Format = 170
	FormatASTC8x8UnormBlock   Format = 171
	FormatASTC8x8SrgbBlock    Format = 172
	FormatASTC10x5UnormBlock  Format = 173
	FormatASTC10x5SrgbBlock   Format = 174
	FormatASTC10x6UnormBlock  Format = 175
	FormatASTC10x6SrgbBlock   Format = 176
	FormatASTC10x8UnormBlock  Format = 177
	FormatASTC10x8SrgbBlock   Format = 178
	FormatASTC10x10UnormBlock Format = 179
	FormatASTC10x10SrgbBlock  Format = 180
	FormatASTC12x10UnormBlock Format = 181
	FormatASTC12x10SrgbBlock  Format = 182
	FormatASTC12x12UnormBlock Format = 183
	FormatASTC12x12SrgbBlock  Format = 184
)

// Numeric is the interpretation of the component bits of a format.
type Numeric uint8

const (
	NumericNone Numeric = iota
	NumericUnorm
	NumericSnorm
	NumericUint
	NumericSint
	NumericSfloat
	NumericUfloat
	NumericSrgb
)

// FormatInfo is the static description of a format.
type FormatInfo struct {
	Name          string
	Components    uint32
	BytesPerBlock uint32
	BlockWidth    uint32
	BlockHeight   uint32
	Numeric       Numeric
	// ComponentBits is the width of each component for plain formats and
	// zero for packed, depth and block-compressed formats.
	ComponentBits uint32
}

var catalog = map[Format]FormatInfo{}

func plain(f Format, name string, components, bits uint32, numeric Numeric) {
	catalog[f] = FormatInfo{
		Name:          name,
		Components:    components,
		BytesPerBlock: components * bits / 8,
		BlockWidth:    1,
		BlockHeight:   1,
		Numeric:       numeric,
		ComponentBits: bits,
	}
}

func packed(f Format, name string, components, bytes uint32, numeric Numeric) {
	catalog[f] = FormatInfo{Name: name, Components: components, BytesPerBlock: bytes, BlockWidth: 1, BlockHeight: 1, Numeric: numeric}
}

func block(f Format, name string, components, bytes, w, h uint32, numeric Numeric) {
	catalog[f] = FormatInfo{Name: name, Components: components, BytesPerBlock: bytes, BlockWidth: w, BlockHeight: h, Numeric: numeric}
}

func init() {
	catalog[FormatUndefined] = FormatInfo{Name: "UNDEFINED", Components: 1, BlockWidth: 1, BlockHeight: 1}

	packed(FormatR4G4B4A4UnormPack16, "R4G4B4A4_UNORM_PACK16", 4, 2, NumericUnorm)
	packed(FormatB4G4R4A4UnormPack16, "B4G4R4A4_UNORM_PACK16", 4, 2, NumericUnorm)
	packed(FormatR5G6B5UnormPack16, "R5G6B5_UNORM_PACK16", 3, 2, NumericUnorm)
	packed(FormatB5G6R5UnormPack16, "B5G6R5_UNORM_PACK16", 3, 2, NumericUnorm)
	packed(FormatR5G5B5A1UnormPack16, "R5G5B5A1_UNORM_PACK16", 4, 2, NumericUnorm)
	packed(FormatB5G5R5A1UnormPack16, "B5G5R5A1_UNORM_PACK16", 4, 2, NumericUnorm)
	packed(FormatA1R5G5B5UnormPack16, "A1R5G5B5_UNORM_PACK16", 4, 2, NumericUnorm)

	plain(FormatR8Unorm, "R8_UNORM", 1, 8, NumericUnorm)
	plain(FormatR8Snorm, "R8_SNORM", 1, 8, NumericSnorm)
	plain(FormatR8Uint, "R8_UINT", 1, 8, NumericUint)
	plain(FormatR8Sint, "R8_SINT", 1, 8, NumericSint)
	plain(FormatR8Srgb, "R8_SRGB", 1, 8, NumericSrgb)
	plain(FormatR8G8Unorm, "R8G8_UNORM", 2, 8, NumericUnorm)
	plain(FormatR8G8Snorm, "R8G8_SNORM", 2, 8, NumericSnorm)
	plain(FormatR8G8Uint, "R8G8_UINT", 2, 8, NumericUint)
	plain(FormatR8G8Sint, "R8G8_SINT", 2, 8, NumericSint)
	plain(FormatR8G8Srgb, "R8G8_SRGB", 2, 8, NumericSrgb)
	plain(FormatR8G8B8Unorm, "R8G8B8_UNORM", 3, 8, NumericUnorm)
	plain(FormatR8G8B8Snorm, "R8G8B8_SNORM", 3, 8, NumericSnorm)
	plain(FormatR8G8B8Uint, "R8G8B8_UINT", 3, 8, NumericUint)
	plain(FormatR8G8B8Sint, "R8G8B8_SINT", 3, 8, NumericSint)
	plain(FormatR8G8B8Srgb, "R8G8B8_SRGB", 3, 8, NumericSrgb)
	plain(FormatB8G8R8Unorm, "B8G8R8_UNORM", 3, 8, NumericUnorm)
	plain(FormatB8G8R8Srgb, "B8G8R8_SRGB", 3, 8, NumericSrgb)
	plain(FormatR8G8B8A8Unorm, "R8G8B8A8_UNORM", 4, 8, NumericUnorm)
	plain(FormatR8G8B8A8Snorm, "R8G8B8A8_SNORM", 4, 8, NumericSnorm)
	plain(FormatR8G8B8A8Uint, "R8G8B8A8_UINT", 4, 8, NumericUint)
	plain(FormatR8G8B8A8Sint, "R8G8B8A8_SINT", 4, 8, NumericSint)
	plain(FormatR8G8B8A8Srgb, "R8G8B8A8_SRGB", 4, 8, NumericSrgb)
	plain(FormatB8G8R8A8Unorm, "B8G8R8A8_UNORM", 4, 8, NumericUnorm)
	plain(FormatB8G8R8A8Srgb, "B8G8R8A8_SRGB", 4, 8, NumericSrgb)

	packed(FormatA2R10G10B10UnormPack32, "A2R10G10B10_UNORM_PACK32", 4, 4, NumericUnorm)
	packed(FormatA2B10G10R10UnormPack32, "A2B10G10R10_UNORM_PACK32", 4, 4, NumericUnorm)
	packed(FormatA2B10G10R10UintPack32, "A2B10G10R10_UINT_PACK32", 4, 4, NumericUint)

	for _, n := range []struct {
		base    Format
		numeric Numeric
		suffix  string
	}{
		{FormatR16Unorm, NumericUnorm, "UNORM"},
		{FormatR16Snorm, NumericSnorm, "SNORM"},
		{FormatR16Uint, NumericUint, "UINT"},
		{FormatR16Sint, NumericSint, "SINT"},
		{FormatR16Sfloat, NumericSfloat, "SFLOAT"},
	} {
		// each 16-bit channel count is 7 enumerants after the previous one
		plain(n.base, "R16_"+n.suffix, 1, 16, n.numeric)
		plain(n.base+7, "R16G16_"+n.suffix, 2, 16, n.numeric)
		plain(n.base+14, "R16G16B16_"+n.suffix, 3, 16, n.numeric)
		plain(n.base+21, "R16G16B16A16_"+n.suffix, 4, 16, n.numeric)
	}
	for _, n := range []struct {
		base    Format
		numeric Numeric
		suffix  string
	}{
		{FormatR32Uint, NumericUint, "UINT"},
		{FormatR32Sint, NumericSint, "SINT"},
		{FormatR32Sfloat, NumericSfloat, "SFLOAT"},
	} {
		plain(n.base, "R32_"+n.suffix, 1, 32, n.numeric)
		plain(n.base+3, "R32G32_"+n.suffix, 2, 32, n.numeric)
		plain(n.base+6, "R32G32B32_"+n.suffix, 3, 32, n.numeric)
		plain(n.base+9, "R32G32B32A32_"+n.suffix, 4, 32, n.numeric)
	}

	packed(FormatB10G11R11UfloatPack32, "B10G11R11_UFLOAT_PACK32", 3, 4, NumericUfloat)
	packed(FormatE5B9G9R9UfloatPack32, "E5B9G9R9_UFLOAT_PACK32", 3, 4, NumericUfloat)

	packed(FormatD16Unorm, "D16_UNORM", 1, 2, NumericUnorm)
	packed(FormatX8D24UnormPack32, "X8_D24_UNORM_PACK32", 1, 4, NumericUnorm)
	packed(FormatD32Sfloat, "D32_SFLOAT", 1, 4, NumericSfloat)
	packed(FormatS8Uint, "S8_UINT", 1, 1, NumericUint)
	packed(FormatD16UnormS8Uint, "D16_UNORM_S8_UINT", 2, 3, NumericNone)
	packed(FormatD24UnormS8Uint, "D24_UNORM_S8_UINT", 2, 4, NumericNone)
	packed(FormatD32SfloatS8Uint, "D32_SFLOAT_S8_UINT", 2, 5, NumericNone)

	block(FormatBC1RGBUnormBlock, "BC1_RGB_UNORM_BLOCK", 3, 8, 4, 4, NumericUnorm)
	block(FormatBC1RGBSrgbBlock, "BC1_RGB_SRGB_BLOCK", 3, 8, 4, 4, NumericSrgb)
	block(FormatBC1RGBAUnormBlock, "BC1_RGBA_UNORM_BLOCK", 4, 8, 4, 4, NumericUnorm)
	block(FormatBC1RGBASrgbBlock, "BC1_RGBA_SRGB_BLOCK", 4, 8, 4, 4, NumericSrgb)
	block(FormatBC2UnormBlock, "BC2_UNORM_BLOCK", 4, 16, 4, 4, NumericUnorm)
	block(FormatBC2SrgbBlock, "BC2_SRGB_BLOCK", 4, 16, 4, 4, NumericSrgb)
	block(FormatBC3UnormBlock, "BC3_UNORM_BLOCK", 4, 16, 4, 4, NumericUnorm)
	block(FormatBC3SrgbBlock, "BC3_SRGB_BLOCK", 4, 16, 4, 4, NumericSrgb)
	block(FormatBC4UnormBlock, "BC4_UNORM_BLOCK", 1, 8, 4, 4, NumericUnorm)
	block(FormatBC4SnormBlock, "BC4_SNORM_BLOCK", 1, 8, 4, 4, NumericSnorm)
	block(FormatBC5UnormBlock, "BC5_UNORM_BLOCK", 2, 16, 4, 4, NumericUnorm)
	block(FormatBC5SnormBlock, "BC5_SNORM_BLOCK", 2, 16, 4, 4, NumericSnorm)
	block(FormatBC6HUfloatBlock, "BC6H_UFLOAT_BLOCK", 3, 16, 4, 4, NumericUfloat)
	block(FormatBC6HSfloatBlock, "BC6H_SFLOAT_BLOCK", 3, 16, 4, 4, NumericSfloat)
	block(FormatBC7UnormBlock, "BC7_UNORM_BLOCK", 4, 16, 4, 4, NumericUnorm)
	block(FormatBC7SrgbBlock, "BC7_SRGB_BLOCK", 4, 16, 4, 4, NumericSrgb)

	block(FormatETC2R8G8B8UnormBlock, "ETC2_R8G8B8_UNORM_BLOCK", 3, 8, 4, 4, NumericUnorm)
	block(FormatETC2R8G8B8SrgbBlock, "ETC2_R8G8B8_SRGB_BLOCK", 3, 8, 4, 4, NumericSrgb)
	block(FormatETC2R8G8B8A1UnormBlock, "ETC2_R8G8B8A1_UNORM_BLOCK", 4, 8, 4, 4, NumericUnorm)
	block(FormatETC2R8G8B8A1SrgbBlock, "ETC2_R8G8B8A1_SRGB_BLOCK", 4, 8, 4, 4, NumericSrgb)
	block(FormatETC2R8G8B8A8UnormBlock, "ETC2_R8G8B8A8_UNORM_BLOCK", 4, 16, 4, 4, NumericUnorm)
	block(FormatETC2R8G8B8A8SrgbBlock, "ETC2_R8G8B8A8_SRGB_BLOCK", 4, 16, 4, 4, NumericSrgb)
	block(FormatEACR11UnormBlock, "EAC_R11_UNORM_BLOCK", 1, 8, 4, 4, NumericUnorm)
	block(FormatEACR11SnormBlock, "EAC_R11_SNORM_BLOCK", 1, 8, 4, 4, NumericSnorm)
	block(FormatEACR11G11UnormBlock, "EAC_R11G11_UNORM_BLOCK", 2, 16, 4, 4, NumericUnorm)
	block(FormatEACR11G11SnormBlock, "EAC_R11G11_SNORM_BLOCK", 2, 16, 4, 4, NumericSnorm)

	for i, dim := range ASTCBlockSizes {
		unorm := FormatASTC4x4UnormBlock + Format(2*i)
		block(unorm, fmt.Sprintf("ASTC_%dx%d_UNORM_BLOCK", dim[0], dim[1]), 4, 16, dim[0], dim[1], NumericUnorm)
		block(unorm+1, fmt.Sprintf("ASTC_%dx%d_SRGB_BLOCK", dim[0], dim[1]), 4, 16, dim[0], dim[1], NumericSrgb)
	}
}

// ASTCBlockSizes lists the 2D ASTC footprints in format enumeration order.
var ASTCBlockSizes = [][2]uint32{
	{4, 4}, {5, 4}, {5, 5}, {6, 5}, {6, 6}, {8, 5}, {8, 6}, {8, 8},
	{10, 5}, {10, 6}, {10, 8}, {10, 10}, {12, 10}, {12, 12},
}

// ASTCFormat returns the format for a 2D ASTC footprint.
func ASTCFormat(blockX, blockY uint32, srgb bool) (Format, bool) {
	for i, dim := range ASTCBlockSizes {
		if dim[0] == blockX && dim[1] == blockY {
			f := FormatASTC4x4UnormBlock + Format(2*i)
			if srgb {
				f++
			}
			return f, true
		}
	}
	return FormatUndefined, false
}

// Info returns the catalog entry for f.
func Info(f Format) (FormatInfo, bool) {
	info, ok := catalog[f]
	return info, ok
}

// Formats returns every catalogued format, UNDEFINED included.
func Formats() []Format {
	out := make([]Format, 0, len(catalog))
	for f := range catalog {
		out = append(out, f)
	}
	return out
}

func (f Format) Info() FormatInfo {
	return catalog[f]
}

func (f Format) BytesPerBlock() uint32 {
	return catalog[f].BytesPerBlock
}

func (f Format) IsCompressed() bool {
	info := catalog[f]
	return info.BlockWidth > 1 || info.BlockHeight > 1
}

func (f Format) IsDepth() bool {
	return f >= FormatD16Unorm && f <= FormatD32SfloatS8Uint && f != FormatS8Uint
}

func (f Format) HasStencil() bool {
	return f >= FormatS8Uint && f <= FormatD32SfloatS8Uint
}

// ImageSize is the byte size of a w x h x d region in this format, rounding
// partial blocks up.
func (f Format) ImageSize(w, h, d uint32) uint64 {
	info := catalog[f]
	if info.BlockWidth == 0 || info.BlockHeight == 0 {
		return 0
	}
	bw := (w + info.BlockWidth - 1) / info.BlockWidth
	bh := (h + info.BlockHeight - 1) / info.BlockHeight
	return uint64(info.BytesPerBlock) * uint64(bw) * uint64(bh) * uint64(d)
}

// RowPitch is the byte size of one row of blocks of width w.
func (f Format) RowPitch(w uint32) uint32 {
	info := catalog[f]
	if info.BlockWidth == 0 {
		return 0
	}
	return info.BytesPerBlock * ((w + info.BlockWidth - 1) / info.BlockWidth)
}

func (f Format) String() string {
	if info, ok := catalog[f]; ok {
		return info.Name
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}
