package loaders

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/format"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

// buildDDS writes a legacy DXT1 file. Every texel block of a subresource has
// its first byte set to mip*16+layer so lookups can be checked by content.
func buildDDS(t *testing.T, size, mips uint32, cube bool) []byte {
	t.Helper()
	h := ddsHeader{
		Size:        ddsHeaderSize,
		Flags:       0x1007 | ddsFlagMipMapCount,
		Height:      size,
		Width:       size,
		MipMapCount: mips,
		PixelFormat: ddsPixelFormat{Size: ddsPixelFormatSize, Flags: ddpfFourCC, FourCC: fourCC("DXT1")},
		Caps:        0x1000,
	}
	layers := uint32(1)
	if cube {
		h.Caps2 = ddsCaps2CubemapAllFaces
		layers = 6
	}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, ddsMagic)
	binary.Write(&buf, binary.LittleEndian, h)
	for l := uint32(0); l < layers; l++ {
		for m := uint32(0); m < mips; m++ {
			s := max(1, size>>m)
			blocks := int(((s + 3) / 4) * ((s + 3) / 4))
			for b := 0; b < blocks; b++ {
				block := make([]byte, 8)
				block[0] = byte(m*16 + l)
				buf.Write(block)
			}
		}
	}
	return buf.Bytes()
}

func TestDDSCubeSubresources(t *testing.T) {
	img, err := DecodeImage(bytes.NewReader(buildDDS(t, 128, 8, true)), ImageFileTypeDDS)
	if err != nil {
		t.Fatal(err)
	}
	if !img.IsCube() || img.ArrayLayers != 6 || img.MipLevels != 8 || img.Format != format.FormatBC1RGBAUnormBlock {
		t.Fatalf("image %+v", img)
	}
	if got := binary.LittleEndian.Uint32(img.Data); got != uint32(img.PixelOffset) || img.PixelOffset != 128 {
		t.Errorf("pixel offset %d, header word %d", img.PixelOffset, got)
	}
	if img.RowPitch != 8*32 {
		t.Errorf("row pitch %d", img.RowPitch)
	}
	size, err := img.SubresourceSize(Subresource{MipLevel: 7, ArrayLayer: 0})
	if err != nil || size != 8 {
		t.Errorf("mip 7 size = %d, %v", size, err)
	}
	size, _ = img.SubresourceSize(Subresource{MipLevel: 0, ArrayLayer: 3})
	if size != 32*32*8 {
		t.Errorf("mip 0 size = %d", size)
	}
	for l := uint32(0); l < 6; l++ {
		for m := uint32(0); m < 8; m++ {
			sub := Subresource{MipLevel: m, ArrayLayer: l}
			data, err := img.SubresourceData(sub)
			if err != nil {
				t.Fatal(err)
			}
			if data[0] != byte(m*16+l) || data[len(data)-8] != byte(m*16+l) {
				t.Fatalf("%+v starts with %d", sub, data[0])
			}
			again, _ := img.SubresourceData(sub)
			if !bytes.Equal(data, again) {
				t.Fatalf("%+v not stable", sub)
			}
		}
	}
	if _, err := img.SubresourceData(Subresource{MipLevel: 8}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("mip 8: %v", err)
	}
	if _, err := img.SubresourceData(Subresource{ArrayLayer: 6}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("layer 6: %v", err)
	}
}

func TestDDSRejects(t *testing.T) {
	data := buildDDS(t, 16, 1, false)
	data[0] = 'X'
	if _, err := DecodeImage(bytes.NewReader(data), ImageFileTypeDDS); !errors.Is(err, core.ErrFileCorrupt) {
		t.Errorf("bad magic: %v", err)
	}
	data = buildDDS(t, 16, 3, false)
	if _, err := DecodeImage(bytes.NewReader(data[:len(data)-1]), ImageFileTypeDDS); !errors.Is(err, core.ErrFileCorrupt) {
		t.Errorf("truncated: %v", err)
	}
	data = buildDDS(t, 16, 1, true)
	// drop the -Z face bit
	binary.LittleEndian.PutUint32(data[4+108:], ddsCaps2CubemapAllFaces&^0x8000)
	if _, err := DecodeImage(bytes.NewReader(data), ImageFileTypeDDS); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("partial cube: %v", err)
	}
}

func TestDDSDX10Array(t *testing.T) {
	var buf bytes.Buffer
	h := ddsHeader{
		Size:        ddsHeaderSize,
		Flags:       0x1007,
		Height:      4,
		Width:       4,
		PixelFormat: ddsPixelFormat{Size: ddsPixelFormatSize, Flags: ddpfFourCC, FourCC: fourCC("DX10")},
	}
	binary.Write(&buf, binary.LittleEndian, ddsMagic)
	binary.Write(&buf, binary.LittleEndian, h)
	binary.Write(&buf, binary.LittleEndian, ddsHeaderDX10{DXGIFormat: 28, ResourceDimension: 3, ArraySize: 3})
	for l := 0; l < 3; l++ {
		buf.Write(bytes.Repeat([]byte{byte(l)}, 4*4*4))
	}
	img, err := DecodeImage(&buf, ImageFileTypeDDS)
	if err != nil {
		t.Fatal(err)
	}
	if img.Format != format.FormatR8G8B8A8Unorm || img.ArrayLayers != 3 || img.PixelOffset != 148 || img.IsCube() {
		t.Fatalf("image %+v", img)
	}
	data, _ := img.SubresourceData(Subresource{ArrayLayer: 2})
	if len(data) != 64 || data[0] != 2 {
		t.Errorf("layer 2 = %d bytes starting %d", len(data), data[0])
	}
}

func TestASTC(t *testing.T) {
	header := []byte{0x13, 0xAB, 0xA1, 0x5C, 6, 5, 1, 13, 0, 0, 10, 0, 0, 1, 0, 0}
	// 13x10 in 6x5 blocks is 3x2 blocks
	data := append(header, make([]byte, 6*16)...)
	img, err := DecodeImage(bytes.NewReader(data), ImageFileTypeASTC)
	if err != nil {
		t.Fatal(err)
	}
	if img.Format != format.FormatASTC6x5UnormBlock || img.Width != 13 || img.Height != 10 || img.PixelOffset != 16 {
		t.Fatalf("image %+v", img)
	}
	if size, _ := img.SubresourceSize(Subresource{}); size != 96 {
		t.Errorf("size %d", size)
	}
	if img.RowPitch != 48 {
		t.Errorf("row pitch %d", img.RowPitch)
	}

	bad := append([]byte{}, data...)
	bad[6] = 2
	if _, err := DecodeImage(bytes.NewReader(bad), ImageFileTypeASTC); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("3D blocks: %v", err)
	}
	if _, err := DecodeImage(bytes.NewReader(data[:50]), ImageFileTypeASTC); !errors.Is(err, core.ErrFileCorrupt) {
		t.Errorf("truncated: %v", err)
	}
}

// buildKTX writes an RGBA16F 2D texture with two mips. Element i of mip m
// holds m*1000+i.
func buildKTX(t *testing.T, order binary.ByteOrder) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(ktxIdentifier)
	binary.Write(&buf, order, ktxHeader{
		Endianness:           ktxEndianness,
		GLType:               0x140B,
		GLTypeSize:           2,
		GLFormat:             0x1908,
		GLInternalFormat:     0x881A,
		GLBaseInternalFormat: 0x1908,
		PixelWidth:           2,
		PixelHeight:          2,
		NumberOfFaces:        1,
		NumberOfMipmapLevels: 2,
		BytesOfKeyValueData:  8,
	})
	buf.Write([]byte{4, 0, 0, 0, 'a', 'b', 'c', 0})
	for m, texels := range []int{4, 1} {
		binary.Write(&buf, order, uint32(texels*8))
		for i := 0; i < texels*4; i++ {
			binary.Write(&buf, order, uint16(m*1000+i))
		}
	}
	return buf.Bytes()
}

func TestKTXBothEndiannesses(t *testing.T) {
	for name, order := range map[string]binary.ByteOrder{"little": binary.LittleEndian, "big": binary.BigEndian} {
		t.Run(name, func(t *testing.T) {
			img, err := DecodeImage(bytes.NewReader(buildKTX(t, order)), ImageFileTypeKTX)
			if err != nil {
				t.Fatal(err)
			}
			if img.Format != format.FormatR16G16B16A16Sfloat || img.MipLevels != 2 || img.PixelOffset != 72 {
				t.Fatalf("image %+v", img)
			}
			for m, texels := range []int{4, 1} {
				data, err := img.SubresourceData(Subresource{MipLevel: uint32(m)})
				if err != nil {
					t.Fatal(err)
				}
				if len(data) != texels*8 {
					t.Fatalf("mip %d has %d bytes", m, len(data))
				}
				for i := 0; i < texels*4; i++ {
					if got := binary.LittleEndian.Uint16(data[2*i:]); got != uint16(m*1000+i) {
						t.Fatalf("mip %d element %d = %d", m, i, got)
					}
				}
			}
		})
	}
}

func TestKTXCube(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(ktxIdentifier)
	binary.Write(&buf, binary.LittleEndian, ktxHeader{
		Endianness:           ktxEndianness,
		GLTypeSize:           1,
		GLInternalFormat:     0x8058,
		PixelWidth:           1,
		PixelHeight:          1,
		NumberOfFaces:        6,
		NumberOfMipmapLevels: 1,
	})
	binary.Write(&buf, binary.LittleEndian, uint32(4))
	for face := 0; face < 6; face++ {
		buf.Write([]byte{byte(face), 0, 0, 255})
	}
	img, err := DecodeImage(&buf, ImageFileTypeKTX)
	if err != nil {
		t.Fatal(err)
	}
	if !img.IsCube() || img.ArrayLayers != 6 {
		t.Fatalf("image %+v", img)
	}
	for face := uint32(0); face < 6; face++ {
		data, err := img.SubresourceData(Subresource{ArrayLayer: face})
		if err != nil || len(data) != 4 || data[0] != byte(face) {
			t.Fatalf("face %d = %v, %v", face, data, err)
		}
	}
}

func TestKTXRejects(t *testing.T) {
	data := buildKTX(t, binary.LittleEndian)
	data[1] = 'Q'
	if _, err := DecodeImage(bytes.NewReader(data), ImageFileTypeKTX); !errors.Is(err, core.ErrFileCorrupt) {
		t.Errorf("bad identifier: %v", err)
	}
	data = buildKTX(t, binary.LittleEndian)
	if _, err := DecodeImage(bytes.NewReader(data[:len(data)-2]), ImageFileTypeKTX); !errors.Is(err, core.ErrFileCorrupt) {
		t.Errorf("truncated: %v", err)
	}
}

func TestTGA(t *testing.T) {
	header := func(imageType, depth, descriptor uint8) []byte {
		h := make([]byte, tgaHeaderSize)
		h[2] = imageType
		binary.LittleEndian.PutUint16(h[12:], 2)
		binary.LittleEndian.PutUint16(h[14:], 2)
		h[16] = depth
		h[17] = descriptor
		return h
	}
	// bottom-left origin: first stored row is the bottom one
	raw := append(header(tgaTrueColor, 24, 0),
		0, 0, 255, 0, 255, 0, // bottom: red, green
		255, 0, 0, 255, 255, 255, // top: blue, white
	)
	img, err := DecodeImage(bytes.NewReader(raw), ImageFileTypeTGA)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0, 0, 255, 255, 255, 255, 255, 255,
		255, 0, 0, 255, 0, 255, 0, 255,
	}
	if !bytes.Equal(img.Data, want) {
		t.Errorf("uncompressed = %v", img.Data)
	}

	// one run of four gray texels, top-left origin
	rle := append(header(tgaRLEGrayscale, 8, tgaTopLeftOrigin), 0x83, 77)
	img, err = DecodeImage(bytes.NewReader(rle), ImageFileTypeTGA)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if !bytes.Equal(img.Data[4*i:4*i+4], []byte{77, 77, 77, 255}) {
			t.Fatalf("rle texel %d = %v", i, img.Data[4*i:4*i+4])
		}
	}

	// raw packet of one BGRA texel followed by a run of three
	rle32 := append(header(tgaRLETrueColor, 32, tgaTopLeftOrigin), 0x00, 1, 2, 3, 4, 0x82, 5, 6, 7, 8)
	img, err = DecodeImage(bytes.NewReader(rle32), ImageFileTypeTGA)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(img.Data[:8], []byte{3, 2, 1, 4, 7, 6, 5, 8}) {
		t.Errorf("rle32 = %v", img.Data[:8])
	}

	if _, err := DecodeImage(bytes.NewReader(rle[:len(rle)-1]), ImageFileTypeTGA); !errors.Is(err, core.ErrFileCorrupt) {
		t.Errorf("truncated rle: %v", err)
	}
	if _, err := DecodeImage(bytes.NewReader(header(1, 8, 0)), ImageFileTypeTGA); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("color mapped: %v", err)
	}
}

func TestRasterPNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "small.PNG")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	img, err := LoadImage(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.FileType != ImageFileTypePNG || img.Format != format.FormatR8G8B8A8Unorm || img.Width != 3 || img.Height != 2 {
		t.Fatalf("image %+v", img)
	}
	if size, _ := img.SubresourceSize(Subresource{}); size != 24 {
		t.Errorf("size %d", size)
	}
	if got := img.Data[(1*3+2)*4:][:4]; !bytes.Equal(got, []byte{10, 20, 30, 128}) {
		t.Errorf("texel = %v", got)
	}

	res, err := (&ImageLoader{}).Load(path, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: true})
	if err != nil {
		t.Fatal(err)
	}
	flipped := res.Data.(*Image)
	if got := flipped.Data[2*4:][:4]; !bytes.Equal(got, []byte{10, 20, 30, 128}) {
		t.Errorf("flipped texel = %v", got)
	}
}

func TestLoadImageUnknownExtension(t *testing.T) {
	if _, err := LoadImage("texture.webp"); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Errorf("err = %v", err)
	}
}

func TestMipDimensions(t *testing.T) {
	img := &Image{Width: 256, Height: 64, Depth: 1}
	if w, h, d := img.MipDimensions(7); w != 2 || h != 1 || d != 1 {
		t.Errorf("mip 7 = %dx%dx%d", w, h, d)
	}
}

func TestSPIRVWords(t *testing.T) {
	code, err := SPIRVWords([]byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0})
	if err != nil || len(code) != 2 || code[1] != 1 {
		t.Fatalf("code %v, %v", code, err)
	}
	if _, err := SPIRVWords([]byte{0x03, 0x02, 0x23}); !errors.Is(err, core.ErrFileCorrupt) {
		t.Errorf("short: %v", err)
	}
	if _, err := SPIRVWords(make([]byte, 8)); !errors.Is(err, core.ErrFileCorrupt) {
		t.Errorf("magic: %v", err)
	}
}
