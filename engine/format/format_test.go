package format

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/core"
)

func TestCatalogInvariants(t *testing.T) {
	for _, f := range Formats() {
		info := f.Info()
		if info.Components < 1 || info.Components > 4 {
			t.Errorf("%s has %d components", f, info.Components)
		}
		if f != FormatUndefined && info.BytesPerBlock == 0 {
			t.Errorf("%s has zero bytes per block", f)
		}
		if info.BlockWidth == 0 || info.BlockHeight == 0 {
			t.Errorf("%s has zero block size", f)
		}
		if info.ComponentBits != 0 && info.BytesPerBlock != info.Components*info.ComponentBits/8 {
			t.Errorf("%s: %d bytes != %d components x %d bits", f, info.BytesPerBlock, info.Components, info.ComponentBits)
		}
	}
}

func TestVertexFormatCount(t *testing.T) {
	n := 0
	for _, f := range Formats() {
		if IsVertexFormat(f) {
			n++
		}
	}
	if n != 48 {
		t.Errorf("vertex format count = %d, want 48", n)
	}
	if IsVertexFormat(FormatUndefined) || IsVertexFormat(FormatBC1RGBUnormBlock) || IsVertexFormat(FormatR8G8B8A8Srgb) {
		t.Errorf("non-vertex format accepted")
	}
}

func TestCompressedImageSize(t *testing.T) {
	if got := FormatBC1RGBAUnormBlock.ImageSize(1, 1, 1); got != 8 {
		t.Errorf("BC1 1x1 = %d", got)
	}
	if got := FormatBC3UnormBlock.ImageSize(10, 6, 1); got != 16*3*2 {
		t.Errorf("BC3 10x6 = %d", got)
	}
	f, ok := ASTCFormat(10, 8, true)
	if !ok || f != FormatASTC10x8SrgbBlock {
		t.Fatalf("ASTCFormat(10,8,srgb) = %s", f)
	}
	if got := f.ImageSize(20, 20, 1); got != 16*2*3 {
		t.Errorf("ASTC 10x8 20x20 = %d", got)
	}
	if FormatR8G8B8A8Unorm.RowPitch(7) != 28 {
		t.Errorf("row pitch")
	}
}

func TestConvertPositionToHalf(t *testing.T) {
	src := make([]byte, 12)
	for i, v := range []float32{1, 2, 3} {
		binary.LittleEndian.PutUint32(src[4*i:], math.Float32bits(v))
	}
	srcLayout := NewVertexLayout(VertexAttribute{Location: 0, Offset: 0, Format: FormatR32G32B32Sfloat})
	dstLayout := NewVertexLayout(VertexAttribute{Location: 0, Offset: 0, Format: FormatR16G16B16A16Sfloat})
	if srcLayout.Stride != 12 || dstLayout.Stride != 8 {
		t.Fatalf("strides %d %d", srcLayout.Stride, dstLayout.Stride)
	}
	dst := make([]byte, 8)
	for i := range dst {
		dst[i] = 0xFF
	}
	if err := ConvertVertexBuffer(src, srcLayout, dst, dstLayout, 1); err != nil {
		t.Fatal(err)
	}
	want := []uint16{0x3C00, 0x4000, 0x4200, 0x0000}
	for i, w := range want {
		if got := binary.LittleEndian.Uint16(dst[2*i:]); got != w {
			t.Errorf("component %d = 0x%04X, want 0x%04X", i, got, w)
		}
	}
}

func TestConvertRejectsBeforeWriting(t *testing.T) {
	src := make([]byte, 24)
	dst := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	good := NewVertexLayout(VertexAttribute{Format: FormatR32G32Sfloat})
	bad := NewVertexLayout(VertexAttribute{Format: FormatBC1RGBUnormBlock})
	err := ConvertVertexBuffer(src, good, dst, bad, 1)
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
	if dst[0] != 1 || dst[7] != 8 {
		t.Errorf("destination modified on failure")
	}
	if err := ConvertVertexBuffer(src, good, dst, good, 4); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("short buffers accepted: %v", err)
	}
}

func TestNormalizedPolicies(t *testing.T) {
	v, _ := DecodeAttribute([]byte{0x80}, FormatR8Snorm)
	if v[0] != -1 {
		t.Errorf("-128 snorm8 = %v", v[0])
	}
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, 0x8000)
	v, _ = DecodeAttribute(b, FormatR16Snorm)
	if v[0] != -1 {
		t.Errorf("-32768 snorm16 = %v", v[0])
	}
	out := make([]byte, 4)
	if err := EncodeAttribute(out, FormatR8G8B8A8Snorm, [4]float32{-2, -0.5, 0.5, 2}); err != nil {
		t.Fatal(err)
	}
	if int8(out[0]) != -127 || int8(out[1]) != -64 || int8(out[2]) != 64 || int8(out[3]) != 127 {
		t.Errorf("snorm8 encode = %v", []int8{int8(out[0]), int8(out[1]), int8(out[2]), int8(out[3])})
	}
	if err := EncodeAttribute(out, FormatR8G8B8A8Unorm, [4]float32{-1, 0.5, 1, 7}); err != nil {
		t.Fatal(err)
	}
	if out[0] != 0 || out[1] != 128 || out[2] != 255 || out[3] != 255 {
		t.Errorf("unorm8 encode = %v", out)
	}
	if err := EncodeAttribute(out, FormatR8G8B8A8Uint, [4]float32{-3, 2.4, 2.5, 300}); err != nil {
		t.Fatal(err)
	}
	if out[0] != 0 || out[1] != 2 || out[2] != 3 || out[3] != 255 {
		t.Errorf("uint8 encode = %v", out)
	}
	if err := EncodeAttribute(out, FormatR8G8B8A8Sint, [4]float32{-2.5, -200, 1.4, 200}); err != nil {
		t.Fatal(err)
	}
	if int8(out[0]) != -3 || int8(out[1]) != -128 || int8(out[2]) != 1 || int8(out[3]) != 127 {
		t.Errorf("sint8 encode = %v", out)
	}
}

func TestMissingComponentsReadZero(t *testing.T) {
	src := []byte{255, 0}
	srcLayout := NewVertexLayout(VertexAttribute{Format: FormatR8G8Unorm})
	dstLayout := NewVertexLayout(VertexAttribute{Format: FormatR32G32B32A32Sfloat})
	dst := make([]byte, 16)
	if err := ConvertVertexBuffer(src, srcLayout, dst, dstLayout, 1); err != nil {
		t.Fatal(err)
	}
	want := []float32{1, 0, 0, 0}
	for i, w := range want {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(dst[4*i:])); got != w {
			t.Errorf("component %d = %v, want %v", i, got, w)
		}
	}
}

// Same width and signedness conversions are lossless.
func TestLosslessRoundTrips(t *testing.T) {
	pairs := [][2]Format{
		{FormatR8G8B8A8Unorm, FormatR8G8B8A8Unorm},
		{FormatR16G16Snorm, FormatR16G16Snorm},
		{FormatR16G16B16A16Sfloat, FormatR32G32B32A32Sfloat},
		{FormatR8G8B8A8Uint, FormatR32G32B32A32Uint},
		{FormatR16G16Sint, FormatR32G32Sint},
		{FormatR8G8B8A8Snorm, FormatR32G32B32A32Sfloat},
		{FormatR16G16B16A16Unorm, FormatR32G32B32A32Sfloat},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		la := NewVertexLayout(VertexAttribute{Format: a})
		lb := NewVertexLayout(VertexAttribute{Format: b})
		const count = 256
		src := make([]byte, int(la.Stride)*count)
		for i := range src {
			src[i] = byte(i*37 + 11)
		}
		// avoid the duplicate encoding of -1 in signed normalized formats
		if a.Info().Numeric == NumericSnorm {
			for i := 0; i < len(src); i += int(a.Info().ComponentBits / 8) {
				if a.Info().ComponentBits == 8 && src[i] == 0x80 {
					src[i] = 0x81
				}
				if a.Info().ComponentBits == 16 && src[i] == 0x00 && src[i+1] == 0x80 {
					src[i] = 0x01
				}
			}
		}
		// keep half values finite and non-NaN
		if a == FormatR16G16B16A16Sfloat {
			for i := 1; i < len(src); i += 2 {
				src[i] &= 0x3F
			}
		}
		mid := make([]byte, int(lb.Stride)*count)
		back := make([]byte, len(src))
		if err := ConvertVertexBuffer(src, la, mid, lb, count); err != nil {
			t.Fatal(err)
		}
		if err := ConvertVertexBuffer(mid, lb, back, la, count); err != nil {
			t.Fatal(err)
		}
		for i := range src {
			if src[i] != back[i] {
				t.Errorf("%s -> %s: byte %d %02X != %02X", a, b, i, back[i], src[i])
				break
			}
		}
	}
}

func TestLayoutValidate(t *testing.T) {
	ok := VertexLayout{Stride: 32, Attributes: []VertexAttribute{
		{Location: 0, Offset: 0, Format: FormatR32G32B32Sfloat},
		{Location: 1, Offset: 12, Format: FormatR32G32B32Sfloat},
		{Location: 2, Offset: 24, Format: FormatR32G32Sfloat},
	}}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid layout rejected: %v", err)
	}
	dup := ok
	dup.Attributes = append([]VertexAttribute{}, ok.Attributes...)
	dup.Attributes[2].Location = 0
	if err := dup.Validate(); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("duplicate location accepted")
	}
	over := VertexLayout{Stride: 8, Attributes: []VertexAttribute{{Offset: 4, Format: FormatR32G32Sfloat}}}
	if err := over.Validate(); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("overrun accepted")
	}
}
