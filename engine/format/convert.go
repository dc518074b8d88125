package format

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// IsVertexFormat reports whether f can be decoded and encoded by the vertex
// converter: 8, 16 and 32-bit RGBA-ordered integer, normalized and float formats.
func IsVertexFormat(f Format) bool {
	info, ok := catalog[f]
	if !ok || info.ComponentBits == 0 {
		return false
	}
	if f == FormatB8G8R8Unorm || f == FormatB8G8R8A8Unorm {
		return false
	}
	switch info.Numeric {
	case NumericUnorm, NumericSnorm, NumericUint, NumericSint, NumericSfloat:
		return true
	}
	return false
}

// DecodeAttribute reads one element of format f from src into the canonical
// four-float form. Components the format lacks read as zero.
func DecodeAttribute(src []byte, f Format) ([4]float32, error) {
	var out [4]float32
	info, ok := catalog[f]
	if !ok || !IsVertexFormat(f) {
		return out, fmt.Errorf("cannot decode vertex format %s: %w", f, core.ErrInvalidArgument)
	}
	if len(src) < int(info.BytesPerBlock) {
		return out, fmt.Errorf("need %d bytes to decode %s, have %d: %w", info.BytesPerBlock, f, len(src), core.ErrInvalidArgument)
	}
	decode(src, info, &out)
	return out, nil
}

// EncodeAttribute writes v as one element of format f. Extra components are dropped.
func EncodeAttribute(dst []byte, f Format, v [4]float32) error {
	info, ok := catalog[f]
	if !ok || !IsVertexFormat(f) {
		return fmt.Errorf("cannot encode vertex format %s: %w", f, core.ErrInvalidArgument)
	}
	if len(dst) < int(info.BytesPerBlock) {
		return fmt.Errorf("need %d bytes to encode %s, have %d: %w", info.BytesPerBlock, f, len(dst), core.ErrInvalidArgument)
	}
	encode(dst, info, v)
	return nil
}

// ConvertVertexBuffer repacks count vertices from src to dst. Attributes are
// matched by position in the two layouts, not by location. Everything is
// validated before the first byte of dst is written.
func ConvertVertexBuffer(src []byte, srcLayout VertexLayout, dst []byte, dstLayout VertexLayout, count int) error {
	for _, a := range srcLayout.Attributes {
		if !IsVertexFormat(a.Format) {
			return fmt.Errorf("source attribute %d has unsupported format %s: %w", a.Location, a.Format, core.ErrInvalidArgument)
		}
	}
	for _, a := range dstLayout.Attributes {
		if !IsVertexFormat(a.Format) {
			return fmt.Errorf("destination attribute %d has unsupported format %s: %w", a.Location, a.Format, core.ErrInvalidArgument)
		}
	}
	if len(dstLayout.Attributes) < len(srcLayout.Attributes) {
		return fmt.Errorf("destination layout has %d attributes, source has %d: %w", len(dstLayout.Attributes), len(srcLayout.Attributes), core.ErrInvalidArgument)
	}
	if count < 0 {
		return fmt.Errorf("negative vertex count %d: %w", count, core.ErrInvalidArgument)
	}
	if count == 0 {
		return nil
	}
	if need := requiredBytes(srcLayout, count); uint64(len(src)) < need {
		return fmt.Errorf("source holds %d bytes, %d vertices need %d: %w", len(src), count, need, core.ErrInvalidArgument)
	}
	if need := requiredBytes(dstLayout, count); uint64(len(dst)) < need {
		return fmt.Errorf("destination holds %d bytes, %d vertices need %d: %w", len(dst), count, need, core.ErrInvalidArgument)
	}

	for v := 0; v < count; v++ {
		srcBase := uint64(v) * uint64(srcLayout.Stride)
		dstBase := uint64(v) * uint64(dstLayout.Stride)
		for i, sa := range srcLayout.Attributes {
			da := dstLayout.Attributes[i]
			var tmp [4]float32
			decode(src[srcBase+uint64(sa.Offset):], catalog[sa.Format], &tmp)
			encode(dst[dstBase+uint64(da.Offset):], catalog[da.Format], tmp)
		}
	}
	return nil
}

func requiredBytes(l VertexLayout, count int) uint64 {
	return uint64(count-1)*uint64(l.Stride) + uint64(l.extent())
}

func decode(src []byte, info FormatInfo, out *[4]float32) {
	size := info.ComponentBits / 8
	for c := uint32(0); c < info.Components; c++ {
		b := src[c*size:]
		switch info.ComponentBits {
		case 8:
			raw := b[0]
			switch info.Numeric {
			case NumericUnorm:
				out[c] = float32(raw) / 255.0
			case NumericSnorm:
				out[c] = snorm(float32(int8(raw)), 127)
			case NumericUint:
				out[c] = float32(raw)
			case NumericSint:
				out[c] = float32(int8(raw))
			}
		case 16:
			raw := binary.LittleEndian.Uint16(b)
			switch info.Numeric {
			case NumericUnorm:
				out[c] = float32(raw) / 65535.0
			case NumericSnorm:
				out[c] = snorm(float32(int16(raw)), 32767)
			case NumericUint:
				out[c] = float32(raw)
			case NumericSint:
				out[c] = float32(int16(raw))
			case NumericSfloat:
				out[c] = Float16ToFloat32(raw)
			}
		case 32:
			raw := binary.LittleEndian.Uint32(b)
			switch info.Numeric {
			case NumericUint:
				out[c] = float32(raw)
			case NumericSint:
				out[c] = float32(int32(raw))
			case NumericSfloat:
				out[c] = math.Float32frombits(raw)
			}
		}
	}
}

// snorm maps the most negative integer to exactly -1.
func snorm(v, max float32) float32 {
	if v < -max {
		return -1
	}
	return v / max
}

func encode(dst []byte, info FormatInfo, in [4]float32) {
	size := info.ComponentBits / 8
	for c := uint32(0); c < info.Components; c++ {
		b := dst[c*size:]
		x := in[c]
		switch info.ComponentBits {
		case 8:
			switch info.Numeric {
			case NumericUnorm:
				b[0] = uint8(encodeUnorm(x, 255))
			case NumericSnorm:
				b[0] = uint8(int8(encodeSnorm(x, 127)))
			case NumericUint:
				b[0] = uint8(encodeUint(x, math.MaxUint8))
			case NumericSint:
				b[0] = uint8(int8(encodeSint(x, math.MinInt8, math.MaxInt8)))
			}
		case 16:
			var raw uint16
			switch info.Numeric {
			case NumericUnorm:
				raw = uint16(encodeUnorm(x, 65535))
			case NumericSnorm:
				raw = uint16(int16(encodeSnorm(x, 32767)))
			case NumericUint:
				raw = uint16(encodeUint(x, math.MaxUint16))
			case NumericSint:
				raw = uint16(int16(encodeSint(x, math.MinInt16, math.MaxInt16)))
			case NumericSfloat:
				raw = Float32ToFloat16(x)
			}
			binary.LittleEndian.PutUint16(b, raw)
		case 32:
			var raw uint32
			switch info.Numeric {
			case NumericUint:
				raw = uint32(encodeUint(x, math.MaxUint32))
			case NumericSint:
				raw = uint32(int32(encodeSint(x, math.MinInt32, math.MaxInt32)))
			case NumericSfloat:
				raw = math.Float32bits(x)
			}
			binary.LittleEndian.PutUint32(b, raw)
		}
	}
}

func roundHalfAway(x float64) float64 {
	if x >= 0 {
		return math.Floor(x + 0.5)
	}
	return math.Floor(x - 0.5)
}

func encodeUnorm(x float32, max float64) uint64 {
	if x != x {
		return 0
	}
	v := math.Min(math.Max(float64(x), 0), 1)
	return uint64(v*max + 0.5)
}

func encodeSnorm(x float32, max float64) int64 {
	if x != x {
		return 0
	}
	v := math.Min(math.Max(float64(x), -1), 1)
	return int64(roundHalfAway(v * max))
}

func encodeUint(x float32, max float64) uint64 {
	if x != x {
		return 0
	}
	v := math.Min(math.Max(roundHalfAway(float64(x)), 0), max)
	return uint64(v)
}

func encodeSint(x float32, min, max float64) int64 {
	if x != x {
		return 0
	}
	v := math.Min(math.Max(roundHalfAway(float64(x)), min), max)
	return int64(v)
}
