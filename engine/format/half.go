package format

import "math"

const (
	halfMinNormal    = 1.0 / (1 << 14)
	halfMinSubnormal = 1.0 / (1 << 24)
	halfMaxNormal    = 65504.0
)

// Float16ToFloat32 widens an IEEE-754 binary16 value. Every half value,
// subnormals included, is exactly representable in binary32. NaN payloads keep
// their quiet bit.
func Float16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exponent := uint32(h>>10) & 0x1F
	mantissa := uint32(h) & 0x3FF

	switch {
	case exponent == 0:
		if mantissa == 0 {
			return math.Float32frombits(sign)
		}
		f := float32(mantissa) * halfMinSubnormal
		return math.Float32frombits(sign | math.Float32bits(f))
	case exponent == 0x1F:
		return math.Float32frombits(sign | 0xFF<<23 | mantissa<<13)
	}
	return math.Float32frombits(sign | (exponent-15+127)<<23 | mantissa<<13)
}

// Float32ToFloat16 narrows f to binary16, truncating extra mantissa bits.
// Magnitudes above the largest half become infinity, magnitudes under the
// smallest subnormal become zero.
func Float32ToFloat16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>31) << 15
	exponent := (bits >> 23) & 0xFF
	mantissa := bits & 0x7FFFFF

	if exponent == 0xFF {
		if mantissa == 0 {
			return sign | 0x1F<<10
		}
		if mantissa&(1<<22) != 0 {
			return sign | 0x1F<<10 | 1<<9
		}
		return sign | 0x1F<<10 | (1<<9 - 1)
	}

	af := math.Abs(float64(f))
	switch {
	case af < halfMinSubnormal:
		return sign
	case af < halfMinNormal:
		unbiased := int(exponent) - 127
		return sign | uint16((mantissa|1<<23)>>uint(-1-unbiased))
	}
	newExponent := int(exponent) - 127 + 15
	if newExponent >= 31 || af > halfMaxNormal {
		return sign | 0x1F<<10
	}
	return sign | uint16(newExponent)<<10 | uint16(mantissa>>13)
}
