package format

import (
	"math"
	"testing"
)

func isHalfNaN(h uint16) bool {
	return h&0x7C00 == 0x7C00 && h&0x03FF != 0
}

func TestHalfRoundTripExhaustive(t *testing.T) {
	errors := 0
	for i := 0; i <= 0xFFFF; i++ {
		h := uint16(i)
		back := Float32ToFloat16(Float16ToFloat32(h))
		if isHalfNaN(h) {
			if !isHalfNaN(back) || back&0x8000 != h&0x8000 || back&0x0200 != h&0x0200 {
				errors++
			}
			continue
		}
		if back != h {
			errors++
			if errors < 10 {
				t.Errorf("0x%04X -> %v -> 0x%04X", h, Float16ToFloat32(h), back)
			}
		}
	}
	if errors != 0 {
		t.Fatalf("%d half values did not round-trip", errors)
	}
}

func TestHalfKnownValues(t *testing.T) {
	cases := []struct {
		f float32
		h uint16
	}{
		{0, 0x0000},
		{1, 0x3C00},
		{2, 0x4000},
		{3, 0x4200},
		{-2, 0xC000},
		{65504, 0x7BFF},
		{halfMinNormal, 0x0400},
		{halfMinSubnormal, 0x0001},
	}
	for _, c := range cases {
		if got := Float32ToFloat16(c.f); got != c.h {
			t.Errorf("Float32ToFloat16(%v) = 0x%04X, want 0x%04X", c.f, got, c.h)
		}
		if got := Float16ToFloat32(c.h); got != c.f {
			t.Errorf("Float16ToFloat32(0x%04X) = %v, want %v", c.h, got, c.f)
		}
	}
	if got := Float32ToFloat16(float32(math.Copysign(0, -1))); got != 0x8000 {
		t.Errorf("-0 -> 0x%04X", got)
	}
}

func TestHalfBoundaries(t *testing.T) {
	belowNormal := math.Nextafter32(halfMinNormal, 0)
	if h := Float32ToFloat16(belowNormal); h&0x7C00 != 0 || h == 0 {
		t.Errorf("value just below smallest normal should be subnormal, got 0x%04X", h)
	}
	if h := Float32ToFloat16(5.0e-08); h != 0 {
		t.Errorf("value below smallest subnormal should be zero, got 0x%04X", h)
	}
	if h := Float32ToFloat16(-5.0e-08); h != 0x8000 {
		t.Errorf("negative tiny value should be -0, got 0x%04X", h)
	}
	if h := Float32ToFloat16(1e6); h != 0x7C00 {
		t.Errorf("overflow should saturate to +inf, got 0x%04X", h)
	}
	if h := Float32ToFloat16(float32(math.Inf(-1))); h != 0xFC00 {
		t.Errorf("-inf = 0x%04X", h)
	}
	qnan := math.Float32frombits(0x7FC00001)
	if h := Float32ToFloat16(qnan); !isHalfNaN(h) || h&0x0200 == 0 {
		t.Errorf("quiet NaN lost quiet bit: 0x%04X", h)
	}
	snan := math.Float32frombits(0x7F800001)
	if h := Float32ToFloat16(snan); !isHalfNaN(h) || h&0x0200 != 0 {
		t.Errorf("signalling NaN became quiet: 0x%04X", h)
	}
}

func TestHalfTruncates(t *testing.T) {
	cases := []struct {
		name string
		f    float32
		h    uint16
	}{
		// 1.5 ulp above 1 drops to 1 ulp
		{"normal", 1 + 1.0/1024 + 1.0/2048, 0x3C01},
		{"negative toward zero", -(1 + 1.0/1024 + 1.0/2048), 0xBC01},
		{"just below 2", math.Nextafter32(2, 0), 0x3FFF},
		{"subnormal", 1.75 * halfMinSubnormal, 0x0001},
		// past the largest half goes to inf, never down to 65504
		{"above max", 65505, 0x7C00},
	}
	for _, c := range cases {
		if got := Float32ToFloat16(c.f); got != c.h {
			t.Errorf("%s: Float32ToFloat16(%v) = 0x%04X, want 0x%04X", c.name, c.f, got, c.h)
		}
	}
}
