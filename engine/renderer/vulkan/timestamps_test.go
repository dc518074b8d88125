package vulkan

import (
	"math"
	"testing"
)

func TestDecodeTimestamps(t *testing.T) {
	raw := []uint64{
		1000, 1,
		3000, 1,
	}
	got, ok := decodeTimestamps(raw, 64, 1.0)
	if !ok {
		t.Fatal("all queries were available")
	}
	if math.Abs(got[0]-1e-6) > 1e-15 || math.Abs(got[1]-3e-6) > 1e-15 {
		t.Errorf("got %v", got)
	}
}

func TestDecodeTimestampsMasksInvalidBits(t *testing.T) {
	raw := []uint64{0xFFFF_0000_0000_0010, 1}
	got, _ := decodeTimestamps(raw, 36, 2.0)
	if want := 16 * 2.0 * 1e-9; math.Abs(got[0]-want) > 1e-18 {
		t.Errorf("got %g, want %g", got[0], want)
	}
}

func TestDecodeTimestampsUnavailable(t *testing.T) {
	raw := []uint64{500, 1, 900, 0}
	got, ok := decodeTimestamps(raw, 64, 1.0)
	if ok {
		t.Error("unavailable query reported as ready")
	}
	if got[1] != 0 || got[0] == 0 {
		t.Errorf("got %v", got)
	}
}
