package math

import (
	"math"
	"testing"
)

func TestAlignUp(t *testing.T) {
	cases := []struct{ x, a, want uint64 }{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 16, 272},
		{7, 1, 7},
	}
	for _, c := range cases {
		if got := AlignUp(c.x, c.a); got != c.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", c.x, c.a, got, c.want)
		}
	}
	if AlignUp(uint64(math.MaxUint64-2), 16) != 0 {
		t.Errorf("expected wrap to zero")
	}
}

func TestClampAndPowers(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1.5, -1, 1) != -1 || Clamp[uint8](2, 1, 4) != 2 {
		t.Errorf("clamp")
	}
	for x, want := range map[uint32]bool{0: false, 1: true, 2: true, 3: false, 4096: true} {
		if IsPowerOfTwo(x) != want {
			t.Errorf("IsPowerOfTwo(%d)", x)
		}
	}
	if DivCeil(9, 4) != 3 || DivCeil(8, 4) != 2 {
		t.Errorf("DivCeil")
	}
}

func TestMatrixTranslateThenScale(t *testing.T) {
	m := NewMat4Translation(Vec3{1, 2, 3}).Mul(NewMat4Scale(Vec3{2, 2, 2}))
	got := Vec3{1, 1, 1}.Transform(m)
	if got != (Vec3{4, 6, 8}) {
		t.Errorf("got %+v", got)
	}
}

func TestAxisAngleQuarterTurn(t *testing.T) {
	m := NewMat4AxisAngle(Vec3{0, 0, 1}, math.Pi/2)
	got := Vec3{1, 0, 0}.Transform(m)
	if math.Abs(float64(got.X)) > 1e-6 || math.Abs(float64(got.Y-1)) > 1e-6 {
		t.Errorf("got %+v", got)
	}
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := Vec3{0, 0, 5}
	m := NewMat4LookAt(eye, Vec3{}, Vec3{0, 1, 0})
	got := eye.Transform(m)
	if got.Length() > 1e-5 {
		t.Errorf("eye maps to %+v", got)
	}
	ahead := Vec3{0, 0, 0}.Transform(m)
	if ahead.Z > -4.99 {
		t.Errorf("target should be in front (negative z), got %+v", ahead)
	}
}
