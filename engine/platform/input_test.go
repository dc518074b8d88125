package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

type fakeSource struct {
	down   map[glfw.Key]bool
	mx, my float64
}

func (f *fakeSource) GetKey(key glfw.Key) glfw.Action {
	if f.down[key] {
		return glfw.Press
	}
	return glfw.Release
}

func (f *fakeSource) GetCursorPos() (float64, float64) {
	return f.mx, f.my
}

func TestInputEdges(t *testing.T) {
	src := &fakeSource{down: map[glfw.Key]bool{}}
	in := NewInputState(src)
	if in.IsPressed(DIGITAL_LPAD_UP) || in.IsReleased(DIGITAL_LPAD_UP) {
		t.Fatal("no edges expected on first frame")
	}

	src.down[glfw.KeyW] = true
	in.Update()
	if !in.IsPressed(DIGITAL_LPAD_UP) || in.GetDigital(DIGITAL_LPAD_UP) != 1 {
		t.Errorf("W press not reported")
	}

	in.Update()
	if in.IsPressed(DIGITAL_LPAD_UP) {
		t.Errorf("held key reported as a new press")
	}

	src.down[glfw.KeyW] = false
	in.Update()
	if !in.IsReleased(DIGITAL_LPAD_UP) {
		t.Errorf("release not reported")
	}
}

func TestInputMouseDelta(t *testing.T) {
	src := &fakeSource{down: map[glfw.Key]bool{}, mx: 10, my: 20}
	in := NewInputState(src)
	src.mx, src.my = 14, 17
	in.Update()
	if got := in.GetAnalogDelta(ANALOG_MOUSE_X); got != 4 {
		t.Errorf("dx = %v", got)
	}
	if got := in.GetAnalogDelta(ANALOG_MOUSE_Y); got != -3 {
		t.Errorf("dy = %v", got)
	}
	in.ClearHistory()
	if in.GetAnalogDelta(ANALOG_MOUSE_X) != 0 {
		t.Errorf("ClearHistory left a delta")
	}
}
