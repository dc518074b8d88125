package vulkan

import (
	"errors"
	"reflect"
	"testing"

	"github.com/spaghettifunk/anima-gpu/engine/core"
)

func TestSelectNames(t *testing.T) {
	available := []string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_MESA_overlay"}

	got, err := selectNames(available,
		[]string{"VK_LAYER_MESA_overlay"},
		[]string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_missing", "VK_LAYER_MESA_overlay"},
		core.ErrLayerNotPresent)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_MESA_overlay"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	_, err = selectNames(available, []string{"VK_LAYER_missing"}, nil, core.ErrLayerNotPresent)
	if !errors.Is(err, core.ErrLayerNotPresent) {
		t.Errorf("expected ErrLayerNotPresent, got %v", err)
	}
	_, err = selectNames(nil, []string{"VK_KHR_swapchain"}, nil, core.ErrExtensionNotPresent)
	if !errors.Is(err, core.ErrExtensionNotPresent) {
		t.Errorf("expected ErrExtensionNotPresent, got %v", err)
	}
}

func TestSelectNamesEmpty(t *testing.T) {
	got, err := selectNames([]string{"a"}, nil, nil, core.ErrLayerNotPresent)
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", "b", "a", "c", "b"})
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("got %v", got)
	}
}

func TestSelectQueueFamilies(t *testing.T) {
	tests := []struct {
		name              string
		families          []queueFamilySupport
		graphics, present uint32
		ok                bool
	}{
		{"shared", []queueFamilySupport{{Graphics: true}, {Graphics: true, Present: true}}, 1, 1, true},
		{"split", []queueFamilySupport{{Present: true}, {Graphics: true}, {Graphics: true}}, 1, 0, true},
		{"no present", []queueFamilySupport{{Graphics: true}}, 0, 0, false},
		{"no graphics", []queueFamilySupport{{Present: true}}, 0, 0, false},
		{"empty", nil, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, p, ok := selectQueueFamilies(tt.families)
			if ok != tt.ok || g != tt.graphics || p != tt.present {
				t.Errorf("got (%d, %d, %t), want (%d, %d, %t)", g, p, ok, tt.graphics, tt.present, tt.ok)
			}
		})
	}
}

func TestCString(t *testing.T) {
	var name [16]byte
	copy(name[:], "VK_KHR_surface")
	if got := cString(name[:]); got != "VK_KHR_surface" {
		t.Errorf("got %q", got)
	}
	full := []byte("abcd")
	if got := cString(full); got != "abcd" {
		t.Errorf("unterminated: got %q", got)
	}
}

func TestDebugReportFlagsFromNames(t *testing.T) {
	if got := DebugReportFlagsFromNames(nil); got != 0 {
		t.Errorf("got 0x%x", got)
	}
	got := DebugReportFlagsFromNames([]string{"error", "warning"})
	if got == 0 || DebugReportFlagsFromNames([]string{"error"}) == got {
		t.Errorf("flags not combined: 0x%x", got)
	}
}
