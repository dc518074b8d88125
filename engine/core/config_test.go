package core

import (
	"errors"
	"testing"
)

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[application]
name = "swarm"
log_level = "debug"

[frames]
depth = 3

[context]
required_device_extensions = ["VK_KHR_swapchain", "VK_KHR_maintenance1"]
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Application.Name != "swarm" {
		t.Errorf("name = %q", cfg.Application.Name)
	}
	if cfg.Application.Width != 1280 {
		t.Errorf("width default lost: %d", cfg.Application.Width)
	}
	if cfg.Frames.Depth != 3 {
		t.Errorf("depth = %d", cfg.Frames.Depth)
	}
	if cfg.Level() != Debug {
		t.Errorf("level = %v", cfg.Level())
	}
	if got := len(cfg.Context.RequiredDeviceExtensions); got != 2 {
		t.Errorf("device extensions = %d", got)
	}
	if len(cfg.Context.OptionalInstanceLayers) != 1 {
		t.Errorf("optional layers default lost")
	}
}

func TestParseConfigRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key": "[application]\ncolour = 1\n",
		"zero depth":  "[frames]\ndepth = 0\n",
		"bad level":   "[application]\nlog_level = \"loud\"\n",
		"bad report":  "[context]\ndebug_report = [\"verbose\"]\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(src)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	_, err := ParseConfig([]byte("[frames]\ndepth = -1\n"))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{"debug": Debug, "": Info, "WARN": Warn, "error": Error, "fatal": Fatal} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
}

func TestMetricsAverages(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < AVG_COUNT; i++ {
		m.Update(0.010, 0.004)
	}
	if got := m.FrameTime(); got < 9.999 || got > 10.001 {
		t.Errorf("frame time = %v", got)
	}
	if got := m.GPUFrameTime(); got < 3.999 || got > 4.001 {
		t.Errorf("gpu time = %v", got)
	}
}

func TestDebugNameUnique(t *testing.T) {
	ReleaseDebugNames()
	a, b := DebugName("buffer"), DebugName("buffer")
	if a == b {
		t.Fatalf("names collide: %s", a)
	}
	if DebugNameCount() != 2 {
		t.Errorf("count = %d", DebugNameCount())
	}
}
