package core

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the on-disk configuration of an application, usually config.toml
// next to the executable.
type Config struct {
	Application ApplicationSection `toml:"application"`
	Context     ContextConfig      `toml:"context"`
	Frames      FramesSection      `toml:"frames"`
	Assets      AssetsSection      `toml:"assets"`
	Memory      MemorySection      `toml:"memory"`
}

type ApplicationSection struct {
	Name      string `toml:"name"`
	Version   uint32 `toml:"version"`
	StartPosX uint32 `toml:"start_pos_x"`
	StartPosY uint32 `toml:"start_pos_y"`
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`
	LogLevel  string `toml:"log_level"`
	Debug     bool   `toml:"debug"`
}

// ContextConfig lists the capability names requested from the driver.
type ContextConfig struct {
	RequiredInstanceLayers     []string `toml:"required_instance_layers"`
	OptionalInstanceLayers     []string `toml:"optional_instance_layers"`
	RequiredInstanceExtensions []string `toml:"required_instance_extensions"`
	OptionalInstanceExtensions []string `toml:"optional_instance_extensions"`
	RequiredDeviceExtensions   []string `toml:"required_device_extensions"`
	OptionalDeviceExtensions   []string `toml:"optional_device_extensions"`
	DebugReport                []string `toml:"debug_report"`
}

type FramesSection struct {
	Depth               int    `toml:"depth"`
	DynamicUniformBytes uint64 `toml:"dynamic_uniform_bytes"`
}

// MemorySection sizes the flat arenas created at startup. Zero disables an
// arena and its resources get dedicated allocations.
type MemorySection struct {
	MeshArenaBytes uint64 `toml:"mesh_arena_bytes"`
}

type AssetsSection struct {
	Directory string `toml:"directory"`
	Watch     bool   `toml:"watch"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationSection{
			Name:      "Anima GPU",
			Version:   1,
			StartPosX: 100,
			StartPosY: 100,
			Width:     1280,
			Height:    720,
			LogLevel:  "info",
		},
		Context: ContextConfig{
			OptionalInstanceLayers:     []string{"VK_LAYER_KHRONOS_validation"},
			OptionalInstanceExtensions: []string{"VK_EXT_debug_report"},
			RequiredDeviceExtensions:   []string{"VK_KHR_swapchain"},
			OptionalDeviceExtensions:   []string{"VK_EXT_debug_marker"},
			DebugReport:                []string{"error", "warning", "performance"},
		},
		Frames: FramesSection{
			Depth:               2,
			DynamicUniformBytes: 64 * 1024,
		},
		Assets: AssetsSection{
			Directory: "assets",
		},
		Memory: MemorySection{
			MeshArenaBytes: 16 << 20,
		},
	}
}

// LoadConfig reads a toml file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Frames.Depth < 1 {
		return fmt.Errorf("frames.depth must be at least 1, got %d: %w", c.Frames.Depth, ErrInvalidArgument)
	}
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return fmt.Errorf("window size %dx%d: %w", c.Application.Width, c.Application.Height, ErrInvalidArgument)
	}
	if _, err := ParseLogLevel(c.Application.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", c.Application.LogLevel, err)
	}
	for _, name := range c.Context.DebugReport {
		switch name {
		case "error", "warning", "info", "performance", "debug":
		default:
			return fmt.Errorf("debug_report flag %q: %w", name, ErrInvalidArgument)
		}
	}
	return nil
}

// Level returns the parsed application log level.
func (c *Config) Level() LogLevel {
	l, _ := ParseLogLevel(c.Application.LogLevel)
	return l
}
