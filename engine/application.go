package engine

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spaghettifunk/anima-gpu/engine/core"
)

// ApplicationConfig is the configuration a game starts with.
type ApplicationConfig struct {
	*core.Config
	// Path the configuration was read from, empty for the defaults.
	Path string
}

// LoadApplicationConfig reads path on top of the defaults. A missing file
// is not an error; the defaults are used as they are.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		core.LogWarn("config %s not found, using defaults", path)
		return &ApplicationConfig{Config: core.DefaultConfig()}, nil
	}
	cfg, err := core.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.Level())
	return &ApplicationConfig{Config: cfg, Path: path}, nil
}
