//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const (
	shaderSourceDir = "shaders"
	shaderOutputDir = "assets/shaders"
)

// Compiles every GLSL stage under shaders/ into assets/shaders/<name>.spv.
func (Build) Shaders() error {
	if err := os.MkdirAll(shaderOutputDir, 0o755); err != nil {
		return err
	}
	var sources []string
	for _, pattern := range []string{"*.vert", "*.frag", "*.comp"} {
		matches, err := filepath.Glob(filepath.Join(shaderSourceDir, pattern))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	for _, src := range sources {
		out := filepath.Join(shaderOutputDir, filepath.Base(src)+".spv")
		if err := run("glslc", src, "-o", out); err != nil {
			return err
		}
	}
	return nil
}

// Builds the testbed binary into bin/.
func (Build) Testbed() error {
	mg.Deps(Build.Shaders)
	return run("go", "build", "-o", filepath.Join("bin", "testbed"), ".")
}
