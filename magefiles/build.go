//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Build mg.Namespace

// Compiles every GLSL source under shaders/ into assets/shaders/<name>.<stage>.spv.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the testbed and the assetctl binary into bin/.
func (Build) All() error {
	mg.Deps(Build.Shaders)
	if err := sh.RunV("go", "build", "-o", "bin/testbed", "."); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", "bin/assetctl", "./cmd/assetctl")
}

func buildShaders() error {
	var sources []string
	for _, pattern := range []string{"shaders/*.vert", "shaders/*.frag", "shaders/*.comp"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return nil
	}

	out := filepath.Join("assets", "shaders")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	for _, src := range sources {
		// shader.vert -> shader.vert.spv, the loader reads the stage from the name
		dst := filepath.Join(out, filepath.Base(src)+".spv")
		if err := sh.RunV("glslc", src, "-o", dst); err != nil {
			return err
		}
	}
	return nil
}
