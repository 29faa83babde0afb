//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

type Build mg.Namespace

const shaderProgram = "triangle"

var shaderStages = []string{"vert", "frag"}

// Compiles the shader program under shaders/ to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles shaders and builds the binary into bin/.
func (Build) App() error {
	mg.Deps(Build.Shaders)
	return sh.RunV("go", "build", "-o", "bin/trigon", ".")
}

// buildShaders writes shaders/<program>-<stage>.spv for every stage whose
// GLSL source is newer than its module. A running renderer reloads them.
func buildShaders() error {
	for _, stage := range shaderStages {
		src := fmt.Sprintf("shaders/%s.%s", shaderProgram, stage)
		out := fmt.Sprintf("shaders/%s-%s.spv", shaderProgram, stage)

		stale, err := target.Path(out, src)
		if err != nil {
			return err
		}
		if !stale {
			if mg.Verbose() {
				fmt.Printf("%s is up to date\n", out)
			}
			continue
		}
		if err := sh.RunV("glslc", src, "-o", out); err != nil {
			return fmt.Errorf("compiling %s: %w", src, err)
		}
	}
	return nil
}

// Runs the test suite.
func Test() error {
	return sh.RunV("go", "test", "./...")
}
