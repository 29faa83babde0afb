//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Run mg.Namespace

// Compiles the shaders and runs the renderer with config.toml.
func (Run) App() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run trigon...")
	return sh.RunV("go", "run", ".", "-config", "config.toml")
}

// Same as run:app with validation layers enabled.
func (Run) Debug() error {
	mg.Deps(Build.Shaders)
	return sh.RunV("go", "run", ".", "-config", "config.toml", "-debug")
}
