/*
trigon opens a window and draws a rotating triangle with Vulkan.
*/
package main

import (
	"flag"

	"github.com/spaghettifunk/trigon/engine"
	"github.com/spaghettifunk/trigon/engine/core"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration")
	debug := flag.Bool("debug", false, "enable the Vulkan validation layer")
	flag.Parse()

	if err := run(*configPath, *debug); err != nil {
		core.LogFatal("trigon stopped: %s", err.Error())
	}
}

func run(configPath string, debug bool) error {
	cfg, err := engine.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Renderer.Debug = true
	}

	e, err := engine.New(cfg)
	if err != nil {
		return err
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		return err
	}

	runErr := e.Run()
	if err := e.Shutdown(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
