/*
Testbed application: a swarm of cubes driven by the engine's frame loop.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-gpu/engine"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/testbed"
)

func main() {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	config, err := engine.LoadApplicationConfig(configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}

	tb := testbed.NewTestGame(config)
	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		e.Quit()
	}()

	exitCode := 0
	if err := e.Initialize(); err != nil {
		core.LogError("initialization failed: %s", err)
		exitCode = 1
	} else if err := e.Run(); err != nil {
		exitCode = 1
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
		exitCode = 1
	}
	os.Exit(exitCode)
}
