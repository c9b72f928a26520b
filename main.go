/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/testbed"
)

const configFile = "anima.toml"

func main() {
	cfg := config.Default()
	if _, err := os.Stat(configFile); err == nil {
		if cfg, err = config.Load(configFile); err != nil {
			core.LogFatal(err.Error())
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		core.LogFatal(err.Error())
	}

	tb, err := testbed.NewTestGame(cfg)
	if err != nil {
		core.LogFatal(err.Error())
	}

	engine, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := engine.Initialize(); err != nil {
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// capture sigterm and other system call here
	go func() {
		<-sigCh
		engine.Stop()
	}()

	// run engine
	runErr := engine.Run()
	if err := errors.Join(runErr, engine.Shutdown()); err != nil {
		core.LogFatal(err.Error())
	}
}
