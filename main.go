/*
Testbed application that drives the engine package
with a small procedural scene.
*/
package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/testbed"
)

// loadConfig looks next to the executable first, then in the working
// directory so that `go run` finds the repository's config.toml.
func loadConfig() (*core.Config, error) {
	cfg, err := core.LoadConfig()
	if err == nil || !errors.Is(err, core.ErrConfigNotFound) {
		return cfg, err
	}
	wd, wdErr := os.Getwd()
	if wdErr != nil {
		return nil, err
	}
	return core.LoadConfigFrom(wd)
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		core.LogFatal(err.Error())
	}

	tb := testbed.NewTestGame(engine.ApplicationConfigFrom(cfg))

	e, err := engine.New(tb.Game, cfg)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		e.Quit()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}
}
