/*
This is an example application that uses the engine package to render the
testbed scene.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ashenvale/prism/engine"
	"github.com/ashenvale/prism/engine/config"
	"github.com/ashenvale/prism/testbed"
)

func main() {
	cfg, err := config.Load("prism.toml")
	if err != nil {
		panic(err)
	}

	eng, err := engine.New(testbed.NewTestGame(cfg))
	if err != nil {
		panic(err)
	}

	if err := eng.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		eng.Stop()
	}()

	if err := eng.Run(); err != nil {
		panic(err)
	}

	if err := eng.Shutdown(); err != nil {
		panic(err)
	}
}
