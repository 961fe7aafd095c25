package engine

import (
	"github.com/ashenvale/prism/engine/config"
)

// Game is the application hosted by the engine. The engine calls
// FnInitialize once the subsystems are up, then FnUpdate every frame.
type Game struct {
	Config *config.Config
	State  interface{}

	FnInitialize Initialize
	FnUpdate     Update
}

type Initialize func(e *Engine) error
type Update func(deltaTime float64) error
