package app

import "go.trai.ch/forge/internal/core/ports"

// Components provides controlled access to the initialized application
// components needed by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
	Store  ports.ArtifactStore
}
