// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/forge/internal/adapters/cas"
	_ "go.trai.ch/forge/internal/adapters/config"
	_ "go.trai.ch/forge/internal/adapters/fsops"
	_ "go.trai.ch/forge/internal/adapters/hub"
	_ "go.trai.ch/forge/internal/adapters/logger"
	_ "go.trai.ch/forge/internal/adapters/nix"
	_ "go.trai.ch/forge/internal/adapters/shell"
	_ "go.trai.ch/forge/internal/adapters/telemetry"
	// Register stage runner nodes.
	_ "go.trai.ch/forge/internal/stages"
	_ "go.trai.ch/forge/internal/stages/assemble"
	_ "go.trai.ch/forge/internal/stages/backendenv"
	_ "go.trai.ch/forge/internal/stages/binpack"
	_ "go.trai.ch/forge/internal/stages/frontend"
	_ "go.trai.ch/forge/internal/stages/models"
	// Register app and engine nodes.
	_ "go.trai.ch/forge/internal/app"
	_ "go.trai.ch/forge/internal/engine/scheduler"
)
