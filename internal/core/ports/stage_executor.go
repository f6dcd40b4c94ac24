// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
)

// StageExecutor runs one stage inside its declared isolated environment.
//
//go:generate go run go.uber.org/mock/mockgen -source=stage_executor.go -destination=mocks/mock_stage_executor.go -package=mocks
type StageExecutor interface {
	// Execute produces the stage's artifact inside outDir. Consumed artifacts
	// are passed read-only through inputs; a stage never reads another stage's
	// workspace except through its declared inputs.
	Execute(
		ctx context.Context,
		stage *domain.Stage,
		cfg *domain.BuildConfig,
		inputs map[domain.InternedString]domain.Artifact,
		outDir string,
	) error
}
