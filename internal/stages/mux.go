// Package stages dispatches stage executions to kind-specific runners.
package stages

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Runner executes stages of one kind. It mirrors ports.StageExecutor so the
// mux is pure dispatch.
type Runner interface {
	Run(
		ctx context.Context,
		stage *domain.Stage,
		cfg *domain.BuildConfig,
		inputs map[domain.InternedString]domain.Artifact,
		outDir string,
	) error
}

// Mux routes a stage to the runner registered for its kind.
type Mux struct {
	runners map[domain.StageKind]Runner
}

func NewMux(runners map[domain.StageKind]Runner) *Mux {
	return &Mux{runners: runners}
}

// Execute implements ports.StageExecutor.
func (m *Mux) Execute(
	ctx context.Context,
	stage *domain.Stage,
	cfg *domain.BuildConfig,
	inputs map[domain.InternedString]domain.Artifact,
	outDir string,
) error {
	runner, ok := m.runners[stage.Kind]
	if !ok {
		err := zerr.With(zerr.New("no runner registered for stage kind"), "kind", string(stage.Kind))
		return zerr.With(err, "stage", stage.Name.String())
	}
	return runner.Run(ctx, stage, cfg, inputs, outDir)
}

var _ ports.StageExecutor = (*Mux)(nil)
