package stages

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/stages/assemble"   //nolint:depguard // Wired in stage wiring
	"go.trai.ch/forge/internal/stages/backendenv" //nolint:depguard // Wired in stage wiring
	"go.trai.ch/forge/internal/stages/binpack"    //nolint:depguard // Wired in stage wiring
	"go.trai.ch/forge/internal/stages/frontend"   //nolint:depguard // Wired in stage wiring
	"go.trai.ch/forge/internal/stages/models"     //nolint:depguard // Wired in stage wiring
)

// NodeID is the unique identifier for the stage executor mux Graft node.
const NodeID graft.ID = "stages.mux"

func init() {
	graft.Register(graft.Node[ports.StageExecutor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			frontend.NodeID,
			backendenv.NodeID,
			models.NodeID,
			binpack.NodeID,
			assemble.NodeID,
		},
		Run: func(ctx context.Context) (ports.StageExecutor, error) {
			frontendRunner, err := graft.Dep[*frontend.Runner](ctx)
			if err != nil {
				return nil, err
			}
			backendRunner, err := graft.Dep[*backendenv.Runner](ctx)
			if err != nil {
				return nil, err
			}
			modelsRunner, err := graft.Dep[*models.Runner](ctx)
			if err != nil {
				return nil, err
			}
			binpackRunner, err := graft.Dep[*binpack.Runner](ctx)
			if err != nil {
				return nil, err
			}
			assembleRunner, err := graft.Dep[*assemble.Runner](ctx)
			if err != nil {
				return nil, err
			}
			return NewMux(map[domain.StageKind]Runner{
				domain.KindFrontend:   frontendRunner,
				domain.KindBackendEnv: backendRunner,
				domain.KindModels:     modelsRunner,
				domain.KindBinary:     binpackRunner,
				domain.KindAssemble:   assembleRunner,
			}), nil
		},
	})
}
