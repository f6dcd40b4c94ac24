package binpack

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/nix"   //nolint:depguard // Wired in stage wiring
	"go.trai.ch/forge/internal/adapters/shell" //nolint:depguard // Wired in stage wiring
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the single-binary packager stage runner Graft node.
const NodeID graft.ID = "stage.binpack"

func init() {
	graft.Register(graft.Node[*Runner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID, nix.EnvFactoryNodeID},
		Run: func(ctx context.Context) (*Runner, error) {
			commands, err := graft.Dep[ports.CommandExecutor](ctx)
			if err != nil {
				return nil, err
			}
			envs, err := graft.Dep[ports.EnvironmentFactory](ctx)
			if err != nil {
				return nil, err
			}
			return NewRunner(commands, envs), nil
		},
	})
}
