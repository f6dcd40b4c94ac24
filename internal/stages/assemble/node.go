package assemble

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/fsops"  //nolint:depguard // Wired in stage wiring
	"go.trai.ch/forge/internal/adapters/logger" //nolint:depguard // Wired in stage wiring
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the artifact assembler stage runner Graft node.
const NodeID graft.ID = "stage.assemble"

func init() {
	graft.Register(graft.Node[*Runner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fsops.NormalizerNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Runner, error) {
			normalizer, err := graft.Dep[*fsops.Normalizer](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewRunner(normalizer, log), nil
		},
	})
}
