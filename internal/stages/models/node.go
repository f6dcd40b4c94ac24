package models

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/hub"    //nolint:depguard // Wired in stage wiring
	"go.trai.ch/forge/internal/adapters/logger" //nolint:depguard // Wired in stage wiring
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the model prefetch stage runner Graft node.
const NodeID graft.ID = "stage.models"

func init() {
	graft.Register(graft.Node[*Runner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{hub.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Runner, error) {
			fetcher, err := graft.Dep[ports.ModelFetcher](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewRunner(fetcher, log), nil
		},
	})
}
