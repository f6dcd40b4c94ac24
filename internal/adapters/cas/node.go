package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/fsops" //nolint:depguard // Wired in adapter wiring
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the artifact store Graft node.
const NodeID graft.ID = "adapter.artifact_store"

// DefaultRoot is the on-disk location of the artifact store, relative to the
// build invocation's working directory.
const DefaultRoot = ".forge"

func init() {
	graft.Register(graft.Node[ports.ArtifactStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fsops.HasherNodeID},
		Run: func(ctx context.Context) (ports.ArtifactStore, error) {
			hasher, err := graft.Dep[ports.TreeHasher](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(DefaultRoot, hasher)
		},
	})
}
