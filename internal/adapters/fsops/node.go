package fsops

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/core/ports"
)

const (
	// HasherNodeID is the unique identifier for the tree hasher Graft node.
	HasherNodeID graft.ID = "adapter.fsops.hasher"
	// NormalizerNodeID is the unique identifier for the normalizer Graft node.
	NormalizerNodeID graft.ID = "adapter.fsops.normalizer"
)

func init() {
	graft.Register(graft.Node[ports.TreeHasher]{
		ID:        HasherNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.TreeHasher, error) {
			return NewHasher(NewWalker()), nil
		},
	})

	graft.Register(graft.Node[*Normalizer]{
		ID:        NormalizerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Normalizer, error) {
			return NewNormalizer(), nil
		},
	})
}
