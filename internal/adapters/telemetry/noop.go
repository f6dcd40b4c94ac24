package telemetry

import (
	"context"
	"io"

	"go.trai.ch/forge/internal/core/ports"
)

// Noop is a Telemetry implementation that records nothing. It keeps tests and
// machine-readable output modes free of progress rendering.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Record(ctx context.Context, _ string) (context.Context, ports.Vertex) {
	v := noopVertex{}
	return ports.ContextWithVertex(ctx, v), v
}

func (n *Noop) Close() error { return nil }

type noopVertex struct{}

func (noopVertex) Stdout() io.Writer { return io.Discard }
func (noopVertex) Stderr() io.Writer { return io.Discard }
func (noopVertex) Cached()           {}
func (noopVertex) Complete(error)    {}

var _ ports.Telemetry = (*Noop)(nil)
