package ports

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
)

// ModelFetcher materializes model cache entries from the model hub.
//
//go:generate go run go.uber.org/mock/mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type ModelFetcher interface {
	// Fetch downloads and verifies the files for key into dir. Network fetches
	// are retried a bounded number of times with backoff; an exhausted retry
	// budget or an integrity failure surfaces domain.ErrModelFetch.
	Fetch(ctx context.Context, key domain.ModelKey, dir string) error

	// Verify reports whether dir already holds a complete, digest-correct
	// materialization of key. It performs no network calls.
	Verify(key domain.ModelKey, dir string) (bool, error)
}
