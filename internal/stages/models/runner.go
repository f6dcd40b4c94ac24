// Package models materializes ML model weights and tokenizer data into the
// artifact's model cache.
package models

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Runner prefetches every model the configuration enables. Entries that
// already verify are skipped without network traffic; the first failure aborts
// the stage and entries written so far stay valid.
type Runner struct {
	fetcher ports.ModelFetcher
	logger  ports.Logger
}

func NewRunner(fetcher ports.ModelFetcher, logger ports.Logger) *Runner {
	return &Runner{fetcher: fetcher, logger: logger}
}

func (r *Runner) Run(
	ctx context.Context,
	_ *domain.Stage,
	cfg *domain.BuildConfig,
	_ map[domain.InternedString]domain.Artifact,
	outDir string,
) error {
	for _, key := range domain.ModelSet(cfg) {
		dir := key.CachePath(outDir)

		complete, err := r.fetcher.Verify(key, dir)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrModelFetch.Error()),
				"model", key.ID,
			)
		}
		if complete {
			r.logger.Info("model cache entry verified: " + key.String())
			continue
		}

		if err := r.fetcher.Fetch(ctx, key, dir); err != nil {
			return err
		}
	}
	return nil
}
