// Package assemble merges stage artifacts into the final runtime filesystem.
package assemble

import (
	"context"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/adapters/fsops"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// copyIgnores strips VCS metadata and build-only files from every copied
// artifact and from the backend source tree.
var copyIgnores = []string{
	".git",
	".jj",
	"node_modules",
	"__pycache__",
	"*.pyc",
	".pytest_cache",
	".mypy_cache",
}

// Runner lays out the deployable tree: client assets, backend, model cache,
// entrypoint, runtime contract and version marker, then normalizes ownership
// and permissions to the runtime identity.
type Runner struct {
	normalizer *fsops.Normalizer
	logger     ports.Logger
}

func NewRunner(normalizer *fsops.Normalizer, logger ports.Logger) *Runner {
	return &Runner{normalizer: normalizer, logger: logger}
}

func (r *Runner) Run(
	_ context.Context,
	_ *domain.Stage,
	cfg *domain.BuildConfig,
	inputs map[domain.InternedString]domain.Artifact,
	outDir string,
) error {
	appDir := filepath.Join(outDir, "app")

	frontend, ok := inputs[domain.StageFrontend]
	if !ok {
		return zerr.Wrap(domain.ErrArtifactMissing, "assembly needs the frontend assets")
	}
	models, ok := inputs[domain.StageModels]
	if !ok {
		return zerr.Wrap(domain.ErrArtifactMissing, "assembly needs the model cache")
	}

	if err := fsops.CopyTree(frontend.Root, filepath.Join(appDir, "build"), copyIgnores); err != nil {
		return zerr.Wrap(err, "placing frontend assets")
	}
	if err := fsops.CopyTree(models.Root, filepath.Join(appDir, "data", "cache", "models"), copyIgnores); err != nil {
		return zerr.Wrap(err, "placing model cache")
	}

	if err := r.placeBackend(cfg, inputs, appDir); err != nil {
		return err
	}

	if err := writeRuntimeEnv(filepath.Join(appDir, "runtime.env"), cfg); err != nil {
		return zerr.Wrap(err, "writing runtime contract")
	}
	if err := writeEntrypoint(filepath.Join(appDir, "start.sh"), cfg); err != nil {
		return zerr.Wrap(err, "writing entrypoint")
	}
	if err := os.WriteFile(filepath.Join(appDir, "VERSION"), []byte(cfg.BuildHash+"\n"), 0o644); err != nil {
		return zerr.Wrap(err, "writing version marker")
	}

	if err := r.normalizer.NormalizeTree(outDir, cfg.Identity); err != nil {
		return zerr.Wrap(err, "normalizing artifact ownership")
	}

	r.logger.Info("artifact assembled: " + appDir)
	return nil
}

// placeBackend installs either the relocatable environment plus source, or the
// packaged binary, depending on the packaging mode.
func (r *Runner) placeBackend(
	cfg *domain.BuildConfig,
	inputs map[domain.InternedString]domain.Artifact,
	appDir string,
) error {
	if cfg.Packaging == domain.PackagingBinary {
		binary, ok := inputs[domain.StageBinary]
		if !ok {
			return zerr.Wrap(domain.ErrArtifactMissing, "binary assembly needs the packaged executable")
		}
		return zerr.Wrap(
			fsops.CopyTree(binary.Root, filepath.Join(appDir, "bin"), copyIgnores),
			"placing packaged binary",
		)
	}

	backendEnv, ok := inputs[domain.StageBackendEnv]
	if !ok {
		return zerr.Wrap(domain.ErrArtifactMissing, "assembly needs the backend environment")
	}
	if err := fsops.CopyTree(cfg.BackendDir, filepath.Join(appDir, "backend"), copyIgnores); err != nil {
		return zerr.Wrap(err, "placing backend source")
	}
	return zerr.Wrap(
		fsops.CopyTree(backendEnv.Root, filepath.Join(appDir, "backend", "env"), copyIgnores),
		"placing backend environment",
	)
}
