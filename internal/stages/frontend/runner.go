// Package frontend builds the web client into a static asset tree.
package frontend

import (
	"context"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/adapters/fsops"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// outputDir is where the client build lands relative to the frontend source
// directory.
const outputDir = "build"

// buildIgnores keeps VCS metadata and dependency trees out of the artifact.
var buildIgnores = []string{".git", "node_modules"}

// Runner compiles the web client inside a hermetic node toolchain. Its only
// input is configuration; the artifact is the static asset tree.
type Runner struct {
	commands ports.CommandExecutor
	envs     ports.EnvironmentFactory
}

func NewRunner(commands ports.CommandExecutor, envs ports.EnvironmentFactory) *Runner {
	return &Runner{commands: commands, envs: envs}
}

func (r *Runner) Run(
	ctx context.Context,
	stage *domain.Stage,
	cfg *domain.BuildConfig,
	_ map[domain.InternedString]domain.Artifact,
	outDir string,
) error {
	env, err := r.envs.GetEnvironment(ctx, stage.Tools)
	if err != nil {
		return zerr.Wrap(err, "preparing frontend toolchain")
	}

	stageEnv := map[string]string{
		"APP_BUILD_HASH": cfg.BuildHash,
		// The client bundler needs more heap than the node default on large
		// dependency graphs.
		"NODE_OPTIONS": "--max-old-space-size=4096",
	}

	install := &domain.Command{
		Argv: []string{"npm", "ci"},
		Dir:  cfg.FrontendDir,
		Env:  stageEnv,
	}
	if err := r.commands.Run(ctx, install, env); err != nil {
		return zerr.Wrap(err, "installing frontend dependencies")
	}

	build := &domain.Command{
		Argv: []string{"npm", "run", "build"},
		Dir:  cfg.FrontendDir,
		Env:  stageEnv,
	}
	if err := r.commands.Run(ctx, build, env); err != nil {
		return zerr.Wrap(err, "building frontend assets")
	}

	assets := filepath.Join(cfg.FrontendDir, outputDir)
	if _, err := os.Stat(assets); err != nil {
		return zerr.With(zerr.Wrap(err, "frontend build produced no output"),
			"expected", assets,
		)
	}
	return fsops.CopyTree(assets, outDir, buildIgnores)
}
