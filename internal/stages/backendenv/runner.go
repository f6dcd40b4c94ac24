// Package backendenv resolves the backend package set into a relocatable
// dependency environment.
package backendenv

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Runner installs the backend's Python dependencies with --target into the
// stage workspace so the resulting tree works from any prefix.
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
		return zerr.Wrap(err, "preparing backend toolchain")
	}

	selection := domain.SelectBackendPackages(cfg)
	install := &domain.Command{
		Argv: installArgs(selection, outDir),
		Dir:  cfg.BackendDir,
		Env: map[string]string{
			// Relocatable trees must not grow absolute shebangs from the
			// build host.
			"PIP_NO_COMPILE": "1",
		},
	}
	if err := r.commands.Run(ctx, install, env); err != nil {
		return zerr.Wrap(err, "installing backend dependencies")
	}

	return verifyInstall(outDir)
}

// installArgs builds the installer invocation from a package selection.
func installArgs(sel domain.PackageSelection, target string) []string {
	argv := []string{"pip", "install", "--target", target}
	argv = append(argv, sel.InstallArgs...)
	if sel.IndexURL != "" {
		argv = append(argv, "--index-url", sel.IndexURL)
	}
	if sel.ExtraIndexURL != "" {
		argv = append(argv, "--extra-index-url", sel.ExtraIndexURL)
	}
	for _, req := range sel.Requirements {
		argv = append(argv, "-r", req)
	}
	return argv
}

// verifyInstall checks that the installer left distribution markers behind. A
// silently empty tree would only surface much later, at application startup.
func verifyInstall(outDir string) error {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return zerr.Wrap(err, "reading installed environment")
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasSuffix(entry.Name(), ".dist-info") {
			return nil
		}
	}
	return zerr.With(zerr.New("installer produced no distribution metadata"),
		"dir", filepath.Clean(outDir),
	)
}
