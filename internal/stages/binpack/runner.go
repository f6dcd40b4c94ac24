// Package binpack compiles the backend environment, source and models into a
// single self-contained executable.
package binpack

import (
	"context"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// BinaryName is the executable the bundler produces.
const BinaryName = "webapp"

// healthCheckArg makes the produced binary start, probe itself and exit.
const healthCheckArg = "--health-check"

// builtinHiddenImports covers modules the ML and tokenizer libraries load
// dynamically, which static analysis cannot see. Profile-level HiddenImports
// come on top.
var builtinHiddenImports = []string{
	"sentence_transformers",
	"transformers",
	"tiktoken",
	"tiktoken_ext",
	"tiktoken_ext.openai_public",
	"uvicorn.logging",
	"uvicorn.loops.auto",
	"uvicorn.protocols.http.auto",
}

// Runner invokes the bundling tool and smoke-tests the result. It consumes
// the backend environment and model artifacts.
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
	inputs map[domain.InternedString]domain.Artifact,
	outDir string,
) error {
	backendEnv, ok := inputs[domain.StageBackendEnv]
	if !ok {
		return zerr.Wrap(domain.ErrArtifactMissing, "binary stage needs the backend environment")
	}
	modelCache, ok := inputs[domain.StageModels]
	if !ok {
		return zerr.Wrap(domain.ErrArtifactMissing, "binary stage needs the model cache")
	}

	env, err := r.envs.GetEnvironment(ctx, stage.Tools)
	if err != nil {
		return zerr.Wrap(err, "preparing packaging toolchain")
	}

	// Bundler scratch space stays outside outDir so it never leaks into the
	// committed artifact.
	workDir, err := os.MkdirTemp("", "forge-binpack-*")
	if err != nil {
		return zerr.Wrap(err, "creating bundler scratch directory")
	}
	defer os.RemoveAll(workDir)

	bundle := &domain.Command{
		Argv: bundleArgs(cfg, backendEnv.Root, modelCache.Root, outDir, workDir),
		Dir:  cfg.BackendDir,
	}
	if err := r.commands.Run(ctx, bundle, env); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrPackaging.Error()),
			"binary", BinaryName,
		)
	}

	return r.smokeTest(ctx, filepath.Join(outDir, BinaryName), env)
}

// bundleArgs assembles the bundler invocation: one file, every dynamically
// loaded module declared explicitly, model cache and migration data embedded.
func bundleArgs(cfg *domain.BuildConfig, envRoot, modelRoot, outDir, workDir string) []string {
	argv := []string{
		"pyinstaller",
		"--noconfirm",
		"--onefile",
		"--name", BinaryName,
		"--distpath", outDir,
		"--workpath", workDir,
		"--specpath", workDir,
		"--paths", envRoot,
	}
	for _, mod := range builtinHiddenImports {
		argv = append(argv, "--hidden-import", mod)
	}
	for _, mod := range cfg.HiddenImports {
		argv = append(argv, "--hidden-import", mod)
	}
	argv = append(argv,
		"--add-data", modelRoot+string(os.PathListSeparator)+"data/cache/models",
		"--add-data", "migrations"+string(os.PathListSeparator)+"migrations",
		"main.py",
	)
	return argv
}

// smokeTest runs the produced binary once with the health-check argument. A
// bundle that misses a dynamic import fails here, at build time, instead of in
// production.
func (r *Runner) smokeTest(ctx context.Context, binary string, env []string) error {
	check := &domain.Command{
		Argv: []string{binary, healthCheckArg},
	}
	if err := r.commands.Run(ctx, check, env); err != nil {
		failed := zerr.Wrap(zerr.Wrap(err, "smoke test failed"), domain.ErrPackaging.Error())
		return zerr.With(failed, "binary", binary)
	}
	return nil
}
