// Package app implements the application layer for forge.
package app

import (
	"context"
	"fmt"
	"runtime"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App ties configuration resolution, planning and scheduling together.
type App struct {
	loader    ports.ConfigLoader
	scheduler *scheduler.Scheduler
	telemetry ports.Telemetry
	logger    ports.Logger
}

func New(
	loader ports.ConfigLoader,
	sched *scheduler.Scheduler,
	telemetry ports.Telemetry,
	logger ports.Logger,
) *App {
	return &App{
		loader:    loader,
		scheduler: sched,
		telemetry: telemetry,
		logger:    logger,
	}
}

// BuildOptions carries the per-invocation knobs from the CLI.
type BuildOptions struct {
	ConfigPath string
	Profile    string
	Overrides  map[string]string
	Jobs       int
	Force      bool
}

// Build runs the full pipeline for one profile and returns the assembled
// artifact.
func (a *App) Build(ctx context.Context, opts BuildOptions) (domain.Artifact, error) {
	defer a.telemetry.Close()

	cfg, err := a.loader.Load(opts.ConfigPath, opts.Profile, opts.Overrides)
	if err != nil {
		return domain.Artifact{}, zerr.Wrap(err, "resolving build configuration")
	}

	graph, err := PlanGraph(cfg)
	if err != nil {
		return domain.Artifact{}, zerr.Wrap(err, "planning build")
	}

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = runtime.NumCPU()
	}

	a.logger.Info(fmt.Sprintf("building profile %q (%s packaging, %d stages, %d jobs)",
		cfg.Profile, cfg.Packaging, graph.StageCount(), jobs))

	artifacts, err := a.scheduler.Run(ctx, graph, cfg, jobs, opts.Force)
	if err != nil {
		return domain.Artifact{}, err
	}

	final, ok := artifacts[domain.StageAssemble]
	if !ok {
		return domain.Artifact{}, zerr.Wrap(domain.ErrArtifactMissing, "assembly produced no artifact")
	}

	a.logger.Info("artifact ready: " + final.Root)
	return final, nil
}
