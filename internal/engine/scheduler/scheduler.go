// Package scheduler implements the stage graph engine.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// StageStatus represents the status of a stage.
type StageStatus string

const (
	// StatusPending indicates the stage is waiting to be executed.
	StatusPending StageStatus = "Pending"
	// StatusRunning indicates the stage is currently executing.
	StatusRunning StageStatus = "Running"
	// StatusCompleted indicates the stage has finished successfully.
	StatusCompleted StageStatus = "Completed"
	// StatusFailed indicates the stage execution failed.
	StatusFailed StageStatus = "Failed"
	// StatusCached indicates the stage was skipped because a valid artifact was reused.
	StatusCached StageStatus = "Cached"
)

// Scheduler executes stages in dependency order, maximizing parallelism among
// stages with no dependency edge between them. Synchronization is purely
// artifact-based: a stage blocks only on the artifacts it declares as input.
type Scheduler struct {
	executor  ports.StageExecutor
	store     ports.ArtifactStore
	telemetry ports.Telemetry
	logger    ports.Logger

	mu          sync.RWMutex
	stageStatus map[domain.InternedString]StageStatus
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	executor ports.StageExecutor,
	store ports.ArtifactStore,
	telemetry ports.Telemetry,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		executor:    executor,
		store:       store,
		telemetry:   telemetry,
		logger:      logger,
		stageStatus: make(map[domain.InternedString]StageStatus),
	}
}

// Status returns the last observed status of a stage.
func (s *Scheduler) Status(name domain.InternedString) StageStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stageStatus[name]
}

func (s *Scheduler) updateStatus(name domain.InternedString, status StageStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stageStatus[name] = status
}

// Run executes the graph with the specified parallelism and returns the
// artifacts of all completed stages keyed by stage name.
//
// The first stage failure aborts the pipeline: running stages are allowed to
// finish or be cancelled, but no new dependent is scheduled and no partial
// artifact is committed. The engine never retries a stage; bounded retries
// exist only at the resource-fetch level inside the model fetcher.
func (s *Scheduler) Run(
	ctx context.Context,
	graph *domain.Graph,
	cfg *domain.BuildConfig,
	parallelism int,
	force bool,
) (map[domain.InternedString]domain.Artifact, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	if parallelism < 1 {
		parallelism = 1
	}

	for stage := range graph.Walk() {
		s.updateStatus(stage.Name, StatusPending)
	}

	state := s.newRunState(ctx, graph, cfg, parallelism, force)

	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			return state.artifacts, errors.Join(state.errs, state.ctx.Err())
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}

	return state.artifacts, state.errs
}

type result struct {
	stage    domain.InternedString
	artifact domain.Artifact
	err      error
}

type runState struct {
	graph       *domain.Graph
	cfg         *domain.BuildConfig
	inDegree    map[domain.InternedString]int
	stages      map[domain.InternedString]domain.Stage
	ready       []domain.InternedString
	active      int
	resultsCh   chan result
	errs        error
	ctx         context.Context
	parallelism int
	force       bool

	artMu     sync.RWMutex
	artifacts map[domain.InternedString]domain.Artifact

	s *Scheduler
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	graph *domain.Graph,
	cfg *domain.BuildConfig,
	parallelism int,
	force bool,
) *runState {
	stageCount := graph.StageCount()
	inDegree := make(map[domain.InternedString]int, stageCount)
	stages := make(map[domain.InternedString]domain.Stage, stageCount)

	for stage := range graph.Walk() {
		stages[stage.Name] = stage
		inDegree[stage.Name] = len(stage.Needs)
	}

	var ready []domain.InternedString
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}

	return &runState{
		graph:       graph,
		cfg:         cfg,
		inDegree:    inDegree,
		stages:      stages,
		ready:       ready,
		resultsCh:   make(chan result, parallelism),
		ctx:         ctx,
		parallelism: parallelism,
		force:       force,
		artifacts:   make(map[domain.InternedString]domain.Artifact, stageCount),
		s:           s,
	}
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		name := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(name, StatusRunning)

		go func(stage domain.Stage) {
			art, err := state.executeStage(state.ctx, &stage)
			state.resultsCh <- result{stage: stage.Name, artifact: art, err: err}
		}(state.stages[name])
	}
}

// executeStage runs one stage end to end: fingerprint, cache lookup, isolated
// execution into a scratch workspace, and atomic commit. A cancelled or failed
// execution discards the workspace so no partial artifact survives.
func (state *runState) executeStage(ctx context.Context, stage *domain.Stage) (domain.Artifact, error) {
	inputs, inputList := state.collectInputs(stage)

	fingerprint := domain.StageFingerprint(stage, state.cfg, inputList)

	if !state.force {
		if art, ok := state.cachedArtifact(stage, fingerprint); ok {
			state.s.updateStatus(stage.Name, StatusCached)
			_, vtx := state.s.telemetry.Record(ctx, stage.Name.String())
			vtx.Cached()
			vtx.Complete(nil)
			return art, nil
		}
	}

	workdir, err := state.s.store.Workspace(stage.Name.String())
	if err != nil {
		return domain.Artifact{}, err
	}

	stageCtx := ctx
	cancel := context.CancelFunc(func() {})
	if stage.Timeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, stage.Timeout)
	}
	defer cancel()

	vtxCtx, vtx := state.s.telemetry.Record(stageCtx, stage.Name.String())

	execErr := state.s.executor.Execute(vtxCtx, stage, state.cfg, inputs, workdir)
	vtx.Complete(execErr)
	if execErr != nil {
		if discardErr := state.s.store.Discard(workdir); discardErr != nil {
			state.s.logger.Warn("failed to discard workspace: " + discardErr.Error())
		}
		return domain.Artifact{}, execErr
	}

	return state.s.store.Commit(stage.Name, fingerprint, workdir)
}

func (state *runState) collectInputs(stage *domain.Stage) (map[domain.InternedString]domain.Artifact, []domain.Artifact) {
	state.artMu.RLock()
	defer state.artMu.RUnlock()

	inputs := make(map[domain.InternedString]domain.Artifact, len(stage.Needs))
	list := make([]domain.Artifact, 0, len(stage.Needs))
	for _, dep := range stage.Needs {
		art, ok := state.artifacts[dep]
		if !ok {
			continue
		}
		inputs[dep] = art
		list = append(list, art)
	}
	return inputs, list
}

func (state *runState) cachedArtifact(stage *domain.Stage, fingerprint string) (domain.Artifact, bool) {
	rec, err := state.s.store.Record(stage.Name.String())
	if err != nil || rec == nil || rec.Fingerprint != fingerprint {
		return domain.Artifact{}, false
	}
	return state.s.store.Lookup(rec)
}

func (state *runState) handleResult(res result) {
	state.active--
	if res.err != nil {
		wrappedErr := zerr.With(zerr.Wrap(res.err, domain.ErrStageFailed.Error()), "stage", res.stage.String())
		state.errs = errors.Join(state.errs, wrappedErr)
		state.s.updateStatus(res.stage, StatusFailed)
		return
	}

	state.artMu.Lock()
	state.artifacts[res.stage] = res.artifact
	state.artMu.Unlock()

	if state.s.Status(res.stage) != StatusCached {
		state.s.updateStatus(res.stage, StatusCompleted)
	}
	for _, dep := range state.graph.Dependents(res.stage) {
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}
