package scheduler_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/telemetry"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type schedulerTestMocks struct {
	executor *mocks.MockStageExecutor
	store    *mocks.MockArtifactStore
	logger   *mocks.MockLogger
}

// setupSchedulerTest creates a scheduler with mocked ports and noop telemetry.
func setupSchedulerTest(t *testing.T) (*scheduler.Scheduler, schedulerTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := schedulerTestMocks{
		executor: mocks.NewMockStageExecutor(ctrl),
		store:    mocks.NewMockArtifactStore(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
	}

	m.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	m.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	s := scheduler.NewScheduler(m.executor, m.store, telemetry.NewNoop(), m.logger)
	return s, m
}

// buildGraph constructs a validated graph from name -> needs edges.
func buildGraph(t *testing.T, deps map[string][]string) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()

	for name, needs := range deps {
		interned := make([]domain.InternedString, len(needs))
		for i, n := range needs {
			interned[i] = domain.NewInternedString(n)
		}
		err := g.AddStage(&domain.Stage{
			Name:  domain.NewInternedString(name),
			Kind:  domain.KindFrontend,
			Needs: interned,
		})
		require.NoError(t, err)
	}

	require.NoError(t, g.Validate())
	return g
}

func testConfig() *domain.BuildConfig {
	return &domain.BuildConfig{
		Profile:           "test",
		Packaging:         domain.PackagingEnvironment,
		Flavor:            domain.FlavorSlim,
		EmbeddingModel:    "sentence-transformers/all-MiniLM-L6-v2",
		TokenizerEncoding: "cl100k_base",
		BuildHash:         "deadbeef",
		Identity:          domain.RuntimeIdentity{UID: 1000, GID: 1000},
		Port:              8080,
	}
}

// expectWorkspaces wires the store to allocate real temp workspaces and commit
// them as artifacts.
func expectWorkspaces(t *testing.T, m schedulerTestMocks) {
	t.Helper()
	base := t.TempDir()

	m.store.EXPECT().Record(gomock.Any()).Return(nil, nil).AnyTimes()
	m.store.EXPECT().Workspace(gomock.Any()).DoAndReturn(func(name string) (string, error) {
		return os.MkdirTemp(base, name+"-*")
	}).AnyTimes()
	m.store.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(stage domain.InternedString, fingerprint, workdir string) (domain.Artifact, error) {
			return domain.Artifact{Stage: stage, Fingerprint: fingerprint, Root: workdir}, nil
		},
	).AnyTimes()
}

func TestRunRespectsDependencyOrder(t *testing.T) {
	s, m := setupSchedulerTest(t)
	graph := buildGraph(t, map[string][]string{
		"frontend":    nil,
		"backend-env": nil,
		"models":      nil,
		"assemble":    {"frontend", "backend-env", "models"},
	})
	expectWorkspaces(t, m)

	var mu sync.Mutex
	var order []string
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, stage *domain.Stage, _ *domain.BuildConfig, _ map[domain.InternedString]domain.Artifact, _ string) error {
			mu.Lock()
			order = append(order, stage.Name.String())
			mu.Unlock()
			return nil
		}).Times(4)

	artifacts, err := s.Run(context.Background(), graph, testConfig(), 4, false)
	require.NoError(t, err)
	assert.Len(t, artifacts, 4)

	require.Len(t, order, 4)
	assert.Equal(t, "assemble", order[3], "assembler must run strictly after all producers")
	assert.Equal(t, scheduler.StatusCompleted, s.Status(domain.NewInternedString("assemble")))
}

func TestRunParallelizesIndependentStages(t *testing.T) {
	s, m := setupSchedulerTest(t)
	graph := buildGraph(t, map[string][]string{
		"frontend": nil,
		"models":   nil,
	})
	expectWorkspaces(t, m)

	// Both stages must be in flight at once for proceed to ever close.
	var entered atomic.Int32
	proceed := make(chan struct{})
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *domain.Stage, *domain.BuildConfig, map[domain.InternedString]domain.Artifact, string) error {
			if entered.Add(1) == 2 {
				close(proceed)
			}
			select {
			case <-proceed:
				return nil
			case <-time.After(5 * time.Second):
				return errors.New("stages did not overlap")
			}
		}).Times(2)

	_, err := s.Run(context.Background(), graph, testConfig(), 2, false)
	require.NoError(t, err)
}

func TestRunFailureSkipsDependents(t *testing.T) {
	s, m := setupSchedulerTest(t)
	graph := buildGraph(t, map[string][]string{
		"models":   nil,
		"assemble": {"models"},
	})
	expectWorkspaces(t, m)
	m.store.EXPECT().Discard(gomock.Any()).Return(nil)

	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("registry unreachable")).Times(1)

	artifacts, err := s.Run(context.Background(), graph, testConfig(), 2, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrStageFailed.Error())
	assert.Contains(t, err.Error(), "registry unreachable")
	assert.Empty(t, artifacts)

	assert.Equal(t, scheduler.StatusFailed, s.Status(domain.NewInternedString("models")))
	assert.Equal(t, scheduler.StatusPending, s.Status(domain.NewInternedString("assemble")))
}

func TestRunReusesCachedArtifact(t *testing.T) {
	s, m := setupSchedulerTest(t)

	stage := &domain.Stage{
		Name:       domain.NewInternedString("frontend"),
		Kind:       domain.KindFrontend,
		ConfigKeys: []string{domain.ParamBuildHash},
	}
	graph := domain.NewGraph()
	require.NoError(t, graph.AddStage(stage))

	cfg := testConfig()
	fingerprint := domain.StageFingerprint(stage, cfg, nil)
	cached := domain.Artifact{Stage: stage.Name, Fingerprint: fingerprint, Root: t.TempDir()}

	m.store.EXPECT().Record("frontend").Return(&domain.StageRecord{
		StageName:   "frontend",
		Fingerprint: fingerprint,
	}, nil)
	m.store.EXPECT().Lookup(gomock.Any()).Return(cached, true)
	// No workspace, no execution, no commit on a verified cache hit.

	artifacts, err := s.Run(context.Background(), graph, cfg, 1, false)
	require.NoError(t, err)
	assert.Equal(t, cached, artifacts[stage.Name])
	assert.Equal(t, scheduler.StatusCached, s.Status(stage.Name))
}

func TestRunForceBypassesCache(t *testing.T) {
	s, m := setupSchedulerTest(t)
	graph := buildGraph(t, map[string][]string{"frontend": nil})
	expectWorkspaces(t, m)

	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).Times(1)

	_, err := s.Run(context.Background(), graph, testConfig(), 1, true)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusCompleted, s.Status(domain.NewInternedString("frontend")))
}

func TestRunHonorsCancelledContext(t *testing.T) {
	s, _ := setupSchedulerTest(t)
	graph := buildGraph(t, map[string][]string{"frontend": nil})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, graph, testConfig(), 1, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunPassesInputArtifactsToDependents(t *testing.T) {
	s, m := setupSchedulerTest(t)
	graph := buildGraph(t, map[string][]string{
		"models":   nil,
		"assemble": {"models"},
	})
	expectWorkspaces(t, m)

	var gotInputs map[domain.InternedString]domain.Artifact
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, stage *domain.Stage, _ *domain.BuildConfig, inputs map[domain.InternedString]domain.Artifact, _ string) error {
			if stage.Name.String() == "assemble" {
				gotInputs = inputs
			}
			return nil
		}).Times(2)

	_, err := s.Run(context.Background(), graph, testConfig(), 1, false)
	require.NoError(t, err)

	models := domain.NewInternedString("models")
	require.Contains(t, gotInputs, models)
	assert.NotEmpty(t, gotInputs[models].Root)
}
