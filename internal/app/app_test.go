package app_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/telemetry"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type appTestMocks struct {
	loader   *mocks.MockConfigLoader
	executor *mocks.MockStageExecutor
	store    *mocks.MockArtifactStore
}

func setupAppTest(t *testing.T) (*app.App, appTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := appTestMocks{
		loader:   mocks.NewMockConfigLoader(ctrl),
		executor: mocks.NewMockStageExecutor(ctrl),
		store:    mocks.NewMockArtifactStore(ctrl),
	}

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	sched := scheduler.NewScheduler(m.executor, m.store, telemetry.NewNoop(), logger)
	return app.New(m.loader, sched, telemetry.NewNoop(), logger), m
}

func buildTestConfig() *domain.BuildConfig {
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

func TestBuildRunsPipelineAndReturnsAssembly(t *testing.T) {
	a, m := setupAppTest(t)
	cfg := buildTestConfig()

	m.loader.EXPECT().Load("forge.yaml", "test", gomock.Nil()).Return(cfg, nil)

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
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).Times(4)

	artifact, err := a.Build(context.Background(), app.BuildOptions{
		ConfigPath: "forge.yaml",
		Profile:    "test",
		Jobs:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageAssemble, artifact.Stage)
	assert.NotEmpty(t, artifact.Root)
}

func TestBuildSurfacesConfigurationErrors(t *testing.T) {
	a, m := setupAppTest(t)

	m.loader.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrConfiguration)

	_, err := a.Build(context.Background(), app.BuildOptions{ConfigPath: "forge.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolving build configuration")
}

func TestBuildPropagatesOverridesToLoader(t *testing.T) {
	a, m := setupAppTest(t)
	cfg := buildTestConfig()

	overrides := map[string]string{"packaging": "environment"}
	m.loader.EXPECT().Load("custom.yaml", "", overrides).Return(cfg, nil)

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
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).Times(4)

	_, err := a.Build(context.Background(), app.BuildOptions{
		ConfigPath: "custom.yaml",
		Overrides:  overrides,
		Jobs:       1,
	})
	require.NoError(t, err)
}
