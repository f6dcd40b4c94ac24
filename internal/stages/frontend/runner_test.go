package frontend_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/stages/frontend"
	"go.uber.org/mock/gomock"
)

func testStage() *domain.Stage {
	return &domain.Stage{
		Name:  domain.StageFrontend,
		Kind:  domain.KindFrontend,
		Tools: map[string]string{"node": "nodejs@22"},
	}
}

func TestRunnerBuildsAndCollectsAssets(t *testing.T) {
	ctrl := gomock.NewController(t)
	commands := mocks.NewMockCommandExecutor(ctrl)
	envs := mocks.NewMockEnvironmentFactory(ctrl)

	srcDir := t.TempDir()
	outDir := t.TempDir()
	cfg := &domain.BuildConfig{FrontendDir: srcDir, BuildHash: "abc123"}

	hermetic := []string{"PATH=/nix/store/node/bin"}
	envs.EXPECT().GetEnvironment(gomock.Any(), testStage().Tools).Return(hermetic, nil)

	gomock.InOrder(
		commands.EXPECT().Run(gomock.Any(), gomock.Any(), hermetic).DoAndReturn(
			func(_ context.Context, cmd *domain.Command, _ []string) error {
				assert.Equal(t, []string{"npm", "ci"}, cmd.Argv)
				assert.Equal(t, srcDir, cmd.Dir)
				assert.Equal(t, "abc123", cmd.Env["APP_BUILD_HASH"])
				return nil
			},
		),
		commands.EXPECT().Run(gomock.Any(), gomock.Any(), hermetic).DoAndReturn(
			func(_ context.Context, cmd *domain.Command, _ []string) error {
				assert.Equal(t, []string{"npm", "run", "build"}, cmd.Argv)
				// Simulate the client build producing its asset tree.
				buildDir := filepath.Join(srcDir, "build")
				require.NoError(t, os.MkdirAll(buildDir, 0o755))
				return os.WriteFile(filepath.Join(buildDir, "index.html"), []byte("<html/>"), 0o644)
			},
		),
	)

	runner := frontend.NewRunner(commands, envs)
	require.NoError(t, runner.Run(context.Background(), testStage(), cfg, nil, outDir))

	assert.FileExists(t, filepath.Join(outDir, "index.html"))
}

func TestRunnerFailsWhenBuildProducesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	commands := mocks.NewMockCommandExecutor(ctrl)
	envs := mocks.NewMockEnvironmentFactory(ctrl)

	cfg := &domain.BuildConfig{FrontendDir: t.TempDir(), BuildHash: "abc123"}

	envs.EXPECT().GetEnvironment(gomock.Any(), gomock.Any()).Return(nil, nil)
	commands.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	runner := frontend.NewRunner(commands, envs)
	err := runner.Run(context.Background(), testStage(), cfg, nil, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output")
}

func TestRunnerStopsOnInstallFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	commands := mocks.NewMockCommandExecutor(ctrl)
	envs := mocks.NewMockEnvironmentFactory(ctrl)

	cfg := &domain.BuildConfig{FrontendDir: t.TempDir(), BuildHash: "abc123"}

	envs.EXPECT().GetEnvironment(gomock.Any(), gomock.Any()).Return(nil, nil)
	commands.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(assert.AnError).Times(1)

	runner := frontend.NewRunner(commands, envs)
	err := runner.Run(context.Background(), testStage(), cfg, nil, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "installing frontend dependencies")
}
