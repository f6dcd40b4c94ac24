package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/core/domain"
)

func planConfig() *domain.BuildConfig {
	return &domain.BuildConfig{
		Packaging:    domain.PackagingEnvironment,
		StageTimeout: 30 * time.Minute,
	}
}

func stageNames(graph *domain.Graph) []domain.InternedString {
	var names []domain.InternedString
	for stage := range graph.Walk() {
		names = append(names, stage.Name)
	}
	return names
}

func TestPlanGraphEnvironmentPackaging(t *testing.T) {
	graph, err := app.PlanGraph(planConfig())
	require.NoError(t, err)

	names := stageNames(graph)
	require.Len(t, names, 4)
	assert.Equal(t, domain.StageAssemble, names[len(names)-1])
	assert.NotContains(t, names, domain.StageBinary)

	assemble, err := graph.Stage(domain.StageAssemble)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]domain.InternedString{domain.StageFrontend, domain.StageModels, domain.StageBackendEnv},
		assemble.Needs,
	)
	assert.Equal(t, 30*time.Minute, assemble.Timeout)
}

func TestPlanGraphBinaryPackaging(t *testing.T) {
	cfg := planConfig()
	cfg.Packaging = domain.PackagingBinary

	graph, err := app.PlanGraph(cfg)
	require.NoError(t, err)

	names := stageNames(graph)
	require.Len(t, names, 5)
	assert.Contains(t, names, domain.StageBinary)
	assert.Equal(t, domain.StageAssemble, names[len(names)-1])

	binary, err := graph.Stage(domain.StageBinary)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]domain.InternedString{domain.StageBackendEnv, domain.StageModels},
		binary.Needs,
	)

	assemble, err := graph.Stage(domain.StageAssemble)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]domain.InternedString{domain.StageFrontend, domain.StageModels, domain.StageBinary},
		assemble.Needs,
	)
	assert.NotContains(t, assemble.Needs, domain.StageBackendEnv)
}

func TestPlanGraphScopesConfigKeys(t *testing.T) {
	graph, err := app.PlanGraph(planConfig())
	require.NoError(t, err)

	backendEnv, err := graph.Stage(domain.StageBackendEnv)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{domain.ParamAccelerator, domain.ParamBackendDir, domain.ParamRequirements},
		backendEnv.ConfigKeys,
	)

	models, err := graph.Stage(domain.StageModels)
	require.NoError(t, err)
	assert.Contains(t, models.ConfigKeys, domain.ParamEmbeddingModel)
	assert.Contains(t, models.ConfigKeys, domain.ParamRerankingModel)
	assert.NotContains(t, models.ConfigKeys, domain.ParamPort)
}

func TestPlanGraphBinaryStageKeyedToPackagingInputs(t *testing.T) {
	cfg := planConfig()
	cfg.Packaging = domain.PackagingBinary
	cfg.BackendDir = "backend"
	cfg.RequirementsFile = "requirements.txt"

	graph, err := app.PlanGraph(cfg)
	require.NoError(t, err)
	binary, err := graph.Stage(domain.StageBinary)
	require.NoError(t, err)

	base := domain.StageFingerprint(&binary, cfg, nil)

	withImports := *cfg
	withImports.HiddenImports = []string{"custom_plugin"}
	assert.NotEqual(t, base, domain.StageFingerprint(&binary,&withImports, nil),
		"hidden imports must invalidate the packager stage")

	withRequirements := *cfg
	withRequirements.RequirementsFile = "requirements-dev.txt"
	assert.NotEqual(t, base, domain.StageFingerprint(&binary,&withRequirements, nil),
		"requirements file must invalidate the packager stage")
}
