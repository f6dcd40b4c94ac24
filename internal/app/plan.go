package app

import (
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// Default hermetic toolchains per stage. Profiles do not override these; the
// point of the pipeline is that every build of a given forge version uses the
// same toolchain.
var (
	frontendTools = map[string]string{"node": "nodejs@22"}
	backendTools  = map[string]string{"python": "python3@3.11"}
)

// PlanGraph derives the stage graph for one resolved configuration. The shape
// depends only on the packaging mode: binary profiles insert the packager
// between the backend environment and assembly.
func PlanGraph(cfg *domain.BuildConfig) (*domain.Graph, error) {
	graph := domain.NewGraph()

	stages := []*domain.Stage{
		{
			Name:       domain.StageFrontend,
			Kind:       domain.KindFrontend,
			Tools:      frontendTools,
			ConfigKeys: []string{domain.ParamBuildHash, domain.ParamFrontendDir},
			Timeout:    cfg.StageTimeout,
		},
		{
			Name:  domain.StageBackendEnv,
			Kind:  domain.KindBackendEnv,
			Tools: backendTools,
			ConfigKeys: []string{
				domain.ParamAccelerator,
				domain.ParamBackendDir,
				domain.ParamRequirements,
			},
			Timeout: cfg.StageTimeout,
		},
		{
			Name: domain.StageModels,
			Kind: domain.KindModels,
			ConfigKeys: []string{
				domain.ParamEmbeddingModel,
				domain.ParamRerankingModel,
				domain.ParamWhisperModel,
				domain.ParamTokenizerEncoding,
			},
			Timeout: cfg.StageTimeout,
		},
	}

	assembleNeeds := []domain.InternedString{domain.StageFrontend, domain.StageModels}
	if cfg.Packaging == domain.PackagingBinary {
		stages = append(stages, &domain.Stage{
			Name:  domain.StageBinary,
			Kind:  domain.KindBinary,
			Needs: []domain.InternedString{domain.StageBackendEnv, domain.StageModels},
			Tools: backendTools,
			ConfigKeys: []string{
				domain.ParamAccelerator,
				domain.ParamPackaging,
				domain.ParamBackendDir,
				domain.ParamRequirements,
				domain.ParamHiddenImports,
			},
			Timeout: cfg.StageTimeout,
		})
		assembleNeeds = append(assembleNeeds, domain.StageBinary)
	} else {
		assembleNeeds = append(assembleNeeds, domain.StageBackendEnv)
	}

	stages = append(stages, &domain.Stage{
		Name:  domain.StageAssemble,
		Kind:  domain.KindAssemble,
		Needs: assembleNeeds,
		ConfigKeys: []string{
			domain.ParamPackaging,
			domain.ParamFlavor,
			domain.ParamExternalRuntime,
			domain.ParamEmbeddingModel,
			domain.ParamRerankingModel,
			domain.ParamWhisperModel,
			domain.ParamTokenizerEncoding,
			domain.ParamUID,
			domain.ParamGID,
			domain.ParamBuildHash,
			domain.ParamPort,
			domain.ParamBackendDir,
		},
		Timeout: cfg.StageTimeout,
	})

	for _, stage := range stages {
		if err := graph.AddStage(stage); err != nil {
			return nil, zerr.Wrap(err, "planning stage graph")
		}
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}
