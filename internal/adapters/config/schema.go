package config

// Forgefile represents the structure of the forge.yaml configuration file:
// a defaults block plus named deployment profiles layered on top of it.
type Forgefile struct {
	Version  string                `yaml:"version"`
	Defaults ProfileDTO            `yaml:"defaults"`
	Profiles map[string]ProfileDTO `yaml:"profiles"`
}

// ProfileDTO is one (possibly partial) set of build parameters. Pointer fields
// distinguish "unset" from an explicit zero so profiles can override defaults
// selectively.
type ProfileDTO struct {
	Accelerator       *bool    `yaml:"accelerator"`
	ExternalRuntime   *bool    `yaml:"externalRuntime"`
	Packaging         *string  `yaml:"packaging"`
	Flavor            *string  `yaml:"flavor"`
	EmbeddingModel    *string  `yaml:"embeddingModel"`
	RerankingModel    *string  `yaml:"rerankingModel"`
	WhisperModel      *string  `yaml:"whisperModel"`
	TokenizerEncoding *string  `yaml:"tokenizerEncoding"`
	UID               *int     `yaml:"uid"`
	GID               *int     `yaml:"gid"`
	BuildHash         *string  `yaml:"buildHash"`
	Port              *int     `yaml:"port"`
	FrontendDir       *string  `yaml:"frontendDir"`
	BackendDir        *string  `yaml:"backendDir"`
	Requirements      *string  `yaml:"requirements"`
	HiddenImports     []string `yaml:"hiddenImports"`
	StageTimeout      *string  `yaml:"stageTimeout"`
}

// overlay applies the set fields of other on top of p.
func (p *ProfileDTO) overlay(other *ProfileDTO) {
	if other.Accelerator != nil {
		p.Accelerator = other.Accelerator
	}
	if other.ExternalRuntime != nil {
		p.ExternalRuntime = other.ExternalRuntime
	}
	if other.Packaging != nil {
		p.Packaging = other.Packaging
	}
	if other.Flavor != nil {
		p.Flavor = other.Flavor
	}
	if other.EmbeddingModel != nil {
		p.EmbeddingModel = other.EmbeddingModel
	}
	if other.RerankingModel != nil {
		p.RerankingModel = other.RerankingModel
	}
	if other.WhisperModel != nil {
		p.WhisperModel = other.WhisperModel
	}
	if other.TokenizerEncoding != nil {
		p.TokenizerEncoding = other.TokenizerEncoding
	}
	if other.UID != nil {
		p.UID = other.UID
	}
	if other.GID != nil {
		p.GID = other.GID
	}
	if other.BuildHash != nil {
		p.BuildHash = other.BuildHash
	}
	if other.Port != nil {
		p.Port = other.Port
	}
	if other.FrontendDir != nil {
		p.FrontendDir = other.FrontendDir
	}
	if other.BackendDir != nil {
		p.BackendDir = other.BackendDir
	}
	if other.Requirements != nil {
		p.Requirements = other.Requirements
	}
	if len(other.HiddenImports) > 0 {
		p.HiddenImports = other.HiddenImports
	}
	if other.StageTimeout != nil {
		p.StageTimeout = other.StageTimeout
	}
}
