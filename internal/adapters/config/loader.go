// Package config implements the configuration resolver for forge.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// envPrefix marks environment-file keys that map to build parameters,
// e.g. FORGE_EMBEDDING_MODEL -> embedding_model.
const envPrefix = "FORGE_"

// Built-in defaults, applied below the file's defaults block.
var builtinDefaults = domain.BuildConfig{
	Packaging:         domain.PackagingEnvironment,
	Flavor:            domain.FlavorSlim,
	EmbeddingModel:    "sentence-transformers/all-MiniLM-L6-v2",
	TokenizerEncoding: "cl100k_base",
	Identity:          domain.RuntimeIdentity{UID: 1000, GID: 1000},
	BuildHash:         "dev",
	Port:              8080,
	FrontendDir:       ".",
	BackendDir:        "backend",
	RequirementsFile:  "requirements.txt",
	StageTimeout:      30 * time.Minute,
}

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML variant matrix plus
// optional .env and caller-supplied overrides.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load resolves the named profile from the file at path into a fully
// populated BuildConfig. Precedence, low to high: built-in defaults, the
// file's defaults block, the selected profile, a .env file next to the
// configuration, caller overrides.
func (l *Loader) Load(path, profile string, overrides map[string]string) (*domain.BuildConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfiguration.Error()), "path", path)
	}

	var file Forgefile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, domain.ErrConfiguration.Error())
	}

	merged := file.Defaults
	if profile != "" {
		p, ok := file.Profiles[profile]
		if !ok {
			return nil, zerr.With(domain.ErrConfiguration, "unknown_profile", profile)
		}
		merged.overlay(&p)
	}

	cfg := builtinDefaults
	cfg.Profile = profile
	if err := applyDTO(&cfg, &merged); err != nil {
		return nil, err
	}

	if err := applyEnvFile(&cfg, filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	for key, value := range overrides {
		if err := applyParam(&cfg, key, value); err != nil {
			return nil, err
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDTO(cfg *domain.BuildConfig, dto *ProfileDTO) error {
	if dto.Accelerator != nil {
		cfg.Accelerator = *dto.Accelerator
	}
	if dto.ExternalRuntime != nil {
		cfg.ExternalRuntime = *dto.ExternalRuntime
	}
	if dto.Packaging != nil {
		cfg.Packaging = domain.PackagingMode(*dto.Packaging)
	}
	if dto.Flavor != nil {
		cfg.Flavor = domain.RuntimeFlavor(*dto.Flavor)
	}
	if dto.EmbeddingModel != nil {
		cfg.EmbeddingModel = *dto.EmbeddingModel
	}
	if dto.RerankingModel != nil {
		cfg.RerankingModel = *dto.RerankingModel
	}
	if dto.WhisperModel != nil {
		cfg.WhisperModel = *dto.WhisperModel
	}
	if dto.TokenizerEncoding != nil {
		cfg.TokenizerEncoding = *dto.TokenizerEncoding
	}
	if dto.UID != nil {
		cfg.Identity.UID = *dto.UID
	}
	if dto.GID != nil {
		cfg.Identity.GID = *dto.GID
	}
	if dto.BuildHash != nil {
		cfg.BuildHash = *dto.BuildHash
	}
	if dto.Port != nil {
		cfg.Port = *dto.Port
	}
	if dto.FrontendDir != nil {
		cfg.FrontendDir = *dto.FrontendDir
	}
	if dto.BackendDir != nil {
		cfg.BackendDir = *dto.BackendDir
	}
	if dto.Requirements != nil {
		cfg.RequirementsFile = *dto.Requirements
	}
	if len(dto.HiddenImports) > 0 {
		cfg.HiddenImports = dto.HiddenImports
	}
	if dto.StageTimeout != nil {
		d, err := time.ParseDuration(*dto.StageTimeout)
		if err != nil {
			return zerr.With(domain.ErrConfiguration, "stage_timeout", *dto.StageTimeout)
		}
		cfg.StageTimeout = d
	}
	return nil
}

// applyEnvFile layers FORGE_* keys from a dotenv file, if present.
func applyEnvFile(cfg *domain.BuildConfig, path string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, domain.ErrConfiguration.Error()), "path", path)
	}

	for key, value := range env {
		if !strings.HasPrefix(key, envPrefix) {
			continue
		}
		param := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if err := applyParam(cfg, param, value); err != nil {
			return err
		}
	}
	return nil
}

// applyParam sets one canonical parameter from its textual form.
func applyParam(cfg *domain.BuildConfig, key, value string) error {
	switch key {
	case domain.ParamAccelerator:
		return setBool(&cfg.Accelerator, key, value)
	case domain.ParamExternalRuntime:
		return setBool(&cfg.ExternalRuntime, key, value)
	case domain.ParamPackaging:
		cfg.Packaging = domain.PackagingMode(value)
	case domain.ParamFlavor:
		cfg.Flavor = domain.RuntimeFlavor(value)
	case domain.ParamEmbeddingModel:
		cfg.EmbeddingModel = value
	case domain.ParamRerankingModel:
		cfg.RerankingModel = value
	case domain.ParamWhisperModel:
		cfg.WhisperModel = value
	case domain.ParamTokenizerEncoding:
		cfg.TokenizerEncoding = value
	case domain.ParamUID:
		return setInt(&cfg.Identity.UID, key, value)
	case domain.ParamGID:
		return setInt(&cfg.Identity.GID, key, value)
	case domain.ParamBuildHash:
		cfg.BuildHash = value
	case domain.ParamPort:
		return setInt(&cfg.Port, key, value)
	case domain.ParamFrontendDir:
		cfg.FrontendDir = value
	case domain.ParamBackendDir:
		cfg.BackendDir = value
	case domain.ParamRequirements:
		cfg.RequirementsFile = value
	case domain.ParamHiddenImports:
		cfg.HiddenImports = nil
		for _, imp := range strings.Split(value, ",") {
			if imp = strings.TrimSpace(imp); imp != "" {
				cfg.HiddenImports = append(cfg.HiddenImports, imp)
			}
		}
	default:
		return zerr.With(domain.ErrConfiguration, "unknown_parameter", key)
	}
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		errInvalid := zerr.With(domain.ErrConfiguration, "parameter", key)
		return zerr.With(errInvalid, "value", value)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		errInvalid := zerr.With(domain.ErrConfiguration, "parameter", key)
		return zerr.With(errInvalid, "value", value)
	}
	*dst = n
	return nil
}

// validate checks the fully merged configuration. Every parameter must hold a
// concrete, well-formed value before any stage runs.
func validate(cfg *domain.BuildConfig) error {
	switch cfg.Packaging {
	case domain.PackagingEnvironment, domain.PackagingBinary:
	default:
		return zerr.With(domain.ErrConfiguration, "packaging", string(cfg.Packaging))
	}

	switch cfg.Flavor {
	case domain.FlavorSlim, domain.FlavorCUDA, domain.FlavorOllama:
	default:
		return zerr.With(domain.ErrConfiguration, "flavor", string(cfg.Flavor))
	}

	if cfg.EmbeddingModel == "" {
		return zerr.With(domain.ErrConfiguration, "missing_parameter", domain.ParamEmbeddingModel)
	}
	if cfg.TokenizerEncoding == "" {
		return zerr.With(domain.ErrConfiguration, "missing_parameter", domain.ParamTokenizerEncoding)
	}
	if cfg.BuildHash == "" {
		return zerr.With(domain.ErrConfiguration, "missing_parameter", domain.ParamBuildHash)
	}
	if cfg.RequirementsFile == "" {
		return zerr.With(domain.ErrConfiguration, "missing_parameter", domain.ParamRequirements)
	}

	// The runtime identity must be non-privileged: uid 0 would leave the final
	// artifact owned by the build identity.
	if cfg.Identity.UID <= 0 {
		return zerr.With(domain.ErrConfiguration, domain.ParamUID, strconv.Itoa(cfg.Identity.UID))
	}
	if cfg.Identity.GID <= 0 {
		return zerr.With(domain.ErrConfiguration, domain.ParamGID, strconv.Itoa(cfg.Identity.GID))
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return zerr.With(domain.ErrConfiguration, domain.ParamPort, strconv.Itoa(cfg.Port))
	}

	return nil
}
