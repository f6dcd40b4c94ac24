package domain

import (
	"strconv"
	"strings"
	"time"
)

// PackagingMode selects how the backend is delivered in the final artifact.
type PackagingMode string

const (
	// PackagingEnvironment ships the relocatable dependency environment plus application source.
	PackagingEnvironment PackagingMode = "environment"
	// PackagingBinary ships a single self-contained executable with embedded resources.
	PackagingBinary PackagingMode = "binary"
)

// RuntimeFlavor names the base runtime profile the artifact targets.
// The flavor only affects the generated runtime contract, never stage semantics.
type RuntimeFlavor string

const (
	// FlavorSlim is the minimal CPU-only runtime.
	FlavorSlim RuntimeFlavor = "slim"
	// FlavorCUDA is the accelerator-enabled runtime.
	FlavorCUDA RuntimeFlavor = "cuda"
	// FlavorOllama bundles connectivity to an external inference runtime.
	FlavorOllama RuntimeFlavor = "ollama"
)

// RuntimeIdentity is the non-privileged user/group pair that owns every file
// in the final artifact and runs the final process.
type RuntimeIdentity struct {
	UID int
	GID int
}

// BuildConfig is the fully resolved, immutable set of build-time parameters
// for one build invocation. It is constructed once by the configuration
// resolver; every downstream stage reads from it and none mutates it.
type BuildConfig struct {
	Profile string

	// Variant matrix.
	Accelerator     bool
	ExternalRuntime bool
	Packaging       PackagingMode
	Flavor          RuntimeFlavor

	// Model identifiers. An empty RerankingModel means reranking is disabled;
	// the runtime contract still carries the variable with an empty value so
	// the application can branch deterministically.
	EmbeddingModel    string
	RerankingModel    string
	WhisperModel      string
	TokenizerEncoding string

	Identity  RuntimeIdentity
	BuildHash string
	Port      int

	// Source layout.
	FrontendDir      string
	BackendDir       string
	RequirementsFile string

	// Extra dynamically-loaded modules the single-binary packager must include
	// beyond the built-in ML and tokenizer set.
	HiddenImports []string

	StageTimeout time.Duration
}

// RerankingEnabled reports whether a reranking model was configured.
func (c *BuildConfig) RerankingEnabled() bool {
	return c.RerankingModel != ""
}

// WhisperEnabled reports whether a speech transcription model was configured.
func (c *BuildConfig) WhisperEnabled() bool {
	return c.WhisperModel != ""
}

// Parameter keys used for cache-key scoping. Each stage declares the subset of
// configuration it reads; only those values feed its fingerprint.
const (
	ParamAccelerator       = "accelerator"
	ParamExternalRuntime   = "external_runtime"
	ParamPackaging         = "packaging"
	ParamFlavor            = "flavor"
	ParamEmbeddingModel    = "embedding_model"
	ParamRerankingModel    = "reranking_model"
	ParamWhisperModel      = "whisper_model"
	ParamTokenizerEncoding = "tokenizer_encoding"
	ParamUID               = "uid"
	ParamGID               = "gid"
	ParamBuildHash         = "build_hash"
	ParamPort              = "port"
	ParamFrontendDir       = "frontend_dir"
	ParamBackendDir        = "backend_dir"
	ParamRequirements      = "requirements"
	ParamHiddenImports     = "hidden_imports"
)

// Values returns the configuration as a flat map of canonical parameter keys.
// Every declared parameter is present with a concrete value; disabled optionals
// resolve to an explicit empty string, never to an absent key.
func (c *BuildConfig) Values() map[string]string {
	return map[string]string{
		ParamAccelerator:       strconv.FormatBool(c.Accelerator),
		ParamExternalRuntime:   strconv.FormatBool(c.ExternalRuntime),
		ParamPackaging:         string(c.Packaging),
		ParamFlavor:            string(c.Flavor),
		ParamEmbeddingModel:    c.EmbeddingModel,
		ParamRerankingModel:    c.RerankingModel,
		ParamWhisperModel:      c.WhisperModel,
		ParamTokenizerEncoding: c.TokenizerEncoding,
		ParamUID:               strconv.Itoa(c.Identity.UID),
		ParamGID:               strconv.Itoa(c.Identity.GID),
		ParamBuildHash:         c.BuildHash,
		ParamPort:              strconv.Itoa(c.Port),
		ParamFrontendDir:       c.FrontendDir,
		ParamBackendDir:        c.BackendDir,
		ParamRequirements:      c.RequirementsFile,
		ParamHiddenImports:     strings.Join(c.HiddenImports, ","),
	}
}
