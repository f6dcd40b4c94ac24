package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/config"
	"go.trai.ch/forge/internal/core/domain"
)

const forgefile = `
version: "1"
defaults:
  embeddingModel: sentence-transformers/all-MiniLM-L6-v2
  tokenizerEncoding: cl100k_base
  buildHash: abc123
profiles:
  cuda:
    accelerator: true
    flavor: cuda
  standalone:
    packaging: binary
    rerankingModel: BAAI/bge-reranker-base
    hiddenImports:
      - chromadb.telemetry.product.posthog
  ollama:
    externalRuntime: true
    flavor: ollama
    stageTimeout: 45m
`

func writeForgefile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeForgefile(t, forgefile)

	cfg, err := config.NewLoader().Load(path, "", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.PackagingEnvironment, cfg.Packaging)
	assert.Equal(t, domain.FlavorSlim, cfg.Flavor)
	assert.False(t, cfg.Accelerator)
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", cfg.EmbeddingModel)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, domain.RuntimeIdentity{UID: 1000, GID: 1000}, cfg.Identity)
}

func TestLoadProfileOverlaysDefaults(t *testing.T) {
	path := writeForgefile(t, forgefile)

	cfg, err := config.NewLoader().Load(path, "cuda", nil)
	require.NoError(t, err)

	assert.True(t, cfg.Accelerator)
	assert.Equal(t, domain.FlavorCUDA, cfg.Flavor)
	// Inherited from the defaults block.
	assert.Equal(t, "abc123", cfg.BuildHash)
}

func TestLoadBinaryProfile(t *testing.T) {
	path := writeForgefile(t, forgefile)

	cfg, err := config.NewLoader().Load(path, "standalone", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.PackagingBinary, cfg.Packaging)
	assert.True(t, cfg.RerankingEnabled())
	assert.Contains(t, cfg.HiddenImports, "chromadb.telemetry.product.posthog")
}

func TestLoadStageTimeout(t *testing.T) {
	path := writeForgefile(t, forgefile)

	cfg, err := config.NewLoader().Load(path, "ollama", nil)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.StageTimeout)
	assert.True(t, cfg.ExternalRuntime)
}

func TestLoadRejectsMalformedStageTimeout(t *testing.T) {
	path := writeForgefile(t, `
version: "1"
defaults:
  embeddingModel: sentence-transformers/all-MiniLM-L6-v2
  tokenizerEncoding: cl100k_base
  buildHash: abc123
  stageTimeout: not-a-duration
`)

	_, err := config.NewLoader().Load(path, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfiguration.Error())
}

func TestLoadDisabledOptionalsResolveToSentinels(t *testing.T) {
	path := writeForgefile(t, forgefile)

	cfg, err := config.NewLoader().Load(path, "", nil)
	require.NoError(t, err)

	// Every declared parameter resolves to a concrete value, even unset
	// optionals.
	values := cfg.Values()
	assert.Equal(t, "", values[domain.ParamRerankingModel])
	assert.Equal(t, "", values[domain.ParamWhisperModel])
	assert.False(t, cfg.RerankingEnabled())
	assert.False(t, cfg.WhisperEnabled())
}

func TestLoadOverridesWinOverProfile(t *testing.T) {
	path := writeForgefile(t, forgefile)

	cfg, err := config.NewLoader().Load(path, "cuda", map[string]string{
		"accelerator": "false",
		"port":        "9090",
	})
	require.NoError(t, err)

	assert.False(t, cfg.Accelerator)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoadEnvFileOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(forgefile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("FORGE_BUILD_HASH=f00dface\nUNRELATED=ignored\n"), 0o644))

	cfg, err := config.NewLoader().Load(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "f00dface", cfg.BuildHash)
}

func TestLoadRejectsUnknownProfile(t *testing.T) {
	path := writeForgefile(t, forgefile)

	_, err := config.NewLoader().Load(path, "nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfiguration.Error())
}

func TestLoadRejectsUnknownParameter(t *testing.T) {
	path := writeForgefile(t, forgefile)

	_, err := config.NewLoader().Load(path, "", map[string]string{"gpu": "true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfiguration.Error())
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name      string
		overrides map[string]string
	}{
		{"bad packaging mode", map[string]string{"packaging": "tarball"}},
		{"bad flavor", map[string]string{"flavor": "mega"}},
		{"empty embedding model", map[string]string{"embedding_model": ""}},
		{"empty tokenizer", map[string]string{"tokenizer_encoding": ""}},
		{"empty requirements file", map[string]string{"requirements": ""}},
		{"privileged uid", map[string]string{"uid": "0"}},
		{"negative gid", map[string]string{"gid": "-1"}},
		{"port out of range", map[string]string{"port": "70000"}},
		{"non-numeric uid", map[string]string{"uid": "root"}},
		{"non-boolean accelerator", map[string]string{"accelerator": "yes please"}},
	}

	path := writeForgefile(t, forgefile)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.NewLoader().Load(path, "", tc.overrides)
			require.Error(t, err)
			assert.Contains(t, err.Error(), domain.ErrConfiguration.Error())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.NewLoader().Load(filepath.Join(t.TempDir(), "forge.yaml"), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfiguration.Error())
}
