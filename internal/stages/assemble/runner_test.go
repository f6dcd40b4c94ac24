package assemble_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/fsops"
	"go.trai.ch/forge/internal/adapters/logger"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/stages/assemble"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func testConfig(t *testing.T) *domain.BuildConfig {
	backendDir := t.TempDir()
	writeFile(t, backendDir, "main.py", "import app\n")
	return &domain.BuildConfig{
		Packaging:         domain.PackagingEnvironment,
		Flavor:            domain.FlavorSlim,
		Port:              8080,
		EmbeddingModel:    "sentence-transformers/all-MiniLM-L6-v2",
		TokenizerEncoding: "cl100k_base",
		BackendDir:        backendDir,
		BuildHash:         "deadbeef",
		Identity:          domain.RuntimeIdentity{UID: 1000, GID: 1000},
	}
}

func testInputs(t *testing.T) map[domain.InternedString]domain.Artifact {
	t.Helper()
	frontendDir := t.TempDir()
	writeFile(t, frontendDir, "index.html", "<html/>")
	modelsDir := t.TempDir()
	writeFile(t, modelsDir, "embedding/model/float16/weights.bin", "w")
	envDir := t.TempDir()
	writeFile(t, envDir, "fastapi/__init__.py", "")
	return map[domain.InternedString]domain.Artifact{
		domain.StageFrontend:   {Root: frontendDir},
		domain.StageModels:     {Root: modelsDir},
		domain.StageBackendEnv: {Root: envDir},
	}
}

func newTestRunner(calls *[]string) *assemble.Runner {
	normalizer := fsops.NewNormalizerWithChown(func(path string, uid, gid int) error {
		if calls != nil {
			*calls = append(*calls, path)
		}
		return nil
	})
	log := logger.New()
	log.SetOutput(io.Discard)
	return assemble.NewRunner(normalizer, log)
}

func TestRunnerLaysOutEnvironmentArtifact(t *testing.T) {
	var chowned []string
	runner := newTestRunner(&chowned)
	cfg := testConfig(t)
	outDir := t.TempDir()

	require.NoError(t, runner.Run(context.Background(), nil, cfg, testInputs(t), outDir))

	appDir := filepath.Join(outDir, "app")
	assert.FileExists(t, filepath.Join(appDir, "build", "index.html"))
	assert.FileExists(t, filepath.Join(appDir, "backend", "main.py"))
	assert.FileExists(t, filepath.Join(appDir, "backend", "env", "fastapi", "__init__.py"))
	assert.FileExists(t, filepath.Join(appDir, "data", "cache", "models", "embedding", "model", "float16", "weights.bin"))

	assert.Equal(t, "deadbeef\n", readFile(t, filepath.Join(appDir, "VERSION")))

	info, err := os.Stat(filepath.Join(appDir, "start.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)

	// Every entry of the tree was chowned to the runtime identity.
	assert.NotEmpty(t, chowned)
	assert.Contains(t, chowned, filepath.Join(appDir, "VERSION"))
}

func TestRunnerWritesRuntimeContract(t *testing.T) {
	runner := newTestRunner(nil)
	cfg := testConfig(t)
	outDir := t.TempDir()

	require.NoError(t, runner.Run(context.Background(), nil, cfg, testInputs(t), outDir))

	contract := readFile(t, filepath.Join(outDir, "app", "runtime.env"))
	assert.Contains(t, contract, "PORT=8080\n")
	assert.Contains(t, contract, "RAG_EMBEDDING_MODEL=sentence-transformers/all-MiniLM-L6-v2\n")
	// Disabled reranker still gets its line, with the empty sentinel.
	assert.Contains(t, contract, "RAG_RERANKING_MODEL=\n")
	assert.Contains(t, contract, "HF_HUB_OFFLINE=1\n")

	lines := strings.Split(strings.TrimRight(contract, "\n"), "\n")
	assert.True(t, sortedLines(lines), "contract lines must be sorted for byte-stable output")
}

func sortedLines(lines []string) bool {
	for i := 1; i < len(lines); i++ {
		if lines[i-1] > lines[i] {
			return false
		}
	}
	return true
}

func TestRunnerLaysOutBinaryArtifact(t *testing.T) {
	runner := newTestRunner(nil)
	cfg := testConfig(t)
	cfg.Packaging = domain.PackagingBinary

	inputs := testInputs(t)
	binDir := t.TempDir()
	writeFile(t, binDir, "webapp", "ELF")
	inputs[domain.StageBinary] = domain.Artifact{Root: binDir}

	outDir := t.TempDir()
	require.NoError(t, runner.Run(context.Background(), nil, cfg, inputs, outDir))

	appDir := filepath.Join(outDir, "app")
	assert.FileExists(t, filepath.Join(appDir, "bin", "webapp"))
	assert.NoDirExists(t, filepath.Join(appDir, "backend"))

	start := readFile(t, filepath.Join(appDir, "start.sh"))
	assert.Contains(t, start, "exec ./bin/webapp")
	assert.NotContains(t, start, "python3")
}

func TestRunnerRequiresInputArtifacts(t *testing.T) {
	runner := newTestRunner(nil)
	cfg := testConfig(t)

	err := runner.Run(context.Background(), nil, cfg, nil, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrArtifactMissing.Error())

	inputs := testInputs(t)
	delete(inputs, domain.StageBackendEnv)
	err = runner.Run(context.Background(), nil, cfg, inputs, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend environment")
}

func TestRunnerStripsBuildOnlyFiles(t *testing.T) {
	runner := newTestRunner(nil)
	cfg := testConfig(t)
	writeFile(t, cfg.BackendDir, "__pycache__/main.cpython-311.pyc", "")
	writeFile(t, cfg.BackendDir, ".git/HEAD", "ref: refs/heads/main")

	outDir := t.TempDir()
	require.NoError(t, runner.Run(context.Background(), nil, cfg, testInputs(t), outDir))

	backend := filepath.Join(outDir, "app", "backend")
	assert.NoDirExists(t, filepath.Join(backend, "__pycache__"))
	assert.NoDirExists(t, filepath.Join(backend, ".git"))
}
