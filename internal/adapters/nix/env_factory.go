package nix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.EnvironmentFactory = (*EnvFactory)(nil)

// EnvFactory implements ports.EnvironmentFactory using Nix. Stage toolchains
// never leak into artifacts: the environment exists only as variables handed
// to the command executor.
type EnvFactory struct {
	resolver ports.DependencyResolver
	manager  ports.PackageManager
	cacheDir string
}

// NewEnvFactory creates a new EnvironmentFactory backed by Nix.
func NewEnvFactory(resolver ports.DependencyResolver, manager ports.PackageManager) *EnvFactory {
	return NewEnvFactoryWithCache(resolver, manager, defaultCachePath("environments"))
}

// NewEnvFactoryWithCache creates a new EnvironmentFactory with a specific cache directory.
func NewEnvFactoryWithCache(
	resolver ports.DependencyResolver,
	manager ports.PackageManager,
	cacheDir string,
) *EnvFactory {
	return &EnvFactory{
		resolver: resolver,
		manager:  manager,
		cacheDir: cacheDir,
	}
}

// GetEnvironment constructs a hermetic environment from a set of tools.
// The tools map contains alias->spec pairs (e.g., "node" -> "nodejs@22").
// Returns environment variables as "KEY=VALUE" strings.
func (e *EnvFactory) GetEnvironment(ctx context.Context, tools map[string]string) ([]string, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	envID := domain.GenerateToolsetID(tools)
	cachePath := filepath.Join(e.cacheDir, envID+".json")
	if cachedEnv, err := loadEnvFromCache(cachePath); err == nil {
		return cachedEnv, nil
	}

	commitToPackages, err := e.resolveTools(ctx, tools)
	if err != nil {
		return nil, err
	}

	nixExpr := generateNixExpr(getCurrentSystem(), commitToPackages)

	tmpPath, cleanupFn, err := createNixTempFile(nixExpr)
	if err != nil {
		return nil, err
	}
	defer cleanupFn()

	//nolint:gosec // tmpPath is a trusted temp file created by us
	cmd := exec.CommandContext(ctx, "nix", "print-dev-env", "--json", "--file", tmpPath)
	output, err := cmd.Output()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to execute nix print-dev-env")
	}

	env, err := parseNixDevEnv(output)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to parse nix output")
	}

	// Cache write failure is not critical.
	_ = saveEnvToCache(cachePath, env)

	return env, nil
}

// resolveTools resolves all tool specs to packages grouped by nixpkgs commit.
func (e *EnvFactory) resolveTools(ctx context.Context, tools map[string]string) (map[string][]string, error) {
	commitToPackages := make(map[string][]string)
	var mu sync.Mutex

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for alias, spec := range tools {
		g.Go(func() error {
			name, version, ok := strings.Cut(spec, "@")
			if !ok {
				specErr := zerr.With(zerr.New("invalid tool spec, expected package@version"), "alias", alias)
				return zerr.With(specErr, "spec", spec)
			}

			commitHash, attrPath, err := e.resolver.Resolve(groupCtx, name, version)
			if err != nil {
				return zerr.Wrap(err, "failed to resolve tool")
			}

			mu.Lock()
			commitToPackages[commitHash] = append(commitToPackages[commitHash], attrPath)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return commitToPackages, nil
}

// generateNixExpr generates a Nix expression from a commit-to-packages mapping.
func generateNixExpr(system string, commits map[string][]string) string {
	var builder strings.Builder

	builder.WriteString("let\n")
	builder.WriteString(fmt.Sprintf("system = %q;\n", system))

	commitIdx := 0
	commitToIdx := make(map[string]int)
	hashes := make([]string, 0, len(commits))
	for commitHash := range commits {
		hashes = append(hashes, commitHash)
	}
	slices.Sort(hashes)

	for _, commitHash := range hashes {
		builder.WriteString(fmt.Sprintf("flake_%d = builtins.getFlake \"github:NixOS/nixpkgs/%s\";\n",
			commitIdx, commitHash))
		builder.WriteString(fmt.Sprintf("pkgs_%d = flake_%d.legacyPackages.${system};\n",
			commitIdx, commitIdx))
		commitToIdx[commitHash] = commitIdx
		commitIdx++
	}

	builder.WriteString("in\n")
	builder.WriteString("pkgs_0.mkShell {\n")
	builder.WriteString("buildInputs = [\n")

	for _, commitHash := range hashes {
		idx := commitToIdx[commitHash]
		pkgs := slices.Clone(commits[commitHash])
		slices.Sort(pkgs)
		for _, pkg := range pkgs {
			builder.WriteString(fmt.Sprintf("pkgs_%d.%s\n", idx, pkg))
		}
	}

	builder.WriteString("];\n")
	builder.WriteString("}\n")

	return builder.String()
}

// createNixTempFile creates a temporary file with the given Nix expression.
func createNixTempFile(nixExpr string) (tmpPath string, cleanup func(), err error) {
	tmpFile, err := os.CreateTemp("", "forge-env-*.nix")
	if err != nil {
		return "", nil, zerr.Wrap(err, "failed to create temp nix file")
	}

	tmpPath = tmpFile.Name()
	cleanup = func() {
		_ = os.Remove(tmpPath)
	}

	if _, writeErr := tmpFile.WriteString(nixExpr); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, zerr.Wrap(writeErr, "failed to write nix expression")
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, zerr.Wrap(closeErr, "failed to close temp nix file")
	}

	return tmpPath, cleanup, nil
}

func loadEnvFromCache(path string) ([]string, error) {
	//nolint:gosec // Path is constructed from trusted cache directory
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errCacheMiss
		}
		return nil, zerr.Wrap(err, "failed to read environment cache")
	}

	var env []string
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, zerr.Wrap(err, "failed to unmarshal environment cache")
	}

	return env, nil
}

func saveEnvToCache(path string, env []string) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal environment")
	}
	return atomicWriteFile(path, data)
}

// parseNixDevEnv extracts exported environment variables from the JSON output
// of nix print-dev-env, keeping only build-relevant variables.
func parseNixDevEnv(jsonData []byte) ([]string, error) {
	var output nixDevEnvOutput
	if err := json.Unmarshal(jsonData, &output); err != nil {
		return nil, zerr.Wrap(err, "failed to unmarshal nix output")
	}

	env := make([]string, 0, len(output.Variables))
	for key, variable := range output.Variables {
		if !includeVar(key) {
			continue
		}

		var valueStr string
		switch v := variable.Value.(type) {
		case string:
			valueStr = v
		case []interface{}:
			parts := make([]string, len(v))
			for i, part := range v {
				if s, ok := part.(string); ok {
					parts[i] = s
				}
			}
			valueStr = strings.Join(parts, ":")
		default:
			continue
		}

		env = append(env, key+"="+valueStr)
	}

	slices.Sort(env)
	return env, nil
}

// includeVar keeps build-related variables and drops interactive shell state.
func includeVar(key string) bool {
	include := []string{
		"PATH",
		"PYTHONPATH",
		"NODE_PATH",
		"CC",
		"CXX",
		"LD",
		"AR",
		"CFLAGS",
		"CXXFLAGS",
		"LDFLAGS",
		"PKG_CONFIG_PATH",
		"NIX_",
	}
	for _, prefix := range include {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
