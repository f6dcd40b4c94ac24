// Package nix implements hermetic stage toolchains on top of the Nix store.
package nix

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	nixHubAPIBase     = "https://search.devbox.sh/v2/resolve"
	httpClientTimeout = 30 * time.Second

	dirPerm  = 0o750
	filePerm = 0o600
)

var errCacheMiss = zerr.New("toolchain cache miss")

var supportedSystems = map[string]struct{}{
	"x86_64-linux":   {},
	"aarch64-linux":  {},
	"x86_64-darwin":  {},
	"aarch64-darwin": {},
}

var _ ports.DependencyResolver = (*Resolver)(nil)

// Resolver implements ports.DependencyResolver using the NixHub API with local caching.
type Resolver struct {
	cacheDir   string
	httpClient *http.Client
}

// NewResolver creates a new DependencyResolver backed by the NixHub API.
func NewResolver() (*Resolver, error) {
	return NewResolverWithPath(defaultCachePath("resolve"))
}

// NewResolverWithPath creates a Resolver with a custom cache path.
func NewResolverWithPath(path string) (*Resolver, error) {
	return newResolver(path, &http.Client{Timeout: httpClientTimeout})
}

func newResolver(path string, client *http.Client) (*Resolver, error) {
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(cleanPath, dirPerm); err != nil {
		return nil, zerr.Wrap(err, "failed to create toolchain cache directory")
	}

	return &Resolver{
		cacheDir:   cleanPath,
		httpClient: client,
	}, nil
}

// defaultCachePath returns the forge toolchain cache location under the user
// cache directory, falling back to a local directory.
func defaultCachePath(sub string) string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = ".forge-cache"
	}
	return filepath.Join(base, "forge", "nix", sub)
}

// Resolve resolves a tool alias and version to a Nixpkgs commit hash and
// attribute path. It checks the on-disk cache first, then queries NixHub.
func (r *Resolver) Resolve(ctx context.Context, alias, version string) (commitHash, attrPath string, err error) {
	system := getCurrentSystem()

	cachePath := r.cachePath(alias, version)
	commitHash, attrPath, err = r.loadFromCache(cachePath, system)
	if err == nil {
		return commitHash, attrPath, nil
	}

	apiResponse, err := r.queryNixHub(ctx, alias, version)
	if err != nil {
		return "", "", err
	}

	systemData, ok := apiResponse.Systems[system]
	if !ok {
		unsupportedErr := zerr.With(zerr.New("tool not available for system"), "alias", alias)
		unsupportedErr = zerr.With(unsupportedErr, "version", version)
		return "", "", zerr.With(unsupportedErr, "system", system)
	}
	commitHash = systemData.FlakeInstallable.Ref.Rev
	attrPath = systemData.FlakeInstallable.AttrPath

	// Cache write failure is not critical to the resolution.
	_ = r.saveToCache(cachePath, alias, version, apiResponse)

	return commitHash, attrPath, nil
}

func (r *Resolver) cachePath(alias, version string) string {
	hash := sha256.Sum256([]byte(alias + "@" + version))
	return filepath.Join(r.cacheDir, hex.EncodeToString(hash[:])+".json")
}

func (r *Resolver) loadFromCache(path, system string) (commitHash, attrPath string, err error) {
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", errCacheMiss
		}
		return "", "", zerr.Wrap(err, "failed to read toolchain cache")
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", "", zerr.Wrap(err, "failed to unmarshal toolchain cache")
	}

	systemCache, ok := entry.Systems[system]
	if !ok {
		return "", "", errCacheMiss
	}

	return systemCache.FlakeInstallable.Ref.Rev, systemCache.FlakeInstallable.AttrPath, nil
}

func (r *Resolver) saveToCache(path, alias, version string, apiResponse *nixHubResponse) error {
	systems := make(map[string]SystemCache)
	for sysName, sysData := range apiResponse.Systems {
		if _, supported := supportedSystems[sysName]; !supported {
			continue
		}
		systems[sysName] = SystemCache{
			FlakeInstallable: sysData.FlakeInstallable,
		}
	}

	entry := cacheEntry{
		Alias:     alias,
		Version:   version,
		Systems:   systems,
		Timestamp: time.Now(),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal toolchain cache entry")
	}

	return atomicWriteFile(path, data)
}

// atomicWriteFile writes data via a temp file and rename.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, "cache-*.json")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func (r *Resolver) queryNixHub(ctx context.Context, alias, version string) (*nixHubResponse, error) {
	url := fmt.Sprintf("%s?name=%s&version=%s", nixHubAPIBase, alias, version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to build resolution request")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, zerr.Wrap(err, "toolchain resolution request failed")
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	if resp.StatusCode == http.StatusNotFound {
		notFoundErr := zerr.With(zerr.New("tool not found"), "alias", alias)
		return nil, zerr.With(notFoundErr, "version", version)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := zerr.With(zerr.New("toolchain resolution failed"), "status_code", resp.StatusCode)
		apiErr = zerr.With(apiErr, "alias", alias)
		return nil, zerr.With(apiErr, "version", version)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read resolution response")
	}

	var apiResp nixHubResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, zerr.Wrap(err, "failed to parse resolution response")
	}

	return &apiResp, nil
}

// getCurrentSystem returns the Nix system identifier for the build host.
func getCurrentSystem() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}
	return arch + "-" + runtime.GOOS
}
