//nolint:testpackage // Testing internal cache and expression helpers
package nix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testVersion = "22"

// testTransport redirects every request to the test server, preserving query
// parameters.
type testTransport struct {
	serverURL string
}

func (t *testTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	testURL := t.serverURL + "?" + req.URL.RawQuery
	newReq, err := http.NewRequestWithContext(req.Context(), req.Method, testURL, req.Body)
	if err != nil {
		return nil, err
	}
	return http.DefaultTransport.RoundTrip(newReq)
}

func testResolver(t *testing.T, serverURL string) *Resolver {
	t.Helper()
	return &Resolver{
		cacheDir: t.TempDir(),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: &testTransport{serverURL: serverURL},
		},
	}
}

func hubResponse(rev string) nixHubResponse {
	systems := make(map[string]SystemResponse, len(supportedSystems))
	for system := range supportedSystems {
		systems[system] = SystemResponse{
			FlakeInstallable: FlakeInstallable{
				Ref:      FlakeRef{Type: "github", Owner: "NixOS", Repo: "nixpkgs", Rev: rev},
				AttrPath: "nodejs_22",
			},
		}
	}
	return nixHubResponse{Name: "nodejs", Version: testVersion, Systems: systems}
}

func TestNewResolverCreatesCacheDir(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache")

	resolver, err := NewResolverWithPath(cachePath)
	if err != nil {
		t.Fatalf("NewResolverWithPath() error = %v", err)
	}
	if resolver == nil {
		t.Fatal("NewResolverWithPath() returned nil resolver")
	}
	if _, err := os.Stat(cachePath); os.IsNotExist(err) {
		t.Errorf("cache directory was not created")
	}
}

func TestResolveCacheMiss(t *testing.T) {
	const expectedRev = "test-commit-hash-123"
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Query().Get("name") != "nodejs" || r.URL.Query().Get("version") != testVersion {
			t.Errorf("unexpected query params: %v", r.URL.Query())
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(hubResponse(expectedRev))
	}))
	defer server.Close()

	resolver := testResolver(t, server.URL)

	rev, attrPath, err := resolver.Resolve(context.Background(), "nodejs", testVersion)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if rev != expectedRev {
		t.Errorf("Resolve() rev = %v, want %v", rev, expectedRev)
	}
	if attrPath != "nodejs_22" {
		t.Errorf("Resolve() attrPath = %v, want nodejs_22", attrPath)
	}

	// The resolution was cached; a second call must not hit the API.
	if _, _, err := resolver.Resolve(context.Background(), "nodejs", testVersion); err != nil {
		t.Fatalf("Resolve() from cache error = %v", err)
	}
	if hits != 1 {
		t.Errorf("API hits = %d, want 1", hits)
	}
}

func TestResolvePackageNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resolver := testResolver(t, server.URL)

	_, _, err := resolver.Resolve(context.Background(), "no-such-tool", "1.0")
	if err == nil {
		t.Fatal("Resolve() expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Resolve() error = %v, want not-found error", err)
	}
}

func TestResolveServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resolver := testResolver(t, server.URL)

	_, _, err := resolver.Resolve(context.Background(), "nodejs", testVersion)
	if err == nil {
		t.Fatal("Resolve() expected error for server failure")
	}
	if !strings.Contains(err.Error(), "resolution failed") {
		t.Errorf("Resolve() error = %v, want resolution failure", err)
	}
}

func TestResolveUnsupportedSystem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := nixHubResponse{
			Name:    "nodejs",
			Version: testVersion,
			Systems: map[string]SystemResponse{"riscv64-linux": {}},
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	resolver := testResolver(t, server.URL)

	_, _, err := resolver.Resolve(context.Background(), "nodejs", testVersion)
	if err == nil {
		t.Fatal("Resolve() expected error for unsupported system")
	}
	if !strings.Contains(err.Error(), "not available for system") {
		t.Errorf("Resolve() error = %v, want unsupported-system error", err)
	}
}

func TestResolveUsesExistingCacheWithoutNetwork(t *testing.T) {
	const cachedRev = "cached-rev-456"
	resolver := testResolver(t, "http://127.0.0.1:1")

	systems := make(map[string]SystemCache, len(supportedSystems))
	for system := range supportedSystems {
		systems[system] = SystemCache{
			FlakeInstallable: FlakeInstallable{
				Ref:      FlakeRef{Rev: cachedRev},
				AttrPath: "nodejs_22",
			},
		}
	}
	entry := cacheEntry{
		Alias:     "nodejs",
		Version:   testVersion,
		Systems:   systems,
		Timestamp: time.Now(),
	}
	data, _ := json.MarshalIndent(entry, "", "  ")
	if err := os.WriteFile(resolver.cachePath("nodejs", testVersion), data, filePerm); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	rev, _, err := resolver.Resolve(context.Background(), "nodejs", testVersion)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if rev != cachedRev {
		t.Errorf("Resolve() = %v, want %v", rev, cachedRev)
	}
}

func TestCachePathDeterministic(t *testing.T) {
	resolver := testResolver(t, "http://unused")

	if resolver.cachePath("go", "1.21") != resolver.cachePath("go", "1.21") {
		t.Error("cachePath() not deterministic for identical inputs")
	}
	if resolver.cachePath("go", "1.21") == resolver.cachePath("go", "1.22") {
		t.Error("cachePath() collides across versions")
	}
	if resolver.cachePath("go", "1.21") == resolver.cachePath("node", "1.21") {
		t.Error("cachePath() collides across tools")
	}
}
