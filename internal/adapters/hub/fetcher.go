package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// DefaultRegistry serves model manifests and weight files.
	DefaultRegistry = "https://models.trai.ch/v1"

	defaultMaxAttempts = 4
	defaultBackoff     = 500 * time.Millisecond
)

// Fetcher downloads model files from a registry into the local model cache.
// A cache entry is complete once its manifest is in place; partially written
// files never carry their final name.
type Fetcher struct {
	registry    string
	client      *http.Client
	logger      ports.Logger
	maxAttempts int
	backoff     time.Duration
	quiet       bool
}

type FetcherOption func(*Fetcher)

// WithRegistry points the fetcher at a different registry base URL.
func WithRegistry(base string) FetcherOption {
	return func(f *Fetcher) { f.registry = base }
}

// WithHTTPClient swaps the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithRetryPolicy tunes the per-request retry budget and initial backoff.
func WithRetryPolicy(attempts int, backoff time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.maxAttempts = attempts
		f.backoff = backoff
	}
}

// WithQuiet suppresses the download progress bars.
func WithQuiet() FetcherOption {
	return func(f *Fetcher) { f.quiet = true }
}

func NewFetcher(logger ports.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		registry:    DefaultRegistry,
		client:      &http.Client{Timeout: 10 * time.Minute},
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch materializes key into dir. Files whose digests already match are not
// re-downloaded, so re-running against a complete entry touches nothing and
// performs only the manifest request.
func (f *Fetcher) Fetch(ctx context.Context, key domain.ModelKey, dir string) error {
	unlock, err := acquireLock(ctx, dir)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrModelFetch.Error()), "model", key.ID)
	}
	defer unlock()

	manifest, err := f.fetchManifest(ctx, key)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrModelFetch.Error()), "model", key.ID)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrModelFetch.Error()), "model", key.ID)
	}

	for _, file := range manifest.Files {
		ok, err := verifyFile(filepath.Join(dir, file.Name), file.SHA256)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrModelFetch.Error()), "model", key.ID)
		}
		if ok {
			continue
		}
		if err := f.fetchFile(ctx, key, file, dir); err != nil {
			wrapped := zerr.With(zerr.Wrap(err, domain.ErrModelFetch.Error()), "model", key.ID)
			return zerr.With(wrapped, "file", file.Name)
		}
	}

	// The manifest is the completion marker, written only after every file
	// verified. Concurrent fetchers of the same key serialize on the lock and
	// the second one finds the files already in place.
	if err := writeManifest(dir, manifest); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrModelFetch.Error()), "model", key.ID)
	}
	return nil
}

// Verify reports whether dir holds a complete materialization of key, checking
// every file digest against the stored manifest.
func (f *Fetcher) Verify(key domain.ModelKey, dir string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, zerr.Wrap(err, "reading model manifest")
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return false, zerr.With(zerr.Wrap(err, "parsing model manifest"), "model", key.ID)
	}

	for _, file := range manifest.Files {
		if !filepath.IsLocal(file.Name) {
			return false, nil
		}
		ok, err := verifyFile(filepath.Join(dir, file.Name), file.SHA256)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (f *Fetcher) fetchManifest(ctx context.Context, key domain.ModelKey) (*Manifest, error) {
	body, err := f.get(ctx, f.fileURL(key, ManifestName))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var manifest Manifest
	if err := json.NewDecoder(body).Decode(&manifest); err != nil {
		return nil, zerr.Wrap(err, "decoding model manifest")
	}
	if len(manifest.Files) == 0 {
		return nil, zerr.New("model manifest lists no files")
	}
	for _, file := range manifest.Files {
		// Entry names must stay inside the cache entry; a manifest is remote
		// input and never gets to name paths like "../..".
		if !filepath.IsLocal(file.Name) {
			return nil, zerr.With(zerr.New("model manifest names a non-local path"), "file", file.Name)
		}
	}
	return &manifest, nil
}

func (f *Fetcher) fetchFile(ctx context.Context, key domain.ModelKey, file ManifestFile, dir string) error {
	body, err := f.get(ctx, f.fileURL(key, file.Name))
	if err != nil {
		return err
	}
	defer body.Close()

	target := filepath.Join(dir, file.Name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return zerr.Wrap(err, "creating model file directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(file.Name)+".*")
	if err != nil {
		return zerr.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name())

	hash := sha256.New()
	var sink io.Writer = io.MultiWriter(tmp, hash)
	if !f.quiet {
		bar := progressbar.DefaultBytes(file.Size, file.Name)
		sink = io.MultiWriter(sink, bar)
		defer bar.Close()
	}

	if _, err := io.Copy(sink, body); err != nil {
		tmp.Close()
		return zerr.Wrap(err, "downloading model file")
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "closing temp file")
	}

	if sum := hex.EncodeToString(hash.Sum(nil)); sum != file.SHA256 {
		err := zerr.With(zerr.New("model file digest mismatch"), "expected", file.SHA256)
		return zerr.With(err, "actual", sum)
	}
	return os.Rename(tmp.Name(), target)
}

// get performs a GET with bounded retries and exponential backoff. Retrying
// lives here and nowhere else, so callers never stack retry budgets.
func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	backoff := f.backoff
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			f.logger.Warn(fmt.Sprintf("retrying model registry request (attempt %d/%d): %s",
				attempt, f.maxAttempts, rawURL))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, zerr.Wrap(err, "building registry request")
		}
		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			return resp.Body, nil
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, zerr.With(zerr.New("model not found in registry"), "url", rawURL)
		default:
			resp.Body.Close()
			lastErr = fmt.Errorf("registry returned status %d", resp.StatusCode)
		}
	}
	return nil, zerr.With(zerr.Wrap(lastErr, "registry request failed"),
		"attempts", f.maxAttempts,
	)
}

func (f *Fetcher) fileURL(key domain.ModelKey, name string) string {
	return f.registry + "/" +
		url.PathEscape(string(key.Kind)) + "/" +
		url.PathEscape(key.ID) + "/" +
		url.PathEscape(key.Precision) + "/" +
		url.PathEscape(name)
}

func verifyFile(path, wantSHA256 string) (bool, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, zerr.Wrap(err, "opening cached model file")
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return false, zerr.Wrap(err, "hashing cached model file")
	}
	return hex.EncodeToString(hash.Sum(nil)) == wantSHA256, nil
}

func writeManifest(dir string, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "encoding model manifest")
	}
	tmp, err := os.CreateTemp(dir, ".manifest.*")
	if err != nil {
		return zerr.Wrap(err, "creating temp manifest")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return zerr.Wrap(err, "writing model manifest")
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "closing temp manifest")
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, ManifestName))
}
