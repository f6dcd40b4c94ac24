package hub

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/zerr"
)

const lockPollInterval = 100 * time.Millisecond

// acquireLock serializes writers to one cache entry with an O_EXCL lock file
// next to the entry directory. Waiting is cancel-aware; the returned func
// releases the lock.
func acquireLock(ctx context.Context, dir string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, zerr.Wrap(err, "preparing model cache directory")
	}
	lockPath := dir + ".lock"

	for {
		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			file.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, zerr.Wrap(err, "creating model cache lock")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
