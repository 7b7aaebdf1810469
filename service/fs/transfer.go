package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

const lockPollInterval = 50 * time.Millisecond

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

func copyContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, &ctxReader{ctx: ctx, r: src})
}

// writeLocal streams src into localPath. Writers of the same destination are
// serialized through an OS file lock and the content only appears under
// localPath once it is complete.
func writeLocal(ctx context.Context, localPath string, src io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return 0, errors.Wrap(err, "create download directory")
	}

	lock := flock.New(lockPath(localPath))
	locked, err := lock.TryLockContext(ctx, lockPollInterval)
	if err != nil {
		return 0, errors.Wrapf(err, "lock %s", localPath)
	}
	if !locked {
		return 0, errors.Errorf("%s is being written by another download", localPath)
	}
	defer func() { _ = lock.Unlock() }()

	partial := localPath + ".part"
	f, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, errors.Wrap(err, "create local file")
	}

	n, err := copyContext(ctx, f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(partial)
		return n, errors.Wrap(err, "write local file")
	}

	if err := os.Rename(partial, localPath); err != nil {
		_ = os.Remove(partial)
		return n, errors.Wrap(err, "move local file into place")
	}
	return n, nil
}

// lockPath keeps lock files out of the download directory.
func lockPath(localPath string) string {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		abs = localPath
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), "pinas-"+hex.EncodeToString(sum[:8])+".lock")
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// validName reports whether name is a single path segment.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}
