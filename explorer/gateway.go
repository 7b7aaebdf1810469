package explorer

import "context"

// Entry is one file or directory as reported by the remote side. Entries are
// created fresh for every listing and never mutated afterwards. ModifiedAt
// is in unix seconds.
type Entry struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	IsDirectory bool   `json:"isDir"`
	SizeBytes   int64  `json:"size"`
	ModifiedAt  int64  `json:"modified"`
}

// Gateway performs filesystem operations on a remote target. Each call is a
// single round trip that either succeeds or fails on its own; timeouts and
// retries belong to the implementation.
type Gateway interface {
	List(ctx context.Context, connectionID, path string) ([]Entry, error)
	CreateDirectory(ctx context.Context, connectionID, path, name string) error
	Delete(ctx context.Context, connectionID, path string, isDirectory bool) error
	Rename(ctx context.Context, connectionID, path, newName string) error
	Upload(ctx context.Context, connectionID, localPath, remotePath string) error
	Download(ctx context.Context, connectionID, remotePath, localPath string) error
}

// DestinationSupplier resolves the local path a remote entry is downloaded
// to. Returning ErrUserCancelled skips the entry.
type DestinationSupplier interface {
	Destination(ctx context.Context, entry Entry) (string, error)
}

// SourceSupplier picks local files to upload. Returning ErrUserCancelled
// aborts the upload without any remote call.
type SourceSupplier interface {
	Sources(ctx context.Context) ([]string, error)
}

// DestinationFunc adapts a function to DestinationSupplier.
type DestinationFunc func(ctx context.Context, entry Entry) (string, error)

func (f DestinationFunc) Destination(ctx context.Context, entry Entry) (string, error) {
	return f(ctx, entry)
}

// SourceFunc adapts a function to SourceSupplier.
type SourceFunc func(ctx context.Context) ([]string, error)

func (f SourceFunc) Sources(ctx context.Context) ([]string, error) {
	return f(ctx)
}
