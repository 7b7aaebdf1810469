package fs

import (
	"context"
	"os"
)

// FileSystemEntry represents common file metadata.
type FileSystemEntry struct {
	Name    string      `json:"name"`
	Path    string      `json:"path"`
	Size    int64       `json:"size"`
	Mode    os.FileMode `json:"mode"`
	ModTime int64       `json:"modTime"` // unix seconds
	IsDir   bool        `json:"isDir"`
}

// FileSystem defines a common interface for file operations.
// Both local and remote implementations should conform to this interface.
// Paths are absolute and use forward slashes.
type FileSystem interface {
	// List returns the directory entries at the given path. The showHidden flag indicates whether hidden files should be included.
	List(path string, showHidden bool) ([]*FileSystemEntry, error)

	// CreateDirectory creates the directory name under parentPath. It fails if the target exists.
	CreateDirectory(parentPath, name string) error

	// Delete removes the file at path, or the directory and everything below it when isDir is set.
	Delete(path string, isDir bool) error

	// Rename renames the file or directory at oldPath to the newName (keeping the same parent directory).
	Rename(oldPath, newName string) error

	// Upload copies the local file localPath to remotePath, replacing it. It returns the bytes written.
	Upload(ctx context.Context, localPath, remotePath string) (int64, error)

	// Download copies remotePath to the local file localPath. It returns the bytes written.
	Download(ctx context.Context, remotePath, localPath string) (int64, error)

	Close() error
}
