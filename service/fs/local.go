package fs

import (
	"context"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// LocalFileSystem serves the disk of the machine the service runs on.
type LocalFileSystem struct {
	log zerolog.Logger
}

func NewLocalFileSystem(log zerolog.Logger) *LocalFileSystem {
	return &LocalFileSystem{log: log}
}

// List implements FileSystem.
func (l *LocalFileSystem) List(dirPath string, showHidden bool) ([]*FileSystemEntry, error) {
	dirEntries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	entries := make([]*FileSystemEntry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if !showHidden && isHidden(dirEntry.Name()) {
			continue
		}
		info, err := dirEntry.Info()
		if err != nil {
			l.log.Debug().Err(err).Str("name", dirEntry.Name()).Msg("error getting file info")
			continue
		}
		entries = append(entries, &FileSystemEntry{
			Name:    dirEntry.Name(),
			Path:    path.Join(dirPath, dirEntry.Name()),
			IsDir:   dirEntry.IsDir(),
			Size:    info.Size(),
			Mode:    info.Mode(),
			ModTime: info.ModTime().Unix(),
		})
	}
	return entries, nil
}

// CreateDirectory implements FileSystem.
func (l *LocalFileSystem) CreateDirectory(parentPath, name string) error {
	if !validName(name) {
		return errors.Errorf("invalid directory name: %s", name)
	}
	return os.Mkdir(path.Join(parentPath, name), 0o750)
}

// Delete implements FileSystem.
func (l *LocalFileSystem) Delete(p string, isDir bool) error {
	if isDir {
		return os.RemoveAll(p)
	}
	return os.Remove(p)
}

// Rename implements FileSystem.
func (l *LocalFileSystem) Rename(oldPath, newName string) error {
	if !validName(newName) {
		return errors.Errorf("invalid file name: %s", newName)
	}
	newPath := path.Join(path.Dir(oldPath), newName)

	if _, err := os.Lstat(newPath); err == nil {
		return errors.Errorf("target already exists: %s", newPath)
	}
	return os.Rename(oldPath, newPath)
}

// Upload implements FileSystem.
func (l *LocalFileSystem) Upload(ctx context.Context, localPath, remotePath string) (int64, error) {
	return l.copyFile(ctx, localPath, remotePath)
}

// Download implements FileSystem.
func (l *LocalFileSystem) Download(ctx context.Context, remotePath, localPath string) (int64, error) {
	return l.copyFile(ctx, remotePath, localPath)
}

func (l *LocalFileSystem) Close() error { return nil }

func (l *LocalFileSystem) copyFile(ctx context.Context, from, to string) (int64, error) {
	src, err := os.Open(from)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open source file")
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "failed to stat source file")
	}
	if info.IsDir() {
		return 0, errors.Errorf("%s is a directory", from)
	}

	return writeLocal(ctx, to, src)
}
