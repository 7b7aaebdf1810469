package fs

import (
	"context"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

type SFTPFileSystem struct {
	client *sftp.Client
	log    zerolog.Logger
}

// NewSFTPFileSystem opens an SFTP session on an established SSH connection.
func NewSFTPFileSystem(sshClient *ssh.Client, log zerolog.Logger) (*SFTPFileSystem, error) {
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sftp client")
	}
	return &SFTPFileSystem{client: client, log: log}, nil
}

// List implements FileSystem.
func (s *SFTPFileSystem) List(dirPath string, showHidden bool) ([]*FileSystemEntry, error) {
	files, err := s.client.ReadDir(dirPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read directory")
	}

	entries := make([]*FileSystemEntry, 0, len(files))
	for _, file := range files {
		if !showHidden && isHidden(file.Name()) {
			continue
		}
		entries = append(entries, &FileSystemEntry{
			Name:    file.Name(),
			Path:    path.Join(dirPath, file.Name()),
			Size:    file.Size(),
			Mode:    file.Mode(),
			ModTime: file.ModTime().Unix(),
			IsDir:   file.IsDir(),
		})
	}
	return entries, nil
}

// CreateDirectory implements FileSystem.
func (s *SFTPFileSystem) CreateDirectory(parentPath, name string) error {
	if !validName(name) {
		return errors.Errorf("invalid directory name: %s", name)
	}
	fullPath := path.Join(parentPath, name)

	if _, err := s.client.Stat(fullPath); err == nil {
		return errors.Errorf("target already exists: %s", fullPath)
	}
	if err := s.client.Mkdir(fullPath); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}
	return nil
}

// Delete implements FileSystem.
func (s *SFTPFileSystem) Delete(p string, isDir bool) error {
	if isDir {
		if err := s.client.RemoveAll(p); err != nil {
			return errors.Wrap(err, "failed to remove directory")
		}
		return nil
	}
	if err := s.client.Remove(p); err != nil {
		return errors.Wrap(err, "failed to remove file")
	}
	return nil
}

// Rename implements FileSystem.
func (s *SFTPFileSystem) Rename(oldPath, newName string) error {
	if !validName(newName) {
		return errors.Errorf("invalid file name: %s", newName)
	}
	newPath := path.Join(path.Dir(oldPath), newName)

	if _, err := s.client.Stat(newPath); err == nil {
		return errors.Errorf("target already exists: %s", newPath)
	}
	if err := s.client.Rename(oldPath, newPath); err != nil {
		return errors.Wrap(err, "failed to rename")
	}
	return nil
}

// Upload implements FileSystem.
func (s *SFTPFileSystem) Upload(ctx context.Context, localPath, remotePath string) (int64, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open local file")
	}
	defer src.Close()

	dst, err := s.client.OpenFile(remotePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create remote file")
	}

	n, err := copyContext(ctx, dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.log.Warn().Err(err).Str("path", remotePath).Msg("upload interrupted, removing partial file")
		_ = s.client.Remove(remotePath)
		return n, errors.Wrap(err, "failed to upload")
	}
	return n, nil
}

// Download implements FileSystem.
func (s *SFTPFileSystem) Download(ctx context.Context, remotePath, localPath string) (int64, error) {
	src, err := s.client.Open(remotePath)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open remote file")
	}
	defer src.Close()

	return writeLocal(ctx, localPath, src)
}

func (s *SFTPFileSystem) Close() error {
	return s.client.Close()
}
