package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pinas/explorer"
	"pinas/service/fs"
)

type mockFileSystem struct {
	mock.Mock
}

func (m *mockFileSystem) List(path string, showHidden bool) ([]*fs.FileSystemEntry, error) {
	args := m.Called(path, showHidden)
	if entries := args.Get(0); entries != nil {
		return entries.([]*fs.FileSystemEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFileSystem) CreateDirectory(parentPath, name string) error {
	return m.Called(parentPath, name).Error(0)
}

func (m *mockFileSystem) Delete(path string, isDir bool) error {
	return m.Called(path, isDir).Error(0)
}

func (m *mockFileSystem) Rename(oldPath, newName string) error {
	return m.Called(oldPath, newName).Error(0)
}

func (m *mockFileSystem) Upload(ctx context.Context, localPath, remotePath string) (int64, error) {
	args := m.Called(localPath, remotePath)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockFileSystem) Download(ctx context.Context, remotePath, localPath string) (int64, error) {
	args := m.Called(remotePath, localPath)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockFileSystem) Close() error {
	return m.Called().Error(0)
}

func newTestRegistry(showHidden bool) *Registry {
	return New(Options{SSHPort: 22, ShowHidden: showHidden}, zerolog.Nop())
}

func addMock(r *Registry, id string) *mockFileSystem {
	fsys := new(mockFileSystem)
	r.add(&connection{
		info: Connection{
			ID:        id,
			Name:      "RbPi (10.0.0.2)",
			IP:        "10.0.0.2",
			Connected: true,
			StorageDevices: []StorageDevice{
				{ID: "dev-1", Name: "/dev/sda1", MountPoint: "/media/pi/USB", SizeTotal: 100, SizeFree: 40},
			},
		},
		fs: fsys,
	})
	return fsys
}

func TestGateway(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(true)
	fsys := addMock(r, "pi")
	gw := r.Gateway()

	t.Run("List", func(t *testing.T) {
		fsys.On("List", "/media/pi/USB", true).Return([]*fs.FileSystemEntry{
			{Name: "docs", Path: "/media/pi/USB/docs", IsDir: true, ModTime: 1700000000},
			{Name: "a.txt", Path: "/media/pi/USB/a.txt", Size: 12},
		}, nil).Once()

		entries, err := gw.List(ctx, "pi", "/media/pi/USB")
		require.NoError(t, err)
		assert.Equal(t, []explorer.Entry{
			{Path: "/media/pi/USB/docs", Name: "docs", IsDirectory: true, ModifiedAt: 1700000000},
			{Path: "/media/pi/USB/a.txt", Name: "a.txt", SizeBytes: 12},
		}, entries)
	})

	t.Run("failures become RemoteIOError", func(t *testing.T) {
		fsys.On("Rename", "/media/pi/USB/a.txt", "b.txt").Return(errors.New("target already exists")).Once()

		err := gw.Rename(ctx, "pi", "/media/pi/USB/a.txt", "b.txt")
		var rerr *explorer.RemoteIOError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, "rename", rerr.Op)
		assert.Equal(t, "/media/pi/USB/a.txt", rerr.Path)
		assert.Contains(t, rerr.Detail, "target already exists")
	})

	t.Run("forwards mutations", func(t *testing.T) {
		fsys.On("CreateDirectory", "/media/pi/USB", "new").Return(nil).Once()
		fsys.On("Delete", "/media/pi/USB/docs", true).Return(nil).Once()
		fsys.On("Upload", "/home/me/x.bin", "/media/pi/USB/x.bin").Return(int64(3), nil).Once()
		fsys.On("Download", "/media/pi/USB/x.bin", "/home/me/Downloads/x.bin").Return(int64(3), nil).Once()

		require.NoError(t, gw.CreateDirectory(ctx, "pi", "/media/pi/USB", "new"))
		require.NoError(t, gw.Delete(ctx, "pi", "/media/pi/USB/docs", true))
		require.NoError(t, gw.Upload(ctx, "pi", "/home/me/x.bin", "/media/pi/USB/x.bin"))
		require.NoError(t, gw.Download(ctx, "pi", "/media/pi/USB/x.bin", "/home/me/Downloads/x.bin"))
		fsys.AssertExpectations(t)
	})

	t.Run("unknown connection", func(t *testing.T) {
		_, err := gw.List(ctx, "nope", "/")
		var rerr *explorer.RemoteIOError
		require.True(t, errors.As(err, &rerr))
		assert.Contains(t, rerr.Detail, "unknown connection")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := gw.Delete(cancelled, "pi", "/media/pi/USB/a.txt", false)
		assert.Error(t, err)
		fsys.AssertNotCalled(t, "Delete", "/media/pi/USB/a.txt", false)
	})
}

func TestRegistryLookups(t *testing.T) {
	r := newTestRegistry(false)
	fsys := addMock(r, "pi")

	conns := r.List()
	require.Len(t, conns, 1)
	assert.Equal(t, "pi", conns[0].ID)

	dev, err := r.Device("pi", "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "/media/pi/USB", dev.MountPoint)
	assert.Equal(t, explorer.Quota{SizeTotalBytes: 100, SizeFreeBytes: 40}, dev.Quota())

	_, err = r.Device("pi", "dev-2")
	assert.True(t, errors.Is(err, ErrUnknownDevice))
	_, err = r.Get("other")
	assert.True(t, errors.Is(err, ErrUnknownConnection))

	fsys.On("Close").Return(nil).Once()
	require.NoError(t, r.Disconnect("pi"))
	assert.Empty(t, r.List())
	assert.True(t, errors.Is(r.Disconnect("pi"), ErrUnknownConnection))
	fsys.AssertExpectations(t)
}

func TestAddLocal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".secret"), nil, 0o644))
	stamp := time.Unix(1700000000, 0)
	require.NoError(t, os.Chtimes(filepath.Join(root, "hello.txt"), stamp, stamp))

	r := newTestRegistry(false)
	conn, err := r.AddLocal(root)
	require.NoError(t, err)
	assert.True(t, conn.Local)
	require.Len(t, conn.StorageDevices, 1)
	assert.Equal(t, filepath.ToSlash(root), conn.StorageDevices[0].MountPoint)

	entries, err := r.Gateway().List(ctx, conn.ID, filepath.ToSlash(root))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello.txt", entries[0].Name)
	assert.Equal(t, int64(1700000000), entries[0].ModifiedAt)

	_, err = r.AddLocal("relative/dir")
	assert.Error(t, err)
	_, err = r.AddLocal(filepath.Join(root, "hello.txt"))
	assert.Error(t, err)

	require.NoError(t, r.Close())
	assert.Empty(t, r.List())
}
