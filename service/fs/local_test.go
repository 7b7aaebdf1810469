package fs

import (
	"context"
	"os"
	"path"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	fs := NewLocalFileSystem(zerolog.Nop())
	ctx := context.Background()

	t.Run("CreateDirectory and List", func(t *testing.T) {
		require.NoError(t, fs.CreateDirectory(tmpDir, "testdir"))
		require.NoError(t, os.WriteFile(path.Join(tmpDir, "testfile.txt"), []byte("hello"), 0o644))
		require.NoError(t, os.WriteFile(path.Join(tmpDir, ".hidden"), nil, 0o644))

		entries, err := fs.List(tmpDir, false)
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		var foundDir, foundFile bool
		for _, entry := range entries {
			if entry.Name == "testdir" {
				assert.True(t, entry.IsDir)
				assert.Equal(t, path.Join(tmpDir, "testdir"), entry.Path)
				foundDir = true
			}
			if entry.Name == "testfile.txt" {
				assert.False(t, entry.IsDir)
				assert.Equal(t, int64(5), entry.Size)
				foundFile = true
			}
		}
		assert.True(t, foundDir, "Directory not found")
		assert.True(t, foundFile, "File not found")

		entries, err = fs.List(tmpDir, true)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("CreateDirectory rejects existing and nested names", func(t *testing.T) {
		assert.Error(t, fs.CreateDirectory(tmpDir, "testdir"))
		assert.Error(t, fs.CreateDirectory(tmpDir, "a/b"))
		assert.Error(t, fs.CreateDirectory(tmpDir, ".."))
	})

	t.Run("List reports modification time in seconds", func(t *testing.T) {
		dir := t.TempDir()
		filePath := path.Join(dir, "old.txt")
		require.NoError(t, os.WriteFile(filePath, []byte("old"), 0o644))
		stamp := time.Unix(1700000000, 0)
		require.NoError(t, os.Chtimes(filePath, stamp, stamp))

		entries, err := fs.List(dir, false)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(1700000000), entries[0].ModTime)
	})

	t.Run("List missing directory", func(t *testing.T) {
		_, err := fs.List(path.Join(tmpDir, "missing"), false)
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		filePath := path.Join(tmpDir, "todelete.txt")
		require.NoError(t, os.WriteFile(filePath, []byte("to be deleted"), 0o644))
		require.NoError(t, fs.Delete(filePath, false))
		_, err := os.Stat(filePath)
		assert.True(t, os.IsNotExist(err))

		dirPath := path.Join(tmpDir, "full")
		require.NoError(t, os.MkdirAll(path.Join(dirPath, "inner"), 0o755))
		require.NoError(t, os.WriteFile(path.Join(dirPath, "inner", "f"), nil, 0o644))
		require.NoError(t, fs.Delete(dirPath, true))
		_, err = os.Stat(dirPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Rename", func(t *testing.T) {
		oldPath := path.Join(tmpDir, "oldname.txt")
		content := []byte("rename test")
		require.NoError(t, os.WriteFile(oldPath, content, 0o644))

		require.NoError(t, fs.Rename(oldPath, "newname.txt"))

		_, err := os.Stat(oldPath)
		assert.True(t, os.IsNotExist(err))

		newContent, err := os.ReadFile(path.Join(tmpDir, "newname.txt"))
		require.NoError(t, err)
		assert.Equal(t, content, newContent)
	})

	t.Run("Rename onto existing name", func(t *testing.T) {
		a := path.Join(tmpDir, "a.txt")
		b := path.Join(tmpDir, "b.txt")
		require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
		require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

		assert.Error(t, fs.Rename(a, "b.txt"))
		kept, err := os.ReadFile(b)
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), kept)
	})

	t.Run("Upload and Download", func(t *testing.T) {
		outside := t.TempDir()
		src := path.Join(outside, "photo.jpg")
		require.NoError(t, os.WriteFile(src, []byte("jpeg bytes"), 0o644))

		remote := path.Join(tmpDir, "photo.jpg")
		n, err := fs.Upload(ctx, src, remote)
		require.NoError(t, err)
		assert.Equal(t, int64(10), n)

		local := path.Join(outside, "back", "photo.jpg")
		n, err = fs.Download(ctx, remote, local)
		require.NoError(t, err)
		assert.Equal(t, int64(10), n)

		got, err := os.ReadFile(local)
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg bytes"), got)
		_, err = os.Stat(local + ".part")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Download of a directory fails", func(t *testing.T) {
		_, err := fs.Download(ctx, path.Join(tmpDir, "testdir"), path.Join(t.TempDir(), "x"))
		assert.Error(t, err)
	})

	t.Run("Cancelled copy leaves nothing behind", func(t *testing.T) {
		src := path.Join(t.TempDir(), "big.bin")
		require.NoError(t, os.WriteFile(src, make([]byte, 1024), 0o644))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		dest := path.Join(t.TempDir(), "big.bin")
		_, err := fs.Download(cancelled, src, dest)
		assert.Error(t, err)
		_, err = os.Stat(dest)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestDiskUsage(t *testing.T) {
	total, free, err := DiskUsage(t.TempDir())
	require.NoError(t, err)
	assert.LessOrEqual(t, free, total)
}
