package registry

import (
	"context"
	"time"

	"pinas/explorer"
	"pinas/metrics"
	"pinas/service/fs"
)

// gateway serves explorer file operations from the registered connections.
type gateway struct {
	r *Registry
}

// Gateway returns the explorer.Gateway backed by this registry.
func (r *Registry) Gateway() explorer.Gateway {
	return &gateway{r: r}
}

func (g *gateway) List(ctx context.Context, connectionID, path string) ([]explorer.Entry, error) {
	var entries []*fs.FileSystemEntry
	err := g.do(ctx, "list", connectionID, path, func(fsys fs.FileSystem) (err error) {
		entries, err = fsys.List(path, g.r.opts.ShowHidden)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := make([]explorer.Entry, 0, len(entries))
	for _, e := range entries {
		result = append(result, explorer.Entry{
			Path:        e.Path,
			Name:        e.Name,
			IsDirectory: e.IsDir,
			SizeBytes:   e.Size,
			ModifiedAt:  e.ModTime,
		})
	}
	return result, nil
}

func (g *gateway) CreateDirectory(ctx context.Context, connectionID, path, name string) error {
	return g.do(ctx, "create", connectionID, explorer.Join(path, name), func(fsys fs.FileSystem) error {
		return fsys.CreateDirectory(path, name)
	})
}

func (g *gateway) Delete(ctx context.Context, connectionID, path string, isDirectory bool) error {
	return g.do(ctx, "delete", connectionID, path, func(fsys fs.FileSystem) error {
		return fsys.Delete(path, isDirectory)
	})
}

func (g *gateway) Rename(ctx context.Context, connectionID, path, newName string) error {
	return g.do(ctx, "rename", connectionID, path, func(fsys fs.FileSystem) error {
		return fsys.Rename(path, newName)
	})
}

func (g *gateway) Upload(ctx context.Context, connectionID, localPath, remotePath string) error {
	return g.do(ctx, "upload", connectionID, remotePath, func(fsys fs.FileSystem) error {
		n, err := fsys.Upload(ctx, localPath, remotePath)
		metrics.RecordUpload(n)
		return err
	})
}

func (g *gateway) Download(ctx context.Context, connectionID, remotePath, localPath string) error {
	return g.do(ctx, "download", connectionID, remotePath, func(fsys fs.FileSystem) error {
		n, err := fsys.Download(ctx, remotePath, localPath)
		metrics.RecordDownload(n)
		return err
	})
}

// do resolves the connection, runs fn and turns any failure into a
// RemoteIOError.
func (g *gateway) do(ctx context.Context, op, connectionID, path string, fn func(fs.FileSystem) error) error {
	if err := ctx.Err(); err != nil {
		return explorer.NewRemoteIOError(op, path, err)
	}

	fsys, err := g.r.fileSystem(connectionID)
	if err != nil {
		return explorer.NewRemoteIOError(op, path, err)
	}

	started := time.Now()
	err = fn(fsys)
	metrics.RecordRemoteOp(op, err, started)

	log := g.r.log.Debug()
	if err != nil {
		log = g.r.log.Warn().Err(err)
	}
	log.Str("op", op).Str("connection", connectionID).Str("path", path).
		Dur("took", time.Since(started)).Msg("remote op")

	if err != nil {
		return explorer.NewRemoteIOError(op, path, err)
	}
	return nil
}
