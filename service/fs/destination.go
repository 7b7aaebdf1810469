package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"pinas/config"
	"pinas/explorer"
)

// DownloadDirSupplier places every download directly in Dir under the
// entry's name. Conflict decides what happens when that file exists.
type DownloadDirSupplier struct {
	Dir      string
	Conflict string
}

// Destination implements explorer.DestinationSupplier.
func (d DownloadDirSupplier) Destination(ctx context.Context, entry explorer.Entry) (string, error) {
	name := entry.Name
	if !validName(name) {
		return "", errors.Errorf("cannot download %q to a local file", entry.Path)
	}

	dest := filepath.Join(d.Dir, name)
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest, nil
	}

	switch d.Conflict {
	case config.ConflictSkip:
		return "", explorer.ErrUserCancelled
	case config.ConflictRename:
		return getUniqueFilename(dest), nil
	}
	return dest, nil
}

// getUniqueFilename appends _1, _2, ... to the base name until the path is free.
func getUniqueFilename(p string) string {
	dir, name := filepath.Split(p)
	baseName, suffix := name, ""
	if idx := strings.LastIndex(name, "."); idx > 0 {
		baseName, suffix = name[:idx], name[idx:]
	}

	var result string
	for num := 1; ; num++ {
		result = filepath.Join(dir, fmt.Sprintf("%s_%d%s", baseName, num, suffix))
		if _, err := os.Stat(result); os.IsNotExist(err) {
			break
		}
	}
	return result
}
