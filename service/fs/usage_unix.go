//go:build unix

package fs

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DiskUsage reports the size and free space of the filesystem holding p.
func DiskUsage(p string) (total, free uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(p, &st); err != nil {
		return 0, 0, errors.Wrapf(err, "statfs %s", p)
	}
	bsize := uint64(st.Bsize)
	return st.Blocks * bsize, st.Bavail * bsize, nil
}
