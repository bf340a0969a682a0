package shm

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// ErrNoSpaceLeft is returned when the filesystem holding the backing file cannot fit it.
var ErrNoSpaceLeft = errors.New("shm: not enough free space for the backing file")

// CheckSpace reports whether a backing file at path can grow to size bytes.
// Only the growth beyond the file's current size is counted. A filesystem that
// cannot be queried is assumed to have room.
func CheckSpace(ctx context.Context, path string, size uint64) error {
	var current uint64
	if fi, err := os.Stat(path); err == nil {
		current = uint64(fi.Size())
	}
	if current >= size {
		return nil
	}
	dir := filepath.Dir(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
	stat, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return nil
	}
	if stat.Free < size-current {
		return ErrNoSpaceLeft
	}
	return nil
}
