//go:build unix

package shm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// MapRegion opens or creates the backing file, resizes it to opts.Size and maps it shared (unix implementation).
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	//ignore mkdir error, OpenFile reports the real problem
	_ = os.MkdirAll(filepath.Dir(opts.Path), 0o755)

	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := f.Truncate(int64(opts.Size)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ftruncate: %w", err)
	}
	addr, err := unix.Mmap(int(f.Fd()), 0, opts.Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &MappedRegion{
		Addr: addr,
		Path: opts.Path,
		file: f,
	}, nil
}

// FlushRegion synchronously writes the mapped pages back to the backing file.
func FlushRegion(region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	if err := unix.Msync(region.Addr, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync: %w", err)
	}
	return nil
}

// UnmapRegion unmaps the region and closes its backing file (unix implementation).
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	if err := unix.Munmap(region.Addr); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	region.Addr = nil
	if region.file != nil {
		if err := region.file.Close(); err != nil {
			return fmt.Errorf("close: %w", err)
		}
		region.file = nil
	}
	return nil
}
