//go:build windows

package shm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

// MapRegion opens or creates the backing file, resizes it to opts.Size and maps a view of it (windows implementation).
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = os.MkdirAll(filepath.Dir(opts.Path), 0o755)

	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := f.Truncate(int64(opts.Size)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("truncate: %w", err)
	}
	size := uint64(opts.Size)
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE,
		uint32(size>>32), uint32(size), nil)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("CreateFileMapping: %w", err)
	}
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(opts.Size))
	if err != nil {
		_ = windows.CloseHandle(h)
		_ = f.Close()
		return nil, fmt.Errorf("MapViewOfFile: %w", err)
	}
	return &MappedRegion{
		Addr:   unsafe.Slice((*byte)(unsafe.Pointer(addr)), opts.Size),
		Path:   opts.Path,
		file:   f,
		handle: uintptr(h),
	}, nil
}

// FlushRegion writes the mapped view back to the backing file.
func FlushRegion(region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&region.Addr[0]))
	if err := windows.FlushViewOfFile(addr, uintptr(len(region.Addr))); err != nil {
		return fmt.Errorf("FlushViewOfFile: %w", err)
	}
	return nil
}

// UnmapRegion unmaps the view and closes the mapping and file handles (windows implementation).
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&region.Addr[0]))
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return fmt.Errorf("UnmapViewOfFile: %w", err)
	}
	region.Addr = nil
	if err := windows.CloseHandle(windows.Handle(region.handle)); err != nil {
		return fmt.Errorf("CloseHandle: %w", err)
	}
	if region.file != nil {
		if err := region.file.Close(); err != nil {
			return fmt.Errorf("close: %w", err)
		}
		region.file = nil
	}
	return nil
}
