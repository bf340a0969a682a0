//go:build !unix && !windows

package shm

import "context"

// MapRegion is not implemented on this platform.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	return nil, ErrUnsupportedPlatform
}

// FlushRegion is not implemented on this platform.
func FlushRegion(region *MappedRegion) error {
	return ErrUnsupportedPlatform
}

// UnmapRegion is not implemented on this platform.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	return nil
}
