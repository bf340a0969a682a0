package shm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	internalshm "github.com/srediag/editor-mailbox/internal/shm"
)

var (
	// ErrInvalidSize is returned by Open for a non-positive size.
	ErrInvalidSize = errors.New("shm: invalid region size")
	// ErrOutOfRange is returned for byte ranges outside the region.
	ErrOutOfRange = errors.New("shm: range out of bounds")
	// ErrClosed is returned by operations on a closed region.
	ErrClosed = errors.New("shm: region closed")
)

// StorageError reports a failure of the backing file or its mapping. It is fatal for
// the mailbox: without a working mapping there is nothing to exchange messages through.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return "shm: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// Region is a memory-mapped backing file shared with a peer process.
type Region struct {
	mu     sync.RWMutex
	region *internalshm.MappedRegion
	path   string
	size   int
}

// OpenOptions defines options for creating or opening a region.
type OpenOptions struct {
	// Path of the backing file. Created (with its directory) if absent.
	Path string
	// Size is the region capacity in bytes; the file is resized to it.
	Size int
	// SkipSpaceCheck disables the free-space probe before the file is grown.
	SkipSpaceCheck bool
}

// Open creates or opens the backing file, resizes it and maps it shared.
// Errors other than ErrInvalidSize are *StorageError.
func Open(ctx context.Context, opts OpenOptions) (*Region, error) {
	if opts.Size <= 0 {
		return nil, ErrInvalidSize
	}
	if !opts.SkipSpaceCheck {
		if err := internalshm.CheckSpace(ctx, opts.Path, uint64(opts.Size)); err != nil {
			return nil, &StorageError{Op: "open", Path: opts.Path, Err: fmt.Errorf("size %d: %w", opts.Size, err)}
		}
	}
	region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{
		Path: opts.Path,
		Size: opts.Size,
	})
	if err != nil {
		return nil, &StorageError{Op: "open", Path: opts.Path, Err: err}
	}
	return &Region{
		region: region,
		path:   opts.Path,
		size:   opts.Size,
	}, nil
}

// Path returns the backing file path.
func (r *Region) Path() string { return r.path }

// Size returns the region capacity in bytes.
func (r *Region) Size() int { return r.size }

// Bytes returns the whole mapping. It is nil after Close.
func (r *Region) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.region == nil {
		return nil
	}
	return r.region.Addr
}

func (r *Region) span(off, end int) ([]byte, error) {
	if r.region == nil {
		return nil, ErrClosed
	}
	if off < 0 || end < off || end > r.size {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, off, end, r.size)
	}
	return r.region.Addr[off:end:end], nil
}

// ReadSlice returns a view of bytes [off, end). The view aliases the mapping.
func (r *Region) ReadSlice(off, end int) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.span(off, end)
}

// WriteSlice copies p into the region starting at off.
func (r *Region) WriteSlice(off int, p []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dst, err := r.span(off, off+len(p))
	if err != nil {
		return err
	}
	copy(dst, p)
	return nil
}

// Zero clears bytes [off, end).
func (r *Region) Zero(off, end int) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dst, err := r.span(off, end)
	if err != nil {
		return err
	}
	clear(dst)
	return nil
}

// Flush forces mapped writes out to the backing file so the peer's mapping sees them.
func (r *Region) Flush() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.region == nil {
		return ErrClosed
	}
	if err := internalshm.FlushRegion(r.region); err != nil {
		return &StorageError{Op: "flush", Path: r.path, Err: err}
	}
	return nil
}

// Close unmaps the region and closes the backing file. The file itself is kept.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.region == nil {
		return nil
	}
	err := internalshm.UnmapRegion(context.Background(), r.region)
	r.region = nil
	if err != nil {
		return &StorageError{Op: "close", Path: r.path, Err: err}
	}
	return nil
}
