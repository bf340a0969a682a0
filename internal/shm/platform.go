// Package shm contains platform-specific helpers for the memory-mapped mailbox file.
package shm

import (
	"errors"
	"os"
)

// ErrUnsupportedPlatform is returned by MapRegion on platforms without a mapping backend.
var ErrUnsupportedPlatform = errors.New("shm: memory mapping not supported on this platform")

// MappedRegion represents a memory-mapped shared region.
type MappedRegion struct {
	Addr []byte
	Path string

	file *os.File
	// handle is the file-mapping object on windows; unused elsewhere.
	handle uintptr
}

// MapOptions defines options for mapping a backing file.
type MapOptions struct {
	Path string
	Size int
}

// Function implementations are provided in platform-specific files (platform_unix.go, platform_windows.go).
