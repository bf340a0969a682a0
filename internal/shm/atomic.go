package shm

import (
	"sync/atomic"
	"unsafe"
)

// sync/atomic has no byte-wide operations, so single-byte fields in shared memory are
// accessed through the aligned 32-bit word that contains them. The other three bytes
// of that word are never modified by these helpers.

var bigEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 0
}()

func wordOf(addr unsafe.Pointer) (*uint32, uint) {
	off := uintptr(addr) & 3
	shift := uint(off) * 8
	if bigEndian {
		shift = 24 - shift
	}
	return (*uint32)(unsafe.Add(addr, -int(off))), shift
}

// AtomicLoadUint8 loads a byte from shared memory atomically.
func AtomicLoadUint8(addr unsafe.Pointer) uint8 {
	w, shift := wordOf(addr)
	return uint8(atomic.LoadUint32(w) >> shift)
}

// AtomicStoreUint8 stores a byte to shared memory atomically.
// All writes made before the store are visible to a reader that observes the new value.
func AtomicStoreUint8(addr unsafe.Pointer, val uint8) {
	w, shift := wordOf(addr)
	mask := uint32(0xff) << shift
	for {
		old := atomic.LoadUint32(w)
		if atomic.CompareAndSwapUint32(w, old, old&^mask|uint32(val)<<shift) {
			return
		}
	}
}

// AtomicCompareAndSwapUint8 atomically compares and swaps a byte in shared memory.
func AtomicCompareAndSwapUint8(addr unsafe.Pointer, old, new uint8) bool {
	w, shift := wordOf(addr)
	mask := uint32(0xff) << shift
	for {
		cur := atomic.LoadUint32(w)
		if uint8(cur>>shift) != old {
			return false
		}
		if atomic.CompareAndSwapUint32(w, cur, cur&^mask|uint32(new)<<shift) {
			return true
		}
	}
}
