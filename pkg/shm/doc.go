// Package shm provides the shared region backing the editor/engine mailbox.
//
// A Region is a fixed-size file mapped read/write and shared by two processes. It
// exposes raw byte access and Flush; it knows nothing about the protocol layered on
// top of it. Callers decide who may mutate which bytes (see package mailbox).
//
// Example usage:
//
//	region, err := shm.Open(ctx, shm.OpenOptions{
//	  Path: "shared_memory.bin",
//	  Size: 4096,
//	})
//	if err != nil {
//	  // *shm.StorageError: the mailbox cannot exist
//	}
//	defer region.Close()
//
// Every mutation batch must be followed by Flush before the peer is told to look at
// the bytes.
package shm
