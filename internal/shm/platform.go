// Package shm contains the platform-specific shared memory primitives behind
// pkg/shm: open, size, map, unmap and unlink of one file-backed object.
package shm

import (
	"errors"
)

// MappedRegion represents a memory-mapped shared region.
//
// Addr is only valid until Unmap is called. A zero-length object has a nil
// Addr and no mapping.
type MappedRegion struct {
	Addr     []byte
	Path     string
	Writable bool

	fd     int
	closed bool
}

// Size is the number of mapped bytes.
func (r *MappedRegion) Size() int {
	return len(r.Addr)
}

// MapOptions defines options for mapping shared memory.
type MapOptions struct {
	Path string
	// Size is required when Create is set and ignored otherwise; an opened
	// object is mapped at its actual size.
	Size int
	// Create creates the object if missing, truncating an existing one unless
	// Exclusive is also set.
	Create    bool
	Exclusive bool
	Mode      uint32
}

// OpError records the failing system call.
type OpError struct {
	Op   string // "open", "stat", "fstat", "ftruncate", "mmap", "munmap", "close", "unlink"
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error { return e.Err }

// Op returns the failing operation of err, or "" when err carries no OpError.
func Op(err error) string {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Op
	}
	return ""
}
