//go:build linux

package shm

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"
)

// MapRegion maps or creates a shared memory region (Linux implementation).
//
// With Create set the object is sized to exactly opts.Size and mapped
// read-write; otherwise the existing object is mapped read-only at the size
// reported by fstat.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if opts.Create {
		return createRegion(opts)
	}
	return openRegion(opts)
}

func createRegion(opts MapOptions) (*MappedRegion, error) {
	flags := unix.O_RDWR | unix.O_CREAT | unix.O_CLOEXEC
	if opts.Exclusive {
		flags |= unix.O_EXCL
	} else {
		flags |= unix.O_TRUNC
	}
	mode := opts.Mode
	if mode == 0 {
		mode = 0600
	}
	fd, err := unix.Open(opts.Path, flags, mode)
	if err != nil {
		return nil, &OpError{Op: "open", Path: opts.Path, Err: err}
	}
	// a half-built object would look populated to a reader
	abort := func(op string, cause error) (*MappedRegion, error) {
		_ = unix.Close(fd)
		_ = unix.Unlink(opts.Path)
		return nil, &OpError{Op: op, Path: opts.Path, Err: cause}
	}
	if err := unix.Ftruncate(fd, int64(opts.Size)); err != nil {
		return abort("ftruncate", err)
	}
	region := &MappedRegion{Path: opts.Path, Writable: true, fd: fd}
	if opts.Size == 0 {
		return region, nil
	}
	addr, err := unix.Mmap(fd, 0, opts.Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return abort("mmap", err)
	}
	region.Addr = addr
	return region, nil
}

func openRegion(opts MapOptions) (*MappedRegion, error) {
	fd, err := unix.Open(opts.Path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &OpError{Op: "open", Path: opts.Path, Err: err}
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, &OpError{Op: "fstat", Path: opts.Path, Err: err}
	}
	region := &MappedRegion{Path: opts.Path, fd: fd}
	if st.Size == 0 {
		return region, nil
	}
	addr, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, &OpError{Op: "mmap", Path: opts.Path, Err: err}
	}
	region.Addr = addr
	return region, nil
}

// UnmapRegion unmaps and closes the shared memory region (Linux implementation).
// Calling it again on the same region is a no-op.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.closed {
		return nil
	}
	region.closed = true
	var errs []error
	if region.Addr != nil {
		if err := unix.Munmap(region.Addr); err != nil {
			errs = append(errs, &OpError{Op: "munmap", Path: region.Path, Err: err})
		}
		region.Addr = nil
	}
	if err := unix.Close(region.fd); err != nil {
		errs = append(errs, &OpError{Op: "close", Path: region.Path, Err: err})
	}
	return errors.Join(errs...)
}

// Unlink removes the named object. Existing mappings stay valid until unmapped.
func Unlink(path string) error {
	if err := unix.Unlink(path); err != nil {
		return &OpError{Op: "unlink", Path: path, Err: err}
	}
	return nil
}

// Exists reports whether the named object is present.
func Exists(path string) (bool, error) {
	var st unix.Stat_t
	err := unix.Stat(path, &st)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.ENOENT):
		return false, nil
	default:
		return false, &OpError{Op: "stat", Path: path, Err: err}
	}
}
