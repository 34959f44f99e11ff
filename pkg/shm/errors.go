package shm

import "errors"

var (
	// ErrSegmentCreateFailed reports that a segment could not be created or
	// sized: permissions, a name collision in exclusive mode, or no space.
	ErrSegmentCreateFailed = errors.New("segment create failed")
	// ErrSegmentNotFound reports that no segment exists under the name.
	ErrSegmentNotFound = errors.New("segment not found")
	// ErrSegmentOpenFailed reports an existing segment that could not be
	// opened or inspected.
	ErrSegmentOpenFailed = errors.New("segment open failed")
	// ErrMappingFailed reports a failed mmap. The descriptor is already closed.
	ErrMappingFailed = errors.New("segment mapping failed")
	// ErrDestroyFailed reports a segment that exists but could not be removed.
	ErrDestroyFailed = errors.New("segment destroy failed")
	// ErrInvalidName reports a segment name that cannot be used as a file name.
	ErrInvalidName = errors.New("invalid segment name")
	// ErrUnsupportedPlatform is returned outside Linux.
	ErrUnsupportedPlatform = errors.New("shared memory segments are not supported on this platform")
)
