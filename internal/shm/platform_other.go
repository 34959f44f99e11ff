//go:build !linux

package shm

import (
	"context"
	"errors"
)

// MapRegion is not implemented outside Linux.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	return nil, &OpError{Op: "open", Path: opts.Path, Err: errors.ErrUnsupported}
}

// UnmapRegion is not implemented outside Linux.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	return nil
}

// Unlink is not implemented outside Linux.
func Unlink(path string) error {
	return &OpError{Op: "unlink", Path: path, Err: errors.ErrUnsupported}
}

// Exists is not implemented outside Linux.
func Exists(path string) (bool, error) {
	return false, &OpError{Op: "stat", Path: path, Err: errors.ErrUnsupported}
}
