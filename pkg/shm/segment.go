package shm

import (
	"context"

	internalshm "github.com/srediag/shmx/internal/shm"
)

// Segment is one mapped shared memory object. It must be closed; Close is
// idempotent and safe on a nil Segment.
type Segment struct {
	name   string
	region *internalshm.MappedRegion
}

// Name is the segment name as given to the Manager, without a leading slash.
func (s *Segment) Name() string {
	return s.name
}

// Bytes returns the mapped memory. It is nil after Close and must not be
// retained past it.
func (s *Segment) Bytes() []byte {
	if s == nil || s.region == nil {
		return nil
	}
	return s.region.Addr
}

// Size is the number of mapped bytes.
func (s *Segment) Size() int {
	return len(s.Bytes())
}

// Writable reports whether the segment was mapped read-write.
func (s *Segment) Writable() bool {
	return s != nil && s.region != nil && s.region.Writable
}

// Close unmaps the memory and closes the descriptor. The named object itself
// is left in place; see Manager.Destroy.
func (s *Segment) Close() error {
	if s == nil {
		return nil
	}
	return internalshm.UnmapRegion(context.Background(), s.region)
}
