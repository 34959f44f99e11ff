// Package shm manages named shared memory segments: create-and-map,
// open-and-map read-only, unmap-and-close and destroy.
//
// Segments are files under a shared memory directory (/dev/shm by default), so
// they outlive the process that created them until destroyed. A segment is
// sized once at creation; readers map it at the size they find.
//
// The package is instrumented with OpenTelemetry metrics and tracing
// (OTel Go SDK v1.30.0); both default to no-op providers.
//
// Example usage:
//
//	mgr, err := shm.NewManager(shm.Options{Dir: shm.DefaultDir})
//	// ...
//	err = mgr.WithReadOnly(ctx, "handoff", func(seg *shm.Segment) error {
//	  return use(seg.Bytes())
//	})
//
// Platform-specific helpers are in internal/shm.
package shm
