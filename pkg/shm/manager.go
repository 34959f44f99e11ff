package shm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/disk"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/srediag/shmx/internal/logging"
	internalshm "github.com/srediag/shmx/internal/shm"
)

// DefaultDir is where Linux keeps POSIX shared memory objects.
const DefaultDir = "/dev/shm"

const (
	instrumentationName = "github.com/srediag/shmx/pkg/shm"
	maxNameLen          = 255
)

// Options holds Manager parameters.
type Options struct {
	// Dir holds the segment files. Defaults to DefaultDir.
	Dir string
	// Mode is the permission of created segments. Defaults to 0600.
	Mode os.FileMode
	// Exclusive makes Create fail when the name already exists instead of
	// truncating the existing segment.
	Exclusive bool
	// CheckFreeSpace rejects a Create that does not fit the free space of Dir.
	CheckFreeSpace bool
	Logger         *logging.Logger
	Meter          metric.Meter
	Tracer         trace.Tracer
}

// Manager creates, opens and destroys named segments in one directory.
type Manager struct {
	dir       string
	mode      os.FileMode
	exclusive bool
	checkFree bool
	logger    *logging.Logger
	tracer    trace.Tracer

	created     metric.Int64Counter
	destroyed   metric.Int64Counter
	mappedBytes metric.Int64Counter

	freeSpace func(ctx context.Context, dir string) (uint64, error)
}

// NewManager returns a Manager for opts.
func NewManager(opts Options) (*Manager, error) {
	m := &Manager{
		dir:       opts.Dir,
		mode:      opts.Mode,
		exclusive: opts.Exclusive,
		checkFree: opts.CheckFreeSpace,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		freeSpace: diskFree,
	}
	if m.dir == "" {
		m.dir = DefaultDir
	}
	if m.mode == 0 {
		m.mode = 0600
	}
	if m.logger == nil {
		m.logger = logging.Default()
	}
	if m.tracer == nil {
		m.tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
	}
	meter := opts.Meter
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	var err error
	if m.created, err = meter.Int64Counter("shmx.segments.created",
		metric.WithDescription("Segments created and mapped for writing.")); err != nil {
		return nil, err
	}
	if m.destroyed, err = meter.Int64Counter("shmx.segments.destroyed",
		metric.WithDescription("Segments removed from the shared memory directory.")); err != nil {
		return nil, err
	}
	if m.mappedBytes, err = meter.Int64Counter("shmx.segments.mapped_bytes",
		metric.WithDescription("Bytes mapped into this process."), metric.WithUnit("By")); err != nil {
		return nil, err
	}
	return m, nil
}

func diskFree(ctx context.Context, dir string) (uint64, error) {
	stat, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return 0, err
	}
	return stat.Free, nil
}

// Dir is the directory holding the segments.
func (m *Manager) Dir() string {
	return m.dir
}

// ValidateName checks that name can be used as a segment name. A single
// leading slash, as in POSIX shm_open names, is accepted and dropped.
func ValidateName(name string) error {
	n := strings.TrimPrefix(name, "/")
	switch {
	case n == "", n == ".", n == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case len(n) > maxNameLen:
		return fmt.Errorf("%w: %d bytes, limit %d", ErrInvalidName, len(n), maxNameLen)
	case strings.ContainsAny(n, "/\x00"):
		return fmt.Errorf("%w: %q contains a path separator or NUL", ErrInvalidName, name)
	}
	return nil
}

// Path resolves a segment name to its file.
func (m *Manager) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(m.dir, strings.TrimPrefix(name, "/")), nil
}

// Create creates (or truncates) the named segment to exactly size bytes and
// maps it writable.
func (m *Manager) Create(ctx context.Context, name string, size int) (seg *Segment, err error) {
	ctx, span := m.tracer.Start(ctx, "shm.create", trace.WithAttributes(
		attribute.String("shm.name", name),
		attribute.Int("shm.size", size),
	))
	defer func() { endSpan(span, err) }()

	path, err := m.Path(name)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %s: negative size %d", ErrSegmentCreateFailed, name, size)
	}
	if m.checkFree {
		if err := m.ensureSpace(ctx, name, size); err != nil {
			return nil, err
		}
	}
	region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{
		Path:      path,
		Size:      size,
		Create:    true,
		Exclusive: m.exclusive,
		Mode:      uint32(m.mode.Perm()),
	})
	if err != nil {
		return nil, classify(err, name, ErrSegmentCreateFailed)
	}
	m.created.Add(ctx, 1)
	m.mappedBytes.Add(ctx, int64(size), metric.WithAttributes(attribute.String("shm.mode", "rw")))
	m.logger.Tracef("segment %s created, %d bytes at %s", name, size, path)
	return &Segment{name: strings.TrimPrefix(name, "/"), region: region}, nil
}

// OpenReadOnly opens an existing segment and maps it read-only at its actual
// size.
func (m *Manager) OpenReadOnly(ctx context.Context, name string) (seg *Segment, err error) {
	ctx, span := m.tracer.Start(ctx, "shm.open", trace.WithAttributes(attribute.String("shm.name", name)))
	defer func() { endSpan(span, err) }()

	path, err := m.Path(name)
	if err != nil {
		return nil, err
	}
	region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{Path: path})
	if err != nil {
		return nil, classify(err, name, ErrSegmentOpenFailed)
	}
	span.SetAttributes(attribute.Int("shm.size", region.Size()))
	m.mappedBytes.Add(ctx, int64(region.Size()), metric.WithAttributes(attribute.String("shm.mode", "ro")))
	m.logger.Tracef("segment %s opened, %d bytes", name, region.Size())
	return &Segment{name: strings.TrimPrefix(name, "/"), region: region}, nil
}

// Destroy removes the named segment so later opens fail with
// ErrSegmentNotFound. Mappings that are still open stay readable.
func (m *Manager) Destroy(ctx context.Context, name string) (err error) {
	ctx, span := m.tracer.Start(ctx, "shm.destroy", trace.WithAttributes(attribute.String("shm.name", name)))
	defer func() { endSpan(span, err) }()

	path, err := m.Path(name)
	if err != nil {
		return err
	}
	if err := internalshm.Unlink(path); err != nil {
		return classify(err, name, ErrDestroyFailed)
	}
	m.destroyed.Add(ctx, 1)
	m.logger.Tracef("segment %s destroyed", name)
	return nil
}

// Exists reports whether the named segment is present.
func (m *Manager) Exists(name string) (bool, error) {
	path, err := m.Path(name)
	if err != nil {
		return false, err
	}
	ok, err := internalshm.Exists(path)
	if err != nil {
		return false, classify(err, name, ErrSegmentOpenFailed)
	}
	return ok, nil
}

// WithReadOnly opens the named segment, passes it to fn and closes it on
// every exit path, including a panic in fn.
func (m *Manager) WithReadOnly(ctx context.Context, name string, fn func(*Segment) error) (err error) {
	seg, err := m.OpenReadOnly(ctx, name)
	if err != nil {
		return err
	}
	defer m.release(seg, &err)
	return fn(seg)
}

// WithCreate creates the named segment, passes it to fn and closes it on
// every exit path. The segment is not destroyed when fn fails.
func (m *Manager) WithCreate(ctx context.Context, name string, size int, fn func(*Segment) error) (err error) {
	seg, err := m.Create(ctx, name, size)
	if err != nil {
		return err
	}
	defer m.release(seg, &err)
	return fn(seg)
}

func (m *Manager) release(seg *Segment, errp *error) {
	cerr := seg.Close()
	if cerr == nil {
		return
	}
	if *errp == nil {
		*errp = cerr
		return
	}
	m.logger.Warnf("segment %s close failed after error %v: %v", seg.Name(), *errp, cerr)
}

func (m *Manager) ensureSpace(ctx context.Context, name string, size int) error {
	free, err := m.freeSpace(ctx, m.dir)
	if err != nil {
		m.logger.Warnf("free space of %s unknown, creating %s anyway: %v", m.dir, name, err)
		return nil
	}
	if uint64(size) > free {
		return fmt.Errorf("%w: %s: need %d bytes, %d free in %s: %w",
			ErrSegmentCreateFailed, name, size, free, m.dir, syscall.ENOSPC)
	}
	return nil
}

// classify maps a platform error to the package taxonomy, keeping the
// underlying errno reachable through errors.Is.
func classify(err error, name string, fallback error) error {
	switch {
	case errors.Is(err, errors.ErrUnsupported):
		return fmt.Errorf("%w: %s: %w", ErrUnsupportedPlatform, name, err)
	case internalshm.Op(err) == "mmap":
		return fmt.Errorf("%w: %s: %w", ErrMappingFailed, name, err)
	case errors.Is(err, os.ErrNotExist) && fallback != ErrSegmentCreateFailed:
		return fmt.Errorf("%w: %s: %w", ErrSegmentNotFound, name, err)
	}
	return fmt.Errorf("%w: %s: %w", fallback, name, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
