//go:build linux

package shm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sys/unix"

	"github.com/srediag/shmx/internal/logging"
)

type ManagerTestSuite struct {
	suite.Suite
	mgr *Manager
	ctx context.Context
}

func (s *ManagerTestSuite) SetupTest() {
	mgr, err := NewManager(Options{Dir: s.T().TempDir(), Logger: logging.Nop()})
	s.Require().NoError(err)
	s.mgr = mgr
	s.ctx = context.Background()
}

func (s *ManagerTestSuite) TestCreateOpenDestroy() {
	seg, err := s.mgr.Create(s.ctx, "value", 16)
	s.Require().NoError(err)
	s.Require().True(seg.Writable())
	s.Require().Equal(16, seg.Size())
	copy(seg.Bytes(), "0123456789abcdef")
	s.Require().NoError(seg.Close())
	s.Require().Nil(seg.Bytes())

	ro, err := s.mgr.OpenReadOnly(s.ctx, "value")
	s.Require().NoError(err)
	s.Require().False(ro.Writable())
	s.Require().Equal("0123456789abcdef", string(ro.Bytes()))

	s.Require().NoError(s.mgr.Destroy(s.ctx, "value"))
	// still mapped after unlink
	s.Require().Equal("0123456789abcdef", string(ro.Bytes()))
	s.Require().NoError(ro.Close())

	_, err = s.mgr.OpenReadOnly(s.ctx, "value")
	s.Require().ErrorIs(err, ErrSegmentNotFound)
	s.Require().ErrorIs(err, unix.ENOENT)
}

func (s *ManagerTestSuite) TestOpenDiscoversActualSize() {
	path, err := s.mgr.Path("external")
	s.Require().NoError(err)
	s.Require().NoError(os.WriteFile(path, make([]byte, 70000), 0600))

	seg, err := s.mgr.OpenReadOnly(s.ctx, "external")
	s.Require().NoError(err)
	defer seg.Close()
	s.Require().Equal(70000, seg.Size())
}

func (s *ManagerTestSuite) TestDestroyMissing() {
	err := s.mgr.Destroy(s.ctx, "never")
	s.Require().ErrorIs(err, ErrSegmentNotFound)
}

func (s *ManagerTestSuite) TestExists() {
	ok, err := s.mgr.Exists("x")
	s.Require().NoError(err)
	s.Require().False(ok)

	s.Require().NoError(s.mgr.WithCreate(s.ctx, "x", 8, func(*Segment) error { return nil }))
	ok, err = s.mgr.Exists("x")
	s.Require().NoError(err)
	s.Require().True(ok)
}

func (s *ManagerTestSuite) TestNames() {
	for _, bad := range []string{"", "/", ".", "..", "a/b", "nul\x00", strings.Repeat("n", 256)} {
		_, err := s.mgr.Create(s.ctx, bad, 8)
		s.Require().ErrorIs(err, ErrInvalidName, "%q", bad)
	}

	seg, err := s.mgr.Create(s.ctx, "/posix-style", 8)
	s.Require().NoError(err)
	s.Require().Equal("posix-style", seg.Name())
	s.Require().NoError(seg.Close())
	s.Require().FileExists(filepath.Join(s.mgr.Dir(), "posix-style"))
}

func (s *ManagerTestSuite) TestExclusiveCollision() {
	mgr, err := NewManager(Options{Dir: s.mgr.Dir(), Exclusive: true, Logger: logging.Nop()})
	s.Require().NoError(err)

	seg, err := mgr.Create(s.ctx, "once", 8)
	s.Require().NoError(err)
	s.Require().NoError(seg.Close())

	_, err = mgr.Create(s.ctx, "once", 8)
	s.Require().ErrorIs(err, ErrSegmentCreateFailed)
	s.Require().ErrorIs(err, unix.EEXIST)
}

func (s *ManagerTestSuite) TestCreateInMissingDir() {
	mgr, err := NewManager(Options{Dir: filepath.Join(s.mgr.Dir(), "absent"), Logger: logging.Nop()})
	s.Require().NoError(err)
	_, err = mgr.Create(s.ctx, "x", 8)
	s.Require().ErrorIs(err, ErrSegmentCreateFailed)
}

func (s *ManagerTestSuite) TestFreeSpaceCheck() {
	mgr, err := NewManager(Options{Dir: s.mgr.Dir(), CheckFreeSpace: true, Logger: logging.Nop()})
	s.Require().NoError(err)
	mgr.freeSpace = func(context.Context, string) (uint64, error) { return 100, nil }

	_, err = mgr.Create(s.ctx, "big", 101)
	s.Require().ErrorIs(err, ErrSegmentCreateFailed)
	s.Require().ErrorIs(err, unix.ENOSPC)
	ok, err := mgr.Exists("big")
	s.Require().NoError(err)
	s.Require().False(ok)

	seg, err := mgr.Create(s.ctx, "fits", 100)
	s.Require().NoError(err)
	s.Require().NoError(seg.Close())

	mgr.freeSpace = func(context.Context, string) (uint64, error) { return 0, errors.New("statfs failed") }
	seg, err = mgr.Create(s.ctx, "unknown", 8)
	s.Require().NoError(err)
	s.Require().NoError(seg.Close())
}

func (s *ManagerTestSuite) TestWithReadOnlyReleasesOnError() {
	s.Require().NoError(s.mgr.WithCreate(s.ctx, "r", 4, func(seg *Segment) error {
		copy(seg.Bytes(), "data")
		return nil
	}))

	var held *Segment
	boom := errors.New("validation failed")
	err := s.mgr.WithReadOnly(s.ctx, "r", func(seg *Segment) error {
		held = seg
		return boom
	})
	s.Require().ErrorIs(err, boom)
	s.Require().Nil(held.Bytes())
}

func (s *ManagerTestSuite) TestWithReadOnlyReleasesOnPanic() {
	s.Require().NoError(s.mgr.WithCreate(s.ctx, "p", 4, func(*Segment) error { return nil }))

	var held *Segment
	s.Require().Panics(func() {
		_ = s.mgr.WithReadOnly(s.ctx, "p", func(seg *Segment) error {
			held = seg
			panic("decoder bug")
		})
	})
	s.Require().Nil(held.Bytes())
}

func (s *ManagerTestSuite) TestCloseIsIdempotent() {
	seg, err := s.mgr.Create(s.ctx, "c", 8)
	s.Require().NoError(err)
	s.Require().NoError(seg.Close())
	s.Require().NoError(seg.Close())

	var nilSeg *Segment
	s.Require().NoError(nilSeg.Close())
	s.Require().Nil(nilSeg.Bytes())
}

func (s *ManagerTestSuite) TestZeroSizeSegment() {
	seg, err := s.mgr.Create(s.ctx, "z", 0)
	s.Require().NoError(err)
	s.Require().Equal(0, seg.Size())
	s.Require().NoError(seg.Close())

	ro, err := s.mgr.OpenReadOnly(s.ctx, "z")
	s.Require().NoError(err)
	s.Require().Equal(0, ro.Size())
	s.Require().NoError(ro.Close())
}

func (s *ManagerTestSuite) TestDevShmSmoke() {
	if fi, err := os.Stat(DefaultDir); err != nil || !fi.IsDir() {
		s.T().Skip("no /dev/shm")
	}
	mgr, err := NewManager(Options{Logger: logging.Nop(), CheckFreeSpace: true})
	s.Require().NoError(err)
	name := fmt.Sprintf("shmx-test-%d-%d", os.Getpid(), time.Now().UnixNano())

	s.Require().NoError(mgr.WithCreate(s.ctx, name, 8, func(seg *Segment) error {
		copy(seg.Bytes(), "devshm!!")
		return nil
	}))
	s.Require().NoError(mgr.WithReadOnly(s.ctx, name, func(seg *Segment) error {
		s.Require().Equal("devshm!!", string(seg.Bytes()))
		return nil
	}))
	s.Require().NoError(mgr.Destroy(s.ctx, name))
}

func TestManagerTestSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}
