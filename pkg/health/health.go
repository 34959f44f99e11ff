/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package health exposes liveness and readiness probes for a process that
// exchanges values through shared memory.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/srediag/shmx/pkg/exchange"
	"github.com/srediag/shmx/pkg/shm"
)

const (
	CheckDir       = "shm-dir"
	CheckFreeSpace = "shm-free-space"
	CheckDangling  = "shm-dangling"
)

const defaultCheckTimeout = 2 * time.Second

var (
	ErrNotDirectory = errors.New("not a directory")
	ErrLowSpace     = errors.New("low free space")
	ErrDangling     = errors.New("dangling segments")
)

// Options selects the probes. Zero fields disable the matching check.
type Options struct {
	// Dir is checked for liveness. Defaults to shm.DefaultDir.
	Dir string
	// MinFree is the free space Dir must keep for readiness.
	MinFree uint64
	// Tracker and MaxPendingAge fail readiness while a value exported by this
	// process waits longer than MaxPendingAge for its consumer.
	Tracker       *exchange.Tracker
	MaxPendingAge time.Duration
	// Registerer exports each check as a gauge under the shmx namespace.
	Registerer prometheus.Registerer
	// Timeout bounds each check. Defaults to two seconds.
	Timeout time.Duration
}

// New returns an http.Handler serving /live and /ready.
func New(opts Options) healthcheck.Handler {
	if opts.Dir == "" {
		opts.Dir = shm.DefaultDir
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultCheckTimeout
	}
	var h healthcheck.Handler
	if opts.Registerer != nil {
		h = healthcheck.NewMetricsHandler(opts.Registerer, "shmx")
	} else {
		h = healthcheck.NewHandler()
	}
	h.AddLivenessCheck(CheckDir, healthcheck.Timeout(DirCheck(opts.Dir), opts.Timeout))
	if opts.MinFree > 0 {
		h.AddReadinessCheck(CheckFreeSpace, FreeSpaceCheck(opts.Dir, opts.MinFree, opts.Timeout))
	}
	if opts.Tracker != nil && opts.MaxPendingAge > 0 {
		h.AddReadinessCheck(CheckDangling, DanglingCheck(opts.Tracker, opts.MaxPendingAge))
	}
	return h
}

// DirCheck fails when dir is missing or not a directory.
func DirCheck(dir string) healthcheck.Check {
	return func() error {
		fi, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
		}
		return nil
	}
}

// FreeSpaceCheck fails when dir has less than minFree bytes available.
func FreeSpaceCheck(dir string, minFree uint64, timeout time.Duration) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		stat, err := disk.UsageWithContext(ctx, dir)
		if err != nil {
			return err
		}
		if stat.Free < minFree {
			return fmt.Errorf("%w: %d bytes free in %s, want %d", ErrLowSpace, stat.Free, dir, minFree)
		}
		return nil
	}
}

// DanglingCheck fails while tracker holds a segment older than maxAge.
func DanglingCheck(tracker *exchange.Tracker, maxAge time.Duration) healthcheck.Check {
	return func() error {
		pending := tracker.Pending(maxAge)
		if len(pending) == 0 {
			return nil
		}
		names := make([]string, 0, len(pending))
		for _, p := range pending {
			names = append(names, p.Name)
		}
		return fmt.Errorf("%w: %s unconsumed since %v", ErrDangling,
			strings.Join(names, ", "), pending[0].Since.Format(time.RFC3339))
	}
}
