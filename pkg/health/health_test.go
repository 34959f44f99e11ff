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

package health

import (
	"context"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shmx/internal/logging"
	"github.com/srediag/shmx/pkg/exchange"
	"github.com/srediag/shmx/pkg/wire"
)

func serve(t *testing.T, h http.Handler, path string) *testResponseWriter {
	req, err := http.NewRequest("GET", path+"?full=1", nil)
	require.NoError(t, err)
	rw := &testResponseWriter{}
	h.ServeHTTP(rw, req)
	return rw
}

func TestLiveness(t *testing.T) {
	dir := t.TempDir()
	h := New(Options{Dir: dir})
	assert.Equal(t, http.StatusOK, serve(t, h, "/live").status)

	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	h = New(Options{Dir: file})
	rw := serve(t, h, "/live")
	assert.Equal(t, http.StatusServiceUnavailable, rw.status)
	assert.Contains(t, string(rw.body), CheckDir)

	h = New(Options{Dir: filepath.Join(dir, "absent")})
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, "/ready").status)
}

func TestDirCheck(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, DirCheck(dir)())

	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	assert.ErrorIs(t, DirCheck(file)(), ErrNotDirectory)
	assert.ErrorIs(t, DirCheck(filepath.Join(dir, "none"))(), os.ErrNotExist)
}

func TestFreeSpaceCheck(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("statfs semantics differ")
	}
	dir := t.TempDir()
	assert.NoError(t, FreeSpaceCheck(dir, 1, time.Second)())
	assert.ErrorIs(t, FreeSpaceCheck(dir, math.MaxUint64, time.Second)(), ErrLowSpace)

	h := New(Options{Dir: dir, MinFree: math.MaxUint64})
	assert.Equal(t, http.StatusOK, serve(t, h, "/live").status)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, "/ready").status)
}

func TestDanglingCheck(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("segments need linux")
	}
	config := exchange.DefaultConfig()
	config.Dir = t.TempDir()
	config.CheckFreeSpace = false
	tracker := exchange.NewTracker()
	ch, err := exchange.NewChannel("pending", config, exchange.Options{Logger: logging.Nop(), Tracker: tracker})
	require.NoError(t, err)

	h := New(Options{Dir: config.Dir, Tracker: tracker, MaxPendingAge: time.Millisecond})
	assert.Equal(t, http.StatusOK, serve(t, h, "/ready").status)

	ctx := context.Background()
	require.NoError(t, ch.Export(ctx, wire.Int32(1)))
	time.Sleep(5 * time.Millisecond)
	rw := serve(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rw.status)
	assert.Contains(t, string(rw.body), "pending")
	assert.ErrorIs(t, DanglingCheck(tracker, time.Millisecond)(), ErrDangling)

	_, err = ch.Import(ctx, wire.TagInt32)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(t, h, "/ready").status)
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(Options{Dir: t.TempDir(), Registerer: reg})
	assert.Equal(t, http.StatusOK, serve(t, h, "/live").status)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "shmx_healthcheck_status" {
			found = true
		}
	}
	assert.True(t, found)
}

type testResponseWriter struct {
	headers http.Header
	status  int
	body    []byte
}

func (w *testResponseWriter) Header() http.Header {
	if w.headers == nil {
		w.headers = make(http.Header)
	}
	return w.headers
}

func (w *testResponseWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return len(b), nil
}

func (w *testResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
}
