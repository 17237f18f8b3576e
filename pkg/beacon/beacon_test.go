// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package beacon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adxyz/adtrack/pkg/log"
	"github.com/adxyz/adtrack/pkg/metric"
)

type hitRecorder struct {
	mu   sync.Mutex
	hits map[string]int
}

func newHitRecorder() *hitRecorder {
	return &hitRecorder{hits: make(map[string]int)}
}

func (h *hitRecorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.hits[r.URL.Path]++
		h.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (h *hitRecorder) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

func TestFire_Success(t *testing.T) {
	require := require.New(t)

	rec := newHitRecorder()
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	f := NewFirer(WithLogger(log.NoLog))
	require.NoError(f.Fire(context.Background(), srv.URL+"/imp"))
	require.Equal(1, rec.count("/imp"))
}

func TestFire_ErrorStatusStillCountsAsFired(t *testing.T) {
	require := require.New(t)

	rec := newHitRecorder()
	srv := httptest.NewServer(rec.handler(http.StatusInternalServerError))
	defer srv.Close()

	m, err := metric.NewMetrics()
	require.NoError(err)

	f := NewFirer(WithMetrics(m))

	// Beacon delivery is best-effort: a 5xx is still a completed fire.
	require.NoError(f.Fire(context.Background(), srv.URL+"/beacon"))
	require.Equal(1, rec.count("/beacon"))
}

func TestFire_NetworkFailureReturnsError(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	f := NewFirer()
	require.Error(f.Fire(context.Background(), srv.URL+"/gone"))
}

func TestFire_EmptyURI(t *testing.T) {
	require := require.New(t)

	f := NewFirer()
	require.ErrorIs(f.Fire(context.Background(), ""), ErrEmptyURI)
}

func TestFire_Timeout(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewFirer(WithClient(&http.Client{Timeout: 20 * time.Millisecond}))
	require.Error(f.Fire(context.Background(), srv.URL+"/slow"))
}

func TestFireAll_HitsEveryURI(t *testing.T) {
	require := require.New(t)

	rec := newHitRecorder()
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	f := NewFirer(WithConcurrency(2))
	f.FireAll(context.Background(), []string{
		srv.URL + "/a",
		srv.URL + "/b",
		srv.URL + "/c",
	})

	require.Equal(1, rec.count("/a"))
	require.Equal(1, rec.count("/b"))
	require.Equal(1, rec.count("/c"))
}

func TestFireAll_FailuresDoNotCancelSiblings(t *testing.T) {
	require := require.New(t)

	rec := newHitRecorder()
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	f := NewFirer()
	f.FireAll(context.Background(), []string{
		"http://127.0.0.1:1/unroutable",
		srv.URL + "/ok",
	})

	require.Equal(1, rec.count("/ok"))
}

func TestFireAll_CancelledContextDoesNotPanic(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFirer()
	require.NotPanics(func() {
		f.FireAll(ctx, []string{srv.URL + "/abandoned"})
	})
}
