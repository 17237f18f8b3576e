// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package beacon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adxyz/adtrack/pkg/log"
	"github.com/adxyz/adtrack/pkg/metric"
)

// DefaultTimeout bounds a single beacon request end to end.
const DefaultTimeout = 3 * time.Second

// defaultConcurrency caps parallel fires within one batch.
const defaultConcurrency = 8

// ErrEmptyURI is returned for a blank beacon URI.
var ErrEmptyURI = errors.New("empty beacon URI")

// Firer delivers tracking beacons: a single GET per URI with a short
// timeout. Delivery is best-effort by ad-industry convention: the HTTP
// status is read to complete the connection but never validated, a
// 4xx/5xx response still counts as fired, and network failures are
// logged, never retried, never propagated to the tick path.
type Firer struct {
	client      *http.Client
	log         log.Logger
	metrics     *metric.Metrics
	userAgent   string
	concurrency int
}

// Option configures a Firer.
type Option func(*Firer)

// WithClient replaces the HTTP client (tests inject one here).
func WithClient(client *http.Client) Option {
	return func(f *Firer) {
		f.client = client
	}
}

// WithLogger sets the firer's logger.
func WithLogger(logger log.Logger) Option {
	return func(f *Firer) {
		f.log = logger
	}
}

// WithMetrics wires beacon delivery counters.
func WithMetrics(m *metric.Metrics) Option {
	return func(f *Firer) {
		f.metrics = m
	}
}

// WithUserAgent sets the User-Agent header sent with beacons.
func WithUserAgent(ua string) Option {
	return func(f *Firer) {
		f.userAgent = ua
	}
}

// WithConcurrency caps the number of parallel fires in a batch.
func WithConcurrency(n int) Option {
	return func(f *Firer) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// NewFirer creates a firer with a DefaultTimeout client.
func NewFirer(opts ...Option) *Firer {
	f := &Firer{
		client:      &http.Client{Timeout: DefaultTimeout},
		log:         log.NoLog,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fire sends a single beacon GET. The returned error exists for the
// firer's own bookkeeping and for tests; production callers go through
// FireAll, which logs and swallows it.
func (f *Firer) Fire(ctx context.Context, uri string) error {
	if uri == "" {
		return ErrEmptyURI
	}

	if f.metrics != nil {
		f.metrics.BeaconsInFlight.Inc()
		defer f.metrics.BeaconsInFlight.Dec()
	}
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		f.countFailure("bad_uri")
		return fmt.Errorf("build beacon request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.countFailure("network")
		return fmt.Errorf("beacon request: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection completes and can be reused. The status
	// itself is not validated.
	io.Copy(io.Discard, resp.Body)

	if f.metrics != nil {
		f.metrics.BeaconsFired.Inc()
		f.metrics.FireDuration.Observe(time.Since(started).Seconds())
	}
	f.log.Debug("beacon fired",
		log.String("uri", uri),
		log.Int("status", resp.StatusCode))
	return nil
}

// FireAll fires a batch of beacons concurrently and waits for them.
// Failures are logged and swallowed; there is no ordering guarantee
// between beacons in one batch. Sessions call this on its own goroutine
// so the tick path never blocks, and cancel the context on teardown to
// abandon in-flight fires.
func (f *Firer) FireAll(ctx context.Context, uris []string) {
	if len(uris) == 0 {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, uri := range uris {
		g.Go(func() error {
			if err := f.Fire(ctx, uri); err != nil {
				f.log.Warn("beacon delivery failed",
					log.String("uri", uri),
					log.Error(err))
			}
			// Errors never cancel sibling fires.
			return nil
		})
	}
	g.Wait()
}

func (f *Firer) countFailure(reason string) {
	if f.metrics != nil {
		f.metrics.BeaconsFailed.WithLabelValues(reason).Inc()
	}
}
