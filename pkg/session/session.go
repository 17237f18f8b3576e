// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/adxyz/adtrack/pkg/beacon"
	"github.com/adxyz/adtrack/pkg/delivery"
	"github.com/adxyz/adtrack/pkg/dispatch"
	"github.com/adxyz/adtrack/pkg/event"
	"github.com/adxyz/adtrack/pkg/log"
	"github.com/adxyz/adtrack/pkg/metric"
)

// OverlayKey is the custom event fired when the descriptor's overlay
// threshold fraction is crossed.
const OverlayKey = "overlayShown"

// FiringEvent is what a session emits to its observer for UI/analytics.
type FiringEvent struct {
	Key             event.Key
	URIs            []string
	FiredAtFraction float64
}

// Observer receives firing events. It is called synchronously on the
// tick path and must be cheap.
type Observer func(FiringEvent)

// AppEventFunc is the application-level named-event callback used on the
// JSON delivery path instead of HTTP beacons.
type AppEventFunc func(name string)

// Session ties one creative impression's tracking together: a fresh
// dispatcher, the resolved fire strategy, and an observer stream. Each
// impression gets its own Session; dispatch state is never shared, so
// nothing can double-fire across impressions.
//
// The tick methods are single-writer: the host's tick loop must not call
// them concurrently. Firing batches run on their own goroutines against
// the immutable catalog, in parallel with later ticks.
type Session struct {
	id         string
	resolution *delivery.Resolution
	dispatcher *dispatch.Dispatcher
	firer      *beacon.Firer
	appEvent   AppEventFunc
	observer   Observer
	log        log.Logger
	metrics    *metric.Metrics

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	teardown sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithFirer replaces the beacon firer.
func WithFirer(f *beacon.Firer) Option {
	return func(s *Session) {
		s.firer = f
	}
}

// WithLogger sets the session's logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Session) {
		s.log = logger
	}
}

// WithMetrics wires session and dispatch counters.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithObserver registers the firing-event observer.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observer = o
	}
}

// WithAppEventFunc registers the application event callback for the JSON
// delivery path.
func WithAppEventFunc(fn AppEventFunc) Option {
	return func(s *Session) {
		s.appEvent = fn
	}
}

// New creates a tracking session for one creative impression.
func New(res *delivery.Resolution, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         uuid.NewString(),
		resolution: res,
		log:        log.NoLog,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.firer == nil {
		s.firer = beacon.NewFirer(beacon.WithLogger(s.log))
	}

	dispatchOpts := []dispatch.Option{dispatch.WithLogger(s.log)}
	if res.OverlayThreshold > 0 {
		dispatchOpts = append(dispatchOpts,
			dispatch.WithCustomThreshold(event.Custom(OverlayKey), res.OverlayThreshold))
	}
	s.dispatcher = dispatch.New(res.Catalog, dispatchOpts...)

	if s.metrics != nil {
		s.metrics.SessionsStarted.Inc()
	}
	s.log.Debug("tracking session started",
		log.String("session", s.id),
		log.String("mode", res.Mode.String()),
		log.String("strategy", res.Strategy.String()))
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Resolution returns the resolved creative this session tracks.
func (s *Session) Resolution() *delivery.Resolution {
	return s.resolution
}

// State returns the dispatcher's lifecycle state.
func (s *Session) State() dispatch.State {
	return s.dispatcher.State()
}

// OnTick feeds a playback-progress tick through the dispatcher and
// executes whatever it decides to fire. Cheap and non-blocking: beacon
// delivery happens on separate goroutines.
func (s *Session) OnTick(p dispatch.Progress) {
	s.execute(s.dispatcher.OnTick(p))
}

// OnSkipRequested fires the skip beacon once and terminates tracking.
func (s *Session) OnSkipRequested() {
	s.execute(s.dispatcher.OnSkip())
}

// OnPlaybackEnded treats the host's ended signal as an unconditional
// completion, catching up any unfired thresholds first.
func (s *Session) OnPlaybackEnded() {
	s.execute(s.dispatcher.OnEnded())
}

// Teardown ends the session. In-flight beacon fires are abandoned via
// context cancellation; abandoning them never panics and nothing is
// retried.
func (s *Session) Teardown() {
	s.teardown.Do(func() {
		s.cancel()
		if s.metrics != nil {
			s.metrics.SessionsEnded.Inc()
		}
		s.log.Debug("tracking session torn down", log.String("session", s.id))
	})
}

// Flush waits for in-flight firing batches to finish. Intended for hosts
// that want a clean shutdown and for tests; normal teardown does not wait.
func (s *Session) Flush() {
	s.inflight.Wait()
}

func (s *Session) execute(firings []dispatch.Firing) {
	for _, firing := range firings {
		if s.metrics != nil {
			s.metrics.EventsDispatched.WithLabelValues(firing.Key.String()).Inc()
		}
		if s.observer != nil {
			s.observer(FiringEvent{
				Key:             firing.Key,
				URIs:            firing.URIs,
				FiredAtFraction: firing.AtFraction,
			})
		}

		switch s.resolution.Strategy {
		case delivery.StrategyAppEvent:
			if s.appEvent == nil {
				continue
			}
			name := firing.Key.String()
			s.inflight.Add(1)
			go func() {
				defer s.inflight.Done()
				s.appEvent(name)
			}()
		default:
			if len(firing.URIs) == 0 {
				continue
			}
			uris := firing.URIs
			s.inflight.Add(1)
			go func() {
				defer s.inflight.Done()
				s.firer.FireAll(s.ctx, uris)
			}()
		}
	}
}
