// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatch

import (
	"sort"

	"github.com/adxyz/adtrack/pkg/catalog"
	"github.com/adxyz/adtrack/pkg/event"
	"github.com/adxyz/adtrack/pkg/log"
)

// Progress is a playback-progress tick supplied by the host.
type Progress struct {
	PositionMs uint64
	DurationMs uint64
}

// Fraction returns position/duration. A zero duration means the fraction
// is undefined and the tick must be ignored.
func (p Progress) Fraction() (float64, bool) {
	if p.DurationMs == 0 {
		return 0, false
	}
	return float64(p.PositionMs) / float64(p.DurationMs), true
}

// State is the dispatcher's position in the playback lifecycle.
type State int

const (
	StateNotStarted State = iota
	StatePlaying
	StateFirstQuartile
	StateMidpoint
	StateThirdQuartile
	StateCompleted
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StatePlaying:
		return "playing"
	case StateFirstQuartile:
		return "first_quartile"
	case StateMidpoint:
		return "midpoint"
	case StateThirdQuartile:
		return "third_quartile"
	case StateCompleted:
		return "completed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further firings can occur.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateSkipped
}

// Firing is a single "fire event K" decision. URIs may be empty: a
// crossed threshold with no beacons is a no-op firing but still marks
// the key fired.
type Firing struct {
	Key        event.Key
	URIs       []string
	AtFraction float64
}

type threshold struct {
	key      event.Key
	fraction float64
}

// Dispatcher consumes playback-progress ticks for one creative-playback
// session and decides which tracking events to fire. Each key fires
// exactly once per Dispatcher lifetime, in ascending threshold order,
// with catch-up firing on discontinuous progress (seeks).
//
// A Dispatcher performs no I/O and cannot fail. It is owned by a single
// playback session: ticks are single-writer and must not be delivered
// concurrently. It is never shared across creative instances.
type Dispatcher struct {
	catalog      *catalog.Catalog
	thresholds   []threshold
	fired        map[event.Key]bool
	lastFraction float64
	state        State
	log          log.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(logger log.Logger) Option {
	return func(d *Dispatcher) {
		d.log = logger
	}
}

// WithCustomThreshold registers an additional progress-driven key, e.g.
// an overlay reveal at a descriptor-supplied fraction. Custom thresholds
// fire with the same exactly-once catch-up semantics as lifecycle keys.
func WithCustomThreshold(key event.Key, fraction float64) Option {
	return func(d *Dispatcher) {
		d.thresholds = append(d.thresholds, threshold{key: key, fraction: fraction})
	}
}

// New creates a dispatcher over an immutable catalog. State starts fresh:
// a new creative impression must get a new Dispatcher, which is what
// prevents cross-impression double-firing.
func New(cat *catalog.Catalog, opts ...Option) *Dispatcher {
	if cat == nil {
		cat = catalog.New()
	}
	d := &Dispatcher{
		catalog: cat,
		fired:   make(map[event.Key]bool),
		state:   StateNotStarted,
		log:     log.NoLog,
	}
	for _, key := range event.LifecycleOrder() {
		fraction, _ := key.Threshold()
		d.thresholds = append(d.thresholds, threshold{key: key, fraction: fraction})
	}
	for _, opt := range opts {
		opt(d)
	}
	sort.SliceStable(d.thresholds, func(i, j int) bool {
		return d.thresholds[i].fraction < d.thresholds[j].fraction
	})
	return d
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return d.state
}

// Fired reports whether the key has already fired.
func (d *Dispatcher) Fired(key event.Key) bool {
	return d.fired[key]
}

// OnTick advances the state machine with a progress tick and returns the
// firings it triggers, already filtered to not-previously-fired, in
// ascending threshold order. Ticks with unknown duration are ignored.
// After Completed or Skipped, OnTick is a no-op by contract.
func (d *Dispatcher) OnTick(p Progress) []Firing {
	if d.state.Terminal() {
		return nil
	}
	fraction, ok := p.Fraction()
	if !ok {
		return nil
	}
	return d.advance(fraction)
}

// OnEnded handles a host-reported "playback ended" signal: an
// unconditional alias for crossing the Complete threshold regardless of
// the last numeric fraction. Any uncrossed lower thresholds fire first,
// in order.
func (d *Dispatcher) OnEnded() []Firing {
	if d.state.Terminal() {
		return nil
	}
	return d.advance(1.0)
}

// OnSkip fires the skip beacon once and moves to the terminal Skipped
// state. Calling it again, or after Completed, returns nothing.
func (d *Dispatcher) OnSkip() []Firing {
	if d.state.Terminal() || d.fired[event.Skip] {
		return nil
	}
	d.fired[event.Skip] = true
	d.state = StateSkipped
	d.log.Debug("skip invoked", log.Float64("fraction", d.lastFraction))
	return []Firing{{
		Key:        event.Skip,
		URIs:       d.catalog.URIs(event.Skip),
		AtFraction: d.lastFraction,
	}}
}

// advance fires every uncrossed threshold at or below fraction, in
// ascending order, so a large forward seek catches up all intermediate
// events on one tick while re-ticks at same or lower fractions fire
// nothing new.
func (d *Dispatcher) advance(fraction float64) []Firing {
	var firings []Firing
	for _, th := range d.thresholds {
		if fraction < th.fraction || d.fired[th.key] {
			continue
		}
		d.fired[th.key] = true
		firings = append(firings, Firing{
			Key:        th.key,
			URIs:       d.catalog.URIs(th.key),
			AtFraction: fraction,
		})
		d.state = stateAfter(th.key, d.state)
	}
	if fraction > d.lastFraction {
		d.lastFraction = fraction
	}
	return firings
}

func stateAfter(key event.Key, current State) State {
	switch key {
	case event.Start:
		if current < StatePlaying {
			return StatePlaying
		}
	case event.FirstQuartile:
		return StateFirstQuartile
	case event.Midpoint:
		return StateMidpoint
	case event.ThirdQuartile:
		return StateThirdQuartile
	case event.Complete:
		return StateCompleted
	}
	return current
}
