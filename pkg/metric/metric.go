// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all metrics for the tracking engine.
type Metrics struct {
	registry *prometheus.Registry

	// Beacon delivery metrics
	BeaconsFired    prometheus.Counter
	BeaconsFailed   *prometheus.CounterVec
	BeaconsInFlight prometheus.Gauge
	FireDuration    prometheus.Histogram

	// Parser metrics
	CreativesParsed  *prometheus.CounterVec
	ParseDegraded    prometheus.Counter
	MissingMediaFile prometheus.Counter

	// Dispatch metrics
	EventsDispatched *prometheus.CounterVec
	SessionsStarted  prometheus.Counter
	SessionsEnded    prometheus.Counter
}

// NewMetrics creates a metrics instance backed by its own registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		BeaconsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adtrack",
			Name:      "beacons_fired_total",
			Help:      "Total number of tracking beacons fired",
		}),
		BeaconsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adtrack",
			Name:      "beacons_failed_total",
			Help:      "Total number of beacon fires that failed by reason",
		}, []string{"reason"}),
		BeaconsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "adtrack",
			Name:      "beacons_in_flight",
			Help:      "Number of beacon requests currently in flight",
		}),
		FireDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adtrack",
			Name:      "beacon_fire_duration_seconds",
			Help:      "Time to complete a beacon request",
			Buckets:   prometheus.DefBuckets,
		}),

		CreativesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adtrack",
			Name:      "creatives_parsed_total",
			Help:      "Total number of VAST creatives parsed by attempt outcome",
		}, []string{"attempt"}),
		ParseDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adtrack",
			Name:      "parse_degraded_total",
			Help:      "Total number of parses that fell back to regex extraction",
		}),
		MissingMediaFile: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adtrack",
			Name:      "missing_media_file_total",
			Help:      "Total number of creatives with no resolvable media URL",
		}),

		EventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adtrack",
			Name:      "events_dispatched_total",
			Help:      "Total number of tracking events dispatched by key",
		}, []string{"event"}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adtrack",
			Name:      "sessions_started_total",
			Help:      "Total number of playback tracking sessions started",
		}),
		SessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "adtrack",
			Name:      "sessions_ended_total",
			Help:      "Total number of playback tracking sessions torn down",
		}),
	}

	collectors := []prometheus.Collector{
		m.BeaconsFired,
		m.BeaconsFailed,
		m.BeaconsInFlight,
		m.FireDuration,
		m.CreativesParsed,
		m.ParseDegraded,
		m.MissingMediaFile,
		m.EventsDispatched,
		m.SessionsStarted,
		m.SessionsEnded,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// GetGatherer returns the prometheus gatherer for metrics export.
func (m *Metrics) GetGatherer() prometheus.Gatherer {
	return m.registry
}

// GetRegisterer returns the prometheus registerer.
func (m *Metrics) GetRegisterer() prometheus.Registerer {
	return m.registry
}
