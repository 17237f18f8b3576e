// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package event

// Key identifies a tracking event within a creative playback session.
// The fixed lifecycle keys are ordered by ascending progress threshold;
// any other value is a custom vendor or companion event.
type Key string

const (
	Start         Key = "start"
	FirstQuartile Key = "firstQuartile"
	Midpoint      Key = "midpoint"
	ThirdQuartile Key = "thirdQuartile"
	Complete      Key = "complete"
	Skip          Key = "skip"
)

// CompleteThreshold is deliberately below 1.0: players that estimate
// duration rarely report an exact final fraction, and a host-reported
// ended signal is an unconditional alias for crossing it.
const CompleteThreshold = 0.98

// lifecycleThresholds maps progress-driven keys to the fraction at which
// they fire. Skip is host-driven and has no threshold.
var lifecycleThresholds = map[Key]float64{
	Start:         0.0,
	FirstQuartile: 0.25,
	Midpoint:      0.50,
	ThirdQuartile: 0.75,
	Complete:      CompleteThreshold,
}

// lifecycleOrder lists the progress-driven keys in ascending threshold order.
var lifecycleOrder = []Key{Start, FirstQuartile, Midpoint, ThirdQuartile, Complete}

// Custom returns a key for a vendor-specific or companion event,
// e.g. Custom("companionClick") or Custom("overlayShown").
func Custom(name string) Key {
	return Key(name)
}

// Threshold returns the progress fraction at which the key fires and
// whether the key is a progress-driven lifecycle key.
func (k Key) Threshold() (float64, bool) {
	t, ok := lifecycleThresholds[k]
	return t, ok
}

// IsLifecycle reports whether the key is one of the fixed lifecycle keys.
func (k Key) IsLifecycle() bool {
	if k == Skip {
		return true
	}
	_, ok := lifecycleThresholds[k]
	return ok
}

func (k Key) String() string {
	return string(k)
}

// LifecycleOrder returns the progress-driven lifecycle keys in ascending
// threshold order. The returned slice must not be mutated.
func LifecycleOrder() []Key {
	return lifecycleOrder
}

// FromVAST maps a VAST Tracking event attribute to a Key. Known lifecycle
// names map to their fixed keys; anything else becomes a custom key.
func FromVAST(name string) Key {
	switch name {
	case "start":
		return Start
	case "firstQuartile":
		return FirstQuartile
	case "midpoint":
		return Midpoint
	case "thirdQuartile":
		return ThirdQuartile
	case "complete":
		return Complete
	case "skip":
		return Skip
	}
	return Custom(name)
}
