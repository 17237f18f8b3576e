// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vast

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/adxyz/adtrack/pkg/catalog"
)

// ErrMissingMediaFile is the reportable, non-fatal condition surfaced when
// no playable media URL could be resolved after both parsing passes.
var ErrMissingMediaFile = errors.New("no playable media file found in creative")

// ParseAttempt indicates which pass produced the creative's media URL.
type ParseAttempt int

const (
	// AttemptStructured means the streaming XML walk resolved the media URL.
	AttemptStructured ParseAttempt = iota
	// AttemptFallback means the regex pass recovered it from a damaged document.
	AttemptFallback
	// AttemptFailed means no media URL was resolvable at all.
	AttemptFailed
)

func (a ParseAttempt) String() string {
	switch a {
	case AttemptStructured:
		return "structured"
	case AttemptFallback:
		return "fallback"
	default:
		return "failed"
	}
}

// Pricing carries the creative's <Pricing> element when present.
type Pricing struct {
	Model    string
	Currency string
	Value    decimal.Decimal
}

// ParsedCreative is the result of parsing a VAST payload. It is produced
// once per payload and immutable after construction. MediaFileURL may be
// empty when parsing degrades entirely; callers treat that as "cannot play
// creative", never as a crash.
type ParsedCreative struct {
	MediaFileURL      string
	Catalog           *catalog.Catalog
	SkipOffsetSeconds *uint32
	Skippable         bool
	DurationSeconds   uint32
	Pricing           *Pricing
	Attempt           ParseAttempt
	Degraded          bool
}

// Outcome is the parse summary exposed to the host so it can show an
// error state when no media URL is resolvable.
type Outcome struct {
	MediaFileURL  string
	ParseDegraded bool
}

// Outcome returns the host-facing parse summary.
func (p *ParsedCreative) Outcome() Outcome {
	return Outcome{
		MediaFileURL:  p.MediaFileURL,
		ParseDegraded: p.Degraded,
	}
}

// Playable reports whether a media URL was resolved.
func (p *ParsedCreative) Playable() bool {
	return p.MediaFileURL != ""
}
