// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package delivery

import (
	"github.com/adxyz/adtrack/pkg/catalog"
	"github.com/adxyz/adtrack/pkg/vast"
)

// Mode is the transport/format by which a creative's video and tracking
// data are provided.
type Mode int

const (
	// ModeVASTTag points at a VAST tag URL to fetch and parse.
	ModeVASTTag Mode = iota
	// ModeVASTXML carries a base64-encoded VAST payload inline.
	ModeVASTXML
	// ModeJSON carries already-structured tracking data; no XML parsing.
	ModeJSON
)

func (m Mode) String() string {
	switch m {
	case ModeVASTTag:
		return "vast_tag"
	case ModeVASTXML:
		return "vast_xml"
	case ModeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Descriptor is the creative descriptor supplied by the host's decision
// layer. Exactly one of TagURL, XMLBase64, or the tracking fields is
// meaningful for a given Mode.
type Descriptor struct {
	Mode Mode

	// TagURL is the VAST tag to fetch for ModeVASTTag.
	TagURL string

	// XMLBase64 is the inline payload for ModeVASTXML.
	XMLBase64 string

	// Tracking is the structured tracking block for ModeJSON.
	Tracking *catalog.TrackingData

	// RawTracking is an alternative raw JSON tracking payload for
	// ModeJSON, extracted tolerantly when Tracking is nil.
	RawTracking []byte

	// SkipOffsetRaw, when set, overrides any skip offset found in the
	// creative itself. Unparseable values leave the creative
	// non-skippable.
	SkipOffsetRaw string

	// OverlayThresholdFraction, when positive, registers an
	// "overlayShown" firing at that playback fraction.
	OverlayThresholdFraction float64

	// MediaURL carries the playable asset for ModeJSON, where no VAST
	// document supplies one.
	MediaURL string
}

// StrategyKind selects how dispatcher output is executed.
type StrategyKind int

const (
	// StrategyBeacon fires raw HTTP GETs to beacon URIs (VAST paths).
	StrategyBeacon StrategyKind = iota
	// StrategyAppEvent invokes the application-level named-event
	// callback (JSON path).
	StrategyAppEvent
)

func (s StrategyKind) String() string {
	if s == StrategyAppEvent {
		return "app_event"
	}
	return "beacon"
}

// Resolution is the delivery-mode-agnostic result of resolving a
// descriptor: everything a tracking session needs, in one shape, so the
// dispatcher stays oblivious to which path produced it.
type Resolution struct {
	Mode              Mode
	Strategy          StrategyKind
	Catalog           *catalog.Catalog
	MediaFileURL      string
	SkipOffsetSeconds *uint32
	Skippable         bool
	OverlayThreshold  float64
	Outcome           vast.Outcome

	// Creative is the parsed VAST creative on the VAST paths, nil for
	// ModeJSON.
	Creative *vast.ParsedCreative
}

// Playable reports whether a media URL was resolved.
func (r *Resolution) Playable() bool {
	return r.MediaFileURL != ""
}
