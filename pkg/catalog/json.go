// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package catalog

import (
	"github.com/buger/jsonparser"

	"github.com/adxyz/adtrack/pkg/event"
)

// ClickKey is the custom event under which click trackers are recorded
// on the JSON delivery path.
const ClickKey = "click"

// NamedURIs is an ordered list of tracking URIs under one event name.
type NamedURIs struct {
	Key  string   `json:"key"`
	URIs []string `json:"urls"`
}

// TrackingData is the already-structured tracking block of a JSON-delivery
// creative. No XML parsing occurs on this path; the data maps directly
// into the same key/URI-list shape the VAST path produces.
type TrackingData struct {
	Impressions []string    `json:"impressions"`
	Clicks      []string    `json:"clicks"`
	Custom      []NamedURIs `json:"custom"`
}

// FromTracking builds a catalog from structured JSON-delivery tracking
// data. Impression trackers fire with Start, click trackers under the
// "click" custom key, and each custom list under its own key (lifecycle
// names map to their fixed keys).
func FromTracking(td TrackingData) *Catalog {
	c := New()
	for _, uri := range td.Impressions {
		c.AppendUnique(event.Start, uri)
	}
	for _, uri := range td.Clicks {
		c.AppendUnique(event.Custom(ClickKey), uri)
	}
	for _, list := range td.Custom {
		key := event.FromVAST(list.Key)
		for _, uri := range list.URIs {
			c.AppendUnique(key, uri)
		}
	}
	return c
}

// FromJSON builds a catalog from a raw JSON tracking payload. Extraction
// is tolerant: absent or malformed sections are skipped, never an error,
// so a partially valid payload still yields the trackers it does carry.
//
// Expected shape:
//
//	{
//	  "impressions": ["https://..."],
//	  "clicks": ["https://..."],
//	  "custom": [{"key": "overlayShown", "urls": ["https://..."]}]
//	}
func FromJSON(data []byte) *Catalog {
	c := New()

	appendStrings := func(key event.Key, path ...string) {
		jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
			if dataType == jsonparser.String {
				c.AppendUnique(key, string(value))
			}
		}, path...)
	}

	appendStrings(event.Start, "impressions")
	appendStrings(event.Custom(ClickKey), "clicks")

	jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if dataType != jsonparser.Object {
			return
		}
		name, err := jsonparser.GetString(value, "key")
		if err != nil || name == "" {
			return
		}
		key := event.FromVAST(name)
		jsonparser.ArrayEach(value, func(uri []byte, uriType jsonparser.ValueType, _ int, _ error) {
			if uriType == jsonparser.String {
				c.AppendUnique(key, string(uri))
			}
		}, "urls")
	}, "custom")

	return c
}
