// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package catalog

import (
	"github.com/adxyz/adtrack/pkg/event"
)

// Catalog maps event keys to ordered lists of tracking URIs. Keys are
// never duplicated and insertion order is preserved, so multiple
// verification vendors under one key all fire when that key triggers.
//
// A Catalog is mutated only while it is being built (by the parser or the
// JSON delivery path); afterwards it is treated as immutable and may be
// read concurrently by firing goroutines.
type Catalog struct {
	order []event.Key
	uris  map[event.Key][]string
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		uris: make(map[event.Key][]string),
	}
}

// Append records a URI under the given key, creating the key if needed.
// An empty URI records the key with no beacon, which still marks the
// event as known to the catalog.
func (c *Catalog) Append(key event.Key, uri string) {
	if _, ok := c.uris[key]; !ok {
		c.order = append(c.order, key)
		c.uris[key] = nil
	}
	if uri != "" {
		c.uris[key] = append(c.uris[key], uri)
	}
}

// AppendUnique records a URI under the key unless an identical URI is
// already present for it. It reports whether the URI was added. The
// parser's regex fallback uses this to avoid double beacons when both
// passes partially succeeded.
func (c *Catalog) AppendUnique(key event.Key, uri string) bool {
	for _, existing := range c.uris[key] {
		if existing == uri {
			return false
		}
	}
	c.Append(key, uri)
	return uri != ""
}

// URIs returns the ordered URI list for a key. A nil result means the
// key is absent or has no beacons; either way firing it is a no-op.
func (c *Catalog) URIs(key event.Key) []string {
	return c.uris[key]
}

// Has reports whether the key is present in the catalog.
func (c *Catalog) Has(key event.Key) bool {
	_, ok := c.uris[key]
	return ok
}

// Keys returns the keys in insertion order.
func (c *Catalog) Keys() []event.Key {
	return c.order
}

// Len returns the number of distinct keys.
func (c *Catalog) Len() int {
	return len(c.order)
}

// TotalURIs returns the number of URIs across all keys.
func (c *Catalog) TotalURIs() int {
	n := 0
	for _, uris := range c.uris {
		n += len(uris)
	}
	return n
}
