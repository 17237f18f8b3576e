// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vast

import (
	"strconv"
	"strings"
)

// ParseSkipOffset normalizes a VAST skipoffset value into whole seconds.
// A colon-delimited value follows the hh:mm:ss convention where only
// whole-second granularity is tracked, so the last segment is taken as
// the second count; anything else is parsed as a plain integer.
// Unparseable input reports false and the creative stays non-skippable.
func ParseSkipOffset(raw string) (uint32, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	seg := raw
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		seg = raw[i+1:]
	}
	n, err := strconv.ParseUint(strings.TrimSpace(seg), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// parseDurationSeconds parses a <Duration> value, either hh:mm:ss or a
// bare second count. Returns 0 when the value cannot be parsed; callers
// treat 0 as unknown.
func parseDurationSeconds(raw string) uint32 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if !strings.Contains(raw, ":") {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return 0
		}
		return uint32(n)
	}

	parts := strings.Split(raw, ":")
	total := uint64(0)
	for _, part := range parts {
		// Tolerate fractional seconds in the last segment.
		if i := strings.Index(part, "."); i >= 0 {
			part = part[:i]
		}
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return uint32(total)
}
