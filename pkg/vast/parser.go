// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vast

import (
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/adxyz/adtrack/pkg/catalog"
	"github.com/adxyz/adtrack/pkg/event"
	"github.com/adxyz/adtrack/pkg/log"
)

// Parser turns raw VAST XML into a ParsedCreative. It never fails on
// malformed input: a structured streaming pass runs first, a regex
// fallback recovers what the structured pass could not, and the worst
// case is a creative with no media URL and an empty catalog.
type Parser struct {
	log log.Logger
}

// NewParser creates a parser.
func NewParser(logger log.Logger) *Parser {
	if logger == nil {
		logger = log.NoLog
	}
	return &Parser{log: logger}
}

var defaultParser = NewParser(log.NoLog)

// Parse parses a VAST document with the default parser.
func Parse(doc string) *ParsedCreative {
	return defaultParser.Parse(doc)
}

// Parse parses a VAST document, degrading instead of failing.
func (p *Parser) Parse(doc string) *ParsedCreative {
	creative := &ParsedCreative{Catalog: catalog.New()}

	syntaxErrors := structuredWalk(doc, creative)
	structuredMedia := creative.MediaFileURL != ""

	fallbackUsed := false
	if creative.MediaFileURL == "" {
		if url := fallbackMediaURL(doc); url != "" {
			creative.MediaFileURL = url
			fallbackUsed = true
		}
	}
	if creative.Catalog.TotalURIs() == 0 {
		if fallbackTracking(doc, creative.Catalog) {
			fallbackUsed = true
		}
	}

	switch {
	case structuredMedia:
		creative.Attempt = AttemptStructured
	case creative.MediaFileURL != "":
		creative.Attempt = AttemptFallback
	default:
		creative.Attempt = AttemptFailed
	}
	creative.Degraded = fallbackUsed || syntaxErrors > 0 || creative.MediaFileURL == ""

	if creative.MediaFileURL == "" {
		p.log.Warn("creative has no resolvable media file",
			log.Int("syntax_errors", syntaxErrors),
			log.Int("tracking_keys", creative.Catalog.Len()))
	} else if creative.Degraded {
		p.log.Debug("creative parsed with degradation",
			log.String("attempt", creative.Attempt.String()),
			log.Int("syntax_errors", syntaxErrors))
	}

	return creative
}

// structuredWalk runs the streaming pass over the document. Syntax errors
// never abort the walk; the decoder skips forward until it can make no
// more progress. Returns the number of syntax errors encountered.
func structuredWalk(doc string, creative *ParsedCreative) int {
	d := xml.NewDecoder(strings.NewReader(doc))
	d.Strict = false

	var (
		text          strings.Builder
		element       string
		trackingEvent string
		syntaxErrors  int
		lastOffset    int64 = -1
	)

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			syntaxErrors++
			// Stop only when the decoder cannot advance past the damage.
			off := d.InputOffset()
			if off == lastOffset {
				break
			}
			lastOffset = off
			continue
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Linear":
				if raw := attrValue(t, "skipoffset"); raw != "" {
					if seconds, ok := ParseSkipOffset(raw); ok {
						creative.SkipOffsetSeconds = &seconds
						creative.Skippable = true
					}
				}
			case "MediaFile":
				element = "MediaFile"
				text.Reset()
			case "Tracking":
				trackingEvent = attrValue(t, "event")
				if trackingEvent != "" {
					element = "Tracking"
					text.Reset()
				}
			case "Duration":
				element = "Duration"
				text.Reset()
			case "Pricing":
				creative.Pricing = &Pricing{
					Model:    attrValue(t, "model"),
					Currency: attrValue(t, "currency"),
				}
				element = "Pricing"
				text.Reset()
			}

		case xml.CharData:
			// CDATA sections arrive as CharData, so wrapped and plain
			// text content are handled identically.
			if element != "" {
				text.Write(t)
			}

		case xml.EndElement:
			if element == "" || t.Name.Local != element {
				continue
			}
			value := strings.TrimSpace(text.String())
			switch element {
			case "MediaFile":
				// First non-blank media file wins.
				if creative.MediaFileURL == "" && value != "" {
					creative.MediaFileURL = value
				}
			case "Tracking":
				if value != "" {
					creative.Catalog.Append(event.FromVAST(trackingEvent), value)
				}
			case "Duration":
				creative.DurationSeconds = parseDurationSeconds(value)
			case "Pricing":
				if creative.Pricing != nil {
					if v, err := decimal.NewFromString(value); err == nil {
						creative.Pricing.Value = v
					}
				}
			}
			element = ""
		}
	}

	return syntaxErrors
}

func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

var (
	mediaFileSpanRE = regexp.MustCompile(`(?si)<MediaFile[^>]*>(.*?)</MediaFile>`)
	trackingSpanRE  = regexp.MustCompile(`(?si)<Tracking[^>]*\bevent\s*=\s*"([^"]*)"[^>]*>(.*?)</Tracking>`)
	absoluteURLRE   = regexp.MustCompile(`https?://[^\s"'<>\]]+`)
)

// fallbackMediaURL scans the raw text for a MediaFile span and pulls an
// absolute URL out of it. Encoder artifacts sometimes wrap the real URL
// in extra text, so the span is reduced to its embedded https?:// URL
// rather than taken verbatim.
func fallbackMediaURL(doc string) string {
	for _, m := range mediaFileSpanRE.FindAllStringSubmatch(doc, -1) {
		if url := extractURL(m[1]); url != "" {
			return url
		}
	}
	return ""
}

// fallbackTracking applies the same CDATA-strip-and-URL-extract logic to
// Tracking spans, deduping exact URLs already recorded per key. Reports
// whether anything was recovered.
func fallbackTracking(doc string, cat *catalog.Catalog) bool {
	recovered := false
	for _, m := range trackingSpanRE.FindAllStringSubmatch(doc, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if url := extractURL(m[2]); url != "" {
			if cat.AppendUnique(event.FromVAST(name), url) {
				recovered = true
			}
		}
	}
	return recovered
}

func extractURL(span string) string {
	return absoluteURLRE.FindString(stripCDATA(span))
}

func stripCDATA(s string) string {
	s = strings.ReplaceAll(s, "<![CDATA[", "")
	return strings.ReplaceAll(s, "]]>", "")
}
