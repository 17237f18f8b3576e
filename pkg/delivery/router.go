// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package delivery

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adxyz/adtrack/pkg/catalog"
	"github.com/adxyz/adtrack/pkg/log"
	"github.com/adxyz/adtrack/pkg/metric"
	"github.com/adxyz/adtrack/pkg/vast"
)

// fetchTimeout bounds the VAST tag fetch.
const fetchTimeout = 10 * time.Second

// maxTagBody caps how much of a tag response is read.
const maxTagBody = 4 << 20

var (
	// ErrNoTagURL is returned when ModeVASTTag has no tag URL.
	ErrNoTagURL = errors.New("delivery mode vast_tag requires a tag URL")
	// ErrInvalidPayload is returned when an inline payload is not valid base64.
	ErrInvalidPayload = errors.New("inline VAST payload is not valid base64")
)

// Router resolves a creative descriptor into a uniform Resolution:
// catalog plus fire strategy. Only the tag path can genuinely fail
// (network); parsing never errors, it degrades.
type Router struct {
	client  *http.Client
	parser  *vast.Parser
	log     log.Logger
	metrics *metric.Metrics
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithClient replaces the tag-fetch HTTP client.
func WithClient(client *http.Client) RouterOption {
	return func(r *Router) {
		r.client = client
	}
}

// WithLogger sets the router's logger.
func WithLogger(logger log.Logger) RouterOption {
	return func(r *Router) {
		r.log = logger
		r.parser = vast.NewParser(logger)
	}
}

// WithMetrics wires parse-outcome counters.
func WithMetrics(m *metric.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter creates a router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		client: &http.Client{Timeout: fetchTimeout},
		parser: vast.NewParser(log.NoLog),
		log:    log.NoLog,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve turns a descriptor into a Resolution. A missing media file on
// the VAST paths is reported through the Resolution's Outcome, not as an
// error: the host shows a "cannot render creative" state and the
// process never crashes over it.
func (r *Router) Resolve(ctx context.Context, desc Descriptor) (*Resolution, error) {
	switch desc.Mode {
	case ModeVASTTag:
		if desc.TagURL == "" {
			return nil, ErrNoTagURL
		}
		doc, err := r.fetchTag(ctx, desc.TagURL)
		if err != nil {
			return nil, fmt.Errorf("fetch VAST tag: %w", err)
		}
		return r.fromCreative(desc, r.parser.Parse(doc)), nil

	case ModeVASTXML:
		doc, err := base64.StdEncoding.DecodeString(desc.XMLBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return r.fromCreative(desc, r.parser.Parse(string(doc))), nil

	default: // ModeJSON
		return r.fromTracking(desc), nil
	}
}

func (r *Router) fetchTag(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tag fetch returned %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTagBody))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// fromCreative wraps a parsed VAST creative. Beacon delivery is the fire
// strategy on both VAST paths.
func (r *Router) fromCreative(desc Descriptor, creative *vast.ParsedCreative) *Resolution {
	res := &Resolution{
		Mode:              desc.Mode,
		Strategy:          StrategyBeacon,
		Catalog:           creative.Catalog,
		MediaFileURL:      creative.MediaFileURL,
		SkipOffsetSeconds: creative.SkipOffsetSeconds,
		Skippable:         creative.Skippable,
		OverlayThreshold:  desc.OverlayThresholdFraction,
		Outcome:           creative.Outcome(),
		Creative:          creative,
	}
	r.applySkipOverride(desc, res)
	r.observe(res, creative)
	return res
}

// fromTracking builds the JSON-path resolution: the catalog comes
// straight from the descriptor's structured tracking data and dispatcher
// output is executed through the application event callback.
func (r *Router) fromTracking(desc Descriptor) *Resolution {
	var cat *catalog.Catalog
	switch {
	case desc.Tracking != nil:
		cat = catalog.FromTracking(*desc.Tracking)
	case len(desc.RawTracking) > 0:
		cat = catalog.FromJSON(desc.RawTracking)
	default:
		cat = catalog.New()
	}

	res := &Resolution{
		Mode:             ModeJSON,
		Strategy:         StrategyAppEvent,
		Catalog:          cat,
		MediaFileURL:     desc.MediaURL,
		OverlayThreshold: desc.OverlayThresholdFraction,
		Outcome:          vast.Outcome{MediaFileURL: desc.MediaURL},
	}
	r.applySkipOverride(desc, res)
	return res
}

func (r *Router) applySkipOverride(desc Descriptor, res *Resolution) {
	if desc.SkipOffsetRaw == "" {
		return
	}
	seconds, ok := vast.ParseSkipOffset(desc.SkipOffsetRaw)
	if !ok {
		res.SkipOffsetSeconds = nil
		res.Skippable = false
		r.log.Warn("unparseable skip offset on descriptor",
			log.String("raw", desc.SkipOffsetRaw))
		return
	}
	res.SkipOffsetSeconds = &seconds
	res.Skippable = true
}

func (r *Router) observe(res *Resolution, creative *vast.ParsedCreative) {
	if r.metrics != nil {
		r.metrics.CreativesParsed.WithLabelValues(creative.Attempt.String()).Inc()
		if creative.Degraded {
			r.metrics.ParseDegraded.Inc()
		}
		if !creative.Playable() {
			r.metrics.MissingMediaFile.Inc()
		}
	}
	if !creative.Playable() {
		r.log.Warn("resolved creative has no media file",
			log.String("mode", res.Mode.String()),
			log.Error(vast.ErrMissingMediaFile))
	}
}
