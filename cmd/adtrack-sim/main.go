// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// adtrack-sim resolves a creative descriptor, then drives a simulated
// playback tick loop through a tracking session and prints every firing
// decision. Useful for eyeballing a tag or payload end to end.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/adxyz/adtrack/pkg/delivery"
	"github.com/adxyz/adtrack/pkg/dispatch"
	"github.com/adxyz/adtrack/pkg/log"
	"github.com/adxyz/adtrack/pkg/metric"
	"github.com/adxyz/adtrack/pkg/session"
)

var (
	Version = "dev"
)

func main() {
	var (
		tagURL    = flag.String("tag", "", "VAST tag URL to fetch")
		xmlPath   = flag.String("xml", "", "Path to a raw VAST XML file")
		durationS = flag.Int("duration", 30, "Simulated creative duration in seconds")
		tickMs    = flag.Int("tick", 100, "Tick interval in milliseconds")
		skipAtS   = flag.Int("skip-at", 0, "Simulate a skip at this many seconds (0 = no skip)")
		logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		version   = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Printf("adtrack-sim v%s\n", Version)
		os.Exit(0)
	}

	logger := log.NewWithLevel(*logLevel)
	defer logger.Sync()

	desc, err := buildDescriptor(*tagURL, *xmlPath)
	if err != nil {
		logger.Error("invalid arguments", log.Error(err))
		os.Exit(1)
	}

	metrics, err := metric.NewMetrics()
	if err != nil {
		logger.Error("metrics init failed", log.Error(err))
		os.Exit(1)
	}

	router := delivery.NewRouter(
		delivery.WithLogger(logger),
		delivery.WithMetrics(metrics),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res, err := router.Resolve(ctx, desc)
	if err != nil {
		logger.Error("resolve failed", log.Error(err))
		os.Exit(1)
	}

	fmt.Printf("media url:  %s\n", orNone(res.MediaFileURL))
	fmt.Printf("skippable:  %v", res.Skippable)
	if res.SkipOffsetSeconds != nil {
		fmt.Printf(" (offset %ds)", *res.SkipOffsetSeconds)
	}
	fmt.Println()
	fmt.Printf("catalog:    %d keys, %d URIs\n", res.Catalog.Len(), res.Catalog.TotalURIs())
	if res.Outcome.ParseDegraded {
		fmt.Println("note: parse degraded, regex fallback was involved")
	}

	sess := session.New(res,
		session.WithLogger(logger),
		session.WithMetrics(metrics),
		session.WithObserver(func(ev session.FiringEvent) {
			fmt.Printf("fired %-16s at %.2f (%d URIs)\n", ev.Key, ev.FiredAtFraction, len(ev.URIs))
		}),
	)
	defer sess.Teardown()

	durationMs := uint64(*durationS) * 1000
	skipAtMs := uint64(*skipAtS) * 1000
	for pos := uint64(0); pos <= durationMs; pos += uint64(*tickMs) {
		if skipAtMs > 0 && pos >= skipAtMs {
			sess.OnSkipRequested()
			break
		}
		sess.OnTick(dispatch.Progress{PositionMs: pos, DurationMs: durationMs})
	}
	if sess.State() != dispatch.StateSkipped {
		sess.OnPlaybackEnded()
	}

	sess.Flush()
	fmt.Printf("final state: %s\n", sess.State())
}

func buildDescriptor(tagURL, xmlPath string) (delivery.Descriptor, error) {
	switch {
	case tagURL != "":
		return delivery.Descriptor{Mode: delivery.ModeVASTTag, TagURL: tagURL}, nil
	case xmlPath != "":
		raw, err := os.ReadFile(xmlPath)
		if err != nil {
			return delivery.Descriptor{}, err
		}
		return delivery.Descriptor{
			Mode:      delivery.ModeVASTXML,
			XMLBase64: base64.StdEncoding.EncodeToString(raw),
		}, nil
	}
	return delivery.Descriptor{}, fmt.Errorf("one of -tag or -xml is required")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
