// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package delivery

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adxyz/adtrack/pkg/catalog"
	"github.com/adxyz/adtrack/pkg/event"
	"github.com/adxyz/adtrack/pkg/metric"
	"github.com/adxyz/adtrack/pkg/vast"
)

const tagDoc = `<VAST version="3.0">
  <Linear skipoffset="00:00:05">
    <MediaFile><![CDATA[https://cdn.example.com/video.mp4]]></MediaFile>
    <Tracking event="start"><![CDATA[https://t.example.com/start]]></Tracking>
    <Tracking event="complete">https://t.example.com/complete</Tracking>
  </Linear>
</VAST>`

func TestResolve_VASTTag(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(tagDoc))
	}))
	defer srv.Close()

	m, err := metric.NewMetrics()
	require.NoError(err)

	r := NewRouter(WithMetrics(m))
	res, err := r.Resolve(context.Background(), Descriptor{
		Mode:   ModeVASTTag,
		TagURL: srv.URL + "/vast",
	})
	require.NoError(err)

	require.Equal(StrategyBeacon, res.Strategy)
	require.Equal("https://cdn.example.com/video.mp4", res.MediaFileURL)
	require.True(res.Skippable)
	require.NotNil(res.SkipOffsetSeconds)
	require.EqualValues(5, *res.SkipOffsetSeconds)
	require.Equal([]string{"https://t.example.com/start"}, res.Catalog.URIs(event.Start))
	require.False(res.Outcome.ParseDegraded)
}

func TestResolve_VASTTag_FetchErrors(t *testing.T) {
	require := require.New(t)

	r := NewRouter()

	_, err := r.Resolve(context.Background(), Descriptor{Mode: ModeVASTTag})
	require.ErrorIs(err, ErrNoTagURL)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err = r.Resolve(context.Background(), Descriptor{Mode: ModeVASTTag, TagURL: srv.URL})
	require.Error(err)
}

func TestResolve_VASTXML(t *testing.T) {
	require := require.New(t)

	r := NewRouter()
	res, err := r.Resolve(context.Background(), Descriptor{
		Mode:      ModeVASTXML,
		XMLBase64: base64.StdEncoding.EncodeToString([]byte(tagDoc)),
	})
	require.NoError(err)

	require.Equal(StrategyBeacon, res.Strategy)
	require.Equal("https://cdn.example.com/video.mp4", res.MediaFileURL)
	require.Equal([]string{"https://t.example.com/complete"}, res.Catalog.URIs(event.Complete))
}

func TestResolve_VASTXML_BadBase64(t *testing.T) {
	require := require.New(t)

	r := NewRouter()
	_, err := r.Resolve(context.Background(), Descriptor{
		Mode:      ModeVASTXML,
		XMLBase64: "not base64 !!!",
	})
	require.ErrorIs(err, ErrInvalidPayload)
}

func TestResolve_MissingMediaFileIsReportedNotFatal(t *testing.T) {
	require := require.New(t)

	r := NewRouter()
	res, err := r.Resolve(context.Background(), Descriptor{
		Mode:      ModeVASTXML,
		XMLBase64: base64.StdEncoding.EncodeToString([]byte(`<VAST></VAST>`)),
	})
	require.NoError(err)

	require.False(res.Playable())
	require.True(res.Outcome.ParseDegraded)
	require.Equal(vast.AttemptFailed, res.Creative.Attempt)
}

func TestResolve_JSON(t *testing.T) {
	require := require.New(t)

	r := NewRouter()
	res, err := r.Resolve(context.Background(), Descriptor{
		Mode:     ModeJSON,
		MediaURL: "https://cdn.example.com/native.mp4",
		Tracking: &catalog.TrackingData{
			Impressions: []string{"https://i.example.com/1"},
			Custom: []catalog.NamedURIs{
				{Key: "complete", URIs: []string{"https://t.example.com/done"}},
			},
		},
		SkipOffsetRaw:            "3",
		OverlayThresholdFraction: 0.2,
	})
	require.NoError(err)

	require.Equal(StrategyAppEvent, res.Strategy)
	require.Nil(res.Creative)
	require.Equal("https://cdn.example.com/native.mp4", res.MediaFileURL)
	require.Equal([]string{"https://i.example.com/1"}, res.Catalog.URIs(event.Start))
	require.True(res.Skippable)
	require.EqualValues(3, *res.SkipOffsetSeconds)
	require.InDelta(0.2, res.OverlayThreshold, 1e-9)
}

func TestResolve_JSON_RawTracking(t *testing.T) {
	require := require.New(t)

	r := NewRouter()
	res, err := r.Resolve(context.Background(), Descriptor{
		Mode:        ModeJSON,
		RawTracking: []byte(`{"impressions": ["https://i.example.com/raw"]}`),
	})
	require.NoError(err)
	require.Equal([]string{"https://i.example.com/raw"}, res.Catalog.URIs(event.Start))
}

func TestResolve_SkipOverride(t *testing.T) {
	require := require.New(t)

	r := NewRouter()

	// Descriptor overrides the creative's own skipoffset.
	res, err := r.Resolve(context.Background(), Descriptor{
		Mode:          ModeVASTXML,
		XMLBase64:     base64.StdEncoding.EncodeToString([]byte(tagDoc)),
		SkipOffsetRaw: "10",
	})
	require.NoError(err)
	require.EqualValues(10, *res.SkipOffsetSeconds)

	// Bogus descriptor offsets leave the creative non-skippable.
	res, err = r.Resolve(context.Background(), Descriptor{
		Mode:          ModeVASTXML,
		XMLBase64:     base64.StdEncoding.EncodeToString([]byte(tagDoc)),
		SkipOffsetRaw: "bogus",
	})
	require.NoError(err)
	require.False(res.Skippable)
	require.Nil(res.SkipOffsetSeconds)
}
