// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtb

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/adxyz/adtrack/pkg/delivery"
)

// ErrNoCreative is returned when a bid carries neither inline VAST
// markup nor a tag URL.
var ErrNoCreative = errors.New("bid carries no VAST markup or tag URL")

// FromBid builds a creative descriptor from a winning OpenRTB video bid.
// An adm holding a URL becomes a tag descriptor; inline VAST markup
// becomes an inline-XML descriptor.
func FromBid(bid *openrtb2.Bid) (delivery.Descriptor, error) {
	adm := strings.TrimSpace(bid.AdM)
	switch {
	case strings.HasPrefix(adm, "http://"), strings.HasPrefix(adm, "https://"):
		return delivery.Descriptor{
			Mode:   delivery.ModeVASTTag,
			TagURL: adm,
		}, nil
	case strings.Contains(adm, "<VAST"):
		return delivery.Descriptor{
			Mode:      delivery.ModeVASTXML,
			XMLBase64: base64.StdEncoding.EncodeToString([]byte(adm)),
		}, nil
	}
	return delivery.Descriptor{}, ErrNoCreative
}

// WinNotices returns the bid's win and billing notice URLs for the host
// to fire alongside the creative's own impression trackers.
func WinNotices(bid *openrtb2.Bid) []string {
	var notices []string
	if bid.NURL != "" {
		notices = append(notices, bid.NURL)
	}
	if bid.BURL != "" {
		notices = append(notices, bid.BURL)
	}
	return notices
}
