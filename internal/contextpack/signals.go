// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package contextpack

import (
	"encoding/json"
	"sort"

	"github.com/stridelab/stride-backend/pkg/schema"
)

// The universe of signals a running coach cares about. Missing is
// always reported relative to this set.
var desirableSignals = []string{
	"heart_rate", "cadence", "power", "gps", "splits", "elevation", "weather",
}

// InferSignals determines which signals the coaching layer may lean on
// for this activity, from the summary fields, the stored streams and
// the raw payload. Returns sorted available and missing lists.
func InferSignals(activity *schema.Activity, streams *schema.StreamSet) (available, missing []string) {
	has := map[string]bool{}

	if activity.AvgHR != nil || activity.MaxHR != nil || streams.Has(schema.StreamHeartrate) {
		has["heart_rate"] = true
	}

	if activity.AvgCadence != nil || streams.Has(schema.StreamCadence) {
		has["cadence"] = true
	}

	var raw map[string]json.RawMessage
	if len(activity.RawSummary) > 0 {
		_ = json.Unmarshal(activity.RawSummary, &raw)
	}

	if _, ok := raw["average_watts"]; ok || streams.Has(schema.StreamWatts) {
		has["power"] = true
	}

	// An explicit zero gain still tells us the profile is flat; only a
	// missing field leaves us blind.
	if _, ok := raw["total_elevation_gain"]; ok || streams.Has(schema.StreamAltitude) {
		has["elevation"] = true
	}

	if streams.Has(schema.StreamLatLng) || hasPolyline(raw) {
		has["gps"] = true
	}

	if streams.Has(schema.StreamDistance) || rawKeyPresent(raw, "splits_metric") || rawKeyPresent(raw, "splits_standard") {
		has["splits"] = true
	}

	available = []string{}
	missing = []string{}
	for _, s := range desirableSignals {
		if has[s] {
			available = append(available, s)
		} else {
			missing = append(missing, s)
		}
	}
	sort.Strings(available)
	sort.Strings(missing)
	return available, missing
}

func hasPolyline(raw map[string]json.RawMessage) bool {
	mapRaw, ok := raw["map"]
	if !ok {
		return false
	}
	var m struct {
		SummaryPolyline string `json:"summary_polyline"`
		Polyline        string `json:"polyline"`
	}
	if err := json.Unmarshal(mapRaw, &m); err != nil {
		return false
	}
	return m.SummaryPolyline != "" || m.Polyline != ""
}

func rawKeyPresent(raw map[string]json.RawMessage, key string) bool {
	v, ok := raw[key]
	return ok && string(v) != "null" && string(v) != "[]"
}
