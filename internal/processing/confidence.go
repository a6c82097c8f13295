// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"github.com/stridelab/stride-backend/internal/util"
	"github.com/stridelab/stride-backend/pkg/schema"
)

// Reasons that weigh heavier than the rest when grading confidence.
var criticalReasons = []string{
	"no_heart_rate_data",
	"no_stream_data",
	"interval_structure_mismatch",
	"work_time_implausibly_high",
	"high_rep_distance_variability",
}

// ComputeConfidence grades how much the derived record can be trusted,
// from data presence and interval sanity checks. More reasons, lower
// confidence; two critical hits force low.
func ComputeConfidence(
	activity *schema.Activity,
	streams *schema.StreamSet,
	checkIn *schema.CheckIn,
	structure *schema.IntervalStructure,
	match *schema.WorkoutMatch,
) (string, []string) {
	reasons := []string{}

	if activity.AvgHR == nil {
		reasons = append(reasons, "no_heart_rate_data")
	}
	if streams.Empty() {
		reasons = append(reasons, "no_stream_data")
	} else if !streams.Has(schema.StreamLatLng) {
		reasons = append(reasons, "no_gps_data")
	}
	if checkIn == nil {
		reasons = append(reasons, "no_user_checkin")
	}

	if match != nil {
		for _, r := range match.ConfidenceReasons {
			if !util.Contains(reasons, r) {
				reasons = append(reasons, r)
			}
		}
		if match.MatchScore != nil && *match.MatchScore < 0.7 {
			reasons = append(reasons, "interval_structure_mismatch")
		}
	}

	if structure != nil {
		// More than 45 minutes of hard running is implausible for a
		// detected rep block.
		if structure.Summary.TotalWorkTimeS > 2700 {
			reasons = append(reasons, "work_time_implausibly_high")
		}
		if structure.WarmupDurationS == nil {
			reasons = append(reasons, "no_warmup_detected")
		}
	}

	criticalHits := 0
	for _, r := range reasons {
		if util.Contains(criticalReasons, r) {
			criticalHits++
		}
	}

	switch {
	case criticalHits >= 2:
		return schema.ConfidenceLow, reasons
	case criticalHits >= 1 || len(reasons) >= 3:
		return schema.ConfidenceMedium, reasons
	case len(reasons) == 0:
		return schema.ConfidenceHigh, reasons
	default:
		return schema.ConfidenceMedium, reasons
	}
}
