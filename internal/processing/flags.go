// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"github.com/stridelab/stride-backend/pkg/schema"
)

// GenerateFlags evaluates data quality, intensity, fatigue, load-spike
// and self-report rules against the closed flag taxonomy. The returned
// set is unordered; callers must not rely on position.
func GenerateFlags(
	activity *schema.Activity,
	activityClass string,
	metrics MetricsData,
	checkIn *schema.CheckIn,
	historyEfforts []float64,
) []string {
	flags := []string{}

	// Data quality.
	if activity.AvgHR == nil {
		flags = append(flags, schema.FlagLowConfidenceHR)
	}

	// An easy run above 80% of max HR was not easy.
	if activityClass == schema.ClassEasyRun &&
		activity.AvgHR != nil && activity.MaxHR != nil && *activity.MaxHR > 0 &&
		*activity.AvgHR / *activity.MaxHR > 0.8 {
		flags = append(flags, schema.FlagIntensityMismatch)
	}

	if metrics.HRDrift != nil && *metrics.HRDrift > 5.0 {
		flags = append(flags, schema.FlagFatiguePossible)
	}

	if activityClass == schema.ClassTempo &&
		metrics.PaceVariability != nil && *metrics.PaceVariability > 15.0 {
		flags = append(flags, schema.FlagPaceUnstable)
	}

	// Load spike against the latest seven effort scores.
	if len(historyEfforts) > 0 {
		recent := historyEfforts
		if len(recent) > 7 {
			recent = recent[:7]
		}
		var sum float64
		for _, e := range recent {
			sum += e
		}
		meanEffort := sum / float64(len(recent))
		if meanEffort > 0 && metrics.EffortScore > 1.8*meanEffort {
			flags = append(flags, schema.FlagLoadSpike)
		}
	}

	if checkIn != nil {
		rpe := 0
		if checkIn.RPE != nil {
			rpe = *checkIn.RPE
		}
		sleep := 10 // default high to avoid false positives
		if checkIn.SleepQuality != nil {
			sleep = *checkIn.SleepQuality
		}
		pain := 0
		if checkIn.PainScore != nil {
			pain = *checkIn.PainScore
		}

		if rpe >= 8 && sleep <= 2 && pain >= 5 {
			flags = append(flags, schema.FlagIllnessOrFatigue)
		}
		if pain >= 4 {
			flags = append(flags, schema.FlagPainReported)
		}
		if pain >= 7 {
			flags = append(flags, schema.FlagPainSevere)
		}
	}

	return flags
}
