// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"strings"

	"github.com/stridelab/stride-backend/pkg/schema"
)

// Classify assigns the activity class from intent, trainer flags, the
// lowercased name, duration against recent history, elevation profile
// and sport-type fallbacks, in that rule order.
func Classify(activity *schema.Activity, history []*schema.Activity) string {
	// 0. Explicit user intent always wins.
	if activity.UserIntent != nil && *activity.UserIntent != "" {
		return *activity.UserIntent
	}

	// 1. Indoor / trainer detection from the raw payload. Absent
	// fields default rather than fail.
	sportType := activity.RawString("sport_type")
	if sportType == "" {
		sportType = activity.Type
	}
	if sportType == "" {
		sportType = "Run"
	}

	if activity.RawBool("trainer") {
		if sportType == "Ride" {
			return schema.ClassIndoorRide
		}
		if sportType == "Run" {
			return schema.ClassTreadmill
		}
	}

	// A ride with zero distance but more than a minute of moving time is
	// a trainer session the provider failed to flag.
	if sportType == "Ride" && activity.DistanceM == 0 && activity.MovingTimeS > 60 {
		return schema.ClassIndoorRide
	}

	// 2. Name keywords.
	name := strings.ToLower(activity.Name)
	switch {
	case strings.Contains(name, "race"):
		return schema.ClassRace
	case strings.Contains(name, "workout") || strings.Contains(name, "interval"):
		return schema.ClassIntervals
	case strings.Contains(name, "hill"):
		return schema.ClassHills
	case strings.Contains(name, "recovery"):
		return schema.ClassRecovery
	}

	// 3. Long run: longer than both 75 minutes and 1.3x the recent average.
	var sum, count float64
	for _, h := range history {
		if h.MovingTimeS > 0 {
			sum += float64(h.MovingTimeS)
			count++
		}
	}
	threshold := 4500.0
	if count > 0 {
		if avg := sum / count; avg*1.3 > threshold {
			threshold = avg * 1.3
		}
	}
	if float64(activity.MovingTimeS) > threshold {
		return schema.ClassLongRun
	}

	// 4. Elevation: > 20 m/km is hilly outright; > 15 m/km with a high
	// average HR counts too.
	if activity.DistanceM > 0 {
		gainPerKm := activity.ElevGainM / (float64(activity.DistanceM) / 1000.0)
		if gainPerKm > 20 {
			return schema.ClassHills
		}
		if gainPerKm > 15 && activity.AvgHR != nil && *activity.AvgHR > 150 {
			return schema.ClassHills
		}
	}

	// 5. Sport-type fallbacks.
	switch sportType {
	case "Ride":
		return schema.ClassEasyRide
	case "Walk":
		return schema.ClassLeisureWalk
	case "Swim":
		return schema.ClassEndurance
	case "Workout", "WeightTraining":
		return schema.ClassStrength
	}

	return schema.ClassEasyRun
}
