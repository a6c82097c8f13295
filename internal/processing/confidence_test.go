// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"testing"

	"github.com/stridelab/stride-backend/pkg/schema"

	"github.com/stretchr/testify/assert"
)

func TestComputeConfidenceAllPresent(t *testing.T) {
	activity := &schema.Activity{AvgHR: floatPtr(150)}
	streams := streamsOf(t, map[string]interface{}{
		"heartrate": repeat(150, 100),
		"latlng":    [][2]float64{{48.1, 11.5}, {48.1, 11.5}},
	})
	checkIn := &schema.CheckIn{}

	level, reasons := ComputeConfidence(activity, streams, checkIn, nil, nil)
	assert.Equal(t, schema.ConfidenceHigh, level)
	assert.Empty(t, reasons)
}

func TestComputeConfidenceHROnly(t *testing.T) {
	// Easy-run scenario: HR summary only, no streams, no check-in.
	activity := &schema.Activity{AvgHR: floatPtr(150), MaxHR: floatPtr(200)}
	streams := streamsOf(t, map[string]interface{}{})

	level, reasons := ComputeConfidence(activity, streams, nil, nil, nil)
	assert.Equal(t, schema.ConfidenceMedium, level)
	assert.Contains(t, reasons, "no_stream_data")
	assert.Contains(t, reasons, "no_user_checkin")
	assert.NotContains(t, reasons, "no_heart_rate_data")
}

func TestComputeConfidenceTwoCriticalIsLow(t *testing.T) {
	activity := &schema.Activity{} // no HR
	streams := streamsOf(t, map[string]interface{}{})

	level, reasons := ComputeConfidence(activity, streams, nil, nil, nil)
	assert.Equal(t, schema.ConfidenceLow, level)
	assert.Contains(t, reasons, "no_heart_rate_data")
	assert.Contains(t, reasons, "no_stream_data")
}

func TestComputeConfidenceNoGPS(t *testing.T) {
	activity := &schema.Activity{AvgHR: floatPtr(150)}
	streams := streamsOf(t, map[string]interface{}{
		"heartrate": repeat(150, 100),
	})

	_, reasons := ComputeConfidence(activity, streams, &schema.CheckIn{}, nil, nil)
	assert.Contains(t, reasons, "no_gps_data")
}

func TestComputeConfidenceIntervalChecks(t *testing.T) {
	activity := &schema.Activity{AvgHR: floatPtr(150)}
	streams := streamsOf(t, map[string]interface{}{
		"heartrate": repeat(150, 100),
		"latlng":    [][2]float64{{48.1, 11.5}},
	})

	t.Run("low match score flags mismatch", func(t *testing.T) {
		score := 0.6
		match := &schema.WorkoutMatch{MatchScore: &score, ConfidenceReasons: []string{}}
		_, reasons := ComputeConfidence(activity, streams, &schema.CheckIn{}, nil, match)
		assert.Contains(t, reasons, "interval_structure_mismatch")
	})

	t.Run("implausible work time and missing warmup", func(t *testing.T) {
		structure := &schema.IntervalStructure{
			Summary: schema.IntervalSummary{TotalWorkTimeS: 2800},
		}
		_, reasons := ComputeConfidence(activity, streams, &schema.CheckIn{}, structure, nil)
		assert.Contains(t, reasons, "work_time_implausibly_high")
		assert.Contains(t, reasons, "no_warmup_detected")
	})

	t.Run("match reasons are merged without duplicates", func(t *testing.T) {
		score := 0.9
		match := &schema.WorkoutMatch{
			MatchScore:        &score,
			ConfidenceReasons: []string{"rep_distance_mismatch", "rep_distance_mismatch"},
		}
		_, reasons := ComputeConfidence(activity, streams, &schema.CheckIn{}, nil, match)
		count := 0
		for _, r := range reasons {
			if r == "rep_distance_mismatch" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})
}

func TestBuildTrainingContext(t *testing.T) {
	anchor := &schema.Activity{ID: "a0", StartDate: mustDate(t, "2024-03-10T08:00:00Z")}
	history := []*schema.Activity{
		{ID: "a1", StartDate: mustDate(t, "2024-03-09T08:00:00Z")}, // hard
		{ID: "a2", StartDate: mustDate(t, "2024-03-07T08:00:00Z")}, // easy
		{ID: "a3", StartDate: mustDate(t, "2024-03-05T08:00:00Z")}, // moderate
		{ID: "a4", StartDate: mustDate(t, "2024-03-01T08:00:00Z")}, // outside window
	}
	classOf := map[string]string{
		"a1": schema.ClassIntervals,
		"a2": schema.ClassEasyRun,
		"a3": schema.ClassLongRun,
		"a4": schema.ClassRace,
	}

	ctx := BuildTrainingContext(anchor, history, classOf)
	assert.Equal(t, 1, ctx.IntensityDistribution7d["hard"])
	assert.Equal(t, 1, ctx.IntensityDistribution7d["moderate"])
	assert.Equal(t, 1, ctx.IntensityDistribution7d["easy"])
	assert.Equal(t, 1, ctx.HardSessionsThisWeek)
	if assert.NotNil(t, ctx.DaysSinceLastHard) {
		assert.Equal(t, 1, *ctx.DaysSinceLastHard)
	}
}

func TestBuildTrainingContextNoHardSessions(t *testing.T) {
	anchor := &schema.Activity{ID: "a0", StartDate: mustDate(t, "2024-03-10T08:00:00Z")}
	history := []*schema.Activity{
		{ID: "a1", StartDate: mustDate(t, "2024-03-09T08:00:00Z")},
	}
	ctx := BuildTrainingContext(anchor, history, map[string]string{"a1": schema.ClassEasyRun})
	assert.Equal(t, 0, ctx.HardSessionsThisWeek)
	assert.Nil(t, ctx.DaysSinceLastHard)
}
