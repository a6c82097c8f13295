// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"testing"

	"github.com/stridelab/stride-backend/internal/util"
	"github.com/stridelab/stride-backend/pkg/schema"

	"github.com/stretchr/testify/assert"
)

func TestGenerateFlagsStaysInTaxonomy(t *testing.T) {
	activity := &schema.Activity{MovingTimeS: 1500}
	checkIn := &schema.CheckIn{RPE: intPtr(9), SleepQuality: intPtr(1), PainScore: intPtr(8)}
	drift := 7.5
	pv := 25.0
	metrics := MetricsData{EffortScore: 300, HRDrift: &drift, PaceVariability: &pv}

	flags := GenerateFlags(activity, schema.ClassTempo, metrics, checkIn, []float64{50, 60, 70})
	for _, f := range flags {
		assert.True(t, util.Contains(schema.AllFlags, f), "unknown flag %q", f)
	}
}

func TestGenerateFlagsMissingHR(t *testing.T) {
	activity := &schema.Activity{MovingTimeS: 1500}
	flags := GenerateFlags(activity, schema.ClassEasyRun, MetricsData{EffortScore: 25}, nil, nil)
	assert.Contains(t, flags, schema.FlagLowConfidenceHR)
}

func TestGenerateFlagsIntensityMismatch(t *testing.T) {
	// 150/200 = 0.75 is below the 0.8 trigger: NOT a mismatch.
	easy := &schema.Activity{MovingTimeS: 1500, AvgHR: floatPtr(150), MaxHR: floatPtr(200)}
	flags := GenerateFlags(easy, schema.ClassEasyRun, MetricsData{EffortScore: 105.5}, nil, nil)
	assert.NotContains(t, flags, schema.FlagIntensityMismatch)

	hot := &schema.Activity{MovingTimeS: 1500, AvgHR: floatPtr(170), MaxHR: floatPtr(200)}
	flags = GenerateFlags(hot, schema.ClassEasyRun, MetricsData{EffortScore: 130}, nil, nil)
	assert.Contains(t, flags, schema.FlagIntensityMismatch)

	// Same HR on a tempo run is fine.
	flags = GenerateFlags(hot, schema.ClassTempo, MetricsData{EffortScore: 130}, nil, nil)
	assert.NotContains(t, flags, schema.FlagIntensityMismatch)
}

func TestGenerateFlagsDrift(t *testing.T) {
	activity := &schema.Activity{AvgHR: floatPtr(140), MaxHR: floatPtr(200)}

	high := 5.5
	flags := GenerateFlags(activity, schema.ClassEasyRun, MetricsData{HRDrift: &high}, nil, nil)
	assert.Contains(t, flags, schema.FlagFatiguePossible)

	low := 5.0
	flags = GenerateFlags(activity, schema.ClassEasyRun, MetricsData{HRDrift: &low}, nil, nil)
	assert.NotContains(t, flags, schema.FlagFatiguePossible)
}

func TestGenerateFlagsPaceUnstableOnlyForTempo(t *testing.T) {
	activity := &schema.Activity{AvgHR: floatPtr(140), MaxHR: floatPtr(200)}
	pv := 16.0

	flags := GenerateFlags(activity, schema.ClassTempo, MetricsData{PaceVariability: &pv}, nil, nil)
	assert.Contains(t, flags, schema.FlagPaceUnstable)

	flags = GenerateFlags(activity, schema.ClassEasyRun, MetricsData{PaceVariability: &pv}, nil, nil)
	assert.NotContains(t, flags, schema.FlagPaceUnstable)
}

func TestGenerateFlagsLoadSpike(t *testing.T) {
	activity := &schema.Activity{AvgHR: floatPtr(140), MaxHR: floatPtr(200)}

	flags := GenerateFlags(activity, schema.ClassEasyRun,
		MetricsData{EffortScore: 200}, nil, []float64{100, 100, 100})
	assert.Contains(t, flags, schema.FlagLoadSpike)

	flags = GenerateFlags(activity, schema.ClassEasyRun,
		MetricsData{EffortScore: 150}, nil, []float64{100, 100, 100})
	assert.NotContains(t, flags, schema.FlagLoadSpike)

	// Only the latest 7 scores count.
	history := []float64{100, 100, 100, 100, 100, 100, 100, 1000, 1000}
	flags = GenerateFlags(activity, schema.ClassEasyRun,
		MetricsData{EffortScore: 200}, nil, history)
	assert.Contains(t, flags, schema.FlagLoadSpike)
}

func TestGenerateFlagsCheckIn(t *testing.T) {
	activity := &schema.Activity{AvgHR: floatPtr(140), MaxHR: floatPtr(200)}

	t.Run("illness combo", func(t *testing.T) {
		checkIn := &schema.CheckIn{RPE: intPtr(8), SleepQuality: intPtr(2), PainScore: intPtr(5)}
		flags := GenerateFlags(activity, schema.ClassEasyRun, MetricsData{}, checkIn, nil)
		assert.Contains(t, flags, schema.FlagIllnessOrFatigue)
	})

	t.Run("pain thresholds", func(t *testing.T) {
		mild := &schema.CheckIn{PainScore: intPtr(4)}
		flags := GenerateFlags(activity, schema.ClassEasyRun, MetricsData{}, mild, nil)
		assert.Contains(t, flags, schema.FlagPainReported)
		assert.NotContains(t, flags, schema.FlagPainSevere)

		severe := &schema.CheckIn{PainScore: intPtr(7)}
		flags = GenerateFlags(activity, schema.ClassEasyRun, MetricsData{}, severe, nil)
		assert.Contains(t, flags, schema.FlagPainReported)
		assert.Contains(t, flags, schema.FlagPainSevere)
	})

	t.Run("no check-in no self-report flags", func(t *testing.T) {
		flags := GenerateFlags(activity, schema.ClassEasyRun, MetricsData{}, nil, nil)
		assert.NotContains(t, flags, schema.FlagPainReported)
		assert.NotContains(t, flags, schema.FlagIllnessOrFatigue)
	})
}
