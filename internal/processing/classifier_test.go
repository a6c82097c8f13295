// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"encoding/json"
	"testing"

	"github.com/stridelab/stride-backend/pkg/schema"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestClassifyUserIntentWins(t *testing.T) {
	a := &schema.Activity{Name: "Morning Race", UserIntent: strPtr("Recovery")}
	assert.Equal(t, "Recovery", Classify(a, nil))
}

func TestClassifyTrainer(t *testing.T) {
	ride := &schema.Activity{
		Name:       "Morning Ride",
		Type:       "Ride",
		RawSummary: json.RawMessage(`{"trainer": true, "sport_type": "Ride"}`),
	}
	assert.Equal(t, schema.ClassIndoorRide, Classify(ride, nil))

	run := &schema.Activity{
		Name:       "Morning Run",
		Type:       "Run",
		RawSummary: json.RawMessage(`{"trainer": true, "sport_type": "Run"}`),
	}
	assert.Equal(t, schema.ClassTreadmill, Classify(run, nil))
}

func TestClassifyZeroDistanceRide(t *testing.T) {
	a := &schema.Activity{
		Name:        "Lunch Ride",
		Type:        "Ride",
		DistanceM:   0,
		MovingTimeS: 600,
		RawSummary:  json.RawMessage(`{"sport_type": "Ride"}`),
	}
	assert.Equal(t, schema.ClassIndoorRide, Classify(a, nil))
}

func TestClassifyNameKeywords(t *testing.T) {
	cases := map[string]string{
		"Parkrun RACE day":   schema.ClassRace,
		"Track workout":      schema.ClassIntervals,
		"8x400 interval set": schema.ClassIntervals,
		"Hill repeats":       schema.ClassHills,
		"recovery shuffle":   schema.ClassRecovery,
	}
	for name, want := range cases {
		a := &schema.Activity{Name: name, Type: "Run", DistanceM: 5000, MovingTimeS: 1500}
		assert.Equal(t, want, Classify(a, nil), "name %q", name)
	}
}

func TestClassifyLongRunThreshold(t *testing.T) {
	// Exactly at the 75 min threshold is NOT a long run.
	at := &schema.Activity{Name: "Morning Run", Type: "Run", DistanceM: 15000, MovingTimeS: 4500}
	assert.Equal(t, schema.ClassEasyRun, Classify(at, nil))

	over := &schema.Activity{Name: "Morning Run", Type: "Run", DistanceM: 15000, MovingTimeS: 4501}
	assert.Equal(t, schema.ClassLongRun, Classify(over, nil))

	// Long-run scenario: 90 min with no history.
	long := &schema.Activity{Name: "Sunday Run", Type: "Run", DistanceM: 18000, MovingTimeS: 5400, ElevGainM: 50}
	assert.Equal(t, schema.ClassLongRun, Classify(long, nil))
}

func TestClassifyLongRunHistoryRaisesThreshold(t *testing.T) {
	history := []*schema.Activity{
		{MovingTimeS: 5000},
		{MovingTimeS: 5000},
	}
	// 1.3 * 5000 = 6500 > 4500, so a 5400s run stays easy.
	a := &schema.Activity{Name: "Morning Run", Type: "Run", DistanceM: 15000, MovingTimeS: 5400}
	assert.Equal(t, schema.ClassEasyRun, Classify(a, history))
}

func TestClassifyElevation(t *testing.T) {
	steep := &schema.Activity{Name: "Morning Run", Type: "Run", DistanceM: 10000, MovingTimeS: 3000, ElevGainM: 250}
	assert.Equal(t, schema.ClassHills, Classify(steep, nil))

	moderate := &schema.Activity{
		Name: "Morning Run", Type: "Run", DistanceM: 10000, MovingTimeS: 3000,
		ElevGainM: 170, AvgHR: floatPtr(160),
	}
	assert.Equal(t, schema.ClassHills, Classify(moderate, nil))

	moderateLowHR := &schema.Activity{
		Name: "Morning Run", Type: "Run", DistanceM: 10000, MovingTimeS: 3000,
		ElevGainM: 170, AvgHR: floatPtr(140),
	}
	assert.Equal(t, schema.ClassEasyRun, Classify(moderateLowHR, nil))
}

func TestClassifySportFallbacks(t *testing.T) {
	cases := map[string]string{
		"Ride":           schema.ClassEasyRide,
		"Walk":           schema.ClassLeisureWalk,
		"Swim":           schema.ClassEndurance,
		"Workout":        schema.ClassStrength,
		"WeightTraining": schema.ClassStrength,
	}
	for sport, want := range cases {
		a := &schema.Activity{Name: "Morning Session", Type: sport, DistanceM: 5000, MovingTimeS: 1500}
		assert.Equal(t, want, Classify(a, nil), "sport %q", sport)
	}
}

func TestClassifyIntentRevert(t *testing.T) {
	a := &schema.Activity{Name: "Morning Run", Type: "Run", DistanceM: 5000, MovingTimeS: 1500}
	original := Classify(a, nil)

	a.UserIntent = strPtr("Tempo")
	assert.Equal(t, "Tempo", Classify(a, nil))

	a.UserIntent = nil
	assert.Equal(t, original, Classify(a, nil))
}
