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

func TestScoreRiskLevels(t *testing.T) {
	t.Run("empty is green", func(t *testing.T) {
		result := ScoreRisk(nil, nil, nil)
		assert.Equal(t, schema.RiskGreen, result.Level)
		assert.Equal(t, 0, result.Score)
		assert.Empty(t, result.Reasons)
	})

	t.Run("one fatigue point stays green", func(t *testing.T) {
		result := ScoreRisk([]string{schema.FlagFatiguePossible}, nil, nil)
		assert.Equal(t, schema.RiskGreen, result.Level)
		assert.Equal(t, 1, result.Score)
	})

	t.Run("exactly 2 is amber", func(t *testing.T) {
		result := ScoreRisk([]string{schema.FlagPainReported}, nil, nil)
		assert.Equal(t, 2, result.Score)
		assert.Equal(t, schema.RiskAmber, result.Level)
	})

	t.Run("exactly 4 is red", func(t *testing.T) {
		result := ScoreRisk([]string{schema.FlagPainSevere}, nil, nil)
		assert.Equal(t, 4, result.Score)
		assert.Equal(t, schema.RiskRed, result.Level)
	})
}

func TestScoreRiskSevirePainCheckIn(t *testing.T) {
	// Risk-red scenario: pain 8 produces pain_reported + pain_severe.
	flags := []string{schema.FlagPainReported, schema.FlagPainSevere}
	result := ScoreRisk(flags, nil, nil)
	assert.GreaterOrEqual(t, result.Score, 4)
	assert.Equal(t, schema.RiskRed, result.Level)
	assert.Contains(t, result.Reasons, "pain_severe (+4)")
	assert.Contains(t, result.Reasons, "pain_reported (+2)")
}

func TestScoreRiskCheckInCombo(t *testing.T) {
	checkIn := &schema.CheckIn{SleepQuality: intPtr(2), RPE: intPtr(8)}
	result := ScoreRisk(nil, checkIn, nil)
	assert.Equal(t, 2, result.Score)
	assert.Equal(t, schema.RiskAmber, result.Level)
	assert.Contains(t, result.Reasons, "poor_sleep_high_rpe (+2)")

	// Good sleep defuses the combination.
	okSleep := &schema.CheckIn{SleepQuality: intPtr(7), RPE: intPtr(9)}
	assert.Equal(t, 0, ScoreRisk(nil, okSleep, nil).Score)
}

func TestScoreRiskTrainingContext(t *testing.T) {
	days := 2
	ctx := &schema.TrainingContext{HardSessionsThisWeek: 2, DaysSinceLastHard: &days}
	result := ScoreRisk(nil, nil, ctx)
	assert.Equal(t, 1, result.Score)
	assert.Contains(t, result.Reasons, "consecutive_hard_sessions (+1)")

	// A long gap since the last hard day defuses it.
	gap := 5
	relaxed := &schema.TrainingContext{HardSessionsThisWeek: 3, DaysSinceLastHard: &gap}
	assert.Equal(t, 0, ScoreRisk(nil, nil, relaxed).Score)

	// No hard session at all: nil days.
	assert.Equal(t, 0, ScoreRisk(nil, nil, &schema.TrainingContext{HardSessionsThisWeek: 2}).Score)
}

func TestScoreRiskIgnoresNonScoringFlags(t *testing.T) {
	result := ScoreRisk([]string{schema.FlagLowConfidenceHR, schema.FlagPaceUnstable}, nil, nil)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, schema.RiskGreen, result.Level)
}
