// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"fmt"

	"github.com/stridelab/stride-backend/pkg/schema"
)

// Additive points per flag. Risk levels:
// green (0-1) normal, amber (2-3) caution, red (4+) stop/rest.
var flagPoints = []struct {
	flag   string
	points int
}{
	{schema.FlagLoadSpike, 3},
	{schema.FlagFatiguePossible, 1},
	{schema.FlagPainReported, 2},
	{schema.FlagPainSevere, 4},
	{schema.FlagIllnessOrFatigue, 4},
}

// RiskResult is the deterministic risk assessment of one activity.
type RiskResult struct {
	Level   string
	Score   int
	Reasons []string
}

// ScoreRisk sums points over flags, the sleep/RPE check-in combination
// and consecutive hard training days. Reasons carry the code and the
// points it contributed, in scoring order.
func ScoreRisk(flags []string, checkIn *schema.CheckIn, trainingCtx *schema.TrainingContext) RiskResult {
	points := 0
	reasons := []string{}

	flagSet := make(map[string]bool, len(flags))
	for _, f := range flags {
		flagSet[f] = true
	}
	for _, fp := range flagPoints {
		if flagSet[fp.flag] {
			points += fp.points
			reasons = append(reasons, fmt.Sprintf("%s (+%d)", fp.flag, fp.points))
		}
	}

	if checkIn != nil && checkIn.SleepQuality != nil && checkIn.RPE != nil &&
		*checkIn.SleepQuality <= 2 && *checkIn.RPE >= 8 {
		points += 2
		reasons = append(reasons, "poor_sleep_high_rpe (+2)")
	}

	if trainingCtx != nil && trainingCtx.HardSessionsThisWeek >= 2 &&
		trainingCtx.DaysSinceLastHard != nil && *trainingCtx.DaysSinceLastHard <= 3 {
		points += 1
		reasons = append(reasons, "consecutive_hard_sessions (+1)")
	}

	level := schema.RiskGreen
	switch {
	case points >= 4:
		level = schema.RiskRed
	case points >= 2:
		level = schema.RiskAmber
	}

	return RiskResult{Level: level, Score: points, Reasons: reasons}
}
