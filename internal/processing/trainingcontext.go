// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"time"

	"github.com/stridelab/stride-backend/pkg/schema"
)

// BuildTrainingContext categorizes the seven days preceding the
// activity's start by each prior activity's stored classification:
// Intervals, Tempo, Race and Hills are hard, Long Run is moderate,
// everything else easy.
func BuildTrainingContext(
	anchor *schema.Activity,
	history []*schema.Activity,
	classOf map[string]string,
) *schema.TrainingContext {
	windowStart := anchor.StartDate.AddDate(0, 0, -7)

	ctx := &schema.TrainingContext{
		IntensityDistribution7d: map[string]int{"easy": 0, "moderate": 0, "hard": 0},
	}

	var lastHard *time.Time
	for _, a := range history {
		if !a.StartDate.Before(anchor.StartDate) || a.StartDate.Before(windowStart) {
			continue
		}

		category := "easy"
		switch classOf[a.ID] {
		case schema.ClassIntervals, schema.ClassTempo, schema.ClassRace, schema.ClassHills:
			category = "hard"
		case schema.ClassLongRun:
			category = "moderate"
		}
		ctx.IntensityDistribution7d[category]++

		if category == "hard" {
			if lastHard == nil || a.StartDate.After(*lastHard) {
				t := a.StartDate
				lastHard = &t
			}
		}
	}

	ctx.HardSessionsThisWeek = ctx.IntensityDistribution7d["hard"]
	if lastHard != nil {
		days := int(anchor.StartDate.Sub(*lastHard).Hours() / 24)
		ctx.DaysSinceLastHard = &days
	}
	return ctx
}
