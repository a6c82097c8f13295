// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"fmt"
	"strings"

	"github.com/stridelab/stride-backend/internal/util"
	"github.com/stridelab/stride-backend/pkg/schema"
)

// MatchWorkout compares the user's declared interval plan against the
// detected structure, producing a 0-1 match score and a detection
// confidence that gates what downstream consumers may claim about
// interval execution.
func MatchWorkout(structure *schema.IntervalStructure, planned *schema.PlannedWorkout) *schema.WorkoutMatch {
	result := &schema.WorkoutMatch{
		DetectionConfidence: schema.ConfidenceLow,
		ConfidenceReasons:   []string{},
	}

	if structure == nil {
		result.ConfidenceReasons = append(result.ConfidenceReasons, "no_intervals_detected")
		return result
	}
	if len(structure.WorkSegments) == 0 {
		result.ConfidenceReasons = append(result.ConfidenceReasons, "no_work_segments")
		return result
	}

	summary := structure.Summary

	var distances, durations []float64
	for _, w := range structure.WorkSegments {
		if w.DistanceM != nil && *w.DistanceM > 0 {
			distances = append(distances, *w.DistanceM)
		}
		durations = append(durations, float64(w.DurationS))
	}

	detected := &schema.DetectedWorkout{
		RepsDetected:     summary.RepCount,
		RepDurationMeanS: util.Round(mean(durations), 1),
		RepDurationCV:    summary.WorkDurationCV,
		TotalWorkTimeS:   summary.TotalWorkTimeS,
		TotalRestTimeS:   summary.TotalRestTimeS,
		WorkToRestRatio:  summary.WorkToRestRatio,
		ConsistencyScore: summary.ConsistencyScore,
	}
	if len(distances) > 0 {
		distMean := util.Round(mean(distances), 1)
		detected.RepDistanceMeanM = &distMean
		if cv, ok := util.CVPercent(distances); ok {
			rounded := util.Round(cv, 1)
			detected.RepDistanceCV = &rounded
		}
	}
	result.DetectedWorkout = detected

	// Reps far off the median distance are suspect GPS or broken reps.
	if len(distances) >= 3 {
		median, _ := util.Median(distances)
		if median > 0 {
			outliers := 0
			for _, d := range distances {
				if dev := d - median; dev/median > 0.5 || dev/median < -0.5 {
					outliers++
				}
			}
			if outliers > 0 {
				result.ConfidenceReasons = append(result.ConfidenceReasons,
					fmt.Sprintf("distance_outliers_%d_of_%d", outliers, len(distances)))
			}
		}
	}

	if detected.RepDistanceCV != nil && *detected.RepDistanceCV > 30 {
		result.ConfidenceReasons = append(result.ConfidenceReasons, "high_rep_distance_variability")
	}
	if detected.RepDurationCV != nil && *detected.RepDurationCV > 30 {
		result.ConfidenceReasons = append(result.ConfidenceReasons, "high_rep_duration_variability")
	}

	// Without a plan, confidence rests on detection quality alone.
	if planned == nil {
		result.ConfidenceReasons = append(result.ConfidenceReasons, "no_planned_workout")
		hasOutlier := false
		for _, r := range result.ConfidenceReasons {
			if strings.Contains(r, "outlier") {
				hasOutlier = true
				break
			}
		}
		if summary.ConsistencyScore == schema.ConfidenceHigh && !hasOutlier {
			result.DetectionConfidence = schema.ConfidenceMedium
		}
		return result
	}

	var scores []float64
	ratio := func(a, b float64) float64 {
		return util.Min(a, b) / util.Max(a, b)
	}

	if planned.RepsPlanned > 0 && detected.RepsDetected > 0 {
		scores = append(scores, ratio(float64(planned.RepsPlanned), float64(detected.RepsDetected)))
		if planned.RepsPlanned != detected.RepsDetected {
			result.ConfidenceReasons = append(result.ConfidenceReasons,
				fmt.Sprintf("rep_count_mismatch_planned_%d_detected_%d",
					planned.RepsPlanned, detected.RepsDetected))
		}
	}

	if planned.RepDistanceM > 0 && detected.RepDistanceMeanM != nil {
		distRatio := ratio(planned.RepDistanceM, *detected.RepDistanceMeanM)
		scores = append(scores, distRatio)
		if distRatio < 0.7 {
			result.ConfidenceReasons = append(result.ConfidenceReasons, "rep_distance_mismatch")
		}
	}

	if planned.RestS > 0 && summary.AvgRestDurationS != nil && *summary.AvgRestDurationS > 0 {
		restRatio := ratio(planned.RestS, float64(*summary.AvgRestDurationS))
		scores = append(scores, restRatio)
		if restRatio < 0.5 {
			result.ConfidenceReasons = append(result.ConfidenceReasons, "rest_duration_mismatch")
		}
	}

	// Sanity check the total work time against the plan, assuming a
	// typical 4 m/s rep speed.
	if planned.RepsPlanned > 0 && planned.RepDistanceM > 0 && detected.TotalWorkTimeS > 0 {
		expectedWorkS := float64(planned.RepsPlanned) * (planned.RepDistanceM / 4.0)
		workRatio := ratio(expectedWorkS, float64(detected.TotalWorkTimeS))
		if workRatio < 0.4 {
			result.ConfidenceReasons = append(result.ConfidenceReasons, "work_time_implausible_for_plan")
			scores = append(scores, workRatio)
		}
	}

	matchScore := 0.0
	if len(scores) > 0 {
		matchScore = util.Round(mean(scores), 2)
	}
	result.MatchScore = &matchScore

	critical := 0
	for _, r := range result.ConfidenceReasons {
		if r != "no_planned_workout" {
			critical++
		}
	}

	switch {
	case matchScore >= 0.8 && critical <= 1:
		result.DetectionConfidence = schema.ConfidenceHigh
	case matchScore >= 0.5:
		result.DetectionConfidence = schema.ConfidenceMedium
	default:
		result.DetectionConfidence = schema.ConfidenceLow
	}
	return result
}

// BuildIntervalKpis derives the interval-specific coaching figures
// from a detected structure. Z4+ time is only claimed when the
// athlete's zones are calibrated.
func BuildIntervalKpis(
	structure *schema.IntervalStructure,
	zonesCalibrated bool,
	timeInZones schema.ZoneTimes,
) *schema.IntervalKpis {
	if structure == nil {
		return nil
	}

	kpis := &schema.IntervalKpis{
		RepPaceConsistencyCV: structure.Summary.WorkSpeedCV,
		WorkRestRatio:        structure.Summary.WorkToRestRatio,
	}

	if work := structure.WorkSegments; len(work) >= 2 {
		first := work[0].AvgSpeedMps
		last := work[len(work)-1].AvgSpeedMps
		if first > 0 && last > 0 {
			fade := util.Round(last/first, 2)
			kpis.FirstVsLastFade = &fade
		}
	}

	var dropsPer60 []float64
	for _, rest := range structure.RestSegments {
		if rest.HRRecoveryBpm != nil && rest.DurationS > 0 {
			dropsPer60 = append(dropsPer60, (*rest.HRRecoveryBpm/float64(rest.DurationS))*60.0)
		}
	}
	if len(dropsPer60) > 0 {
		quality := util.Round(mean(dropsPer60), 1)
		kpis.RecoveryQualityPer60s = &quality
	}

	if zonesCalibrated && timeInZones != nil {
		z4plus := timeInZones["Z4"] + timeInZones["Z5"]
		kpis.TotalZ4PlusS = &z4plus
	}
	return kpis
}
