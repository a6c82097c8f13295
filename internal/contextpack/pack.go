// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package contextpack shapes everything the coaching layer consumes
// into a deterministic, hash-addressable document. Values are copied,
// never referenced, so the document stays stable and the coaching
// layer stateless. Beyond gathering, the only computation is each
// activity's average pace and the 7-day, 28-day and previous-28-day
// training totals.
package contextpack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/stridelab/stride-backend/internal/processing"
	"github.com/stridelab/stride-backend/internal/repository"
	"github.com/stridelab/stride-backend/internal/util"
	"github.com/stridelab/stride-backend/pkg/schema"
	"github.com/stridelab/stride-backend/pkg/units"
)

// Builder assembles context packs from stored state.
type Builder struct {
	activities *repository.ActivityRepository
	users      *repository.UserRepository
	engine     *processing.Engine
}

func NewBuilder() *Builder {
	return &Builder{
		activities: repository.GetActivityRepository(),
		users:      repository.GetUserRepository(),
		engine:     processing.NewEngine(),
	}
}

// Build gathers the full document for one activity. Every top-level
// key is present even when its nested values are null.
func (b *Builder) Build(activityID string) (map[string]interface{}, error) {
	activity, err := b.activities.FindById(activityID)
	if err != nil {
		return nil, err
	}

	metric, err := b.activities.FindMetric(activityID)
	if err != nil && err != repository.ErrNotFound {
		return nil, err
	}

	checkIn, err := b.activities.FindCheckIn(activityID)
	if err != nil && err != repository.ErrNotFound {
		return nil, err
	}

	profile, err := b.users.FindProfile(activity.UserID)
	if err != nil && err != repository.ErrNotFound {
		return nil, err
	}

	streamRows, err := b.activities.FetchStreams(activityID)
	if err != nil {
		return nil, err
	}
	streams := schema.DecodeStreams(streamRows)

	trainingCtx, err := b.engine.TrainingContextFor(activity)
	if err != nil {
		return nil, err
	}

	available, missing := InferSignals(activity, streams)

	pack := map[string]interface{}{
		"activity":          b.activitySection(activity),
		"metrics":           b.metricsSection(metric, profile),
		"check_in":          checkInSection(checkIn),
		"profile":           profileSection(profile),
		"training_context":  jsonValue(trainingCtx),
		"available_signals": available,
		"missing_signals":   missing,
		"safety_rules": map[string]interface{}{
			"never_diagnose":        true,
			"pain_severe_threshold": 7,
			"no_invented_facts":     true,
		},
	}

	summary, err := b.recentTrainingSummary(activity)
	if err != nil {
		return nil, err
	}
	pack["recent_training_summary"] = summary

	return pack, nil
}

// Hash is the SHA-256 of the canonical JSON serialization (sorted
// keys). Two invocations with identical inputs produce identical
// hashes.
func Hash(pack map[string]interface{}) (string, error) {
	canonical, err := json.Marshal(pack)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func (b *Builder) activitySection(a *schema.Activity) map[string]interface{} {
	var pace interface{}
	if a.DistanceM > 0 && a.MovingTimeS > 0 {
		pace = util.Round(float64(a.MovingTimeS)/(float64(a.DistanceM)/1000.0), 1)
	}

	return map[string]interface{}{
		"date":              a.StartDate.Format(time.RFC3339),
		"type":              a.EffectiveType(),
		"name":              a.Name,
		"distance_m":        a.DistanceM,
		"moving_time_s":     a.MovingTimeS,
		"elapsed_time_s":    a.ElapsedTimeS,
		"avg_pace_s_per_km": pace,
		"avg_hr":            floatOrNil(a.AvgHR),
		"max_hr":            floatOrNil(a.MaxHR),
		"avg_cadence":       floatOrNil(units.NormalizeCadencePtr(a.AvgCadence)),
		"elev_gain_m":       a.ElevGainM,
	}
}

func (b *Builder) metricsSection(m *schema.DerivedMetric, profile *schema.UserProfile) map[string]interface{} {
	zonesCalibrated := profile.ZonesCalibrated()
	zonesBasis := "uncalibrated"
	if zonesCalibrated {
		zonesBasis = "user_" + *profile.MaxHRSource
	}

	section := map[string]interface{}{
		"activity_class":      nil,
		"effort_score":        nil,
		"hr_drift":            nil,
		"pace_variability":    nil,
		"flags":               []string{},
		"confidence":          schema.ConfidenceLow,
		"confidence_reasons":  []string{},
		"time_in_zones":       nil,
		"zones_calibrated":    zonesCalibrated,
		"zones_basis":         zonesBasis,
		"efficiency_analysis": nil,
		"stops_analysis":      nil,
		"interval_structure":  nil,
		"workout_match":       nil,
		"interval_kpis":       nil,
		"risk_level":          nil,
		"risk_score":          nil,
		"risk_reasons":        []string{},
	}
	if m == nil {
		return section
	}

	section["activity_class"] = m.ActivityClass
	section["effort_score"] = util.Round(m.EffortScore, 1)
	if m.HRDrift != nil {
		section["hr_drift"] = util.Round(*m.HRDrift, 1)
	}
	if m.PaceVariability != nil {
		section["pace_variability"] = util.Round(*m.PaceVariability, 1)
	}
	section["flags"] = m.Flags
	section["confidence"] = m.Confidence
	section["confidence_reasons"] = m.ConfidenceReasons
	if m.TimeInZones != nil {
		section["time_in_zones"] = jsonValue(m.TimeInZones)
	}
	if m.EfficiencyAnalysis != nil {
		section["efficiency_analysis"] = jsonValue(m.EfficiencyAnalysis)
	}
	if m.StopsAnalysis != nil {
		section["stops_analysis"] = jsonValue(m.StopsAnalysis)
	}
	if m.IntervalStructure != nil {
		section["interval_structure"] = jsonValue(m.IntervalStructure)
	}
	if m.WorkoutMatch != nil {
		section["workout_match"] = jsonValue(m.WorkoutMatch)
	}
	if m.IntervalKpis != nil {
		section["interval_kpis"] = jsonValue(m.IntervalKpis)
	}
	section["risk_level"] = m.RiskLevel
	section["risk_score"] = m.RiskScore
	section["risk_reasons"] = m.RiskReasons
	return section
}

func checkInSection(c *schema.CheckIn) map[string]interface{} {
	section := map[string]interface{}{
		"rpe":           nil,
		"pain_score":    nil,
		"pain_location": nil,
		"sleep_quality": nil,
		"notes":         nil,
	}
	if c == nil {
		return section
	}
	section["rpe"] = intOrNil(c.RPE)
	section["pain_score"] = intOrNil(c.PainScore)
	section["pain_location"] = strOrNil(c.PainLocation)
	section["sleep_quality"] = intOrNil(c.SleepQuality)
	section["notes"] = strOrNil(c.Notes)
	return section
}

func profileSection(p *schema.UserProfile) map[string]interface{} {
	section := map[string]interface{}{
		"goal_type":             nil,
		"experience_level":      nil,
		"weekly_days_available": nil,
		"injury_notes":          nil,
		"upcoming_races":        []interface{}{},
	}
	if p == nil {
		return section
	}
	section["goal_type"] = p.GoalType
	section["experience_level"] = p.ExperienceLevel
	section["weekly_days_available"] = p.WeeklyDaysAvailable
	section["injury_notes"] = strOrNil(p.InjuryNotes)
	section["upcoming_races"] = jsonValue(p.UpcomingRaces)
	return section
}

// recentTrainingSummary totals the 7, 28 and previous-28 day windows
// preceding the activity's date.
func (b *Builder) recentTrainingSummary(activity *schema.Activity) (map[string]interface{}, error) {
	day := activity.StartDate.Truncate(24 * time.Hour)

	summarize := func(from, to time.Time) (map[string]interface{}, error) {
		rows, err := b.activities.InRange(activity.UserID, &from, &to)
		if err != nil {
			return nil, err
		}

		ids := make([]string, len(rows))
		for i, a := range rows {
			ids[i] = a.ID
		}
		metrics, err := b.activities.MetricsFor(ids)
		if err != nil {
			return nil, err
		}

		var distance, movingTime int
		var effort float64
		for _, a := range rows {
			distance += a.DistanceM
			movingTime += a.MovingTimeS
			if m, ok := metrics[a.ID]; ok {
				effort += m.EffortScore
			}
		}
		return map[string]interface{}{
			"activity_count":      len(rows),
			"total_distance_m":    distance,
			"total_moving_time_s": movingTime,
			"total_effort":        util.Round(effort, 1),
		}, nil
	}

	last7, err := summarize(day.AddDate(0, 0, -7), day)
	if err != nil {
		return nil, err
	}
	last28, err := summarize(day.AddDate(0, 0, -28), day)
	if err != nil {
		return nil, err
	}
	prev28, err := summarize(day.AddDate(0, 0, -56), day.AddDate(0, 0, -28))
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"last_7d":      last7,
		"last_28d":     last28,
		"previous_28d": prev28,
	}, nil
}

// jsonValue copies a struct into plain maps/slices so the whole pack
// serializes with sorted keys.
func jsonValue(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func floatOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intOrNil(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func strOrNil(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
