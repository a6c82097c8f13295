// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"fmt"

	"github.com/stridelab/stride-backend/internal/repository"
	"github.com/stridelab/stride-backend/pkg/log"
	"github.com/stridelab/stride-backend/pkg/schema"
)

// historyWindow bounds the classifier and load-spike lookback.
const historyWindow = 20

// Engine is the processing orchestrator: it loads every input of one
// activity, runs the pure analysis stages in order and rewrites the
// derived metric row. Any failure aborts the whole invocation; no
// partial rows are written.
type Engine struct {
	activities *repository.ActivityRepository
	users      *repository.UserRepository
}

func NewEngine() *Engine {
	return &Engine{
		activities: repository.GetActivityRepository(),
		users:      repository.GetUserRepository(),
	}
}

// ProcessActivity recomputes the full derived metric record of one
// activity. Inputs are loaded once per invocation; nothing is cached
// across jobs.
func (e *Engine) ProcessActivity(activityID string) (*schema.DerivedMetric, error) {
	activity, err := e.activities.FindById(activityID)
	if err != nil {
		return nil, fmt.Errorf("loading activity %s: %w", activityID, err)
	}

	history, err := e.activities.History(activity.UserID, activity.StartDate, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	streamRows, err := e.activities.FetchStreams(activity.ID)
	if err != nil {
		return nil, fmt.Errorf("loading streams: %w", err)
	}
	streams := schema.DecodeStreams(streamRows)
	if err := streams.Validate(); err != nil {
		// Misaligned channels degrade to per-metric preconditions
		// instead of aborting: each analysis rechecks the lengths it
		// needs.
		log.Warnf("activity %s: %s", activity.ID, err)
	}

	checkIn, err := e.activities.FindCheckIn(activity.ID)
	if err != nil && err != repository.ErrNotFound {
		return nil, fmt.Errorf("loading check-in: %w", err)
	}

	profile, err := e.users.FindProfile(activity.UserID)
	if err != nil && err != repository.ErrNotFound {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	metrics := ComputeMetrics(activity, streams, profile.EffectiveMaxHR())

	class := Classify(activity, history)

	structure := DetectIntervals(streams, class)

	match := MatchWorkout(structure, plannedWorkout(checkIn))

	var kpis *schema.IntervalKpis
	if structure != nil {
		kpis = BuildIntervalKpis(structure, profile.ZonesCalibrated(), metrics.TimeInZones)
	}

	historyIDs := make([]string, len(history))
	for i, h := range history {
		historyIDs[i] = h.ID
	}
	historyMetrics, err := e.activities.MetricsFor(historyIDs)
	if err != nil {
		return nil, fmt.Errorf("loading history metrics: %w", err)
	}

	// Effort scores of the latest prior activities, newest first.
	var historyEfforts []float64
	classOf := make(map[string]string, len(historyMetrics))
	for _, h := range history {
		if m, ok := historyMetrics[h.ID]; ok {
			historyEfforts = append(historyEfforts, m.EffortScore)
			classOf[h.ID] = m.ActivityClass
		}
	}

	flags := GenerateFlags(activity, class, metrics, checkIn, historyEfforts)

	trainingCtx := BuildTrainingContext(activity, history, classOf)

	risk := ScoreRisk(flags, checkIn, trainingCtx)

	confidence, confidenceReasons := ComputeConfidence(activity, streams, checkIn, structure, match)

	dm := &schema.DerivedMetric{
		ActivityID:         activity.ID,
		ActivityClass:      class,
		EffortScore:        metrics.EffortScore,
		PaceVariability:    metrics.PaceVariability,
		HRDrift:            metrics.HRDrift,
		TimeInZones:        metrics.TimeInZones,
		StopsAnalysis:      metrics.StopsAnalysis,
		EfficiencyAnalysis: metrics.EfficiencyAnalysis,
		IntervalStructure:  structure,
		WorkoutMatch:       match,
		IntervalKpis:       kpis,
		Flags:              flags,
		RiskLevel:          risk.Level,
		RiskScore:          risk.Score,
		RiskReasons:        risk.Reasons,
		Confidence:         confidence,
		ConfidenceReasons:  confidenceReasons,
	}

	if err := e.activities.UpsertMetric(dm); err != nil {
		return nil, fmt.Errorf("upserting derived metric: %w", err)
	}
	return dm, nil
}

// TrainingContextFor exposes the 7-day context for read-side
// consumers (context pack).
func (e *Engine) TrainingContextFor(activity *schema.Activity) (*schema.TrainingContext, error) {
	history, err := e.activities.History(activity.UserID, activity.StartDate, historyWindow)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(history))
	for i, h := range history {
		ids[i] = h.ID
	}
	metrics, err := e.activities.MetricsFor(ids)
	if err != nil {
		return nil, err
	}

	classOf := make(map[string]string, len(metrics))
	for id, m := range metrics {
		classOf[id] = m.ActivityClass
	}
	return BuildTrainingContext(activity, history, classOf), nil
}

// plannedWorkout extracts the declared interval plan from the
// check-in. Structured plan capture has no input surface yet, so this
// resolves to nil until the check-in schema grows a plan field.
func plannedWorkout(checkIn *schema.CheckIn) *schema.PlannedWorkout {
	_ = checkIn
	return nil
}
