// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stridelab/stride-backend/pkg/schema"
)

var metricColumns = []string{
	"derived_metrics.id", "derived_metrics.activity_id", "derived_metrics.activity_class",
	"derived_metrics.effort_score", "derived_metrics.pace_variability", "derived_metrics.hr_drift",
	"derived_metrics.time_in_zones", "derived_metrics.stops_analysis", "derived_metrics.efficiency_analysis",
	"derived_metrics.interval_structure", "derived_metrics.workout_match", "derived_metrics.interval_kpis",
	"derived_metrics.flags", "derived_metrics.risk_level", "derived_metrics.risk_score",
	"derived_metrics.risk_reasons", "derived_metrics.confidence", "derived_metrics.confidence_reasons",
	"derived_metrics.created_at", "derived_metrics.updated_at",
}

func scanMetric(row interface{ Scan(...interface{}) error }) (*schema.DerivedMetric, error) {
	m := &schema.DerivedMetric{}
	if err := row.Scan(&m.ID, &m.ActivityID, &m.ActivityClass,
		&m.EffortScore, &m.PaceVariability, &m.HRDrift,
		&m.RawTimeInZones, &m.RawStopsAnalysis, &m.RawEfficiencyAnalysis,
		&m.RawIntervalStructure, &m.RawWorkoutMatch, &m.RawIntervalKpis,
		&m.RawFlags, &m.RiskLevel, &m.RiskScore,
		&m.RawRiskReasons, &m.Confidence, &m.RawConfidenceReasons,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := decodeMetric(m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeMetric(m *schema.DerivedMetric) error {
	for _, field := range []struct {
		raw []byte
		dst interface{}
	}{
		{m.RawTimeInZones, &m.TimeInZones},
		{m.RawStopsAnalysis, &m.StopsAnalysis},
		{m.RawEfficiencyAnalysis, &m.EfficiencyAnalysis},
		{m.RawIntervalStructure, &m.IntervalStructure},
		{m.RawWorkoutMatch, &m.WorkoutMatch},
		{m.RawIntervalKpis, &m.IntervalKpis},
		{m.RawFlags, &m.Flags},
		{m.RawRiskReasons, &m.RiskReasons},
		{m.RawConfidenceReasons, &m.ConfidenceReasons},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return fmt.Errorf("decoding derived metric %s: %w", m.ActivityID, err)
		}
	}

	m.RawTimeInZones, m.RawStopsAnalysis, m.RawEfficiencyAnalysis = nil, nil, nil
	m.RawIntervalStructure, m.RawWorkoutMatch, m.RawIntervalKpis = nil, nil, nil
	m.RawFlags, m.RawRiskReasons, m.RawConfidenceReasons = nil, nil, nil
	return nil
}

func encodeMetric(m *schema.DerivedMetric) error {
	marshal := func(v interface{}, isNil bool) ([]byte, error) {
		if isNil {
			return nil, nil
		}
		return json.Marshal(v)
	}

	var err error
	if m.RawTimeInZones, err = marshal(m.TimeInZones, m.TimeInZones == nil); err != nil {
		return err
	}
	if m.RawStopsAnalysis, err = marshal(m.StopsAnalysis, m.StopsAnalysis == nil); err != nil {
		return err
	}
	if m.RawEfficiencyAnalysis, err = marshal(m.EfficiencyAnalysis, m.EfficiencyAnalysis == nil); err != nil {
		return err
	}
	if m.RawIntervalStructure, err = marshal(m.IntervalStructure, m.IntervalStructure == nil); err != nil {
		return err
	}
	if m.RawWorkoutMatch, err = marshal(m.WorkoutMatch, m.WorkoutMatch == nil); err != nil {
		return err
	}
	if m.RawIntervalKpis, err = marshal(m.IntervalKpis, m.IntervalKpis == nil); err != nil {
		return err
	}
	if m.RawFlags, err = json.Marshal(m.Flags); err != nil {
		return err
	}
	if m.RawRiskReasons, err = json.Marshal(m.RiskReasons); err != nil {
		return err
	}
	m.RawConfidenceReasons, err = json.Marshal(m.ConfidenceReasons)
	return err
}

func (r *ActivityRepository) FindMetric(activityID string) (*schema.DerivedMetric, error) {
	q := qb().Select(metricColumns...).From("derived_metrics").
		Where("derived_metrics.activity_id = ?", activityID)
	return scanMetric(q.RunWith(r.stmtCache).QueryRow())
}

// MetricsFor bulk-loads the derived metrics of many activities, keyed
// by activity id. Used by the flag generator's history window and the
// trends projection to avoid per-row round-trips.
func (r *ActivityRepository) MetricsFor(activityIDs []string) (map[string]*schema.DerivedMetric, error) {
	out := make(map[string]*schema.DerivedMetric, len(activityIDs))
	if len(activityIDs) == 0 {
		return out, nil
	}

	ids := make([]interface{}, len(activityIDs))
	for i, id := range activityIDs {
		ids[i] = id
	}

	q := qb().Select(metricColumns...).From("derived_metrics").
		Where(inClause("derived_metrics.activity_id", len(ids)), ids...)
	rows, err := q.RunWith(r.DB).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		out[m.ActivityID] = m
	}
	return out, rows.Err()
}

// UpsertMetric rewrites the derived metric row in place. Flags and
// reason lists are replaced wholesale, never diffed.
func (r *ActivityRepository) UpsertMetric(m *schema.DerivedMetric) error {
	if err := encodeMetric(m); err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := qb().Update("derived_metrics").
		Set("activity_class", m.ActivityClass).
		Set("effort_score", m.EffortScore).
		Set("pace_variability", m.PaceVariability).
		Set("hr_drift", m.HRDrift).
		Set("time_in_zones", m.RawTimeInZones).
		Set("stops_analysis", m.RawStopsAnalysis).
		Set("efficiency_analysis", m.RawEfficiencyAnalysis).
		Set("interval_structure", m.RawIntervalStructure).
		Set("workout_match", m.RawWorkoutMatch).
		Set("interval_kpis", m.RawIntervalKpis).
		Set("flags", m.RawFlags).
		Set("risk_level", m.RiskLevel).
		Set("risk_score", m.RiskScore).
		Set("risk_reasons", m.RawRiskReasons).
		Set("confidence", m.Confidence).
		Set("confidence_reasons", m.RawConfidenceReasons).
		Set("updated_at", now).
		Where("derived_metrics.activity_id = ?", m.ActivityID).
		RunWith(r.DB).Exec()
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		m.CreatedAt = now
		m.UpdatedAt = now
		_, err = qb().Insert("derived_metrics").
			Columns("activity_id", "activity_class", "effort_score", "pace_variability",
				"hr_drift", "time_in_zones", "stops_analysis", "efficiency_analysis",
				"interval_structure", "workout_match", "interval_kpis", "flags",
				"risk_level", "risk_score", "risk_reasons", "confidence",
				"confidence_reasons", "created_at", "updated_at").
			Values(m.ActivityID, m.ActivityClass, m.EffortScore, m.PaceVariability,
				m.HRDrift, m.RawTimeInZones, m.RawStopsAnalysis, m.RawEfficiencyAnalysis,
				m.RawIntervalStructure, m.RawWorkoutMatch, m.RawIntervalKpis, m.RawFlags,
				m.RiskLevel, m.RiskScore, m.RawRiskReasons, m.Confidence,
				m.RawConfidenceReasons, m.CreatedAt, m.UpdatedAt).
			RunWith(r.DB).Exec()
	}
	if err != nil {
		return err
	}
	return decodeMetric(m)
}

// UpdateMetricClass rewrites only the stored class, used by the lazy
// class repair on detail reads.
func (r *ActivityRepository) UpdateMetricClass(activityID string, class string) error {
	_, err := qb().Update("derived_metrics").
		Set("activity_class", class).
		Set("updated_at", time.Now().UTC()).
		Where("derived_metrics.activity_id = ?", activityID).
		RunWith(r.DB).Exec()
	return err
}

func inClause(column string, n int) string {
	clause := column + " IN ("
	for i := 0; i < n; i++ {
		if i > 0 {
			clause += ","
		}
		clause += "?"
	}
	return clause + ")"
}
