// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package processing derives all analytical facts of one activity:
// metrics, class, interval structure, workout match, flags, risk and
// confidence. Every computation is a pure function over the activity
// record, the decoded streams and the athlete context; preconditions
// not met yield nil fields, never errors.
package processing

import (
	"math"

	"github.com/stridelab/stride-backend/internal/util"
	"github.com/stridelab/stride-backend/pkg/schema"
)

// EffortScore is a TRIMP-like per-activity load proxy. With HR data it
// weighs duration by the cubed HR ratio; without it, minutes stand in.
// Never null.
func EffortScore(activity *schema.Activity) float64 {
	minutes := float64(activity.MovingTimeS) / 60.0
	if activity.AvgHR != nil && activity.MaxHR != nil && *activity.MaxHR > 0 {
		ratio := *activity.AvgHR / *activity.MaxHR
		return util.Round(minutes*math.Pow(ratio, 3)*10, 1)
	}
	return util.Round(minutes, 1)
}

// TimeInZones buckets heart-rate samples into the 5 classic zones as a
// percentage of max HR:
// Z1 50-60%, Z2 60-70%, Z3 70-80%, Z4 80-90%, Z5 >=90%.
// Samples below 50% are dropped; samples with HR <= 30 are treated as
// sensor noise and excluded. One sample counts as one second.
func TimeInZones(streams *schema.StreamSet, maxHR int) schema.ZoneTimes {
	if !streams.Has(schema.StreamHeartrate) {
		return nil
	}

	valid := 0
	zones := schema.ZoneTimes{"Z1": 0, "Z2": 0, "Z3": 0, "Z4": 0, "Z5": 0}
	max := float64(maxHR)
	for _, hr := range streams.Heartrate {
		if hr <= 30 {
			continue
		}
		valid++
		switch pct := hr / max; {
		case pct < 0.5:
			// below Z1, dropped
		case pct < 0.6:
			zones["Z1"]++
		case pct < 0.7:
			zones["Z2"]++
		case pct < 0.8:
			zones["Z3"]++
		case pct < 0.9:
			zones["Z4"]++
		default:
			zones["Z5"]++
		}
	}
	if valid == 0 {
		return nil
	}
	return zones
}

// PaceVariability is the coefficient of variation of instantaneous
// speed, in percent. Lower is steadier. Requires at least 60 velocity
// samples; stopped samples (<= 0.5 m/s) are excluded.
func PaceVariability(streams *schema.StreamSet) *float64 {
	velocity := streams.Velocity
	if !streams.Has(schema.StreamVelocity) || len(velocity) < 60 {
		return nil
	}

	moving := util.Filter(velocity, func(v float64) bool { return v > 0.5 })
	if len(moving) == 0 {
		return nil
	}

	mean, _ := util.Mean(moving)
	if mean == 0 {
		return nil
	}

	cv := util.Round((util.Std(moving)/mean)*100, 2)
	return &cv
}

// HRDrift is the pace:HR decoupling between the first and second half
// of a run, as a percentage. Drift > 5% suggests fatigue or
// dehydration. Requires aligned HR and velocity streams of at least 10
// minutes, with at least 600 samples surviving the moving filter
// (speed > 0.5 m/s, HR > 60).
func HRDrift(streams *schema.StreamSet) *float64 {
	hr, vel := streams.Heartrate, streams.Velocity
	if len(hr) == 0 || len(vel) == 0 || len(hr) != len(vel) || len(hr) < 600 {
		return nil
	}

	cleanHR := make([]float64, 0, len(hr))
	cleanVel := make([]float64, 0, len(vel))
	for i := range hr {
		if vel[i] > 0.5 && hr[i] > 60 {
			cleanHR = append(cleanHR, hr[i])
			cleanVel = append(cleanVel, vel[i])
		}
	}
	if len(cleanHR) < 600 {
		return nil
	}

	// Efficiency factor = speed / HR, higher is better.
	half := len(cleanHR) / 2
	efMean := func(v, h []float64) float64 {
		ratios := make([]float64, len(v))
		for i := range v {
			ratios[i] = v[i] / h[i]
		}
		m, _ := util.Mean(ratios)
		return m
	}
	efFirst := efMean(cleanVel[:half], cleanHR[:half])
	efSecond := efMean(cleanVel[half:], cleanHR[half:])

	if efFirst == 0 {
		return nil
	}

	drift := util.Round((1-efSecond/efFirst)*100, 2)
	return &drift
}

// Efficiency computes speed-per-heartbeat economy in m/min per bpm:
// the filtered average, the best 3-minute sustained window, and a
// smoothed downsampled curve for charting.
func Efficiency(streams *schema.StreamSet) *schema.EfficiencyAnalysis {
	vel, hr := streams.Velocity, streams.Heartrate
	if len(vel) == 0 || len(hr) == 0 {
		return nil
	}

	length := util.Min(len(vel), len(hr))
	if length < 180 {
		return nil
	}
	vel, hr = vel[:length], hr[:length]

	// Average over valid samples only: above a slow walk and with a
	// plausible HR reading.
	var effValues []float64
	for i := 0; i < length; i++ {
		if vel[i] > 0.8 && hr[i] > 40 {
			effValues = append(effValues, (vel[i]*60.0)/hr[i])
		}
	}
	if len(effValues) < 60 {
		return nil
	}
	avg, _ := util.Mean(effValues)

	// Sustained window over the raw stream with invalid samples zeroed,
	// so stops penalize the window instead of vanishing from it.
	rawEff := make([]float64, length)
	for i := 0; i < length; i++ {
		if vel[i] > 0.8 && hr[i] > 40 {
			rawEff[i] = (vel[i] * 60.0) / hr[i]
		}
	}

	best := avg
	if rolling := util.BoxcarValid(rawEff, 180); len(rolling) > 0 {
		best = rolling[0]
		for _, v := range rolling {
			if v > best {
				best = v
			}
		}
	}

	smoothed := util.BoxcarSame(rawEff, 60)
	curve := make([]float64, 0, len(smoothed)/10+1)
	for i := 0; i < len(smoothed); i += 10 {
		curve = append(curve, util.Round(smoothed[i], 3))
	}

	return &schema.EfficiencyAnalysis{
		Average:       util.Round(avg, 2),
		BestSustained: util.Round(best, 2),
		Curve:         curve,
		Unit:          "m/min/bpm",
	}
}

// MetricsData bundles the stream-derived metric fields.
type MetricsData struct {
	EffortScore        float64
	PaceVariability    *float64
	HRDrift            *float64
	TimeInZones        schema.ZoneTimes
	StopsAnalysis      *schema.StopsAnalysis
	EfficiencyAnalysis *schema.EfficiencyAnalysis
}

// ComputeMetrics evaluates every stream metric of one activity.
// maxHR is the resolved effective max heart rate.
func ComputeMetrics(activity *schema.Activity, streams *schema.StreamSet, maxHR int) MetricsData {
	data := MetricsData{EffortScore: EffortScore(activity)}

	if streams.Empty() {
		return data
	}

	data.HRDrift = HRDrift(streams)
	data.PaceVariability = PaceVariability(streams)
	data.StopsAnalysis = AnalyzeStops(streams)
	data.EfficiencyAnalysis = Efficiency(streams)
	data.TimeInZones = TimeInZones(streams, maxHR)
	return data
}
