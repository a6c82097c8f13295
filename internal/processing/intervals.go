// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"math"

	"github.com/stridelab/stride-backend/internal/util"
	"github.com/stridelab/stride-backend/pkg/schema"
)

const (
	minWorkSegmentS = 30
	minRestSegmentS = 15
	minEdgeSegmentS = 120 // warmup / cooldown
)

type rawSegment struct {
	label    int // +1 work, -1 rest, 0 transition
	start    int
	duration int
}

// DetectIntervals segments an interval session into work and rest reps
// from the smoothed velocity stream. Returns nil unless the activity
// was classified as Intervals and the data supports at least two reps.
func DetectIntervals(streams *schema.StreamSet, activityClass string) *schema.IntervalStructure {
	if activityClass != schema.ClassIntervals {
		return nil
	}

	velocity := streams.Velocity
	if !streams.Has(schema.StreamVelocity) || len(velocity) < 60 {
		return nil
	}

	kernel := util.Min(30, len(velocity))
	smoothed := util.BoxcarSame(velocity, kernel)

	// Near-zero samples are stops, not rests.
	active := util.Filter(smoothed, func(v float64) bool { return v > 0.5 })
	if len(active) < 60 {
		return nil
	}

	threshold, ok := bimodalThreshold(active)
	if !ok {
		return nil
	}

	workThreshold := threshold * 1.05
	restThreshold := threshold * 0.95

	labels := make([]int, len(smoothed))
	for i, v := range smoothed {
		switch {
		case v >= workThreshold:
			labels[i] = 1
		case v <= restThreshold:
			labels[i] = -1
		}
	}

	var workSegs, restSegs []rawSegment
	for _, seg := range extractSegments(labels) {
		switch {
		case seg.label == 1 && seg.duration >= minWorkSegmentS:
			workSegs = append(workSegs, seg)
		case seg.label == -1 && seg.duration >= minRestSegmentS:
			restSegs = append(restSegs, seg)
		}
	}

	if len(workSegs) < 2 {
		return nil
	}

	firstWorkStart := workSegs[0].start
	lastWorkEnd := workSegs[len(workSegs)-1].start + workSegs[len(workSegs)-1].duration

	var warmup, cooldown *int
	if firstWorkStart >= minEdgeSegmentS {
		warmup = &firstWorkStart
	}
	if trailing := len(velocity) - lastWorkEnd; trailing >= minEdgeSegmentS {
		cooldown = &trailing
	}

	hr := streams.Heartrate
	distance := streams.Distance

	workDetails := make([]schema.WorkSegment, 0, len(workSegs))
	for idx, seg := range workSegs {
		s, e := seg.start, seg.start+seg.duration
		detail := schema.WorkSegment{
			SegmentNumber: idx + 1,
			StartTimeS:    s,
			DurationS:     seg.duration,
			AvgSpeedMps:   util.Round(mean(velocity[s:e]), 2),
		}
		if len(distance) > 0 {
			d := util.Round(distance[util.Min(e, len(distance)-1)]-distance[s], 1)
			detail.DistanceM = &d
		}
		if len(hr) >= e {
			avg := util.Round(mean(hr[s:e]), 1)
			peak := util.Round(maxOf(hr[s:e]), 1)
			detail.AvgHR = &avg
			detail.PeakHR = &peak
		}
		workDetails = append(workDetails, detail)
	}

	// Rests outside the work block are warmup/cooldown, not recoveries.
	restDetails := make([]schema.RestSegment, 0, len(restSegs))
	for _, seg := range restSegs {
		rs, re := seg.start, seg.start+seg.duration
		if rs < firstWorkStart || rs >= lastWorkEnd {
			continue
		}

		detail := schema.RestSegment{
			SegmentNumber: len(restDetails) + 1,
			DurationS:     seg.duration,
		}

		if len(hr) >= re {
			avg := util.Round(mean(hr[rs:re]), 1)
			detail.AvgHR = &avg

			// HR recovery: drop from the preceding rep's peak.
			for i := len(workDetails) - 1; i >= 0; i-- {
				w := workDetails[i]
				if w.StartTimeS+w.DurationS <= rs {
					if w.PeakHR != nil {
						rec := util.Round(*w.PeakHR-avg, 1)
						detail.HRRecoveryBpm = &rec
					}
					break
				}
			}
		}
		restDetails = append(restDetails, detail)
	}

	return &schema.IntervalStructure{
		WarmupDurationS:   warmup,
		CooldownDurationS: cooldown,
		WorkSegments:      workDetails,
		RestSegments:      restDetails,
		Summary:           summarizeIntervals(workDetails, restDetails),
	}
}

func summarizeIntervals(work []schema.WorkSegment, rest []schema.RestSegment) schema.IntervalSummary {
	workDurations := make([]float64, len(work))
	workSpeeds := make([]float64, len(work))
	totalWork := 0
	for i, w := range work {
		workDurations[i] = float64(w.DurationS)
		workSpeeds[i] = w.AvgSpeedMps
		totalWork += w.DurationS
	}

	var restDurations []float64
	var hrRecoveries []float64
	totalRest := 0
	for _, r := range rest {
		restDurations = append(restDurations, float64(r.DurationS))
		totalRest += r.DurationS
		if r.HRRecoveryBpm != nil {
			hrRecoveries = append(hrRecoveries, *r.HRRecoveryBpm)
		}
	}

	summary := schema.IntervalSummary{
		TotalWorkTimeS:   totalWork,
		TotalRestTimeS:   totalRest,
		RepCount:         len(work),
		AvgWorkDurationS: int(math.Round(mean(workDurations))),
		AvgWorkSpeedMps:  util.Round(mean(workSpeeds), 2),
	}

	if totalRest > 0 {
		ratio := util.Round(float64(totalWork)/float64(totalRest), 2)
		summary.WorkToRestRatio = &ratio
	}

	var durCV, speedCV *float64
	if cv, ok := util.CVPercent(workDurations); ok {
		rounded := util.Round(cv, 1)
		durCV = &rounded
	}
	if cv, ok := util.CVPercent(workSpeeds); ok {
		rounded := util.Round(cv, 1)
		speedCV = &rounded
	}
	summary.WorkDurationCV = durCV
	summary.WorkSpeedCV = speedCV

	if len(restDurations) > 0 {
		avgRest := int(math.Round(mean(restDurations)))
		summary.AvgRestDurationS = &avgRest
	}
	if len(hrRecoveries) > 0 {
		avgRec := util.Round(mean(hrRecoveries), 1)
		summary.AvgHRRecoveryBpm = &avgRec
	}

	summary.ConsistencyScore = consistencyLabel(durCV, speedCV)
	return summary
}

// consistencyLabel grades on the worse of the two CVs.
func consistencyLabel(durCV, speedCV *float64) string {
	var worst float64
	seen := false
	for _, cv := range []*float64{durCV, speedCV} {
		if cv != nil && (!seen || *cv > worst) {
			worst = *cv
			seen = true
		}
	}
	switch {
	case !seen:
		return "unknown"
	case worst < 10:
		return schema.ConfidenceHigh
	case worst < 20:
		return schema.ConfidenceMedium
	default:
		return schema.ConfidenceLow
	}
}

// bimodalThreshold separates fast and slow speed clusters iteratively:
// start at the mean, then move to the midpoint of the below/above
// cluster means until the change drops under 0.01 (at most 20
// rounds). Fails unless the clusters differ by at least 30%.
func bimodalThreshold(speeds []float64) (float64, bool) {
	if len(speeds) < 10 {
		return 0, false
	}

	threshold := mean(speeds)
	for i := 0; i < 20; i++ {
		lowMean, highMean, ok := clusterMeans(speeds, threshold)
		if !ok {
			return 0, false
		}
		next := (lowMean + highMean) / 2
		if math.Abs(next-threshold) < 0.01 {
			break
		}
		threshold = next
	}

	lowMean, highMean, ok := clusterMeans(speeds, threshold)
	if !ok || highMean < lowMean*1.3 {
		return 0, false
	}
	return threshold, true
}

func clusterMeans(speeds []float64, threshold float64) (low, high float64, ok bool) {
	var lowSum, highSum float64
	var lowN, highN int
	for _, v := range speeds {
		if v <= threshold {
			lowSum += v
			lowN++
		} else {
			highSum += v
			highN++
		}
	}
	if lowN == 0 || highN == 0 {
		return 0, 0, false
	}
	return lowSum / float64(lowN), highSum / float64(highN), true
}

func extractSegments(labels []int) []rawSegment {
	var segments []rawSegment
	if len(labels) == 0 {
		return segments
	}

	current := labels[0]
	start := 0
	for i := 1; i < len(labels); i++ {
		if labels[i] != current {
			segments = append(segments, rawSegment{label: current, start: start, duration: i - start})
			current = labels[i]
			start = i
		}
	}
	segments = append(segments, rawSegment{label: current, start: start, duration: len(labels) - start})
	return segments
}

func mean(values []float64) float64 {
	m, err := util.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}
