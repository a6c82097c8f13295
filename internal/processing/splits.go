// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"github.com/stridelab/stride-backend/pkg/schema"
	"github.com/stridelab/stride-backend/pkg/units"
)

// Split is one per-kilometer segment computed from the cumulative
// distance stream. Served on the detail read, never stored.
type Split struct {
	Split       int      `json:"split"`
	DistanceM   float64  `json:"distance"`
	ElapsedTime float64  `json:"elapsed_time"`
	PaceSPerKm  float64  `json:"pace"`
	SpeedMps    float64  `json:"speed"`
	AvgHR       *float64 `json:"avg_hr"`
	AvgGrade    *float64 `json:"avg_grade"`
	AvgCadence  *float64 `json:"avg_cadence"`
}

// CalculateSplits walks the cumulative distance stream and cuts a
// split every splitDistanceM meters; a partial trailing split is
// emitted when more than 100 m remain. Cadence is normalized to
// steps/min at this presentation boundary.
func CalculateSplits(streams *schema.StreamSet, splitDistanceM float64) []Split {
	if !streams.Has(schema.StreamDistance) || !streams.Has(schema.StreamTime) {
		return []Split{}
	}

	distance, times := streams.Distance, streams.Time
	n := len(distance)
	if len(times) != n {
		return []Split{}
	}

	cadence := streams.Cadence
	if len(cadence) > 0 {
		cadence = units.NormalizeCadenceStream(cadence)
	}

	splits := []Split{}
	startIdx := 0
	target := splitDistanceM
	number := 1

	for i := 1; i < n; i++ {
		for distance[i] >= target {
			splits = append(splits, computeSplit(number, startIdx, i,
				distance, times, streams.Heartrate, streams.Grade, cadence))

			target += splitDistanceM
			startIdx = i
			number++
			if startIdx >= n {
				break
			}
		}
	}

	// Partial last split when more than 100 m remain.
	if startIdx < n-1 {
		covered := float64(number-1) * splitDistanceM
		if distance[n-1]-covered > 100 {
			splits = append(splits, computeSplit(number, startIdx, n,
				distance, times, streams.Heartrate, streams.Grade, cadence))
		}
	}

	return splits
}

func computeSplit(number, startIdx, endIdx int, distance, times, hr, grade, cadence []float64) Split {
	distDiff := distance[endIdx-1] - distance[startIdx]
	timeDiff := times[endIdx-1] - times[startIdx]
	if timeDiff <= 0 {
		timeDiff = 1
	}
	if distDiff <= 0 {
		distDiff = 1
	}

	split := Split{
		Split:       number,
		DistanceM:   distDiff,
		ElapsedTime: timeDiff,
		PaceSPerKm:  timeDiff / (distDiff / 1000.0),
		SpeedMps:    distDiff / timeDiff,
	}

	segmentMean := func(stream []float64) *float64 {
		if len(stream) < endIdx || endIdx <= startIdx {
			return nil
		}
		var sum float64
		for _, v := range stream[startIdx:endIdx] {
			sum += v
		}
		m := sum / float64(endIdx-startIdx)
		return &m
	}

	split.AvgHR = segmentMean(hr)
	split.AvgGrade = segmentMean(grade)
	split.AvgCadence = segmentMean(cadence)
	return split
}
