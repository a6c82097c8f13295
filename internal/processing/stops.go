// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package processing

import (
	"github.com/stridelab/stride-backend/pkg/schema"
)

// AnalyzeStops walks the moving flag stream and groups contiguous
// stopped regions. Requires equal-length moving and time channels;
// when the provider sends no moving stream, continuous motion is
// assumed and no stops are detectable.
func AnalyzeStops(streams *schema.StreamSet) *schema.StopsAnalysis {
	moving, times := streams.Moving, streams.Time
	if !streams.Has(schema.StreamMoving) || !streams.Has(schema.StreamTime) {
		return nil
	}
	if len(moving) != len(times) {
		return nil
	}

	var stops []schema.Stop
	stopStart := -1

	record := func(startIdx, endIdx int) {
		duration := times[endIdx] - times[startIdx]
		if duration <= 0 {
			return
		}
		stop := schema.Stop{
			StartTime: times[startIdx],
			DurationS: duration,
		}
		if len(streams.LatLng) > startIdx {
			loc := streams.LatLng[startIdx]
			stop.Location = &loc
		}
		if len(streams.Distance) > startIdx {
			d := streams.Distance[startIdx]
			stop.DistanceM = &d
		}
		stops = append(stops, stop)
	}

	for i, isMoving := range moving {
		if !isMoving {
			if stopStart < 0 {
				stopStart = i
			}
			continue
		}
		if stopStart >= 0 {
			record(stopStart, i-1)
			stopStart = -1
		}
	}
	if stopStart >= 0 {
		record(stopStart, len(times)-1)
	}

	analysis := &schema.StopsAnalysis{Stops: []schema.Stop{}}
	for _, s := range stops {
		analysis.Stops = append(analysis.Stops, s)
		analysis.TotalStoppedTimeS += s.DurationS
		if s.DurationS > analysis.LongestStopS {
			analysis.LongestStopS = s.DurationS
		}
	}
	analysis.StoppedCount = len(stops)
	return analysis
}
