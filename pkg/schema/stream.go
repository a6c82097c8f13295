// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// Recognized stream channels. All channels of one activity are
// expected to be equal-length and time-aligned at 1 Hz.
const (
	StreamTime        = "time"
	StreamDistance    = "distance"
	StreamLatLng      = "latlng"
	StreamAltitude    = "altitude"
	StreamVelocity    = "velocity_smooth"
	StreamHeartrate   = "heartrate"
	StreamCadence     = "cadence"
	StreamWatts       = "watts"
	StreamTemp        = "temp"
	StreamMoving      = "moving"
	StreamGradeSmooth = "grade_smooth"
)

// StreamChannels lists every channel requested from the provider.
var StreamChannels = []string{
	StreamTime, StreamDistance, StreamLatLng, StreamAltitude,
	StreamVelocity, StreamHeartrate, StreamCadence, StreamWatts,
	StreamTemp, StreamMoving, StreamGradeSmooth,
}

// Stream is one per-activity per-channel sample array, stored as an
// opaque JSON document to preserve order and per-channel value type.
type Stream struct {
	ID         int64           `json:"id" db:"id"`
	ActivityID string          `json:"activity_id" db:"activity_id"`
	Type       string          `json:"stream_type" db:"stream_type"`
	RawData    json.RawMessage `json:"data" db:"data"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// StreamSet is the decoded, channel-keyed view the analysis code works
// on. Absent channels are nil slices.
type StreamSet struct {
	Time      []float64
	Distance  []float64
	LatLng    [][2]float64
	Altitude  []float64
	Velocity  []float64
	Heartrate []float64
	Cadence   []float64
	Watts     []float64
	Temp      []float64
	Moving    []bool
	Grade     []float64

	present map[string]bool
}

// DecodeStreams builds a StreamSet from stored stream rows. Channels
// that fail to decode are dropped, not fatal: the analyses treat a
// malformed channel like a missing one.
func DecodeStreams(rows []*Stream) *StreamSet {
	s := &StreamSet{present: map[string]bool{}}
	for _, row := range rows {
		var err error
		switch row.Type {
		case StreamTime:
			err = json.Unmarshal(row.RawData, &s.Time)
		case StreamDistance:
			err = json.Unmarshal(row.RawData, &s.Distance)
		case StreamLatLng:
			err = json.Unmarshal(row.RawData, &s.LatLng)
		case StreamAltitude:
			err = json.Unmarshal(row.RawData, &s.Altitude)
		case StreamVelocity:
			err = json.Unmarshal(row.RawData, &s.Velocity)
		case StreamHeartrate:
			err = json.Unmarshal(row.RawData, &s.Heartrate)
		case StreamCadence:
			err = json.Unmarshal(row.RawData, &s.Cadence)
		case StreamWatts:
			err = json.Unmarshal(row.RawData, &s.Watts)
		case StreamTemp:
			err = json.Unmarshal(row.RawData, &s.Temp)
		case StreamMoving:
			err = json.Unmarshal(row.RawData, &s.Moving)
		case StreamGradeSmooth:
			err = json.Unmarshal(row.RawData, &s.Grade)
		default:
			continue
		}
		if err != nil {
			continue
		}
		s.present[row.Type] = true
	}
	return s
}

// Has reports whether the named channel was stored and decodable.
func (s *StreamSet) Has(channel string) bool {
	return s != nil && s.present[channel]
}

// Empty reports whether no channel at all is available.
func (s *StreamSet) Empty() bool {
	return s == nil || len(s.present) == 0
}

// Validate checks the cross-channel length invariant against the time
// channel. Mismatched channels make the whole set suspect.
func (s *StreamSet) Validate() error {
	if s.Empty() || !s.Has(StreamTime) {
		return nil
	}
	n := len(s.Time)
	check := func(name string, l int) error {
		if l != 0 && l != n {
			return fmt.Errorf("stream length mismatch: %s has %d samples, time has %d", name, l, n)
		}
		return nil
	}
	for name, l := range map[string]int{
		StreamDistance:    len(s.Distance),
		StreamLatLng:      len(s.LatLng),
		StreamAltitude:    len(s.Altitude),
		StreamVelocity:    len(s.Velocity),
		StreamHeartrate:   len(s.Heartrate),
		StreamCadence:     len(s.Cadence),
		StreamWatts:       len(s.Watts),
		StreamTemp:        len(s.Temp),
		StreamMoving:      len(s.Moving),
		StreamGradeSmooth: len(s.Grade),
	} {
		if err := check(name, l); err != nil {
			return err
		}
	}
	return nil
}
