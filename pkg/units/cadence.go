// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package units normalizes provider-reported measurement quirks at the
// presentation boundary. Stored streams are never mutated.
package units

// Strava sometimes reports running cadence in strides/min (~80)
// instead of steps/min (~160). Values strictly below this threshold
// are taken to be strides/min and doubled, for every activity type.
const cadenceSpmThreshold = 130

// NormalizeCadenceSpm converts a cadence value to steps per minute.
func NormalizeCadenceSpm(cadence float64) float64 {
	if cadence < cadenceSpmThreshold {
		return cadence * 2
	}
	return cadence
}

// NormalizeCadencePtr is the pointer-friendly variant used on optional
// summary fields.
func NormalizeCadencePtr(cadence *float64) *float64 {
	if cadence == nil {
		return nil
	}
	v := NormalizeCadenceSpm(*cadence)
	return &v
}

// NormalizeCadenceStream returns a doubled copy of the stream when its
// mean indicates strides/min, otherwise the stream itself.
func NormalizeCadenceStream(stream []float64) []float64 {
	if len(stream) == 0 {
		return stream
	}
	var sum float64
	for _, v := range stream {
		sum += v
	}
	if sum/float64(len(stream)) >= cadenceSpmThreshold {
		return stream
	}
	out := make([]float64, len(stream))
	for i, v := range stream {
		out[i] = v * 2
	}
	return out
}
