// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package contextpack

import (
	"encoding/json"
	"testing"

	"github.com/stridelab/stride-backend/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashStability(t *testing.T) {
	pack := map[string]interface{}{
		"activity": map[string]interface{}{"type": "Run", "distance_m": 5000},
		"metrics":  map[string]interface{}{"effort_score": 105.5, "flags": []string{"a", "b"}},
		"safety_rules": map[string]interface{}{
			"never_diagnose":        true,
			"pain_severe_threshold": 7,
		},
	}

	h1, err := Hash(pack)
	require.NoError(t, err)
	h2, err := Hash(pack)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// Key insertion order must not matter: rebuild the same content.
	rebuilt := map[string]interface{}{
		"safety_rules": map[string]interface{}{
			"pain_severe_threshold": 7,
			"never_diagnose":        true,
		},
		"metrics":  map[string]interface{}{"flags": []string{"a", "b"}, "effort_score": 105.5},
		"activity": map[string]interface{}{"distance_m": 5000, "type": "Run"},
	}
	h3, err := Hash(rebuilt)
	require.NoError(t, err)
	assert.Equal(t, h1, h3)

	// Any value change changes the hash.
	pack["activity"].(map[string]interface{})["distance_m"] = 5001
	h4, err := Hash(pack)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h4)
}

func streamsWith(t *testing.T, channels map[string]interface{}) *schema.StreamSet {
	t.Helper()
	rows := make([]*schema.Stream, 0, len(channels))
	for name, data := range channels {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		rows = append(rows, &schema.Stream{Type: name, RawData: raw})
	}
	return schema.DecodeStreams(rows)
}

func floatPtr(v float64) *float64 { return &v }

func TestInferSignals(t *testing.T) {
	t.Run("bare activity misses everything", func(t *testing.T) {
		a := &schema.Activity{}
		available, missing := InferSignals(a, streamsWith(t, nil))
		assert.Empty(t, available)
		assert.ElementsMatch(t, []string{
			"cadence", "elevation", "gps", "heart_rate", "power", "splits", "weather",
		}, missing)
	})

	t.Run("summary fields count", func(t *testing.T) {
		a := &schema.Activity{
			AvgHR:      floatPtr(150),
			AvgCadence: floatPtr(170),
			RawSummary: json.RawMessage(`{"total_elevation_gain": 12.0}`),
		}
		available, missing := InferSignals(a, streamsWith(t, nil))
		assert.ElementsMatch(t, []string{"heart_rate", "cadence", "elevation"}, available)
		assert.Contains(t, missing, "gps")
		assert.Contains(t, missing, "weather")
	})

	t.Run("streams count", func(t *testing.T) {
		a := &schema.Activity{}
		streams := streamsWith(t, map[string]interface{}{
			"heartrate": []float64{150},
			"latlng":    [][2]float64{{48.1, 11.5}},
			"distance":  []float64{0, 3},
			"watts":     []float64{210},
		})
		available, _ := InferSignals(a, streams)
		assert.ElementsMatch(t, []string{"heart_rate", "gps", "splits", "power"}, available)
	})

	t.Run("polyline implies gps", func(t *testing.T) {
		a := &schema.Activity{
			RawSummary: json.RawMessage(`{"map": {"summary_polyline": "abc123"}}`),
		}
		available, _ := InferSignals(a, streamsWith(t, nil))
		assert.Contains(t, available, "gps")
	})

	t.Run("lists are sorted", func(t *testing.T) {
		a := &schema.Activity{AvgHR: floatPtr(150), AvgCadence: floatPtr(170)}
		available, missing := InferSignals(a, streamsWith(t, nil))
		assert.IsIncreasing(t, available)
		assert.IsIncreasing(t, missing)
	})
}
