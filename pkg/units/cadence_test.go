// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCadenceSpm(t *testing.T) {
	// Strides/min are doubled.
	assert.Equal(t, 170.0, NormalizeCadenceSpm(85))
	// Already steps/min stays.
	assert.Equal(t, 172.0, NormalizeCadenceSpm(172))
	// Boundary: 130 is treated as steps/min.
	assert.Equal(t, 130.0, NormalizeCadenceSpm(130))
	assert.Equal(t, 258.0, NormalizeCadenceSpm(129))
}

func TestNormalizeCadencePtr(t *testing.T) {
	assert.Nil(t, NormalizeCadencePtr(nil))

	v := 80.0
	out := NormalizeCadencePtr(&v)
	assert.Equal(t, 160.0, *out)
	// Stored value untouched.
	assert.Equal(t, 80.0, v)
}

func TestNormalizeCadenceStream(t *testing.T) {
	doubled := NormalizeCadenceStream([]float64{80, 85, 90})
	assert.Equal(t, []float64{160, 170, 180}, doubled)

	unchanged := []float64{170, 175, 180}
	assert.Equal(t, unchanged, NormalizeCadenceStream(unchanged))

	assert.Empty(t, NormalizeCadenceStream(nil))
}
