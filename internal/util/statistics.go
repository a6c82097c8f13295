// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package util

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/constraints"
)

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func sortedCopy(input []float64) []float64 {
	sorted := make([]float64, len(input))
	copy(sorted, input)
	sort.Float64s(sorted)
	return sorted
}

func Mean(input []float64) (float64, error) {
	if len(input) == 0 {
		return math.NaN(), fmt.Errorf("input array is empty: %#v", input)
	}
	sum := 0.0
	for _, n := range input {
		sum += n
	}
	return sum / float64(len(input)), nil
}

func Median(input []float64) (median float64, err error) {
	c := sortedCopy(input)
	// Even numbers: add the two middle numbers, divide by two (use mean function)
	// Odd numbers: Use the middle number
	l := len(c)
	if l == 0 {
		return math.NaN(), fmt.Errorf("input array is empty: %#v", input)
	} else if l%2 == 0 {
		median, _ = Mean(c[l/2-1 : l/2+1])
	} else {
		median = c[l/2]
	}
	return median, nil
}

// Std is the population standard deviation.
func Std(input []float64) float64 {
	if len(input) == 0 {
		return 0
	}
	mean, _ := Mean(input)
	var sum float64
	for _, n := range input {
		d := n - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(input)))
}

// SampleStd is the Bessel-corrected (n-1) standard deviation.
func SampleStd(input []float64) float64 {
	if len(input) < 2 {
		return 0
	}
	mean, _ := Mean(input)
	var sum float64
	for _, n := range input {
		d := n - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(input)-1))
}

// CVPercent is the sample coefficient of variation as a percentage.
// Returns false with fewer than two values or a zero mean.
func CVPercent(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	mean, _ := Mean(values)
	if mean == 0 {
		return 0, false
	}
	return (SampleStd(values) / mean) * 100, true
}

// BoxcarSame smooths input with a centered moving-average kernel of the
// given width, producing an output of the same length. Matches a
// convolution in 'same' mode with zero padding at the edges.
func BoxcarSame(input []float64, width int) []float64 {
	n := len(input)
	if n == 0 || width <= 1 {
		out := make([]float64, n)
		copy(out, input)
		return out
	}
	if width > n {
		width = n
	}

	out := make([]float64, n)
	// Kernel index k covers offsets [-(width/2), ..., (width-1)/2]
	// relative to the output position: for even widths the extra sample
	// sits before the output position, as in convolution alignment.
	lead := (width - 1) / 2
	for i := 0; i < n; i++ {
		var sum float64
		for k := 0; k < width; k++ {
			j := i + lead - k
			if j >= 0 && j < n {
				sum += input[j]
			}
		}
		out[i] = sum / float64(width)
	}
	return out
}

// BoxcarValid is the 'valid' mode counterpart: only windows fully
// inside the input are emitted, yielding len(input)-width+1 values.
func BoxcarValid(input []float64, width int) []float64 {
	n := len(input)
	if width <= 0 || width > n {
		return nil
	}

	out := make([]float64, 0, n-width+1)
	var window float64
	for i := 0; i < n; i++ {
		window += input[i]
		if i >= width {
			window -= input[i-width]
		}
		if i >= width-1 {
			out = append(out, window/float64(width))
		}
	}
	return out
}

// Round rounds to the given number of decimal places.
func Round(x float64, digits int) float64 {
	scale := math.Pow10(digits)
	return math.Round(x*scale) / scale
}
