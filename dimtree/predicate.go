// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package dimtree

// SumOfRootsLess reports whether sqrt(a) + sqrt(b) < sqrt(c) for non-negative a, b and c
// without taking any square root. NaN inputs report false.
func SumOfRootsLess(a, b, c float64) bool {
	d := c - a - b
	return d > 0 && 4*a*b < d*d
}

func squareDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func equalPositions(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
