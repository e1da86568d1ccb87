// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package utils provides seeded random point generation for tests and examples.

package utils

import (
	"math/rand"

	"github.com/golang/geo/r2"
)

// GenerateRandomPoints generates cnt points uniformly distributed in the unit square.
// The seed parameter ensures reproducibility.
func GenerateRandomPoints(cnt int, seed int64) []r2.Point {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	points := make([]r2.Point, cnt)

	for i := range cnt {
		points[i] = r2.Point{X: random.Float64(), Y: random.Float64()}
	}

	return points
}

// GenerateRandomPositions returns GenerateRandomPoints keyed by their index.
func GenerateRandomPositions(cnt int, seed int64) map[int]r2.Point {
	points := GenerateRandomPoints(cnt, seed)
	positions := make(map[int]r2.Point, cnt)
	for i, p := range points {
		positions[i] = p
	}
	return positions
}
