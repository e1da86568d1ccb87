// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package delaunay

import (
	"cmp"
	"math"
	"slices"

	"github.com/golang/geo/r2"
)

type spiralKey struct {
	index    int
	ring     int
	angle    float64
	distance float64
}

// spiralOrder returns the indices of points sorted into concentric rings around their
// centroid, then by angle within a ring. Inserting in this order keeps the region of the
// mesh touched by each insertion small.
//
// The ring width is sqrt(area/n) where area is the disc reaching the farthest point.
func spiralOrder(points []r2.Point) []int {
	n := len(points)
	if n == 0 {
		return nil
	}

	var centroid r2.Point
	for _, p := range points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(n))

	keys := make([]spiralKey, n)
	var maxDistance float64
	for i, p := range points {
		d := p.Sub(centroid)
		keys[i] = spiralKey{
			index:    i,
			angle:    math.Atan2(d.Y, d.X),
			distance: d.Norm(),
		}
		maxDistance = max(maxDistance, keys[i].distance)
	}

	ringWidth := math.Sqrt(math.Pi * maxDistance * maxDistance / float64(n))
	if ringWidth > 0 {
		for i := range keys {
			keys[i].ring = int(keys[i].distance / ringWidth)
		}
	}

	slices.SortFunc(keys, func(a, b spiralKey) int {
		pa, pb := points[a.index], points[b.index]
		return cmp.Or(
			cmp.Compare(a.ring, b.ring),
			cmp.Compare(a.angle, b.angle),
			cmp.Compare(a.distance, b.distance),
			cmp.Compare(pa.X, pb.X),
			cmp.Compare(pa.Y, pb.Y),
		)
	})

	order := make([]int, n)
	for i, k := range keys {
		order[i] = k.index
	}
	return order
}
