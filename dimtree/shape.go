// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package dimtree

import (
	"fmt"
	"math"
	"slices"
)

// Overlap classifies how a box relates to a Shape.
type Overlap int

const (
	OverlapNone Overlap = iota
	OverlapPartial
	// OverlapComplete means every position in the box is inside the shape.
	OverlapComplete
)

func (o Overlap) String() string {
	switch o {
	case OverlapNone:
		return "none"
	case OverlapPartial:
		return "partial"
	case OverlapComplete:
		return "complete"
	}
	return fmt.Sprintf("Overlap(%d)", int(o))
}

// Box is the axis-aligned region covered by a tree node. Center and SquareRadius
// (half-diagonal squared) describe the ball enclosing the box.
type Box struct {
	Lower        []float64
	Upper        []float64
	Center       []float64
	SquareRadius float64
}

func newBox(lower, upper []float64) Box {
	b := Box{
		Lower:  lower,
		Upper:  upper,
		Center: make([]float64, len(lower)),
	}
	for i := range lower {
		b.Center[i] = lower[i]*0.5 + upper[i]*0.5
		// The rounded center can sit off the true midpoint, so the radius reaches the
		// farther face.
		h := max(b.Center[i]-lower[i], upper[i]-b.Center[i])
		b.SquareRadius += h * h
	}
	return b
}

// beyond reports whether every position of the box is farther than sqrt(squareReach) from
// position. The enclosing ball settles nodes close to position with one distance. A ball
// rejection is confirmed against the box faces.
func (b Box) beyond(position []float64, squareReach float64) bool {
	if !SumOfRootsLess(b.SquareRadius, squareReach, squareDistance(b.Center, position)) {
		return false
	}
	return b.nearestSquareDistance(position) > squareReach
}

func (b Box) encloses(position []float64) bool {
	for i, v := range position {
		if v < b.Lower[i] || v > b.Upper[i] {
			return false
		}
	}
	return true
}

// farthestSquareDistance returns the squared distance from position to the box corner
// farthest away from it.
func (b Box) farthestSquareDistance(position []float64) float64 {
	var sum float64
	for i, v := range position {
		d := math.Max(math.Abs(v-b.Lower[i]), math.Abs(b.Upper[i]-v))
		sum += d * d
	}
	return sum
}

// nearestSquareDistance returns the squared distance from position to the closest point
// of the box, zero when position is inside.
func (b Box) nearestSquareDistance(position []float64) float64 {
	var sum float64
	for i, v := range position {
		var d float64
		if v < b.Lower[i] {
			d = b.Lower[i] - v
		} else if v > b.Upper[i] {
			d = v - b.Upper[i]
		}
		sum += d * d
	}
	return sum
}

// Shape is a region that tree members can be matched against.
type Shape interface {
	ContainsPosition(position []float64) bool
	IntersectsBox(box Box) Overlap
}

// Sphere is a closed ball. It is immutable after construction.
type Sphere struct {
	position     []float64
	radius       float64
	squareRadius float64
}

func NewSphere(radius float64, position []float64) Sphere {
	if radius < 0 || math.IsNaN(radius) {
		panic(fmt.Sprintf("dimtree: NewSphere: invalid radius %v", radius))
	}
	return Sphere{
		position:     slices.Clone(position),
		radius:       radius,
		squareRadius: radius * radius,
	}
}

func (s Sphere) Radius() float64 {
	return s.radius
}

func (s Sphere) Position() []float64 {
	return slices.Clone(s.position)
}

func (s Sphere) ContainsPosition(position []float64) bool {
	return squareDistance(s.position, position) <= s.squareRadius
}

func (s Sphere) IntersectsBox(box Box) Overlap {
	if box.beyond(s.position, s.squareRadius) {
		return OverlapNone
	}
	centerDistance := squareDistance(s.position, box.Center)
	if SumOfRootsLess(centerDistance, box.SquareRadius, s.squareRadius) &&
		box.farthestSquareDistance(s.position) <= s.squareRadius {
		return OverlapComplete
	}

	// The enclosing ball was inconclusive, fall back to the exact box distances.
	if box.nearestSquareDistance(s.position) > s.squareRadius {
		return OverlapNone
	}
	if box.farthestSquareDistance(s.position) <= s.squareRadius {
		return OverlapComplete
	}
	return OverlapPartial
}
