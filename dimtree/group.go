// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package dimtree

import "slices"

type member[T comparable] struct {
	item   T
	radius float64
}

// group holds every member stored at one exact position. Without it, many items at the
// same coordinates would force the tree to subdivide until the bounds stop separating.
type group[T comparable] struct {
	position []float64
	members  []member[T]
}

// canContain is true for an empty group or for an exact, component-wise position match.
func (g *group[T]) canContain(position []float64) bool {
	return len(g.members) == 0 || equalPositions(g.position, position)
}

func (g *group[T]) holds(position []float64) bool {
	return len(g.members) > 0 && equalPositions(g.position, position)
}

func (g *group[T]) indexOf(item T) int {
	return slices.IndexFunc(g.members, func(m member[T]) bool {
		return m.item == item
	})
}

func (g *group[T]) add(position []float64, item T, radius float64) bool {
	if len(g.members) == 0 {
		g.position = append(g.position[:0], position...)
	} else if g.indexOf(item) >= 0 {
		return false
	}
	g.members = append(g.members, member[T]{item: item, radius: radius})
	return true
}

func (g *group[T]) remove(item T) bool {
	i := g.indexOf(item)
	if i < 0 {
		return false
	}
	g.members = slices.Delete(g.members, i, i+1)
	return true
}

func (g *group[T]) maxRadius() float64 {
	var r float64
	for _, m := range g.members {
		r = max(r, m.radius)
	}
	return r
}
