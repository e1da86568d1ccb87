// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package dimtree

import (
	"fmt"
	"iter"
	"math"
)

// VolumeTree indexes items that occupy a ball: a center position and a radius. Every node
// keeps an upper bound on the radii below it so that searches can still prune.
//
// A VolumeTree is not safe for concurrent use.
type VolumeTree[T comparable] struct {
	idx *index[T]
}

func NewVolume[T comparable](lower, upper []float64, setters ...Option) (*VolumeTree[T], error) {
	idx, err := newIndex[T](lower, upper, setters)
	if err != nil {
		return nil, err
	}
	return &VolumeTree[T]{idx: idx}, nil
}

func (t *VolumeTree[T]) Dims() int {
	return t.idx.dims
}

func (t *VolumeTree[T]) Len() int {
	return t.idx.len()
}

// Add stores item as a ball of the given radius centered at position. It returns false when
// item is already stored at exactly that position.
func (t *VolumeTree[T]) Add(position []float64, radius float64, item T) bool {
	t.idx.checkPosition("Add", position)
	if radius < 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		panic(fmt.Sprintf("dimtree: Add: invalid radius %v", radius))
	}
	return t.idx.add(position, radius, item)
}

// Remove deletes item from position. Removing a pair that is not stored is a no-op that
// returns false.
func (t *VolumeTree[T]) Remove(position []float64, item T) bool {
	t.idx.checkPosition("Remove", position)
	return t.idx.remove(position, item)
}

func (t *VolumeTree[T]) Contains(item T) bool {
	return t.idx.contains(t.idx.root, item)
}

// MembersInSphere returns the items whose ball reaches strictly closer than radius to
// position. With a zero radius these are the balls that strictly contain position.
func (t *VolumeTree[T]) MembersInSphere(radius float64, position []float64) iter.Seq[T] {
	t.idx.checkPosition("MembersInSphere", position)
	if radius < 0 || math.IsNaN(radius) {
		panic(fmt.Sprintf("dimtree: MembersInSphere: invalid radius %v", radius))
	}
	return func(yield func(T) bool) {
		t.idx.visitTouching(t.idx.root, position, radius, yield)
	}
}
