// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package dimtree implements an adaptive dimension tree: an axis-aligned spatial index that
// halves its region along every dimension at once, giving 2^d children per split.
//
// Items sharing an exact position are bucketed together, so duplicates never force
// unbounded subdivision. Searches prune whole subtrees with SumOfRootsLess, comparing
// squared distances only.
package dimtree

import (
	"iter"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	defaultLeafSize = 8
	maxDims         = 16
)

const (
	// ErrTypeInvalidBounds is the error type returned when the root box cannot be built.
	ErrTypeInvalidBounds = "dimtree_invalid_bounds"
)

type Options struct {
	// FastRemovals keeps emptied groups and nodes allocated instead of compacting the tree.
	// Member radius bounds are then left stale, which loosens pruning but stays correct.
	FastRemovals bool
	// LeafSize is the number of distinct positions a leaf holds before it splits.
	LeafSize int
}

type Option func(*Options)

func WithFastRemovals() Option {
	return func(o *Options) {
		o.FastRemovals = true
	}
}

func WithLeafSize(n int) Option {
	if n < 1 {
		panic("WithLeafSize: n must be positive")
	}

	return func(o *Options) {
		o.LeafSize = n
	}
}

func validateBounds(lower, upper []float64) error {
	if len(lower) == 0 || len(lower) > maxDims {
		return errors.New("dimtree: unsupported number of dimensions").
			WithType(ErrTypeInvalidBounds).
			WithTag("dims", len(lower))
	}
	if len(lower) != len(upper) {
		return errors.New("dimtree: bounds dimension mismatch").
			WithType(ErrTypeInvalidBounds).
			WithTag("lower", len(lower)).
			WithTag("upper", len(upper))
	}
	for i := range lower {
		finite := !math.IsInf(lower[i], 0) && !math.IsInf(upper[i], 0)
		if !finite || !(lower[i] < upper[i]) {
			return errors.New("dimtree: empty or non-finite bounds").
				WithType(ErrTypeInvalidBounds).
				WithTag("axis", i).
				WithTag("lower", lower[i]).
				WithTag("upper", upper[i])
		}
	}
	return nil
}

// Tree indexes items by position. The root box given to New is only a starting point: the
// tree grows when an item is added outside of it.
//
// A Tree is not safe for concurrent use.
type Tree[T comparable] struct {
	idx *index[T]
}

// New returns an empty tree covering [lower, upper]. The tree has len(lower) dimensions.
func New[T comparable](lower, upper []float64, setters ...Option) (*Tree[T], error) {
	idx, err := newIndex[T](lower, upper, setters)
	if err != nil {
		return nil, err
	}
	return &Tree[T]{idx: idx}, nil
}

func (t *Tree[T]) Dims() int {
	return t.idx.dims
}

// Len returns the number of stored (position, item) pairs.
func (t *Tree[T]) Len() int {
	return t.idx.len()
}

// Add stores item at position. It returns false when item is already stored at exactly that
// position. Add panics if position has the wrong dimension or a non-finite coordinate.
func (t *Tree[T]) Add(position []float64, item T) bool {
	t.idx.checkPosition("Add", position)
	return t.idx.add(position, 0, item)
}

// Remove deletes item from position. Removing a pair that is not stored is a no-op that
// returns false.
func (t *Tree[T]) Remove(position []float64, item T) bool {
	t.idx.checkPosition("Remove", position)
	return t.idx.remove(position, item)
}

// Contains reports whether item is stored anywhere in the tree. It scans the whole tree.
func (t *Tree[T]) Contains(item T) bool {
	return t.idx.contains(t.idx.root, item)
}

func (t *Tree[T]) All() []T {
	members := make([]T, 0, t.Len())
	t.idx.visitAll(t.idx.root, func(item T) bool {
		members = append(members, item)
		return true
	})
	return members
}

func (t *Tree[T]) MembersInShape(shape Shape) []T {
	var members []T
	t.idx.visitShape(t.idx.root, shape, func(item T) bool {
		members = append(members, item)
		return true
	})
	return members
}

// MembersInSphere returns the items within radius of position, bounds included. The tree is
// walked lazily each time the sequence is iterated, and must not be modified meanwhile.
func (t *Tree[T]) MembersInSphere(radius float64, position []float64) iter.Seq[T] {
	t.idx.checkPosition("MembersInSphere", position)
	sphere := NewSphere(radius, position)
	return func(yield func(T) bool) {
		t.idx.visitShape(t.idx.root, sphere, yield)
	}
}

// Nearest returns an item stored closest to position. Ties resolve to any of the closest
// items. Nearest panics on an empty tree.
func (t *Tree[T]) Nearest(position []float64) T {
	t.idx.checkPosition("Nearest", position)
	return t.idx.nearest(position)
}
