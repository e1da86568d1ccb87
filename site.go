// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package planemesh

import (
	"github.com/golang/geo/r2"
)

// Site represents a node of the network. It is a view structure for accessing a site in a
// Network. The site's index corresponds to the index of its item in the Network's Items.
type Site[T comparable] struct {
	idx int
	n   *Network[T]
}

// Index returns the index of the site in the Network's Items.
func (s Site[T]) Index() int {
	return s.idx
}

// Item returns the item stored at the site.
func (s Site[T]) Item() T {
	return s.n.Items[s.idx]
}

// Position returns the position of the site.
func (s Site[T]) Position() r2.Point {
	return s.n.Positions[s.idx]
}

// NumNeighbors returns the number of sites linked to this one.
func (s Site[T]) NumNeighbors() int {
	return s.n.Offsets[s.idx+1] - s.n.Offsets[s.idx]
}

// NeighborIndices returns the indices of the linked sites, sorted in counter-clockwise order
// around the site.
func (s Site[T]) NeighborIndices() []int {
	return s.n.Neighbors[s.n.Offsets[s.idx]:s.n.Offsets[s.idx+1]]
}

// Neighbor returns the linked site at the specified index.
// It panics if the index is out of range.
func (s Site[T]) Neighbor(i int) Site[T] {
	start := s.n.Offsets[s.idx]
	end := s.n.Offsets[s.idx+1]
	if i < 0 || i >= end-start {
		panic("Neighbor: index out of range")
	}
	return Site[T]{idx: s.n.Neighbors[start+i], n: s.n}
}
