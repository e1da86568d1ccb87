// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package dimtree

import (
	"fmt"
	"math"
	"slices"
)

const noChild = int32(-1)

// node is one region of the tree. It holds groups while it is a leaf and exactly
// 1<<dims child slots otherwise.
type node[T comparable] struct {
	box Box
	// mid splits the box into children. It equals the box center except for roots created
	// by growth, where it is pinned to the previous root's bounds.
	mid      []float64
	canSplit bool
	children []int32
	groups   []group[T]
	// count is the number of members in the subtree.
	count int
	// maxRadius is an upper bound on member radii in the subtree.
	maxRadius float64
}

func newNode[T comparable](lower, upper, mid []float64) node[T] {
	n := node[T]{
		box:      newBox(lower, upper),
		mid:      mid,
		canSplit: true,
	}
	if n.mid == nil {
		n.mid = n.box.Center
	}
	for i := range lower {
		if !(lower[i] < n.mid[i] && n.mid[i] < upper[i]) {
			n.canSplit = false
		}
	}
	return n
}

// childIndex packs one bit per dimension, set when position lies in the upper half.
func (n *node[T]) childIndex(position []float64) int {
	code := 0
	for i, v := range position {
		if v >= n.mid[i] {
			code |= 1 << i
		}
	}
	return code
}

func (n *node[T]) isLeaf() bool {
	return n.children == nil
}

func (n *node[T]) findGroup(position []float64) int {
	for i := range n.groups {
		if n.groups[i].holds(position) {
			return i
		}
	}
	return -1
}

func (n *node[T]) findEmptyGroup() int {
	for i := range n.groups {
		if len(n.groups[i].members) == 0 {
			return i
		}
	}
	return -1
}

// index is the node arena shared by Tree and VolumeTree.
type index[T comparable] struct {
	dims         int
	leafSize     int
	fastRemovals bool
	nodes        []node[T]
	free         []int32
	root         int32
}

func newIndex[T comparable](lower, upper []float64, setters []Option) (*index[T], error) {
	opts := Options{
		LeafSize: defaultLeafSize,
	}
	for _, set := range setters {
		set(&opts)
	}
	if err := validateBounds(lower, upper); err != nil {
		return nil, err
	}

	t := &index[T]{
		dims:         len(lower),
		leafSize:     opts.LeafSize,
		fastRemovals: opts.FastRemovals,
	}
	t.root = t.alloc(newNode[T](slices.Clone(lower), slices.Clone(upper), nil))
	return t, nil
}

func (t *index[T]) alloc(n node[T]) int32 {
	if k := len(t.free); k > 0 {
		idx := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[idx] = n
		return idx
	}
	t.nodes = append(t.nodes, n)
	return int32(len(t.nodes) - 1)
}

func (t *index[T]) release(idx int32) {
	for _, c := range t.nodes[idx].children {
		if c != noChild {
			t.release(c)
		}
	}
	t.nodes[idx] = node[T]{}
	t.free = append(t.free, idx)
}

func (t *index[T]) newChild(parent int32, code int) int32 {
	p := &t.nodes[parent]
	lower := make([]float64, t.dims)
	upper := make([]float64, t.dims)
	for i := range t.dims {
		if code&(1<<i) != 0 {
			lower[i], upper[i] = p.mid[i], p.box.Upper[i]
		} else {
			lower[i], upper[i] = p.box.Lower[i], p.mid[i]
		}
	}
	c := t.alloc(newNode[T](lower, upper, nil))
	t.nodes[parent].children[code] = c
	return c
}

func (t *index[T]) checkPosition(fn string, position []float64) {
	if len(position) != t.dims {
		panic(fmt.Sprintf("dimtree: %s: position has %d dimensions, want %d", fn, len(position), t.dims))
	}
	for _, v := range position {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			panic(fmt.Sprintf("dimtree: %s: non-finite position %v", fn, position))
		}
	}
}

func (t *index[T]) len() int {
	return t.nodes[t.root].count
}

// grow doubles the root toward position until the root box encloses it. The old root
// becomes one child of the new root.
func (t *index[T]) grow(position []float64) {
	for !t.nodes[t.root].box.encloses(position) {
		old := &t.nodes[t.root]
		lower := slices.Clone(old.box.Lower)
		upper := slices.Clone(old.box.Upper)
		mid := make([]float64, t.dims)
		code := 0
		for i, v := range position {
			w := old.box.Upper[i] - old.box.Lower[i]
			if v < old.box.Lower[i] {
				lower[i] = old.box.Lower[i] - w
				mid[i] = old.box.Lower[i]
				code |= 1 << i
			} else {
				// Members on the old upper face must still route to the old root, and
				// childIndex sends v >= mid upward.
				upper[i] = old.box.Upper[i] + w
				mid[i] = math.Nextafter(old.box.Upper[i], math.Inf(1))
			}
		}

		root := newNode[T](lower, upper, mid)
		root.children = make([]int32, 1<<t.dims)
		for i := range root.children {
			root.children[i] = noChild
		}
		root.children[code] = t.root
		root.count = old.count
		root.maxRadius = old.maxRadius
		t.root = t.alloc(root)
	}
}

func (t *index[T]) add(position []float64, radius float64, item T) bool {
	t.grow(position)
	return t.insert(t.root, position, radius, item)
}

func (t *index[T]) insert(idx int32, position []float64, radius float64, item T) bool {
	if n := &t.nodes[idx]; n.isLeaf() {
		gi := n.findGroup(position)
		if gi < 0 {
			gi = n.findEmptyGroup()
		}
		if gi < 0 && (len(n.groups) < t.leafSize || !n.canSplit) {
			n.groups = append(n.groups, group[T]{})
			gi = len(n.groups) - 1
		}
		if gi >= 0 {
			if !n.groups[gi].add(position, item, radius) {
				return false
			}
			n.count++
			n.maxRadius = max(n.maxRadius, radius)
			return true
		}
		t.split(idx)
	}

	code := t.nodes[idx].childIndex(position)
	child := t.nodes[idx].children[code]
	if child == noChild {
		child = t.newChild(idx, code)
	}
	if !t.insert(child, position, radius, item) {
		return false
	}
	n := &t.nodes[idx]
	n.count++
	n.maxRadius = max(n.maxRadius, radius)
	return true
}

// split turns a leaf into an internal node, moving its non-empty groups into children.
func (t *index[T]) split(idx int32) {
	groups := t.nodes[idx].groups
	t.nodes[idx].groups = nil
	t.nodes[idx].children = make([]int32, 1<<t.dims)
	for i := range t.nodes[idx].children {
		t.nodes[idx].children[i] = noChild
	}

	for _, g := range groups {
		if len(g.members) == 0 {
			continue
		}
		code := t.nodes[idx].childIndex(g.position)
		child := t.nodes[idx].children[code]
		if child == noChild {
			child = t.newChild(idx, code)
		}
		c := &t.nodes[child]
		c.groups = append(c.groups, g)
		c.count += len(g.members)
		c.maxRadius = max(c.maxRadius, g.maxRadius())
	}
}

func (t *index[T]) remove(position []float64, item T) bool {
	if !t.nodes[t.root].box.encloses(position) {
		return false
	}
	return t.erase(t.root, position, item)
}

func (t *index[T]) erase(idx int32, position []float64, item T) bool {
	n := &t.nodes[idx]
	if n.count == 0 {
		return false
	}

	if n.isLeaf() {
		gi := n.findGroup(position)
		if gi < 0 || !n.groups[gi].remove(item) {
			return false
		}
		n.count--
		if !t.fastRemovals {
			if len(n.groups[gi].members) == 0 {
				n.groups = slices.Delete(n.groups, gi, gi+1)
			}
			n.maxRadius = 0
			for i := range n.groups {
				n.maxRadius = max(n.maxRadius, n.groups[i].maxRadius())
			}
		}
		return true
	}

	code := n.childIndex(position)
	child := n.children[code]
	if child == noChild || !t.erase(child, position, item) {
		return false
	}

	n = &t.nodes[idx]
	n.count--
	if t.fastRemovals {
		return true
	}
	if t.nodes[child].count == 0 {
		t.release(child)
		n.children[code] = noChild
	}
	if n.count == 0 {
		for _, c := range n.children {
			if c != noChild {
				t.release(c)
			}
		}
		n.children = nil
		n.maxRadius = 0
		return true
	}
	n.maxRadius = 0
	for _, c := range n.children {
		if c != noChild {
			n.maxRadius = max(n.maxRadius, t.nodes[c].maxRadius)
		}
	}
	return true
}

func (t *index[T]) contains(idx int32, item T) bool {
	n := &t.nodes[idx]
	if n.count == 0 {
		return false
	}
	if n.isLeaf() {
		for i := range n.groups {
			if n.groups[i].indexOf(item) >= 0 {
				return true
			}
		}
		return false
	}
	for _, c := range n.children {
		if c != noChild && t.contains(c, item) {
			return true
		}
	}
	return false
}

func (t *index[T]) visitAll(idx int32, yield func(T) bool) bool {
	n := &t.nodes[idx]
	if n.count == 0 {
		return true
	}
	if n.isLeaf() {
		for i := range n.groups {
			for _, m := range n.groups[i].members {
				if !yield(m.item) {
					return false
				}
			}
		}
		return true
	}
	for _, c := range n.children {
		if c != noChild && !t.visitAll(c, yield) {
			return false
		}
	}
	return true
}

func (t *index[T]) visitShape(idx int32, shape Shape, yield func(T) bool) bool {
	n := &t.nodes[idx]
	if n.count == 0 {
		return true
	}
	switch shape.IntersectsBox(n.box) {
	case OverlapNone:
		return true
	case OverlapComplete:
		return t.visitAll(idx, yield)
	}

	if n.isLeaf() {
		for i := range n.groups {
			g := &n.groups[i]
			if len(g.members) == 0 || !shape.ContainsPosition(g.position) {
				continue
			}
			for _, m := range g.members {
				if !yield(m.item) {
					return false
				}
			}
		}
		return true
	}
	for _, c := range n.children {
		if c != noChild && !t.visitShape(c, shape, yield) {
			return false
		}
	}
	return true
}

// visitTouching yields members whose open ball intersects the closed query ball, that is
// |position-center| < radius+memberRadius.
func (t *index[T]) visitTouching(idx int32, position []float64, radius float64, yield func(T) bool) bool {
	n := &t.nodes[idx]
	if n.count == 0 {
		return true
	}
	reach := radius + n.maxRadius
	squareReach := reach * reach
	if n.box.beyond(position, squareReach) {
		return true
	}

	if n.isLeaf() {
		for i := range n.groups {
			g := &n.groups[i]
			if len(g.members) == 0 {
				continue
			}
			d := squareDistance(g.position, position)
			for _, m := range g.members {
				r := radius + m.radius
				if d < r*r && !yield(m.item) {
					return false
				}
			}
		}
		return true
	}
	for _, c := range n.children {
		if c != noChild && !t.visitTouching(c, position, radius, yield) {
			return false
		}
	}
	return true
}

type nearestSearch[T comparable] struct {
	position []float64
	best     float64
	closest  T
	found    bool
}

func (t *index[T]) nearest(position []float64) T {
	if t.len() == 0 {
		panic("dimtree: Nearest: tree is empty")
	}
	s := nearestSearch[T]{
		position: position,
		best:     t.seedNearest(position),
	}
	t.searchNearest(t.root, &s)
	return s.closest
}

// seedNearest walks the single path toward position and returns a cheap upper bound on
// the squared distance to the nearest member. It is not necessarily optimal.
func (t *index[T]) seedNearest(position []float64) float64 {
	idx := t.root
	for {
		n := &t.nodes[idx]
		if n.isLeaf() {
			best := math.Inf(1)
			for i := range n.groups {
				if len(n.groups[i].members) > 0 {
					best = min(best, squareDistance(n.groups[i].position, position))
				}
			}
			if math.IsInf(best, 1) {
				return n.box.farthestSquareDistance(position)
			}
			return best
		}
		child := n.children[n.childIndex(position)]
		if child == noChild || t.nodes[child].count == 0 {
			return n.box.farthestSquareDistance(position)
		}
		idx = child
	}
}

func (t *index[T]) searchNearest(idx int32, s *nearestSearch[T]) {
	n := &t.nodes[idx]
	if n.count == 0 {
		return
	}
	if n.box.beyond(s.position, s.best) {
		return
	}

	if n.isLeaf() {
		for i := range n.groups {
			g := &n.groups[i]
			if len(g.members) == 0 {
				continue
			}
			if d := squareDistance(g.position, s.position); !s.found || d < s.best {
				s.best = d
				s.closest = g.members[0].item
				s.found = true
			}
		}
		return
	}

	first := n.childIndex(s.position)
	if c := n.children[first]; c != noChild {
		t.searchNearest(c, s)
	}
	for code, c := range t.nodes[idx].children {
		if code != first && c != noChild {
			t.searchNearest(c, s)
		}
	}
}
