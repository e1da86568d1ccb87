// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package dimtree

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

type entry struct {
	id       int
	position []float64
}

func randomEntries(n, dims int, seed int64, scale float64) []entry {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	entries := make([]entry, n)
	for i := range entries {
		p := make([]float64, dims)
		for j := range p {
			p[j] = (random.Float64()*2 - 1) * scale
		}
		entries[i] = entry{id: i, position: p}
	}
	return entries
}

func mustNew(t *testing.T, dims int, setters ...Option) *Tree[int] {
	t.Helper()
	lower := make([]float64, dims)
	upper := make([]float64, dims)
	for i := range dims {
		lower[i], upper[i] = -1, 1
	}
	tree, err := New[int](lower, upper, setters...)
	require.NoError(t, err)
	return tree
}

func fill(t *testing.T, tree *Tree[int], entries []entry) {
	t.Helper()
	for _, e := range entries {
		require.True(t, tree.Add(e.position, e.id))
	}
}

func sorted(items []int) []int {
	items = slices.Clone(items)
	slices.Sort(items)
	return items
}

func TestNew_InvalidBounds(t *testing.T) {
	tests := []struct {
		name         string
		lower, upper []float64
	}{
		{"no dimensions", nil, nil},
		{"length mismatch", []float64{0, 0}, []float64{1}},
		{"empty axis", []float64{0, 1}, []float64{1, 1}},
		{"inverted axis", []float64{2}, []float64{1}},
		{"nan", []float64{math.NaN()}, []float64{1}},
		{"infinite", []float64{0}, []float64{math.Inf(1)}},
		{"too many dimensions", make([]float64, maxDims+1), make([]float64, maxDims+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := New[int](tt.lower, tt.upper)
			require.Error(t, err)
			require.Nil(t, tree)
			require.True(t, errors.IsType(err, ErrTypeInvalidBounds))
		})
	}
}

func TestWithLeafSize_Panics(t *testing.T) {
	require.Panics(t, func() { WithLeafSize(0) })
	require.NotPanics(t, func() { WithLeafSize(1) })
}

func TestTree_RoundTrip(t *testing.T) {
	for _, dims := range []int{1, 2, 3, 4} {
		entries := randomEntries(500, dims, int64(dims), 1)
		tree := mustNew(t, dims, WithLeafSize(2))
		fill(t, tree, entries)

		want := make([]int, len(entries))
		for i := range want {
			want[i] = i
		}
		require.Equal(t, len(entries), tree.Len())
		require.Equal(t, want, sorted(tree.All()))
		require.Equal(t, want, sorted(tree.MembersInShape(NewSphere(math.Sqrt(float64(dims)), make([]float64, dims)))))
	}
}

func TestTree_AddDuplicateMember(t *testing.T) {
	tree := mustNew(t, 2)
	require.True(t, tree.Add([]float64{0.5, 0.5}, 1))
	require.False(t, tree.Add([]float64{0.5, 0.5}, 1))
	require.True(t, tree.Add([]float64{0.25, 0.5}, 1))
	require.Equal(t, 2, tree.Len())
}

func TestTree_DuplicatePositions(t *testing.T) {
	tree := mustNew(t, 2, WithLeafSize(1))
	p := []float64{0.1, 0.2}
	for i := range 100 {
		require.True(t, tree.Add(p, i))
	}
	require.True(t, tree.Add([]float64{-0.5, 0.5}, 100))

	got := slices.Collect(tree.MembersInSphere(0, p))
	require.Len(t, got, 100)

	require.True(t, tree.Remove(p, 7))
	require.False(t, tree.Contains(7))
	require.True(t, tree.Contains(8))
	require.Len(t, slices.Collect(tree.MembersInSphere(0, p)), 99)
	require.Contains(t, []int{0, 1, 2}, tree.Nearest([]float64{0.1, 0.2}))
}

func TestTree_RemoveMissing(t *testing.T) {
	tree := mustNew(t, 2)
	require.True(t, tree.Add([]float64{0.5, 0.5}, 1))
	require.False(t, tree.Remove([]float64{0.5, 0.5}, 2))
	require.False(t, tree.Remove([]float64{0.4, 0.5}, 1))
	require.False(t, tree.Remove([]float64{50, 50}, 1))
	require.Equal(t, 1, tree.Len())
}

func TestTree_RemoveAll(t *testing.T) {
	tests := []struct {
		name    string
		setters []Option
	}{
		{"compacting", nil},
		{"fast removals", []Option{WithFastRemovals()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := randomEntries(300, 2, 11, 1)
			tree := mustNew(t, 2, append(tt.setters, WithLeafSize(2))...)
			fill(t, tree, entries)

			for i, e := range entries {
				require.True(t, tree.Remove(e.position, e.id))
				require.Equal(t, len(entries)-i-1, tree.Len())
			}
			require.Empty(t, tree.All())

			// Emptied nodes and groups must be reusable.
			fill(t, tree, entries[:50])
			require.Len(t, tree.All(), 50)
		})
	}
}

func TestTree_CompactionReleasesNodes(t *testing.T) {
	entries := randomEntries(200, 2, 5, 1)
	tree := mustNew(t, 2, WithLeafSize(1))
	fill(t, tree, entries)
	allocated := len(tree.idx.nodes)
	require.Greater(t, allocated, 1)

	for _, e := range entries {
		tree.Remove(e.position, e.id)
	}
	require.Equal(t, allocated-1, len(tree.idx.free))
	require.True(t, tree.idx.nodes[tree.idx.root].isLeaf())
}

func TestTree_FastRemovalsReuseGroups(t *testing.T) {
	tree := mustNew(t, 2, WithFastRemovals())
	require.True(t, tree.Add([]float64{0.5, 0.5}, 1))
	require.True(t, tree.Remove([]float64{0.5, 0.5}, 1))

	root := &tree.idx.nodes[tree.idx.root]
	require.Len(t, root.groups, 1)
	require.Empty(t, root.groups[0].members)

	require.True(t, tree.Add([]float64{-0.5, 0.5}, 2))
	root = &tree.idx.nodes[tree.idx.root]
	require.Len(t, root.groups, 1)
	require.Equal(t, []float64{-0.5, 0.5}, root.groups[0].position)
}

func TestTree_Grow(t *testing.T) {
	tree := mustNew(t, 2, WithLeafSize(1))
	positions := [][]float64{
		{0, 0},
		{1, 1},
		{1, -0.5},
		{5, -3},
		{-100, 250},
		{1e6, 1e6},
		{0.5, 0.5},
	}
	for i, p := range positions {
		require.True(t, tree.Add(p, i))
	}
	for i, p := range positions {
		require.Equal(t, i, tree.Nearest(p))
		require.Equal(t, []int{i}, slices.Collect(tree.MembersInSphere(0, p)))
	}
	require.False(t, tree.Add([]float64{1, -0.5}, 2))
	require.Equal(t, len(positions), tree.Len())
	require.True(t, tree.Remove([]float64{-100, 250}, 4))
	require.False(t, tree.Contains(4))
	require.True(t, tree.Remove([]float64{1, 1}, 1))
	require.False(t, tree.Contains(1))
}

func TestTree_GrowKeepsUpperFaceReachable(t *testing.T) {
	tests := []struct {
		name    string
		face    []float64
		outside []float64
	}{
		{"upper x face, grow down", []float64{1, 0.5}, []float64{0.5, -3}},
		{"upper y face, grow left", []float64{0.5, 1}, []float64{-7, 0.5}},
		{"upper corner, grow up", []float64{1, 1}, []float64{3, 3}},
		{"lower corner, grow down", []float64{0, 0}, []float64{-2, -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, setters := range [][]Option{nil, {WithFastRemovals()}, {WithLeafSize(1)}} {
				tree, err := New[int]([]float64{0, 0}, []float64{1, 1}, setters...)
				require.NoError(t, err)
				require.True(t, tree.Add(tt.face, 1))
				require.True(t, tree.Add(tt.outside, 2))

				require.False(t, tree.Add(tt.face, 1))
				require.Equal(t, 2, tree.Len())
				require.Equal(t, 1, tree.Nearest(tt.face))
				require.Equal(t, []int{1}, slices.Collect(tree.MembersInSphere(0, tt.face)))

				require.True(t, tree.Remove(tt.face, 1))
				require.False(t, tree.Contains(1))
				require.Equal(t, 1, tree.Len())
				require.True(t, tree.Add(tt.face, 1))
				require.Equal(t, 2, tree.Len())
			}
		})
	}
}

func TestTree_NearestBruteForce(t *testing.T) {
	for _, dims := range []int{1, 2, 3} {
		entries := randomEntries(400, dims, 42+int64(dims), 10)
		tree := mustNew(t, dims, WithLeafSize(3))
		fill(t, tree, entries)

		queries := randomEntries(200, dims, 7, 15)
		for _, q := range queries {
			got := tree.Nearest(q.position)
			gotDistance := squareDistance(entries[got].position, q.position)
			for _, e := range entries {
				require.LessOrEqual(t, gotDistance, squareDistance(e.position, q.position))
			}
		}
	}
}

func TestTree_NearestAfterRemovals(t *testing.T) {
	entries := randomEntries(300, 2, 3, 1)
	tree := mustNew(t, 2, WithFastRemovals(), WithLeafSize(2))
	fill(t, tree, entries)
	for _, e := range entries[:250] {
		require.True(t, tree.Remove(e.position, e.id))
	}

	remaining := entries[250:]
	for _, q := range randomEntries(100, 2, 9, 1) {
		got := tree.Nearest(q.position)
		require.GreaterOrEqual(t, got, 250)
		gotDistance := squareDistance(entries[got].position, q.position)
		for _, e := range remaining {
			require.LessOrEqual(t, gotDistance, squareDistance(e.position, q.position))
		}
	}
}

func TestTree_NearestEmptyPanics(t *testing.T) {
	tree := mustNew(t, 2)
	require.Panics(t, func() { tree.Nearest([]float64{0, 0}) })
}

func TestTree_PositionPreconditions(t *testing.T) {
	tree := mustNew(t, 2)
	require.Panics(t, func() { tree.Add([]float64{0}, 1) })
	require.Panics(t, func() { tree.Add([]float64{0, math.NaN()}, 1) })
	require.Panics(t, func() { tree.Remove([]float64{0, 0, 0}, 1) })
	require.Panics(t, func() { tree.MembersInSphere(-1, []float64{0, 0}) })
}

func TestTree_MembersInSphereBruteForce(t *testing.T) {
	for _, dims := range []int{2, 3} {
		entries := randomEntries(500, dims, 100+int64(dims), 1)
		tree := mustNew(t, dims, WithLeafSize(4))
		fill(t, tree, entries)

		for i, q := range randomEntries(50, dims, 17, 1.2) {
			radius := 0.05 + float64(i)*0.02
			var want []int
			for _, e := range entries {
				if squareDistance(e.position, q.position) <= radius*radius {
					want = append(want, e.id)
				}
			}
			got := slices.Collect(tree.MembersInSphere(radius, q.position))
			require.Equal(t, want, sorted(got))
		}
	}
}

func TestTree_MembersInSphereStopsEarly(t *testing.T) {
	tree := mustNew(t, 2)
	fill(t, tree, randomEntries(100, 2, 1, 1))

	count := 0
	for range tree.MembersInSphere(10, []float64{0, 0}) {
		count++
		if count == 3 {
			break
		}
	}
	require.Equal(t, 3, count)
}

func TestTree_Contains(t *testing.T) {
	tree := mustNew(t, 3)
	fill(t, tree, randomEntries(64, 3, 2, 1))
	require.True(t, tree.Contains(0))
	require.True(t, tree.Contains(63))
	require.False(t, tree.Contains(64))
}

func TestNode_ChildIndex(t *testing.T) {
	n := newNode[int]([]float64{0, 0, 0}, []float64{2, 2, 2}, nil)
	tests := []struct {
		position []float64
		want     int
	}{
		{[]float64{0.5, 0.5, 0.5}, 0},
		{[]float64{1.5, 0.5, 0.5}, 1},
		{[]float64{0.5, 1.5, 0.5}, 2},
		{[]float64{1, 1, 1}, 7},
		{[]float64{0.5, 1.5, 1.5}, 6},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, n.childIndex(tt.position), "position %v", tt.position)
	}
	require.True(t, n.canSplit)
	require.InDelta(t, 3.0, n.box.SquareRadius, 1e-12)
}

func TestNode_CannotSplitAdjacentFloats(t *testing.T) {
	lo := 1.0
	hi := math.Nextafter(lo, 2)
	n := newNode[int]([]float64{lo}, []float64{hi}, nil)
	require.False(t, n.canSplit)

	tree, err := New[int]([]float64{lo}, []float64{hi}, WithLeafSize(1))
	require.NoError(t, err)
	require.True(t, tree.Add([]float64{lo}, 1))
	require.True(t, tree.Add([]float64{hi}, 2))
	require.Equal(t, 2, tree.Len())
	require.Equal(t, 2, tree.Nearest([]float64{hi}))
	require.Equal(t, 1, tree.Nearest([]float64{lo}))
	require.Equal(t, []int{2}, tree.MembersInShape(NewSphere(0, []float64{hi})))
	require.Equal(t, []int{1}, tree.MembersInShape(NewSphere(0, []float64{lo})))
}
