// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package delaunay builds planar Delaunay triangulations by incremental insertion.
//
// Points are inserted in spiral order around their centroid into a mesh bootstrapped from
// two scaffold triangles covering the padded bounding box. Circumcircles are indexed in a
// dimtree.VolumeTree so that the triangles invalidated by a new point are found by a single
// range lookup.
package delaunay

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/golang/geo/r2"
)

const (
	defaultPadding = 0.01
)

const (
	ErrTypeInvalidPosition    = "delaunay_invalid_position"
	ErrTypeDuplicatePosition  = "delaunay_duplicate_position"
	ErrTypeDegenerateTriangle = "delaunay_degenerate_triangle"
	ErrTypeUnenclosedPoint    = "delaunay_unenclosed_point"
)

// Edge connects two input items.
type Edge[T comparable] struct {
	A, B T
}

type Mesh[T comparable] struct {
	// Items and Positions are in insertion order, which is the spiral order around the
	// centroid. Vertex indices below refer to this order.
	Items     []T
	Positions []r2.Point
	// NOTE: Vertices sorted CCW, smallest index first.
	Triangles [][3]int
	// NOTE: Ascending vertex indices, edges sorted.
	Edges [][2]int
}

func (m *Mesh[T]) NumVertices() int {
	return len(m.Items)
}

func (m *Mesh[T]) TriangleVertices(tIdx int) (r2.Point, r2.Point, r2.Point) {
	if tIdx < 0 || tIdx >= len(m.Triangles) {
		panic("TriangleVertices: tIdx out of bounds")
	}
	t := m.Triangles[tIdx]
	return m.Positions[t[0]], m.Positions[t[1]], m.Positions[t[2]]
}

func (m *Mesh[T]) EdgeItems(eIdx int) Edge[T] {
	if eIdx < 0 || eIdx >= len(m.Edges) {
		panic("EdgeItems: eIdx out of bounds")
	}
	e := m.Edges[eIdx]
	return Edge[T]{A: m.Items[e[0]], B: m.Items[e[1]]}
}

// Pairs returns every edge as a pair of items.
func (m *Mesh[T]) Pairs() []Edge[T] {
	pairs := make([]Edge[T], len(m.Edges))
	for i := range m.Edges {
		pairs[i] = m.EdgeItems(i)
	}
	return pairs
}

type Options struct {
	// Padding is the fraction of the bounding box size added on every side before the
	// scaffold triangles are laid out.
	Padding float64
}

type Option func(*Options)

func WithPadding(padding float64) Option {
	if !(padding > 0) || math.IsInf(padding, 1) {
		panic("WithPadding: padding must be positive and finite")
	}

	return func(o *Options) {
		o.Padding = padding
	}
}

// Solve triangulates positions and returns the Delaunay edges between items.
func Solve[T comparable](positions map[T]r2.Point, setters ...Option) ([]Edge[T], error) {
	m, err := NewMesh(positions, setters...)
	if err != nil {
		return nil, err
	}
	return m.Pairs(), nil
}

// NewMesh triangulates positions.
//
// Fewer than three items yield no triangles; two items are joined by one edge. Collinear
// inputs yield the path along the line and no triangles. Two items at the same position,
// non-finite coordinates and numerically degenerate triangles are reported as errors.
//
// Every returned triangle and edge is Delaunay. With the default padding some hull edges
// whose empty circle reaches past the scaffold corners can be missing, so the result is a
// subset of the full triangulation. A larger WithPadding recovers those edges.
//
// A summary of each mesh is logged at debug level.
func NewMesh[T comparable](positions map[T]r2.Point, setters ...Option) (*Mesh[T], error) {
	opts := Options{
		Padding: defaultPadding,
	}
	for _, set := range setters {
		set(&opts)
	}

	items := make([]T, 0, len(positions))
	points := make([]r2.Point, 0, len(positions))
	seen := make(map[r2.Point]T, len(positions))
	for item, p := range positions {
		if !isFinite(p) {
			return nil, errors.New("delaunay: non-finite position").
				WithType(ErrTypeInvalidPosition).
				WithTag("item", fmt.Sprint(item)).
				WithTag("position", p.String())
		}
		if other, ok := seen[p]; ok {
			return nil, errors.New("delaunay: items share a position").
				WithType(ErrTypeDuplicatePosition).
				WithTag("item", fmt.Sprint(item)).
				WithTag("other", fmt.Sprint(other)).
				WithTag("position", p.String())
		}
		seen[p] = item
		items = append(items, item)
		points = append(points, p)
	}

	// Map iteration order is random. Sorting first keeps the centroid, and therefore the
	// mesh, identical across calls.
	byPosition := make([]int, len(points))
	for i := range byPosition {
		byPosition[i] = i
	}
	slices.SortFunc(byPosition, func(a, b int) int {
		return cmp.Or(
			cmp.Compare(points[a].X, points[b].X),
			cmp.Compare(points[a].Y, points[b].Y),
		)
	})
	sortedItems := make([]T, len(items))
	sortedPoints := make([]r2.Point, len(points))
	for i, j := range byPosition {
		sortedItems[i] = items[j]
		sortedPoints[i] = points[j]
	}
	items, points = sortedItems, sortedPoints

	m := &Mesh[T]{
		Items:     make([]T, len(items)),
		Positions: make([]r2.Point, len(points)),
	}
	for i, j := range spiralOrder(points) {
		m.Items[i] = items[j]
		m.Positions[i] = points[j]
	}
	if len(points) < 2 {
		return m, nil
	}

	s, err := newSolver(m, opts.Padding)
	if err != nil {
		return nil, err
	}
	for v := range m.Positions {
		if err := s.insert(int32(v + scaffoldVertices)); err != nil {
			return nil, err
		}
	}

	m.Triangles = s.realTriangles()
	m.Edges = s.realEdges()

	logs.WithTag("vertices", len(m.Items)).
		WithTag("triangles", len(m.Triangles)).
		WithTag("edges", len(m.Edges)).
		Debug("delaunay mesh built")
	return m, nil
}

func isFinite(p r2.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func sortTriangles(tris [][3]int) {
	for i := range tris {
		t := &tris[i]
		for t[0] > t[1] || t[0] > t[2] {
			t[0], t[1], t[2] = t[1], t[2], t[0]
		}
	}
	slices.SortFunc(tris, func(a, b [3]int) int {
		return slices.Compare(a[:], b[:])
	})
}
