// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package delaunay

import (
	"fmt"
	"math"
	"slices"

	"github.com/2dChan/planemesh/dimtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/golang/geo/r2"
)

// Vertex ids 0-3 are the scaffold corners. Real vertex v has id v+scaffoldVertices.
const scaffoldVertices = 4

// edgeKey identifies an edge by its vertex ids, smallest first.
type edgeKey struct {
	a, b int32
}

func newEdgeKey(u, v int32) edgeKey {
	if u > v {
		u, v = v, u
	}
	return edgeKey{a: u, b: v}
}

type triangle struct {
	v      [3]int32
	center r2.Point
	radius float64
	alive  bool
	// marked is only set while one insertion is in progress.
	marked bool
}

func (t *triangle) edge(i int) (int32, int32) {
	return t.v[i], t.v[(i+1)%3]
}

// solver owns the working triangulation. Triangles are the only authoritative record:
// the edge table is derived from them and only addTriangle and removeTriangle touch it.
type solver[T comparable] struct {
	mesh      *Mesh[T]
	points    []r2.Point
	triangles []triangle
	free      []int32
	// edges maps every live edge to its one or two owning triangles, -1 marking an empty
	// slot. Interior edges have two owners, the boundary of the scaffold has one.
	edges   map[edgeKey][2]int32
	circles *dimtree.VolumeTree[int32]
}

func newSolver[T comparable](m *Mesh[T], padding float64) (*solver[T], error) {
	box := r2.RectFromPoints(m.Positions...)
	size := box.Size()
	margin := size.Mul(padding)
	if margin.X == 0 {
		margin.X = margin.Y
	}
	if margin.Y == 0 {
		margin.Y = margin.X
	}
	box = box.Expanded(margin)

	circles, err := dimtree.NewVolume[int32](
		[]float64{box.X.Lo, box.Y.Lo},
		[]float64{box.X.Hi, box.Y.Hi},
	)
	if err != nil {
		return nil, errors.New("delaunay: scaffold cannot be indexed").
			WithType(ErrTypeInvalidPosition).
			Wrap(err)
	}

	corners := box.Vertices()
	s := &solver[T]{
		mesh:    m,
		points:  append(corners[:], m.Positions...),
		edges:   make(map[edgeKey][2]int32, 3*len(m.Positions)+8),
		circles: circles,
	}
	if err := s.addTriangle(0, 1, 2); err != nil {
		return nil, err
	}
	if err := s.addTriangle(0, 2, 3); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *solver[T]) label(v int32) string {
	if v < scaffoldVertices {
		return fmt.Sprintf("scaffold %d", v)
	}
	return fmt.Sprint(s.mesh.Items[v-scaffoldVertices])
}

// circumcircle returns the center and radius of the circle through a, b and c, false when
// the points are collinear or the circle is not representable.
func circumcircle(a, b, c r2.Point) (r2.Point, float64, bool) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	d := 2 * ab.Cross(ac)
	if d == 0 {
		return r2.Point{}, 0, false
	}
	ab2 := ab.Dot(ab)
	ac2 := ac.Dot(ac)
	u := r2.Point{
		X: (ac.Y*ab2 - ab.Y*ac2) / d,
		Y: (ab.X*ac2 - ac.X*ab2) / d,
	}
	center := a.Add(u)
	radius := u.Norm()
	if !isFinite(center) || math.IsInf(radius, 0) || math.IsNaN(radius) {
		return r2.Point{}, 0, false
	}
	return center, radius, true
}

func (s *solver[T]) addTriangle(a, b, c int32) error {
	pa, pb, pc := s.points[a], s.points[b], s.points[c]
	if pb.Sub(pa).Cross(pc.Sub(pa)) < 0 {
		b, c = c, b
		pb, pc = pc, pb
	}
	center, radius, ok := circumcircle(pa, pb, pc)
	if !ok {
		return errors.New("delaunay: degenerate triangle").
			WithType(ErrTypeDegenerateTriangle).
			WithTag("a", s.label(a)).
			WithTag("b", s.label(b)).
			WithTag("c", s.label(c))
	}

	t := triangle{
		v:      [3]int32{a, b, c},
		center: center,
		radius: radius,
		alive:  true,
	}
	var idx int32
	if k := len(s.free); k > 0 {
		idx = s.free[k-1]
		s.free = s.free[:k-1]
		s.triangles[idx] = t
	} else {
		idx = int32(len(s.triangles))
		s.triangles = append(s.triangles, t)
	}

	for i := range 3 {
		key := newEdgeKey(t.edge(i))
		owners, ok := s.edges[key]
		if !ok {
			owners = [2]int32{-1, -1}
		}
		switch {
		case owners[0] == -1:
			owners[0] = idx
		case owners[1] == -1:
			owners[1] = idx
		default:
			panic(fmt.Sprintf("delaunay: edge %v already has two triangles", key))
		}
		s.edges[key] = owners
	}
	s.circles.Add([]float64{center.X, center.Y}, radius, idx)
	return nil
}

func (s *solver[T]) removeTriangle(idx int32) {
	t := &s.triangles[idx]
	for i := range 3 {
		key := newEdgeKey(t.edge(i))
		owners := s.edges[key]
		switch idx {
		case owners[0]:
			owners[0], owners[1] = owners[1], -1
		case owners[1]:
			owners[1] = -1
		default:
			panic(fmt.Sprintf("delaunay: edge %v does not belong to triangle %d", key, idx))
		}
		if owners[0] == -1 {
			delete(s.edges, key)
		} else {
			s.edges[key] = owners
		}
	}
	if !s.circles.Remove([]float64{t.center.X, t.center.Y}, idx) {
		panic(fmt.Sprintf("delaunay: triangle %d is missing from the circle index", idx))
	}
	t.alive = false
	t.marked = false
	s.free = append(s.free, idx)
}

// insert adds vertex v. Every triangle whose circumcircle strictly contains v is removed and
// the resulting cavity is refilled by a fan of triangles around v.
func (s *solver[T]) insert(v int32) error {
	p := s.points[v]
	invalid := slices.Collect(s.circles.MembersInSphere(0, []float64{p.X, p.Y}))
	if len(invalid) == 0 {
		return errors.New("delaunay: no triangle encloses point").
			WithType(ErrTypeUnenclosedPoint).
			WithTag("item", s.label(v)).
			WithTag("position", p.String())
	}
	for _, idx := range invalid {
		s.triangles[idx].marked = true
	}

	// An edge between two invalid triangles is interior to the cavity and disappears. Any
	// other edge of an invalid triangle bounds the cavity. Boundary edges keep the
	// orientation of their triangle so the fan is CCW.
	var boundary [][2]int32
	for _, idx := range invalid {
		t := &s.triangles[idx]
		for i := range 3 {
			u, w := t.edge(i)
			owners := s.edges[newEdgeKey(u, w)]
			other := owners[0]
			if other == idx {
				other = owners[1]
			}
			if other != -1 && s.triangles[other].marked {
				continue
			}
			boundary = append(boundary, [2]int32{u, w})
		}
	}

	for _, idx := range invalid {
		s.removeTriangle(idx)
	}
	for _, e := range boundary {
		if err := s.addTriangle(e[0], e[1], v); err != nil {
			return err
		}
	}
	return nil
}

func (s *solver[T]) realTriangles() [][3]int {
	var tris [][3]int
	for i := range s.triangles {
		t := &s.triangles[i]
		if !t.alive || slices.ContainsFunc(t.v[:], func(v int32) bool { return v < scaffoldVertices }) {
			continue
		}
		tris = append(tris, [3]int{
			int(t.v[0] - scaffoldVertices),
			int(t.v[1] - scaffoldVertices),
			int(t.v[2] - scaffoldVertices),
		})
	}
	sortTriangles(tris)
	return tris
}

func (s *solver[T]) realEdges() [][2]int {
	var edges [][2]int
	for key := range s.edges {
		if key.a < scaffoldVertices {
			continue
		}
		edges = append(edges, [2]int{int(key.a - scaffoldVertices), int(key.b - scaffoldVertices)})
	}
	slices.SortFunc(edges, func(a, b [2]int) int {
		return slices.Compare(a[:], b[:])
	})
	return edges
}
