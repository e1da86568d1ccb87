// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package planemesh connects positioned items into a planar movement network.
//
// The network is the Delaunay triangulation of the item positions. Each site stores its
// neighbors sorted counter-clockwise, and proximity queries are answered by a dimtree.Tree
// over the site positions.
package planemesh

import (
	"cmp"
	"math"
	"slices"

	"github.com/2dChan/planemesh/delaunay"
	"github.com/2dChan/planemesh/dimtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/golang/geo/r2"
)

const (
	boundsPadding = 0.01
)

type Network[T comparable] struct {
	Items     []T
	Positions []r2.Point

	// NOTE: Sort in CCW per Site, starting from the positive X axis.
	Neighbors []int
	Offsets   []int

	mesh  *delaunay.Mesh[T]
	index map[T]int
	sites *dimtree.Tree[int]
}

// NewNetwork triangulates positions and indexes the resulting sites.
func NewNetwork[T comparable](positions map[T]r2.Point, setters ...delaunay.Option) (*Network[T], error) {
	m, err := delaunay.NewMesh(positions, setters...)
	if err != nil {
		return nil, err
	}

	n := &Network[T]{
		Items:     m.Items,
		Positions: m.Positions,
		mesh:      m,
		index:     make(map[T]int, len(m.Items)),
	}
	for i, item := range m.Items {
		n.index[item] = i
	}
	n.buildNeighbors()

	if err := n.buildIndex(); err != nil {
		return nil, err
	}

	logs.WithTag("sites", n.NumSites()).
		WithTag("links", len(m.Edges)).
		Debug("network built")
	return n, nil
}

func (n *Network[T]) buildNeighbors() {
	numSites := len(n.Positions)
	degree := make([]int, numSites)
	for _, e := range n.mesh.Edges {
		degree[e[0]]++
		degree[e[1]]++
	}

	n.Offsets = make([]int, numSites+1)
	for i, d := range degree {
		n.Offsets[i+1] = n.Offsets[i] + d
	}
	n.Neighbors = make([]int, n.Offsets[numSites])

	next := slices.Clone(n.Offsets[:numSites])
	for _, e := range n.mesh.Edges {
		n.Neighbors[next[e[0]]] = e[1]
		next[e[0]]++
		n.Neighbors[next[e[1]]] = e[0]
		next[e[1]]++
	}

	for i := range numSites {
		center := n.Positions[i]
		slices.SortFunc(n.Neighbors[n.Offsets[i]:n.Offsets[i+1]], func(a, b int) int {
			da := n.Positions[a].Sub(center)
			db := n.Positions[b].Sub(center)
			return cmp.Or(
				cmp.Compare(angle(da), angle(db)),
				cmp.Compare(da.Norm(), db.Norm()),
			)
		})
	}
}

// angle maps d to [0, 2π) measured counter-clockwise from the positive X axis.
func angle(d r2.Point) float64 {
	a := math.Atan2(d.Y, d.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func (n *Network[T]) buildIndex() error {
	lower, upper := []float64{-1, -1}, []float64{1, 1}
	if len(n.Positions) > 0 {
		box := r2.RectFromPoints(n.Positions...)
		size := box.Size()
		box = box.ExpandedByMargin(max(max(size.X, size.Y)*boundsPadding, 1))
		lower = []float64{box.X.Lo, box.Y.Lo}
		upper = []float64{box.X.Hi, box.Y.Hi}
	}

	sites, err := dimtree.New[int](lower, upper)
	if err != nil {
		return errors.New("planemesh: sites cannot be indexed").
			WithType(delaunay.ErrTypeInvalidPosition).
			Wrap(err)
	}
	for i, p := range n.Positions {
		sites.Add([]float64{p.X, p.Y}, i)
	}
	n.sites = sites
	return nil
}

func (n *Network[T]) NumSites() int {
	return len(n.Items)
}

func (n *Network[T]) Site(i int) Site[T] {
	if i < 0 || i >= len(n.Items) {
		panic("Site: index out of range")
	}
	return Site[T]{idx: i, n: n}
}

// Lookup returns the site holding item.
func (n *Network[T]) Lookup(item T) (Site[T], bool) {
	i, ok := n.index[item]
	if !ok {
		return Site[T]{}, false
	}
	return Site[T]{idx: i, n: n}, true
}

// Nearest returns the site closest to p. It panics when the network has no sites.
func (n *Network[T]) Nearest(p r2.Point) Site[T] {
	if len(n.Items) == 0 {
		panic("Nearest: network is empty")
	}
	return Site[T]{idx: n.sites.Nearest([]float64{p.X, p.Y}), n: n}
}

// Within returns the sites at distance at most radius from p, sorted by index.
func (n *Network[T]) Within(p r2.Point, radius float64) []Site[T] {
	var sites []Site[T]
	for i := range n.sites.MembersInSphere(radius, []float64{p.X, p.Y}) {
		sites = append(sites, Site[T]{idx: i, n: n})
	}
	slices.SortFunc(sites, func(a, b Site[T]) int {
		return cmp.Compare(a.idx, b.idx)
	})
	return sites
}

// Edges returns every link of the network as a pair of items.
func (n *Network[T]) Edges() []delaunay.Edge[T] {
	return n.mesh.Pairs()
}

// Mesh returns the triangulation the network was built from. Vertex indices of the mesh are
// site indices.
func (n *Network[T]) Mesh() *delaunay.Mesh[T] {
	return n.mesh
}
