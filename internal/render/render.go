// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package render draws networks as SVG documents.
package render

import (
	"io"

	"github.com/2dChan/planemesh"
	svg "github.com/ajstarks/svgo"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/golang/geo/r2"
)

const (
	ErrTypeInvalidCanvas = "render_invalid_canvas"
)

const (
	margin = 20

	backgroundStyle = "fill:rgb(255,255,255)"
	polygonStyle    = "fill:rgb(255,255,255);stroke:rgb(170,170,170);stroke-width:1;stroke-opacity:1.0"
	linkStyle       = "stroke:rgb(170,170,170);stroke-width:1"
	siteStyle       = "fill:rgb(0,0,255)"
)

// Options controls the canvas.
type Options struct {
	Width, Height int
	// SiteRadius is the radius of the dot drawn at each site, in pixels. Zero hides sites.
	SiteRadius int
}

// projection maps the bounding box of the sites onto the canvas, keeping the aspect ratio
// and flipping the Y axis.
type projection struct {
	origin r2.Point
	scale  float64
	height int
}

func newProjection(points []r2.Point, o Options) projection {
	p := projection{scale: 1, height: o.Height}
	if len(points) == 0 {
		return p
	}
	box := r2.RectFromPoints(points...)
	size := box.Size()
	p.origin = box.Lo()

	w := float64(o.Width - 2*margin)
	h := float64(o.Height - 2*margin)
	switch {
	case size.X > 0 && size.Y > 0:
		p.scale = min(w/size.X, h/size.Y)
	case size.X > 0:
		p.scale = w / size.X
	case size.Y > 0:
		p.scale = h / size.Y
	}
	return p
}

func (p projection) toScreen(v r2.Point) (int, int) {
	d := v.Sub(p.origin).Mul(p.scale)
	return margin + int(d.X), p.height - margin - int(d.Y)
}

// WriteSVG draws the triangles, links and sites of n.
func WriteSVG[T comparable](w io.Writer, n *planemesh.Network[T], o Options) error {
	if o.Width <= 2*margin || o.Height <= 2*margin {
		return errors.New("render: canvas too small").
			WithType(ErrTypeInvalidCanvas).
			WithTag("width", o.Width).
			WithTag("height", o.Height)
	}

	ew := &errWriter{w: w}
	proj := newProjection(n.Positions, o)
	canvas := svg.New(ew)
	canvas.Start(o.Width, o.Height)
	canvas.Rect(0, 0, o.Width, o.Height, backgroundStyle)

	m := n.Mesh()
	xPoints := make([]int, 0, 3)
	yPoints := make([]int, 0, 3)
	for i := range m.Triangles {
		xPoints = xPoints[:0]
		yPoints = yPoints[:0]
		a, b, c := m.TriangleVertices(i)
		for _, v := range []r2.Point{a, b, c} {
			x, y := proj.toScreen(v)
			xPoints = append(xPoints, x)
			yPoints = append(yPoints, y)
		}
		canvas.Polygon(xPoints, yPoints, polygonStyle)
	}

	// Collinear networks have links but no triangles.
	for _, e := range m.Edges {
		x1, y1 := proj.toScreen(n.Positions[e[0]])
		x2, y2 := proj.toScreen(n.Positions[e[1]])
		canvas.Line(x1, y1, x2, y2, linkStyle)
	}

	if o.SiteRadius > 0 {
		for _, p := range n.Positions {
			x, y := proj.toScreen(p)
			canvas.Circle(x, y, o.SiteRadius, siteStyle)
		}
	}
	canvas.End()

	if ew.err != nil {
		return errors.New("render: writing svg failed").Wrap(ew.err)
	}
	return nil
}

// errWriter keeps the first write error, svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
