// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package main

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/2dChan/planemesh"
	"github.com/2dChan/planemesh/delaunay"
	"github.com/2dChan/planemesh/internal/render"
	"github.com/2dChan/planemesh/utils"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
)

// The planemesh version number. Set at build.
var version = "v0.1.0"

// Keeps the config field names readable by the cli package when the binary is obfuscated.
var _ = reflect.TypeOf(config{})

type config struct {
	Input     string  `cli:""        env:"PLANEMESH_INPUT"      help:"JSON file with the sites to connect. Random sites are generated when empty."`
	Output    string  `cli:""        env:"PLANEMESH_OUTPUT"     help:"File where the JSON network is written. Defaults to stdout."`
	SVG       string  `cli:""        env:"PLANEMESH_SVG"        help:"File where an SVG rendering of the network is written."`
	Count     int     `cli:""        env:"PLANEMESH_COUNT"      help:"Number of random sites generated when no input is given."`
	Seed      int     `cli:""        env:"PLANEMESH_SEED"       help:"Seed of the random site generator."`
	Padding   float64 `cli:",hidden" env:"PLANEMESH_PADDING"    help:"Scaffold padding as a fraction of the bounding box size."`
	Width     int     `cli:",hidden" env:"PLANEMESH_SVG_WIDTH"  help:"Width of the SVG rendering."`
	Height    int     `cli:",hidden" env:"PLANEMESH_SVG_HEIGHT" help:"Height of the SVG rendering."`
	LogLevel  string  `cli:""        env:"PLANEMESH_LOG_LEVEL"  help:"Log level (debug|info|warning|error)."`
	LogIndent bool    `cli:""        env:"PLANEMESH_LOG_INDENT" help:"Indent logs."`
	Version   bool    `cli:""        env:"-"                    help:"Show version."`
	Help      bool    `cli:""        env:"-"                    help:"Show help."`
}

type site struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type link struct {
	A string `json:"a"`
	B string `json:"b"`
}

type network struct {
	Sites []site `json:"sites"`
	Links []link `json:"links"`
}

func main() {
	conf := config{
		Count:    1000,
		Padding:  0.01,
		Width:    1500,
		Height:   1500,
		LogLevel: logs.InfoLevel.String(),
	}

	cli.Register().
		Help("Connects sites into a Delaunay movement network.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	positions, err := loadPositions(conf)
	if err != nil {
		logs.Fatal(errors.New("loading sites failed").Wrap(err))
	}

	n, err := planemesh.NewNetwork(positions, delaunay.WithPadding(conf.Padding))
	if err != nil {
		logs.Fatal(errors.New("building network failed").Wrap(err))
	}
	logs.WithTag("sites", n.NumSites()).
		WithTag("links", len(n.Mesh().Edges)).
		WithTag("triangles", len(n.Mesh().Triangles)).
		Info("network built")

	if err := writeFile(conf.Output, func(w io.Writer) error {
		return writeNetwork(w, n)
	}); err != nil {
		logs.Fatal(errors.New("writing network failed").Wrap(err))
	}

	if conf.SVG != "" {
		if err := writeFile(conf.SVG, func(w io.Writer) error {
			return render.WriteSVG(w, n, render.Options{
				Width:      conf.Width,
				Height:     conf.Height,
				SiteRadius: 3,
			})
		}); err != nil {
			logs.Fatal(errors.New("writing svg failed").Wrap(err))
		}
		logs.WithTag("file", conf.SVG).Info("svg written")
	}
}

func validateConfig(conf config) error {
	if conf.Input == "" && conf.Count < 0 {
		return errors.New("site count cannot be negative").WithTag("count", conf.Count)
	}
	if !(conf.Padding > 0) {
		return errors.New("padding must be positive").WithTag("padding", conf.Padding)
	}
	return nil
}

func loadPositions(conf config) (map[string]r2.Point, error) {
	if conf.Input == "" {
		return generatePositions(conf.Count, int64(conf.Seed)), nil
	}

	b, err := os.ReadFile(conf.Input)
	if err != nil {
		return nil, err
	}
	return decodePositions(b)
}

func decodePositions(b []byte) (map[string]r2.Point, error) {
	var sites []site
	if err := json.Unmarshal(b, &sites); err != nil {
		return nil, errors.New("decoding sites failed").Wrap(err)
	}

	positions := make(map[string]r2.Point, len(sites))
	for _, s := range sites {
		if _, ok := positions[s.ID]; ok {
			return nil, errors.New("site id is not unique").WithTag("id", s.ID)
		}
		positions[s.ID] = r2.Point{X: s.X, Y: s.Y}
	}
	return positions, nil
}

// generatePositions derives a stable id for each random site from the seed and its rank.
func generatePositions(count int, seed int64) map[string]r2.Point {
	positions := make(map[string]r2.Point, count)
	for i, p := range utils.GenerateRandomPoints(count, seed) {
		id := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "planemesh/%d/%d", seed, i))
		positions[id.String()] = p
	}
	return positions
}

func writeNetwork(w io.Writer, n *planemesh.Network[string]) error {
	out := network{
		Sites: make([]site, n.NumSites()),
		Links: make([]link, 0, len(n.Mesh().Edges)),
	}
	for i := range n.NumSites() {
		s := n.Site(i)
		p := s.Position()
		out.Sites[i] = site{ID: s.Item(), X: p.X, Y: p.Y}
	}
	for _, e := range n.Edges() {
		out.Links = append(out.Links, link{A: e.A, B: e.B})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeFile writes to filename, or to stdout when filename is empty.
func writeFile(filename string, write func(io.Writer) error) error {
	if filename == "" {
		return write(os.Stdout)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
