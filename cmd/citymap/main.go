package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/lawnchairsociety/citygen/internal/citygen"
	"github.com/lawnchairsociety/citygen/internal/export"
	"github.com/lawnchairsociety/citygen/internal/geom"
)

// Map cells, in increasing priority.
const (
	cellEmpty  = ' '
	cellBlock  = '.'
	cellParcel = '#'
	cellMinor  = '-'
	cellMajor  = '='
)

func main() {
	inputFile := flag.String("input", "data/city.yaml", "Path to a city YAML file written by citygen")
	columns := flag.Int("width", 80, "Map width in characters")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	showLegend := flag.Bool("legend", true, "Show legend")
	flag.Parse()

	doc, err := export.LoadFile(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading city: %v\n", err)
		os.Exit(1)
	}
	city := doc.City

	var output strings.Builder

	output.WriteString(fmt.Sprintf("City Map (Seed: %d, %gx%g)\n", city.Seed, city.Width, city.Depth))
	output.WriteString(fmt.Sprintf("Generated: %s (%s)\n", doc.SavedAt.Format("2006-01-02 15:04:05"), humanize.Time(doc.SavedAt)))
	output.WriteString(fmt.Sprintf("Streets: %s  Blocks: %s  Parcels: %s\n",
		humanize.Comma(int64(len(city.Streets))),
		humanize.Comma(int64(len(city.Blocks))),
		humanize.Comma(int64(city.Stats.Parcels))))
	output.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, row := range render(city, *columns) {
		output.WriteString(strings.TrimRight(string(row), " "))
		output.WriteString("\n")
	}

	if *showLegend {
		output.WriteString("\n")
		output.WriteString(getLegend())
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output.String()), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Map written to %s\n", *outputFile)
	} else {
		fmt.Print(output.String())
	}
}

// render rasterises the city into rows of characters. Rows are half as
// dense as columns to compensate for the aspect ratio of terminal cells.
func render(city *citygen.City, columns int) [][]rune {
	if columns < 1 || city.Width <= 0 || city.Depth <= 0 {
		return nil
	}
	cell := city.Width / float64(columns)
	rows := max(1, int(math.Ceil(city.Depth/(2*cell))))

	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(string(cellEmpty), columns))
	}
	set := func(r, c int, ch rune) {
		if r >= 0 && r < rows && c >= 0 && c < columns && priority(ch) > priority(grid[r][c]) {
			grid[r][c] = ch
		}
	}
	center := func(r, c int) geom.Point {
		return geom.Pt((float64(c)+0.5)*cell, (float64(r)+0.5)*2*cell)
	}

	unscale := 1.0
	if city.Scale > 0 {
		unscale = 1 / city.Scale
	}
	for _, b := range city.Blocks {
		block := geom.Ring(b.Ring)
		lots := make([]geom.Ring, len(b.Parcels))
		for i, p := range b.Parcels {
			lots[i] = geom.Ring(p.Points).Scale(unscale)
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < columns; c++ {
				p := center(r, c)
				if !block.Contains(p) {
					continue
				}
				set(r, c, cellBlock)
				for _, lot := range lots {
					if lot.Contains(p) {
						set(r, c, cellParcel)
						break
					}
				}
			}
		}
	}

	for _, s := range city.Streets {
		ch := rune(cellMinor)
		if s.Major {
			ch = cellMajor
		}
		for i := 1; i < len(s.Points); i++ {
			a, b := s.Points[i-1], s.Points[i]
			steps := max(1, int(math.Ceil(a.Dist(b)/(cell/2))))
			for k := 0; k <= steps; k++ {
				p := geom.Lerp(a, b, float64(k)/float64(steps))
				set(int(p.Z/(2*cell)), int(p.X/cell), ch)
			}
		}
	}
	return grid
}

func priority(ch rune) int {
	return strings.IndexRune(string([]rune{cellEmpty, cellBlock, cellParcel, cellMinor, cellMajor}), ch)
}

func getLegend() string {
	return `Legend:
  =  Major street
  -  Minor street
  #  Parcel
  .  Block (setback or road inset)
`
}
