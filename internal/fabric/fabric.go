// Package fabric holds the immutable structural model of an eFPGA fabric:
// the tile grid, per-tile ports, wires and BELs, and the frame geometry of
// the configuration memory. Everything is built once from the fabric CSV
// and exposed through accessors only.
package fabric

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/openfpga-tools/fabgen/internal/fault"
)

// Defaults used when the fabric CSV omits the corresponding parameter.
const (
	DefaultFrameBitsPerRow = 32
	DefaultMaxFramesPerCol = 20
)

// Fabric is the top-level model: a 2D grid of tile references plus the
// lookup maps and frame geometry every later stage works from.
type Fabric struct {
	name            string
	rows, cols      int
	frameBitsPerRow int
	maxFramesPerCol int

	grid       [][]*Tile // [y][x], nil for empty cells
	tiles      map[string]*Tile
	superTiles map[string]*SuperTile

	commonPairs []WirePair
}

func (f *Fabric) Name() string         { return f.name }
func (f *Fabric) Rows() int            { return f.rows }
func (f *Fabric) Cols() int            { return f.cols }
func (f *Fabric) FrameBitsPerRow() int { return f.frameBitsPerRow }
func (f *Fabric) MaxFramesPerCol() int { return f.maxFramesPerCol }

// TileAt returns the tile at grid position (x,y), or nil for empty cells
// and out-of-grid coordinates.
func (f *Fabric) TileAt(x, y int) *Tile {
	if y < 0 || y >= f.rows || x < 0 || x >= f.cols {
		return nil
	}
	return f.grid[y][x]
}

// Tile looks up a used tile type by name.
func (f *Fabric) Tile(name string) (*Tile, bool) {
	t, ok := f.tiles[name]
	return t, ok
}

// TileNames returns the used tile type names in first-declaration order.
func (f *Fabric) TileNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, row := range f.grid {
		for _, t := range row {
			if t == nil || seen[t.name] {
				continue
			}
			seen[t.name] = true
			names = append(names, t.name)
		}
	}
	return names
}

// SuperTile looks up a supertile by name.
func (f *Fabric) SuperTile(name string) (*SuperTile, bool) {
	s, ok := f.superTiles[name]
	return s, ok
}

// CommonWirePairs returns the fabric-wide (source,destination) wire-name
// pairs collected from every tile's port lines.
func (f *Fabric) CommonWirePairs() []WirePair {
	out := make([]WirePair, len(f.commonPairs))
	copy(out, f.commonPairs)
	return out
}

// Coord renders a grid position in the X{x}Y{y} form used by every
// exported artifact.
func Coord(x, y int) string {
	return fmt.Sprintf("X%dY%d", x, y)
}

// Load reads a fabric CSV: the FabricBegin/FabricEnd tile grid and the
// ParametersBegin/ParametersEnd block naming the tile and supertile files
// and the frame geometry. Declared-but-unused tiles are dropped with a
// warning; wires are derived for every used tile before the fabric is
// returned.
func Load(path string) (*Fabric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &fault.ParseError{File: path, Msg: "cannot read fabric file", Err: err}
	}
	dir := filepath.Dir(path)

	fab := &Fabric{
		name:            "eFPGA",
		frameBitsPerRow: DefaultFrameBitsPerRow,
		maxFramesPerCol: DefaultMaxFramesPerCol,
		tiles:           make(map[string]*Tile),
		superTiles:      make(map[string]*SuperTile),
	}

	var gridNames [][]string
	tileByName := make(map[string]*Tile)
	var tileOrder []string

	const (
		sectNone = iota
		sectFabric
		sectParams
	)
	sect := sectNone
	sawFabric, sawParams := false, false

	for _, line := range splitCSVLines(string(data)) {
		key := line.cells[0]
		switch {
		case key == "FabricBegin":
			sect = sectFabric
			sawFabric = true
			continue
		case key == "FabricEnd":
			sect = sectNone
			continue
		case key == "ParametersBegin":
			sect = sectParams
			sawParams = true
			continue
		case key == "ParametersEnd":
			sect = sectNone
			continue
		}

		switch sect {
		case sectFabric:
			gridNames = append(gridNames, line.cells)
		case sectParams:
			if len(line.cells) < 2 {
				return nil, fault.Parsef(path, line.no, "parameter %q needs a value", key)
			}
			switch {
			case key == "Name":
				fab.name = line.cells[1]
			case strings.HasPrefix(key, "Tile"):
				tiles, _, err := LoadTiles(filepath.Join(dir, line.cells[1]))
				if err != nil {
					return nil, err
				}
				for _, t := range tiles {
					if _, ok := tileByName[t.name]; !ok {
						tileOrder = append(tileOrder, t.name)
					}
					tileByName[t.name] = t
				}
			case strings.HasPrefix(key, "Supertile"):
				supers, err := LoadSuperTiles(filepath.Join(dir, line.cells[1]), tileByName)
				if err != nil {
					return nil, err
				}
				for _, s := range supers {
					fab.superTiles[s.name] = s
				}
			case strings.HasPrefix(key, "FrameBitsPerRow"):
				if fab.frameBitsPerRow, err = strconv.Atoi(line.cells[1]); err != nil {
					return nil, fault.Parsef(path, line.no, "bad FrameBitsPerRow %q", line.cells[1])
				}
			case strings.HasPrefix(key, "MaxFramesPerCol"):
				if fab.maxFramesPerCol, err = strconv.Atoi(line.cells[1]); err != nil {
					return nil, fault.Parsef(path, line.no, "bad MaxFramesPerCol %q", line.cells[1])
				}
			default:
				return nil, fault.Parsef(path, line.no, "unknown fabric parameter %q", key)
			}
		default:
			return nil, fault.Parsef(path, line.no, "%q outside FabricBegin/ParametersBegin sections", key)
		}
	}
	if !sawFabric {
		return nil, fault.Parsef(path, 0, "cannot find FabricBegin/FabricEnd section")
	}
	if !sawParams {
		return nil, fault.Parsef(path, 0, "cannot find ParametersBegin/ParametersEnd section")
	}
	if len(gridNames) == 0 {
		return nil, fault.Parsef(path, 0, "fabric grid is empty")
	}

	// Form the grid; drop declared-but-unused tiles with a warning.
	used := make(map[string]bool)
	fab.rows = len(gridNames)
	for _, row := range gridNames {
		var gridRow []*Tile
		for _, name := range row {
			if isNullCell(name) {
				gridRow = append(gridRow, nil)
				continue
			}
			t, ok := tileByName[name]
			if !ok {
				return nil, fault.Parsef(path, 0, "unknown tile %q in fabric grid", name)
			}
			used[name] = true
			gridRow = append(gridRow, t)
		}
		if len(gridRow) > fab.cols {
			fab.cols = len(gridRow)
		}
		fab.grid = append(fab.grid, gridRow)
	}
	for _, name := range tileOrder {
		if !used[name] {
			log.Warnf("tile %s is declared but not used in the fabric", name)
			continue
		}
		fab.tiles[name] = tileByName[name]
	}
	for name, s := range fab.superTiles {
		for _, t := range s.Tiles() {
			if !used[t.name] {
				log.Warnf("supertile %s member %s is not used in the fabric", name, t.name)
			}
		}
	}

	fab.deriveAllWires()
	return fab, nil
}

// deriveAllWires collects the fabric-wide common wire pairs and breaks
// every used tile's port bundles into unit wires.
func (f *Fabric) deriveAllWires() {
	var pairs []WirePair
	seen := make(map[WirePair]bool)
	byName := make(map[string]string)
	for _, name := range f.TileNames() {
		t := f.tiles[name]
		for _, p := range t.ports {
			if p.IO != Output {
				continue
			}
			if p.Source == "NULL" || p.Destination == "NULL" {
				continue
			}
			wp := WirePair{Source: p.Source, Destination: p.Destination}
			if seen[wp] {
				continue
			}
			seen[wp] = true
			pairs = append(pairs, wp)
			if _, ok := byName[wp.Source]; !ok {
				byName[wp.Source] = wp.Destination
			}
		}
	}
	f.commonPairs = pairs

	for _, t := range f.tiles {
		t.wires = deriveWires(t.ports, byName)
	}
}
