package fabric

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openfpga-tools/fabgen/internal/fault"
	"github.com/openfpga-tools/fabgen/internal/matrix"
)

// Tile is one placeable fabric unit. It is built once at load time and
// read-only afterwards; accessors return copies of the slice-valued state.
type Tile struct {
	name        string
	tileDir     string
	ports       []Port
	bels        []Bel
	matrixPath  string
	matrixBits  int
	withUserCLK bool
	wires       []Wire
}

func (t *Tile) Name() string { return t.name }

// MatrixPath is the switch-matrix source file (.list or .csv) the tile
// declared, resolved relative to its tile CSV.
func (t *Tile) MatrixPath() string { return t.matrixPath }

// MatrixBits is the number of configuration bits the switch matrix
// consumes: one select bit per (sink,source) crossing.
func (t *Tile) MatrixBits() int { return t.matrixBits }

func (t *Tile) WithUserCLK() bool { return t.withUserCLK }

func (t *Tile) Ports() []Port {
	out := make([]Port, len(t.ports))
	copy(out, t.ports)
	return out
}

func (t *Tile) Bels() []Bel {
	out := make([]Bel, len(t.bels))
	copy(out, t.bels)
	return out
}

func (t *Tile) Wires() []Wire {
	out := make([]Wire, len(t.wires))
	copy(out, t.wires)
	return out
}

// ConfigBits is the tile's total configuration-bit count: matrix select
// bits plus every BEL instance's feature bits.
func (t *Tile) ConfigBits() int {
	total := t.matrixBits
	for i := range t.bels {
		total += t.bels[i].ConfigBits()
	}
	return total
}

// ConfigMemPath is the tile's configuration-memory mapping sidecar,
// <name>_ConfigMem.csv next to the tile CSV. The file is optional; when
// present it overrides the default allocation.
func (t *Tile) ConfigMemPath() string {
	return filepath.Join(t.tileDir, t.name+"_ConfigMem.csv")
}

// SwitchMatrixAxes returns the two axes of the tile's switch matrix. Sinks
// are the signals the matrix drives (row per sink): the outgoing ends of
// directional wires and BEL input pins. Sources are the signals that can
// drive a sink (column per source): the arriving ends of directional wires
// and BEL output pins, external outputs included. The order is a public
// contract shared with the matrix bootstrapper and the bitstream layout:
// ordinary directional wires first, then BEL pins, then jump wires.
// Duplicates keep their first position.
func (t *Tile) SwitchMatrixAxes() (sources, sinks []string) {
	appendPorts := func(jump bool) {
		for _, p := range t.ports {
			if p.IO != Output || (p.Direction == Jump) != jump {
				continue
			}
			outgoing, arriving := p.ExpandSwitchMatrix()
			sinks = append(sinks, outgoing...)
			sources = append(sources, arriving...)
		}
	}
	appendPorts(false)
	for i := range t.bels {
		sinks = append(sinks, t.bels[i].Inputs...)
		sources = append(sources, t.bels[i].Outputs...)
		sources = append(sources, t.bels[i].ExternalOutputs...)
	}
	appendPorts(true)
	return dedupNames(sources), dedupNames(sinks)
}

func dedupNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// SuperTile is a composite of tiles arranged in a 2D sub-map; nil cells
// mark holes in the composite's footprint.
type SuperTile struct {
	name string
	grid [][]*Tile
}

func (s *SuperTile) Name() string { return s.name }

func (s *SuperTile) Grid() [][]*Tile {
	out := make([][]*Tile, len(s.grid))
	for i, row := range s.grid {
		out[i] = make([]*Tile, len(row))
		copy(out[i], row)
	}
	return out
}

// Tiles returns the distinct member tiles in first-appearance order.
func (s *SuperTile) Tiles() []*Tile {
	var out []*Tile
	seen := make(map[string]bool)
	for _, row := range s.grid {
		for _, t := range row {
			if t == nil || seen[t.name] {
				continue
			}
			seen[t.name] = true
			out = append(out, t)
		}
	}
	return out
}

type csvLine struct {
	no    int
	cells []string
}

// splitCSVLines strips comments and blanks and splits the remaining lines
// into trimmed cells, keeping original line numbers for error reporting.
func splitCSVLines(data string) []csvLine {
	var out []csvLine
	for n, raw := range strings.Split(data, "\n") {
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		cells := strings.Split(line, ",")
		var kept []string
		for _, c := range cells {
			c = strings.TrimSpace(c)
			if c != "" {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			continue
		}
		out = append(out, csvLine{no: n + 1, cells: kept})
	}
	return out
}

// LoadTiles parses every TILE,<name> ... EndTILE block of a tile CSV and
// returns the tiles plus the (source,destination) wire-name pairs their
// ordinary port lines declare.
func LoadTiles(path string) ([]*Tile, []WirePair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &fault.ParseError{File: path, Msg: "cannot read tile file", Err: err}
	}

	var tiles []*Tile
	var pairs []WirePair
	var cur *Tile
	for _, line := range splitCSVLines(string(data)) {
		key := line.cells[0]
		if cur == nil {
			switch key {
			case "TILE":
				if len(line.cells) < 2 {
					return nil, nil, fault.Parsef(path, line.no, "TILE line needs a name")
				}
				cur = &Tile{name: line.cells[1], tileDir: filepath.Dir(path)}
			default:
				return nil, nil, fault.Parsef(path, line.no, "%q outside a TILE block", key)
			}
			continue
		}
		switch key {
		case "EndTILE":
			if err := finishTile(path, cur); err != nil {
				return nil, nil, err
			}
			tiles = append(tiles, cur)
			cur = nil
		case "NORTH", "SOUTH", "EAST", "WEST", "JUMP":
			ports, err := parsePortLine(path, line.no, line.cells)
			if err != nil {
				return nil, nil, err
			}
			cur.ports = append(cur.ports, ports[0], ports[1])
			if key != "JUMP" {
				pairs = append(pairs, WirePair{Source: ports[0].Source, Destination: ports[0].Destination})
			}
		case "BEL":
			if len(line.cells) < 2 {
				return nil, nil, fault.Parsef(path, line.no, "BEL line needs a descriptor file")
			}
			prefix := ""
			if len(line.cells) > 2 {
				prefix = line.cells[2]
			}
			bel, err := LoadBel(filepath.Join(filepath.Dir(path), line.cells[1]), prefix)
			if err != nil {
				return nil, nil, fmt.Errorf("tile %s: %w", cur.name, err)
			}
			cur.bels = append(cur.bels, bel)
		case "MATRIX":
			if len(line.cells) < 2 {
				return nil, nil, fault.Parsef(path, line.no, "MATRIX line needs a file")
			}
			cur.matrixPath = filepath.Join(filepath.Dir(path), line.cells[1])
		case "INCLUDE":
			if len(line.cells) < 2 {
				return nil, nil, fault.Parsef(path, line.no, "INCLUDE line needs a file")
			}
			included, err := includePorts(filepath.Join(filepath.Dir(path), line.cells[1]))
			if err != nil {
				return nil, nil, fmt.Errorf("tile %s: %w", cur.name, err)
			}
			for _, ports := range included {
				cur.ports = append(cur.ports, ports[0], ports[1])
				if ports[0].Direction != Jump {
					pairs = append(pairs, WirePair{Source: ports[0].Source, Destination: ports[0].Destination})
				}
			}
		default:
			return nil, nil, fault.Parsef(path, line.no,
				"unknown tile description %q in tile %s", key, cur.name)
		}
	}
	if cur != nil {
		return nil, nil, fault.Parsef(path, 0, "tile %s has no EndTILE", cur.name)
	}
	if len(tiles) == 0 {
		return nil, nil, fault.Parsef(path, 0, "no TILE blocks found")
	}
	return tiles, pairs, nil
}

func includePorts(path string) ([][2]Port, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &fault.ParseError{File: path, Msg: "cannot read port include", Err: err}
	}
	var out [][2]Port
	for _, line := range splitCSVLines(string(data)) {
		ports, err := parsePortLine(path, line.no, line.cells)
		if err != nil {
			return nil, err
		}
		out = append(out, ports)
	}
	return out, nil
}

// finishTile computes the tile's matrix bit count from its declared matrix
// source. Each selectable (sink,source) crossing takes one bit.
func finishTile(path string, t *Tile) error {
	t.withUserCLK = false
	for i := range t.bels {
		if t.bels[i].WithUserCLK {
			t.withUserCLK = true
		}
	}
	if t.matrixPath == "" {
		return nil
	}
	switch filepath.Ext(t.matrixPath) {
	case ".list":
		pairs, err := matrix.ParseList(t.matrixPath)
		if err != nil {
			return fmt.Errorf("tile %s: %w", t.name, err)
		}
		t.matrixBits = len(pairs)
	case ".csv":
		m, err := matrix.ParseCSV(t.matrixPath, t.name)
		if err != nil {
			return fmt.Errorf("tile %s: %w", t.name, err)
		}
		t.matrixBits = m.Connectivity().PairCount()
	default:
		return fault.Parsef(path, 0, "tile %s: matrix file %s is neither .list nor .csv",
			t.name, t.matrixPath)
	}
	return nil
}

// LoadSuperTiles parses every SuperTILE,<name> ... EndSuperTILE block.
// Cells name member tiles from tileByName; Null cells become nil.
func LoadSuperTiles(path string, tileByName map[string]*Tile) ([]*SuperTile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &fault.ParseError{File: path, Msg: "cannot read supertile file", Err: err}
	}

	var supers []*SuperTile
	var cur *SuperTile
	for _, line := range splitCSVLines(string(data)) {
		key := line.cells[0]
		if cur == nil {
			if key != "SuperTILE" {
				return nil, fault.Parsef(path, line.no, "%q outside a SuperTILE block", key)
			}
			if len(line.cells) < 2 {
				return nil, fault.Parsef(path, line.no, "SuperTILE line needs a name")
			}
			cur = &SuperTile{name: line.cells[1]}
			continue
		}
		if key == "EndSuperTILE" {
			supers = append(supers, cur)
			cur = nil
			continue
		}
		var row []*Tile
		for _, cell := range line.cells {
			if isNullCell(cell) {
				row = append(row, nil)
				continue
			}
			t, ok := tileByName[cell]
			if !ok {
				return nil, fault.Parsef(path, line.no,
					"supertile %s references unknown tile %q", cur.name, cell)
			}
			row = append(row, t)
		}
		cur.grid = append(cur.grid, row)
	}
	if cur != nil {
		return nil, fault.Parsef(path, 0, "supertile %s has no EndSuperTILE", cur.name)
	}
	return supers, nil
}

func isNullCell(s string) bool {
	return s == "Null" || s == "NULL" || s == "None"
}
