// Package bitstream maps named configuration features to physical frame
// bits and compiles feature settings into the binary configuration image.
// The spec it builds is the durable contract between fabric compile time
// and bitstream generation time.
package bitstream

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/openfpga-tools/fabgen/internal/configmem"
	"github.com/openfpga-tools/fabgen/internal/fabric"
	"github.com/openfpga-tools/fabgen/internal/fault"
	"github.com/openfpga-tools/fabgen/internal/matrix"
	"github.com/openfpga-tools/fabgen/internal/util"
)

// Location is the physical position of one configuration bit inside a
// tile's frame column.
type Location struct {
	Frame int `json:"frame"`
	Bit   int `json:"bit"`
}

// Feature is one named configuration item of a tile type with its
// resolved location. Features keep their build order: matrix selections
// first, then BEL settings.
type Feature struct {
	Name     string `json:"name"`
	Location Location `json:"location"`
}

// TileSpec holds every feature of one tile type.
type TileSpec struct {
	Tile     string    `json:"tile"`
	Features []Feature `json:"features"`

	index map[string]int
}

func (ts *TileSpec) buildIndex() {
	ts.index = make(map[string]int, len(ts.Features))
	for i, f := range ts.Features {
		ts.index[f.Name] = i
	}
}

// Lookup resolves a feature name to its location.
func (ts *TileSpec) Lookup(name string) (Location, bool) {
	i, ok := ts.index[name]
	if !ok {
		return Location{}, false
	}
	return ts.Features[i].Location, true
}

// Spec is the fabric-wide bitstream specification: the coordinate map and
// one TileSpec per used tile type, plus the frame geometry the image
// compiler needs.
type Spec struct {
	Fabric          string               `json:"fabric"`
	Rows            int                  `json:"rows"`
	Cols            int                  `json:"cols"`
	FrameBitsPerRow int                  `json:"frameBitsPerRow"`
	MaxFramesPerCol int                  `json:"maxFramesPerCol"`
	TileMap         map[string]string    `json:"tileMap"` // coordinate -> tile type, "NULL" for empty
	Tiles           map[string]*TileSpec `json:"tiles"`
}

// Build derives the bitstream specification from a loaded fabric. Tile
// types are built concurrently; the result is assembled name-keyed, so
// parallel and sequential runs produce identical specs.
func Build(fab *fabric.Fabric) (*Spec, error) {
	spec := &Spec{
		Fabric:          fab.Name(),
		Rows:            fab.Rows(),
		Cols:            fab.Cols(),
		FrameBitsPerRow: fab.FrameBitsPerRow(),
		MaxFramesPerCol: fab.MaxFramesPerCol(),
		TileMap:         make(map[string]string),
		Tiles:           make(map[string]*TileSpec),
	}
	for y := 0; y < fab.Rows(); y++ {
		for x := 0; x < fab.Cols(); x++ {
			name := "NULL"
			if t := fab.TileAt(x, y); t != nil {
				name = t.Name()
			}
			spec.TileMap[fabric.Coord(x, y)] = name
		}
	}

	names := fab.TileNames()
	results := make([]*TileSpec, len(names))
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		tile, _ := fab.Tile(name)
		wg.Add(1)
		go func(i int, tile *fabric.Tile) {
			defer wg.Done()
			results[i], errs[i] = buildTileSpec(fab, tile)
		}(i, tile)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", names[i], err)
		}
	}
	for _, ts := range results {
		spec.Tiles[ts.Tile] = ts
	}
	return spec, nil
}

// buildTileSpec lays the tile's features over its frame allocation:
// matrix-select features first, one per (sink,source) crossing in
// connectivity order, then BEL features in declaration order, each BEL
// named by its index letter. A hand-written ConfigMem sidecar overrides
// the default allocation when present.
func buildTileSpec(fab *fabric.Fabric, tile *fabric.Tile) (*TileSpec, error) {
	required := tile.ConfigBits()

	var frames []configmem.Frame
	var err error
	if sidecar := tile.ConfigMemPath(); fileExists(sidecar) {
		log.Debugf("tile %s: using config memory mapping %s", tile.Name(), sidecar)
		frames, err = configmem.ParseCSV(sidecar, fab.MaxFramesPerCol(), fab.FrameBitsPerRow(), required)
	} else {
		frames, err = configmem.Allocate(tile.Name(), fab.FrameBitsPerRow(), fab.MaxFramesPerCol(), required)
	}
	if err != nil {
		return nil, err
	}
	table := configmem.AddressTable(frames, fab.FrameBitsPerRow(), required)

	ts := &TileSpec{Tile: tile.Name()}
	offset := 0
	nextLocation := func(name string) error {
		if offset >= len(table) {
			return fault.Consistencyf(tile.Name(),
				"feature %s exceeds the tile's %d configuration bits", name, required)
		}
		addr := table[offset]
		ts.Features = append(ts.Features, Feature{
			Name:     name,
			Location: Location{Frame: addr.Frame, Bit: addr.Bit},
		})
		offset++
		return nil
	}

	conn, err := tileConnectivity(tile)
	if err != nil {
		return nil, err
	}
	if conn != nil {
		for _, sink := range conn.Keys() {
			for _, source := range conn.Members(sink) {
				if err := nextLocation(sink + "." + source); err != nil {
					return nil, err
				}
			}
		}
	}
	for i, bel := range tile.Bels() {
		letter := belLetter(i)
		for _, feat := range bel.Features {
			if err := nextLocation(letter + "." + feat); err != nil {
				return nil, err
			}
		}
	}

	if offset != required {
		return nil, fault.Consistencyf(tile.Name(),
			"features cover %d bits, tile declares %d configuration bits", offset, required)
	}
	if err := checkDisjoint(ts); err != nil {
		return nil, err
	}
	ts.buildIndex()
	return ts, nil
}

// tileConnectivity loads the tile's switch-matrix source in either format
// and normalizes it to the ordered sink -> sources view.
func tileConnectivity(tile *fabric.Tile) (*matrix.Group, error) {
	path := tile.MatrixPath()
	if path == "" {
		return nil, nil
	}
	return matrix.Connections(path, tile.Name())
}

func belLetter(i int) string {
	return string(rune('A' + i))
}

// checkDisjoint verifies the spec-coverage contract: every feature sits on
// its own physical bit.
func checkDisjoint(ts *TileSpec) error {
	seen := make(map[Location]string, len(ts.Features))
	for _, f := range ts.Features {
		if prev, ok := seen[f.Location]; ok {
			return fault.Consistencyf(ts.Tile,
				"features %s and %s share frame %d bit %d",
				prev, f.Name, f.Location.Frame, f.Location.Bit)
		}
		seen[f.Location] = f.Name
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SaveJSON persists the spec in its full-fidelity structured form.
func (s *Spec) SaveJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// LoadSpec reloads a previously saved spec and rebuilds the feature
// indices.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read bitstream spec: %w", err)
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, ts := range spec.Tiles {
		ts.buildIndex()
	}
	return &spec, nil
}

// WriteCSV writes the flattened tabular form: a row naming each tile type
// followed by one feature,frame,bit row per feature.
func (s *Spec) WriteCSV(path string) error {
	var sb strings.Builder
	for _, name := range util.OrderedKeys(s.Tiles) {
		ts := s.Tiles[name]
		fmt.Fprintf(&sb, "%s\n", name)
		for _, f := range ts.Features {
			fmt.Fprintf(&sb, "%s,%d,%d\n", f.Name, f.Location.Frame, f.Location.Bit)
		}
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}
