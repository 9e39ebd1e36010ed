// Package router exports the fabric's routing resources in the textual
// model consumed by external place-and-route tools: pip records, BEL
// records in both the legacy and the verbose form, and IO constraints.
package router

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/openfpga-tools/fabgen/internal/fabric"
	"github.com/openfpga-tools/fabgen/internal/fault"
	"github.com/openfpga-tools/fabgen/internal/matrix"
)

// DefaultDelay is the pip delay used when no DelayProvider is given.
const DefaultDelay = 8.0

// DelayProvider supplies per-pip delays. key is the pip name as it
// appears in the exported record.
type DelayProvider interface {
	PipDelay(tile, key, source, sink string) float64
}

// cellTypes maps BEL descriptor names to the cell type the router
// expects. Names without an entry pass through unchanged.
var cellTypes = map[string]string{
	"LUT4c_frame_config":        "FABULOUS_LC",
	"LUT4c_frame_config_dffesr": "FABULOUS_LC",
}

// ioBelTypes are the BEL descriptor names that accept user IO
// constraints.
var ioBelTypes = map[string]bool{
	"IO_1_bidirectional_frame_config_pass": true,
	"InPass4_frame_config":                 true,
	"OutPass4_frame_config":                true,
	"InPass4_frame_config_mux":             true,
	"OutPass4_frame_config_mux":            true,
}

// Model is the exported routing model, one line per slice entry.
type Model struct {
	Pips        []string
	BelsLegacy  []string
	BelsVerbose []string
	Constraints []string
}

// Export walks the fabric grid and renders the routing model. delays
// may be nil, in which case every pip gets DefaultDelay.
func Export(fab *fabric.Fabric, delays DelayProvider) (*Model, error) {
	m := &Model{}
	header := fmt.Sprintf("# BEL descriptions: top left corner Tile_X0Y0, bottom right Tile_X%dY%d",
		fab.Cols(), fab.Rows())
	m.BelsLegacy = append(m.BelsLegacy, header)
	m.BelsVerbose = append(m.BelsVerbose, header)

	// Connectivity is per tile type, cache it across grid positions.
	conns := make(map[string]*matrix.Group)
	for _, name := range fab.TileNames() {
		t, ok := fab.Tile(name)
		if !ok || t.MatrixPath() == "" {
			continue
		}
		g, err := matrix.Connections(t.MatrixPath(), name)
		if err != nil {
			return nil, err
		}
		conns[name] = g
	}

	for y := 0; y < fab.Rows(); y++ {
		for x := 0; x < fab.Cols(); x++ {
			t := fab.TileAt(x, y)
			if t == nil {
				continue
			}
			if err := m.exportTile(fab, t, x, y, conns[t.Name()], delays); err != nil {
				return nil, err
			}
		}
	}
	log.Debugf("routing model: %d pips, %d bels, %d constraints",
		len(m.Pips), len(m.BelsLegacy), len(m.Constraints))
	return m, nil
}

func (m *Model) exportTile(fab *fabric.Fabric, t *fabric.Tile, x, y int, conn *matrix.Group, delays DelayProvider) error {
	coord := fabric.Coord(x, y)
	tile := t.Name()

	m.Pips = append(m.Pips, fmt.Sprintf("#Tile-internal pips on tile %s:", coord))
	if conn != nil {
		for _, sink := range conn.Keys() {
			for _, source := range conn.Members(sink) {
				name := sink + "." + source
				m.Pips = append(m.Pips, fmt.Sprintf("%s,%s,%s,%s,%s,%s",
					coord, source, coord, sink,
					formatDelay(pipDelay(delays, tile, name, source, sink)), name))
			}
		}
	}

	m.Pips = append(m.Pips, fmt.Sprintf("#Tile-external pips on tile %s:", coord))
	for _, w := range t.Wires() {
		xDst := x + w.XOffset
		yDst := y + w.YOffset
		// A wire may land on the virtual border row/column, hence the
		// inclusive upper bound.
		if xDst < 0 || xDst > fab.Cols() || yDst < 0 || yDst > fab.Rows() {
			return &fault.BoundsError{
				Tile: coord,
				Wire: w.Source + "->" + w.Destination,
				X:    xDst, Y: yDst,
				Cols: fab.Cols(), Rows: fab.Rows(),
			}
		}
		name := w.Source + "." + w.Destination
		m.Pips = append(m.Pips, fmt.Sprintf("%s,%s,X%dY%d,%s,%s,%s",
			coord, w.Source, xDst, yDst, w.Destination,
			formatDelay(pipDelay(delays, tile, name, w.Source, w.Destination)), name))
	}

	m.BelsLegacy = append(m.BelsLegacy, "#Tile_"+coord)
	m.BelsVerbose = append(m.BelsVerbose, "#Tile_"+coord)
	for i, bel := range t.Bels() {
		letter := belLetter(i)
		cType := bel.Name
		if ct, ok := cellTypes[bel.Name]; ok {
			cType = ct
		}

		ports := append(append([]string{}, bel.Inputs...), bel.Outputs...)
		m.BelsLegacy = append(m.BelsLegacy, fmt.Sprintf("%s,X%d,Y%d,%s,%s,%s",
			coord, x, y, letter, cType, strings.Join(ports, ",")))

		if ioBelTypes[bel.Name] {
			m.Constraints = append(m.Constraints, fmt.Sprintf("set_io Tile_%s_%s Tile_%s.%s",
				coord, letter, coord, letter))
		}

		m.BelsVerbose = append(m.BelsVerbose, fmt.Sprintf("BelBegin,%s,%s,%s,%s",
			coord, letter, cType, bel.Prefix))
		for _, in := range bel.Inputs {
			m.BelsVerbose = append(m.BelsVerbose, fmt.Sprintf("I,%s,%s.%s",
				strings.TrimPrefix(in, bel.Prefix), coord, in))
		}
		for _, out := range bel.Outputs {
			m.BelsVerbose = append(m.BelsVerbose, fmt.Sprintf("O,%s,%s.%s",
				strings.TrimPrefix(out, bel.Prefix), coord, out))
		}
		for _, feat := range sortedFeatures(bel.Features) {
			m.BelsVerbose = append(m.BelsVerbose, "CFG,"+feat)
		}
		if bel.WithUserCLK {
			m.BelsVerbose = append(m.BelsVerbose, "GlobalClk")
		}
		m.BelsVerbose = append(m.BelsVerbose, "BelEnd")
	}
	return nil
}

func pipDelay(delays DelayProvider, tile, key, source, sink string) float64 {
	if delays == nil {
		return DefaultDelay
	}
	return delays.PipDelay(tile, key, source, sink)
}

// formatDelay renders a delay without a trailing ".0" for whole values.
func formatDelay(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}

func sortedFeatures(features []string) []string {
	out := append([]string{}, features...)
	sort.Strings(out)
	return out
}

func belLetter(i int) string {
	return string(rune('A' + i))
}

// WritePips writes the pip records to path, one per line.
func (m *Model) WritePips(path string) error {
	return writeLines(path, m.Pips)
}

// WriteBels writes the legacy BEL records to path.
func (m *Model) WriteBels(path string) error {
	return writeLines(path, m.BelsLegacy)
}

// WriteBelsVerbose writes the verbose BEL records to path.
func (m *Model) WriteBelsVerbose(path string) error {
	return writeLines(path, m.BelsVerbose)
}

// WriteConstraints writes the IO constraint lines to path.
func (m *Model) WriteConstraints(path string) error {
	return writeLines(path, m.Constraints)
}

func writeLines(path string, lines []string) error {
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
}
