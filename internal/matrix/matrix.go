package matrix

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/openfpga-tools/fabgen/internal/fault"
)

// Connections loads a switch-matrix description in either list or CSV
// form and returns its sink-to-sources connectivity.
func Connections(path, tileName string) (*Group, error) {
	switch filepath.Ext(path) {
	case ".list":
		pairs, err := ParseList(path)
		if err != nil {
			return nil, err
		}
		return GroupBySink(pairs), nil
	case ".csv":
		m, err := ParseCSV(path, tileName)
		if err != nil {
			return nil, err
		}
		return m.Connectivity(), nil
	default:
		return nil, fault.Parsef(path, 0, "matrix file is neither .list nor .csv")
	}
}

// Matrix is the dense switch-matrix form: one row per sink (a signal the
// matrix drives), one column per source (a signal that can drive it), with
// a boolean flag at each crossing.
type Matrix struct {
	TileName string

	sinks   []string
	sources []string
	flags   [][]bool // [sink][source]

	sinkIdx   map[string]int
	sourceIdx map[string]int
}

// NewBlank creates an all-zero matrix for the given axes. Duplicate axis
// names are collapsed, first occurrence kept, preserving order.
func NewBlank(tileName string, sources, sinks []string) *Matrix {
	m := &Matrix{
		TileName:  tileName,
		sinkIdx:   make(map[string]int),
		sourceIdx: make(map[string]int),
	}
	for _, s := range sinks {
		if _, ok := m.sinkIdx[s]; ok {
			continue
		}
		m.sinkIdx[s] = len(m.sinks)
		m.sinks = append(m.sinks, s)
	}
	for _, s := range sources {
		if _, ok := m.sourceIdx[s]; ok {
			continue
		}
		m.sourceIdx[s] = len(m.sources)
		m.sources = append(m.sources, s)
	}
	m.flags = make([][]bool, len(m.sinks))
	for i := range m.flags {
		m.flags[i] = make([]bool, len(m.sources))
	}
	return m
}

// LoadCSV reads a dense matrix CSV without checking the header tile name.
// The header row carries the source columns; each later row is one sink.
// Anything after a `#` (such as the count summary a merge appends) is
// ignored.
func LoadCSV(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &fault.ParseError{File: path, Msg: "cannot read matrix file", Err: err}
	}

	var rows [][]string
	for _, raw := range strings.Split(string(data), "\n") {
		line := stripComment(raw)
		cells := strings.Split(line, ",")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		for len(cells) > 0 && cells[len(cells)-1] == "" {
			cells = cells[:len(cells)-1]
		}
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, fault.Parsef(path, 0, "matrix file is empty")
	}

	m := NewBlank(rows[0][0], rows[0][1:], nil)
	for _, row := range rows[1:] {
		sink := row[0]
		if sink == "" {
			continue
		}
		if _, ok := m.sinkIdx[sink]; ok {
			return nil, fault.Parsef(path, 0, "duplicate sink row %q", sink)
		}
		m.sinkIdx[sink] = len(m.sinks)
		m.sinks = append(m.sinks, sink)
		flags := make([]bool, len(m.sources))
		for j, cell := range row[1:] {
			if j >= len(m.sources) {
				return nil, fault.Parsef(path, 0, "row %q has more flags than source columns", sink)
			}
			switch cell {
			case "1":
				flags[j] = true
			case "0", "":
			default:
				return nil, fault.Parsef(path, 0, "row %q: flag must be 0 or 1, got %q", sink, cell)
			}
		}
		m.flags = append(m.flags, flags)
	}
	return m, nil
}

// ParseCSV reads a dense matrix CSV and verifies that its header names the
// expected tile.
func ParseCSV(path, tileName string) (*Matrix, error) {
	m, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}
	if m.TileName != tileName {
		return nil, fault.Consistencyf(path,
			"matrix header names tile %q, expected %q", m.TileName, tileName)
	}
	return m, nil
}

// Sources returns the source axis (columns) in declaration order.
func (m *Matrix) Sources() []string {
	out := make([]string, len(m.sources))
	copy(out, m.sources)
	return out
}

// Sinks returns the sink axis (rows) in declaration order.
func (m *Matrix) Sinks() []string {
	out := make([]string, len(m.sinks))
	copy(out, m.sinks)
	return out
}

// Flag reports whether the (source,sink) crossing is enabled.
func (m *Matrix) Flag(source, sink string) bool {
	i, ok := m.sinkIdx[sink]
	if !ok {
		return false
	}
	j, ok := m.sourceIdx[source]
	if !ok {
		return false
	}
	return m.flags[i][j]
}

// Set enables the (source,sink) crossing. It reports whether the flag was
// already set, and fails if either name is absent from its axis.
func (m *Matrix) Set(source, sink string) (already bool, err error) {
	i, ok := m.sinkIdx[sink]
	if !ok {
		return false, &fault.NameError{Name: sink, Context: "sink axis of matrix " + m.TileName}
	}
	j, ok := m.sourceIdx[source]
	if !ok {
		return false, &fault.NameError{Name: source, Context: "source axis of matrix " + m.TileName}
	}
	already = m.flags[i][j]
	m.flags[i][j] = true
	return already, nil
}

// Connectivity returns the normalized sink -> sources map: sinks in row
// order, sources in column order. Sinks without any source are omitted.
func (m *Matrix) Connectivity() *Group {
	g := newGroup()
	for i, sink := range m.sinks {
		for j, source := range m.sources {
			if m.flags[i][j] {
				g.add(sink, source)
			}
		}
	}
	return g
}

// Pairs returns every enabled crossing, sinks in row order and sources in
// column order within a sink.
func (m *Matrix) Pairs() []Pair {
	var pairs []Pair
	for i, sink := range m.sinks {
		for j, source := range m.sources {
			if m.flags[i][j] {
				pairs = append(pairs, Pair{Source: source, Sink: sink})
			}
		}
	}
	return pairs
}

// Merge parses a list file and sets each pair's flag in the matrix.
// Already-set flags are warned about and kept; a name missing from either
// axis aborts the merge.
func Merge(listPath string, m *Matrix) error {
	pairs, err := ParseList(listPath)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		already, err := m.Set(p.Source, p.Sink)
		if err != nil {
			return fmt.Errorf("%s: %w", listPath, err)
		}
		if already {
			log.Warnf("connection (%s,%s) already set in matrix %s", p.Source, p.Sink, m.TileName)
		}
	}
	return nil
}

// WriteCSV writes the dense matrix form. With counts enabled, each row gets
// a trailing `#,<set count>` column and a `#,<per-column counts>` summary
// row is appended, mirroring the merge write-back format.
func (m *Matrix) WriteCSV(path string, withCounts bool) error {
	var sb strings.Builder
	sb.WriteString(m.TileName)
	for _, source := range m.sources {
		sb.WriteByte(',')
		sb.WriteString(source)
	}
	sb.WriteByte('\n')

	colCounts := make([]int, len(m.sources))
	for i, sink := range m.sinks {
		sb.WriteString(sink)
		rowCount := 0
		for j := range m.sources {
			if m.flags[i][j] {
				sb.WriteString(",1")
				rowCount++
				colCounts[j]++
			} else {
				sb.WriteString(",0")
			}
		}
		if withCounts {
			fmt.Fprintf(&sb, ",#,%d", rowCount)
		}
		sb.WriteByte('\n')
	}
	if withCounts {
		sb.WriteByte('#')
		for _, c := range colCounts {
			fmt.Fprintf(&sb, ",%d", c)
		}
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// WriteList exports the matrix back to the sparse list form, one
// `source,sink` line per enabled crossing.
func (m *Matrix) WriteList(path string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", m.TileName)
	for _, p := range m.Pairs() {
		fmt.Fprintf(&sb, "%s,%s\n", p.Source, p.Sink)
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}
