package bitstream

import (
	"os"
	"strconv"
	"strings"

	"github.com/openfpga-tools/fabgen/internal/fault"
)

// Setting is one feature line of a placed-and-routed design: the tile
// coordinate, the feature name within that tile, and the value to program.
type Setting struct {
	Coord   string
	Feature string
	Value   bool
}

// ParseFASM reads a FASM-style feature file. Each line enables one
// feature, `X1Y2.J_BEG0.N1END0`, with an optional explicit `= value`
// where the value is decimal or verilog-sized like 1'b1; `#` starts a
// comment. Omitted values mean enabled.
func ParseFASM(path string) ([]Setting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &fault.ParseError{File: path, Msg: "cannot read feature file", Err: err}
	}

	var settings []Setting
	for n, raw := range strings.Split(string(data), "\n") {
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lineNo := n + 1

		name := line
		value := true
		if eq := strings.IndexByte(line, '='); eq >= 0 {
			name = strings.TrimSpace(line[:eq])
			v, err := parseFASMValue(strings.TrimSpace(line[eq+1:]))
			if err != nil {
				return nil, fault.Parsef(path, lineNo, "bad feature value: %v", err)
			}
			value = v
		}

		coord, feature, ok := strings.Cut(name, ".")
		if !ok || !strings.HasPrefix(coord, "X") {
			return nil, fault.Parsef(path, lineNo, "feature %q is not of the form X<x>Y<y>.<name>", name)
		}
		settings = append(settings, Setting{Coord: coord, Feature: feature, Value: value})
	}
	return settings, nil
}

// parseFASMValue accepts plain integers and verilog-sized literals
// (1'b1, 4'hA); any non-zero value enables the feature.
func parseFASMValue(s string) (bool, error) {
	if tick := strings.IndexByte(s, '\''); tick >= 0 {
		if len(s) < tick+2 {
			return false, strconv.ErrSyntax
		}
		base := 10
		switch s[tick+1] {
		case 'b', 'B':
			base = 2
		case 'h', 'H':
			base = 16
		case 'o', 'O':
			base = 8
		case 'd', 'D':
		default:
			return false, strconv.ErrSyntax
		}
		v, err := strconv.ParseUint(s[tick+2:], base, 64)
		if err != nil {
			return false, err
		}
		return v != 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
