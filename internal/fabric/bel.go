package fabric

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/openfpga-tools/fabgen/internal/expand"
	"github.com/openfpga-tools/fabgen/internal/fault"
)

// Bel is a primitive configurable component instantiated inside a tile.
// Inputs and outputs carry the instance prefix so several instances of the
// same primitive keep distinct switch-matrix names; external pins bypass
// the matrix and keep their bare names.
type Bel struct {
	Name            string
	Prefix          string
	Inputs          []string
	Outputs         []string
	ExternalInputs  []string
	ExternalOutputs []string
	Features        []string
	WithUserCLK     bool
}

// ConfigBits is the number of configuration bits the instance consumes,
// one per boolean feature.
func (b *Bel) ConfigBits() int { return len(b.Features) }

// LoadBel reads a BEL descriptor CSV. Each line declares one aspect of the
// primitive: INPUT/OUTPUT pins (expandable, prefixed with the instance
// prefix), EXTERNAL_INPUT/EXTERNAL_OUTPUT pins (kept bare), FEATURE names
// in configuration-bit order, and an optional USER_CLK marker. The
// primitive's name is the file stem.
func LoadBel(path, prefix string) (Bel, error) {
	bel := Bel{
		Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Prefix: prefix,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return bel, &fault.ParseError{File: path, Msg: "cannot read BEL descriptor", Err: err}
	}

	for n, raw := range strings.Split(string(data), "\n") {
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		cells := strings.Split(line, ",")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if cells[0] == "" {
			continue
		}
		lineNo := n + 1
		switch cells[0] {
		case "INPUT", "OUTPUT":
			if len(cells) < 2 {
				return bel, fault.Parsef(path, lineNo, "%s line needs a pin name", cells[0])
			}
			names, err := expand.Expand(cells[1])
			if err != nil {
				return bel, fault.Parsef(path, lineNo, "bad pin name %q: %v", cells[1], err)
			}
			for _, name := range names {
				if cells[0] == "INPUT" {
					bel.Inputs = append(bel.Inputs, prefix+name)
				} else {
					bel.Outputs = append(bel.Outputs, prefix+name)
				}
			}
		case "EXTERNAL_INPUT":
			if len(cells) < 2 {
				return bel, fault.Parsef(path, lineNo, "EXTERNAL_INPUT line needs a pin name")
			}
			bel.ExternalInputs = append(bel.ExternalInputs, cells[1])
		case "EXTERNAL_OUTPUT":
			if len(cells) < 2 {
				return bel, fault.Parsef(path, lineNo, "EXTERNAL_OUTPUT line needs a pin name")
			}
			bel.ExternalOutputs = append(bel.ExternalOutputs, cells[1])
		case "FEATURE":
			if len(cells) < 2 {
				return bel, fault.Parsef(path, lineNo, "FEATURE line needs a feature name")
			}
			bel.Features = append(bel.Features, cells[1])
		case "USER_CLK":
			bel.WithUserCLK = true
		default:
			return bel, fault.Parsef(path, lineNo, "unknown BEL descriptor keyword %q", cells[0])
		}
	}
	return bel, nil
}
