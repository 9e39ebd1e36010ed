// Package matrix parses, bootstraps and merges per-tile switch-matrix
// descriptions. Both the dense CSV form and the sparse list form normalize
// to the same sink -> sources connectivity map.
package matrix

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/openfpga-tools/fabgen/internal/expand"
	"github.com/openfpga-tools/fabgen/internal/fault"
)

// Pair is one switch-matrix connection: Sink is driven by Source.
type Pair struct {
	Source string
	Sink   string
}

// ParseList parses a sparse list file into connection pairs. Each line is
// `source,sink` with both sides run through macro expansion; `INCLUDE,path`
// splices another list file relative to the current one. Duplicates are
// dropped, first occurrence kept.
func ParseList(path string) ([]Pair, error) {
	var all []Pair
	if err := parseListInto(path, &all); err != nil {
		return nil, err
	}

	seen := make(map[Pair]struct{}, len(all))
	pairs := make([]Pair, 0, len(all))
	for _, p := range all {
		if _, ok := seen[p]; ok {
			log.Debugf("dropping duplicate connection (%s,%s) in %s", p.Source, p.Sink, path)
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func parseListInto(path string, out *[]Pair) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &fault.ParseError{File: path, Msg: "cannot read list file", Err: err}
	}

	for i, raw := range strings.Split(string(data), "\n") {
		line := stripComment(raw)
		line = strings.ReplaceAll(line, " ", "")
		line = strings.ReplaceAll(line, "\t", "")
		fields := splitNonEmpty(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return fault.Parsef(path, i+1, "expected `source,sink`, got %d fields", len(fields))
		}

		if fields[0] == "INCLUDE" {
			include := filepath.Join(filepath.Dir(path), fields[1])
			if err := parseListInto(include, out); err != nil {
				return err
			}
			continue
		}

		sources, sinks, err := expand.ExpandPair(fields[0], fields[1])
		if err != nil {
			return &fault.ParseError{File: path, Line: i + 1, Msg: err.Error(), Err: err}
		}
		for k := range sources {
			*out = append(*out, Pair{Source: sources[k], Sink: sinks[k]})
		}
	}
	return nil
}

// Group is an insertion-ordered one-to-many view over connection pairs.
type Group struct {
	keys    []string
	members map[string][]string
}

func newGroup() *Group {
	return &Group{members: make(map[string][]string)}
}

func (g *Group) add(key, member string) {
	if _, ok := g.members[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.members[key] = append(g.members[key], member)
}

// Keys returns the group keys in first-occurrence order.
func (g *Group) Keys() []string {
	keys := make([]string, len(g.keys))
	copy(keys, g.keys)
	return keys
}

// Members returns the members recorded for key, in insertion order.
func (g *Group) Members(key string) []string {
	members := make([]string, len(g.members[key]))
	copy(members, g.members[key])
	return members
}

// Has reports whether key is present.
func (g *Group) Has(key string) bool {
	_, ok := g.members[key]
	return ok
}

// PairCount returns the total number of (key,member) pairs.
func (g *Group) PairCount() int {
	n := 0
	for _, m := range g.members {
		n += len(m)
	}
	return n
}

// GroupBySource groups pairs as source -> sinks.
func GroupBySource(pairs []Pair) *Group {
	g := newGroup()
	for _, p := range pairs {
		g.add(p.Source, p.Sink)
	}
	return g
}

// GroupBySink groups pairs as sink -> sources. This is the normalized
// connectivity form shared with the dense matrix parser.
func GroupBySink(pairs []Pair) *Group {
	g := newGroup()
	for _, p := range pairs {
		g.add(p.Sink, p.Source)
	}
	return g
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func splitNonEmpty(line string) []string {
	var fields []string
	for _, f := range strings.Split(line, ",") {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
