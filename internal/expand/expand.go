// Package expand implements the port-name macro language used by switch
// matrix list files. An entry is a literal name, a bracket alternation
// `pre[a|b|c]post` (each alternative re-expanded, so brackets nest), or a
// brace repetition `name{N}` standing for an unnamed bus of N members.
package expand

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Expand expands one entry into its concrete name list. The result order is
// fixed: alternatives expand left to right, repetitions in place.
func Expand(entry string) ([]string, error) {
	entry = strings.ReplaceAll(entry, " ", "")
	if err := checkDelimiters(entry); err != nil {
		return nil, err
	}
	var out []string
	if err := expand(entry, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExpandPair expands both sides of a `source,sink` pair. Both sides must
// yield the same number of names.
func ExpandPair(source, sink string) (sources, sinks []string, err error) {
	sources, err = Expand(source)
	if err != nil {
		return nil, nil, err
	}
	sinks, err = Expand(sink)
	if err != nil {
		return nil, nil, err
	}
	if len(sources) != len(sinks) {
		return nil, nil, errors.Errorf(
			"entry %q expands to %d names but %q expands to %d",
			source, len(sources), sink, len(sinks))
	}
	return sources, sinks, nil
}

// checkDelimiters verifies that every bracket and brace opens and closes in
// order. Mismatches are fatal parse errors.
func checkDelimiters(entry string) error {
	var depth, braceDepth int
	for i, r := range entry {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return parseError(entry, i, "unmatched ']'")
			}
		case '{':
			braceDepth++
			if braceDepth > 1 {
				return parseError(entry, i, "nested '{'")
			}
		case '}':
			braceDepth--
			if braceDepth < 0 {
				return parseError(entry, i, "unmatched '}'")
			}
		}
	}
	if depth != 0 {
		return parseError(entry, len(entry), "unmatched '['")
	}
	if braceDepth != 0 {
		return parseError(entry, len(entry), "unmatched '{'")
	}
	return nil
}

func expand(entry string, out *[]string) error {
	open := strings.IndexByte(entry, '[')
	if open >= 0 {
		closing := matchingBracket(entry, open)
		pre, post := entry[:open], entry[closing+1:]
		for _, alt := range splitAlternatives(entry[open+1 : closing]) {
			if err := expand(pre+alt+post, out); err != nil {
				return err
			}
		}
		return nil
	}

	// No alternation left; resolve repetitions. Multiple braces sum up,
	// and a zero multiplier yields no names at all.
	if strings.IndexByte(entry, '{') >= 0 {
		name, count, err := stripRepetitions(entry)
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			*out = append(*out, name)
		}
		return nil
	}

	*out = append(*out, entry)
	return nil
}

// matchingBracket returns the index of the ']' closing the '[' at open.
// checkDelimiters already guaranteed it exists.
func matchingBracket(entry string, open int) int {
	depth := 0
	for i := open; i < len(entry); i++ {
		switch entry[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitAlternatives splits on '|' at bracket depth zero only, so nested
// alternations stay intact for the recursive pass.
func splitAlternatives(inner string) []string {
	var alts []string
	depth, start := 0, 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '|':
			if depth == 0 {
				alts = append(alts, inner[start:i])
				start = i + 1
			}
		}
	}
	return append(alts, inner[start:])
}

// stripRepetitions removes every `{N}` group from entry and returns the bare
// name together with the summed multiplier.
func stripRepetitions(entry string) (string, int, error) {
	var name strings.Builder
	count := 0
	for i := 0; i < len(entry); {
		if entry[i] != '{' {
			name.WriteByte(entry[i])
			i++
			continue
		}
		closing := strings.IndexByte(entry[i:], '}') + i
		n, err := strconv.Atoi(entry[i+1 : closing])
		if err != nil || n < 0 {
			return "", 0, parseError(entry, i+1, "repetition count must be a non-negative integer")
		}
		count += n
		i = closing + 1
	}
	return name.String(), count, nil
}

func parseError(in string, pos int, msg string) error {
	return errors.Errorf("in %q at pos %d: %s", in, pos+1, msg)
}
