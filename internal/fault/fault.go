// Package fault defines the error taxonomy shared by all fabric compiler
// stages. Every error carries enough context (file, line, tile, feature)
// to localize the fault without re-running the stage.
package fault

import "fmt"

// ParseError reports malformed syntax in one of the fabric input files:
// bad delimiters, wrong field arity, unknown keywords.
type ParseError struct {
	File string
	Line int // 1-based, 0 if not applicable
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	default:
		return e.Msg
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parsef builds a ParseError with a formatted message.
func Parsef(file string, line int, format string, args ...interface{}) *ParseError {
	return &ParseError{File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// NameError reports a reference to a port, BEL or feature name that is not
// declared where it is used.
type NameError struct {
	Name    string
	Context string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("unknown name %q in %s", e.Name, e.Context)
}

// CapacityError reports a tile whose configuration bits exceed the
// frame grid capacity.
type CapacityError struct {
	Tile     string
	Required int
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("tile %s requires %d configuration bits but the frame grid holds only %d",
		e.Tile, e.Required, e.Capacity)
}

// BoundsError reports a wire whose destination resolves outside the
// fabric grid.
type BoundsError struct {
	Tile string // source tile coordinate, e.g. "X1Y0"
	Wire string
	X    int // offending destination coordinate
	Y    int
	Cols int
	Rows int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("wire %s in tile %s points to X%dY%d outside the fabric grid [0,%d]x[0,%d]",
		e.Wire, e.Tile, e.X, e.Y, e.Cols, e.Rows)
}

// ConsistencyError reports a violated internal contract: header mismatch,
// duplicate bit assignment, coverage gaps.
type ConsistencyError struct {
	Context string
	Msg     string
}

func (e *ConsistencyError) Error() string {
	if e.Context == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Context, e.Msg)
}

// Consistencyf builds a ConsistencyError with a formatted message.
func Consistencyf(context, format string, args ...interface{}) *ConsistencyError {
	return &ConsistencyError{Context: context, Msg: fmt.Sprintf(format, args...)}
}
