// Package color provides ANSI terminal markers for diagnostic output.
package color

import (
	"fmt"
	"os"
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
	dimmed = "\033[2m"
)

var enabled = isTerminal()

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// Disable turns off color output, for piped or redirected output.
func Disable() { enabled = false }

// Enable turns on color output.
func Enable() { enabled = true }

func wrap(c, s string) string {
	if !enabled {
		return s
	}
	return c + s + reset
}

// OK marks a passed check.
func OK(msg string) string { return wrap(green, "[OK] "+msg) }

// Fail marks a failed check.
func Fail(msg string) string { return wrap(red, "[FAIL] "+msg) }

// Warn marks a non-fatal finding.
func Warn(msg string) string { return wrap(yellow, "[WARN] "+msg) }

// Okf, Failf and Warnf are the printf forms of the markers.
func Okf(format string, a ...any) string   { return OK(fmt.Sprintf(format, a...)) }
func Failf(format string, a ...any) string { return Fail(fmt.Sprintf(format, a...)) }
func Warnf(format string, a ...any) string { return Warn(fmt.Sprintf(format, a...)) }

// Bold formats text as bold.
func Bold(s string) string { return wrap(bold, s) }

// Dim formats text as dimmed.
func Dim(s string) string { return wrap(dimmed, s) }

// Header formats a section header.
func Header(s string) string { return wrap(bold+cyan, "--- "+s+" ---") }
