// Package util provides common utility functions.
package util

import (
	"fmt"
	"strings"
)

// BytesToHex converts a byte slice to a hex string with spaces between bytes.
func BytesToHex(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, " ")
}

// HexDump renders data as a classic hex dump: a 32-bit offset column
// followed by up to 16 bytes per row.
func HexDump(data []byte) string {
	var sb strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&sb, "%08x  %s\n", off, BytesToHex(data[off:end]))
	}
	return sb.String()
}
