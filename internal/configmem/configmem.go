// Package configmem maps a tile's configuration bits onto the fabric's
// frame-addressed configuration memory. Each tile column holds a fixed
// number of frames, each frame a fixed number of bits; the mapping says
// which physical frame bit backs which logical config bit.
package configmem

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/openfpga-tools/fabgen/internal/fault"
)

// Frame is one row of a config memory mapping: a frame of the column, the
// bit mask of positions in use, and the logical config bit index carried by
// each used position, in mask order.
type Frame struct {
	Name     string
	Index    int
	BitsUsed int
	Mask     string // one char per frame bit, '1' = used, no separators
	Ranges   []int  // logical config bit per set mask position
}

// Allocate builds the default mapping for a tile that needs the given number
// of config bits. Bits are packed from the highest logical index down,
// filling frame 0 first, mask positions left to right. Every frame of the
// column gets an entry, unused frames with an all-zero mask.
func Allocate(tileName string, frameBitsPerRow, maxFramesPerCol, requiredBits int) ([]Frame, error) {
	capacity := frameBitsPerRow * maxFramesPerCol
	if requiredBits > capacity {
		return nil, &fault.CapacityError{Tile: tileName, Required: requiredBits, Capacity: capacity}
	}

	frames := make([]Frame, maxFramesPerCol)
	next := requiredBits - 1
	for k := range frames {
		f := &frames[k]
		f.Name = fmt.Sprintf("frame%d", k)
		f.Index = k

		var mask strings.Builder
		for j := 0; j < frameBitsPerRow; j++ {
			if next-j >= 0 {
				mask.WriteByte('1')
				f.Ranges = append(f.Ranges, next-j)
				f.BitsUsed++
			} else {
				mask.WriteByte('0')
			}
		}
		f.Mask = mask.String()
		next -= frameBitsPerRow
	}
	return frames, nil
}

// BitAddress is a physical position in a tile's config memory column.
type BitAddress struct {
	Frame int
	Bit   int
}

// AddressTable inverts a mapping into logical-index order: table[i] is the
// physical address of config bit i. Frame bit numbering is mask-reversed,
// so mask position 0 is the frame's highest bit.
func AddressTable(frames []Frame, frameBitsPerRow, globalBits int) []BitAddress {
	table := make([]BitAddress, globalBits)
	for _, f := range frames {
		p := 0
		for pos := 0; pos < len(f.Mask); pos++ {
			if f.Mask[pos] != '1' {
				continue
			}
			table[f.Ranges[p]] = BitAddress{Frame: f.Index, Bit: frameBitsPerRow - 1 - pos}
			p++
		}
	}
	return table
}

const header = "frame_name,frame_index,bits_used_in_frame,used_bits_mask,ConfigBits_ranges"

// WriteCSV writes the mapping in the sidecar CSV form. Masks are grouped in
// blocks of four for readability; contiguous ranges collapse to hi:lo.
func WriteCSV(path string, frames []Frame) error {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteByte('\n')
	for _, f := range frames {
		fmt.Fprintf(&sb, "%s,%d,%d,%s,%s\n",
			f.Name, f.Index, f.BitsUsed, groupMask(f.Mask), rangesString(f.Ranges))
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

func groupMask(mask string) string {
	var sb strings.Builder
	for i := 0; i < len(mask); i++ {
		if i > 0 && i%4 == 0 {
			sb.WriteByte('_')
		}
		sb.WriteByte(mask[i])
	}
	return sb.String()
}

func rangesString(ranges []int) string {
	switch {
	case len(ranges) == 0:
		return "#NULL"
	case len(ranges) == 1:
		return strconv.Itoa(ranges[0])
	}
	contiguous := true
	step := 1
	if ranges[0] > ranges[len(ranges)-1] {
		step = -1
	}
	for i := 1; i < len(ranges); i++ {
		if ranges[i] != ranges[i-1]+step {
			contiguous = false
			break
		}
	}
	if contiguous {
		return fmt.Sprintf("%d:%d", ranges[0], ranges[len(ranges)-1])
	}
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ";")
}

// ParseCSV reads a mapping sidecar back and validates it against the
// fabric geometry and the tile's config bit count: one entry per frame,
// masks exactly one frame wide, total popcount matching globalBits, and
// every logical index allocated exactly once.
func ParseCSV(path string, maxFramesPerCol, frameBitsPerRow, globalBits int) ([]Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &fault.ParseError{File: path, Msg: "cannot read config memory file", Err: err}
	}

	var rows [][]string
	var lineNos []int
	for n, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		cells := strings.Split(line, ",")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, cells)
		lineNos = append(lineNos, n+1)
	}
	if len(rows) == 0 || strings.Join(rows[0], ",") != header {
		return nil, fault.Parsef(path, 1, "missing config memory header")
	}
	rows = rows[1:]
	lineNos = lineNos[1:]

	if len(rows) != maxFramesPerCol {
		return nil, fault.Consistencyf(path,
			"mapping has %d frame entries, fabric has %d frames per column",
			len(rows), maxFramesPerCol)
	}

	frames := make([]Frame, 0, len(rows))
	totalUsed := 0
	seen := make(map[int]bool)
	for i, row := range rows {
		line := lineNos[i]
		if len(row) != 5 {
			return nil, fault.Parsef(path, line, "expected 5 fields, got %d", len(row))
		}
		f := Frame{Name: row[0]}
		if f.Index, err = strconv.Atoi(row[1]); err != nil {
			return nil, fault.Parsef(path, line, "bad frame index %q", row[1])
		}
		declaredUsed, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fault.Parsef(path, line, "bad bits_used_in_frame %q", row[2])
		}
		f.Mask = strings.ReplaceAll(row[3], "_", "")
		if len(f.Mask) != frameBitsPerRow {
			return nil, fault.Consistencyf(path,
				"frame %s: mask is %d bits wide, frame is %d", f.Name, len(f.Mask), frameBitsPerRow)
		}
		f.BitsUsed = strings.Count(f.Mask, "1")
		if f.BitsUsed != declaredUsed {
			return nil, fault.Consistencyf(path,
				"frame %s: mask has %d bits set, entry declares %d", f.Name, f.BitsUsed, declaredUsed)
		}
		totalUsed += f.BitsUsed

		f.Ranges, err = parseRanges(row[4])
		if err != nil {
			return nil, fault.Parsef(path, line, "frame %s: %v", f.Name, err)
		}
		if len(f.Ranges) != f.BitsUsed {
			return nil, fault.Consistencyf(path,
				"frame %s: %d config bits in range, mask uses %d", f.Name, len(f.Ranges), f.BitsUsed)
		}
		for _, r := range f.Ranges {
			if r < 0 {
				return nil, fault.Consistencyf(path, "frame %s: negative config bit index %d", f.Name, r)
			}
			if r >= globalBits {
				return nil, fault.Consistencyf(path,
					"frame %s: config bit index %d out of range, tile has %d config bits", f.Name, r, globalBits)
			}
			if seen[r] {
				return nil, fault.Consistencyf(path,
					"frame %s: config bit index %d already allocated", f.Name, r)
			}
			seen[r] = true
		}
		frames = append(frames, f)
	}
	if totalUsed != globalBits {
		return nil, fault.Consistencyf(path,
			"mapping allocates %d bits in total, tile has %d config bits", totalUsed, globalBits)
	}
	return frames, nil
}

func parseRanges(ranges string) ([]int, error) {
	ranges = strings.ReplaceAll(ranges, " ", "")
	ranges = strings.ReplaceAll(ranges, "\t", "")
	switch {
	case strings.Contains(ranges, "NULL"):
		return nil, nil
	case strings.Contains(ranges, ":"):
		parts := strings.SplitN(ranges, ":", 2)
		hi, err1 := strconv.Atoi(parts[0])
		lo, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("bad range %q", ranges)
		}
		step := 1
		if lo < hi {
			step = -1
		}
		var out []int
		for i := hi; ; i += step {
			out = append(out, i)
			if i == lo {
				break
			}
		}
		return out, nil
	case strings.Contains(ranges, ";"):
		var out []int
		for _, item := range strings.Split(ranges, ";") {
			v, err := strconv.Atoi(item)
			if err != nil {
				return nil, fmt.Errorf("bad range entry %q", item)
			}
			out = append(out, v)
		}
		return out, nil
	default:
		v, err := strconv.Atoi(ranges)
		if err != nil {
			return nil, fmt.Errorf("range %q is neither hi:lo, a ;-list, a single index, nor NULL", ranges)
		}
		return []int{v}, nil
	}
}
