package configmem

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/openfpga-tools/fabgen/internal/fault"
)

func TestAllocateSingleBit(t *testing.T) {
	frames, err := Allocate("CLB", 4, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	f := frames[0]
	if f.Name != "frame0" || f.Index != 0 || f.BitsUsed != 1 {
		t.Errorf("frame = %+v", f)
	}
	if f.Mask != "1000" {
		t.Errorf("mask = %q, want 1000", f.Mask)
	}
	if !reflect.DeepEqual(f.Ranges, []int{0}) {
		t.Errorf("ranges = %v, want [0]", f.Ranges)
	}
}

func TestAllocatePacksHighFirst(t *testing.T) {
	frames, err := Allocate("CLB", 32, 4, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 4 {
		t.Fatalf("got %d frames, want 4", len(frames))
	}
	if frames[0].BitsUsed != 32 || frames[0].Ranges[0] != 99 || frames[0].Ranges[31] != 68 {
		t.Errorf("frame0 = %+v", frames[0])
	}
	// 100 = 3*32 + 4: the last frame gets the remainder, left-aligned.
	last := frames[3]
	if last.BitsUsed != 4 {
		t.Errorf("frame3 uses %d bits, want 4", last.BitsUsed)
	}
	if !strings.HasPrefix(last.Mask, "1111") || strings.Count(last.Mask, "1") != 4 {
		t.Errorf("frame3 mask = %q", last.Mask)
	}
	if !reflect.DeepEqual(last.Ranges, []int{3, 2, 1, 0}) {
		t.Errorf("frame3 ranges = %v", last.Ranges)
	}
}

func TestAllocateZeroBits(t *testing.T) {
	frames, err := Allocate("TERM", 32, 4, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 4 {
		t.Fatalf("got %d frames, want 4", len(frames))
	}
	for _, f := range frames {
		if f.BitsUsed != 0 || strings.Contains(f.Mask, "1") || f.Ranges != nil {
			t.Errorf("frame %s not empty: %+v", f.Name, f)
		}
	}
}

func TestAllocateOverCapacity(t *testing.T) {
	_, err := Allocate("DSP", 32, 4, 200)
	var ce *fault.CapacityError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CapacityError", err)
	}
	if ce.Tile != "DSP" || ce.Required != 200 || ce.Capacity != 128 {
		t.Errorf("capacity error = %+v", ce)
	}
}

func TestAddressTable(t *testing.T) {
	frames, err := Allocate("CLB", 4, 2, 6)
	if err != nil {
		t.Fatal(err)
	}
	table := AddressTable(frames, 4, 6)

	// Config bit 5 fills frame 0 first, from the frame's top bit down.
	want := []BitAddress{
		{Frame: 1, Bit: 2}, // index 0
		{Frame: 1, Bit: 3}, // index 1
		{Frame: 0, Bit: 0}, // index 2
		{Frame: 0, Bit: 1}, // index 3
		{Frame: 0, Bit: 2}, // index 4
		{Frame: 0, Bit: 3}, // index 5
	}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("table = %v, want %v", table, want)
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CLB_ConfigMem.csv")

	frames, err := Allocate("CLB", 8, 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteCSV(path, frames); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[1] != "frame0,0,8,1111_1111,9:2" {
		t.Errorf("frame0 line = %q", lines[1])
	}
	if lines[2] != "frame1,1,2,1100_0000,1:0" {
		t.Errorf("frame1 line = %q", lines[2])
	}
	if lines[3] != "frame2,2,0,0000_0000,#NULL" {
		t.Errorf("frame2 line = %q", lines[3])
	}

	back, err := ParseCSV(path, 3, 8, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, frames) {
		t.Errorf("round trip differs:\n got %+v\nwant %+v", back, frames)
	}
}

func TestParseCSVListRanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.csv")
	content := header + "\n" +
		"frame0,0,3,1011,2;0;1\n" +
		"frame1,1,0,0000,#NULL\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	frames, err := ParseCSV(path, 2, 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(frames[0].Ranges, []int{2, 0, 1}) {
		t.Errorf("ranges = %v", frames[0].Ranges)
	}

	table := AddressTable(frames, 4, 3)
	want := []BitAddress{
		{Frame: 0, Bit: 1}, // index 0 sits at the second set mask position
		{Frame: 0, Bit: 0},
		{Frame: 0, Bit: 3},
	}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("table = %v, want %v", table, want)
	}
}

func TestParseCSVValidation(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(header+"\n"+body), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"entry-count", "frame0,0,1,1000,0\n", "2 frames per column"},
		{"mask-width", "frame0,0,1,10000,0\nframe1,1,0,0000,#NULL\n", "mask is 5 bits"},
		{"popcount", "frame0,0,2,1000,0\nframe1,1,0,0000,#NULL\n", "declares 2"},
		{"total", "frame0,0,1,1000,0\nframe1,1,0,0000,#NULL\n", "tile has 2 config bits"},
		{"range-arity", "frame0,0,2,1100,0\nframe1,1,0,0000,#NULL\n", "1 config bits in range"},
		{"duplicate", "frame0,0,1,1000,0\nframe1,1,1,1000,0\n", "already allocated"},
		{"negative", "frame0,0,2,1100,0;-1\nframe1,1,0,0000,#NULL\n", "negative"},
		{"out-of-range", "frame0,0,2,1100,2;0\nframe1,1,0,0000,#NULL\n", "index 2 out of range"},
		{"format", "frame0,0,1,1000,seven\nframe1,1,0,0000,#NULL\n", "neither"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			globalBits := 2
			if tt.name == "entry-count" || tt.name == "mask-width" {
				globalBits = 1
			}
			if tt.name == "total" {
				globalBits = 2
			}
			_, err := ParseCSV(write(tt.name+".csv", tt.body), 2, 4, globalBits)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}
