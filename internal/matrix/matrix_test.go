package matrix

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseList(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "clb.list", `
# routing for the CLB
N1END[0|1],J_BEG[0|1]
E1END0,J_BEG0   # tap
E1END0,J_BEG0   # duplicate, dropped
`)

	pairs, err := ParseList(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []Pair{
		{"N1END0", "J_BEG0"},
		{"N1END1", "J_BEG1"},
		{"E1END0", "J_BEG0"},
	}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}
}

func TestParseListInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.list", "GND{2},J[0|1]\n")
	path := writeFile(t, dir, "top.list", "A,B\nINCLUDE,shared.list\n")

	pairs, err := ParseList(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []Pair{{"A", "B"}, {"GND", "J0"}, {"GND", "J1"}}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}
}

func TestParseListErrors(t *testing.T) {
	dir := t.TempDir()

	bad := writeFile(t, dir, "arity.list", "A,B,C\n")
	if _, err := ParseList(bad); err == nil || !strings.Contains(err.Error(), "arity.list:1") {
		t.Errorf("arity error missing file/line: %v", err)
	}

	bad = writeFile(t, dir, "mismatch.list", "A[0|1|2],B[0|1]\n")
	if _, err := ParseList(bad); err == nil || !strings.Contains(err.Error(), "mismatch.list:1") {
		t.Errorf("expansion mismatch missing file/line: %v", err)
	}
}

func TestGroupViews(t *testing.T) {
	pairs := []Pair{{"A", "X"}, {"B", "X"}, {"A", "Y"}}

	bySink := GroupBySink(pairs)
	if !reflect.DeepEqual(bySink.Keys(), []string{"X", "Y"}) {
		t.Errorf("sink keys = %v", bySink.Keys())
	}
	if !reflect.DeepEqual(bySink.Members("X"), []string{"A", "B"}) {
		t.Errorf("X sources = %v", bySink.Members("X"))
	}

	bySource := GroupBySource(pairs)
	if !reflect.DeepEqual(bySource.Keys(), []string{"A", "B"}) {
		t.Errorf("source keys = %v", bySource.Keys())
	}
	if bySource.PairCount() != 3 {
		t.Errorf("PairCount = %d, want 3", bySource.PairCount())
	}
}

func TestParseCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "CLB_matrix.csv", `CLB,N1END0,N1END1,AB_O0
J_BEG0,1,0,1
J_BEG1,0,1,0
`)

	m, err := ParseCSV(path, "CLB")
	if err != nil {
		t.Fatal(err)
	}
	conn := m.Connectivity()
	if !reflect.DeepEqual(conn.Keys(), []string{"J_BEG0", "J_BEG1"}) {
		t.Errorf("sinks = %v", conn.Keys())
	}
	if !reflect.DeepEqual(conn.Members("J_BEG0"), []string{"N1END0", "AB_O0"}) {
		t.Errorf("J_BEG0 sources = %v", conn.Members("J_BEG0"))
	}
	if conn.PairCount() != 3 {
		t.Errorf("PairCount = %d, want 3", conn.PairCount())
	}

	if _, err := ParseCSV(path, "DSP"); err == nil {
		t.Error("header mismatch not detected")
	}
}

func TestMergeUnknownName(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "bad.list", "NOPE,J_BEG0\n")
	m := NewBlank("CLB", []string{"N1END0"}, []string{"J_BEG0"})

	err := Merge(list, m)
	if err == nil || !strings.Contains(err.Error(), "NOPE") {
		t.Errorf("unknown source not reported: %v", err)
	}
}

// A dense matrix exported to pairs and merged into a fresh blank matrix must
// reproduce the original flag grid exactly.
func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := writeFile(t, dir, "CLB_matrix.csv", `CLB,N1END0,N1END1,GND
A_I0,1,0,1
A_I1,0,1,0
OUT0,1,1,1
`)

	m, err := ParseCSV(original, "CLB")
	if err != nil {
		t.Fatal(err)
	}
	list := filepath.Join(dir, "CLB.list")
	if err := m.WriteList(list); err != nil {
		t.Fatal(err)
	}

	fresh := NewBlank("CLB", m.Sources(), m.Sinks())
	if err := Merge(list, fresh); err != nil {
		t.Fatal(err)
	}

	for _, src := range m.Sources() {
		for _, snk := range m.Sinks() {
			if m.Flag(src, snk) != fresh.Flag(src, snk) {
				t.Fatalf("flag (%s,%s) differs after round trip", src, snk)
			}
		}
	}
}

func TestWriteCSVCounts(t *testing.T) {
	dir := t.TempDir()
	m := NewBlank("CLB", []string{"A", "B"}, []string{"X", "Y"})
	if _, err := m.Set("A", "X"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Set("B", "X"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "out.csv")
	if err := m.WriteCSV(path, true); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "CLB,A,B" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "X,1,1,#,2" {
		t.Errorf("row X = %q", lines[1])
	}
	if lines[2] != "Y,0,0,#,0" {
		t.Errorf("row Y = %q", lines[2])
	}
	if lines[len(lines)-1] != "#,1,1" {
		t.Errorf("summary row = %q", lines[len(lines)-1])
	}

	// The annotated file must load back to the same grid.
	back, err := ParseCSV(path, "CLB")
	if err != nil {
		t.Fatal(err)
	}
	if !back.Flag("A", "X") || back.Flag("A", "Y") {
		t.Error("reloaded matrix lost or gained flags")
	}
}
