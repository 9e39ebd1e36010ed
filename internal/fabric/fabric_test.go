package fabric

import (
	"os"
	"path/filepath"
	"reflect"
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

// writeFixture lays out a small two-tile fabric: a logic tile with one BEL
// and a termination tile, 2x2 grid with one empty cell.
func writeFixture(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()

	writeFile(t, dir, "LUT.csv", `
INPUT,L_I[0|1]
OUTPUT,L_O0
EXTERNAL_OUTPUT,PAD
FEATURE,INIT
FEATURE,FF
USER_CLK
`)
	writeFile(t, dir, "CLB_switch_matrix.list", `
N1END0,A_L_I0
N1END1,A_L_I1
A_L_O0,N1BEG0
`)
	writeFile(t, dir, "CLB.csv", `
TILE,CLB
# direction,source,dx,dy,destination,wires
NORTH,N1BEG,0,1,N1END,2
JUMP,J_l,0,0,J_d,1
BEL,LUT.csv,A_
MATRIX,CLB_switch_matrix.list
EndTILE
`)
	writeFile(t, dir, "TERM.csv", `
TILE,TERM
NORTH,NULL,0,1,N1END,2
EndTILE
`)
	writeFile(t, dir, "fabric.csv", `
FabricBegin
TERM,TERM
CLB,Null
FabricEnd
ParametersBegin
Name,demo
Tile,CLB.csv
Tile,TERM.csv
FrameBitsPerRow,8
MaxFramesPerCol,2
ParametersEnd
`)
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeFixture(t)
	fab, err := Load(filepath.Join(dir, "fabric.csv"))
	if err != nil {
		t.Fatal(err)
	}

	if fab.Name() != "demo" || fab.Rows() != 2 || fab.Cols() != 2 {
		t.Errorf("fabric = %s %dx%d", fab.Name(), fab.Cols(), fab.Rows())
	}
	if fab.FrameBitsPerRow() != 8 || fab.MaxFramesPerCol() != 2 {
		t.Errorf("geometry = %d/%d", fab.FrameBitsPerRow(), fab.MaxFramesPerCol())
	}
	if tile := fab.TileAt(0, 1); tile == nil || tile.Name() != "CLB" {
		t.Errorf("TileAt(0,1) = %v", tile)
	}
	if fab.TileAt(1, 1) != nil {
		t.Error("empty cell not nil")
	}
	if fab.TileAt(-1, 0) != nil || fab.TileAt(5, 0) != nil {
		t.Error("out-of-grid lookup not nil")
	}
	if !reflect.DeepEqual(fab.TileNames(), []string{"TERM", "CLB"}) {
		t.Errorf("tile names = %v", fab.TileNames())
	}
}

func TestTileConfigBits(t *testing.T) {
	dir := writeFixture(t)
	fab, err := Load(filepath.Join(dir, "fabric.csv"))
	if err != nil {
		t.Fatal(err)
	}
	clb, _ := fab.Tile("CLB")

	// 3 matrix crossings plus 2 BEL features.
	if clb.MatrixBits() != 3 {
		t.Errorf("matrix bits = %d, want 3", clb.MatrixBits())
	}
	if clb.ConfigBits() != 5 {
		t.Errorf("config bits = %d, want 5", clb.ConfigBits())
	}
	if !clb.WithUserCLK() {
		t.Error("user clock flag lost")
	}
	term, _ := fab.Tile("TERM")
	if term.ConfigBits() != 0 {
		t.Errorf("TERM config bits = %d, want 0", term.ConfigBits())
	}
}

func TestSwitchMatrixAxes(t *testing.T) {
	dir := writeFixture(t)
	fab, err := Load(filepath.Join(dir, "fabric.csv"))
	if err != nil {
		t.Fatal(err)
	}
	clb, _ := fab.Tile("CLB")
	sources, sinks := clb.SwitchMatrixAxes()

	// Ordinary wires, then BEL pins, then jump wires. Sinks are what the
	// matrix drives, sources what can drive them.
	wantSinks := []string{"N1BEG0", "N1BEG1", "A_L_I0", "A_L_I1", "J_l0"}
	wantSources := []string{"N1END0", "N1END1", "A_L_O0", "PAD", "J_d0"}
	if !reflect.DeepEqual(sources, wantSources) {
		t.Errorf("sources = %v, want %v", sources, wantSources)
	}
	if !reflect.DeepEqual(sinks, wantSinks) {
		t.Errorf("sinks = %v, want %v", sinks, wantSinks)
	}
}

func TestWireDerivation(t *testing.T) {
	dir := writeFixture(t)
	fab, err := Load(filepath.Join(dir, "fabric.csv"))
	if err != nil {
		t.Fatal(err)
	}

	clb, _ := fab.Tile("CLB")
	wires := clb.Wires()
	want := []Wire{
		{Direction: North, Source: "N1BEG0", YOffset: 1, Destination: "N1END0"},
		{Direction: North, Source: "N1BEG1", YOffset: 1, Destination: "N1END1"},
		{Direction: Jump, Source: "J_l0", Destination: "J_d0"},
	}
	if !reflect.DeepEqual(wires, want) {
		t.Errorf("CLB wires = %v, want %v", wires, want)
	}

	// The termination tile has a NULL source, so nothing leaves it.
	term, _ := fab.Tile("TERM")
	if len(term.Wires()) != 0 {
		t.Errorf("TERM wires = %v, want none", term.Wires())
	}

	// Jump bundles contribute pairs too; only NULL ends are filtered.
	wantPairs := []WirePair{
		{Source: "N1BEG", Destination: "N1END"},
		{Source: "J_l", Destination: "J_d"},
	}
	if !reflect.DeepEqual(fab.CommonWirePairs(), wantPairs) {
		t.Errorf("common pairs = %v, want %v", fab.CommonWirePairs(), wantPairs)
	}
}

func TestCascadedWires(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "HOP.csv", `
TILE,HOP
EAST,E2BEG,2,0,E2END,1
EndTILE
`)
	writeFile(t, dir, "fabric.csv", `
FabricBegin
HOP,HOP,HOP
FabricEnd
ParametersBegin
Tile,HOP.csv
ParametersEnd
`)
	fab, err := Load(filepath.Join(dir, "fabric.csv"))
	if err != nil {
		t.Fatal(err)
	}
	hop, _ := fab.Tile("HOP")

	// A span-2 single-wire bundle becomes two unit hops plus an in-tile
	// jump stitch moving the arriving wire onto the outgoing tail.
	want := []Wire{
		{Direction: East, Source: "E2BEG0", XOffset: 1, Destination: "E2END1"},
		{Direction: Jump, Source: "E2END1", Destination: "E2BEG1"},
		{Direction: East, Source: "E2BEG1", XOffset: 1, Destination: "E2END0"},
	}
	if !reflect.DeepEqual(hop.Wires(), want) {
		t.Errorf("wires = %v, want %v", hop.Wires(), want)
	}
}

func TestTerminatedBundleExpansion(t *testing.T) {
	p := Port{
		Direction: North, Source: "N2END", XOffset: 0, YOffset: -2,
		Destination: "NULL", WireCount: 2, Name: "N2END", IO: Output, Side: SideNorth,
	}
	// Terminated bundles absorb the whole cascade into the matrix.
	if got := p.SwitchMatrixRange(); got != 4 {
		t.Errorf("range = %d, want 4", got)
	}
	outgoing, arriving := p.ExpandSwitchMatrix()
	if !reflect.DeepEqual(outgoing, []string{"N2END0", "N2END1", "N2END2", "N2END3"}) {
		t.Errorf("outgoing = %v", outgoing)
	}
	if arriving != nil {
		t.Errorf("arriving = %v, want none", arriving)
	}
}

func TestSuperTiles(t *testing.T) {
	dir := writeFixture(t)
	writeFile(t, dir, "super.csv", `
SuperTILE,DSP
CLB
TERM,Null
EndSuperTILE
`)
	content, err := os.ReadFile(filepath.Join(dir, "fabric.csv"))
	if err != nil {
		t.Fatal(err)
	}
	patched := string(content)
	patched = patched[:len(patched)-len("ParametersEnd\n")] + "Supertile,super.csv\nParametersEnd\n"
	writeFile(t, dir, "fabric.csv", patched)

	fab, err := Load(filepath.Join(dir, "fabric.csv"))
	if err != nil {
		t.Fatal(err)
	}
	dsp, ok := fab.SuperTile("DSP")
	if !ok {
		t.Fatal("supertile DSP not found")
	}
	grid := dsp.Grid()
	if len(grid) != 2 || grid[0][0].Name() != "CLB" || grid[1][1] != nil {
		t.Errorf("grid = %v", grid)
	}
	tiles := dsp.Tiles()
	if len(tiles) != 2 || tiles[0].Name() != "CLB" || tiles[1].Name() != "TERM" {
		t.Errorf("member tiles = %v", tiles)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := writeFixture(t)

	tests := []struct {
		name    string
		content string
	}{
		{"unknown-tile", "FabricBegin\nNOPE\nFabricEnd\nParametersBegin\nTile,CLB.csv\nParametersEnd\n"},
		{"no-fabric-section", "ParametersBegin\nTile,CLB.csv\nParametersEnd\n"},
		{"unknown-parameter", "FabricBegin\nCLB\nFabricEnd\nParametersBegin\nTile,CLB.csv\nWidth,4\nParametersEnd\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".csv", tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadTilesErrors(t *testing.T) {
	dir := t.TempDir()

	missingEnd := writeFile(t, dir, "open.csv", "TILE,CLB\nNORTH,N1BEG,0,1,N1END,2\n")
	if _, _, err := LoadTiles(missingEnd); err == nil {
		t.Error("missing EndTILE not detected")
	}

	badKeyword := writeFile(t, dir, "bad.csv", "TILE,CLB\nUPWARD,N1BEG,0,1,N1END,2\nEndTILE\n")
	if _, _, err := LoadTiles(badKeyword); err == nil {
		t.Error("unknown keyword not detected")
	}
}
