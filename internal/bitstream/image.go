package bitstream

import (
	"fmt"

	"github.com/openfpga-tools/fabgen/internal/fault"
)

// TileBits is the configuration capacity of one tile column.
func (s *Spec) TileBits() int {
	return s.MaxFramesPerCol * s.FrameBitsPerRow
}

// ImageSize is the size of the fabric's configuration image in bytes.
func (s *Spec) ImageSize() int {
	totalBits := s.Rows * s.Cols * s.TileBits()
	return (totalBits + 7) / 8
}

// Compile applies feature settings against the spec and returns the
// binary configuration image. The image packs tiles row-major over the
// grid, frames in order within a tile, frame bits MSB-first; unresolved
// bits stay zero. The function is pure: identical inputs always produce
// byte-identical output.
func Compile(settings []Setting, spec *Spec) ([]byte, error) {
	image := make([]byte, spec.ImageSize())
	for _, st := range settings {
		x, y, err := parseCoord(st.Coord)
		if err != nil {
			return nil, err
		}
		if x < 0 || x >= spec.Cols || y < 0 || y >= spec.Rows {
			return nil, &fault.BoundsError{
				Tile: st.Coord, Wire: st.Feature,
				X: x, Y: y, Cols: spec.Cols - 1, Rows: spec.Rows - 1,
			}
		}
		tileName := spec.TileMap[st.Coord]
		ts, ok := spec.Tiles[tileName]
		if !ok {
			return nil, &fault.NameError{
				Name:    st.Coord + "." + st.Feature,
				Context: "bitstream spec (feature not found)",
			}
		}
		loc, ok := ts.Lookup(st.Feature)
		if !ok {
			return nil, &fault.NameError{
				Name:    st.Coord + "." + st.Feature,
				Context: "bitstream spec (feature not found)",
			}
		}

		// A loaded spec is untrusted input: a location outside the tile
		// geometry would land in another tile's bytes.
		if loc.Frame < 0 || loc.Frame >= spec.MaxFramesPerCol ||
			loc.Bit < 0 || loc.Bit >= spec.FrameBitsPerRow {
			return nil, fault.Consistencyf(tileName,
				"feature %s maps to frame %d bit %d, tile geometry is %d frames x %d bits",
				st.Feature, loc.Frame, loc.Bit, spec.MaxFramesPerCol, spec.FrameBitsPerRow)
		}

		tileIdx := y*spec.Cols + x
		bitIdx := tileIdx*spec.TileBits() +
			loc.Frame*spec.FrameBitsPerRow +
			(spec.FrameBitsPerRow - 1 - loc.Bit)
		mask := byte(0x80 >> (bitIdx % 8))
		if st.Value {
			image[bitIdx/8] |= mask
		} else {
			image[bitIdx/8] &^= mask
		}
	}
	return image, nil
}

func parseCoord(coord string) (int, int, error) {
	var x, y int
	if _, err := fmt.Sscanf(coord, "X%dY%d", &x, &y); err != nil {
		return 0, 0, fault.Parsef("", 0, "bad tile coordinate %q", coord)
	}
	return x, y, nil
}
