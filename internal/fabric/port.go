package fabric

import (
	"fmt"

	"github.com/openfpga-tools/fabgen/internal/fault"
)

// Direction is the routing direction of a port's wires. Jump wires stay
// inside the tile.
type Direction int

const (
	North Direction = iota
	South
	East
	West
	Jump
)

var directionNames = map[Direction]string{
	North: "NORTH", South: "SOUTH", East: "EAST", West: "WEST", Jump: "JUMP",
}

func (d Direction) String() string { return directionNames[d] }

// ParseDirection maps a tile CSV keyword to a Direction.
func ParseDirection(s string) (Direction, bool) {
	for d, name := range directionNames {
		if s == name {
			return d, true
		}
	}
	return 0, false
}

// IO is the data direction of a port or BEL pin as seen from the tile's
// switch matrix.
type IO int

const (
	Input IO = iota
	Output
	Inout
)

func (io IO) String() string {
	switch io {
	case Input:
		return "INPUT"
	case Output:
		return "OUTPUT"
	default:
		return "INOUT"
	}
}

// Side is where a port physically sits on the tile. A northbound wire's
// input sits on the south side.
type Side int

const (
	SideNorth Side = iota
	SideSouth
	SideEast
	SideWest
	SideAny
)

func (s Side) String() string {
	switch s {
	case SideNorth:
		return "NORTH"
	case SideSouth:
		return "SOUTH"
	case SideEast:
		return "EAST"
	case SideWest:
		return "WEST"
	default:
		return "ANY"
	}
}

func oppositeSide(d Direction) Side {
	switch d {
	case North:
		return SideSouth
	case South:
		return SideNorth
	case East:
		return SideWest
	case West:
		return SideEast
	default:
		return SideAny
	}
}

func sameSide(d Direction) Side {
	switch d {
	case North:
		return SideNorth
	case South:
		return SideSouth
	case East:
		return SideEast
	case West:
		return SideWest
	default:
		return SideAny
	}
}

// Port is one endpoint of a directional wire bundle declared by a tile CSV
// port line. The name "NULL" on either end marks a termination.
type Port struct {
	Direction   Direction
	Source      string
	XOffset     int
	YOffset     int
	Destination string
	WireCount   int
	Name        string
	IO          IO
	Side        Side
}

// SwitchMatrixRange is the number of wires of this bundle that connect to
// the switch matrix. Terminated bundles (NULL on one end) absorb the whole
// cascade, so all span*count wires land in the matrix.
func (p Port) SwitchMatrixRange() int {
	if p.Source == "NULL" || p.Destination == "NULL" {
		return (abs(p.XOffset) + abs(p.YOffset)) * p.WireCount
	}
	return p.WireCount
}

// ExpandSwitchMatrix returns the per-wire signal names of this bundle as
// connected to the switch matrix: the outgoing ends (the line's source
// field, driven by the matrix) and the arriving ends (the destination
// field, driving into it). A NULL end contributes no names.
func (p Port) ExpandSwitchMatrix() (outgoing, arriving []string) {
	for i := 0; i < p.SwitchMatrixRange(); i++ {
		if p.Source != "NULL" {
			outgoing = append(outgoing, fmt.Sprintf("%s%d", p.Source, i))
		}
		if p.Destination != "NULL" {
			arriving = append(arriving, fmt.Sprintf("%s%d", p.Destination, i))
		}
	}
	return outgoing, arriving
}

// Wire is one physical inter-tile (or in-tile, for jump) link. Offsets are
// relative to the owning tile and always span at most one tile; longer
// declared bundles are broken into cascades of unit wires at load time.
type Wire struct {
	Direction   Direction
	Source      string
	XOffset     int
	YOffset     int
	Destination string
}

// WirePair is a (source,destination) base-name pair shared by every
// instance of a port line, used to name the far end of terminated bundles.
type WirePair struct {
	Source      string
	Destination string
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v int) int {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}

// deriveWires breaks a tile's port bundles into unit-length wires. Adjacent
// bundles map one to one; longer bundles become cascades with in-tile jump
// stitches carrying the signal between hops; terminated bundles take their
// far-end name from the fabric's common wire pairs.
func deriveWires(ports []Port, commonPairs map[string]string) []Wire {
	var wires []Wire
	for _, p := range ports {
		if p.IO != Output {
			continue
		}
		switch {
		case p.Source == "NULL":
			// nothing leaves the tile
		case p.Destination == "NULL":
			destName := p.Source
			if d, ok := commonPairs[p.Source]; ok {
				destName = d
			}
			wires = append(wires, terminatedWires(p, destName)...)
		case abs(p.XOffset) <= 1 && abs(p.YOffset) <= 1:
			for i := 0; i < p.WireCount; i++ {
				wires = append(wires, Wire{
					Direction:   p.Direction,
					Source:      fmt.Sprintf("%s%d", p.Source, i),
					XOffset:     p.XOffset,
					YOffset:     p.YOffset,
					Destination: fmt.Sprintf("%s%d", p.Destination, i),
				})
			}
		default:
			wires = append(wires, cascadedWires(p)...)
		}
	}
	return dedupWires(wires)
}

// cascadedWires spreads a multi-tile bundle over unit hops. Wire i of the
// bundle enters the next tile as wire i of the cascade's tail slice; a jump
// stitch inside the tile moves arriving wires onto the outgoing tail.
func cascadedWires(p Port) []Wire {
	var wires []Wire
	for _, axis := range []struct {
		offset, otherOffset int
		clampX              bool
	}{
		{p.XOffset, p.YOffset, true},
		{p.YOffset, p.XOffset, false},
	} {
		span := abs(axis.offset)
		step := clamp(axis.offset)
		for i := 0; i < p.WireCount*span; i++ {
			cascaded := i - p.WireCount
			if i < p.WireCount {
				cascaded = i + p.WireCount*(span-1)
			} else {
				wires = append(wires, Wire{
					Direction:   Jump,
					Source:      fmt.Sprintf("%s%d", p.Destination, i),
					Destination: fmt.Sprintf("%s%d", p.Source, i),
				})
			}
			w := Wire{
				Direction:   p.Direction,
				Source:      fmt.Sprintf("%s%d", p.Source, i),
				Destination: fmt.Sprintf("%s%d", p.Destination, cascaded),
			}
			if axis.clampX {
				w.XOffset, w.YOffset = step, axis.otherOffset
			} else {
				w.XOffset, w.YOffset = axis.otherOffset, step
			}
			wires = append(wires, w)
		}
	}
	return wires
}

func terminatedWires(p Port, destName string) []Wire {
	var wires []Wire
	for _, axis := range []struct {
		offset, otherOffset int
		clampX              bool
	}{
		{p.XOffset, p.YOffset, true},
		{p.YOffset, p.XOffset, false},
	} {
		span := abs(axis.offset)
		step := clamp(axis.offset)
		for i := 0; i < p.WireCount*span; i++ {
			w := Wire{
				Direction:   p.Direction,
				Source:      fmt.Sprintf("%s%d", p.Source, i),
				Destination: fmt.Sprintf("%s%d", destName, i),
			}
			if axis.clampX {
				w.XOffset, w.YOffset = step, axis.otherOffset
			} else {
				w.XOffset, w.YOffset = axis.otherOffset, step
			}
			wires = append(wires, w)
		}
	}
	return wires
}

func dedupWires(wires []Wire) []Wire {
	seen := make(map[Wire]bool, len(wires))
	out := wires[:0]
	for _, w := range wires {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// parsePortLine turns one DIRECTION,source,dx,dy,dest,wires CSV line into
// the pair of ports it declares: the outgoing end on the line's side and
// the incoming end on the opposite side.
func parsePortLine(file string, lineNo int, cells []string) ([2]Port, error) {
	var ports [2]Port
	if len(cells) < 6 {
		return ports, fault.Parsef(file, lineNo, "port line needs 6 fields, got %d", len(cells))
	}
	dir, ok := ParseDirection(cells[0])
	if !ok {
		return ports, fault.Parsef(file, lineNo, "unknown port direction %q", cells[0])
	}
	var dx, dy, count int
	if _, err := fmt.Sscanf(cells[2], "%d", &dx); err != nil {
		return ports, fault.Parsef(file, lineNo, "bad X-offset %q", cells[2])
	}
	if _, err := fmt.Sscanf(cells[3], "%d", &dy); err != nil {
		return ports, fault.Parsef(file, lineNo, "bad Y-offset %q", cells[3])
	}
	if _, err := fmt.Sscanf(cells[5], "%d", &count); err != nil {
		return ports, fault.Parsef(file, lineNo, "bad wire count %q", cells[5])
	}

	base := Port{
		Direction:   dir,
		Source:      cells[1],
		XOffset:     dx,
		YOffset:     dy,
		Destination: cells[4],
		WireCount:   count,
	}
	out := base
	out.Name, out.IO, out.Side = base.Source, Output, sameSide(dir)
	in := base
	in.Name, in.IO, in.Side = base.Destination, Input, oppositeSide(dir)
	ports[0], ports[1] = out, in
	return ports, nil
}
