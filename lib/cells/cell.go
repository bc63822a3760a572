/*package cells contains the flat array of top-level cells that covers the
simulation volume. Zoom cells come first, followed by background cells, so a
single offset separates the two levels:

    [0, Offset)                    zoom cells
    [Offset, Offset + NrBkgCells)  background cells

Cells refer to one another by index into this array.
*/
package cells

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/phil-mansfield/zoomgrid/lib/geom"
)

// Kind is the role of a top-level cell.
type Kind uint8

const (
	// Background cells are part of the coarse grid.
	Background Kind = iota
	// Neighbour cells are background cells which are close enough to the
	// zoom region to interact with zoom cells directly.
	Neighbour
	// Void is the single background cell which contains the zoom region.
	// It never holds particles itself.
	Void
	// Zoom cells are part of the fine grid inside the void cell.
	Zoom
)

func (k Kind) String() string {
	switch k {
	case Background: return "background"
	case Neighbour: return "neighbour"
	case Void: return "void"
	case Zoom: return "zoom"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsBkg returns true for every kind which lives on the background grid.
func (k Kind) IsBkg() bool { return k != Zoom }

// Counts is the number of particles of each type in a cell. Grav counts
// every particle.
type Counts struct {
	Hydro, Grav, Stars, Sinks, BlackHoles int
}

// Multipole is a summary of the mass in a cell used by the multipole
// acceptance criterion.
type Multipole struct {
	CoM r3.Vec
	// RMax is the largest distance between CoM and any particle in the cell.
	RMax float64
	Mass float64
	// Ready is false until the multipole has been computed (for local cells)
	// or received from its owner (for foreign cells).
	Ready bool
}

// Cell is a top-level cell.
type Cell struct {
	Loc, Width r3.Vec
	Kind Kind
	Counts Counts
	// Node is the rank which owns the cell.
	Node int
	// DMin is the smallest width that the cell can be split down to.
	DMin float64
	// Parent is the background cell which contains this cell. Background
	// cells are their own parents.
	Parent int
	Top, Super int
	NrZoomPerBkgCells int
	// SendTo has bit i set if the cell is sent to proxy i.
	SendTo *bitset.BitSet
}

// Cuboid returns the region of space covered by the cell.
func (c *Cell) Cuboid() geom.Cuboid { return geom.Cuboid{ Loc: c.Loc, Width: c.Width } }

// Center returns the centre of the cell.
func (c *Cell) Center() r3.Vec { return c.Cuboid().Center() }
