package cells

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
	"github.com/phil-mansfield/zoomgrid/lib/geom"
	"github.com/phil-mansfield/zoomgrid/lib/zoom"
)

// Hierarchy is the full set of top-level cells.
type Hierarchy struct {
	Props *zoom.Properties
	Domain zoom.Domain
	Cells []Cell
	// Multipoles has one entry per cell if self-gravity is on and is nil
	// otherwise.
	Multipoles []Multipole

	log zerolog.Logger
}

// Construct builds and tags every top-level cell described by props.
// Multipoles are allocated, but not computed, if withGravity is true.
func Construct(
	props *zoom.Properties, dom zoom.Domain, withGravity bool,
	log zerolog.Logger,
) (*Hierarchy, error) {
	h := &Hierarchy{
		Props: props,
		Domain: dom,
		Cells: make([]Cell, props.NrCells()),
		log: log,
	}
	if withGravity { h.Multipoles = make([]Multipole, len(h.Cells)) }

	zoomDMin := math.Min(props.Width.X, math.Min(props.Width.Y, props.Width.Z))
	zg := props.ZoomGrid()
	for cid := 0; cid < props.NrZoomCells; cid++ {
		i, j, k := zg.Coords(cid)
		h.Cells[cid] = Cell{
			Loc: r3.Add(props.RegionBounds.Min, r3.Vec{
				X: float64(i)*props.Width.X,
				Y: float64(j)*props.Width.Y,
				Z: float64(k)*props.Width.Z,
			}),
			Width: props.Width,
			Kind: Zoom,
			DMin: zoomDMin,
			Parent: props.VoidCell,
			Top: cid, Super: cid,
			NrZoomPerBkgCells: props.NrZoomPerBkgCells,
		}
	}

	w := props.BkgWidth
	bkgDMin := math.Min(w.X, math.Min(w.Y, w.Z))
	bg := props.BkgGrid()
	for cid := props.Offset; cid < props.NrCells(); cid++ {
		i, j, k := bg.Coords(cid)
		h.Cells[cid] = Cell{
			Loc: r3.Vec{
				X: float64(i)*w.X, Y: float64(j)*w.Y, Z: float64(k)*w.Z,
			},
			Width: w,
			Kind: Background,
			DMin: bkgDMin,
			Parent: cid,
			Top: cid, Super: cid,
			NrZoomPerBkgCells: props.NrZoomPerBkgCells,
		}
	}

	if props.Enabled { h.Cells[props.VoidCell].Kind = Void }

	return h, nil
}

// Len returns the number of top-level cells.
func (h *Hierarchy) Len() int { return len(h.Cells) }

// Multipole returns the multipole of a cell or nil if self-gravity is off.
func (h *Hierarchy) Multipole(cid int) *Multipole {
	if h.Multipoles == nil { return nil }
	return &h.Multipoles[cid]
}

// CellID returns the index of the top-level cell containing x, which must
// already be inside the box.
func (h *Hierarchy) CellID(x r3.Vec) int {
	p := h.Props
	bi := clamp(int(x.X*p.BkgIWidth.X), p.BkgCDim[0])
	bj := clamp(int(x.Y*p.BkgIWidth.Y), p.BkgCDim[1])
	bk := clamp(int(x.Z*p.BkgIWidth.Z), p.BkgCDim[2])

	if p.Enabled && bi == p.ZoomCellIJK[0] &&
		bj == p.ZoomCellIJK[1] && bk == p.ZoomCellIJK[2] {

		d := r3.Sub(x, p.RegionBounds.Min)
		zi := clamp(int(d.X*p.IWidth.X), p.ZoomCDim[0])
		zj := clamp(int(d.Y*p.IWidth.Y), p.ZoomCDim[1])
		zk := clamp(int(d.Z*p.IWidth.Z), p.ZoomCDim[2])
		return p.ZoomGrid().Idx(zi, zj, zk)
	}

	return p.BkgGrid().Idx(bi, bj, bk)
}

// clamp keeps points sitting exactly on the upper edge of a grid (or nudged
// past it by rounding) inside it.
func clamp(i, n int) int {
	if i < 0 { return 0 }
	if i >= n { return n - 1 }
	return i
}

// CheckKinds checks that every cell has the kind and width that its position
// in the array implies.
func (h *Hierarchy) CheckKinds() error {
	p := h.Props
	voids := 0
	for cid := range h.Cells {
		c := &h.Cells[cid]
		if cid < p.Offset {
			if c.Kind != Zoom {
				return zerr.Consistencyf("Cell %d has kind %s, but is below " +
					"the background offset %d.", cid, c.Kind, p.Offset)
			} else if c.Width != p.Width {
				return zerr.Consistencyf("Zoom cell %d has width %v, but " +
					"zoom cells have width %v.", cid, c.Width, p.Width)
			}
			continue
		}

		if c.Kind == Zoom {
			return zerr.Consistencyf("Cell %d has kind %s, but is above the " +
				"background offset %d.", cid, c.Kind, p.Offset)
		} else if c.Width != p.BkgWidth {
			return zerr.Consistencyf("Background cell %d has width %v, but " +
				"background cells have width %v.", cid, c.Width, p.BkgWidth)
		}
		if c.Kind == Void {
			voids++
			if cid != p.VoidCell {
				return zerr.Consistencyf("Cell %d is void, but the void " +
					"cell is %d.", cid, p.VoidCell)
			}
		}
	}

	expVoids := 0
	if p.Enabled { expVoids = 1 }
	if voids != expVoids {
		return zerr.Consistencyf("Found %d void cells, expected %d.",
			voids, expVoids)
	}

	return nil
}

// MinDist2 returns the squared minimum distance between the particles of
// two cells, using the formula appropriate to whether or not they're on the
// same level.
func (h *Hierarchy) MinDist2(ci, cj int, periodic bool) float64 {
	a, b := &h.Cells[ci], &h.Cells[cj]
	box := h.Domain.Dim()
	if a.Kind.IsBkg() == b.Kind.IsBkg() {
		return geom.MinDist2SameSize(a.Cuboid(), b.Cuboid(), periodic, box)
	}
	return geom.MinDist2DiffSize(a.Cuboid(), b.Cuboid(), periodic, box)
}
