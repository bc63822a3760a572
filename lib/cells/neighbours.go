package cells

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
)

// NeighbourRadius returns the number of background cells around the void
// cell which must be tagged as neighbours for a given opening angle: far
// enough that any pair further away could be handled by a multipole
// interaction.
func (h *Hierarchy) NeighbourRadius(thetaCrit float64) int {
	c := &h.Cells[h.Props.Offset]
	distance := 2 * r3.Norm(c.Width) / thetaCrit
	return int(distance / c.DMin) + 1
}

// FindNeighbours tags every background cell within NeighbourRadius() of
// the void cell as a Neighbour and stores their indices in
// Props.Neighbours. Previous tags are cleared first, so calling it again on
// the same hierarchy gives the same result.
func (h *Hierarchy) FindNeighbours(thetaCrit float64) error {
	p := h.Props
	if thetaCrit <= 0 {
		return zerr.Geometryf("Opening angle must be positive, not %g.",
			thetaCrit)
	}

	for cid := p.Offset; cid < h.Len(); cid++ {
		if h.Cells[cid].Kind == Neighbour { h.Cells[cid].Kind = Background }
	}
	p.Neighbours = p.Neighbours[:0]
	if !p.Enabled { return nil }

	if h.Cells[p.VoidCell].Kind != Void {
		return zerr.Consistencyf("Cell %d should be the void cell, but has " +
			"kind %s.", p.VoidCell, h.Cells[p.VoidCell].Kind)
	}

	delta := h.NeighbourRadius(thetaCrit)
	h.log.Debug().
		Int("delta_cells", delta).
		Msg("Looking for background cells neighbouring the zoom region.")

	bg := p.BkgGrid()
	i, j, k := bg.Coords(p.VoidCell)
	bg.Neighbours(i, j, k, delta, delta, h.Domain.Periodic,
		func(ii, jj, kk, _, _, _ int) {
			cjd := bg.Idx(ii, jj, kk)
			if h.Cells[cjd].Kind == Background {
				h.Cells[cjd].Kind = Neighbour
				p.Neighbours = append(p.Neighbours, cjd)
			}
		})
	sort.Ints(p.Neighbours)

	h.log.Debug().
		Int("nr_neighbour_cells", len(p.Neighbours)).
		Msg("Found cells neighbouring the zoom region.")

	return nil
}

// IsNeighbour returns true if a cell is tagged as a neighbour of the zoom
// region.
func (h *Hierarchy) IsNeighbour(cid int) bool { return h.Cells[cid].Kind == Neighbour }
