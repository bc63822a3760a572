package cells

import (
	"gonum.org/v1/gonum/spatial/r3"

	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
	"github.com/phil-mansfield/zoomgrid/lib/geom"
	"github.com/phil-mansfield/zoomgrid/lib/particles"
)

// CountParticles resets every cell's counts and then places each particle
// in p into its top-level cell. Positions must already have every shift
// applied.
func (h *Hierarchy) CountParticles(p particles.Particles) error {
	for cid := range h.Cells { h.Cells[cid].Counts = Counts{ } }
	if p.Len() == 0 { return nil }

	L := h.Domain.BoxSize
	pos := p.Positions()
	for i := range pos {
		x := pos[i]
		if x[0] < 0 || x[0] >= L || x[1] < 0 || x[1] >= L ||
			x[2] < 0 || x[2] >= L {
			return zerr.Geometryf("Particle %d at [%g, %g, %g] is outside " +
				"the box [0, %g).", i, x[0], x[1], x[2], L)
		}

		c := &h.Cells[h.CellID(geom.Vec(x))].Counts
		c.Grav++
		switch p.Species(i) {
		case particles.Gas: c.Hydro++
		case particles.Star: c.Stars++
		case particles.Sink: c.Sinks++
		case particles.BlackHole: c.BlackHoles++
		}
	}

	return nil
}

// PartitionSlabs assigns cells to nodes by splitting each level into
// contiguous slabs of indices. It stands in for a real domain decomposition.
func (h *Hierarchy) PartitionSlabs(nodes int) error {
	if nodes <= 0 {
		return zerr.Geometryf("Can't partition cells between %d nodes.", nodes)
	}

	p := h.Props
	for cid := 0; cid < p.NrZoomCells; cid++ {
		h.Cells[cid].Node = cid*nodes / p.NrZoomCells
	}
	for cid := p.Offset; cid < h.Len(); cid++ {
		h.Cells[cid].Node = (cid - p.Offset)*nodes / p.NrBkgCells
	}
	return nil
}

// ComputeMultipoles computes the multipoles of every cell owned by node from
// the particles in p. node < 0 means every cell. Other cells are marked as
// not ready. It does nothing if self-gravity is off.
func (h *Hierarchy) ComputeMultipoles(p particles.Particles, node int) error {
	if h.Multipoles == nil { return nil }

	local := func(cid int) bool { return node < 0 || h.Cells[cid].Node == node }

	for cid := range h.Multipoles {
		h.Multipoles[cid] = Multipole{ CoM: h.Cells[cid].Center() }
	}

	n := p.Len()
	cids := make([]int, n)
	if n > 0 {
		pos, mass := p.Positions(), p.Masses()
		mx := make([]r3.Vec, len(h.Cells))
		for i := range pos {
			cid := h.CellID(geom.Vec(pos[i]))
			cids[i] = cid
			if !local(cid) { continue }
			h.Multipoles[cid].Mass += mass[i]
			mx[cid] = r3.Add(mx[cid], r3.Scale(mass[i], geom.Vec(pos[i])))
		}

		for cid := range h.Multipoles {
			if m := h.Multipoles[cid].Mass; m > 0 {
				h.Multipoles[cid].CoM = r3.Scale(1/m, mx[cid])
			}
		}

		for i := range pos {
			cid := cids[i]
			if !local(cid) { continue }
			mp := &h.Multipoles[cid]
			r := r3.Norm(r3.Sub(geom.Vec(pos[i]), mp.CoM))
			if r > mp.RMax { mp.RMax = r }
		}
	}

	for cid := range h.Multipoles {
		h.Multipoles[cid].Ready = local(cid)
	}

	return nil
}
