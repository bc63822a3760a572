package tasks

import (
	"github.com/phil-mansfield/zoomgrid/lib/cells"
	"github.com/phil-mansfield/zoomgrid/lib/geom"
	"github.com/phil-mansfield/zoomgrid/lib/thread"
)

// sortListID maps the 27 offsets of a neighbouring cell onto the 13 sort
// directions (plus 0 for the cell itself). Opposite offsets share a
// direction. Index with SortListID.
var sortListID = [27]int{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12,
	0,
	12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
}

// SortListID returns the sort direction of a cell at offset (di, dj, dk),
// each in [-1, 1].
func SortListID(di, dj, dk int) int {
	return sortListID[(dk + 1) + 3*((dj + 1) + 3*(di + 1))]
}

// grid is one level of top-level cells.
type grid struct {
	geom.Grid
	periodic bool
}

// grids returns the levels which short-range tasks are made on. The zoom
// level is never periodic.
func (m *Mapper) grids() []grid {
	p := m.h.Props
	out := []grid{ }
	if p.Enabled { out = append(out, grid{ p.ZoomGrid(), false }) }
	return append(out, grid{ p.BkgGrid(), m.h.Domain.Periodic })
}

// adjacent calls f on every direct neighbour of cid on g.
func (g grid) adjacent(cid int, f func(cjd, di, dj, dk int)) {
	i, j, k := g.Coords(cid)
	deltaM, deltaP := geom.LevelRange(1, g.CDim[0], g.periodic)
	g.Neighbours(i, j, k, deltaM, deltaP, g.periodic,
		func(ii, jj, kk, di, dj, dk int) { f(g.Idx(ii, jj, kk), di, dj, dk) })
}

// hasHydro returns true if a cell has particles that take part in the
// density loop. If asNeighbour is true, stars only count if feedback is on.
func (m *Mapper) hasHydro(c *cells.Cell, asNeighbour bool) bool {
	n := c.Counts
	stars := m.par.Stars
	if asNeighbour { stars = m.par.Feedback }
	return n.Hydro > 0 ||
		(stars && n.Stars > 0) ||
		(m.par.Sinks && n.Sinks > 0) ||
		(m.par.BlackHoles && n.BlackHoles > 0)
}

// Hydro makes the density self tasks of every local cell with hydro
// particles and the pair tasks between it and its direct neighbours on the
// same level.
func (m *Mapper) Hydro() error {
	for _, g := range m.grids() {
		g := g
		thread.Map(g.Len(), chunkSize, m.threads, func(start, end int) {
			m.hydro(g, g.Offset + start, g.Offset + end)
		})
	}
	return nil
}

func (m *Mapper) hydro(g grid, start, end int) {
	h := m.h
	for cid := start; cid < end; cid++ {
		ci := &h.Cells[cid]
		if !m.hasHydro(ci, false) { continue }

		if m.local(cid) {
			m.sched.AddTask(Task{ Type: Self, Subtype: Density, Ci: cid, Cj: -1 })
		}

		g.adjacent(cid, func(cjd, di, dj, dk int) {
			if cid >= cjd || !m.hasHydro(&h.Cells[cjd], true) ||
				(!m.local(cid) && !m.local(cjd)) {
				return
			}
			m.sched.AddTask(Task{
				Type: Pair, Subtype: Density,
				Flags: SortListID(di, dj, dk), Ci: cid, Cj: cjd,
			})
		})
	}
}

// FOF makes the friends-of-friends tasks: a self task for every local cell
// with particles and a pair task between it and every direct neighbour with
// particles on the same node.
func (m *Mapper) FOF() error {
	for _, g := range m.grids() {
		g := g
		thread.Map(g.Len(), chunkSize, m.threads, func(start, end int) {
			m.fof(g, g.Offset + start, g.Offset + end)
		})
	}
	return nil
}

func (m *Mapper) fof(g grid, start, end int) {
	h := m.h
	for cid := start; cid < end; cid++ {
		ci := &h.Cells[cid]
		if ci.Counts.Grav == 0 || !m.local(cid) { continue }

		m.sched.AddTask(Task{ Type: FOFSelf, Subtype: None, Ci: cid, Cj: -1 })

		g.adjacent(cid, func(cjd, _, _, _ int) {
			cj := &h.Cells[cjd]
			if cid >= cjd || cj.Counts.Grav == 0 || cj.Node != ci.Node {
				return
			}
			m.sched.AddTask(Task{ Type: FOFPair, Subtype: None, Ci: cid, Cj: cjd })
		})
	}
}
