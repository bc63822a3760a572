package tasks

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/phil-mansfield/zoomgrid/lib/cells"
	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
	"github.com/phil-mansfield/zoomgrid/lib/geom"
	"github.com/phil-mansfield/zoomgrid/lib/thread"
)

// chunkSize is the number of cells handed to each mapper call.
const chunkSize = 32

// Params are the parts of the run configuration that decide which tasks are
// made.
type Params struct {
	NodeID int
	Hydro, Gravity, FOF bool
	Stars, Sinks, BlackHoles, Feedback bool
	ThetaCrit float64
	// MeshRCutMax is the distance beyond which the long-range mesh handles
	// gravity on its own. Zero means there's no cutoff.
	MeshRCutMax float64
	// Debug turns on checks that every gravity pair joins the levels its
	// mapper is responsible for.
	Debug bool
}

// Mapper makes the top-level tasks of a cell hierarchy.
type Mapper struct {
	h *cells.Hierarchy
	par Params
	sched Scheduler
	threads int
	mesh2 float64
	log zerolog.Logger
}

// NewMapper creates a Mapper which sends tasks to sched. threads <= 0 uses
// every available thread.
func NewMapper(
	h *cells.Hierarchy, par Params, sched Scheduler, threads int,
	log zerolog.Logger,
) *Mapper {
	mesh2 := math.Inf(+1)
	if par.MeshRCutMax > 0 { mesh2 = par.MeshRCutMax*par.MeshRCutMax }
	return &Mapper{
		h: h, par: par, sched: sched, threads: threads,
		mesh2: mesh2, log: log,
	}
}

// Map runs every mapper that the enabled physics needs.
func (m *Mapper) Map() error {
	if m.par.Gravity {
		if err := m.Gravity(); err != nil { return err }
	}
	if m.par.Hydro {
		if err := m.Hydro(); err != nil { return err }
	}
	if m.par.FOF {
		if err := m.FOF(); err != nil { return err }
	}
	return nil
}

// levels is the pair of levels a gravity pass joins.
type levels int

const (
	bkgLevels levels = iota
	zoomLevels
	crossLevels
)

// gravityPass is one walk over cell pairs. The three gravity passes differ
// only in which pairs they consider, how they measure distance, and how they
// avoid visiting the same pair twice.
type gravityPass struct {
	name string
	levels levels
	// Cells [start, end) are mapped.
	start, end int
	periodic bool
	// self is true if the pass makes self tasks.
	self bool
	skip func(cid int) bool
	candidates func(cid int, f func(cjd int))
	duplicate func(cid, cjd int) bool
	dist2 func(cid, cjd int) float64
}

func (m *Mapper) local(cid int) bool { return m.h.Cells[cid].Node == m.par.NodeID }

// Gravity makes the self-gravity tasks of the background grid, the zoom grid,
// and the pairs between the zoom cells and the neighbour cells.
func (m *Mapper) Gravity() error {
	if m.h.Multipoles == nil {
		return zerr.Consistencyf("Can't make gravity tasks without " +
			"multipoles.")
	}

	passes := []*gravityPass{ m.levelPass(false) }
	if m.h.Props.Enabled {
		passes = append(passes, m.levelPass(true), m.crossPass())
	}

	for _, pass := range passes {
		err := thread.MapErr(pass.end - pass.start, chunkSize, m.threads,
			func(start, end int) error {
				return m.gravity(pass, pass.start + start, pass.start + end)
			})
		if err != nil { return err }
	}
	return nil
}

// levelPass returns the pass over the zoom grid or the background grid.
func (m *Mapper) levelPass(zoom bool) *gravityPass {
	h, p := m.h, m.h.Props

	pass := &gravityPass{
		name: "background", levels: bkgLevels,
		start: p.Offset, end: h.Len(),
		periodic: h.Domain.Periodic, self: true,
	}
	grid := p.BkgGrid()
	if zoom {
		pass.name, pass.levels = "zoom", zoomLevels
		pass.start, pass.end = 0, p.NrZoomCells
		pass.periodic = false
		grid = p.ZoomGrid()
	}

	// The 2.5 allows for a CoM anywhere in either cell.
	width := h.Cells[pass.start].Width.X
	distance := 2.5*width / m.par.ThetaCrit
	delta := int(distance / width) + 1
	deltaM, deltaP := geom.LevelRange(delta, grid.CDim[0], pass.periodic)

	m.log.Debug().
		Str("level", pass.name).
		Int("delta_cells", delta).
		Int("delta_m", deltaM).
		Int("delta_p", deltaP).
		Msg("Looking for gravity pairs.")

	pass.candidates = func(cid int, f func(cjd int)) {
		i, j, k := grid.Coords(cid)
		grid.Neighbours(i, j, k, deltaM, deltaP, pass.periodic,
			func(ii, jj, kk, _, _, _ int) { f(grid.Idx(ii, jj, kk)) })
	}
	pass.duplicate = func(cid, cjd int) bool { return cid >= cjd }
	pass.dist2 = func(cid, cjd int) float64 {
		a, b := &h.Cells[cid], &h.Cells[cjd]
		return geom.MinDist2SameSize(a.Cuboid(), b.Cuboid(),
			pass.periodic, h.Domain.Dim())
	}

	return pass
}

// crossPass returns the pass between zoom cells and neighbour cells. Every
// cell is mapped, but each pair is only made from its zoom end.
func (m *Mapper) crossPass() *gravityPass {
	h, p := m.h, m.h.Props
	pass := &gravityPass{
		name: "cross", levels: crossLevels,
		start: 0, end: h.Len(),
		periodic: h.Domain.Periodic,
	}

	pass.skip = func(cid int) bool {
		c := &h.Cells[cid]
		if c.Kind.IsBkg() && m.local(cid) { return true }
		return c.Kind.IsBkg() && c.Kind != cells.Neighbour
	}
	pass.candidates = func(cid int, f func(cjd int)) {
		if h.Cells[cid].Kind == cells.Zoom {
			for _, cjd := range p.Neighbours { f(cjd) }
			return
		}
		for cjd := 0; cjd < p.NrZoomCells; cjd++ { f(cjd) }
	}
	pass.duplicate = func(cid, cjd int) bool {
		sameNode := h.Cells[cid].Node == h.Cells[cjd].Node
		return (sameNode && cid >= cjd) ||
			(m.local(cjd) && h.Cells[cjd].Kind == cells.Zoom)
	}
	pass.dist2 = func(cid, cjd int) float64 {
		a, b := &h.Cells[cid], &h.Cells[cjd]
		return geom.MinDist2DiffSize(a.Cuboid(), b.Cuboid(),
			pass.periodic, h.Domain.Dim())
	}

	return pass
}

func (m *Mapper) gravity(pass *gravityPass, start, end int) error {
	h := m.h
	for cid := start; cid < end; cid++ {
		ci := &h.Cells[cid]
		if pass.skip != nil && pass.skip(cid) { continue }
		if ci.Counts.Grav == 0 { continue }

		if ci.Kind == cells.Void {
			return zerr.Consistencyf("Void cell %d has %d particles.",
				cid, ci.Counts.Grav)
		}

		if pass.self && m.local(cid) {
			m.sched.AddTask(Task{ Type: Self, Subtype: Grav, Ci: cid, Cj: -1 })
		}

		var err error
		pass.candidates(cid, func(cjd int) {
			if err != nil { return }
			err = m.gravityPair(pass, cid, cjd)
		})
		if err != nil { return err }
	}

	return nil
}

func (m *Mapper) gravityPair(pass *gravityPass, cid, cjd int) error {
	h := m.h
	cj := &h.Cells[cjd]

	if cj.Counts.Grav == 0 || (!m.local(cid) && !m.local(cjd)) { return nil }
	if pass.duplicate(cid, cjd) { return nil }

	for _, c := range []int{ cid, cjd } {
		if !m.local(c) && !h.Multipoles[c].Ready {
			return zerr.Consistencyf("Multipole of cell %d wasn't received " +
				"from node %d by node %d.", c, h.Cells[c].Node, m.par.NodeID)
		}
	}

	r2 := pass.dist2(cid, cjd)
	if pass.periodic && r2 > m.mesh2 { return nil }
	if m.canUseMM(cid, cjd, pass.periodic) { return nil }

	if m.par.Debug {
		if err := checkLevels(pass, &h.Cells[cid], cj, cid, cjd); err != nil {
			return err
		}
	}

	m.sched.AddTask(Task{ Type: Pair, Subtype: Grav, Ci: cid, Cj: cjd })
	return nil
}

// canUseMM returns true if the multipoles of two cells are far enough apart
// for them to interact through a single multipole-multipole interaction.
func (m *Mapper) canUseMM(cid, cjd int, periodic bool) bool {
	mi, mj := &m.h.Multipoles[cid], &m.h.Multipoles[cjd]

	d := r3.Sub(mi.CoM, mj.CoM)
	if periodic { d = geom.NearestVec(d, m.h.Domain.Dim()) }
	r2 := r3.Norm2(d)

	rSum := mi.RMax + mj.RMax
	theta := m.par.ThetaCrit
	return rSum*rSum < theta*theta*r2
}

func checkLevels(pass *gravityPass, ci, cj *cells.Cell, cid, cjd int) error {
	zi, zj := ci.Kind == cells.Zoom, cj.Kind == cells.Zoom

	ok := true
	switch pass.levels {
	case bkgLevels: ok = !zi && !zj
	case zoomLevels: ok = zi && zj
	case crossLevels: ok = zi != zj
	}

	if !ok {
		return zerr.Consistencyf("The %s gravity pass paired cell %d (%s) " +
			"with cell %d (%s).", pass.name, cid, ci.Kind, cjd, cj.Kind)
	}
	return nil
}
