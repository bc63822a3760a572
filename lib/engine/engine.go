/*package engine runs the steps that take one node from a set of particles to
its top-level cells, proxies, and tasks:

    Regrid          find the zoom region, build the cells, move particles to
                    their owners, and summarize the cells
    MakeProxies     find which cells have to be exchanged with other nodes
    ExchangeCells   swap the summaries of those cells
    MakeTasks       make the top-level tasks

Rebuild runs all of them. Every node in a run must call the same steps in
the same order.
*/
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/phil-mansfield/zoomgrid/lib/cells"
	"github.com/phil-mansfield/zoomgrid/lib/geom"
	"github.com/phil-mansfield/zoomgrid/lib/mpi"
	"github.com/phil-mansfield/zoomgrid/lib/particles"
	"github.com/phil-mansfield/zoomgrid/lib/proxy"
	"github.com/phil-mansfield/zoomgrid/lib/tasks"
	"github.com/phil-mansfield/zoomgrid/lib/zoom"
)

// Engine is the state of one node.
type Engine struct {
	Ctx Context
	Comm mpi.Comm

	// Particles are the particles this node holds. After Regrid, these are
	// exactly the particles in the node's cells.
	Particles particles.Particles

	Cells *cells.Hierarchy
	Proxies *proxy.Set
	Tasks *tasks.List

	// shift is the part of the user's shift that hasn't been applied to
	// Particles yet.
	shift r3.Vec
	log zerolog.Logger
}

// New creates the engine of the node comm.Rank() with its initial
// particles.
func New(
	ctx Context, comm mpi.Comm, p particles.Particles, log zerolog.Logger,
) (*Engine, error) {
	if comm.Rank() != ctx.NodeID || comm.Size() != ctx.Nodes {
		return nil, fmt.Errorf("Engine for node %d of %d was given the " +
			"communicator for rank %d of %d.", ctx.NodeID, ctx.Nodes,
			comm.Rank(), comm.Size())
	}
	if p == nil { p = particles.Particles{ } }

	return &Engine{
		Ctx: ctx, Comm: comm, Particles: p,
		Tasks: &tasks.List{ },
		shift: ctx.Shift,
		log: log,
	}, nil
}

// Props returns the grid geometry, or nil before the first Regrid.
func (e *Engine) Props() *zoom.Properties {
	if e.Cells == nil { return nil }
	return e.Cells.Props
}

// Regrid rebuilds the top-level cells around the current particles.
func (e *Engine) Regrid(ctx context.Context) error {
	c := e.Ctx

	var props *zoom.Properties
	if c.ZoomEnabled {
		geo, err := zoom.Estimate(ctx, e.Comm, e.Particles, c.Domain,
			e.shift, e.log)
		if err != nil { return err }
		props, err = zoom.NewProperties(c.Zoom, geo, c.Domain, e.log)
		if err != nil { return err }
	} else {
		var err error
		props, err = zoom.NewUniform(c.Zoom.MaxTopLevelCells, c.Domain, e.log)
		if err != nil { return err }
	}

	e.applyShift(r3.Add(e.shift, props.Shift))
	e.shift = r3.Vec{ }

	h, err := cells.Construct(props, c.Domain, c.SelfGravity, e.log)
	if err != nil { return err }
	if err := h.PartitionSlabs(c.Nodes); err != nil { return err }

	// Particles outside the box can't be assigned to a node, so check
	// before moving them.
	if err := checkInBox(e.Particles, c.Domain); err != nil { return err }

	owner := func(x [3]float64) int { return h.Cells[h.CellID(geom.Vec(x))].Node }
	e.Particles, err = redistribute(ctx, e.Comm, e.Particles, owner)
	if err != nil { return err }

	if err := h.CountParticles(e.Particles); err != nil { return err }
	if err := h.FindNeighbours(c.ThetaCrit); err != nil { return err }
	if err := h.ComputeMultipoles(e.Particles, c.NodeID); err != nil {
		return err
	}

	if c.Debug {
		if err := h.CheckKinds(); err != nil { return err }
	}

	e.Cells = h
	e.Proxies = nil
	e.Tasks.Reset()

	e.log.Debug().
		Int("nr_particles", e.Particles.Len()).
		Int("nr_cells", h.Len()).
		Int("nr_neighbours", len(props.Neighbours)).
		Msg("Regridded.")

	return nil
}

// applyShift moves every particle by dx, wrapping if the box is periodic.
func (e *Engine) applyShift(dx r3.Vec) {
	if e.Particles.Len() == 0 || dx == (r3.Vec{ }) { return }

	box := e.Ctx.Domain.Dim()
	pos := e.Particles.Positions()
	for i := range pos {
		x := r3.Add(geom.Vec(pos[i]), dx)
		if e.Ctx.Domain.Periodic { x = geom.WrapVec(x, box) }
		pos[i] = geom.Array(x)
	}
}

// MakeProxies finds the cells this node has to exchange with other nodes.
func (e *Engine) MakeProxies() error {
	if e.Cells == nil { return fmt.Errorf("MakeProxies called before Regrid.") }

	set, err := proxy.Build(e.Cells, e.Ctx.proxyParams(), e.log)
	if err != nil { return err }
	e.Proxies = set
	return nil
}

// ExchangeCells swaps cell counts and multipoles with every proxy.
func (e *Engine) ExchangeCells(ctx context.Context) error {
	if e.Proxies == nil {
		return fmt.Errorf("ExchangeCells called before MakeProxies.")
	}
	return proxy.Exchange(ctx, e.Comm, e.Proxies, e.Cells)
}

// MakeTasks makes the top-level tasks of the current cells.
func (e *Engine) MakeTasks() error {
	if e.Cells == nil { return fmt.Errorf("MakeTasks called before Regrid.") }

	e.Tasks.Reset()
	m := tasks.NewMapper(e.Cells, e.Ctx.taskParams(), e.Tasks,
		e.Ctx.Threads, e.log)
	if err := m.Map(); err != nil { return err }

	e.log.Debug().
		Int("nr_tasks", e.Tasks.Len()).
		Msg("Made tasks.")
	return nil
}

// Rebuild runs Regrid, MakeProxies, ExchangeCells, and MakeTasks, then waits
// for every node to finish. In debug mode it also checks that all nodes built
// the same grid and that every task's foreign cells are in a proxy.
func (e *Engine) Rebuild(ctx context.Context) error {
	if err := e.Regrid(ctx); err != nil { return err }
	if e.Ctx.Debug {
		if err := e.CheckGridAgrees(ctx); err != nil { return err }
	}

	if err := e.MakeProxies(); err != nil { return err }
	if err := e.ExchangeCells(ctx); err != nil { return err }
	if err := e.MakeTasks(); err != nil { return err }

	if e.Ctx.Debug {
		if err := e.CheckTaskProxies(); err != nil { return err }
	}

	// No node reports a finished rebuild while another is still exchanging.
	return mpi.Barrier(ctx, e.Comm)
}
