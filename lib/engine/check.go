package engine

import (
	"context"

	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
	"github.com/phil-mansfield/zoomgrid/lib/mpi"
	"github.com/phil-mansfield/zoomgrid/lib/particles"
	"github.com/phil-mansfield/zoomgrid/lib/proxy"
	"github.com/phil-mansfield/zoomgrid/lib/tasks"
	"github.com/phil-mansfield/zoomgrid/lib/zoom"
)

func checkInBox(p particles.Particles, dom zoom.Domain) error {
	if p.Len() == 0 { return nil }

	L := dom.BoxSize
	for i, x := range p.Positions() {
		if x[0] < 0 || x[0] >= L || x[1] < 0 || x[1] >= L ||
			x[2] < 0 || x[2] >= L {
			return zerr.Geometryf("Particle %d at [%g, %g, %g] is outside " +
				"the box [0, %g). Either shift the ICs or turn on " +
				"periodicity.", i, x[0], x[1], x[2], L)
		}
	}
	return nil
}

// CheckTaskProxies checks that, for every pair task with a foreign cell, a
// proxy to that cell's node exists and receives the cell.
func (e *Engine) CheckTaskProxies() error {
	if e.Proxies == nil {
		return zerr.Consistencyf("Node %d has tasks but no proxies.",
			e.Ctx.NodeID)
	}

	node := e.Ctx.NodeID
	for _, t := range e.Tasks.Tasks() {
		if !t.IsPair() { continue }

		for _, cid := range []int{ t.Ci, t.Cj } {
			owner := e.Cells.Cells[cid].Node
			if owner == node { continue }
			if err := e.checkProxy(t, cid, owner); err != nil { return err }
		}
	}
	return nil
}

func (e *Engine) checkProxy(t tasks.Task, cid, owner int) error {
	p := e.Proxies.Find(owner)
	if p == nil {
		return zerr.Consistencyf("No proxy exists for foreign node %d, but " +
			"node %d made the task %s.", owner, e.Ctx.NodeID, t)
	}

	typ, ok := p.In(cid)
	if !ok {
		return zerr.Consistencyf("Cell %d isn't in the proxy to node %d, " +
			"but node %d made the task %s.", cid, owner, e.Ctx.NodeID, t)
	}

	want := proxy.Gravity
	if t.Subtype == tasks.Density { want = proxy.Hydro }
	if typ & want == 0 {
		return zerr.Consistencyf("Cell %d is in the proxy to node %d as " +
			"%s, but node %d made the task %s.", cid, owner, typ,
			e.Ctx.NodeID, t)
	}
	return nil
}

// gridKey flattens the parts of the grid every node must agree on.
func gridKey(p *zoom.Properties) []float64 {
	key := []float64{
		float64(p.Offset), float64(p.VoidCell), float64(len(p.Neighbours)),
		p.Side, p.Shift.X, p.Shift.Y, p.Shift.Z,
	}
	for dim := 0; dim < 3; dim++ {
		key = append(key, float64(p.ZoomCDim[dim]), float64(p.BkgCDim[dim]))
	}
	return key
}

// CheckGridAgrees compares this node's grid against node 0's. Every node has
// to call it.
func (e *Engine) CheckGridAgrees(ctx context.Context) error {
	if e.Cells == nil {
		return zerr.Consistencyf("Node %d has no grid to check.", e.Ctx.NodeID)
	}

	mine := gridKey(e.Cells.Props)
	data, err := mpi.Bcast(ctx, e.Comm, 0, mpi.EncodeFloat64s(mine))
	if err != nil { return err }
	root, err := mpi.DecodeFloat64s(data)
	if err != nil { return err }

	if len(root) != len(mine) {
		return zerr.Consistencyf("Node %d got a grid key of length %d from " +
			"node 0, not %d.", e.Ctx.NodeID, len(root), len(mine))
	}
	for i := range mine {
		if mine[i] != root[i] {
			return zerr.Consistencyf("The grid on node %d doesn't match the " +
				"grid on node 0: key %v vs. %v.", e.Ctx.NodeID, mine, root)
		}
	}
	return nil
}
