package proxy

import (
	"context"
	"sort"

	"github.com/phil-mansfield/zoomgrid/lib/cells"
	"github.com/phil-mansfield/zoomgrid/lib/compress"
	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
	"github.com/phil-mansfield/zoomgrid/lib/mpi"
)

// Message tags used by Exchange.
const (
	TagCells = 100 + iota
	TagMultipoles
)

// Each cell is sent as its ID, its type, and its five particle counts.
const intsPerCell = 7

// Each multipole is sent as the three components of its CoM, RMax, and Mass.
const floatsPerMultipole = 5

// Exchange sends the counts and multipoles of every out-cell of every proxy
// in set to its remote node and receives those of the in-cells. Received
// multipoles are marked as ready. It fails if a remote node's out-list
// doesn't match the local in-list.
func Exchange(
	ctx context.Context, comm mpi.Comm, set *Set, h *cells.Hierarchy,
) error {
	for _, p := range set.Proxies {
		cids, types := sortedCells(p.CellsOut, p.TypesOut)

		ints := make([]int64, 0, intsPerCell*len(cids))
		for i, cid := range cids {
			c := &h.Cells[cid].Counts
			ints = append(ints, int64(cid), int64(types[i]), int64(c.Hydro),
				int64(c.Grav), int64(c.Stars), int64(c.Sinks),
				int64(c.BlackHoles))
		}
		b, err := compress.EncodeInts(ints)
		if err != nil { return err }
		if err := comm.Send(ctx, p.Remote, TagCells, b); err != nil {
			return err
		}

		if h.Multipoles == nil { continue }

		floats := make([]float64, 0, floatsPerMultipole*len(cids))
		for _, cid := range cids {
			m := &h.Multipoles[cid]
			if !m.Ready {
				return zerr.Consistencyf("Node %d tried to send the " +
					"multipole of cell %d to node %d before computing it.",
					p.Node, cid, p.Remote)
			}
			floats = append(floats, m.CoM.X, m.CoM.Y, m.CoM.Z, m.RMax, m.Mass)
		}
		if b, err = compress.EncodeFloat64s(floats); err != nil { return err }
		if err := comm.Send(ctx, p.Remote, TagMultipoles, b); err != nil {
			return err
		}
	}

	for _, p := range set.Proxies {
		if err := receive(ctx, comm, p, h); err != nil { return err }
	}

	return nil
}

func receive(
	ctx context.Context, comm mpi.Comm, p *Proxy, h *cells.Hierarchy,
) error {
	cids, types := sortedCells(p.CellsIn, p.TypesIn)

	b, err := comm.Recv(ctx, p.Remote, TagCells)
	if err != nil { return err }
	ints, err := compress.DecodeInts(b)
	if err != nil { return err }

	if len(ints) != intsPerCell*len(cids) {
		return zerr.Consistencyf("Node %d expected %d cells from node %d, " +
			"but got %d.", p.Node, len(cids), p.Remote, len(ints)/intsPerCell)
	}

	for i, cid := range cids {
		row := ints[intsPerCell*i: intsPerCell*(i + 1)]
		if int(row[0]) != cid || CellType(row[1]) != types[i] {
			return zerr.Consistencyf("Node %d expected cell %d (%s) from " +
				"node %d, but got cell %d (%s).", p.Node, cid, types[i],
				p.Remote, row[0], CellType(row[1]))
		}
		h.Cells[cid].Counts = cells.Counts{
			Hydro: int(row[2]), Grav: int(row[3]), Stars: int(row[4]),
			Sinks: int(row[5]), BlackHoles: int(row[6]),
		}
	}

	if h.Multipoles == nil { return nil }

	b, err = comm.Recv(ctx, p.Remote, TagMultipoles)
	if err != nil { return err }
	floats, err := compress.DecodeFloat64s(b)
	if err != nil { return err }

	if len(floats) != floatsPerMultipole*len(cids) {
		return zerr.Consistencyf("Node %d expected %d multipoles from node " +
			"%d, but got %d.", p.Node, len(cids), p.Remote,
			len(floats)/floatsPerMultipole)
	}

	for i, cid := range cids {
		row := floats[floatsPerMultipole*i: floatsPerMultipole*(i + 1)]
		m := &h.Multipoles[cid]
		m.CoM.X, m.CoM.Y, m.CoM.Z = row[0], row[1], row[2]
		m.RMax, m.Mass = row[3], row[4]
		m.Ready = true
	}

	return nil
}

// sortedCells returns copies of a cell list and its types sorted by cell ID.
// Both ends of a proxy agree on this order and the IDs delta encode well.
func sortedCells(cids []int, types []CellType) ([]int, []CellType) {
	order := make([]int, len(cids))
	for i := range order { order[i] = i }
	sort.Slice(order, func(a, b int) bool { return cids[order[a]] < cids[order[b]] })

	outCids := make([]int, len(cids))
	outTypes := make([]CellType, len(cids))
	for i, j := range order {
		outCids[i], outTypes[i] = cids[j], types[j]
	}
	return outCids, outTypes
}
