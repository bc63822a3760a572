package proxy

import (
	"math"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/phil-mansfield/zoomgrid/lib/cells"
	"github.com/phil-mansfield/zoomgrid/lib/geom"
)

// Params are the parts of the run configuration that decide which cell
// pairs need a proxy.
type Params struct {
	NodeID int
	Hydro, Gravity bool
	ThetaCrit float64
	// MeshRCutMax is the distance beyond which the long-range mesh handles
	// gravity on its own. Zero means there's no cutoff.
	MeshRCutMax float64
	MaxProxies int
}

// MaxDistance2 returns the squared distance beyond which the mesh takes over
// gravity, or +Inf if there's no cutoff.
func (par Params) MaxDistance2() float64 {
	if par.MeshRCutMax <= 0 { return math.Inf(+1) }
	return par.MeshRCutMax*par.MeshRCutMax
}

type builder struct {
	h *cells.Hierarchy
	par Params
	set *Set
	mesh2 float64
	log zerolog.Logger
}

// level is one grid walked by a same-level pass.
type level struct {
	name string
	grid geom.Grid
	periodic bool
	// cid is any cell on the level. Its width and dmin are used for the
	// level's search radius.
	cid int
}

// Build creates the proxies between this node and every remote node owning
// cells close enough to local cells to be needed. It walks the zoom grid, the
// background grid, and finally the zoom cells against the neighbour cells.
// Every cell's SendTo bits are reset first, and the cells of h are updated
// with the IDs of the proxies they're sent to.
func Build(
	h *cells.Hierarchy, par Params, log zerolog.Logger,
) (*Set, error) {
	t0 := time.Now()

	b := &builder{
		h: h, par: par,
		set: NewSet(par.NodeID, par.MaxProxies),
		mesh2: par.MaxDistance2(),
		log: log,
	}
	for cid := range h.Cells { h.Cells[cid].SendTo = nil }

	if !par.Hydro && !par.Gravity { return b.set, nil }

	p := h.Props
	if p.Enabled {
		zoom := level{ "zoom", p.ZoomGrid(), false, 0 }
		if err := b.sameLevel(zoom); err != nil { return nil, err }
	}

	bkg := level{ "background", p.BkgGrid(), h.Domain.Periodic, p.Offset }
	if err := b.sameLevel(bkg); err != nil { return nil, err }

	if p.Enabled {
		if err := b.crossLevel(); err != nil { return nil, err }
	}

	log.Debug().
		Int("nr_proxies", b.set.Len()).
		Dur("took", time.Since(t0)).
		Msg("Made proxies.")

	return b.set, nil
}

// rMax is an upper limit on the distance between the centre of mass of a
// cell and any of its corners.
func rMax(width r3.Vec) float64 { return 2 * 0.5*math.Sqrt(geom.Diagonal2(width)) }

// radius is the number of cells away a pass needs to look.
func (b *builder) radius(c *cells.Cell) int {
	if !b.par.Gravity { return 1 }
	distance := 2 * rMax(c.Width) / b.par.ThetaCrit
	return int(distance / c.DMin) + 1
}

func (b *builder) sameLevel(l level) error {
	c := &b.h.Cells[l.cid]
	r := rMax(c.Width)
	delta := b.radius(c)
	deltaM, deltaP := geom.LevelRange(delta, l.grid.CDim[0], l.periodic)

	b.log.Debug().
		Str("level", l.name).
		Int("delta_cells", delta).
		Int("delta_m", deltaM).
		Int("delta_p", deltaP).
		Msg("Looking for proxies.")

	var err error
	for cid := l.grid.Offset; cid < l.grid.Offset + l.grid.Len(); cid++ {
		i, j, k := l.grid.Coords(cid)
		l.grid.Neighbours(i, j, k, deltaM, deltaP, l.periodic,
			func(ii, jj, kk, _, _, _ int) {
				if err != nil { return }
				cjd := l.grid.Idx(ii, jj, kk)
				if cid >= cjd { return }
				adj := l.grid.Adjacent(i, j, k, ii, jj, kk, l.periodic)
				err = b.pair(cid, cjd, adj, l.periodic, r)
			})
		if err != nil { return err }
	}

	return nil
}

// crossLevel pairs every zoom cell with the neighbour cells. Adjacency is
// measured between the neighbour and the void cell on the background grid.
func (b *builder) crossLevel() error {
	p := b.h.Props
	bg := p.BkgGrid()
	periodic := b.h.Domain.Periodic
	r := rMax(p.BkgWidth)

	for cid := 0; cid < p.NrZoomCells; cid++ {
		i, j, k := bg.Coords(b.h.Cells[cid].Parent)
		for _, cjd := range p.Neighbours {
			ii, jj, kk := bg.Coords(cjd)
			adj := bg.Adjacent(i, j, k, ii, jj, kk, periodic)
			if err := b.pair(cid, cjd, adj, periodic, r); err != nil {
				return err
			}
		}
	}

	return nil
}

// pair decides whether cid and cjd need to be exchanged and records it in the
// proxy to the remote node if so.
func (b *builder) pair(cid, cjd int, adjacent, periodic bool, r float64) error {
	h, node := b.h, b.par.NodeID
	ci, cj := &h.Cells[cid], &h.Cells[cjd]

	localI, localJ := ci.Node == node, cj.Node == node
	if localI == localJ { return nil }

	t := None
	if b.par.Hydro && adjacent { t |= Hydro }
	if b.par.Gravity {
		if adjacent {
			t |= Gravity
		} else {
			// Multipoles don't exist yet, so the test uses the closest the
			// two centres of mass could be and the furthest any particle
			// could be from them.
			r2 := h.MinDist2(cid, cjd, periodic)
			theta := b.par.ThetaCrit
			near := !(4*r*r < theta*theta*r2)
			if periodic && !(r2 < b.mesh2) { near = false }
			if near { t |= Gravity }
		}
	}
	if t == None { return nil }

	local, foreign := cid, cjd
	if !localI { local, foreign = cjd, cid }

	px, id, err := b.set.Get(h.Cells[foreign].Node)
	if err != nil { return err }
	px.AddCellIn(foreign, t)
	px.AddCellOut(local, t)

	c := &h.Cells[local]
	if c.SendTo == nil { c.SendTo = bitset.New(uint(b.set.max)) }
	c.SendTo.Set(uint(id))

	return nil
}
