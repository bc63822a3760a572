package engine

import (
	"github.com/phil-mansfield/zoomgrid/lib/geom"
	"github.com/phil-mansfield/zoomgrid/lib/tasks"
)

// Summary describes the grid, proxies, and tasks of one node after a
// rebuild. It's written out as TOML by the command line tool.
type Summary struct {
	Node int `toml:"node"`

	ZoomEnabled bool `toml:"zoom_enabled"`
	ZoomCDim [3]int `toml:"zoom_cdim"`
	BkgCDim [3]int `toml:"background_cdim"`
	RegionSide float64 `toml:"region_side"`
	Boost float64 `toml:"boost_factor"`
	Shift [3]float64 `toml:"shift"`
	VoidCell int `toml:"void_cell"`
	NrNeighbours int `toml:"nr_neighbour_cells"`

	NrParticles int `toml:"nr_particles"`
	NrLocalCells int `toml:"nr_local_cells"`
	NrProxies int `toml:"nr_proxies"`
	ProxyNodes []int `toml:"proxy_nodes"`

	Tasks map[string]int `toml:"tasks"`
}

// Summarize returns the Summary of the last rebuild.
func (e *Engine) Summarize() Summary {
	s := Summary{
		Node: e.Ctx.NodeID,
		NrParticles: e.Particles.Len(),
		ProxyNodes: []int{ },
		Tasks: map[string]int{ },
	}

	if p := e.Props(); p != nil {
		s.ZoomEnabled = p.Enabled
		s.ZoomCDim, s.BkgCDim = p.ZoomCDim, p.BkgCDim
		s.RegionSide, s.Boost = p.Side, p.Boost
		s.Shift = geom.Array(p.Shift)
		s.VoidCell = p.VoidCell
		s.NrNeighbours = len(p.Neighbours)

		for cid := range e.Cells.Cells {
			if e.Cells.Cells[cid].Node == e.Ctx.NodeID { s.NrLocalCells++ }
		}
	}

	if e.Proxies != nil {
		s.NrProxies = e.Proxies.Len()
		for _, p := range e.Proxies.Proxies {
			s.ProxyNodes = append(s.ProxyNodes, p.Remote)
		}
	}

	for _, t := range e.Tasks.Tasks() {
		s.Tasks[taskName(t)]++
	}

	return s
}

func taskName(t tasks.Task) string {
	if t.Subtype == tasks.None { return t.Type.String() }
	return t.Type.String() + "_" + t.Subtype.String()
}
