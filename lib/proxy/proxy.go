/*package proxy builds the exchange descriptors ("proxies") between this node
and every remote node that owns cells close enough to interact with local
ones, and moves cell summaries across them.

A Set holds at most one Proxy per remote node. Each Proxy lists the foreign
cells this node needs (CellsIn) and the local cells it must send (CellsOut),
tagged by why they're needed.
*/
package proxy

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
)

// CellType is a bitmask of the reasons a cell is exchanged.
type CellType uint8

const (
	None CellType = 0
	// Hydro cells are direct neighbours of a remote cell.
	Hydro CellType = 1
	// Gravity cells are too close to a remote cell for a multipole
	// interaction alone.
	Gravity CellType = 2
)

func (t CellType) String() string {
	switch t {
	case None: return "none"
	case Hydro: return "hydro"
	case Gravity: return "gravity"
	case Hydro | Gravity: return "hydro|gravity"
	}
	return fmt.Sprintf("CellType(%d)", int(t))
}

// DefaultMaxProxies is the proxy limit used when none is configured.
const DefaultMaxProxies = 64

var proxiesCreated = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "zoomgrid",
	Subsystem: "proxy",
	Name: "created_total",
	Help: "Proxies created across all proxy builds.",
})

func init() { prometheus.MustRegister(proxiesCreated) }

// Proxy is the exchange relationship between Node and one Remote node.
type Proxy struct {
	Node, Remote int

	CellsIn []int
	TypesIn []CellType
	CellsOut []int
	TypesOut []CellType

	in, out map[int]int
}

// New creates an empty proxy between node and remote.
func New(node, remote int) *Proxy {
	return &Proxy{
		Node: node, Remote: remote,
		in: map[int]int{ }, out: map[int]int{ },
	}
}

// AddCellIn records that the foreign cell cid is received from Remote. Adding
// the same cell again merges the types.
func (p *Proxy) AddCellIn(cid int, t CellType) {
	p.CellsIn, p.TypesIn = addCell(p.in, p.CellsIn, p.TypesIn, cid, t)
}

// AddCellOut records that the local cell cid is sent to Remote.
func (p *Proxy) AddCellOut(cid int, t CellType) {
	p.CellsOut, p.TypesOut = addCell(p.out, p.CellsOut, p.TypesOut, cid, t)
}

func addCell(
	index map[int]int, cells []int, types []CellType, cid int, t CellType,
) ([]int, []CellType) {
	if i, ok := index[cid]; ok {
		types[i] |= t
		return cells, types
	}
	index[cid] = len(cells)
	return append(cells, cid), append(types, t)
}

// In returns the type of a received cell and false if the proxy doesn't
// receive it.
func (p *Proxy) In(cid int) (CellType, bool) {
	i, ok := p.in[cid]
	if !ok { return None, false }
	return p.TypesIn[i], true
}

// Out returns the type of a sent cell and false if the proxy doesn't send it.
func (p *Proxy) Out(cid int) (CellType, bool) {
	i, ok := p.out[cid]
	if !ok { return None, false }
	return p.TypesOut[i], true
}

// Set is every proxy owned by one node along with the index from remote node
// to proxy ID.
type Set struct {
	Node int
	Proxies []*Proxy

	index map[int]int
	max int
}

// NewSet creates an empty set which allows up to max proxies.
func NewSet(node, max int) *Set {
	if max <= 0 { max = DefaultMaxProxies }
	return &Set{ Node: node, index: map[int]int{ }, max: max }
}

// Len returns the number of proxies.
func (s *Set) Len() int { return len(s.Proxies) }

// ID returns the ID of the proxy to remote, or -1 if there isn't one.
func (s *Set) ID(remote int) int {
	if id, ok := s.index[remote]; ok { return id }
	return -1
}

// Find returns the proxy to remote, or nil if there isn't one.
func (s *Set) Find(remote int) *Proxy {
	id := s.ID(remote)
	if id < 0 { return nil }
	return s.Proxies[id]
}

// Get returns the proxy to remote and its ID, creating it if needed.
func (s *Set) Get(remote int) (*Proxy, int, error) {
	if id, ok := s.index[remote]; ok { return s.Proxies[id], id, nil }

	if len(s.Proxies) >= s.max {
		return nil, -1, zerr.Resourcef("Maximum number of proxies (%d) " +
			"exceeded by node %d while adding node %d.", s.max, s.Node, remote)
	}

	id := len(s.Proxies)
	s.Proxies = append(s.Proxies, New(s.Node, remote))
	s.index[remote] = id
	proxiesCreated.Inc()

	return s.Proxies[id], id, nil
}
