package tasks

import (
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/phil-mansfield/zoomgrid/lib/cells"
	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
	"github.com/phil-mansfield/zoomgrid/lib/particles"
	"github.com/phil-mansfield/zoomgrid/lib/zoom"
)

const thetaCrit = 0.7

// zoomHierarchy builds a 4^3 zoom region inside a 9^3 periodic background
// grid in a box of width 100 and fills it with n random particles, half of
// them inside the zoom region.
func zoomHierarchy(t *testing.T, n int) *cells.Hierarchy {
	dom := zoom.Domain{ BoxSize: 100, Periodic: true }
	geo := zoom.Geometry{
		Bounds: r3.Box{
			Min: r3.Vec{ X: 45, Y: 45, Z: 45 },
			Max: r3.Vec{ X: 55, Y: 55, Z: 55 },
		},
		CoM: r3.Vec{ X: 50, Y: 50, Z: 50 },
		Mass: 1, N: 1,
	}
	opt := zoom.Options{
		ZoomCells: 4, BoostFactor: 1.1, RefineBkg: true, MaxTopLevelCells: 16,
	}

	props, err := zoom.NewProperties(opt, geo, dom, zerolog.Nop())
	require.NoError(t, err)
	h, err := cells.Construct(props, dom, true, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, h.FindNeighbours(thetaCrit))

	rng := rand.New(rand.NewSource(7))
	x := make([][3]float64, n)
	mass := make([]float64, n)
	species := make([]particles.Species, n)
	for i := range x {
		lo, width := 0.0, 100.0
		species[i] = particles.DarkMatterBackground
		if i % 2 == 0 {
			lo, width = 45, 10
			species[i] = particles.DarkMatter
		}
		for dim := range x[i] { x[i][dim] = lo + width*rng.Float64() }
		mass[i] = 1
	}
	p, err := particles.New(x, mass, species)
	require.NoError(t, err)

	require.NoError(t, h.CountParticles(p))
	require.NoError(t, h.ComputeMultipoles(p, -1))
	return h
}

// uniformHierarchy builds a background-only grid with cdim cells on a side in
// a box of width 100. Cells are empty.
func uniformHierarchy(t *testing.T, cdim int, periodic bool) *cells.Hierarchy {
	dom := zoom.Domain{ BoxSize: 100, Periodic: periodic }
	props, err := zoom.NewUniform(cdim, dom, zerolog.Nop())
	require.NoError(t, err)
	h, err := cells.Construct(props, dom, true, zerolog.Nop())
	require.NoError(t, err)
	return h
}

func gravityParams(node int) Params {
	return Params{ NodeID: node, Gravity: true, ThetaCrit: thetaCrit, Debug: true }
}

func mapTasks(t *testing.T, h *cells.Hierarchy, par Params, threads int) []Task {
	l := &List{ }
	require.NoError(t, NewMapper(h, par, l, threads, zerolog.Nop()).Map())
	return l.Sorted()
}

func pairKey(t Task) [2]int {
	if t.Ci < t.Cj { return [2]int{ t.Ci, t.Cj } }
	return [2]int{ t.Cj, t.Ci }
}

func TestSortListID(t *testing.T) {
	assert.Equal(t, 0, SortListID(0, 0, 0))
	assert.Equal(t, 0, SortListID(-1, -1, -1))
	assert.Equal(t, 0, SortListID(1, 1, 1))
	assert.Equal(t, 12, SortListID(0, 0, 1))
	assert.Equal(t, 1, SortListID(-1, -1, 0))

	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			for dk := -1; dk <= 1; dk++ {
				assert.Equal(t, SortListID(di, dj, dk),
					SortListID(-di, -dj, -dk), "(%d, %d, %d)", di, dj, dk)
			}
		}
	}
}

func TestList(t *testing.T) {
	selfGrav := tasksAdded.WithLabelValues("self", "grav")
	pairGrav := tasksAdded.WithLabelValues("pair", "grav")
	selfBefore := testutil.ToFloat64(selfGrav)
	pairBefore := testutil.ToFloat64(pairGrav)

	l := &List{ }
	l.AddTask(Task{ Type: Pair, Subtype: Grav, Ci: 3, Cj: 4 })
	l.AddTask(Task{ Type: Self, Subtype: Grav, Ci: 9, Cj: -1 })
	l.AddTask(Task{ Type: Self, Subtype: Grav, Ci: 2, Cj: -1 })

	assert.Equal(t, selfBefore + 2, testutil.ToFloat64(selfGrav))
	assert.Equal(t, pairBefore + 1, testutil.ToFloat64(pairGrav))
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 2, l.Count(Self, Grav))
	assert.Equal(t, 0, l.Count(Self, Density))
	assert.Equal(t, []Task{
		{ Type: Self, Subtype: Grav, Ci: 2, Cj: -1 },
		{ Type: Self, Subtype: Grav, Ci: 9, Cj: -1 },
		{ Type: Pair, Subtype: Grav, Ci: 3, Cj: 4 },
	}, l.Sorted())
	assert.Equal(t, 3, l.Tasks()[0].Ci)

	l.Reset()
	assert.Equal(t, 0, l.Len())
}

func TestGravitySingleNode(t *testing.T) {
	h := zoomHierarchy(t, 4000)
	tasks := mapTasks(t, h, gravityParams(0), 1)

	selfs, pairs := 0, map[[2]int]bool{ }
	for _, task := range tasks {
		require.Equal(t, Grav, task.Subtype)
		if task.Type == Self {
			selfs++
			continue
		}

		key := pairKey(task)
		assert.False(t, pairs[key], "pair %v repeated", key)
		pairs[key] = true

		assert.True(t, h.Cells[task.Ci].Counts.Grav > 0)
		assert.True(t, h.Cells[task.Cj].Counts.Grav > 0)
		ki, kj := h.Cells[task.Ci].Kind, h.Cells[task.Cj].Kind
		if ki == cells.Zoom && !kj.IsBkg() {
			continue
		} else if ki != kj && (ki == cells.Zoom || kj == cells.Zoom) {
			// Cross pairs only join zoom cells to neighbour cells.
			assert.True(t, ki == cells.Neighbour || kj == cells.Neighbour)
		}
	}

	nonEmpty := 0
	for cid := range h.Cells {
		if h.Cells[cid].Counts.Grav > 0 { nonEmpty++ }
	}
	assert.Equal(t, nonEmpty, selfs)
	assert.Equal(t, 0, h.Cells[h.Props.VoidCell].Counts.Grav)

	// Adjacent zoom cells can never use a multipole interaction.
	assert.True(t, pairs[[2]int{ 0, 1 }])

	// Every task the mapper adds is counted.
	before := testutil.ToFloat64(tasksAdded.WithLabelValues("self", "grav"))
	mapTasks(t, h, gravityParams(0), 2)
	assert.Equal(t, before + float64(selfs),
		testutil.ToFloat64(tasksAdded.WithLabelValues("self", "grav")))

	// Thread count doesn't change the result.
	assert.Equal(t, tasks, mapTasks(t, h, gravityParams(0), 4))
	assert.Equal(t, tasks, mapTasks(t, h, gravityParams(0), 4))
}

func TestGravityNodesAgree(t *testing.T) {
	h := zoomHierarchy(t, 4000)
	single := mapTasks(t, h, gravityParams(0), 2)

	const nodes = 3
	require.NoError(t, h.PartitionSlabs(nodes))

	for node := 0; node < nodes; node++ {
		exp := []Task{ }
		for _, task := range single {
			onNode := h.Cells[task.Ci].Node == node ||
				(task.IsPair() && h.Cells[task.Cj].Node == node)
			if task.Type == Self { onNode = h.Cells[task.Ci].Node == node }
			if onNode { exp = append(exp, task) }
		}

		got := mapTasks(t, h, gravityParams(node), 2)
		assert.Equal(t, exp, got, "node %d", node)
	}
}

func TestGravityVoidWithParticles(t *testing.T) {
	h := zoomHierarchy(t, 100)
	h.Cells[h.Props.VoidCell].Counts.Grav = 3

	l := &List{ }
	err := NewMapper(h, gravityParams(0), l, 1, zerolog.Nop()).Gravity()
	require.Error(t, err)
	kind, _ := zerr.KindOf(err)
	assert.Equal(t, zerr.Consistency, kind)
}

func TestGravityMissingMultipole(t *testing.T) {
	h := zoomHierarchy(t, 4000)
	require.NoError(t, h.PartitionSlabs(2))
	for cid := range h.Multipoles {
		if h.Cells[cid].Node != 0 { h.Multipoles[cid].Ready = false }
	}

	l := &List{ }
	err := NewMapper(h, gravityParams(0), l, 1, zerolog.Nop()).Gravity()
	require.Error(t, err)
	kind, _ := zerr.KindOf(err)
	assert.Equal(t, zerr.Consistency, kind)
}

func TestGravityMAC(t *testing.T) {
	h := uniformHierarchy(t, 9, true)
	g := h.Props.BkgGrid()
	a, b, c := g.Idx(0, 0, 0), g.Idx(4, 0, 0), g.Idx(1, 0, 0)

	for _, cid := range []int{ a, b, c } {
		h.Cells[cid].Counts.Grav = 1
		h.Multipoles[cid] = cells.Multipole{
			CoM: h.Cells[cid].Center(), RMax: 0.1, Mass: 1, Ready: true,
		}
	}
	h.Multipoles[a].RMax, h.Multipoles[c].RMax = 10, 10

	tasks := mapTasks(t, h, gravityParams(0), 1)
	pairs := map[[2]int]bool{ }
	for _, task := range tasks {
		if task.Type == Pair { pairs[pairKey(task)] = true }
	}
	assert.Equal(t, map[[2]int]bool{ {a, c}: true }, pairs)

	// Far apart, but too big for a multipole interaction. The mesh cutoff
	// removes the pair anyway.
	h.Multipoles[a].RMax, h.Multipoles[b].RMax = 40, 40
	tasks = mapTasks(t, h, gravityParams(0), 1)
	n := 0
	for _, task := range tasks {
		if task.Type == Pair && pairKey(task) == [2]int{ a, b } { n++ }
	}
	assert.Equal(t, 1, n)

	par := gravityParams(0)
	par.MeshRCutMax = 10
	tasks = mapTasks(t, h, par, 1)
	for _, task := range tasks {
		if task.Type == Pair { assert.NotEqual(t, [2]int{ a, b }, pairKey(task)) }
	}
}

func TestHydroPeriodic(t *testing.T) {
	h := uniformHierarchy(t, 5, true)
	for cid := range h.Cells { h.Cells[cid].Counts.Hydro = 1 }

	par := Params{ Hydro: true, ThetaCrit: thetaCrit }
	tasks := mapTasks(t, h, par, 3)

	l := &List{ }
	for _, task := range tasks { l.AddTask(task) }
	assert.Equal(t, 125, l.Count(Self, Density))
	assert.Equal(t, 125*26/2, l.Count(Pair, Density))

	g := h.Props.BkgGrid()
	for _, task := range tasks {
		if task.Type != Pair { continue }
		assert.Less(t, task.Ci, task.Cj)
		i, j, k := g.Coords(task.Ci)
		ii, jj, kk := g.Coords(task.Cj)
		assert.True(t, g.Adjacent(i, j, k, ii, jj, kk, true))
	}
}

func TestHydroZoomNotPeriodic(t *testing.T) {
	h := zoomHierarchy(t, 0)
	for cid := 0; cid < h.Props.NrZoomCells; cid++ {
		h.Cells[cid].Counts.Hydro = 1
	}

	par := Params{ Hydro: true, ThetaCrit: thetaCrit }
	l := &List{ }
	require.NoError(t, NewMapper(h, par, l, 2, zerolog.Nop()).Map())

	assert.Equal(t, 64, l.Count(Self, Density))
	assert.Equal(t, (10*10*10 - 64)/2, l.Count(Pair, Density))

	zg := h.Props.ZoomGrid()
	for _, task := range l.Tasks() {
		if task.Type != Pair { continue }
		i, j, k := zg.Coords(task.Ci)
		ii, jj, kk := zg.Coords(task.Cj)
		assert.Equal(t, SortListID(ii - i, jj - j, kk - k), task.Flags)
	}
}

func TestHydroSpecies(t *testing.T) {
	h := uniformHierarchy(t, 3, true)
	g := h.Props.BkgGrid()
	gas, star := g.Idx(0, 0, 0), g.Idx(0, 0, 1)
	h.Cells[gas].Counts.Hydro = 1
	h.Cells[star].Counts.Stars = 1

	count := func(par Params) (int, int) {
		l := &List{ }
		require.NoError(t, NewMapper(h, par, l, 1, zerolog.Nop()).Hydro())
		return l.Count(Self, Density), l.Count(Pair, Density)
	}

	selfs, pairs := count(Params{ Hydro: true })
	assert.Equal(t, 1, selfs)
	assert.Equal(t, 0, pairs)

	// Stars make their own cell active, but only count as neighbours with
	// feedback.
	selfs, pairs = count(Params{ Hydro: true, Stars: true })
	assert.Equal(t, 2, selfs)
	assert.Equal(t, 0, pairs)

	selfs, pairs = count(Params{ Hydro: true, Stars: true, Feedback: true })
	assert.Equal(t, 2, selfs)
	assert.Equal(t, 1, pairs)
}

func TestFOF(t *testing.T) {
	h := uniformHierarchy(t, 5, true)
	for cid := range h.Cells { h.Cells[cid].Counts.Grav = 1 }
	require.NoError(t, h.PartitionSlabs(2))

	par := Params{ NodeID: 0, FOF: true, ThetaCrit: thetaCrit }
	tasks := mapTasks(t, h, par, 2)

	local := 0
	for cid := range h.Cells {
		if h.Cells[cid].Node == 0 { local++ }
	}

	selfs := 0
	for _, task := range tasks {
		assert.Equal(t, None, task.Subtype)
		assert.Equal(t, 0, h.Cells[task.Ci].Node)
		if task.Type == FOFSelf {
			selfs++
			continue
		}
		require.Equal(t, FOFPair, task.Type)
		assert.Equal(t, 0, h.Cells[task.Cj].Node)
		assert.Less(t, task.Ci, task.Cj)
	}
	assert.Equal(t, local, selfs)
	assert.Greater(t, len(tasks), selfs)
}
