package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNearest(t *testing.T) {
	tests := []struct{
		dx, L, exp float64
	} {
		{0, 100, 0},
		{49, 100, 49},
		{51, 100, -49},
		{-51, 100, 49},
		{-49, 100, -49},
	}

	for i := range tests {
		got := Nearest(tests[i].dx, tests[i].L)
		if got != tests[i].exp {
			t.Errorf("%d) Expected Nearest(%g, %g) = %g, got %g.",
				i, tests[i].dx, tests[i].L, tests[i].exp, got)
		}
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, 10.0, Wrap(110, 100))
	assert.Equal(t, 90.0, Wrap(-10, 100))
	assert.Equal(t, 0.0, Wrap(100, 100))

	x := Wrap(-1e-18, 1)
	assert.True(t, x >= 0 && x < 1, "Wrap(-1e-18, 1) = %g", x)
}

func TestMinDist2SameSize(t *testing.T) {
	L := r3.Vec{ X: 100, Y: 100, Z: 100 }
	w := r3.Vec{ X: 10, Y: 10, Z: 10 }
	c0 := Cuboid{ r3.Vec{ X: 0, Y: 0, Z: 0 }, w }
	c1 := Cuboid{ r3.Vec{ X: 30, Y: 0, Z: 0 }, w }
	c2 := Cuboid{ r3.Vec{ X: 90, Y: 0, Z: 0 }, w }

	// The 1D gaps here are 20 in x and 0 in y/z.
	assert.InDelta(t, 400.0, MinDist2SameSize(c0, c1, false, L), 1e-9)
	assert.InDelta(t, 400.0, MinDist2SameSize(c0, c1, true, L), 1e-9)

	// Touching across the periodic boundary.
	assert.InDelta(t, 0.0, MinDist2SameSize(c0, c2, true, L), 1e-9)
	assert.InDelta(t, 80.0*80.0, MinDist2SameSize(c0, c2, false, L), 1e-9)

	// Symmetry.
	assert.InDelta(t, MinDist2SameSize(c1, c2, true, L),
		MinDist2SameSize(c2, c1, true, L), 1e-9)
}

func TestMinDist2DiffSize(t *testing.T) {
	L := r3.Vec{ X: 100, Y: 100, Z: 100 }
	big := Cuboid{ r3.Vec{ X: 0, Y: 0, Z: 0 }, r3.Vec{ X: 20, Y: 20, Z: 20 } }
	small := Cuboid{ r3.Vec{ X: 50, Y: 0, Z: 0 }, r3.Vec{ X: 2, Y: 2, Z: 2 } }

	dx := 51.0 - 10.0
	r2 := dx*dx + 81 + 81 - (3*400.0/2 + 3*4.0/2)
	assert.InDelta(t, r2, MinDist2DiffSize(big, small, false, L), 1e-9)

	// Periodic images bring the centres closer: 41 -> -59 is further, so
	// this is the same value.
	assert.InDelta(t, r2, MinDist2DiffSize(big, small, true, L), 1e-9)

	far := Cuboid{ r3.Vec{ X: 90, Y: 0, Z: 0 }, r3.Vec{ X: 2, Y: 2, Z: 2 } }
	dx = Nearest(91 - 10, 100)
	r2 = dx*dx + 81 + 81 - (3*400.0/2 + 3*4.0/2)
	assert.InDelta(t, r2, MinDist2DiffSize(big, far, true, L), 1e-9)
	assert.True(t, MinDist2DiffSize(big, far, true, L) <
		MinDist2DiffSize(big, far, false, L))
}

func TestGridIdx(t *testing.T) {
	g := Grid{ CDim: [3]int{3, 4, 5}, Offset: 7 }
	assert.Equal(t, 60, g.Len())

	seen := map[int]bool{ }
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 5; k++ {
				idx := g.Idx(i, j, k)
				assert.Equal(t, (i*4 + j)*5 + k + 7, idx)
				assert.True(t, g.Contains(idx))
				assert.False(t, seen[idx])
				seen[idx] = true

				ii, jj, kk := g.Coords(idx)
				assert.Equal(t, [3]int{i, j, k}, [3]int{ii, jj, kk})
			}
		}
	}

	assert.False(t, g.Contains(6))
	assert.False(t, g.Contains(67))
}

func TestSearchRange(t *testing.T) {
	tests := []struct{
		delta, cdim, m, p int
	} {
		{1, 9, 1, 1},
		{4, 9, 4, 4},
		{5, 9, 4, 4},
		{3, 6, 3, 2},
		{100, 6, 3, 2},
		{1, 3, 1, 1},
	}

	for i := range tests {
		m, p := SearchRange(tests[i].delta, tests[i].cdim)
		if m != tests[i].m || p != tests[i].p {
			t.Errorf("%d) Expected SearchRange(%d, %d) = (%d, %d), got (%d, %d).",
				i, tests[i].delta, tests[i].cdim, tests[i].m, tests[i].p, m, p)
		}
	}
}

func TestLevelRange(t *testing.T) {
	tests := []struct{
		delta, cdim int
		periodic bool
		m, p int
	} {
		{2, 8, true, 2, 2},
		{10, 8, true, 4, 3},
		{2, 8, false, 2, 2},
		{10, 8, false, 7, 7},
		{10, 5, true, 2, 2},
	}

	for i := range tests {
		m, p := LevelRange(tests[i].delta, tests[i].cdim, tests[i].periodic)
		if m != tests[i].m || p != tests[i].p {
			t.Errorf("%d) Expected LevelRange(%d, %d, %v) = (%d, %d), got " +
				"(%d, %d).", i, tests[i].delta, tests[i].cdim,
				tests[i].periodic, tests[i].m, tests[i].p, m, p)
		}
	}
}

func TestNeighboursVisitOnce(t *testing.T) {
	for _, cdim := range []int{ 3, 4, 5, 6 } {
		g := Grid{ CDim: [3]int{cdim, cdim, cdim} }
		m, p := SearchRange(cdim, cdim)

		n := map[int]int{ }
		g.Neighbours(0, 1, 2, m, p, true, func(ii, jj, kk, _, _, _ int) {
			n[g.Idx(ii, jj, kk)]++
		})

		assert.Equal(t, g.Len(), len(n), "cdim = %d", cdim)
		for idx, count := range n {
			assert.Equal(t, 1, count, "cell %d visited %d times", idx, count)
		}
	}
}

func TestNeighboursNonPeriodic(t *testing.T) {
	g := Grid{ CDim: [3]int{4, 4, 4} }
	n := 0
	g.Neighbours(0, 0, 0, 1, 1, false, func(ii, jj, kk, _, _, _ int) {
		n++
		assert.True(t, ii >= 0 && jj >= 0 && kk >= 0)
	})
	assert.Equal(t, 8, n)
}

func TestAdjacent(t *testing.T) {
	g := Grid{ CDim: [3]int{5, 5, 5} }
	assert.True(t, g.Adjacent(0, 0, 0, 1, 1, 1, false))
	assert.False(t, g.Adjacent(0, 0, 0, 4, 0, 0, false))
	assert.True(t, g.Adjacent(0, 0, 0, 4, 0, 0, true))
	assert.False(t, g.Adjacent(0, 0, 0, 2, 0, 0, true))
	assert.True(t, g.Adjacent(2, 2, 2, 2, 2, 2, true))
}

func TestCuboidCenter(t *testing.T) {
	c := Cuboid{ r3.Vec{ X: 1, Y: 2, Z: 3 }, r3.Vec{ X: 2, Y: 2, Z: 2 } }
	center := c.Center()
	assert.True(t, math.Abs(center.X - 2) < 1e-12 &&
		math.Abs(center.Y - 3) < 1e-12 && math.Abs(center.Z - 4) < 1e-12)
}
