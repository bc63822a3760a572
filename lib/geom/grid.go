package geom

// Grid maps the 3D (i, j, k) coordinates of a regular grid of cells onto a
// contiguous range of indices [Offset, Offset + Len()) in a flat array. The
// k index varies fastest.
type Grid struct {
	CDim [3]int
	Offset int
}

// Len returns the number of cells in the grid.
func (g Grid) Len() int { return g.CDim[0]*g.CDim[1]*g.CDim[2] }

// Idx returns the flat index of the cell at (i, j, k). No wrapping is done.
func (g Grid) Idx(i, j, k int) int {
	return (i*g.CDim[1] + j)*g.CDim[2] + k + g.Offset
}

// Coords returns the (i, j, k) coordinates of a flat index.
func (g Grid) Coords(idx int) (i, j, k int) {
	idx -= g.Offset
	i = idx / (g.CDim[1]*g.CDim[2])
	j = (idx / g.CDim[2]) % g.CDim[1]
	k = idx % g.CDim[2]
	return i, j, k
}

// Contains returns true if idx is one of the grid's flat indices.
func (g Grid) Contains(idx int) bool {
	return idx >= g.Offset && idx < g.Offset + g.Len()
}

// PMod computes the positive modulo x % y.
func PMod(x, y int) int {
	m := x % y
	if m < 0 { m += y }
	return m
}

// SearchRange converts a search radius in cells into the loop bounds
// [-deltaM, deltaP] used when walking a grid with cdim cells on a side. Once
// the radius reaches half the grid every cell is in range of every other one,
// and the bounds are clamped so that a wrapped stencil visits each cell once.
func SearchRange(delta, cdim int) (deltaM, deltaP int) {
	if delta < cdim/2 { return delta, delta }
	if cdim % 2 == 0 { return cdim/2, cdim/2 - 1 }
	return cdim/2, cdim/2
}

// LevelRange is SearchRange for a grid which may not be periodic. Without
// wrapping a stencil can't revisit cells, so the radius is only capped at the
// width of the grid.
func LevelRange(delta, cdim int, periodic bool) (deltaM, deltaP int) {
	if periodic { return SearchRange(delta, cdim) }
	if delta > cdim - 1 { delta = cdim - 1 }
	return delta, delta
}

// Neighbours calls f on every cell within the (Chebyshev) loop bounds
// [-deltaM, deltaP] of (i, j, k), wrapping if periodic and dropping
// out-of-range cells otherwise. The offsets (di, dj, dk) are passed along
// with the neighbour's coordinates.
func (g Grid) Neighbours(
	i, j, k, deltaM, deltaP int, periodic bool,
	f func(ii, jj, kk, di, dj, dk int),
) {
	for di := -deltaM; di <= deltaP; di++ {
		ii, ok := g.step(i + di, 0, periodic)
		if !ok { continue }
		for dj := -deltaM; dj <= deltaP; dj++ {
			jj, ok := g.step(j + dj, 1, periodic)
			if !ok { continue }
			for dk := -deltaM; dk <= deltaP; dk++ {
				kk, ok := g.step(k + dk, 2, periodic)
				if !ok { continue }
				f(ii, jj, kk, di, dj, dk)
			}
		}
	}
}

func (g Grid) step(x, dim int, periodic bool) (int, bool) {
	if x < 0 || x >= g.CDim[dim] {
		if !periodic { return 0, false }
		return PMod(x, g.CDim[dim]), true
	}
	return x, true
}

// Adjacent returns true if two cells are direct neighbours, i.e. they are
// within one cell of each other along every axis. If periodic is true,
// separations are measured across the box boundary too.
func (g Grid) Adjacent(i, j, k, ii, jj, kk int, periodic bool) bool {
	return adjacent1D(i, ii, g.CDim[0], periodic) &&
		adjacent1D(j, jj, g.CDim[1], periodic) &&
		adjacent1D(k, kk, g.CDim[2], periodic)
}

func adjacent1D(a, b, n int, periodic bool) bool {
	d := a - b
	if d < 0 { d = -d }
	if d <= 1 { return true }
	return periodic && (n - d) <= 1
}
