/*package geom contains the small amount of periodic geometry that zoomgrid
needs: nearest-image displacements, wrapping, and lower bounds on the
separation of particles living in two cuboid cells.*/
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec converts an array to an r3.Vec.
func Vec(x [3]float64) r3.Vec { return r3.Vec{ X: x[0], Y: x[1], Z: x[2] } }

// Array converts an r3.Vec to an array, which is easier to loop over.
func Array(v r3.Vec) [3]float64 { return [3]float64{ v.X, v.Y, v.Z } }

// Nearest returns the nearest periodic image of the displacement dx in a box
// of width L.
func Nearest(dx, L float64) float64 {
	if dx > L/2 { return dx - L }
	if dx < -L/2 { return dx + L }
	return dx
}

// NearestVec applies Nearest to every component of d.
func NearestVec(d r3.Vec, L r3.Vec) r3.Vec {
	return r3.Vec{ X: Nearest(d.X, L.X), Y: Nearest(d.Y, L.Y), Z: Nearest(d.Z, L.Z) }
}

// Wrap maps x into the range [0, L).
func Wrap(x, L float64) float64 {
	x = math.Mod(x, L)
	if x < 0 { x += L }
	// -tiny + L can round to exactly L.
	if x >= L { x -= L }
	return x
}

// WrapVec applies Wrap to every component of x.
func WrapVec(x r3.Vec, L r3.Vec) r3.Vec {
	return r3.Vec{ X: Wrap(x.X, L.X), Y: Wrap(x.Y, L.Y), Z: Wrap(x.Z, L.Z) }
}

// Diagonal2 returns the squared length of the diagonal of a cuboid with the
// given side lengths.
func Diagonal2(width r3.Vec) float64 { return r3.Norm2(width) }

// Cuboid is an axis-aligned cell with its lower corner at Loc.
type Cuboid struct {
	Loc, Width r3.Vec
}

// Center returns the centre of the cuboid.
func (c Cuboid) Center() r3.Vec { return r3.Add(c.Loc, r3.Scale(0.5, c.Width)) }

// MinDist2SameSize returns the squared minimum distance between any two
// points in a pair of cuboids with identical widths which sit on the same
// grid. L is the box size and is only used if periodic is true.
func MinDist2SameSize(ci, cj Cuboid, periodic bool, L r3.Vec) float64 {
	lo1, hi1 := Array(ci.Loc), Array(r3.Add(ci.Loc, ci.Width))
	lo2, hi2 := Array(cj.Loc), Array(r3.Add(cj.Loc, cj.Width))
	box := Array(L)

	r2 := 0.0
	for dim := 0; dim < 3; dim++ {
		d := math.Min(
			math.Min(sep(lo1[dim] - lo2[dim], box[dim], periodic),
				sep(lo1[dim] - hi2[dim], box[dim], periodic)),
			math.Min(sep(hi1[dim] - lo2[dim], box[dim], periodic),
				sep(hi1[dim] - hi2[dim], box[dim], periodic)),
		)
		r2 += d*d
	}

	return r2
}

func sep(dx, L float64, periodic bool) float64 {
	if periodic { dx = Nearest(dx, L) }
	return math.Abs(dx)
}

// MinDist2DiffSize returns a (signed) squared separation between a pair of
// cuboids with different widths: the squared distance between their centres
// minus half of the sum of their squared diagonals. It can be negative for
// overlapping cells.
func MinDist2DiffSize(ci, cj Cuboid, periodic bool, L r3.Vec) float64 {
	d := r3.Sub(ci.Center(), cj.Center())
	if periodic { d = NearestVec(d, L) }

	r2 := r3.Norm2(d)
	return r2 - (Diagonal2(ci.Width)/2 + Diagonal2(cj.Width)/2)
}

// Slice returns the components of v as a slice, e.g. for logging.
func Slice(v r3.Vec) []float64 { return []float64{ v.X, v.Y, v.Z } }
