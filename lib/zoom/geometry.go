/*package zoom computes the geometry of a zoom region: the cuboid around the
high-resolution particles of a simulation which gets its own, finer grid of
top-level cells. It also fixes the dimensions of both the zoom grid and the
coarse background grid which surrounds it.
*/
package zoom

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
	"github.com/phil-mansfield/zoomgrid/lib/geom"
	"github.com/phil-mansfield/zoomgrid/lib/mpi"
	"github.com/phil-mansfield/zoomgrid/lib/particles"
)

// Domain describes the (cubic) simulation volume.
type Domain struct {
	BoxSize float64
	Periodic bool
}

// Dim returns the side lengths of the box as a vector.
func (d Domain) Dim() r3.Vec { return r3.Vec{ X: d.BoxSize, Y: d.BoxSize, Z: d.BoxSize } }

// Geometry is the extent and centre of mass of the high-resolution particles
// across every rank.
type Geometry struct {
	Bounds r3.Box
	CoM r3.Vec
	Mass float64
	N int
}

// Dim returns the side lengths of the bounding box.
func (g Geometry) Dim() r3.Vec { return g.Bounds.Size() }

// Midpoint returns the centre of the bounding box.
func (g Geometry) Midpoint() r3.Vec { return g.Bounds.Center() }

// Estimate finds the bounding box and centre of mass of the high-resolution
// particles in p after they have been moved by shift (and wrapped into the box
// if the domain is periodic). Every rank in comm must call Estimate with its
// own particles and gets the same answer.
//
// A Geometry error is returned if the particles span more than half the box
// along any axis, since a region that large can't be unambiguously centred.
func Estimate(
	ctx context.Context, comm mpi.Comm, p particles.Particles,
	dom Domain, shift r3.Vec, log zerolog.Logger,
) (Geometry, error) {
	box := dom.Dim()

	// min x, y, z, then -max x, y, z so a single Min reduction works.
	ext := []float64{
		math.Inf(1), math.Inf(1), math.Inf(1),
		math.Inf(1), math.Inf(1), math.Inf(1),
	}
	// mass, mass*x, mass*y, mass*z, count
	sums := make([]float64, 5)

	if p.Len() > 0 {
		pos, mass := p.Positions(), p.Masses()
		for i := range pos {
			if !p.Species(i).IsHighRes() { continue }

			x := r3.Add(geom.Vec(pos[i]), shift)
			if dom.Periodic { x = geom.WrapVec(x, box) }

			ext[0], ext[3] = math.Min(ext[0], x.X), math.Min(ext[3], -x.X)
			ext[1], ext[4] = math.Min(ext[1], x.Y), math.Min(ext[4], -x.Y)
			ext[2], ext[5] = math.Min(ext[2], x.Z), math.Min(ext[5], -x.Z)

			sums[0] += mass[i]
			sums[1] += mass[i]*x.X
			sums[2] += mass[i]*x.Y
			sums[3] += mass[i]*x.Z
			sums[4]++
		}
	}

	if err := mpi.AllreduceFloat64(ctx, comm, mpi.Min, ext); err != nil {
		return Geometry{ }, err
	}
	if err := mpi.AllreduceFloat64(ctx, comm, mpi.Sum, sums); err != nil {
		return Geometry{ }, err
	}

	if sums[4] == 0 {
		return Geometry{ }, zerr.Geometryf("There are no high-resolution " +
			"(%s) particles to define the zoom region with.",
			particles.DarkMatter)
	} else if sums[0] <= 0 {
		return Geometry{ }, zerr.Geometryf("The high-resolution particles " +
			"have a total mass of %g.", sums[0])
	}

	geo := Geometry{
		Bounds: r3.Box{
			Min: r3.Vec{ X: ext[0], Y: ext[1], Z: ext[2] },
			Max: r3.Vec{ X: -ext[3], Y: -ext[4], Z: -ext[5] },
		},
		CoM: r3.Scale(1/sums[0], r3.Vec{ X: sums[1], Y: sums[2], Z: sums[3] }),
		Mass: sums[0],
		N: int(sums[4]),
	}

	log.Debug().
		Floats64("com", geom.Slice(geo.CoM)).
		Floats64("initial_dim", geom.Slice(geo.Dim())).
		Floats64("initial_min", geom.Slice(geo.Bounds.Min)).
		Floats64("initial_max", geom.Slice(geo.Bounds.Max)).
		Msg("Found high-resolution particle extent.")

	dim := geom.Array(geo.Dim())
	fix := [3]float64{ }
	tooBig := false
	for ax := range dim {
		if dim[ax] > dom.BoxSize/2 {
			fix[ax] = dom.BoxSize/2
			tooBig = true
		}
	}
	if tooBig {
		return geo, zerr.Geometryf("Zoom region extends beyond the " +
			"boundaries of the box. Shift the ICs by [%g, %g, %g]",
			fix[0], fix[1], fix[2])
	}

	return geo, nil
}
