package engine

import (
	"context"
	"fmt"

	"github.com/phil-mansfield/zoomgrid/lib/compress"
	"github.com/phil-mansfield/zoomgrid/lib/mpi"
	"github.com/phil-mansfield/zoomgrid/lib/particles"
)

// Message tags used when moving particles between nodes.
const (
	TagParticleFloats = 200 + iota
	TagParticleSpecies
)

// Each particle is sent as x, y, z, and mass.
const floatsPerParticle = 4

// redistribute sends every particle in p to the node returned by owner and
// returns the particles this node ends up with. Every node must call it.
func redistribute(
	ctx context.Context, comm mpi.Comm, p particles.Particles,
	owner func(x [3]float64) int,
) (particles.Particles, error) {
	nodes, me := comm.Size(), comm.Rank()

	floats := make([][]float64, nodes)
	species := make([][]int64, nodes)

	if p.Len() > 0 {
		pos, mass := p.Positions(), p.Masses()
		for i := range pos {
			to := owner(pos[i])
			if to < 0 || to >= nodes {
				return nil, fmt.Errorf("Particle %d was assigned to node " +
					"%d, but there are only %d nodes.", i, to, nodes)
			}
			floats[to] = append(floats[to], pos[i][0], pos[i][1], pos[i][2],
				mass[i])
			species[to] = append(species[to], int64(p.Species(i)))
		}
	}

	for to := 0; to < nodes; to++ {
		if to == me { continue }

		b, err := compress.EncodeFloat64s(floats[to])
		if err != nil { return nil, err }
		if err := comm.Send(ctx, to, TagParticleFloats, b); err != nil {
			return nil, err
		}

		b, err = compress.EncodeInts(species[to])
		if err != nil { return nil, err }
		if err := comm.Send(ctx, to, TagParticleSpecies, b); err != nil {
			return nil, err
		}
	}

	x := [][3]float64{ }
	mass := []float64{ }
	sp := []particles.Species{ }
	add := func(f []float64, s []int64) error {
		if len(f) != floatsPerParticle*len(s) {
			return fmt.Errorf("Received %d particle values for %d species.",
				len(f), len(s))
		}
		for i := range s {
			row := f[floatsPerParticle*i: floatsPerParticle*(i + 1)]
			x = append(x, [3]float64{ row[0], row[1], row[2] })
			mass = append(mass, row[3])
			sp = append(sp, particles.Species(s[i]))
		}
		return nil
	}

	for from := 0; from < nodes; from++ {
		if from == me {
			if err := add(floats[me], species[me]); err != nil {
				return nil, err
			}
			continue
		}

		b, err := comm.Recv(ctx, from, TagParticleFloats)
		if err != nil { return nil, err }
		f, err := compress.DecodeFloat64s(b)
		if err != nil { return nil, err }

		b, err = comm.Recv(ctx, from, TagParticleSpecies)
		if err != nil { return nil, err }
		s, err := compress.DecodeInts(b)
		if err != nil { return nil, err }

		if err := add(f, s); err != nil { return nil, err }
	}

	return particles.New(x, mass, sp)
}
