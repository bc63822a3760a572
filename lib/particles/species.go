package particles

/* This file contains the fields that every zoomgrid particle set carries and
functions for splitting sets between ranks. */

import (
	"fmt"
)

// Species is the type of a particle.
type Species uint32

const (
	Gas Species = iota
	// DarkMatter particles are the high-resolution particles which define
	// the zoom region.
	DarkMatter
	// DarkMatterBackground particles are the low-resolution particles which
	// fill the rest of the volume.
	DarkMatterBackground
	Sink
	Star
	BlackHole
	NSpecies
)

var speciesNames = [NSpecies]string{
	"gas", "dark_matter", "dark_matter_background", "sink", "star", "black_hole",
}

func (s Species) String() string {
	if s >= NSpecies { return fmt.Sprintf("Species(%d)", uint32(s)) }
	return speciesNames[s]
}

// ParseSpecies converts the name of a species (as returned by String) into a
// Species.
func ParseSpecies(name string) (Species, error) {
	for i := range speciesNames {
		if speciesNames[i] == name { return Species(i), nil }
	}
	return 0, fmt.Errorf("Unrecognized particle species '%s'.", name)
}

// IsHighRes returns true if particles of this species define the extent of
// the zoom region.
func (s Species) IsHighRes() bool { return s == DarkMatter }

// Names of the fields in every zoomgrid Particles object.
const (
	PositionField = "x"
	MassField = "mass"
	SpeciesField = "species"
)

// New creates a Particles object from positions, masses, and species.
func New(x [][3]float64, mass []float64, species []Species) (Particles, error) {
	if len(x) != len(mass) || len(x) != len(species) {
		return nil, fmt.Errorf("Particle arrays have inconsistent lengths: " +
			"len(x) = %d, len(mass) = %d, len(species) = %d.",
			len(x), len(mass), len(species))
	}

	sp := make([]uint32, len(species))
	for i := range species {
		if species[i] >= NSpecies {
			return nil, fmt.Errorf("Particle %d has unrecognized species %d.",
				i, uint32(species[i]))
		}
		sp[i] = uint32(species[i])
	}

	return Particles{
		PositionField: NewVec64(PositionField, x),
		MassField: NewFloat64(MassField, mass),
		SpeciesField: NewUint32(SpeciesField, sp),
	}, nil
}

// Len returns the number of particles.
func (p Particles) Len() int {
	if f, ok := p[PositionField]; ok { return f.Len() }
	return 0
}

// Positions returns the position array. It panics if p wasn't created by
// New.
func (p Particles) Positions() [][3]float64 {
	return p[PositionField].Data().([][3]float64)
}

// Masses returns the mass array.
func (p Particles) Masses() []float64 {
	return p[MassField].Data().([]float64)
}

// Species returns the species of particle i.
func (p Particles) Species(i int) Species {
	return Species(p[SpeciesField].Data().([]uint32)[i])
}

// Split splits p into n contiguous chunks of nearly equal size, e.g. one per
// rank. Every field is transferred.
func Split(p Particles, n int) ([]Particles, error) {
	if n <= 0 {
		return nil, fmt.Errorf("Can't split particles into %d chunks.", n)
	}

	out := make([]Particles, n)
	N := p.Len()
	for i := range out {
		start, end := i*N/n, (i + 1)*N/n
		from := make([]int, end - start)
		to := make([]int, end - start)
		for j := range from {
			from[j], to[j] = start + j, j
		}

		out[i] = Particles{ }
		for _, field := range p {
			field.CreateDestination(out[i], len(from))
		}
		for _, field := range p {
			if err := field.Transfer(out[i], from, to); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// Join concatenates several particle sets created by New, in order.
func Join(ps ...Particles) (Particles, error) {
	x := [][3]float64{ }
	mass := []float64{ }
	species := []Species{ }
	for _, p := range ps {
		if p.Len() == 0 { continue }
		x = append(x, p.Positions()...)
		mass = append(mass, p.Masses()...)
		for i := 0; i < p.Len(); i++ {
			species = append(species, p.Species(i))
		}
	}
	return New(x, mass, species)
}
