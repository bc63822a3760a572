package particles

import (
	"testing"

	"github.com/phil-mansfield/zoomgrid/lib/eq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint32(t *testing.T) {
	out := []uint32{42, 0, 23, 0, 16, 0, 15, 0, 8, 0, 4, 0}
	data := []uint32{4, 8, 15, 16, 23, 42}
	from := []int{ 5, 4, 3, 2, 1, 0 }
	to := []int{ 0, 2, 4, 6, 8, 10 }
	name := "test_value"

	x := NewUint32(name, data)
	if x.Len() != len(data) {
		t.Fatalf("Expected x.Len() = %d, got %d.", len(data), x.Len())
	}

	p := Particles{ }
	x.CreateDestination(p, len(out))
	if _, ok := p[name]; !ok {
		t.Fatalf("Expected Particles to gain '%s' field, but it wasn't added.",
			name)
	}

	require.NoError(t, x.Transfer(p, from, to))
	assert.Equal(t, out, p[name].Data())
}

func TestFloat64(t *testing.T) {
	out := []float64{42, 0, 23, 0, 16, 0, 15, 0, 8, 0, 4, 0}
	data := []float64{4, 8, 15, 16, 23, 42}
	from := []int{ 5, 4, 3, 2, 1, 0 }
	to := []int{ 0, 2, 4, 6, 8, 10 }
	name := "test_value"

	x := NewFloat64(name, data)
	p := Particles{ }
	x.CreateDestination(p, len(out))

	require.NoError(t, x.Transfer(p, from, to))
	if !eq.Float64s(out, p[name].Data().([]float64)) {
		t.Errorf("Expected p['%s'] = %v, got %v.", name, out, p[name].Data())
	}
}

func TestVec64(t *testing.T) {
	data := [][3]float64{{1, 2, 3}, {4, 5, 6}}
	x := NewVec64("x", data)
	p := Particles{ }
	x.CreateDestination(p, 3)

	require.NoError(t, x.Transfer(p, []int{1, 0}, []int{0, 2}))
	if !eq.Vec64s([][3]float64{{4, 5, 6}, {0, 0, 0}, {1, 2, 3}},
		p["x"].Data().([][3]float64)) {
		t.Errorf("Got %v.", p["x"].Data())
	}
}

func TestTransferErrors(t *testing.T) {
	x := NewFloat64("m", []float64{ 1, 2 })

	assert.Error(t, x.Transfer(Particles{ }, []int{0}, []int{0}))
	p := Particles{ "m": NewUint32("m", []uint32{ 0 }) }
	assert.Error(t, x.Transfer(p, []int{0}, []int{0}))
	x.CreateDestination(p, 2)
	assert.Error(t, x.Transfer(p, []int{0, 1}, []int{0}))
}

func TestSpecies(t *testing.T) {
	for s := Species(0); s < NSpecies; s++ {
		s2, err := ParseSpecies(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, s2)
	}
	_, err := ParseSpecies("neutrino")
	assert.Error(t, err)

	assert.True(t, DarkMatter.IsHighRes())
	assert.False(t, DarkMatterBackground.IsHighRes())
	assert.False(t, Gas.IsHighRes())
}

func TestNew(t *testing.T) {
	_, err := New(make([][3]float64, 2), make([]float64, 1),
		make([]Species, 2))
	assert.Error(t, err)
	_, err = New(make([][3]float64, 1), make([]float64, 1),
		[]Species{ NSpecies })
	assert.Error(t, err)

	p, err := New([][3]float64{{1, 1, 1}, {2, 2, 2}}, []float64{ 3, 4 },
		[]Species{ DarkMatter, Star })
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, Star, p.Species(1))
	assert.Equal(t, []float64{ 3, 4 }, p.Masses())
	assert.Equal(t, [3]float64{2, 2, 2}, p.Positions()[1])
}

func TestSplit(t *testing.T) {
	n := 10
	x := make([][3]float64, n)
	mass := make([]float64, n)
	species := make([]Species, n)
	for i := range x {
		x[i] = [3]float64{ float64(i), 0, 0 }
		mass[i] = float64(i)
		species[i] = Species(i % int(NSpecies))
	}
	p, err := New(x, mass, species)
	require.NoError(t, err)

	chunks, err := Split(p, 3)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	total, next := 0, 0
	for _, c := range chunks {
		total += c.Len()
		for i := 0; i < c.Len(); i++ {
			assert.Equal(t, float64(next), c.Masses()[i])
			assert.Equal(t, Species(next % int(NSpecies)), c.Species(i))
			next++
		}
	}
	assert.Equal(t, n, total)

	_, err = Split(p, 0)
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	a, err := New([][3]float64{ {1, 1, 1} }, []float64{ 1 }, []Species{ Gas })
	require.NoError(t, err)
	b, err := New([][3]float64{ {2, 2, 2}, {3, 3, 3} }, []float64{ 2, 3 },
		[]Species{ Star, DarkMatter })
	require.NoError(t, err)

	p, err := Join(a, Particles{ }, b)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []float64{ 1, 2, 3 }, p.Masses())
	assert.Equal(t, DarkMatter, p.Species(2))

	chunks, err := Split(p, 2)
	require.NoError(t, err)
	q, err := Join(chunks...)
	require.NoError(t, err)
	assert.Equal(t, p.Positions(), q.Positions())

	empty, err := Join()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}
