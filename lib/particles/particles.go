/*package particles contains functions for manipulating particles with generic
fields.*/
package particles

/* This file contains functions for managing particles and their fields. */

import (
	"fmt"
)

// Particles represents the particles in a simulation or chunk of a simulation.
// It maps the name of each field (e.g. 'x', 'mass', etc.) to a Field.
type Particles map[string]Field

// Field is a generic interface around a named array of particle properties.
type Field interface {
	// Len returns the length of the underlying array.
	Len() int
	// Data returns the underlying array as an interface{}.
	Data() interface{}
	// Transfer transfers data from the Field to the appropriately named field
	// in dest. Particles are transfer from the indices 'from' to the indices
	// 'to'. These indices are passed as arrays to amortize the cost of error
	// handling and type conversion.
	Transfer(dest Particles, from, to []int) error
	// CreateDestination creates output fields in p with the specified size
	// that have the correct names and types.
	CreateDestination(p Particles, n int)
}

// Type assertions
var (
	_ Field = &Uint32{ }
	_ Field = &Float64{ }
	_ Field = &Vec64{ }
)

func checkTransfer(name string, from, to []int) error {
	if len(from) != len(to) {
		return fmt.Errorf("'from' index array for '%s' has length %d, but " +
			"'to' has length %d.", name, len(from), len(to))
	}
	return nil
}

func missingField(name string) error {
	return fmt.Errorf("Destination Particles object does not contain the " +
		"field '%s'.", name)
}

func wrongType(name, typeName string) error {
	return fmt.Errorf("Field '%s' in destination Particles object does not " +
		"have %s type, as expected.", name, typeName)
}

// Uint32 implements the Field interface for []uint32 data. See the Field
// interface for documentation of this struct's methods.
type Uint32 struct {
	name string
	data []uint32
}

// NewUint32 creates a field with a given name assoicated with a given array.
func NewUint32(name string, x []uint32) *Uint32 {
	return &Uint32{ name, x }
}

func (x *Uint32) Len() int { return len(x.data) }
func (x *Uint32) Data() interface{} { return x.data }

func (x *Uint32) CreateDestination(p Particles, n int) {
	p[x.name] = NewUint32(x.name, make([]uint32, n))
}

func (x *Uint32) Transfer(dest Particles, from, to []int) error {
	if err := checkTransfer(x.name, from, to); err != nil { return err }

	destField, ok := dest[x.name]
	if !ok { return missingField(x.name) }
	destData, ok := destField.Data().([]uint32)
	if !ok { return wrongType(x.name, "[]uint32") }

	for i := range from {
		destData[to[i]] = x.data[from[i]]
	}

	return nil
}

// Float64 implements the Field interface for []float64 data. See the Field
// interface for documentation of this struct's methods.
type Float64 struct {
	name string
	data []float64
}

// NewFloat64 creates a field with a given name assoicated with a given array.
func NewFloat64(name string, x []float64) *Float64 {
	return &Float64{ name, x }
}

func (x *Float64) Len() int { return len(x.data) }
func (x *Float64) Data() interface{} { return x.data }

func (x *Float64) CreateDestination(p Particles, n int) {
	p[x.name] = NewFloat64(x.name, make([]float64, n))
}

func (x *Float64) Transfer(dest Particles, from, to []int) error {
	if err := checkTransfer(x.name, from, to); err != nil { return err }

	destField, ok := dest[x.name]
	if !ok { return missingField(x.name) }
	destData, ok := destField.Data().([]float64)
	if !ok { return wrongType(x.name, "[]float64") }

	for i := range from {
		destData[to[i]] = x.data[from[i]]
	}

	return nil
}

// Vec64 implements the Field interface for [][3]float64 data. See the Field
// interface for documentation of this struct's methods.
type Vec64 struct {
	name string
	data [][3]float64
}

// NewVec64 creates a field with a given name assoicated with a given array.
func NewVec64(name string, x [][3]float64) *Vec64 {
	return &Vec64{ name, x }
}

func (x *Vec64) Len() int { return len(x.data) }
func (x *Vec64) Data() interface{} { return x.data }

func (x *Vec64) CreateDestination(p Particles, n int) {
	p[x.name] = NewVec64(x.name, make([][3]float64, n))
}

func (x *Vec64) Transfer(dest Particles, from, to []int) error {
	if err := checkTransfer(x.name, from, to); err != nil { return err }

	destField, ok := dest[x.name]
	if !ok { return missingField(x.name) }
	destData, ok := destField.Data().([][3]float64)
	if !ok { return wrongType(x.name, "[][3]float64") }

	for i := range from {
		destData[to[i]] = x.data[from[i]]
	}

	return nil
}
