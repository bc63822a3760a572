package snapio

import (
	"encoding/binary"
	"io"

	"github.com/phil-mansfield/zoomgrid/lib/particles"
)

// WriteGadget2 writes p to w as one file of a Gadget-2 snapshot with float32
// positions and masses, zero velocities, and uint32 IDs. The particle counts
// and masses in hd are overwritten and the remaining fields are written as
// given. Particles are reordered by species and every type stores its
// masses in the MASS block.
func WriteGadget2(
	w io.Writer, order binary.ByteOrder, hd Gadget2Header, p particles.Particles,
) error {
	n := p.Len()
	byType := [nTypes][]int{ }
	for i := 0; i < n; i++ {
		t := int(p.Species(i))
		byType[t] = append(byType[t], i)
	}

	for t := range byType {
		hd.NPart[t] = uint32(len(byType[t]))
		hd.Mass[t] = 0
	}

	pos := make([][3]float32, 0, n)
	mass := make([]float32, 0, n)
	var x [][3]float64
	var m []float64
	if n > 0 { x, m = p.Positions(), p.Masses() }
	for t := range byType {
		for _, i := range byType[t] {
			pos = append(pos, [3]float32{
				float32(x[i][0]), float32(x[i][1]), float32(x[i][2]) })
			mass = append(mass, float32(m[i]))
		}
	}

	id := make([]uint32, n)
	for i := range id { id[i] = uint32(i + 1) }

	blocks := []struct{
		size int
		data interface{}
	}{
		{ gadget2HeaderSize, &hd },
		{ 12*n, pos },
		{ 12*n, make([][3]float32, n) },
		{ 4*n, id },
		{ 4*n, mass },
	}

	for _, b := range blocks {
		if err := writeBlock(w, order, uint32(b.size), b.data); err != nil {
			return err
		}
	}
	return nil
}

func writeBlock(
	w io.Writer, order binary.ByteOrder, size uint32, data interface{},
) error {
	if err := binary.Write(w, order, size); err != nil { return err }
	if err := binary.Write(w, order, data); err != nil { return err }
	return binary.Write(w, order, size)
}
