package snapio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/phil-mansfield/zoomgrid/lib/particles"
)

const (
	gadget2HeaderSize = 256
	nTypes = 6
)

// Gadget2Header has the same fields as the raw header block of a Gadget-2
// file.
type Gadget2Header struct {
	NPart [nTypes]uint32
	Mass [nTypes]float64
	Time, Redshift float64
	FlagSFR, FlagFeedback uint32
	NAll [nTypes]uint32
	FlagCooling, NumFiles uint32
	BoxSize, Omega0, OmegaLambda, HubbleParam float64
	FlagStellarAge, FlagMetals uint32
	NAllHW [nTypes]uint32
	FlagEntropyICs uint32
	Empty [60]byte
}

// N returns the number of particles in the file.
func (hd *Gadget2Header) N() int {
	n := 0
	for _, np := range hd.NPart { n += int(np) }
	return n
}

// nMass returns the number of entries in the mass block: only types without
// a fixed header mass store per-particle masses.
func (hd *Gadget2Header) nMass() int {
	n := 0
	for t := range hd.NPart {
		if hd.Mass[t] == 0 { n += int(hd.NPart[t]) }
	}
	return n
}

// blockReader reads the Fortran-style records of a Gadget-2 file. Each
// record is wrapped by markers holding its size in bytes.
type blockReader struct {
	rd io.Reader
	order binary.ByteOrder
	fileName string
}

func (b *blockReader) marker() (uint32, error) {
	n := uint32(0)
	if err := binary.Read(b.rd, b.order, &n); err != nil { return 0, err }
	return n, nil
}

// begin reads the marker at the start of the block name and checks that it
// holds one of the sizes in valid. The index of the matching size is
// returned.
func (b *blockReader) begin(name string, valid ...int) (int, uint32, error) {
	size, err := b.marker()
	if err != nil {
		return -1, 0, fmt.Errorf("Could not read the '%s' block of %s: %s",
			name, b.fileName, err.Error())
	}
	for i := range valid {
		if int(size) == valid[i] { return i, size, nil }
	}
	return -1, 0, fmt.Errorf("The '%s' block of %s has %d bytes, but " +
		"the header means it should have one of %v bytes. Either this " +
		"isn't a Gadget-2 file, the byte order is wrong, or the blocks " +
		"aren't in the order POS, VEL, ID, MASS.", name, b.fileName,
		size, valid)
}

func (b *blockReader) end(name string, size uint32) error {
	footer, err := b.marker()
	if err != nil {
		return fmt.Errorf("Could not read the end of the '%s' block of %s: " +
			"%s", name, b.fileName, err.Error())
	}
	if footer != size {
		return fmt.Errorf("%s is not a valid Gadget-2 file: the header, %d, " +
			"and footer, %d, of the '%s' block don't match.", b.fileName,
			size, footer, name)
	}
	return nil
}

func (b *blockReader) skip(name string, valid ...int) error {
	_, size, err := b.begin(name, valid...)
	if err != nil { return err }
	if _, err := io.CopyN(io.Discard, b.rd, int64(size)); err != nil {
		return fmt.Errorf("Could not read the '%s' block of %s: %s",
			name, b.fileName, err.Error())
	}
	return b.end(name, size)
}

// floats reads a block of n float32 or float64 values, depending on the size
// of the block.
func (b *blockReader) floats(name string, n int) ([]float64, error) {
	i, size, err := b.begin(name, 4*n, 8*n)
	if err != nil { return nil, err }

	out := make([]float64, n)
	if i == 0 {
		buf := make([]float32, n)
		err = binary.Read(b.rd, b.order, buf)
		for j := range buf { out[j] = float64(buf[j]) }
	} else {
		err = binary.Read(b.rd, b.order, out)
	}
	if err != nil {
		return nil, fmt.Errorf("Could not read the '%s' block of %s: %s",
			name, b.fileName, err.Error())
	}

	return out, b.end(name, size)
}

// ReadGadget2 reads the positions and masses of a Gadget-2 snapshot split
// across fileNames. Velocities and IDs are skipped. The header of the first
// file is returned.
func ReadGadget2(
	fileNames []string, order binary.ByteOrder,
) (particles.Particles, *Gadget2Header, error) {
	if len(fileNames) == 0 {
		return nil, nil, fmt.Errorf("No Gadget-2 files were given.")
	}

	ps := make([]particles.Particles, len(fileNames))
	var first *Gadget2Header
	for i, fileName := range fileNames {
		p, hd, err := readGadget2File(fileName, order)
		if err != nil { return nil, nil, err }

		numFiles := int(hd.NumFiles)
		if numFiles == 0 { numFiles = 1 }
		if numFiles != len(fileNames) {
			return nil, nil, fmt.Errorf("The header of %s says that the " +
				"snapshot is split across %d files, but %d files were given.",
				fileName, numFiles, len(fileNames))
		}

		ps[i] = p
		if i == 0 { first = hd }
	}

	p, err := particles.Join(ps...)
	if err != nil { return nil, nil, err }
	return p, first, nil
}

func readGadget2File(
	fileName string, order binary.ByteOrder,
) (particles.Particles, *Gadget2Header, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("The file %s cannot be opened. The " +
			"system error is: \"%s\"", fileName, err.Error())
	}
	defer f.Close()

	return readGadget2(bufio.NewReader(f), fileName, order)
}

func readGadget2(
	rd io.Reader, fileName string, order binary.ByteOrder,
) (particles.Particles, *Gadget2Header, error) {
	b := &blockReader{ rd, order, fileName }

	_, size, err := b.begin("HEAD", gadget2HeaderSize)
	if err != nil { return nil, nil, err }
	hd := &Gadget2Header{ }
	if err := binary.Read(rd, order, hd); err != nil {
		return nil, nil, fmt.Errorf("Could not read the header of %s: %s",
			fileName, err.Error())
	}
	if err := b.end("HEAD", size); err != nil { return nil, nil, err }

	n := hd.N()
	pos, err := b.floats("POS", 3*n)
	if err != nil { return nil, nil, err }
	if err := b.skip("VEL", 12*n, 24*n); err != nil { return nil, nil, err }
	if err := b.skip("ID", 4*n, 8*n); err != nil { return nil, nil, err }

	var blockMass []float64
	if nm := hd.nMass(); nm > 0 {
		if blockMass, err = b.floats("MASS", nm); err != nil {
			return nil, nil, err
		}
	}

	x := make([][3]float64, n)
	mass := make([]float64, n)
	species := make([]particles.Species, n)

	i, im := 0, 0
	for t := 0; t < nTypes; t++ {
		for j := 0; j < int(hd.NPart[t]); j++ {
			x[i] = [3]float64{ pos[3*i], pos[3*i + 1], pos[3*i + 2] }
			species[i] = particles.Species(t)
			if hd.Mass[t] == 0 {
				mass[i] = blockMass[im]
				im++
			} else {
				mass[i] = hd.Mass[t]
			}
			i++
		}
	}

	p, err := particles.New(x, mass, species)
	if err != nil { return nil, nil, err }
	return p, hd, nil
}
