/*package catio reads particle catalogues stored as text tables. Each
non-comment line holds one particle:

    x y z mass species

where species is either an integer or a name like "dark_matter".
*/
package catio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/phil-mansfield/zoomgrid/lib/particles"
)

// TextConfig contains information neccessary for parsing catalogues.
type TextConfig struct {
	Separator byte // Character used to separated fields. 0 means whitespace.
	Comment byte // Character used to start comments.
	SkipLines int // Number of lines to skip at the start of file.
	MaxLineSize int // Largest possible line size.
}

// DefaultConfig is a TextConfig instance which reads whitespace-separated
// files with '#' comments.
var DefaultConfig = TextConfig{
	Separator: 0,
	Comment: '#',
	SkipLines: 0,
	MaxLineSize: 1<<20,
}

const nColumns = 5

// TextFile reads the particles in a text file.
func TextFile(fname string, config ...TextConfig) (particles.Particles, error) {
	f, err := os.Open(fname)
	if err != nil { return nil, err }
	defer f.Close()

	p, err := Read(f, config...)
	if err != nil {
		return nil, fmt.Errorf("Could not read '%s': %s", fname, err.Error())
	}
	return p, nil
}

// Text reads the particles in a block of text.
func Text(text []byte, config ...TextConfig) (particles.Particles, error) {
	return Read(bytes.NewReader(text), config...)
}

// Read reads particles from rd. An optional config can be provided,
// otherwise DefaultConfig will be used.
func Read(rd io.Reader, config ...TextConfig) (particles.Particles, error) {
	cfg := DefaultConfig
	if len(config) > 0 { cfg = config[0] }
	if cfg.MaxLineSize <= 0 { cfg.MaxLineSize = DefaultConfig.MaxLineSize }

	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 4096), cfg.MaxLineSize)

	x := [][3]float64{ }
	mass := []float64{ }
	species := []particles.Species{ }

	for line := 1; sc.Scan(); line++ {
		if line <= cfg.SkipLines { continue }

		text := uncomment(sc.Text(), cfg.Comment)
		cols := fields(text, cfg.Separator)
		if len(cols) == 0 { continue }
		if len(cols) != nColumns {
			return nil, fmt.Errorf("Line %d has %d columns, but %d were " +
				"expected (x y z mass species).", line, len(cols), nColumns)
		}

		var row [4]float64
		for i := range row {
			v, err := strconv.ParseFloat(cols[i], 64)
			if err != nil {
				return nil, fmt.Errorf("Could not parse column %d of line " +
					"%d, '%s', as a number.", i + 1, line, cols[i])
			}
			row[i] = v
		}

		sp, err := parseSpecies(cols[4])
		if err != nil { return nil, fmt.Errorf("Line %d: %s", line, err.Error()) }

		x = append(x, [3]float64{ row[0], row[1], row[2] })
		mass = append(mass, row[3])
		species = append(species, sp)
	}
	if err := sc.Err(); err != nil { return nil, err }

	return particles.New(x, mass, species)
}

func uncomment(line string, comment byte) string {
	if comment == 0 { return line }
	if i := strings.IndexByte(line, comment); i >= 0 { return line[:i] }
	return line
}

func fields(line string, sep byte) []string {
	if sep == 0 { return strings.Fields(line) }

	line = strings.TrimSpace(line)
	if line == "" { return nil }
	cols := strings.Split(line, string(sep))
	for i := range cols { cols[i] = strings.TrimSpace(cols[i]) }
	return cols
}

func parseSpecies(col string) (particles.Species, error) {
	if n, err := strconv.Atoi(col); err == nil {
		if n < 0 || n >= int(particles.NSpecies) {
			return 0, fmt.Errorf("Species %d is out of range.", n)
		}
		return particles.Species(n), nil
	}
	return particles.ParseSpecies(col)
}
