/*package snapio reads and writes binary initial-condition files. Gadget-2
snapshots are the only supported format. Particle types map directly onto
particles.Species:

    0 gas, 1 dark_matter, 2 dark_matter_background,
    3 sink, 4 star, 5 black_hole
*/
package snapio

import (
	"encoding/binary"
	"fmt"
)

// ParseByteOrder converts "little" or "big" into a byte order. An empty
// string means little-endian.
func ParseByteOrder(name string) (binary.ByteOrder, error) {
	switch name {
	case "", "little": return binary.LittleEndian, nil
	case "big": return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("The byte order '%s' isn't recognized. It must " +
		"be either 'little' or 'big'.", name)
}
