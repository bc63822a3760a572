/*package compress packs the integer and floating point arrays that ranks send
to one another into compact byte buffers.

Arrays are split into eight byte-significance "columns", each of which is
compressed separately with zstd. Sorted integer arrays (e.g. cell IDs) are
delta encoded first, so the high-significance columns compress to basically
nothing.
*/
package compress

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/DataDog/zstd"
)

// Level is the zstd compression level. Payloads are small and latency
// matters more than ratio.
const Level = 1

// EncodeInts delta encodes x and compresses it into a byte buffer. x is not
// modified.
func EncodeInts(x []int64) ([]byte, error) {
	q := make([]int64, len(x))
	DeltaEncode(0, x, q)

	out := &bytes.Buffer{ }
	if err := binary.Write(out, binary.LittleEndian, int64(len(q))); err != nil {
		return nil, err
	}
	if _, err := WriteCompressedIntsZStd(q, make([]byte, len(q)), nil, out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecodeInts is the inverse of EncodeInts.
func DecodeInts(b []byte) ([]int64, error) {
	rd := bytes.NewReader(b)
	n := int64(0)
	if err := binary.Read(rd, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n < 0 || n > int64(len(b))*8 {
		return nil, fmt.Errorf("Corrupted int array header: length %d.", n)
	}

	q := make([]int64, n)
	if _, _, err := ReadCompressedIntsZStd(rd, nil, nil, q); err != nil {
		return nil, err
	}
	DeltaDecode(0, q, q)
	return q, nil
}

// EncodeFloat64s compresses x into a byte buffer. No quantization is done, so
// the round trip is exact.
func EncodeFloat64s(x []float64) ([]byte, error) {
	q := make([]int64, len(x))
	for i := range x { q[i] = int64(math.Float64bits(x[i])) }

	out := &bytes.Buffer{ }
	if err := binary.Write(out, binary.LittleEndian, int64(len(q))); err != nil {
		return nil, err
	}
	if _, err := WriteCompressedIntsZStd(q, make([]byte, len(q)), nil, out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecodeFloat64s is the inverse of EncodeFloat64s.
func DecodeFloat64s(b []byte) ([]float64, error) {
	rd := bytes.NewReader(b)
	n := int64(0)
	if err := binary.Read(rd, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n < 0 || n > int64(len(b))*8 {
		return nil, fmt.Errorf("Corrupted float array header: length %d.", n)
	}

	q := make([]int64, n)
	if _, _, err := ReadCompressedIntsZStd(rd, nil, nil, q); err != nil {
		return nil, err
	}
	x := make([]float64, n)
	for i := range q { x[i] = math.Float64frombits(uint64(q[i])) }
	return x, nil
}

// intToByte transfers a one-byte "column" from i64 to b. The bytes are indexed
// from least to most significant.
func intToByte(i64 []int64, b []byte, col int) {
	for i := range i64 {
		b[i] = byte((uint64(i64[i]) >> (8*col)) & 0xff)
	}
}

// byteToInt adds a one-byte column
func byteToInt(b []byte, i64 []int64, col int) {
	for i := range i64 {
		i64[i] += int64(uint64(b[i]) << (8*col))
	}
}

// resizeBytes resizes a byte buffer to have length n.
func resizeBytes(b []byte, n int) []byte {
	if cap(b) >= n {
		b = b[:n]
	} else {
		b = b[:cap(b)]
		b = append(b, make([]byte, n - len(b))...)
	}

	return b
}

// WriteCompressedIntsZStd writes an array of ints, q, to an io.Writer using
// column-ordered zstd blocks. b is used as a temporary internal buffer
// and must be the same length as q. buf is a buffer used internally and will
// be resized as needed and returned.
func WriteCompressedIntsZStd(
	q []int64, b, buf []byte, wr io.Writer,
) ([]byte, error) {

	if len(q) != len(b) {
		panic(fmt.Sprintf("Internal error: output byte buffer has length %d,"+
			" but int array had length %d.", len(b), len(q)))
	}

	for i := 0; i < 8; i++ {
		// Each column gets its own frame so the mostly-empty high bytes
		// don't share a dictionary with the noisy low bytes.
		intToByte(q, b, i)

		var err error
		buf, err = zstd.CompressLevel(buf, b, Level)
		if err != nil { return nil, err }

		err = binary.Write(wr, binary.LittleEndian, int64(len(buf)))
		if err != nil { return nil, err }

		_, err = wr.Write(buf)
		if err != nil { return nil, err }
	}

	return buf[:0], nil
}

// ReadCompressedIntsZStd reads an array of ints, q, from an io.Reader using
// column-ordered zstd blocks. q must be zeroed and have the length of the
// original array. b and buf are used as a temporary internal buffers and will
// be resized as needed. Resized versions are returned by the function.
func ReadCompressedIntsZStd(
	rd io.Reader, b, buf []byte, q []int64,
) (bOut, bufOut []byte, err error) {
	b = resizeBytes(b, len(q))

	for i := 0; i < 8; i++ {
		nBuf := int64(0)
		err := binary.Read(rd, binary.LittleEndian, &nBuf)
		if err != nil { return nil, nil, err }
		if nBuf < 0 {
			return nil, nil, fmt.Errorf("Corrupted block length %d.", nBuf)
		}

		buf = resizeBytes(buf, int(nBuf))
		_, err = io.ReadFull(rd, buf)
		if err != nil { return nil, nil, err }

		b, err = zstd.Decompress(b, buf)
		if err != nil { return nil, nil, err }
		if len(b) != len(q) {
			return nil, nil, fmt.Errorf("Column %d decompressed to %d bytes, " +
				"but %d were expected.", i, len(b), len(q))
		}

		byteToInt(b, q, i)
	}

	return b[:0], buf[:0], nil
}

// DeltaEncode delta encodes the array x into the array out. The element
// before x[0] is taken to be offset. x and out can be the same array.
func DeltaEncode(offset int64, x, out []int64) {
	if len(x) != len(out) {
		panic(fmt.Sprintf("Internal error: len(x) = %d, but len(out) = " +
			"%d in DeltaEncode", len(x), len(out)))
	}
	if len(x) == 0 { return }

	// Loop this way so DeltaEncode can be called in place.
	prev := x[0]
	out[0] = prev - offset
	for i := 1; i < len(x); i++ {
		next := x[i]
		out[i] = next - prev
		prev = next
	}
}

// DeltaDecode decodes an integer array encoded with DeltaEncode.
func DeltaDecode(offset int64, x, out []int64) {
	if len(x) != len(out) {
		panic(fmt.Sprintf("Internal error: len(x) = %d, but len(out) = " +
			"%d in DeltaDecode", len(x), len(out)))
	}
	if len(x) == 0 { return }

	out[0] = offset + x[0]
	for i := 1; i < len(out); i++ {
		out[i] = out[i-1] + x[i]
	}
}
