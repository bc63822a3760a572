/*package mpi is a small message-passing layer with the same shape as MPI:
a fixed number of ranks which exchange tagged byte buffers and take part in
collective reductions.

The only transport is an in-process World where every rank is a goroutine.
Library code talks to a Comm, so nothing outside this package needs to know
that.
*/
package mpi

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// Comm is a communicator for a single rank.
type Comm interface {
	// Rank returns the rank of this communicator, in [0, Size()).
	Rank() int
	// Size returns the total number of ranks.
	Size() int
	// Send sends data to rank to. Sends to the same destination with the
	// same tag are received in order.
	Send(ctx context.Context, to, tag int, data []byte) error
	// Recv receives the next message from rank from with the given tag.
	Recv(ctx context.Context, from, tag int) ([]byte, error)
}

// Reserved tags. User tags should be non-negative.
const (
	tagReduce = -1 - iota
	tagBcast
)

// mailboxSize is the number of messages which can be in flight between one
// pair of ranks on a single tag before Send blocks.
const mailboxSize = 64

type route struct {
	from, to, tag int
}

// World is a set of ranks which all live inside the current process.
type World struct {
	size int
	mu sync.Mutex
	boxes map[route]chan []byte
}

// NewWorld creates a World with n ranks.
func NewWorld(n int) *World {
	if n <= 0 { panic(fmt.Sprintf("mpi.NewWorld called with %d ranks.", n)) }
	return &World{ size: n, boxes: map[route]chan []byte{ } }
}

// Size returns the number of ranks in the world.
func (w *World) Size() int { return w.size }

// Comm returns the communicator for a given rank.
func (w *World) Comm(rank int) Comm {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("Rank %d is not in a world of size %d.", rank, w.size))
	}
	return &localComm{ w, rank }
}

// Run calls f once per rank, each on its own goroutine, and waits for all of
// them to finish. The first error cancels the context passed to every other
// rank and is returned.
func (w *World) Run(
	ctx context.Context, f func(ctx context.Context, comm Comm) error,
) error {
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for rank := 0; rank < w.size; rank++ {
		comm := w.Comm(rank)
		p.Go(func(ctx context.Context) error { return f(ctx, comm) })
	}
	return p.Wait()
}

func (w *World) mailbox(r route) chan []byte {
	w.mu.Lock()
	defer w.mu.Unlock()

	box, ok := w.boxes[r]
	if !ok {
		box = make(chan []byte, mailboxSize)
		w.boxes[r] = box
	}
	return box
}

type localComm struct {
	w *World
	rank int
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.w.size }

func (c *localComm) Send(ctx context.Context, to, tag int, data []byte) error {
	if to < 0 || to >= c.w.size {
		return fmt.Errorf("Rank %d sent a message to non-existent rank %d.",
			c.rank, to)
	}

	// The receiver owns the buffer after this.
	msg := append([]byte(nil), data...)
	select {
	case c.w.mailbox(route{ c.rank, to, tag }) <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *localComm) Recv(ctx context.Context, from, tag int) ([]byte, error) {
	if from < 0 || from >= c.w.size {
		return nil, fmt.Errorf("Rank %d tried to receive from non-existent " +
			"rank %d.", c.rank, from)
	}

	select {
	case msg := <-c.w.mailbox(route{ from, c.rank, tag }):
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Op is a reduction operation.
type Op int

const (
	Sum Op = iota
	Min
	Max
)

func (op Op) apply(x, y float64) float64 {
	switch op {
	case Min: return math.Min(x, y)
	case Max: return math.Max(x, y)
	}
	return x + y
}

// AllreduceFloat64 reduces buf element-wise across every rank and stores the
// result in buf on every rank. Every rank must call it with a buffer of the
// same length. The reduction is done in rank order on rank 0, so every rank
// gets bitwise-identical results.
func AllreduceFloat64(ctx context.Context, comm Comm, op Op, buf []float64) error {
	if comm.Size() == 1 { return nil }

	if comm.Rank() != 0 {
		if err := comm.Send(ctx, 0, tagReduce, EncodeFloat64s(buf)); err != nil {
			return err
		}
		msg, err := comm.Recv(ctx, 0, tagReduce)
		if err != nil { return err }
		return decodeInto(msg, buf)
	}

	in := make([]float64, len(buf))
	for rank := 1; rank < comm.Size(); rank++ {
		msg, err := comm.Recv(ctx, rank, tagReduce)
		if err != nil { return err }
		if err := decodeInto(msg, in); err != nil { return err }
		for i := range buf { buf[i] = op.apply(buf[i], in[i]) }
	}

	out := EncodeFloat64s(buf)
	for rank := 1; rank < comm.Size(); rank++ {
		if err := comm.Send(ctx, rank, tagReduce, out); err != nil {
			return err
		}
	}
	return nil
}

// Bcast copies data from root to every other rank and returns it.
func Bcast(ctx context.Context, comm Comm, root int, data []byte) ([]byte, error) {
	if comm.Rank() != root { return comm.Recv(ctx, root, tagBcast) }

	for rank := 0; rank < comm.Size(); rank++ {
		if rank == root { continue }
		if err := comm.Send(ctx, rank, tagBcast, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Barrier blocks until every rank has called it.
func Barrier(ctx context.Context, comm Comm) error {
	return AllreduceFloat64(ctx, comm, Sum, []float64{ 0 })
}

// EncodeFloat64s encodes x as little-endian bytes.
func EncodeFloat64s(x []float64) []byte {
	out := make([]byte, 8*len(x))
	for i := range x {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(x[i]))
	}
	return out
}

// DecodeFloat64s is the inverse of EncodeFloat64s.
func DecodeFloat64s(b []byte) ([]float64, error) {
	if len(b) % 8 != 0 {
		return nil, fmt.Errorf("Buffer of length %d can't hold float64s.", len(b))
	}
	out := make([]float64, len(b)/8)
	return out, decodeInto(b, out)
}

func decodeInto(b []byte, out []float64) error {
	if len(b) != 8*len(out) {
		return fmt.Errorf("Expected %d float64s, but got %d bytes.",
			len(out), len(b))
	}
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return nil
}
