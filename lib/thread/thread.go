/*package thread contains functions useful for multi-threading.*/
package thread

import (
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Set sets the number of threads used by the process. n = -1 means every
// available core.
func Set(n int) (int, error) {
	if n == -1 { n = runtime.NumCPU() }
	if n <= 0 {
		return 0, fmt.Errorf("%d threads requested, but the thread count " +
			"must be positive or -1.", n)
	} else if n > runtime.NumCPU() {
		return 0, fmt.Errorf("%d threads requested, but your system only " +
			"has %d cores per node. If you want zoomgrid to use the maximum " +
			"number of threads per node, set Threads = -1.", n, runtime.NumCPU())
	}

	runtime.GOMAXPROCS(n)
	return n, nil
}

// Map splits the range [0, n) into chunks of at most chunk elements and calls
// f(start, end) on each of them using up to threads goroutines. threads <= 0
// means GOMAXPROCS goroutines.
func Map(n, chunk, threads int, f func(start, end int)) {
	if n <= 0 { return }
	if chunk <= 0 { chunk = n }
	if threads <= 0 { threads = runtime.GOMAXPROCS(0) }

	if threads == 1 || n <= chunk {
		f(0, n)
		return
	}

	p := pool.New().WithMaxGoroutines(threads)
	for start := 0; start < n; start += chunk {
		start, end := start, start + chunk
		if end > n { end = n }
		p.Go(func() { f(start, end) })
	}
	p.Wait()
}

// MapErr is Map for functions which can fail. Every chunk is run and the
// first error to occur is returned.
func MapErr(n, chunk, threads int, f func(start, end int) error) error {
	if n <= 0 { return nil }
	if chunk <= 0 { chunk = n }
	if threads <= 0 { threads = runtime.GOMAXPROCS(0) }

	if threads == 1 || n <= chunk { return f(0, n) }

	p := pool.New().WithErrors().WithFirstError().WithMaxGoroutines(threads)
	for start := 0; start < n; start += chunk {
		start, end := start, start + chunk
		if end > n { end = n }
		p.Go(func() error { return f(start, end) })
	}
	return p.Wait()
}
