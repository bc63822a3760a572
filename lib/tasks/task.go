/*package tasks turns the top-level cells into the self and pair tasks that
make up the top of a simulation's task graph.

Tasks are handed to a Scheduler as they're found. List is a Scheduler which
simply keeps them.
*/
package tasks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Type is the shape of a task.
type Type uint8

const (
	Self Type = iota
	Pair
	FOFSelf
	FOFPair
)

func (t Type) String() string {
	switch t {
	case Self: return "self"
	case Pair: return "pair"
	case FOFSelf: return "fof_self"
	case FOFPair: return "fof_pair"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Subtype is the physics a task does.
type Subtype uint8

const (
	None Subtype = iota
	Density
	Grav
)

func (s Subtype) String() string {
	switch s {
	case None: return "none"
	case Density: return "density"
	case Grav: return "grav"
	}
	return fmt.Sprintf("Subtype(%d)", int(s))
}

// Task is a top-level task. Cj is -1 for self tasks. For hydro pairs, Flags
// is the sort direction of Cj relative to Ci.
type Task struct {
	Type Type
	Subtype Subtype
	Flags int
	Ci, Cj int
}

func (t Task) String() string {
	if t.Cj < 0 {
		return fmt.Sprintf("%s/%s(%d)", t.Type, t.Subtype, t.Ci)
	}
	return fmt.Sprintf("%s/%s(%d, %d; %d)", t.Type, t.Subtype, t.Ci, t.Cj, t.Flags)
}

// IsPair returns true if the task has two cells.
func (t Task) IsPair() bool { return t.Type == Pair || t.Type == FOFPair }

// Scheduler receives tasks. AddTask may be called from several goroutines at
// once.
type Scheduler interface {
	AddTask(t Task)
}

var tasksAdded = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "zoomgrid",
		Subsystem: "tasks",
		Name: "added_total",
		Help: "Top-level tasks registered with a task list.",
	},
	[]string{"type", "subtype"},
)

func init() { prometheus.MustRegister(tasksAdded) }

// List is a Scheduler which stores every task it's given.
type List struct {
	mu sync.Mutex
	tasks []Task
}

// AddTask appends t to the list.
func (l *List) AddTask(t Task) {
	l.mu.Lock()
	l.tasks = append(l.tasks, t)
	l.mu.Unlock()

	tasksAdded.WithLabelValues(t.Type.String(), t.Subtype.String()).Inc()
}

// Len returns the number of tasks.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Reset removes every task.
func (l *List) Reset() {
	l.mu.Lock()
	l.tasks = l.tasks[:0]
	l.mu.Unlock()
}

// Tasks returns a copy of the tasks in the order they were added. Since
// mappers run in parallel, the order can change between runs.
func (l *List) Tasks() []Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Task(nil), l.tasks...)
}

// Sorted returns a copy of the tasks in a canonical order.
func (l *List) Sorted() []Task {
	out := l.Tasks()
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func less(a, b Task) bool {
	if a.Type != b.Type { return a.Type < b.Type }
	if a.Subtype != b.Subtype { return a.Subtype < b.Subtype }
	if a.Ci != b.Ci { return a.Ci < b.Ci }
	if a.Cj != b.Cj { return a.Cj < b.Cj }
	return a.Flags < b.Flags
}

// Count returns the number of tasks with the given type and subtype.
func (l *List) Count(typ Type, sub Subtype) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, t := range l.tasks {
		if t.Type == typ && t.Subtype == sub { n++ }
	}
	return n
}
