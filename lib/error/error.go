/*package error contains the error types returned by zoomgrid's libraries and
simple functions for reporting them fatally from the driver.

Library code never exits. It returns an *Error tagged with a Kind, and the
driver decides how loudly to die through Exit.
*/
package error

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
)

// Kind categorizes an error by what has to change to fix it.
type Kind int

const (
	// Geometry errors mean the simulation volume can't be partitioned as
	// requested: a zoom region that is too large, too few background cells
	// under periodicity, etc. These are fixed by changing the ICs or config.
	Geometry Kind = iota
	// Resource errors mean a run exhausted a fixed budget (e.g. the number
	// of proxies). These indicate a misconfigured run.
	Resource
	// Consistency errors are broken internal invariants. They require a code
	// dive to fix and are mostly raised by debug checks.
	Consistency
)

func (k Kind) String() string {
	switch k {
	case Geometry: return "geometry"
	case Resource: return "resource"
	case Consistency: return "consistency"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is an error with an associated Kind.
type Error struct {
	Kind Kind
	Msg string
}

func (e *Error) Error() string { return e.Msg }

// Geometryf returns a Geometry error. It has the same signature as the
// standard fmt.*printf() functions.
func Geometryf(format string, a ...interface{}) error {
	return &Error{ Geometry, fmt.Sprintf(format, a...) }
}

// Resourcef returns a Resource error.
func Resourcef(format string, a ...interface{}) error {
	return &Error{ Resource, fmt.Sprintf(format, a...) }
}

// Consistencyf returns a Consistency error.
func Consistencyf(format string, a ...interface{}) error {
	return &Error{ Consistency, fmt.Sprintf(format, a...) }
}

// KindOf returns the Kind of err and true if err wraps an *Error. Otherwise
// it returns false.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// External reports an error to stderr and kills the process. It should be
// used when an error is something a user could reasonbly be expected to fix
// through changes in configuration/data/environement. It has the same
// signature at the standard fmt.*printf() functions.
func External(format string, a ...interface{}) {
	log.Printf("zoomgrid exited early with the following error:\n" + format, a...)
	os.Exit(1)
}

// Internal reports an error to stderr along with a stack trace and kills the
// process. It should be used when the error requires a code dive to fix. It
// has the same signature at the standard fmt.*printf() functions.
func Internal(format string, a ...interface{}) {
	log.Println("zoomgrid exited early with the following error:")
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n\n")
	debug.PrintStack()
	os.Exit(1)
}

// Exit kills the process with a message appropriate to err's Kind. Errors
// without a Kind are treated as external.
func Exit(err error) {
	kind, ok := KindOf(err)
	if ok && kind == Consistency {
		Internal("%s", err.Error())
	}
	External("%s", err.Error())
}
