/*package logging builds the zerolog loggers used by zoomgrid. Libraries take
a zerolog.Logger as an argument and never reach for a global one.*/
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a human-readable logger writing to w. If w is nil, stderr is
// used. Verbose loggers report at the debug level, which is where every
// "what did we just construct" message lives.
func New(verbose bool, w io.Writer) zerolog.Logger {
	if w == nil { w = os.Stderr }

	// Only colorize when we're talking to a terminal-ish stream.
	noColor := w != io.Writer(os.Stderr) && w != io.Writer(os.Stdout)
	out := zerolog.ConsoleWriter{ Out: w, TimeFormat: time.Kitchen, NoColor: noColor }
	level := zerolog.InfoLevel
	if verbose { level = zerolog.DebugLevel }

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Rank returns a child logger that tags every event with a node ID.
func Rank(log zerolog.Logger, nodeID int) zerolog.Logger {
	return log.With().Int("node", nodeID).Logger()
}

// Nop returns a logger which discards everything. Used in tests.
func Nop() zerolog.Logger { return zerolog.Nop() }
