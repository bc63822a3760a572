package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/phil-mansfield/zoomgrid/lib/catio"
	"github.com/phil-mansfield/zoomgrid/lib/config"
	"github.com/phil-mansfield/zoomgrid/lib/engine"
	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
	"github.com/phil-mansfield/zoomgrid/lib/format"
	"github.com/phil-mansfield/zoomgrid/lib/logging"
	"github.com/phil-mansfield/zoomgrid/lib/mpi"
	"github.com/phil-mansfield/zoomgrid/lib/particles"
	"github.com/phil-mansfield/zoomgrid/lib/snapio"
	"github.com/phil-mansfield/zoomgrid/lib/thread"
)

var rootCmd = &cobra.Command{
	Use:   "zoomgrid",
	Short: "Build zoom-region cell grids, proxies, and task graphs",
	Long: `zoomgrid places a fine grid of cells around the high-resolution
particles of a zoom simulation, embeds it in a coarse background grid, and
works out which cells every node has to exchange and which tasks it has to
run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var checkCmd = &cobra.Command{
	Use:   "check <config>",
	Short: "Check a config file for errors",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var buildCmd = &cobra.Command{
	Use:   "build <config>",
	Short: "Build the cells, proxies, and tasks of every node",
	Long: `Reads the particles named in the config file, splits them between
Engine.Nodes in-process nodes, rebuilds every node, and writes a TOML report.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var exampleCmd = &cobra.Command{
	Use:   "example_config",
	Short: "Print an example config file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		io.WriteString(cmd.OutOrStdout(), config.Example)
	},
}

var verbose bool

func init() {
	buildCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"log debug messages, overriding Engine.Verbose")
	rootCmd.AddCommand(checkCmd, buildCmd, exampleCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		zerr.Exit(err)
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	if _, err := config.Read(args[0]); err != nil { return err }
	fmt.Fprintln(cmd.OutOrStdout(), "No errors detected.")
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(args[0])
	if err != nil { return err }

	log := logging.New(verbose || cfg.Engine.Verbose, nil)

	threads, err := thread.Set(cfg.Scheduler.Threads)
	if err != nil { return err }
	cfg.Scheduler.Threads = threads

	p, err := readParticles(cfg)
	if err != nil { return err }
	log.Info().
		Int("nr_particles", p.Len()).
		Int("nodes", cfg.Engine.Nodes).
		Int("threads", threads).
		Msg("Read initial conditions.")

	summaries, err := build(cmd.Context(), cfg, p, log)
	if err != nil { return err }
	metrics, err := gatherMetrics()
	if err != nil { return err }

	if cfg.Output.Report == "" {
		return writeReport(cmd.OutOrStdout(), summaries, metrics)
	}

	f, err := os.Create(cfg.Output.Report)
	if err != nil { return err }
	defer f.Close()
	if err := writeReport(f, summaries, metrics); err != nil { return err }
	log.Info().Str("file", cfg.Output.Report).Msg("Wrote report.")
	return nil
}

func readParticles(cfg *config.Config) (particles.Particles, error) {
	ic := cfg.InitialConditions
	if ic.File == "" {
		return nil, fmt.Errorf("InitialConditions.File must be set to run " +
			"zoomgrid in 'build' mode.")
	}

	names, err := format.ExpandFileFormat(ic.File)
	if err != nil { return nil, err }

	if ic.Format == "gadget2" {
		order, err := snapio.ParseByteOrder(ic.ByteOrder)
		if err != nil { return nil, err }
		p, hd, err := snapio.ReadGadget2(names, order)
		if err != nil { return nil, err }
		if hd.BoxSize != cfg.Domain.BoxSize {
			return nil, fmt.Errorf("The header of %s gives a box size of %g, " +
				"but Domain.BoxSize is %g.", names[0], hd.BoxSize,
				cfg.Domain.BoxSize)
		}
		return p, nil
	}

	text := catio.DefaultConfig
	if ic.Separator != "" { text.Separator = ic.Separator[0] }

	ps := make([]particles.Particles, len(names))
	for i := range names {
		if ps[i], err = catio.TextFile(names[i], text); err != nil {
			return nil, err
		}
	}
	return particles.Join(ps...)
}

// build runs a full rebuild on every node of an in-process world and returns
// each node's summary in rank order.
func build(
	ctx context.Context, cfg *config.Config, p particles.Particles,
	log zerolog.Logger,
) ([]engine.Summary, error) {
	nodes := cfg.Engine.Nodes
	parts, err := particles.Split(p, nodes)
	if err != nil { return nil, err }

	summaries := make([]engine.Summary, nodes)
	err = mpi.NewWorld(nodes).Run(ctx,
		func(ctx context.Context, comm mpi.Comm) error {
			node := comm.Rank()
			e, err := engine.New(engine.NewContext(cfg, node), comm,
				parts[node], logging.Rank(log, node))
			if err != nil { return err }

			if err := e.Rebuild(ctx); err != nil { return err }
			summaries[node] = e.Summarize()
			return nil
		})
	return summaries, err
}

type report struct {
	Nodes []engine.Summary `toml:"node"`
	Metrics map[string]float64 `toml:"metrics"`
}

func writeReport(
	w io.Writer, summaries []engine.Summary, metrics map[string]float64,
) error {
	return toml.NewEncoder(w).Encode(report{
		Nodes: summaries, Metrics: metrics,
	})
}

// gatherMetrics reads the zoomgrid counters from the default registry. Keys
// are the metric name followed by its labels, e.g.
// zoomgrid_tasks_added_total{subtype=grav,type=self}.
func gatherMetrics() (map[string]float64, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil { return nil, err }

	out := map[string]float64{ }
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), "zoomgrid_") { continue }

		for _, m := range f.GetMetric() {
			key := f.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				pairs := make([]string, len(labels))
				for i, l := range labels {
					pairs[i] = l.GetName() + "=" + l.GetValue()
				}
				key += "{" + strings.Join(pairs, ",") + "}"
			}
			out[key] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}
