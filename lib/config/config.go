/*package config reads zoomgrid's gcfg-style configuration files. A config
file is split into sections, one per concern:

    [Domain]
    BoxSize = 100
    Periodic = true

    [ZoomRegion]
    ZoomCells = 8

Variables which aren't set keep the values given by Default().
*/
package config

import (
	"fmt"

	"gopkg.in/gcfg.v1"
)

// Config is the full set of variables that can be set in a config file.
type Config struct {
	Domain DomainConfig
	ZoomRegion ZoomRegionConfig
	Scheduler SchedulerConfig
	InitialConditions InitialConditionsConfig
	Gravity GravityConfig
	Engine EngineConfig
	Output OutputConfig
}

type DomainConfig struct {
	BoxSize float64
	Periodic bool
}

type ZoomRegionConfig struct {
	Enable bool
	EnableBkgRefinement bool
	ZoomBoostFactor float64
	ZoomCells int
}

type SchedulerConfig struct {
	// MaxTopLevelCells is the requested number of background cells on a side
	// when background refinement is enabled.
	MaxTopLevelCells int
	Threads int
	MaxProxies int
}

type InitialConditionsConfig struct {
	ShiftX, ShiftY, ShiftZ float64
	// File is either a text file with the columns "x y z mass species" or
	// a Gadget-2 snapshot, depending on Format. Catalogues and snapshots
	// split across several files are named with a pattern like
	// "snap.{%d,0..7}".
	File string
	// Format is "text" or "gadget2".
	Format string
	Separator string
	// ByteOrder of gadget2 files: "little" or "big".
	ByteOrder string
}

type GravityConfig struct {
	ThetaCrit float64
	// MeshRCutMax is the distance beyond which the long-range mesh handles
	// gravity. Zero means there is no cutoff.
	MeshRCutMax float64
}

type EngineConfig struct {
	Nodes int
	Hydro, SelfGravity bool
	Stars, Sinks, BlackHoles, Feedback bool
	FOF bool
	Debug bool
	Verbose bool
}

type OutputConfig struct {
	// Report is the name of the TOML file that summaries get written to. If
	// it's empty, the summary goes to stdout.
	Report string
}

// Default returns a Config with every variable set to its default.
func Default() *Config {
	return &Config{
		Domain: DomainConfig{ BoxSize: 1, Periodic: true },
		ZoomRegion: ZoomRegionConfig{
			Enable: true,
			EnableBkgRefinement: true,
			ZoomBoostFactor: 1.1,
			ZoomCells: 8,
		},
		Scheduler: SchedulerConfig{
			MaxTopLevelCells: 16,
			Threads: -1,
			MaxProxies: 64,
		},
		InitialConditions: InitialConditionsConfig{
			Format: "text", ByteOrder: "little",
		},
		Gravity: GravityConfig{ ThetaCrit: 0.7 },
		Engine: EngineConfig{ Nodes: 1, SelfGravity: true },
	}
}

// Read reads the config file fileName on top of the defaults.
func Read(fileName string) (*Config, error) {
	cfg := Default()
	if err := gcfg.ReadFileInto(cfg, fileName); err != nil {
		return nil, fmt.Errorf("Could not parse config file '%s': %s",
			fileName, err.Error())
	}
	return cfg, cfg.Check()
}

// ReadString is the same as Read, but parses a string instead of a file.
func ReadString(text string) (*Config, error) {
	cfg := Default()
	if err := gcfg.ReadStringInto(cfg, text); err != nil {
		return nil, fmt.Errorf("Could not parse config: %s", err.Error())
	}
	return cfg, cfg.Check()
}

// Check does simple validation which doesn't require any particles.
func (cfg *Config) Check() error {
	switch {
	case cfg.Domain.BoxSize <= 0:
		return fmt.Errorf("Domain.BoxSize must be positive, but is %g.",
			cfg.Domain.BoxSize)
	case cfg.ZoomRegion.ZoomBoostFactor < 1:
		return fmt.Errorf("ZoomRegion.ZoomBoostFactor must be at least 1, " +
			"but is %g.", cfg.ZoomRegion.ZoomBoostFactor)
	case cfg.ZoomRegion.ZoomCells <= 0:
		return fmt.Errorf("ZoomRegion.ZoomCells must be positive, but is %d.",
			cfg.ZoomRegion.ZoomCells)
	case cfg.Scheduler.MaxTopLevelCells <= 0:
		return fmt.Errorf("Scheduler.MaxTopLevelCells must be positive, " +
			"but is %d.", cfg.Scheduler.MaxTopLevelCells)
	case cfg.Scheduler.MaxProxies <= 0:
		return fmt.Errorf("Scheduler.MaxProxies must be positive, but is %d.",
			cfg.Scheduler.MaxProxies)
	case cfg.Gravity.ThetaCrit <= 0:
		return fmt.Errorf("Gravity.ThetaCrit must be positive, but is %g.",
			cfg.Gravity.ThetaCrit)
	case cfg.Gravity.MeshRCutMax < 0:
		return fmt.Errorf("Gravity.MeshRCutMax can't be negative, but is %g.",
			cfg.Gravity.MeshRCutMax)
	case cfg.Engine.Nodes <= 0:
		return fmt.Errorf("Engine.Nodes must be positive, but is %d.",
			cfg.Engine.Nodes)
	case cfg.InitialConditions.Format != "text" &&
		cfg.InitialConditions.Format != "gadget2":
		return fmt.Errorf("InitialConditions.Format must be 'text' or " +
			"'gadget2', but is '%s'.", cfg.InitialConditions.Format)
	case cfg.InitialConditions.ByteOrder != "little" &&
		cfg.InitialConditions.ByteOrder != "big":
		return fmt.Errorf("InitialConditions.ByteOrder must be 'little' or " +
			"'big', but is '%s'.", cfg.InitialConditions.ByteOrder)
	case len(cfg.InitialConditions.Separator) > 1:
		return fmt.Errorf("InitialConditions.Separator must be a single " +
			"character, but is '%s'.", cfg.InitialConditions.Separator)
	}
	return nil
}

// Shift returns the user-supplied shift applied to the initial conditions.
func (cfg *Config) Shift() [3]float64 {
	ic := cfg.InitialConditions
	return [3]float64{ ic.ShiftX, ic.ShiftY, ic.ShiftZ }
}

// Example is an example config file with every variable documented.
const Example = `[Domain]
# Width of the (cubic) simulation volume.
BoxSize = 100
# Whether the volume wraps around at its edges.
Periodic = true

[ZoomRegion]
# Turn off to use a single uniform grid.
Enable = true
# Try to give the background grid MaxTopLevelCells cells on a side.
EnableBkgRefinement = true
# Padding factor applied to the extent of the high-resolution particles.
ZoomBoostFactor = 1.1
# Number of zoom cells on a side.
ZoomCells = 8

[Scheduler]
MaxTopLevelCells = 16
# -1 means all available cores.
Threads = -1
MaxProxies = 64

[InitialConditions]
ShiftX = 0
ShiftY = 0
ShiftZ = 0
# Either "text" (columns: x y z mass species) or "gadget2".
Format = text
# Split files can be named with a pattern, e.g. snap.{%d,0..7}
File = particles.txt
# Column separator for text files. Unset means whitespace.
# Separator = ,
# Byte order of gadget2 files, "little" or "big".
ByteOrder = little

[Gravity]
ThetaCrit = 0.7
# 0 disables the long-range cutoff.
MeshRCutMax = 0

[Engine]
Nodes = 1
Hydro = false
SelfGravity = true
Stars = false
Sinks = false
BlackHoles = false
Feedback = false
FOF = false
Debug = false
Verbose = false

[Output]
# Unset means the report is printed to stdout.
# Report = report.toml
`
