package zoom

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	zerr "github.com/phil-mansfield/zoomgrid/lib/error"
	"github.com/phil-mansfield/zoomgrid/lib/geom"
)

// Options are the user-facing parameters of the zoom region.
type Options struct {
	// ZoomCells is the number of zoom cells on a side.
	ZoomCells int
	// BoostFactor pads the high-resolution extent before the region is
	// snapped to the background grid.
	BoostFactor float64
	// RefineBkg lets the background grid be clamped to MaxTopLevelCells.
	RefineBkg bool
	MaxTopLevelCells int
}

// Properties is the geometry of both grids. It's computed once at startup
// (or at a regrid) and is read-only afterwards.
type Properties struct {
	// Enabled is false for a uniform, background-only grid.
	Enabled bool

	ZoomCDim [3]int
	BkgCDim [3]int

	// RequestedBoost is the boost factor from the config and Boost is the
	// one achieved after background refinement.
	RequestedBoost, Boost float64
	RefineBkg bool

	// CoM is the centre of mass of the high-resolution particles after Shift
	// has been applied.
	CoM r3.Vec
	// Shift moves the midpoint of the high-resolution particles to the
	// centre of the box. It must be applied to every particle.
	Shift r3.Vec

	// InitialDim is the extent of the high-resolution particles,
	// InitialSide is its largest axis times the boost factor, and Side is the
	// final side length of the region after it has been snapped to an odd
	// subdivision of the box.
	InitialDim r3.Vec
	InitialSide, Side float64
	NrZoomRegions int

	RegionBounds r3.Box

	Width, IWidth r3.Vec
	CellMin float64
	BkgWidth, BkgIWidth r3.Vec
	BkgCellMin float64

	// ZoomCellIJK is the background grid position of the void cell.
	ZoomCellIJK [3]int
	// Offset is the index of the first background cell. It's also the
	// number of zoom cells.
	Offset int
	NrZoomCells, NrBkgCells int
	VoidCell int
	NrZoomPerBkgCells int

	// Neighbours lists the background cells tagged as neighbours of the
	// zoom region. It's filled in by the cell hierarchy.
	Neighbours []int
}

// NrCells returns the total number of top-level cells.
func (p *Properties) NrCells() int { return p.NrZoomCells + p.NrBkgCells }

// ZoomGrid returns the indexing for the zoom cells.
func (p *Properties) ZoomGrid() geom.Grid { return geom.Grid{ CDim: p.ZoomCDim } }

// BkgGrid returns the indexing for the background cells.
func (p *Properties) BkgGrid() geom.Grid {
	return geom.Grid{ CDim: p.BkgCDim, Offset: p.Offset }
}

// NewProperties sizes the zoom region around geo and fixes the dimensions of
// the zoom and background grids.
func NewProperties(
	opt Options, geo Geometry, dom Domain, log zerolog.Logger,
) (*Properties, error) {
	if opt.ZoomCells <= 0 {
		return nil, zerr.Geometryf("Need a positive number of zoom cells, " +
			"not %d.", opt.ZoomCells)
	}

	p := &Properties{
		Enabled: true,
		ZoomCDim: [3]int{ opt.ZoomCells, opt.ZoomCells, opt.ZoomCells },
		RequestedBoost: opt.BoostFactor,
		Boost: opt.BoostFactor,
		RefineBkg: opt.RefineBkg,
		NrZoomPerBkgCells: opt.ZoomCells,
		InitialDim: geo.Dim(),
	}

	boxMid := r3.Scale(0.5, dom.Dim())
	p.Shift = r3.Sub(boxMid, geo.Midpoint())
	p.CoM = r3.Add(geo.CoM, p.Shift)

	log.Debug().
		Floats64("box_mid", geom.Slice(boxMid)).
		Floats64("midpoint", geom.Slice(geo.Midpoint())).
		Floats64("shift", geom.Slice(p.Shift)).
		Msg("Need to shift the box to centre the zoom region.")

	dim := geom.Array(p.InitialDim)
	p.InitialSide = floats.Max(dim[:]) * p.Boost
	if p.InitialSide <= 0 {
		return nil, zerr.Geometryf("The high-resolution particles have zero " +
			"extent, so no zoom region can be built around them.")
	}

	// The side has to divide the box by an odd integer so the two grids
	// line up.
	n := int(dom.BoxSize / p.InitialSide)
	if n % 2 == 0 { n-- }
	if n < 1 {
		return nil, zerr.Geometryf("A zoom region with side %g (boost " +
			"factor %g) doesn't fit in a box of width %g.",
			p.InitialSide, p.Boost, dom.BoxSize)
	}
	side := dom.BoxSize / float64(n)

	if p.RefineBkg && n >= opt.MaxTopLevelCells {
		oldSide := side
		n = opt.MaxTopLevelCells
		if n % 2 == 0 { n-- }
		if n < 1 {
			return nil, zerr.Geometryf("Background refinement needs at " +
				"least one top-level cell, but MaxTopLevelCells = %d.",
				opt.MaxTopLevelCells)
		}

		newBoost := (dom.BoxSize / float64(n)) / (oldSide / p.Boost)
		log.Debug().
			Float64("old_boost", p.Boost).
			Float64("new_boost", newBoost).
			Msg("Increased zoom boost factor.")

		side = dom.BoxSize / float64(n)
		p.Boost = newBoost
	}

	p.Side = side
	p.RegionBounds = r3.Box{
		Min: r3.Sub(boxMid, r3.Scale(0.5, r3.Vec{ X: side, Y: side, Z: side })),
		Max: r3.Add(boxMid, r3.Scale(0.5, r3.Vec{ X: side, Y: side, Z: side })),
	}

	if err := p.construct(dom, log); err != nil { return nil, err }
	return p, nil
}

// construct derives the cell widths, grid dimensions, and index offsets from
// the region's side length.
func (p *Properties) construct(dom Domain, log zerolog.Logger) error {
	side := p.Side
	box := geom.Array(dom.Dim())

	var width, bkgWidth [3]float64
	for ax := 0; ax < 3; ax++ {
		width[ax] = side / float64(p.ZoomCDim[ax])
		bkgWidth[ax] = side
		p.BkgCDim[ax] = int(math.Floor((box[ax] + 0.1*bkgWidth[ax]) / bkgWidth[ax]))
		p.ZoomCellIJK[ax] = p.BkgCDim[ax] / 2
	}
	p.Width, p.IWidth = geom.Vec(width), inverse(width)
	p.BkgWidth, p.BkgIWidth = geom.Vec(bkgWidth), inverse(bkgWidth)
	p.CellMin = 0.99 * side / float64(p.ZoomCDim[0])

	dmax := floats.Max(box[:])
	p.NrZoomRegions = int(dmax / side)
	p.BkgCellMin = 0.99 * dmax / float64(p.NrZoomRegions)

	if err := checkPeriodicCDim(p.BkgCDim, dom); err != nil { return err }

	p.Offset = p.ZoomCDim[0]*p.ZoomCDim[1]*p.ZoomCDim[2]
	p.NrZoomCells = p.Offset
	p.NrBkgCells = p.BkgCDim[0]*p.BkgCDim[1]*p.BkgCDim[2]
	p.VoidCell = p.BkgGrid().Idx(p.ZoomCellIJK[0], p.ZoomCellIJK[1],
		p.ZoomCellIJK[2])

	log.Debug().
		Ints("zoom_cdim", p.ZoomCDim[:]).
		Ints("background_cdim", p.BkgCDim[:]).
		Ints("zoom_cell_ijk", p.ZoomCellIJK[:]).
		Int("nr_zoom_cells", p.NrZoomCells).
		Int("nr_bkg_cells", p.NrBkgCells).
		Int("tl_cell_offset", p.Offset).
		Floats64("region_min", geom.Slice(p.RegionBounds.Min)).
		Floats64("region_max", geom.Slice(p.RegionBounds.Max)).
		Float64("zoom_cell_width", width[0]).
		Float64("tl_cell_width", bkgWidth[0]).
		Msg("Set cell dimensions.")

	return nil
}

// NewUniform returns the Properties of a background-only grid with cdim cells
// on a side. It's used when the zoom region is disabled.
func NewUniform(cdim int, dom Domain, log zerolog.Logger) (*Properties, error) {
	if cdim <= 0 {
		return nil, zerr.Geometryf("Need a positive number of top-level " +
			"cells, not %d.", cdim)
	}

	w := dom.BoxSize / float64(cdim)
	p := &Properties{
		BkgCDim: [3]int{ cdim, cdim, cdim },
		Boost: 1, RequestedBoost: 1,
		Side: w,
		BkgWidth: r3.Vec{ X: w, Y: w, Z: w },
		BkgIWidth: r3.Vec{ X: 1/w, Y: 1/w, Z: 1/w },
		BkgCellMin: 0.99 * w,
		NrZoomRegions: cdim,
		NrBkgCells: cdim*cdim*cdim,
		VoidCell: -1,
	}
	if err := checkPeriodicCDim(p.BkgCDim, dom); err != nil { return nil, err }

	log.Debug().Ints("background_cdim", p.BkgCDim[:]).
		Msg("Set uniform cell dimensions.")
	return p, nil
}

func checkPeriodicCDim(cdim [3]int, dom Domain) error {
	if dom.Periodic && (cdim[0] < 3 || cdim[1] < 3 || cdim[2] < 3) {
		return zerr.Geometryf("Must have at least 3 cells in each spatial " +
			"dimension when periodicity is switched on, but the background " +
			"grid has [%d %d %d].\nThis is often caused by either a zoom " +
			"region that is too large for the box or a value of " +
			"Scheduler.MaxTopLevelCells that is too small.",
			cdim[0], cdim[1], cdim[2])
	}
	return nil
}

func inverse(x [3]float64) r3.Vec {
	return r3.Vec{ X: 1/x[0], Y: 1/x[1], Z: 1/x[2] }
}
