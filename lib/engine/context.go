package engine

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/phil-mansfield/zoomgrid/lib/config"
	"github.com/phil-mansfield/zoomgrid/lib/geom"
	"github.com/phil-mansfield/zoomgrid/lib/proxy"
	"github.com/phil-mansfield/zoomgrid/lib/tasks"
	"github.com/phil-mansfield/zoomgrid/lib/zoom"
)

// Context is everything a node needs to know about the run. It's fixed once
// the run starts.
type Context struct {
	NodeID, Nodes int

	Domain zoom.Domain
	// ZoomEnabled is false for runs on a single uniform grid with
	// Zoom.MaxTopLevelCells cells on a side.
	ZoomEnabled bool
	Zoom zoom.Options
	// Shift is applied to every particle before the zoom region is found.
	Shift r3.Vec

	Hydro, SelfGravity bool
	Stars, Sinks, BlackHoles, Feedback bool
	FOF bool

	ThetaCrit, MeshRCutMax float64
	MaxProxies int
	Threads int

	Debug bool
}

// NewContext returns the Context of node in a run configured by cfg.
func NewContext(cfg *config.Config, node int) Context {
	return Context{
		NodeID: node,
		Nodes: cfg.Engine.Nodes,

		Domain: zoom.Domain{
			BoxSize: cfg.Domain.BoxSize, Periodic: cfg.Domain.Periodic,
		},
		ZoomEnabled: cfg.ZoomRegion.Enable,
		Zoom: zoom.Options{
			ZoomCells: cfg.ZoomRegion.ZoomCells,
			BoostFactor: cfg.ZoomRegion.ZoomBoostFactor,
			RefineBkg: cfg.ZoomRegion.EnableBkgRefinement,
			MaxTopLevelCells: cfg.Scheduler.MaxTopLevelCells,
		},
		Shift: geom.Vec(cfg.Shift()),

		Hydro: cfg.Engine.Hydro,
		SelfGravity: cfg.Engine.SelfGravity,
		Stars: cfg.Engine.Stars,
		Sinks: cfg.Engine.Sinks,
		BlackHoles: cfg.Engine.BlackHoles,
		Feedback: cfg.Engine.Feedback,
		FOF: cfg.Engine.FOF,

		ThetaCrit: cfg.Gravity.ThetaCrit,
		MeshRCutMax: cfg.Gravity.MeshRCutMax,
		MaxProxies: cfg.Scheduler.MaxProxies,
		Threads: cfg.Scheduler.Threads,

		Debug: cfg.Engine.Debug,
	}
}

func (c Context) proxyParams() proxy.Params {
	return proxy.Params{
		NodeID: c.NodeID,
		Hydro: c.Hydro,
		Gravity: c.SelfGravity,
		ThetaCrit: c.ThetaCrit,
		MeshRCutMax: c.MeshRCutMax,
		MaxProxies: c.MaxProxies,
	}
}

func (c Context) taskParams() tasks.Params {
	return tasks.Params{
		NodeID: c.NodeID,
		Hydro: c.Hydro,
		Gravity: c.SelfGravity,
		FOF: c.FOF,
		Stars: c.Stars,
		Sinks: c.Sinks,
		BlackHoles: c.BlackHoles,
		Feedback: c.Feedback,
		ThetaCrit: c.ThetaCrit,
		MeshRCutMax: c.MeshRCutMax,
		Debug: c.Debug,
	}
}
