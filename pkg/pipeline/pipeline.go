// Package pipeline runs the preprocessing stages in order and writes the
// routing deck. Stages run synchronously; the context is checked between
// them, never inside one.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/wrfhydro-prep/pkg/basin"
	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/gage"
	"github.com/dd0wney/wrfhydro-prep/pkg/geogrid"
	"github.com/dd0wney/wrfhydro-prep/pkg/geomops"
	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/metrics"
	"github.com/dd0wney/wrfhydro-prep/pkg/network"
	"github.com/dd0wney/wrfhydro-prep/pkg/publish"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
	"github.com/dd0wney/wrfhydro-prep/pkg/routing"
	"github.com/dd0wney/wrfhydro-prep/pkg/terrain"
	"github.com/dd0wney/wrfhydro-prep/pkg/topology"
)

// Deps are the injectable collaborators of a run. Nil fields get the
// defaults described on each field.
type Deps struct {
	Logger   logging.Logger    // NopLogger
	Metrics  *metrics.Registry // a fresh registry
	Terrain  terrain.Ops       // chosen by terrain.engine
	Geometry geomops.Ops       // geomops.Native
	Uploader publish.Uploader  // S3 client from output.publish
	Clock    func() time.Time  // time.Now
	RunID    string            // random UUID
}

// Pipeline is one configured preprocessing run.
type Pipeline struct {
	cfg      config.Config
	logger   logging.Logger
	metrics  *metrics.Registry
	terrain  terrain.Ops
	geom     geomops.Ops
	uploader publish.Uploader
	clock    func() time.Time
	runID    string
	workDir  string // temporary whitebox directory to remove after the run
}

// Result is everything a run produced.
type Result struct {
	RunID     string
	Domain    *geogrid.Domain
	Fine      grid.Geometry
	Network   *network.Network
	Topology  *topology.Result
	Routing   *routing.Table
	Gages     *gage.Result
	Lakes     *basin.LakeSet
	Buckets   *basin.Buckets
	Files     []string // written deck files, in write order
	Archive   string
	Published []string
}

// New prepares a run of cfg.
func New(cfg config.Config, deps Deps) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		terrain:  deps.Terrain,
		geom:     deps.Geometry,
		uploader: deps.Uploader,
		clock:    deps.Clock,
		runID:    deps.RunID,
	}
	if p.logger == nil {
		p.logger = logging.NewNopLogger()
	}
	if p.metrics == nil {
		p.metrics = metrics.NewRegistry()
	}
	if p.geom == nil {
		p.geom = geomops.NewNative()
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.runID == "" {
		p.runID = uuid.New().String()
	}
	p.logger = p.logger.With(logging.RunID(p.runID))
	return p
}

// RunID identifies this run in logs, metrics, the manifest and the
// published object keys.
func (p *Pipeline) RunID() string { return p.runID }

// Metrics exposes the run's registry.
func (p *Pipeline) Metrics() *metrics.Registry { return p.metrics }

// Run executes every enabled stage. The metrics textfile, when configured,
// is written whether or not the run succeeds.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, hydroerr.Config("pipeline.Run", err)
	}
	if p.terrain == nil {
		if p.terrain, err = p.defaultTerrain(); err != nil {
			return nil, err
		}
	}
	defer p.cleanup()

	p.metrics.SetRunInfo(p.runID, p.cfg.Inputs.Geogrid)
	defer func() {
		if err == nil {
			p.metrics.MarkSuccess(p.clock())
		}
		if path := p.cfg.Output.MetricsFile; path != "" {
			if werr := p.metrics.WriteTextfile(path); werr != nil {
				p.logger.Warn("writing metrics textfile failed", logging.Path(path), logging.Error(werr))
			}
		}
	}()

	p.logger.Info("run started",
		logging.Path(p.cfg.Inputs.Geogrid),
		logging.String("output", p.cfg.Output.Dir))

	r := &run{Pipeline: p, res: &Result{RunID: p.runID}}
	stages := []struct {
		name    string
		enabled bool
		fn      func(context.Context) error
	}{
		{"geogrid", true, r.loadDomain},
		{"dem", true, r.loadDEM},
		{"terrain", true, r.deriveTerrain},
		{"forecast_points", p.cfg.Inputs.ForecastPoints != "", r.locateGages},
		{"network", true, r.extractNetwork},
		{"topology", true, r.resolveTopology},
		{"lakes", p.cfg.Inputs.Lakes != "", r.buildLakes},
		{"routing", true, r.parameterize},
		{"groundwater", p.cfg.Groundwater.Enabled, r.buildBuckets},
		{"write", true, r.write},
		{"archive", p.cfg.Output.Archive, r.pack},
		{"publish", p.cfg.Output.Publish.Bucket != "", r.publish},
	}
	for _, s := range stages {
		if !s.enabled {
			p.logger.Debug("stage skipped", logging.Stage(s.name))
			continue
		}
		if err := p.stage(ctx, s.name, s.fn); err != nil {
			return r.res, err
		}
	}

	p.logger.Info("run completed",
		logging.Int("links", len(r.res.Routing.Links)),
		logging.Int("files", len(r.res.Files)))
	return r.res, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		p.logger.Warn("run cancelled", logging.Stage(name))
		return err
	}
	op := logging.StartStage(p.logger, name)
	err := fn(ctx)
	var took time.Duration
	if err != nil {
		took = op.EndError(err)
	} else {
		took = op.End()
	}
	p.metrics.RecordStage(name, took, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) defaultTerrain() (terrain.Ops, error) {
	tc := p.cfg.Terrain
	if tc.Engine != "whitebox" {
		return terrain.NewNative(p.logger), nil
	}
	dir := tc.WorkDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "wrfhydro-whitebox-")
		if err != nil {
			return nil, hydroerr.IO("pipeline.Run", os.TempDir(), err)
		}
		dir, p.workDir = tmp, tmp
	}
	return terrain.NewWhitebox(tc.WhiteboxPath, dir, terrain.ExecRunner{}, p.logger), nil
}

func (p *Pipeline) cleanup() {
	if p.workDir == "" {
		return
	}
	if err := os.RemoveAll(p.workDir); err != nil {
		p.logger.Warn("removing whitebox work directory failed", logging.Path(p.workDir), logging.Error(err))
	}
	p.workDir = ""
}

// run carries the intermediate grids between stages.
type run struct {
	*Pipeline
	res *Result

	conv    *grid.Converter
	dem     *raster.Raster
	filled  *raster.Raster
	fdir    *raster.Raster
	facc    *raster.Raster
	streams *raster.Raster
	order   *raster.Raster
	channel *raster.Raster
	links   *raster.Raster
	points  []gage.Point
}
