package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dd0wney/wrfhydro-prep/pkg/archive"
	"github.com/dd0wney/wrfhydro-prep/pkg/basin"
	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/gage"
	"github.com/dd0wney/wrfhydro-prep/pkg/geogrid"
	"github.com/dd0wney/wrfhydro-prep/pkg/geomops"
	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/ncio"
	"github.com/dd0wney/wrfhydro-prep/pkg/network"
	"github.com/dd0wney/wrfhydro-prep/pkg/publish"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
	"github.com/dd0wney/wrfhydro-prep/pkg/routing"
	"github.com/dd0wney/wrfhydro-prep/pkg/topology"
)

// ConfigFile is the effective configuration saved with the deck.
const ConfigFile = "wrfhydro_prep.yaml"

func (r *run) noData() float64 { return r.cfg.Grid.NoData }

func (r *run) proj() grid.Projection { return r.res.Domain.Geometry.Proj }

func (r *run) loadDomain(context.Context) error {
	d, err := geogrid.Open(r.cfg.Inputs.Geogrid, r.noData())
	if err != nil {
		return err
	}
	conv, err := grid.NewConverter(d.Geometry.Proj)
	if err != nil {
		return err
	}
	r.res.Domain, r.conv = d, conv
	r.res.Fine = d.Geometry.Regrid(float64(r.cfg.Grid.RegridFactor))
	r.logger.Info("routing grid defined",
		logging.String("coarse", d.Geometry.String()),
		logging.String("fine", r.res.Fine.String()),
		logging.String("projection", d.Geometry.Proj.Family.String()))
	return nil
}

// loadDEM reads the external DEM, or falls back to HGT_M, and brings it
// onto the routing grid.
func (r *run) loadDEM(context.Context) error {
	path := r.cfg.Inputs.DEM
	var (
		dem *raster.Raster
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case "":
		if path != "" {
			return hydroerr.Unsupported("pipeline.loadDEM", "%s: DEM format needs an .asc or .bil extension", path)
		}
		dem = r.res.Domain.Height.Clone()
	case ".asc":
		dem, err = raster.ReadASCII(path, r.proj())
	case ".bil":
		dem, err = raster.ReadBIL(path, r.proj())
	default:
		return hydroerr.Unsupported("pipeline.loadDEM", "%s: DEM format needs an .asc or .bil extension", path)
	}
	if err != nil {
		return err
	}
	dem.NoData = r.noData()
	if !dem.Geom.SameShape(r.res.Fine) {
		dem = dem.ResampleBilinear(r.res.Fine)
	}
	r.dem = dem
	return nil
}

func (r *run) deriveTerrain(ctx context.Context) error {
	var err error
	if r.filled, r.fdir, r.facc, err = r.terrain.FlowAccumulationWorkflow(ctx, r.dem); err != nil {
		return err
	}
	if r.streams, err = r.terrain.ExtractStreams(ctx, r.facc, r.cfg.Terrain.Threshold); err != nil {
		return err
	}
	if r.order, err = r.terrain.StrahlerOrder(ctx, r.fdir, r.streams); err != nil {
		return err
	}
	r.channel = r.streams.Map(func(v float64) float64 {
		if r.streams.IsNoData(v) {
			return r.noData()
		}
		return 0
	})
	return nil
}

func (r *run) locateGages(context.Context) error {
	points, err := gage.ReadCSV(r.cfg.Inputs.ForecastPoints, r.cfg.Gages)
	if err != nil {
		return err
	}
	res, err := gage.Locate(points, r.conv, gage.Inputs{
		Streams: r.streams,
		Fdir:    r.fdir,
		Facc:    r.facc,
		Channel: r.channel,
	}, r.cfg.Gages, r.logger)
	if err != nil {
		return err
	}
	r.points, r.res.Gages, r.channel = res.Points, res, res.Channel
	return nil
}

func (r *run) extractNetwork(context.Context) error {
	net, err := network.Extract(r.geom, network.Sources{
		Channel:   r.channel,
		Fdir:      r.fdir,
		Elevation: r.filled,
		Order:     r.order,
	}, r.conv, r.logger)
	if err != nil {
		return err
	}
	r.res.Network = net
	r.links = net.LinkGrid(r.noData())

	r.metrics.ArcsTotal.Set(float64(len(net.Arcs)))
	r.metrics.NodesTotal.Set(float64(len(net.Nodes)))
	r.metrics.MultipartSkipped.Add(float64(net.Multipart))
	if len(net.Arcs) == 0 {
		return hydroerr.Graph("pipeline.extractNetwork", hydroerr.NoArc,
			"no channel cells above a threshold of %d", r.cfg.Terrain.Threshold)
	}
	return nil
}

func (r *run) resolveTopology(context.Context) error {
	topo, err := topology.Resolve(topology.LinksFromNetwork(r.res.Network), r.logger)
	if err != nil {
		return err
	}
	r.res.Topology = topo
	r.metrics.StragglersTotal.Add(float64(len(topo.Stragglers)))
	r.metrics.TopologyMaxLevel.Set(float64(topo.MaxLevel))
	return nil
}

func (r *run) buildLakes(context.Context) error {
	lc := r.cfg.Lakes
	polys, err := geomops.ReadPolygons(r.cfg.Inputs.Lakes, r.proj(), lc.IDField, lc.AreaField)
	if err != nil {
		return err
	}
	set, err := basin.BuildLakes(r.geom, basin.LakeInputs{
		Polygons: polys,
		Channel:  r.channel,
		Facc:     r.facc,
		Filled:   r.filled,
	}, r.conv, lc, r.logger)
	if err != nil {
		return err
	}
	r.res.Lakes, r.channel = set, set.Channel

	r.metrics.LakesTotal.Set(float64(len(set.Lakes)))
	r.metrics.LakesDroppedTotal.Add(float64(len(set.Dropped)))
	r.metrics.LakesShallowTotal.Add(float64(len(set.Shallow)))
	return nil
}

func (r *run) parameterize(context.Context) error {
	opts := routing.Options{NoData: r.noData()}
	if r.res.Lakes != nil {
		opts.Waterbodies = r.res.Lakes.Waterbodies(r.res.Network)
	}
	if len(r.points) > 0 {
		opts.Gages = gage.Associate(r.points, r.links, r.res.Network, r.logger)
	}

	table, err := routing.Parameterize(r.res.Network, r.res.Topology, r.cfg.Channel, opts, r.logger)
	if err != nil {
		return err
	}
	r.res.Routing = table
	r.metrics.NegativeDropsTotal.Add(float64(table.NegativeDrops))
	r.metrics.SlopeFloorTotal.Add(float64(table.SlopeFloored))
	r.metrics.GagedArcsTotal.Set(float64(table.Gaged))
	return nil
}

func (r *run) buildBuckets(context.Context) error {
	fine, err := r.basinRaster()
	if err != nil {
		return err
	}
	b := basin.BuildBuckets(fine, r.res.Domain.Geometry, r.cfg.Groundwater, r.logger)
	r.res.Buckets = b
	r.metrics.BasinsTotal.Set(float64(len(b.Rows)))
	r.metrics.BasinsLostTotal.Add(float64(len(b.Lost)))
	return nil
}

// basinRaster is the fine-grid basin labelling chosen by
// groundwater.method.
func (r *run) basinRaster() (*raster.Raster, error) {
	switch r.cfg.Groundwater.Method {
	case config.MethodMask:
		if r.res.Gages == nil {
			return nil, hydroerr.New(hydroerr.ErrInvalidConfig, "pipeline.basinRaster").
				Contextf("groundwater.method %q needs inputs.forecast_points", config.MethodMask).Err()
		}
		return r.res.Gages.BasinMask, nil
	case config.MethodPolygons:
		polys, err := geomops.ReadPolygons(r.cfg.Inputs.BasinPolygons, r.proj(), "", "")
		if err != nil {
			return nil, err
		}
		return basin.Rasterize(r.geom, polys, r.res.Fine, r.noData())
	default:
		return basin.Subbasins(r.fdir, r.links), nil
	}
}

func (r *run) write(context.Context) error {
	dir := r.cfg.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return hydroerr.IO("pipeline.write", dir, err)
	}
	out := func(name string) string { return filepath.Join(dir, name) }

	writers := []deckFile{
		{ncio.RouteLinkFile, func(path string) error { return ncio.WriteRouteLink(path, r.res.Routing) }},
		{ncio.FulldomFile, func(path string) error { return ncio.WriteFulldom(path, r.fulldom()) }},
		{ConfigFile, r.cfg.Save},
	}
	if lakes := r.res.Lakes; lakes != nil {
		writers = append(writers, deckFile{ncio.LakeParmFile, func(path string) error { return ncio.WriteLakeParm(path, lakes) }})
		if len(lakes.Shallow) > 0 {
			writers = append(writers, deckFile{basin.ShallowLakesFile, func(path string) error { return basin.WriteShallowLakes(path, lakes.Shallow) }})
		}
	}
	if b := r.res.Buckets; b != nil {
		writers = append(writers,
			deckFile{ncio.GWBucketsFile, func(path string) error { return ncio.WriteGWBuckets(path, b) }},
			deckFile{ncio.GWBasinsFile, func(path string) error { return ncio.WriteGWBasins(path, b) }})
	}
	if r.cfg.Output.Snapshot {
		writers = append(writers, deckFile{network.SnapshotFile, r.snapshot})
	}

	for _, w := range writers {
		path := out(w.name)
		if err := w.fn(path); err != nil {
			return err
		}
		r.res.Files = append(r.res.Files, path)
		r.metrics.OutputFilesTotal.Inc()
		r.logger.Debug("deck file written", logging.Path(path))
	}
	return nil
}

// deckFile is one output file and the function that writes it.
type deckFile struct {
	name string
	fn   func(path string) error
}

func (r *run) fulldom() ncio.Fulldom {
	d := ncio.Fulldom{
		Topography:    r.dem,
		FlowDirection: r.fdir,
		FlowAcc:       r.facc,
		Channel:       r.channel,
		StreamOrder:   r.order,
		LinkID:        r.links,
		Factors:       r.cfg.Terrain,
	}
	if r.res.Lakes != nil {
		d.LakeGrid = r.res.Lakes.Grid
	}
	if r.res.Gages != nil {
		d.Frxst, d.BasinMask = r.res.Gages.Frxst, r.res.Gages.BasinMask
	}
	return d
}

func (r *run) snapshot(path string) error {
	return network.WriteSnapshot(path, &network.Snapshot{
		RunID:   r.runID,
		Created: r.clock().UTC(),
		Geogrid: r.cfg.Inputs.Geogrid,
		Network: r.res.Network,
		Order:   r.res.Topology.Order,
	})
}

func (r *run) pack(context.Context) error {
	m, err := archive.BuildManifest(r.cfg.Output.Dir, r.runID, r.clock())
	if err != nil {
		return err
	}
	path, err := archive.Pack(r.cfg.Output.Dir, m)
	if err != nil {
		return err
	}
	r.res.Archive = path
	r.logger.Info("deck archived", logging.Path(path), logging.Count(len(m.Files)))
	return nil
}

func (r *run) publish(ctx context.Context) error {
	uploader := r.uploader
	if uploader == nil {
		client, err := publish.NewClient(ctx, r.cfg.Output.Publish)
		if err != nil {
			return err
		}
		uploader = client
	}
	keys, err := publish.New(uploader, r.cfg.Output.Publish, r.logger).
		Publish(ctx, r.runID, r.res.Archive, filepath.Join(r.cfg.Output.Dir, archive.ManifestFile))
	r.res.Published = keys
	return err
}
