package basin

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/geomops"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/network"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
	"github.com/dd0wney/wrfhydro-prep/pkg/terrain"
)

// ShallowLakesFile lists lakes whose elevation range is below the minimum
// depth.
const ShallowLakesFile = "Lakes_with_minimum_depth.csv"

// Lake is one LAKEPARM row.
type Lake struct {
	ID       int
	AreaKm2  float64
	MinElev  float64
	MaxElev  float64 // LkMxE
	WeirC    float64
	WeirL    float64
	OrificeC float64
	OrificeA float64
	OrificeE float64
	WeirE    float64
	Lat, Lon float64
	IFD      float64
	Outlet   int  // fine-grid offset of the outlet cell, -1 when not resolved
	Resolved bool // covers at least one routing-grid cell
}

// Depth is the lake's elevation range before any minimum-depth adjustment
// has been applied to MinElev.
func (l Lake) Depth() float64 { return l.MaxElev - l.MinElev }

// LakeInputs are the fine-grid rasters lakes are resolved against.
type LakeInputs struct {
	Polygons []geomops.Polygon
	Channel  *raster.Raster // CHANNELGRID
	Facc     *raster.Raster
	Filled   *raster.Raster // depression-filled elevation
}

// ShallowLake records a lake whose range fell below the minimum depth.
type ShallowLake struct {
	ID    int
	Depth float64
}

// LakeSet is the result of merging lakes into the routing grids.
type LakeSet struct {
	Lakes   []Lake
	Grid    *raster.Raster // LAKEGRID: lake ids, NoData elsewhere
	Channel *raster.Raster // CHANNELGRID with lake cells cleared and outlets marked
	Shallow []ShallowLake
	Dropped []int
}

// BuildLakes rasterizes lake polygons onto the routing grid, marks each
// lake's outlet in the channel grid and derives the reservoir parameters.
// With cfg.Gridded set, lakes that cover no routing cell are dropped;
// otherwise they are kept with the elevation under their centroid.
func BuildLakes(ops geomops.Ops, in LakeInputs, conv network.LatLonConverter, cfg config.Lakes, logger logging.Logger) (*LakeSet, error) {
	g := in.Channel.Geom
	noData := in.Channel.NoData

	lakeGrid, err := Rasterize(ops, in.Polygons, g, noData)
	if err != nil {
		return nil, err
	}

	footprint := map[int][]int{}
	for i, v := range lakeGrid.Data {
		if !lakeGrid.IsNoData(v) {
			footprint[int(v)] = append(footprint[int(v)], i)
		}
	}

	set := &LakeSet{Grid: lakeGrid, Channel: in.Channel.Clone()}
	for id, cells := range footprint {
		for _, off := range cells {
			set.Channel.Data[off] = noData
		}
		set.Channel.Data[outlet(in.Facc, cells)] = float64(id)
	}

	tol := cfg.SnapCells * math.Abs(g.DX)
	for _, p := range in.Polygons {
		l := Lake{
			ID:       p.ID,
			AreaKm2:  geomops.Area(p),
			WeirC:    cfg.WeirC,
			WeirL:    cfg.WeirL,
			OrificeC: cfg.OrificeC,
			OrificeA: cfg.OrificeA,
			IFD:      cfg.IFD,
			Outlet:   -1,
		}

		var cx, cy float64
		if cells, ok := footprint[p.ID]; ok {
			l.Resolved = true
			l.Outlet = outlet(in.Facc, cells)

			r, c := g.Cell(l.Outlet)
			sr, sc, ok := terrain.SnapPourPoint(in.Facc, r, c, tol, nil)
			if !ok {
				sr, sc = r, c
			}
			l.MinElev = in.Filled.At(sr, sc)

			elev := make([]float64, 0, len(cells))
			xs := make([]float64, len(cells))
			ys := make([]float64, len(cells))
			for i, off := range cells {
				if v := in.Filled.Data[off]; !in.Filled.IsNoData(v) {
					elev = append(elev, v)
				}
				xs[i], ys[i] = g.ToCoordinate(g.Cell(off))
			}
			if len(elev) == 0 {
				set.drop(l.ID, logger, "lake footprint has no elevation")
				continue
			}
			l.MaxElev = floats.Max(elev)
			cx = floats.Sum(xs) / float64(len(xs))
			cy = floats.Sum(ys) / float64(len(ys))
		} else {
			if cfg.Gridded {
				set.drop(l.ID, logger, "lake not resolved on the routing grid")
				continue
			}
			cx, cy = ops.Centroid(p)
			v, ok := in.Filled.Sample(cx, cy)
			if !ok {
				set.drop(l.ID, logger, "lake centroid outside the routing grid")
				continue
			}
			l.MinElev, l.MaxElev = v, v
		}

		if depth := l.Depth(); depth < cfg.MinDepth {
			set.Shallow = append(set.Shallow, ShallowLake{ID: l.ID, Depth: depth})
			if depth == 0 {
				l.MinElev = l.MaxElev - cfg.MinDepth
			}
		}
		l.OrificeE = l.MinElev + (l.MaxElev-l.MinElev)/3
		l.WeirE = l.MinElev + (l.MaxElev-l.MinElev)*0.9

		lat, lon, err := conv.ToLatLon(cx, cy)
		if err != nil {
			return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "basin.BuildLakes").Cause(err).Err()
		}
		l.Lat, l.Lon = lat, lon
		set.Lakes = append(set.Lakes, l)
	}

	if len(set.Shallow) > 0 {
		logger.Warn("lakes shallower than the minimum depth",
			logging.Count(len(set.Shallow)), logging.Float64("min_depth", cfg.MinDepth))
	}
	logger.Info("lakes built",
		logging.Bool("gridded", cfg.Gridded),
		logging.Int("polygons", len(in.Polygons)),
		logging.Int("lakes", len(set.Lakes)),
		logging.Int("dropped", len(set.Dropped)))
	return set, nil
}

func (s *LakeSet) drop(id int, logger logging.Logger, msg string) {
	s.Dropped = append(s.Dropped, id)
	logger.Warn(msg, logging.Lake(id))
}

// outlet returns the cell of cells with the largest accumulation; ties go to
// the first in row-major order.
func outlet(facc *raster.Raster, cells []int) int {
	best, bestV := cells[0], math.Inf(-1)
	for _, off := range cells {
		if v := facc.Data[off]; !facc.IsNoData(v) && v > bestV {
			best, bestV = off, v
		}
	}
	return best
}

// Waterbodies maps each arc whose from-node lies on a lake cell to that
// lake's id.
func (s *LakeSet) Waterbodies(net *network.Network) map[int]int {
	out := map[int]int{}
	for _, a := range net.Arcs {
		n, ok := net.Node(a.From)
		if !ok {
			continue
		}
		if v, ok := s.Grid.Sample(n.X, n.Y); ok {
			out[a.ID] = int(v)
		}
	}
	return out
}

// AscendingIndex returns the argsort of lake ids.
func (s *LakeSet) AscendingIndex() []int {
	ids := make([]float64, len(s.Lakes))
	for i, l := range s.Lakes {
		ids[i] = float64(l.ID)
	}
	idx := make([]int, len(ids))
	floats.Argsort(ids, idx)
	return idx
}

// WriteShallowLakes writes one "id,depth" line per shallow lake.
func WriteShallowLakes(path string, lakes []ShallowLake) error {
	f, err := os.Create(path)
	if err != nil {
		return hydroerr.IO("basin.WriteShallowLakes", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, l := range lakes {
		if err := w.Write([]string{strconv.Itoa(l.ID), strconv.FormatFloat(l.Depth, 'f', -1, 64)}); err != nil {
			return hydroerr.IO("basin.WriteShallowLakes", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return hydroerr.IO("basin.WriteShallowLakes", path, err)
	}
	return nil
}
