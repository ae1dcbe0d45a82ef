// Package gage places forecast points on the routing grid, delineates the
// basins above them and ties gage ids to channel links.
package gage

import (
	"math"
	"strconv"

	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
	"github.com/dd0wney/wrfhydro-prep/pkg/terrain"
)

// Point is one forecast point.
type Point struct {
	ID       string
	Lat, Lon float64
	X, Y     float64 // projected
	Row, Col int     // channel cell after snapping
	Outlet   [2]int  // max-accumulation cell used for basin delineation
	Placed   bool    // on the grid
}

// Projector converts geographic coordinates to grid coordinates.
type Projector interface {
	FromLatLon(lat, lon float64) (x, y float64, err error)
}

// Inputs are the fine-grid rasters forecast points are placed on.
type Inputs struct {
	Streams *raster.Raster // 1 on channel cells
	Fdir    *raster.Raster
	Facc    *raster.Raster
	Channel *raster.Raster // CHANNELGRID
}

// Result holds the forecast-point grids.
type Result struct {
	Points    []Point
	Frxst     *raster.Raster // frxst_pts: gage values on snapped channel cells
	BasinMask *raster.Raster // basn_msk: 1-based point number upstream of each outlet
	Channel   *raster.Raster // CHANNELGRID, masked to basins when requested
}

// Locate projects and snaps the points, burns frxst_pts and delineates
// basn_msk. Points off the grid are skipped with a warning.
func Locate(points []Point, proj Projector, in Inputs, cfg config.Gages, logger logging.Logger) (*Result, error) {
	g := in.Facc.Geom
	noData := in.Facc.NoData
	tol := cfg.SnapCells * math.Abs(g.DX)

	res := &Result{
		Frxst:   raster.New(g, noData),
		Channel: in.Channel,
	}
	outlets := raster.New(g, noData)
	onChannel := func(r, c int) bool { return in.Streams.Valid(r, c) }

	for i, p := range points {
		x, y, err := proj.FromLatLon(p.Lat, p.Lon)
		if err != nil {
			return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "gage.Locate").Contextf("point %s", p.ID).Cause(err).Err()
		}
		p.X, p.Y = x, y

		row, col := g.ToIndex(x, y)
		if !g.Contains(row, col) {
			logger.Warn("forecast point outside the routing grid", logging.String("gage", p.ID))
			res.Points = append(res.Points, p)
			continue
		}
		p.Placed = true

		p.Row, p.Col = row, col
		if r, c, ok := terrain.SnapPourPoint(in.Facc, row, col, tol, onChannel); ok {
			p.Row, p.Col = r, c
		} else {
			logger.Warn("no channel cell within snap distance", logging.String("gage", p.ID), logging.Cell(row, col))
		}
		res.Frxst.Set(p.Row, p.Col, frxstValue(p.ID, i))

		p.Outlet = [2]int{row, col}
		if r, c, ok := terrain.SnapPourPoint(in.Facc, row, col, tol, nil); ok {
			p.Outlet = [2]int{r, c}
		}
		outlets.Set(p.Outlet[0], p.Outlet[1], float64(i+1))

		res.Points = append(res.Points, p)
	}

	res.BasinMask = terrain.Watershed(in.Fdir, outlets)
	if cfg.MaskChannels {
		res.Channel = MaskChannels(in.Channel, res.BasinMask)
	}

	logger.Info("forecast points located",
		logging.Int("points", len(points)),
		logging.Int("placed", placed(res.Points)))
	return res, nil
}

// MaskChannels sets channel cells inside a basin to 0 and those outside to
// -1. Non-channel cells are unchanged.
func MaskChannels(channel, mask *raster.Raster) *raster.Raster {
	out := channel.Clone()
	for i, v := range out.Data {
		if out.IsNoData(v) {
			continue
		}
		if mask.IsNoData(mask.Data[i]) {
			out.Data[i] = -1
		} else {
			out.Data[i] = 0
		}
	}
	return out
}

// frxstValue is the numeric gage id, or the 1-based point number when the
// id is not numeric.
func frxstValue(id string, i int) float64 {
	if v, err := strconv.ParseFloat(id, 64); err == nil {
		return v
	}
	return float64(i + 1)
}

func placed(points []Point) int {
	n := 0
	for _, p := range points {
		if p.Placed {
			n++
		}
	}
	return n
}
