package ncio

import (
	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// Fulldom is the routing-grid set. Nil optional layers (lakes, forecast
// points, basin mask, link ids) are written filled with NoData.
type Fulldom struct {
	Topography    *raster.Raster
	FlowDirection *raster.Raster
	FlowAcc       *raster.Raster
	Channel       *raster.Raster
	StreamOrder   *raster.Raster
	LakeGrid      *raster.Raster
	Frxst         *raster.Raster
	BasinMask     *raster.Raster
	LinkID        *raster.Raster
	Factors       config.Terrain
}

// Layers returns the Fulldom variables in file order.
func (d Fulldom) Layers() []Layer {
	g := d.Topography.Geom
	noData := d.Topography.NoData
	orEmpty := func(r *raster.Raster) *raster.Raster {
		if r == nil {
			return raster.New(g, noData)
		}
		return r
	}
	return []Layer{
		{Name: "TOPOGRAPHY", Kind: Float32, Raster: d.Topography, Units: "Meters", Desc: "Elevation"},
		{Name: "FLOWDIRECTION", Kind: Int16, Raster: d.FlowDirection, Desc: "Flow direction (ESRI D8)"},
		{Name: "FLOWACC", Kind: Int32, Raster: d.FlowAcc, Desc: "Flow accumulation (cells)"},
		{Name: "CHANNELGRID", Kind: Int32, Raster: d.Channel, Desc: "Channel grid"},
		{Name: "STREAMORDER", Kind: Int16, Raster: d.StreamOrder, Desc: "Strahler stream order"},
		{Name: "LAKEGRID", Kind: Int32, Raster: orEmpty(d.LakeGrid), Desc: "Lake grid"},
		{Name: "frxst_pts", Kind: Int32, Raster: orEmpty(d.Frxst), Desc: "Forecast points"},
		{Name: "basn_msk", Kind: Int32, Raster: orEmpty(d.BasinMask), Desc: "Basin mask"},
		{Name: "LINKID", Kind: Int32, Raster: orEmpty(d.LinkID), Desc: "Link ID"},
		{Name: "RETDEPRTFAC", Kind: Float32, Raster: raster.Filled(g, d.Factors.RetDeprtFac, noData), Desc: "Retention depth factor"},
		{Name: "OVROUGHRTFAC", Kind: Float32, Raster: raster.Filled(g, d.Factors.OvRoughRtFac, noData), Desc: "Overland roughness factor"},
		{Name: "LKSATFAC", Kind: Float32, Raster: raster.Filled(g, d.Factors.LkSatFac, noData), Desc: "Lateral saturated conductivity factor"},
	}
}

// Geometry is the routing grid the layers sit on.
func (d Fulldom) Geometry() grid.Geometry { return d.Topography.Geom }

// WriteFulldom writes the routing grids to path.
func WriteFulldom(path string, d Fulldom) error {
	return WriteGrid(path, d.Geometry(), d.Layers(), []Attr{
		{Name: "Conventions", Value: "CF-1.5"},
		{Name: "GDAL_DataType", Value: "Generic"},
	})
}
