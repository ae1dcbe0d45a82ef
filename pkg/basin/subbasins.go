package basin

import (
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
	"github.com/dd0wney/wrfhydro-prep/pkg/terrain"
)

// Subbasins labels every cell with the id of the link whose channel cell
// its D8 path meets first. links is the LINKID grid: link ids on channel
// cells, NoData elsewhere.
func Subbasins(fdir, links *raster.Raster) *raster.Raster {
	return terrain.Watershed(fdir, links)
}
