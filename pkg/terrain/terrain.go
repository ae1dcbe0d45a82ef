// Package terrain derives the D8 drainage rasters the routing network is
// built from: filled elevation, flow direction, flow accumulation, channel
// cells and Strahler order.
//
// Flow direction uses the ESRI pointer encoding throughout:
//
//	32  64  128
//	16   .    1
//	 8   4    2
package terrain

import (
	"context"

	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// Ops is the terrain-processing boundary. The pipeline depends only on
// this interface; engines are injected.
type Ops interface {
	// FlowAccumulationWorkflow fills depressions, then derives D8 flow
	// direction and flow accumulation (in cells, including the cell itself).
	FlowAccumulationWorkflow(ctx context.Context, dem *raster.Raster) (filled, fdir, facc *raster.Raster, err error)

	// ExtractStreams marks cells whose accumulation exceeds threshold with 1
	// and everything else with NoData.
	ExtractStreams(ctx context.Context, facc *raster.Raster, threshold int) (*raster.Raster, error)

	// StrahlerOrder assigns a Strahler order to every stream cell. Off-stream
	// cells are NoData.
	StrahlerOrder(ctx context.Context, fdir, streams *raster.Raster) (*raster.Raster, error)
}

// D8 pointer codes.
const (
	East      = 1
	SouthEast = 2
	South     = 4
	SouthWest = 8
	West      = 16
	NorthWest = 32
	North     = 64
	NorthEast = 128
)

// Directions lists the pointer codes clockwise from east.
var Directions = [8]int{East, SouthEast, South, SouthWest, West, NorthWest, North, NorthEast}

var offsets = [8][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}

// Offset returns the (row, col) step of a pointer code.
func Offset(code int) (dr, dc int, ok bool) {
	for i, d := range Directions {
		if d == code {
			return offsets[i][0], offsets[i][1], true
		}
	}
	return 0, 0, false
}

// Toward returns the pointer code that moves by (dr, dc), or 0.
func Toward(dr, dc int) int {
	for i, o := range offsets {
		if o[0] == dr && o[1] == dc {
			return Directions[i]
		}
	}
	return 0
}

// Downstream follows the pointer at (row, col). ok is false when the cell
// has no valid pointer or drains off the grid.
func Downstream(fdir *raster.Raster, row, col int) (r, c int, ok bool) {
	if !fdir.Valid(row, col) {
		return 0, 0, false
	}
	dr, dc, ok := Offset(int(fdir.At(row, col)))
	if !ok {
		return 0, 0, false
	}
	r, c = row+dr, col+dc
	return r, c, fdir.Geom.Contains(r, c)
}

// DrainsInto reports whether the neighbour at (nr, nc) points at (row, col).
func DrainsInto(fdir *raster.Raster, nr, nc, row, col int) bool {
	r, c, ok := Downstream(fdir, nr, nc)
	return ok && r == row && c == col
}

// Upstream returns the neighbours of (row, col) that drain into it, in
// pointer-code order.
func Upstream(fdir *raster.Raster, row, col int) [][2]int {
	var up [][2]int
	for _, o := range offsets {
		nr, nc := row+o[0], col+o[1]
		if DrainsInto(fdir, nr, nc, row, col) {
			up = append(up, [2]int{nr, nc})
		}
	}
	return up
}
