// Package grid describes a regular north-up grid: its spatial reference and
// the affine transform between cell indices and coordinates.
//
// The origin (X00, Y00) is the outer corner of the first cell, so cell
// centers sit half a cell inside it. DY is negative for north-up grids and
// its sign is carried through every computation unchanged.
package grid

import (
	"fmt"
	"math"
)

// Geometry is an immutable grid definition. Copy it freely.
type Geometry struct {
	Proj Projection
	DX   float64
	DY   float64
	X00  float64
	Y00  float64
	Rows int
	Cols int
}

// Extent is an axis-aligned bounding box in grid coordinates.
type Extent struct {
	XMin, YMin, XMax, YMax float64
}

// New builds a Geometry from an origin corner, cell size and shape.
func New(proj Projection, x00, y00, dx, dy float64, rows, cols int) Geometry {
	return Geometry{Proj: proj, DX: dx, DY: dy, X00: x00, Y00: y00, Rows: rows, Cols: cols}
}

// ToCoordinate returns the center of cell (row, col).
func (g Geometry) ToCoordinate(row, col int) (x, y float64) {
	x = float64(col)*g.DX + g.X00 + g.DX/2
	y = float64(row)*g.DY + g.Y00 + g.DY/2
	return x, y
}

// ToIndex returns the cell enclosing (x, y). Division truncates toward
// zero, so points up to one cell outside the first row or column map to
// index 0; use Contains to bound-check.
func (g Geometry) ToIndex(x, y float64) (row, col int) {
	col = int((x - g.X00) / g.DX)
	row = int((y - g.Y00) / g.DY)
	return row, col
}

// Contains reports whether (row, col) lies on the grid.
func (g Geometry) Contains(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// Extent walks Rows steps of DY and Cols steps of DX from the origin.
func (g Geometry) Extent() Extent {
	return Extent{
		XMin: g.X00,
		YMin: g.Y00 + float64(g.Rows)*g.DY,
		XMax: g.X00 + float64(g.Cols)*g.DX,
		YMax: g.Y00,
	}
}

// Regrid returns the same extent at a finer (factor > 1) or coarser
// (factor < 1) resolution. The origin is untouched. Coarsening requires a
// factor whose inverse divides both counts; Regrid panics otherwise, since
// a truncated count would shrink the extent.
func (g Geometry) Regrid(factor float64) Geometry {
	if !(factor > 0) {
		panic(fmt.Sprintf("grid: regrid factor must be positive, got %v", factor))
	}
	rows, okRows := scaledCount(g.Rows, factor)
	cols, okCols := scaledCount(g.Cols, factor)
	if !okRows || !okCols {
		panic(fmt.Sprintf("grid: regrid factor %v does not divide a %dx%d grid", factor, g.Rows, g.Cols))
	}
	out := g
	out.DX = g.DX / factor
	out.DY = g.DY / factor
	out.Rows = rows
	out.Cols = cols
	return out
}

// scaledCount rounds n*factor to a cell count and reports whether the
// product was whole.
func scaledCount(n int, factor float64) (int, bool) {
	v := float64(n) * factor
	r := math.Round(v)
	return int(r), r >= 1 && math.Abs(v-r) <= 1e-9*math.Max(1, v)
}

// GeoTransform returns the GDAL-style affine transform
// (x00, dx, 0, y00, 0, dy).
func (g Geometry) GeoTransform() [6]float64 {
	return [6]float64{g.X00, g.DX, 0, g.Y00, 0, g.DY}
}

// GeoTransformString formats GeoTransform space-separated, as written to
// the CRS variable of gridded outputs.
func (g Geometry) GeoTransformString() string {
	gt := g.GeoTransform()
	return fmt.Sprintf("%v %v %v %v %v %v", gt[0], gt[1], gt[2], gt[3], gt[4], gt[5])
}

// CellArea is the area of one cell in squared projection units.
func (g Geometry) CellArea() float64 {
	return math.Abs(g.DX * g.DY)
}

// Len is the number of cells.
func (g Geometry) Len() int {
	return g.Rows * g.Cols
}

// Offset is the row-major position of (row, col).
func (g Geometry) Offset(row, col int) int {
	return row*g.Cols + col
}

// Cell is the inverse of Offset.
func (g Geometry) Cell(offset int) (row, col int) {
	return offset / g.Cols, offset % g.Cols
}

// SameShape reports whether two geometries index identical cells.
func (g Geometry) SameShape(o Geometry) bool {
	return g.Rows == o.Rows && g.Cols == o.Cols &&
		g.DX == o.DX && g.DY == o.DY && g.X00 == o.X00 && g.Y00 == o.Y00
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d cells of %gx%g at (%g, %g)", g.Rows, g.Cols, g.DX, g.DY, g.X00, g.Y00)
}
