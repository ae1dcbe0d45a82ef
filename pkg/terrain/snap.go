package terrain

import (
	"math"

	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// SnapPourPoint moves (row, col) to the cell with the largest flow
// accumulation whose center lies within tol map units of the start cell's
// center. When keep is non-nil only cells it accepts are candidates. Ties go
// to the first candidate in row-major order. ok is false when nothing
// qualifies.
func SnapPourPoint(facc *raster.Raster, row, col int, tol float64, keep func(r, c int) bool) (int, int, bool) {
	g := facc.Geom
	dx, dy := math.Abs(g.DX), math.Abs(g.DY)
	wr, wc := int(tol/dy), int(tol/dx)

	bestR, bestC, found := 0, 0, false
	best := math.Inf(-1)
	for r := row - wr; r <= row+wr; r++ {
		for c := col - wc; c <= col+wc; c++ {
			if !facc.Valid(r, c) {
				continue
			}
			if math.Hypot(float64(r-row)*dy, float64(c-col)*dx) > tol {
				continue
			}
			if keep != nil && !keep(r, c) {
				continue
			}
			if v := facc.At(r, c); v > best {
				best, bestR, bestC, found = v, r, c, true
			}
		}
	}
	return bestR, bestC, found
}
