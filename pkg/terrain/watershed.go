package terrain

import "github.com/dd0wney/wrfhydro-prep/pkg/raster"

// Watershed labels every cell with the value of the first labelled cell its
// D8 path reaches, the cell itself included. labels carries outlet values
// and NoData elsewhere. Cells draining off the grid, into NoData or around
// a pointer loop without meeting a label stay NoData.
func Watershed(fdir, labels *raster.Raster) *raster.Raster {
	g := labels.Geom
	out := raster.New(g, labels.NoData)
	done := make([]bool, g.Len())
	onPath := make([]bool, g.Len())

	var path []int
	for start := range out.Data {
		if done[start] {
			continue
		}
		path = path[:0]
		label := labels.NoData

		r, c := g.Cell(start)
		for {
			off := g.Offset(r, c)
			if done[off] {
				label = out.Data[off]
				break
			}
			if labels.Valid(r, c) {
				label = labels.At(r, c)
				path = append(path, off)
				break
			}
			if onPath[off] {
				break
			}
			onPath[off] = true
			path = append(path, off)

			nr, nc, ok := Downstream(fdir, r, c)
			if !ok {
				break
			}
			r, c = nr, nc
		}

		for _, off := range path {
			out.Data[off] = label
			done[off] = true
			onPath[off] = false
		}
	}
	return out
}
