package geomops

import (
	"sort"

	"github.com/ctessum/geom"

	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
	"github.com/dd0wney/wrfhydro-prep/pkg/terrain"
)

// Native implements Ops on cell centers and ctessum/geom polygons.
type Native struct{}

// NewNative returns the built-in geometry engine.
func NewNative() Native { return Native{} }

// VectorizeStreams splits the channel network into links. A link starts at
// a channel head (no channel inflow) or at a confluence (two or more
// channel inflows) and runs down the D8 path until the next link start.
// Each polyline ends on the center of the downstream link's first cell so
// neighbouring links share a node; links that leave the channel network
// end half a cell past their last center, in the flow direction.
//
// Links are emitted in row-major order of their first cell.
func (Native) VectorizeStreams(streams, fdir *raster.Raster) ([]Feature, error) {
	g := streams.Geom
	isStream := func(r, c int) bool { return streams.Valid(r, c) }

	inflow := make([]int, g.Len())
	for i := range streams.Data {
		r, c := g.Cell(i)
		if !isStream(r, c) {
			continue
		}
		for _, u := range terrain.Upstream(fdir, r, c) {
			if isStream(u[0], u[1]) {
				inflow[i]++
			}
		}
	}

	isHead := func(i int) bool { return inflow[i] != 1 }
	var heads []int
	for i := range streams.Data {
		if r, c := g.Cell(i); isStream(r, c) && isHead(i) {
			heads = append(heads, i)
		}
	}
	sort.Ints(heads)

	nodes := newNodeTable()
	features := make([]Feature, 0, len(heads))
	for _, head := range heads {
		var line geom.LineString
		var cells []int
		cur := head
		to := 0
		for {
			r, c := g.Cell(cur)
			line = append(line, center(g, r, c))
			cells = append(cells, cur)

			dr, dc, ok := terrain.Downstream(fdir, r, c)
			if !ok || !isStream(dr, dc) {
				// Leaves the network: end on the cell edge.
				x, y := g.ToCoordinate(r, c)
				if fr, fc, ok := terrain.Offset(int(fdir.At(r, c))); ok && fdir.Valid(r, c) {
					x += float64(fc) * g.DX / 2
					y += float64(fr) * g.DY / 2
				}
				line = append(line, geom.Point{X: x, Y: y})
				to = nodes.outlet(cur)
				break
			}
			next := g.Offset(dr, dc)
			if isHead(next) || next == head {
				line = append(line, center(g, dr, dc))
				to = nodes.cell(next)
				break
			}
			cur = next
		}
		features = append(features, Feature{
			Geom:     geom.MultiLineString{line},
			FromNode: nodes.cell(head),
			ToNode:   to,
			Cells:    cells,
		})
	}
	return features, nil
}

func center(g grid.Geometry, row, col int) geom.Point {
	x, y := g.ToCoordinate(row, col)
	return geom.Point{X: x, Y: y}
}

// nodeTable hands out node ids 1..n in first-use order. Cell nodes and
// outlet nodes live in separate key spaces so a one-cell outlet link never
// starts and ends on the same node.
type nodeTable struct {
	cells   map[int]int
	outlets map[int]int
	next    int
}

func newNodeTable() *nodeTable {
	return &nodeTable{cells: map[int]int{}, outlets: map[int]int{}, next: 1}
}

func (t *nodeTable) cell(offset int) int {
	return t.lookup(t.cells, offset)
}

func (t *nodeTable) outlet(offset int) int {
	return t.lookup(t.outlets, offset)
}

func (t *nodeTable) lookup(m map[int]int, key int) int {
	if id, ok := m[key]; ok {
		return id
	}
	id := t.next
	m[key] = id
	t.next++
	return id
}
