package terrain

import (
	"container/heap"
	"context"
	"math"

	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// Native is the built-in D8 engine. It needs no external tools.
type Native struct {
	logger logging.Logger
}

// NewNative returns a Native engine that logs through logger.
func NewNative(logger logging.Logger) *Native {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Native{logger: logger}
}

// FlowAccumulationWorkflow runs a priority-flood fill from the grid edge
// (and from cells bordering NoData). Cells inside a depression or on a
// flat take the pointer toward the neighbour that flooded them, every
// other cell takes its steepest descent on the filled surface.
func (n *Native) FlowAccumulationWorkflow(ctx context.Context, dem *raster.Raster) (filled, fdir, facc *raster.Raster, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	filled, parent := priorityFlood(dem)
	fdir = d8(filled, parent)
	facc = accumulate(fdir)

	n.logger.Debug("native flow workflow complete",
		logging.Int("cells", dem.Geom.Len()),
		logging.Float64("max_accumulation", maxValid(facc)))
	return filled, fdir, facc, nil
}

// ExtractStreams marks cells with accumulation strictly above threshold.
func (n *Native) ExtractStreams(ctx context.Context, facc *raster.Raster, threshold int) (*raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := raster.New(facc.Geom, facc.NoData)
	count := 0
	for i, v := range facc.Data {
		if !facc.IsNoData(v) && v > float64(threshold) {
			out.Data[i] = 1
			count++
		}
	}
	n.logger.Debug("streams extracted", logging.Count(count), logging.Int("threshold", threshold))
	return out, nil
}

// StrahlerOrder walks stream cells from the headwaters down. A cell takes
// the highest order among its stream tributaries, plus one when two or more
// tributaries share that order. Headwater cells are order 1.
func (n *Native) StrahlerOrder(ctx context.Context, fdir, streams *raster.Raster) (*raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := streams.Geom
	out := raster.New(g, streams.NoData)

	isStream := func(r, c int) bool { return streams.Valid(r, c) }

	// Kahn's algorithm over stream cells.
	pending := make([]int, g.Len())
	maxOrder := make([]float64, g.Len())
	maxCount := make([]int, g.Len())
	var queue []int
	for i := range streams.Data {
		r, c := g.Cell(i)
		if !isStream(r, c) {
			continue
		}
		for _, u := range Upstream(fdir, r, c) {
			if isStream(u[0], u[1]) {
				pending[i]++
			}
		}
		if pending[i] == 0 {
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]

		order := 1.0
		if maxOrder[i] > 0 {
			order = maxOrder[i]
			if maxCount[i] > 1 {
				order++
			}
		}
		out.Data[i] = order

		r, c := g.Cell(i)
		dr, dc, ok := Downstream(fdir, r, c)
		if !ok || !isStream(dr, dc) {
			continue
		}
		j := g.Offset(dr, dc)
		switch {
		case order > maxOrder[j]:
			maxOrder[j], maxCount[j] = order, 1
		case order == maxOrder[j]:
			maxCount[j]++
		}
		if pending[j]--; pending[j] == 0 {
			queue = append(queue, j)
		}
	}
	return out, nil
}

type floodCell struct {
	elev  float64
	seq   int
	index int
}

// floodQueue is a min-heap on elevation; ties pop in insertion order.
type floodQueue []floodCell

func (q floodQueue) Len() int { return len(q) }
func (q floodQueue) Less(i, j int) bool {
	if q[i].elev != q[j].elev {
		return q[i].elev < q[j].elev
	}
	return q[i].seq < q[j].seq
}
func (q floodQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *floodQueue) Push(x any) {
	*q = append(*q, x.(floodCell))
}

func (q *floodQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[0 : n-1]
	return x
}

// priorityFlood returns the depression-filled surface and, for every
// non-seed cell, the offset of the neighbour that flooded it (-1 for seeds
// and NoData).
func priorityFlood(dem *raster.Raster) (*raster.Raster, []int) {
	g := dem.Geom
	filled := dem.Clone()
	parent := make([]int, g.Len())
	done := make([]bool, g.Len())
	for i := range parent {
		parent[i] = -1
	}

	q := make(floodQueue, 0, 2*(g.Rows+g.Cols))
	seq := 0
	push := func(i int, elev float64) {
		heap.Push(&q, floodCell{elev: elev, seq: seq, index: i})
		seq++
		done[i] = true
	}

	for i, v := range dem.Data {
		if dem.IsNoData(v) {
			done[i] = true
			filled.Data[i] = dem.NoData
			continue
		}
		r, c := g.Cell(i)
		if isEdge(dem, r, c) {
			push(i, v)
		}
	}

	for q.Len() > 0 {
		cell := heap.Pop(&q).(floodCell)
		r, c := g.Cell(cell.index)
		for _, o := range offsets {
			nr, nc := r+o[0], c+o[1]
			if !g.Contains(nr, nc) {
				continue
			}
			j := g.Offset(nr, nc)
			if done[j] {
				continue
			}
			if filled.Data[j] < cell.elev {
				filled.Data[j] = cell.elev
			}
			parent[j] = cell.index
			push(j, filled.Data[j])
		}
	}
	return filled, parent
}

// isEdge reports whether (row, col) touches the grid boundary or a NoData
// cell, and so can drain out of the domain.
func isEdge(r *raster.Raster, row, col int) bool {
	for _, o := range offsets {
		if !r.Valid(row+o[0], col+o[1]) {
			return true
		}
	}
	return false
}

func d8(filled *raster.Raster, parent []int) *raster.Raster {
	g := filled.Geom
	fdir := raster.New(g, filled.NoData)
	dx, dy := math.Abs(g.DX), math.Abs(g.DY)
	diag := math.Hypot(dx, dy)

	for i, z := range filled.Data {
		if filled.IsNoData(z) {
			continue
		}
		r, c := g.Cell(i)

		best, code := 0.0, 0
		for k, o := range offsets {
			nr, nc := r+o[0], c+o[1]
			if !filled.Valid(nr, nc) {
				continue
			}
			dist := diag
			switch {
			case o[0] == 0:
				dist = dx
			case o[1] == 0:
				dist = dy
			}
			if s := (z - filled.At(nr, nc)) / dist; s > best {
				best, code = s, Directions[k]
			}
		}

		switch {
		case code != 0:
		case parent[i] >= 0:
			pr, pc := g.Cell(parent[i])
			code = Toward(pr-r, pc-c)
		default:
			code = outward(filled, r, c)
		}
		fdir.Data[i] = float64(code)
	}
	return fdir
}

// outward points a seed cell at its first neighbour that is off the grid
// or NoData.
func outward(r *raster.Raster, row, col int) int {
	for k, o := range offsets {
		if !r.Valid(row+o[0], col+o[1]) {
			return Directions[k]
		}
	}
	return 0
}

// accumulate counts, for every cell, itself plus all cells draining
// through it.
func accumulate(fdir *raster.Raster) *raster.Raster {
	g := fdir.Geom
	facc := raster.New(g, fdir.NoData)
	pending := make([]int, g.Len())

	for i, v := range fdir.Data {
		if fdir.IsNoData(v) {
			continue
		}
		facc.Data[i] = 1
		r, c := g.Cell(i)
		if dr, dc, ok := Downstream(fdir, r, c); ok && fdir.Valid(dr, dc) {
			pending[g.Offset(dr, dc)]++
		}
	}

	var queue []int
	for i, v := range fdir.Data {
		if !fdir.IsNoData(v) && pending[i] == 0 {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		r, c := g.Cell(i)
		dr, dc, ok := Downstream(fdir, r, c)
		if !ok || !fdir.Valid(dr, dc) {
			continue
		}
		j := g.Offset(dr, dc)
		facc.Data[j] += facc.Data[i]
		if pending[j]--; pending[j] == 0 {
			queue = append(queue, j)
		}
	}
	return facc
}

func maxValid(r *raster.Raster) float64 {
	m := 0.0
	for _, v := range r.Data {
		if !r.IsNoData(v) && v > m {
			m = v
		}
	}
	return m
}
