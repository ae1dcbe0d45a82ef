package gage

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/network"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// fromNode is an arc's upstream endpoint in the search index.
type fromNode struct {
	geom.Point
	arc int
}

// ArcIndex finds the arc whose from-node is nearest to a point.
type ArcIndex struct {
	tree *rtree.Rtree
	size int
}

// NewArcIndex indexes the from-nodes of every arc in net.
func NewArcIndex(net *network.Network) *ArcIndex {
	idx := &ArcIndex{tree: rtree.NewTree(25, 50)}
	for _, a := range net.Arcs {
		n, ok := net.Node(a.From)
		if !ok {
			continue
		}
		idx.tree.Insert(&fromNode{Point: geom.Point{X: n.X, Y: n.Y}, arc: a.ID})
		idx.size++
	}
	return idx
}

// Nearest returns the arc whose from-node is closest to p, searching boxes
// that double from start. Equal distances go to the lower arc id.
func (idx *ArcIndex) Nearest(p geom.Point, start float64) (int, bool) {
	if idx.size == 0 {
		return 0, false
	}
	if start <= 0 {
		start = 1
	}

	var hits []*fromNode
	for r := start; len(hits) == 0; r *= 2 {
		hits = idx.search(p, r)
	}

	// A hit in the box corner can be farther than a node just outside the
	// box edge; search again with the best distance as radius.
	d := dist(p, closest(p, hits).Point)
	return closest(p, idx.search(p, d*(1+1e-9)+1e-9)).arc, true
}

func (idx *ArcIndex) search(p geom.Point, r float64) []*fromNode {
	box := &geom.Bounds{
		Min: geom.Point{X: p.X - r, Y: p.Y - r},
		Max: geom.Point{X: p.X + r, Y: p.Y + r},
	}
	found := idx.tree.SearchIntersect(box)
	out := make([]*fromNode, len(found))
	for i, f := range found {
		out[i] = f.(*fromNode)
	}
	return out
}

func closest(p geom.Point, nodes []*fromNode) *fromNode {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].arc < nodes[j].arc })
	best := nodes[0]
	bestD := dist(p, best.Point)
	for _, n := range nodes[1:] {
		if d := dist(p, n.Point); d < bestD {
			best, bestD = n, d
		}
	}
	return best
}

func dist(a, b geom.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Associate maps arc ids to gage ids. A point takes the LINKID value at its
// snapped channel cell; points off the LINKID grid fall back to the arc
// with the nearest from-node. When several gages land on one arc the first
// is kept.
func Associate(points []Point, links *raster.Raster, net *network.Network, logger logging.Logger) map[int]string {
	idx := NewArcIndex(net)
	out := map[int]string{}
	cell := math.Abs(links.Geom.DX)

	for _, p := range points {
		if !p.Placed {
			continue
		}
		arc := 0
		if links.Valid(p.Row, p.Col) {
			arc = int(links.At(p.Row, p.Col))
		} else {
			x, y := links.Geom.ToCoordinate(p.Row, p.Col)
			a, ok := idx.Nearest(geom.Point{X: x, Y: y}, cell)
			if !ok {
				continue
			}
			arc = a
		}

		if prev, ok := out[arc]; ok {
			logger.Warn("arc already has a gage", logging.Arc(arc),
				logging.String("kept", prev), logging.String("gage", p.ID))
			continue
		}
		out[arc] = p.ID
	}

	logger.Info("gages associated with arcs", logging.Count(len(out)))
	return out
}
