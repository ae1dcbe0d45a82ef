// Package network turns the gridded channel network into a graph of arcs
// (stream links) and nodes (link endpoints) with coordinates and sampled
// terrain attributes.
package network

import (
	"github.com/ctessum/geom"

	"github.com/dd0wney/wrfhydro-prep/pkg/geomops"
	"github.com/dd0wney/wrfhydro-prep/pkg/grid"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/raster"
)

// Arc is one directed stream link.
type Arc struct {
	ID     int
	From   int // node id
	To     int // node id
	Length float64
	Line   geom.LineString
	Order  int   // raw Strahler order at the from-node
	Cells  []int // channel cells on the link, row-major offsets
}

// Node is a link endpoint.
type Node struct {
	ID    int
	X, Y  float64 // projected, after the edge nudge
	Lat   float64
	Lon   float64
	Elev  float64
	Order int
}

// Network is an arena of arcs and nodes. Arcs[i].ID == i+1.
type Network struct {
	Geom      grid.Geometry
	Arcs      []Arc
	Nodes     []Node
	Multipart int // vectorized features skipped for having several parts

	nodeIndex map[int]int
}

// Sources are the rasters a network is extracted from. All share one grid.
type Sources struct {
	Channel   *raster.Raster // CHANNELGRID: values >= 0 are channel cells
	Fdir      *raster.Raster
	Elevation *raster.Raster
	Order     *raster.Raster // Strahler order
}

// LatLonConverter projects grid coordinates to the sphere.
type LatLonConverter interface {
	ToLatLon(x, y float64) (lat, lon float64, err error)
}

// Arc returns the arc with the given id.
func (n *Network) Arc(id int) (*Arc, bool) {
	if id < 1 || id > len(n.Arcs) {
		return nil, false
	}
	return &n.Arcs[id-1], true
}

// Node returns the node with the given id.
func (n *Network) Node(id int) (*Node, bool) {
	if n.nodeIndex == nil {
		n.reindex()
	}
	i, ok := n.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return &n.Nodes[i], true
}

func (n *Network) reindex() {
	n.nodeIndex = make(map[int]int, len(n.Nodes))
	for i, nd := range n.Nodes {
		n.nodeIndex[nd.ID] = i
	}
}

// Extract vectorizes the channel cells and builds the arc/node arena.
// Multi-part features are skipped with a warning; the remaining arcs are
// numbered 1..n in vectorization order. A node takes the coordinates of the
// first arc endpoint that names it.
func Extract(ops geomops.Ops, src Sources, conv LatLonConverter, logger logging.Logger) (*Network, error) {
	g := src.Channel.Geom
	channel := raster.New(g, src.Channel.NoData)
	for i, v := range src.Channel.Data {
		if !src.Channel.IsNoData(v) && v >= 0 {
			channel.Data[i] = 1
		}
	}

	features, err := ops.VectorizeStreams(channel, src.Fdir)
	if err != nil {
		return nil, err
	}

	net := &Network{Geom: g, nodeIndex: map[int]int{}}
	raw := map[int][2]float64{}
	var order []int

	addNode := func(id int, p geom.Point) {
		if _, ok := raw[id]; ok {
			return
		}
		raw[id] = [2]float64{p.X, p.Y}
		order = append(order, id)
	}

	for i, f := range features {
		if len(f.Geom) != 1 {
			net.Multipart++
			logger.Warn("skipping multi-part stream feature",
				logging.Int("feature", i), logging.Int("parts", len(f.Geom)))
			continue
		}
		id := len(net.Arcs) + 1
		line := f.Geom[0]
		if f.FromNode <= 0 || f.ToNode <= 0 || len(line) < 2 {
			return nil, hydroerr.Graph("network.Extract", id, "feature %d has no from/to node pair", i)
		}
		addNode(f.FromNode, line[0])
		addNode(f.ToNode, line[len(line)-1])
		net.Arcs = append(net.Arcs, Arc{
			ID:     id,
			From:   f.FromNode,
			To:     f.ToNode,
			Length: line.Length(),
			Line:   line,
			Cells:  f.Cells,
		})
	}

	ext := g.Extent()
	for _, id := range order {
		xy := raw[id]
		lat, lon, err := conv.ToLatLon(xy[0], xy[1])
		if err != nil {
			return nil, hydroerr.New(hydroerr.ErrUnsupportedInput, "network.Extract").Cause(err).Err()
		}
		x, y := Nudge(xy[0], xy[1], ext, g.Rows, g.Cols)

		nd := Node{ID: id, X: x, Y: y, Lat: lat, Lon: lon, Elev: src.Elevation.NoData, Order: 1}
		if v, ok := src.Elevation.Sample(x, y); ok {
			nd.Elev = v
		} else {
			logger.Warn("node elevation is NoData", logging.Node(id))
		}
		if v, ok := src.Order.Sample(x, y); ok && v > 0 {
			nd.Order = int(v)
		}
		net.nodeIndex[id] = len(net.Nodes)
		net.Nodes = append(net.Nodes, nd)
	}

	for i := range net.Arcs {
		from, _ := net.Node(net.Arcs[i].From)
		net.Arcs[i].Order = from.Order
	}

	logger.Info("network extracted",
		logging.Int("arcs", len(net.Arcs)),
		logging.Int("nodes", len(net.Nodes)),
		logging.Int("multipart_skipped", net.Multipart))
	return net, nil
}

// Nudge moves a point lying on or beyond the grid extent back inside it by
// half the column count (x) or row count (y), in projection units.
func Nudge(x, y float64, ext grid.Extent, rows, cols int) (float64, float64) {
	switch {
	case x <= ext.XMin:
		x += float64(cols) / 2
	case x >= ext.XMax:
		x -= float64(cols) / 2
	}
	switch {
	case y <= ext.YMin:
		y += float64(rows) / 2
	case y >= ext.YMax:
		y -= float64(rows) / 2
	}
	return x, y
}

// TotalLength sums arc lengths.
func (n *Network) TotalLength() float64 {
	total := 0.0
	for _, a := range n.Arcs {
		total += a.Length
	}
	return total
}

// LinkGrid burns arc ids into their channel cells. Other cells are NoData.
func (n *Network) LinkGrid(noData float64) *raster.Raster {
	out := raster.New(n.Geom, noData)
	for _, a := range n.Arcs {
		for _, c := range a.Cells {
			out.Data[c] = float64(a.ID)
		}
	}
	return out
}
