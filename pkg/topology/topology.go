// Package topology resolves upstream/downstream relations between arcs and
// orders them for routing: every arc is listed before the arc it drains
// into.
package topology

import (
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/network"
)

// None marks an absent arc or node.
const None = -1

// Link is the part of an arc the resolver needs.
type Link struct {
	Arc   int
	From  int
	To    int
	Order int // raw Strahler order
}

// Graph holds the arc relations in arena slices. Arc-indexed slices are
// addressed by arc id - 1; node-indexed slices by node position.
type Graph struct {
	ArcFrom    []int // arc -> from-node id
	ArcTo      []int // arc -> to-node id
	Downstream []int // arc -> arc starting at this arc's to-node, or None
	Upstream   []int // arc -> arc feeding this arc's from-node, or None
	FromArc    []int // node -> last arc starting there, or None
	ToFrom     []int // node -> from-node of the last arc ending there, or None

	nodePos map[int]int
}

// Result is a fully resolved network order.
type Result struct {
	Graph          *Graph
	Order          []int // arc ids, headwaters first, outlets last
	Index          []int // arc id - 1 -> position in Order
	Levels         map[int]int
	MaxLevel       int
	Stragglers     []int // arcs with raw order > 1 and no upstream arc
	CorrectedOrder []int // arc id - 1 -> Strahler order after straggler reset
}

// LinksFromNetwork lists the arcs of net in id order.
func LinksFromNetwork(net *network.Network) []Link {
	links := make([]Link, len(net.Arcs))
	for i, a := range net.Arcs {
		links[i] = Link{Arc: a.ID, From: a.From, To: a.To, Order: a.Order}
	}
	return links
}

// Build constructs the adjacency. links[i].Arc must be i+1.
func Build(links []Link) (*Graph, error) {
	g := &Graph{
		ArcFrom:    make([]int, len(links)),
		ArcTo:      make([]int, len(links)),
		Downstream: make([]int, len(links)),
		Upstream:   make([]int, len(links)),
		nodePos:    map[int]int{},
	}

	for i, l := range links {
		if l.Arc != i+1 {
			return nil, hydroerr.Graph("topology.Build", l.Arc, "arc ids must be 1..n in order, found %d at position %d", l.Arc, i)
		}
		if l.From <= 0 || l.To <= 0 {
			return nil, hydroerr.Graph("topology.Build", l.Arc, "no from/to node pair (%d -> %d)", l.From, l.To)
		}
		g.ArcFrom[i], g.ArcTo[i] = l.From, l.To
		g.node(l.From)
		g.node(l.To)
	}

	g.FromArc = filled(len(g.nodePos), None)
	g.ToFrom = filled(len(g.nodePos), None)
	for i, l := range links {
		g.FromArc[g.nodePos[l.From]] = i + 1
		g.ToFrom[g.nodePos[l.To]] = l.From
	}

	for i, l := range links {
		g.Downstream[i] = g.FromArc[g.nodePos[l.To]]

		g.Upstream[i] = None
		if up := g.ToFrom[g.nodePos[l.From]]; up != None {
			g.Upstream[i] = g.FromArc[g.nodePos[up]]
		}
	}
	return g, nil
}

func (g *Graph) node(id int) int {
	if p, ok := g.nodePos[id]; ok {
		return p
	}
	p := len(g.nodePos)
	g.nodePos[id] = p
	return p
}

// DownstreamOf returns the arc below arc, or None.
func (g *Graph) DownstreamOf(arc int) int { return g.Downstream[arc-1] }

// UpstreamOf returns the arc above arc, or None.
func (g *Graph) UpstreamOf(arc int) int { return g.Upstream[arc-1] }

// Resolve builds the graph, levels it and derives the routing order,
// stragglers and corrected orders.
func Resolve(links []Link, logger logging.Logger) (*Result, error) {
	g, err := Build(links)
	if err != nil {
		return nil, err
	}

	deps := make(map[int][]int, len(links))
	for i := range links {
		deps[i+1] = []int{g.Downstream[i]}
	}
	levels, err := Levels(deps)
	if err != nil {
		return nil, err
	}

	groups := ByLevel(levels)
	order := make([]int, 0, len(links))
	for _, grp := range groups {
		order = append(order, grp...)
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	res := &Result{
		Graph:          g,
		Order:          order,
		Index:          make([]int, len(links)),
		Levels:         levels,
		MaxLevel:       len(groups) - 1,
		CorrectedOrder: make([]int, len(links)),
	}
	for pos, arc := range order {
		res.Index[arc-1] = pos
	}
	for i, l := range links {
		res.CorrectedOrder[i] = l.Order
		if l.Order > 1 && g.Upstream[i] == None {
			res.Stragglers = append(res.Stragglers, l.Arc)
			res.CorrectedOrder[i] = 1
			logger.Debug("straggler reset to order 1", logging.Arc(l.Arc), logging.Int("order", l.Order))
		}
	}

	logger.Info("topology resolved",
		logging.Int("arcs", len(order)),
		logging.Int("levels", len(groups)),
		logging.Int("stragglers", len(res.Stragglers)))
	return res, nil
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}
