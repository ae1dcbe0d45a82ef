// Package routing derives the per-link channel parameters of the reach
// routing table (Route_Link) from a resolved network.
package routing

import (
	"fmt"
	"math"

	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
	"github.com/dd0wney/wrfhydro-prep/pkg/network"
	"github.com/dd0wney/wrfhydro-prep/pkg/topology"
)

// NoWaterbody fills NHDWaterbodyComID for links outside every lake.
const NoWaterbody = -9999

// Link is one Route_Link row.
type Link struct {
	Link      int
	From      int // upstream link, 0 for none
	To        int // downstream link, 0 for none
	Lon, Lat  float64
	Alt       float64
	Order     int
	Qi        float64
	MusK      float64
	MusX      float64
	Length    float64
	N         float64
	So        float64
	ChSlp     float64
	BtmWdth   float64
	X, Y      float64
	Kchan     float64
	Gage      string // right-justified, GageWidth characters
	Waterbody int
}

// Table is the routing table in computation order.
type Table struct {
	Links         []Link
	GageWidth     int
	NegativeDrops int
	SlopeFloored  int
	Gaged         int
}

// Options carries the optional associations made by other stages.
type Options struct {
	Gages       map[int]string // link id -> gage id
	Waterbodies map[int]int    // link id -> lake id
	NoData      float64        // node elevation sentinel, read as 0 m
}

// Parameterize builds one row per arc in topological order.
func Parameterize(net *network.Network, topo *topology.Result, ch config.Channel, opts Options, logger logging.Logger) (*Table, error) {
	if len(topo.Order) != len(net.Arcs) {
		return nil, hydroerr.Graph("routing.Parameterize", hydroerr.NoArc,
			"order lists %d arcs, network has %d", len(topo.Order), len(net.Arcs))
	}

	t := &Table{Links: make([]Link, 0, len(topo.Order)), GageWidth: ch.GageWidth}
	blank := Gage("", ch.GageWidth)

	for _, id := range topo.Order {
		arc, ok := net.Arc(id)
		if !ok {
			return nil, hydroerr.Graph("routing.Parameterize", id, "arc missing from network")
		}
		from, okFrom := net.Node(arc.From)
		to, okTo := net.Node(arc.To)
		if !okFrom || !okTo {
			return nil, hydroerr.Graph("routing.Parameterize", id, "no node for %d -> %d", arc.From, arc.To)
		}

		drop := Drop(elevation(from.Elev, opts.NoData), elevation(to.Elev, opts.NoData))
		if drop < 0 {
			t.NegativeDrops++
			logger.Debug("negative drop clamped", logging.Arc(id), logging.Float64("drop", drop))
			drop = 0
		}

		length := Round(arc.Length, 1)
		slope, floored := Slope(drop, length, ch.MinSlope)
		if floored {
			t.SlopeFloored++
		}

		l := Link{
			Link:      id,
			From:      zeroNone(topo.Graph.UpstreamOf(id)),
			To:        zeroNone(topo.Graph.DownstreamOf(id)),
			Lon:       from.Lon,
			Lat:       from.Lat,
			Alt:       Round(from.Elev, 3),
			Order:     topo.CorrectedOrder[id-1],
			Qi:        ch.Qi,
			MusK:      ch.MusK,
			MusX:      ch.MusX,
			Length:    length,
			N:         ch.Manning,
			So:        slope,
			ChSlp:     ch.ChSlp,
			BtmWdth:   ch.BtmWdth,
			X:         from.X,
			Y:         from.Y,
			Kchan:     ch.Kchan,
			Gage:      blank,
			Waterbody: NoWaterbody,
		}
		if g, ok := opts.Gages[id]; ok {
			l.Gage = Gage(g, ch.GageWidth)
			t.Gaged++
		}
		if lake, ok := opts.Waterbodies[id]; ok {
			l.Waterbody = lake
		}
		t.Links = append(t.Links, l)
	}

	if t.NegativeDrops > 0 {
		logger.Warn("negative link drops clamped to zero", logging.Count(t.NegativeDrops))
	}
	logger.Info("routing table built",
		logging.Int("links", len(t.Links)),
		logging.Int("slope_floored", t.SlopeFloored),
		logging.Int("gaged", t.Gaged))
	return t, nil
}

// Drop is the integer-metre fall between two node elevations.
func Drop(from, to float64) float64 {
	return math.Trunc(from) - math.Trunc(to)
}

// Slope is drop/length rounded to three places and floored at min. The
// second result reports whether the floor was applied.
//
// Every slope below min is floored, including small positive ones. Legacy
// decks replaced only slopes of exactly zero, so such reaches differ.
func Slope(drop, length, min float64) (float64, bool) {
	if length <= 0 {
		return min, true
	}
	s := Round(drop/length, 3)
	if s < min {
		return min, true
	}
	return s, false
}

// Round rounds v to the given number of decimal places, halves to even.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

// Gage right-justifies id in a field of width characters. Longer ids keep
// their first width characters.
func Gage(id string, width int) string {
	if len(id) > width {
		return id[:width]
	}
	return fmt.Sprintf("%*s", width, id)
}

func elevation(v, noData float64) float64 {
	if v == noData || math.IsNaN(v) {
		return 0
	}
	return v
}

func zeroNone(arc int) int {
	if arc == topology.None {
		return 0
	}
	return arc
}
