package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/wrfhydro-prep/pkg/geogrid"
	"github.com/dd0wney/wrfhydro-prep/pkg/network"
	"github.com/dd0wney/wrfhydro-prep/pkg/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00AFFF"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(14)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00AFFF")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

type row struct{ label, value string }

func box(title string, rows []row) string {
	lines := []string{titleStyle.Render(title)}
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r.label)+r.value)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderDomain(name string, d *geogrid.Domain) string {
	g := d.Geometry
	ext := g.Extent()
	return box(name, []row{
		{"projection", g.Proj.Family.String()},
		{"grid", fmt.Sprintf("%d rows x %d cols", g.Rows, g.Cols)},
		{"cell size", fmt.Sprintf("%g x %g m", g.DX, -g.DY)},
		{"x range", fmt.Sprintf("%.1f .. %.1f", ext.XMin, ext.XMax)},
		{"y range", fmt.Sprintf("%.1f .. %.1f", ext.YMin, ext.YMax)},
		{"proj4", g.Proj.Proj4()},
	})
}

func renderSnapshot(name string, s *network.Snapshot) string {
	net := s.Network
	return box(name, []row{
		{"run", s.RunID},
		{"created", s.Created.Format("2006-01-02 15:04:05Z07:00")},
		{"geogrid", filepath.Base(s.Geogrid)},
		{"routing grid", fmt.Sprintf("%d rows x %d cols", net.Geom.Rows, net.Geom.Cols)},
		{"arcs", fmt.Sprint(len(net.Arcs))},
		{"nodes", fmt.Sprint(len(net.Nodes))},
		{"outlets", fmt.Sprint(outlets(net))},
		{"length", fmt.Sprintf("%.1f km", net.TotalLength()/1000)},
	})
}

// outlets counts arcs whose to-node starts no other arc.
func outlets(net *network.Network) int {
	starts := make(map[int]bool, len(net.Arcs))
	for _, a := range net.Arcs {
		starts[a.From] = true
	}
	n := 0
	for _, a := range net.Arcs {
		if !starts[a.To] {
			n++
		}
	}
	return n
}

func renderResult(res *pipeline.Result) string {
	rows := []row{
		{"run", res.RunID},
		{"routing grid", fmt.Sprintf("%d rows x %d cols", res.Fine.Rows, res.Fine.Cols)},
		{"links", fmt.Sprint(len(res.Routing.Links))},
		{"gaged links", fmt.Sprint(res.Routing.Gaged)},
	}
	if res.Topology != nil {
		rows = append(rows, row{"max level", fmt.Sprint(res.Topology.MaxLevel)})
	}
	if res.Lakes != nil {
		rows = append(rows, row{"lakes", fmt.Sprint(len(res.Lakes.Lakes))})
	}
	if res.Buckets != nil {
		rows = append(rows, row{"gw basins", fmt.Sprint(len(res.Buckets.Rows))})
	}
	for i, f := range res.Files {
		label := ""
		if i == 0 {
			label = "files"
		}
		rows = append(rows, row{label, filepath.Base(f)})
	}
	if res.Archive != "" {
		rows = append(rows, row{"archive", res.Archive})
	}
	for i, key := range res.Published {
		label := ""
		if i == 0 {
			label = "published"
		}
		rows = append(rows, row{label, key})
	}
	return box("routing deck written", rows)
}
