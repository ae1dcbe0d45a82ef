package topology

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
)

// confluence is arcs A=1 (1->2), B=2 (2->3), C=3 (4->3).
func confluence() []Link {
	return []Link{
		{Arc: 1, From: 1, To: 2, Order: 1},
		{Arc: 2, From: 2, To: 3, Order: 2},
		{Arc: 3, From: 4, To: 3, Order: 2},
	}
}

func TestResolve_Confluence(t *testing.T) {
	res, err := Resolve(confluence(), logging.NewNopLogger())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	g := res.Graph

	tests := []struct {
		arc        int
		downstream int
		upstream   int
	}{
		{1, 2, None},
		{2, None, 1},
		{3, None, None},
	}
	for _, tt := range tests {
		if got := g.DownstreamOf(tt.arc); got != tt.downstream {
			t.Errorf("DownstreamOf(%d) = %d, want %d", tt.arc, got, tt.downstream)
		}
		if got := g.UpstreamOf(tt.arc); got != tt.upstream {
			t.Errorf("UpstreamOf(%d) = %d, want %d", tt.arc, got, tt.upstream)
		}
	}

	// B and C share node 3 as their to-node; neither drains into the other.
	if g.DownstreamOf(2) == 3 {
		t.Error("arc 2 must not have arc 3 downstream")
	}

	want := []int{1, 3, 2}
	if len(res.Order) != len(want) {
		t.Fatalf("Order = %v, want %v", res.Order, want)
	}
	for i := range want {
		if res.Order[i] != want[i] {
			t.Fatalf("Order = %v, want %v", res.Order, want)
		}
	}
	for pos, arc := range res.Order {
		if res.Index[arc-1] != pos {
			t.Errorf("Index[%d] = %d, want %d", arc, res.Index[arc-1], pos)
		}
	}
	if res.MaxLevel != 1 {
		t.Errorf("MaxLevel = %d, want 1", res.MaxLevel)
	}

	if len(res.Stragglers) != 1 || res.Stragglers[0] != 3 {
		t.Errorf("Stragglers = %v, want [3]", res.Stragglers)
	}
	if got := res.CorrectedOrder; got[0] != 1 || got[1] != 2 || got[2] != 1 {
		t.Errorf("CorrectedOrder = %v, want [1 2 1]", got)
	}
}

func TestLevels_NodeContributors(t *testing.T) {
	// Upstream contributors of each node in the confluence network.
	levels, err := Levels(map[int][]int{
		3: {2, 4},
		2: {1},
	})
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	if levels[3] != 2 {
		t.Errorf("level(3) = %d, want 2", levels[3])
	}
	if levels[2] != 1 {
		t.Errorf("level(2) = %d, want 1", levels[2])
	}
	if _, ok := levels[4]; ok {
		t.Error("non-key dependency 4 should not be reported")
	}
}

func TestLevels_LongChain(t *testing.T) {
	const n = 100000
	deps := make(map[int][]int, n)
	for i := 1; i <= n; i++ {
		next := i + 1
		if i == n {
			next = None
		}
		deps[i] = []int{next}
	}
	levels, err := Levels(deps)
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	if levels[1] != n-1 {
		t.Errorf("level(1) = %d, want %d", levels[1], n-1)
	}
	if levels[n] != 0 {
		t.Errorf("level(%d) = %d, want 0", n, levels[n])
	}
}

func TestLevels_Cycle(t *testing.T) {
	tests := []struct {
		name string
		deps map[int][]int
	}{
		{"self loop", map[int][]int{1: {1}}},
		{"two arcs", map[int][]int{1: {2}, 2: {1}}},
		{"behind a tail", map[int][]int{1: {2}, 2: {3}, 3: {4}, 4: {2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Levels(tt.deps)
			if !errors.Is(err, hydroerr.ErrGraphConstruction) {
				t.Fatalf("err = %v, want graph construction", err)
			}
		})
	}
}

func TestResolve_CycleBetweenArcs(t *testing.T) {
	links := []Link{
		{Arc: 1, From: 1, To: 2, Order: 1},
		{Arc: 2, From: 2, To: 1, Order: 1},
	}
	_, err := Resolve(links, logging.NewNopLogger())
	if !errors.Is(err, hydroerr.ErrGraphConstruction) {
		t.Fatalf("err = %v, want graph construction", err)
	}
}

func TestBuild_MissingNode(t *testing.T) {
	links := confluence()
	links[1].To = 0

	_, err := Build(links)
	if !errors.Is(err, hydroerr.ErrGraphConstruction) {
		t.Fatalf("err = %v, want graph construction", err)
	}
	if arc, ok := hydroerr.ArcOf(err); !ok || arc != 2 {
		t.Errorf("ArcOf = %d, %v; want 2", arc, ok)
	}
}

func TestBuild_NonContiguousIDs(t *testing.T) {
	links := confluence()
	links[2].Arc = 7

	if _, err := Build(links); !errors.Is(err, hydroerr.ErrGraphConstruction) {
		t.Fatalf("err = %v, want graph construction", err)
	}
}

func TestResolve_LogsStragglers(t *testing.T) {
	rec := logging.NewRecorder()
	if _, err := Resolve(confluence(), rec); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Count(logging.DebugLevel, "straggler reset to order 1") != 1 {
		t.Errorf("entries = %+v", rec.Entries())
	}
}

func TestByLevel_Empty(t *testing.T) {
	if groups := ByLevel(map[int]int{}); len(groups) != 0 {
		t.Errorf("ByLevel(empty) = %v", groups)
	}
}

// tree builds a random river tree. Arc k starts at node k; parents[k-1]
// picks an earlier arc it drains into, or an outlet node of its own.
func tree(parents []int) []Link {
	links := make([]Link, len(parents))
	for i, v := range parents {
		arc := i + 1
		to := len(parents) + arc // outlet
		if p := v % arc; p > 0 {
			to = p
		}
		links[i] = Link{Arc: arc, From: arc, To: to, Order: v%4 + 1}
	}
	return links
}

func TestResolve_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("arcs precede their downstream arc", prop.ForAll(
		func(parents []int) bool {
			res, err := Resolve(tree(parents), logging.NewNopLogger())
			if err != nil {
				return false
			}
			for i, d := range res.Graph.Downstream {
				if d != None && res.Index[i] >= res.Index[d-1] {
					return false
				}
			}
			return len(res.Order) == len(parents)
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("arcs without upstream arc have order 1", prop.ForAll(
		func(parents []int) bool {
			links := tree(parents)
			res, err := Resolve(links, logging.NewNopLogger())
			if err != nil {
				return false
			}
			for i, up := range res.Graph.Upstream {
				if up == None && res.CorrectedOrder[i] != 1 {
					return false
				}
				if up != None && res.CorrectedOrder[i] != links[i].Order {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}
