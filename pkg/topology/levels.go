package topology

import (
	"sort"

	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
)

// Levels assigns every key of deps a level: 0 when it has no dependencies,
// otherwise one more than the deepest dependency. Dependencies that are not
// keys are leaves at level 0 and are not reported. Dependencies equal to
// None are ignored.
//
// The walk uses an explicit stack, so arbitrarily long chains are safe. A
// dependency cycle is reported as a graph construction error naming one
// member of the cycle.
func Levels(deps map[int][]int) (map[int]int, error) {
	const (
		white = 0 // not visited
		gray  = 1 // on the active path
		black = 2 // level known
	)

	level := make(map[int]int, len(deps))
	color := make(map[int]int, len(deps))

	keys := make([]int, 0, len(deps))
	for k := range deps {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for _, root := range keys {
		if color[root] == black {
			continue
		}
		stack := []int{root}
		for len(stack) > 0 {
			name := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if color[name] == black {
				continue
			}

			children := deps[name]
			pending := make([]int, 0, len(children))
			for _, c := range children {
				if c == None {
					continue
				}
				if _, ok := deps[c]; !ok {
					continue
				}
				switch color[c] {
				case white:
					pending = append(pending, c)
				case gray:
					return nil, hydroerr.Graph("topology.Levels", c, "dependency cycle through %d", name)
				}
			}
			if len(pending) > 0 {
				if color[name] == gray {
					// Re-entered with children still open: they are on our
					// own path, so there is a cycle.
					return nil, hydroerr.Graph("topology.Levels", name, "dependency cycle")
				}
				color[name] = gray
				stack = append(stack, name)
				stack = append(stack, pending...)
				continue
			}

			lv := 0
			for _, c := range children {
				if c == None {
					continue
				}
				// Non-key dependencies are absent from level and count as 0.
				if l := level[c] + 1; l > lv {
					lv = l
				}
			}
			level[name] = lv
			color[name] = black
		}
	}
	return level, nil
}

// ByLevel groups keys by level, each group sorted ascending.
func ByLevel(levels map[int]int) [][]int {
	maxLevel := -1
	for _, l := range levels {
		if l > maxLevel {
			maxLevel = l
		}
	}
	groups := make([][]int, maxLevel+1)
	for k, l := range levels {
		groups[l] = append(groups[l], k)
	}
	for _, g := range groups {
		sort.Ints(g)
	}
	return groups
}
