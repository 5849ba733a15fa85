package recipe

import (
	"konditer/internal/core/apperror"
	"konditer/internal/core/id"
)

// ValidateAcyclic rejects candidate when, together with the other active recipes,
// some output item transitively consumes itself. Recipe edges run from an output
// item to each of its inputs; candidate replaces any stored version of itself.
func ValidateAcyclic(candidate *Recipe, active []*Recipe) error {
	graph := make(map[id.ID][]id.ID)
	add := func(r *Recipe) {
		for _, line := range r.Items {
			graph[r.OutputItemID] = append(graph[r.OutputItemID], line.ItemID)
		}
	}
	for _, r := range active {
		if r.ID == candidate.ID {
			continue
		}
		add(r)
	}
	add(candidate)

	const (
		unvisited = iota
		inStack
		done
	)
	state := make(map[id.ID]int)
	var path []id.ID

	var visit func(node id.ID) []id.ID
	visit = func(node id.ID) []id.ID {
		state[node] = inStack
		path = append(path, node)
		for _, next := range graph[node] {
			switch state[next] {
			case inStack:
				return cyclePath(path, next)
			case unvisited:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		state[node] = done
		return nil
	}

	if cycle := visit(candidate.OutputItemID); cycle != nil {
		names := make([]string, len(cycle))
		for i, n := range cycle {
			names[i] = n.String()
		}
		return apperror.NewRecipeCycle(names).WithDetail("recipe_id", candidate.ID.String())
	}
	return nil
}

// cyclePath returns the part of path starting at start, closed with start.
func cyclePath(path []id.ID, start id.ID) []id.ID {
	for i, n := range path {
		if n == start {
			out := append([]id.ID(nil), path[i:]...)
			return append(out, start)
		}
	}
	return []id.ID{start, start}
}
