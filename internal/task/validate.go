package task

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dominikbraun/graph"
)

// CycleError lists the tasks of one dependency cycle, in prerequisite order:
// each task requires the next one and the last requires the first.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "dependency cycle detected"
	}
	ring := append(slices.Clone(e.Cycle), e.Cycle[0])
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(ring, " -> "))
}

// Graph returns the registered tasks as a directed graph with an edge from
// every task to each of its prerequisites. It fails with UnknownTaskError
// when a prerequisite is not registered and with CycleError on the first
// edge that closes a cycle.
func (r *Registry) Graph() (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := g.AddVertex(name); err != nil {
			return nil, err
		}
	}

	for _, name := range names {
		for _, p := range r.tasks[name].Prerequisites {
			if _, ok := r.tasks[p]; !ok {
				return nil, fmt.Errorf("task %q: %w", name, &UnknownTaskError{Name: p})
			}
			err := g.AddEdge(name, p)
			switch {
			case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				return nil, &CycleError{Cycle: cycleThrough(g, name, p)}
			default:
				return nil, err
			}
		}
	}
	return g, nil
}

// cycleThrough returns the cycle the edge from -> to would close
func cycleThrough(g graph.Graph[string, string], from, to string) []string {
	if from == to {
		return []string{from}
	}
	path, err := graph.ShortestPath(g, to, from)
	if err != nil || len(path) < 2 {
		return []string{from, to}
	}
	return append([]string{from}, path[:len(path)-1]...)
}

// Validate checks that every prerequisite exists and that the graph has no
// cycle. Invoke does not require it; a cycle there just cuts the recursion.
func (r *Registry) Validate() error {
	_, err := r.Graph()
	return err
}

// Order returns every task so that each comes after all of its
// prerequisites. Ties are broken by name.
func (r *Registry) Order() ([]string, error) {
	deps, err := r.Graph()
	if err != nil {
		return nil, err
	}
	edges, err := deps.Edges()
	if err != nil {
		return nil, err
	}

	g := graph.New(graph.StringHash, graph.Directed())
	for name := range r.tasks {
		if err := g.AddVertex(name); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e.Target, e.Source); err != nil {
			return nil, err
		}
	}
	return graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
}
