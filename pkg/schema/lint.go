package schema

import "fmt"

// color is the three-state marker used by the DFS cycle detector below.
type color int

const (
	white color = iota // unvisited
	gray               // on the current DFS stack
	black              // fully explored
)

// node identifies one (object_type, relation) vertex in the relation graph.
type node struct {
	objectType string
	relation   string
}

// Cycle describes one cycle found by Lint, as the ordered sequence of
// relations that form it.
type Cycle struct {
	Path []string // e.g. ["document#viewer", "document#editor", "document#viewer"]
}

func (c Cycle) String() string {
	s := ""
	for i, p := range c.Path {
		if i > 0 {
			s += " -> "
		}
		s += p
	}
	return s
}

// Lint walks the relation graph formed by implied_by, computed_userset,
// tuple_to_userset, excluded_by and intersection edges and reports cycles.
//
// This is a diagnostic only: write-time acyclicity validation is
// deliberately out of scope, since the check evaluator already defends
// itself at read time via a depth bound and a per-call visited set. Lint
// is never invoked from UpsertRelationConfig or any write path. It is run
// only by the opt-in `relauth schema lint` and `relauth doctor` commands,
// to help a schema author spot accidental recursion before it depends on the depth cap to terminate.
func Lint(r *Registry) []Cycle {
	graph := buildGraph(r)

	colors := make(map[node]color, len(graph))
	var cycles []Cycle

	var stack []node
	var visit func(n node)
	visit = func(n node) {
		colors[n] = gray
		stack = append(stack, n)

		for _, next := range graph[n] {
			switch colors[next] {
			case white:
				visit(next)
			case gray:
				cycles = append(cycles, reconstructCycle(stack, next))
			case black:
				// already fully explored via another path
			}
		}

		stack = stack[:len(stack)-1]
		colors[n] = black
	}

	for _, n := range allNodes(graph) {
		if colors[n] == white {
			visit(n)
		}
	}

	return cycles
}

// buildGraph turns every composition edge in the registry into a directed
// node -> node edge: implied_by, computed_userset, tuple_to_userset's
// computed_userset, excluded_by, and intersection operands.
func buildGraph(r *Registry) map[node][]node {
	graph := make(map[node][]node)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for key, cfg := range r.relations {
		n := node{key.objectType, key.relation}

		if cfg.ComputedUserset != "" {
			graph[n] = append(graph[n], node{key.objectType, cfg.ComputedUserset})
			// Per the open-question resolution, sibling fields are inert
			// when ComputedUserset is set, so no further edges from n.
			continue
		}

		for _, implied := range cfg.ImpliedBy {
			graph[n] = append(graph[n], node{key.objectType, implied})
		}
		for _, ttu := range cfg.TupleToUserset {
			// The TTU target relation may live on a different object type;
			// the tupleset name alone doesn't tell us which, so the edge
			// is drawn on the owning type. A same-type hierarchy such as
			// "viewer from parent" therefore forms a self-edge and is
			// reported as a cycle.
			graph[n] = append(graph[n], node{key.objectType, ttu.ComputedUserset})
		}
		if cfg.ExcludedBy != "" {
			graph[n] = append(graph[n], node{key.objectType, cfg.ExcludedBy})
		}
		for _, op := range cfg.Intersection {
			switch op.Kind {
			case OperandComputedUserset:
				graph[n] = append(graph[n], node{key.objectType, op.ComputedUserset})
			case OperandTupleToUserset:
				graph[n] = append(graph[n], node{key.objectType, op.TupleToUserset.ComputedUserset})
			}
		}
	}

	return graph
}

func reconstructCycle(stack []node, repeated node) Cycle {
	var path []string
	started := false
	for _, n := range stack {
		if n == repeated {
			started = true
		}
		if started {
			path = append(path, fmt.Sprintf("%s#%s", n.objectType, n.relation))
		}
	}
	path = append(path, fmt.Sprintf("%s#%s", repeated.objectType, repeated.relation))
	return Cycle{Path: path}
}

func allNodes(graph map[node][]node) []node {
	seen := make(map[node]struct{})
	var out []node
	add := func(n node) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	for n, targets := range graph {
		add(n)
		for _, t := range targets {
			add(t)
		}
	}
	return out
}
