package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/ixengine/internal/ir"
)

// CycleWarning represents action lists that can start each other.
//
// Cycles are warnings, not errors, because timed playback makes them
// legitimate:
//   - a list that restarts itself when its last step finishes
//   - two lists handing off to each other
//
// Played immediately they recurse until the engine's start depth budget
// stops them.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a-1", "a-2", "a-1"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeStartCycles finds action lists that reach themselves through
// GENERAL_START_ACTION items.
//
// The algorithm:
//  1. Build list → started lists edges from every action item group
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop
//
// A document without cycles returns an empty list. Warnings are ordered by
// their first list id.
func AnalyzeStartCycles(doc *ir.Document) []CycleWarning {
	graph := buildStartGraph(doc)
	if len(graph) == 0 {
		return []CycleWarning{}
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Path[0] < warnings[j].Path[0] })
	return warnings
}

// startGraph maps list id → list ids it starts.
type startGraph map[string][]string

func buildStartGraph(doc *ir.Document) startGraph {
	graph := make(startGraph)
	for _, id := range sortedKeys(doc.ActionLists) {
		graph[id] = []string{}
		for _, group := range doc.ActionLists[id].ActionItemGroups {
			for _, item := range group.ActionItems {
				if item.ActionTypeID != ir.ActionGeneralStart {
					continue
				}
				ref := item.Config.ActionListID
				if _, ok := doc.ActionLists[ref]; ok && !contains(graph[id], ref) {
					graph[id] = append(graph[id], ref)
				}
			}
		}
	}
	return graph
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasSelfLoop(node string, graph startGraph) bool {
	return contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order and each SCC is
// sorted by id.
func tarjanSCC(graph startGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component.
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range sortedKeys(map[string][]string(graph)) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []string, graph startGraph) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("action list starts itself: %s → %s", id, id),
			Level:   LevelWarning,
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("action lists start each other: %s", strings.Join(path, " → ")),
		Level:   LevelWarning,
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph startGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool)
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
