package decomp

import (
	"slices"
	"sort"

	"github.com/phrazzld/kanjigate/internal/domain"
)

// Input is a character to place in the graph. Known carries a mastery hint
// from an external source.
type Input struct {
	Identity string
	Known    bool
}

// Node is one typed record of the graph.
type Node struct {
	Identity      string
	Tier          domain.Tier
	Prerequisites []string
	Known         bool
}

// Graph holds the two disjoint tiers produced by BuildGraph: characters that
// have prerequisites, and terminal components that have none.
type Graph struct {
	Characters map[string]Node
	Terminals  map[string]Node
}

// BuildGraph expands every input character through the table.
//
// A character whose prerequisite set is empty after dropping self references
// is reclassified as a terminal. Every prerequisite becomes a terminal unless
// it is itself a non-terminal input, in which case it stays a character node.
// A known hint on a character is carried down to its prerequisites so a known
// card is never gated on an unknown one.
func BuildGraph(table Table, inputs []Input) Graph {
	g := Graph{
		Characters: make(map[string]Node),
		Terminals:  make(map[string]Node),
	}

	// Merge duplicate inputs first; known wins.
	merged := make(map[string]bool)
	order := make([]string, 0, len(inputs))
	for _, in := range inputs {
		id := Normalize(in.Identity)
		if id == "" {
			continue
		}
		known, seen := merged[id]
		if !seen {
			order = append(order, id)
		}
		merged[id] = known || in.Known
	}

	for _, id := range order {
		prereqs := withoutSelf(table.Expand(id), id)
		if len(prereqs) == 0 {
			continue
		}
		g.Characters[id] = Node{
			Identity:      id,
			Tier:          domain.TierCharacter,
			Prerequisites: prereqs,
			Known:         merged[id],
		}
	}

	for _, id := range order {
		if _, isChar := g.Characters[id]; isChar {
			continue
		}
		g.addTerminal(id, merged[id])
	}

	for _, id := range order {
		node, isChar := g.Characters[id]
		if !isChar {
			continue
		}
		for _, p := range node.Prerequisites {
			if _, ok := g.Characters[p]; !ok {
				g.addTerminal(p, false)
			}
		}
	}

	g.propagateKnown()
	return g
}

func (g Graph) addTerminal(id string, known bool) {
	node, ok := g.Terminals[id]
	if !ok {
		node = Node{Identity: id, Tier: domain.TierSubcomponent}
	}
	node.Known = node.Known || known
	g.Terminals[id] = node
}

// propagateKnown marks every prerequisite of a known character as known,
// repeating until no node changes so chains of characters are covered.
func (g Graph) propagateKnown() {
	for changed := true; changed; {
		changed = false
		for _, node := range g.Characters {
			if !node.Known {
				continue
			}
			for _, p := range node.Prerequisites {
				if dep, ok := g.Characters[p]; ok {
					if !dep.Known {
						dep.Known = true
						g.Characters[p] = dep
						changed = true
					}
					continue
				}
				if term := g.Terminals[p]; !term.Known {
					term.Known = true
					g.Terminals[p] = term
				}
			}
		}
	}
}

func withoutSelf(prereqs []string, self string) []string {
	return slices.DeleteFunc(prereqs, func(p string) bool { return p == self })
}

// CharacterNodes returns the character tier sorted by identity.
func (g Graph) CharacterNodes() []Node {
	return sortedNodes(g.Characters)
}

// TerminalNodes returns the terminal tier sorted by identity.
func (g Graph) TerminalNodes() []Node {
	return sortedNodes(g.Terminals)
}

// Size returns the total number of nodes in the graph.
func (g Graph) Size() int {
	return len(g.Characters) + len(g.Terminals)
}

func sortedNodes(m map[string]Node) []Node {
	nodes := make([]Node, 0, len(m))
	for _, n := range m {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Identity < nodes[j].Identity })
	return nodes
}
