package story

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is a single integrity violation found in a story.
type ValidationError struct {
	NodeID  string
	Message string
}

func (e ValidationError) Error() string {
	if e.NodeID == "" {
		return e.Message
	}
	return fmt.Sprintf("node %q: %s", e.NodeID, e.Message)
}

// ValidationErrors is the full list of violations. A nil or empty list means valid.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, "  - "+e.Error())
	}
	return fmt.Sprintf("story has %d validation error(s):\n%s", len(errs), strings.Join(lines, "\n"))
}

// Err returns nil for an empty list so callers can use the usual err != nil check.
func (errs ValidationErrors) Err() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks stat bounds, referential integrity, dead ends, reachability
// from start and ending coverage. Every violation is reported, not just the first.
// Only a missing start node stops validation early.
func Validate(s *Story, start string) ValidationErrors {
	var errs ValidationErrors
	add := func(nodeID, format string, args ...any) {
		errs = append(errs, ValidationError{NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
	}

	if _, ok := s.Node(start); !ok {
		add("", "start node %q does not exist", start)
		return errs
	}

	statNames := make([]string, 0, len(s.Metadata.Stats))
	for name := range s.Metadata.Stats {
		statNames = append(statNames, name)
	}
	slices.Sort(statNames)
	for _, name := range statNames {
		d := s.Metadata.Stats[name]
		if d.Min > d.Max {
			add("", "stat %q has min %d above max %d", name, d.Min, d.Max)
			continue
		}
		if d.Default < d.Min || d.Default > d.Max {
			add("", "stat %q default %d is outside [%d, %d]", name, d.Default, d.Min, d.Max)
		}
	}

	ids := sortedNodeIDs(s)
	endings := 0

	for _, id := range ids {
		n := s.Nodes[id]
		if n == nil {
			add(id, "node is empty")
			continue
		}
		if n.ID != id {
			add(id, "declared id %q does not match its key", n.ID)
		}

		for origin, target := range n.Edges() {
			if target == "" {
				add(id, "%s has an empty target", origin)
				continue
			}
			if _, ok := s.Node(target); !ok {
				add(id, "%s references missing node %q", origin, target)
			}
		}

		if !n.HasWayForward() {
			add(id, "dead end: no choices, next_node, branch or ending")
		}

		if n.Delay != nil {
			if n.Delay.Seconds <= 0 {
				add(id, "delay seconds must be positive, got %d", n.Delay.Seconds)
			}
			if n.DelayTarget() == "" {
				add(id, "delay has no target: needs next_node or a choice")
			}
		}

		if n.Ending != "" {
			endings++
			if _, ok := s.Endings[n.Ending]; !ok {
				add(id, "ending %q is missing from the ending glossary", n.Ending)
			}
		}
	}

	var seeds []string
	if o := s.GlobalOverride; o != nil {
		if _, ok := s.Node(o.NextNode); !ok {
			add("", "global override references missing node %q", o.NextNode)
		} else {
			seeds = append(seeds, o.NextNode)
		}
	}

	visited := Reachable(s, start, seeds...)
	for _, id := range ids {
		if !visited[id] {
			add(id, "unreachable from start node %q", start)
		}
	}

	if endings == 0 {
		add("", "no node declares an ending")
	}

	return errs
}

// Reachable runs a breadth-first traversal from start over next_node, choice
// and branch edges. Seed ids are marked visited without being traversed.
func Reachable(s *Story, start string, seeds ...string) map[string]bool {
	visited := make(map[string]bool, len(s.Nodes))
	for _, id := range seeds {
		visited[id] = true
	}

	queue := []string{start}
	visited[start] = true
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		n, ok := s.Node(id)
		if !ok {
			continue
		}
		for _, target := range n.Edges() {
			if target == "" || visited[target] {
				continue
			}
			if _, ok := s.Node(target); !ok {
				continue
			}
			visited[target] = true
			queue = append(queue, target)
		}
	}
	return visited
}

func sortedNodeIDs(s *Story) []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
