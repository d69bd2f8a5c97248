package planner

// Criticality returns, per subject code, the length of the longest chain of
// subjects that depend on it. Subjects nobody depends on score zero. Codes on
// a prerequisite cycle do not extend chains through the cycle.
func Criticality(catalog []Subject) map[string]int {
	successors := make(map[string][]string)
	for _, subject := range catalog {
		for _, req := range subject.Requirements {
			if req.Kind == SpecificSubject {
				successors[req.Code] = append(successors[req.Code], subject.Code)
			}
		}
	}

	heights := make(map[string]int, len(catalog))
	visiting := make(map[string]bool)

	var height func(code string) int
	height = func(code string) int {
		if h, ok := heights[code]; ok {
			return h
		}
		if visiting[code] {
			return -1
		}
		visiting[code] = true
		best := 0
		for _, next := range successors[code] {
			if h := height(next); h >= 0 && h+1 > best {
				best = h + 1
			}
		}
		visiting[code] = false
		heights[code] = best
		return best
	}

	for _, subject := range catalog {
		height(subject.Code)
	}
	return heights
}

// Edge is a prerequisite link between two planned subjects.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PrerequisiteEdges lists the subject prerequisites satisfied inside the
// plan, in plan order.
func PrerequisiteEdges(terms [][]Subject) []Edge {
	planned := make(map[string]struct{})
	for _, term := range terms {
		for _, subject := range term {
			planned[subject.Code] = struct{}{}
		}
	}
	var edges []Edge
	for _, term := range terms {
		for _, subject := range term {
			for _, req := range subject.Requirements {
				if req.Kind != SpecificSubject {
					continue
				}
				if _, ok := planned[req.Code]; ok {
					edges = append(edges, Edge{From: req.Code, To: subject.Code})
				}
			}
		}
	}
	return edges
}
