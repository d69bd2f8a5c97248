package planner

import "sort"

// SortSubjects orders subjects in place: mandatory before elective, then by
// name, code and id so that equal inputs always yield the same order.
func SortSubjects(subjects []Subject) {
	sort.SliceStable(subjects, func(i, j int) bool {
		return subjectLess(subjects[i], subjects[j])
	})
}

func subjectLess(a, b Subject) bool {
	if a.IsElective != b.IsElective {
		return !a.IsElective
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Code != b.Code {
		return a.Code < b.Code
	}
	return a.ID < b.ID
}

func sortStrings(values []string) {
	sort.Strings(values)
}
