package planner

// Collides reports whether two subjects share at least one weekly slot across
// all of their offered sections.
func Collides(a, b Subject) bool {
	slots := slotSet(a)
	if len(slots) == 0 {
		return false
	}
	for _, section := range b.Sections {
		for _, slot := range section.Slots {
			if _, ok := slots[slot]; ok {
				return true
			}
		}
	}
	return false
}

// CollidesWithAny reports whether candidate collides with any placed subject.
func CollidesWithAny(candidate Subject, placed []Subject) bool {
	for _, other := range placed {
		if Collides(candidate, other) {
			return true
		}
	}
	return false
}

func slotSet(s Subject) map[SlotRef]struct{} {
	set := make(map[SlotRef]struct{})
	for _, section := range s.Sections {
		for _, slot := range section.Slots {
			set[slot] = struct{}{}
		}
	}
	return set
}
