package planner

func slot(day, timeSlot string) SlotRef {
	return SlotRef{Day: day, TimeSlot: timeSlot}
}

func mandatory(id string, credits int, reqs ...Requirement) Subject {
	return Subject{
		ID:           id,
		Name:         "Subject " + id,
		Code:         id,
		Theory:       credits,
		IsActive:     true,
		Requirements: reqs,
	}
}

func elective(id string, hours int, reqs ...Requirement) Subject {
	return Subject{
		ID:           id,
		Name:         "Elective " + id,
		Code:         id,
		Workload:     hours,
		IsElective:   true,
		IsActive:     true,
		Requirements: reqs,
	}
}

func withSlots(s Subject, slots ...SlotRef) Subject {
	s.Sections = append(s.Sections, Section{Name: "A", Slots: slots})
	return s
}

func termIDs(term []Subject) []string {
	ids := make([]string, len(term))
	for i, s := range term {
		ids[i] = s.ID
	}
	return ids
}
