package planner

import "go.uber.org/zap"

// Resolver determines which subjects can be taken next.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver constructs a resolver; a nil logger discards output.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Eligible returns the catalog subjects that are not completed, not excluded
// and whose requirements are all satisfied. The order follows the catalog.
func (r *Resolver) Eligible(catalog []Subject, completed *CompletionSet, excluded IDSet, credits CreditsEarned) []Subject {
	if len(catalog) == 0 {
		r.logger.Warn("prerequisite resolution on empty catalog")
		return nil
	}
	result := make([]Subject, 0, len(catalog))
	for _, subject := range catalog {
		if completed.Contains(subject) || excluded.Has(subject.ID) {
			continue
		}
		if Satisfied(subject.Requirements, completed, credits) {
			result = append(result, subject)
		}
	}
	return result
}

// Satisfied reports whether every requirement holds against the completion set.
// Credit thresholds never pass when the credit figure is unknown.
func Satisfied(requirements []Requirement, completed *CompletionSet, credits CreditsEarned) bool {
	earned, known := credits.Value()
	for _, req := range requirements {
		switch req.Kind {
		case CreditThreshold:
			if !known || earned < req.MinCredits {
				return false
			}
		case SpecificSubject:
			if !completed.HasCode(req.Code) && !completed.HasID(req.Code) {
				return false
			}
		default:
			return false
		}
	}
	return true
}
