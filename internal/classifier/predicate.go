package classifier

import "github.com/anime-shed/frame-classifier/pkg/models"

// holds evaluates a single condition. Unknown features or operators never hold.
func holds(c models.Condition, fv models.FeatureVector) bool {
	lhs, ok := fv.Value(c.Feature)
	if !ok {
		return false
	}
	rhs := c.Value
	if c.Ref != "" {
		ref, ok := fv.Value(c.Ref)
		if !ok {
			return false
		}
		rhs += ref
	}

	switch c.Op {
	case models.OpLess:
		return lhs < rhs
	case models.OpLessEqual:
		return lhs <= rhs
	case models.OpGreater:
		return lhs > rhs
	case models.OpGreaterEqual:
		return lhs >= rhs
	}
	return false
}

// clauseHolds is true when every condition holds. An empty clause never holds.
func clauseHolds(clause models.Clause, fv models.FeatureVector) bool {
	if len(clause) == 0 {
		return false
	}
	for _, c := range clause {
		if !holds(c, fv) {
			return false
		}
	}
	return true
}

// guardHolds is true when any clause holds.
func guardHolds(guard models.Guard, fv models.FeatureVector) bool {
	for _, clause := range guard {
		if clauseHolds(clause, fv) {
			return true
		}
	}
	return false
}
