package engine

import "formgate/internal/model"

// Visibility maps every question id of a schema to whether it is shown
type Visibility map[string]bool

// Visible reports whether id is visible; unknown ids are not
func (v Visibility) Visible(id string) bool {
	return v[id]
}

// Hidden returns the ids of hidden questions in schema order
func (v Visibility) Hidden(questions []model.Question) []string {
	var out []string
	for _, q := range model.SortQuestions(questions) {
		if !v[q.ID] {
			out = append(out, q.ID)
		}
	}
	return out
}

// ResolveVisibility computes visibility for every question in a single pass
// in evaluation order. It never fails; broken rules leave the question visible.
func ResolveVisibility(questions []model.Question, answers model.AnswerSet) Visibility {
	ordered := model.SortQuestions(questions)

	known := make(map[string]struct{}, len(ordered))
	for _, q := range ordered {
		known[q.ID] = struct{}{}
	}

	vis := make(Visibility, len(ordered))
	for _, q := range ordered {
		vis[q.ID] = isVisible(q, known, answers)
	}
	return vis
}

func isVisible(q model.Question, known map[string]struct{}, answers model.AnswerSet) bool {
	rule := q.Rule
	if rule == nil {
		return true
	}
	if !rule.Operator.Valid() {
		return true
	}
	if _, ok := known[rule.DependsOn]; !ok {
		return true
	}

	dep, ok := answers[rule.DependsOn]
	if !ok {
		// an unanswered prerequisite can never satisfy the rule
		return false
	}

	return Compare(rule.Operator, dep.Answer.Value, rule.CompareValue)
}

// Compare applies op to an answer value and a rule's compare value.
// Unknown operators compare true.
func Compare(op model.Operator, answer, compareValue model.Scalar) bool {
	switch op {
	case model.OperatorEquals:
		return LooseEquals(answer, compareValue)
	case model.OperatorNotEquals:
		return !LooseEquals(answer, compareValue)
	case model.OperatorGreaterThan:
		c, ok := compareNumeric(answer, compareValue)
		return ok && c > 0
	case model.OperatorLessThan:
		c, ok := compareNumeric(answer, compareValue)
		return ok && c < 0
	default:
		return true
	}
}
