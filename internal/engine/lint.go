package engine

import (
	"fmt"
	"sort"

	"formgate/internal/model"
)

// IssueCode categorizes schema problems found by Lint.
type IssueCode string

const (
	IssueDuplicateID       IssueCode = "DUPLICATE_ID"
	IssueUnknownType       IssueCode = "UNKNOWN_TYPE"
	IssueMissingOptions    IssueCode = "MISSING_OPTIONS"
	IssueUnexpectedOptions IssueCode = "UNEXPECTED_OPTIONS"
	IssueUnknownOperator   IssueCode = "UNKNOWN_OPERATOR"
	IssueMissingDependency IssueCode = "MISSING_DEPENDENCY"
	IssueSelfReference     IssueCode = "SELF_REFERENCE"
	IssueForwardReference  IssueCode = "FORWARD_REFERENCE"
	IssueFileTarget        IssueCode = "FILE_TARGET"
	IssueNonNumericCompare IssueCode = "NON_NUMERIC_COMPARE"
)

// Issue is a single schema warning for operators. Issues never block
// saving a form or evaluating it.
type Issue struct {
	Code       IssueCode `json:"code"`
	QuestionID string    `json:"questionId"`
	Message    string    `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s [%s]: %s", i.QuestionID, i.Code, i.Message)
}

// Lint reports malformed questions and rules. The result is ordered by
// question evaluation order, then code.
func Lint(questions []model.Question) []Issue {
	ordered := model.SortQuestions(questions)

	byID := make(map[string]model.Question, len(ordered))
	seen := make(map[string]int, len(ordered))
	for _, q := range ordered {
		seen[q.ID]++
		if _, ok := byID[q.ID]; !ok {
			byID[q.ID] = q
		}
	}

	var issues []Issue
	for _, q := range ordered {
		var qi []Issue
		add := func(code IssueCode, format string, args ...interface{}) {
			qi = append(qi, Issue{Code: code, QuestionID: q.ID, Message: fmt.Sprintf(format, args...)})
		}

		if seen[q.ID] > 1 {
			add(IssueDuplicateID, "id %q is used by %d questions", q.ID, seen[q.ID])
			seen[q.ID] = 1 // report once
		}

		if !q.Type.Valid() {
			add(IssueUnknownType, "unknown question type %q", q.Type)
		}
		if q.Type == model.QuestionTypeSelect && len(q.Options) == 0 {
			add(IssueMissingOptions, "select question has no options")
		}
		if q.Type != model.QuestionTypeSelect && len(q.Options) > 0 {
			add(IssueUnexpectedOptions, "options are only used by select questions")
		}

		if q.Rule != nil {
			qi = append(qi, lintRule(q, byID)...)
		}

		sort.SliceStable(qi, func(i, j int) bool { return qi[i].Code < qi[j].Code })
		issues = append(issues, qi...)
	}
	return issues
}

func lintRule(q model.Question, byID map[string]model.Question) []Issue {
	var out []Issue
	add := func(code IssueCode, format string, args ...interface{}) {
		out = append(out, Issue{Code: code, QuestionID: q.ID, Message: fmt.Sprintf(format, args...)})
	}
	rule := q.Rule

	switch rule.Operator {
	case model.OperatorEquals, model.OperatorNotEquals:
	case model.OperatorGreaterThan, model.OperatorLessThan:
		if _, ok := numeric(rule.CompareValue); !ok {
			add(IssueNonNumericCompare, "%s compares against non-numeric value %s and can never match", rule.Operator, rule.CompareValue)
		}
	default:
		add(IssueUnknownOperator, "unknown operator %q; question is always shown", rule.Operator)
	}

	if rule.DependsOn == q.ID {
		add(IssueSelfReference, "rule depends on its own question")
		return out
	}

	dep, ok := byID[rule.DependsOn]
	if !ok {
		add(IssueMissingDependency, "rule depends on %q which is not in this form; question is always shown", rule.DependsOn)
		return out
	}
	if dep.Order >= q.Order {
		add(IssueForwardReference, "rule depends on %q (order %d) which is not before this question (order %d)", dep.ID, dep.Order, q.Order)
	}
	if dep.Type.IsFile() {
		add(IssueFileTarget, "rule depends on %s question %q whose answers have no comparable value", dep.Type, dep.ID)
	}
	return out
}
