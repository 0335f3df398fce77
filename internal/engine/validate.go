package engine

import (
	"errors"
	"fmt"
	"sort"

	"formgate/internal/model"
)

// RejectionCode identifies why a submission was refused
type RejectionCode string

const (
	// CodeMissingRequired: a visible, required question has no answer.
	CodeMissingRequired RejectionCode = "MISSING_REQUIRED"

	// CodeUnexpectedAnswer: an answer exists for a hidden question or for a
	// question that is not part of the form.
	CodeUnexpectedAnswer RejectionCode = "UNEXPECTED_ANSWER"
)

// Rejection is the per-question reason a submission was refused.
// It is a recoverable, respondent-facing condition, never a server fault.
type Rejection struct {
	Code       RejectionCode `json:"code"`
	QuestionID string        `json:"questionId"`
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	switch r.Code {
	case CodeMissingRequired:
		return fmt.Sprintf("required question %s not answered", r.QuestionID)
	case CodeUnexpectedAnswer:
		return fmt.Sprintf("question %s should not have been answered", r.QuestionID)
	default:
		return fmt.Sprintf("%s: question %s", r.Code, r.QuestionID)
	}
}

// MissingRequired builds a CodeMissingRequired rejection
func MissingRequired(questionID string) *Rejection {
	return &Rejection{Code: CodeMissingRequired, QuestionID: questionID}
}

// UnexpectedAnswer builds a CodeUnexpectedAnswer rejection
func UnexpectedAnswer(questionID string) *Rejection {
	return &Rejection{Code: CodeUnexpectedAnswer, QuestionID: questionID}
}

// AsRejection unwraps err to a *Rejection if it holds one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// IsMissingRequired returns true if err is a missing-required rejection.
func IsMissingRequired(err error) bool {
	r, ok := AsRejection(err)
	return ok && r.Code == CodeMissingRequired
}

// IsUnexpectedAnswer returns true if err is an unexpected-answer rejection.
func IsUnexpectedAnswer(err error) bool {
	r, ok := AsRejection(err)
	return ok && r.Code == CodeUnexpectedAnswer
}

// ValidateSubmission checks answers against a visibility map computed from
// those same answers. It returns nil when the submission is acceptable and
// a *Rejection for the first offending question otherwise.
//
// Passes run in order and each stops at its first failure:
//  1. every visible required question is answered
//  2. no hidden question is answered
//  3. no answer names a question outside the schema
func ValidateSubmission(questions []model.Question, visibility Visibility, answers model.AnswerSet) error {
	ordered := model.SortQuestions(questions)

	for _, q := range ordered {
		if visibility[q.ID] && q.Required && !answers.Has(q.ID) {
			return MissingRequired(q.ID)
		}
	}

	for _, q := range ordered {
		if !visibility[q.ID] && answers.Has(q.ID) {
			return UnexpectedAnswer(q.ID)
		}
	}

	known := make(map[string]struct{}, len(ordered))
	for _, q := range ordered {
		known[q.ID] = struct{}{}
	}
	var foreign []string
	for id := range answers {
		if _, ok := known[id]; !ok {
			foreign = append(foreign, id)
		}
	}
	if len(foreign) > 0 {
		sort.Strings(foreign)
		return UnexpectedAnswer(foreign[0])
	}

	return nil
}

// Evaluate is the submission gate: it derives visibility from the given
// (stored) answers and validates them against it.
func Evaluate(questions []model.Question, answers model.AnswerSet) (Visibility, error) {
	vis := ResolveVisibility(questions, answers)
	if err := ValidateSubmission(questions, vis, answers); err != nil {
		return vis, err
	}
	return vis, nil
}
