package model

import (
	"encoding/json"
	"time"
)

// ResponseStatus is derived from the stored response, never persisted
type ResponseStatus string

const (
	ResponseStarted    ResponseStatus = "started"
	ResponseInProgress ResponseStatus = "in_progress"
	ResponseSubmitted  ResponseStatus = "submitted"
)

// Response is one respondent's attempt at a form, addressed by SessionToken
type Response struct {
	ID           string     `json:"id" bson:"_id,omitempty"`
	FormID       string     `json:"formId" bson:"formId"`
	SessionToken string     `json:"sessionToken" bson:"sessionToken"`
	Submitted    bool       `json:"submitted" bson:"submitted"`
	Answers      AnswerSet  `json:"answers" bson:"answers"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt"`
	SubmittedAt  *time.Time `json:"submittedAt,omitempty" bson:"submittedAt,omitempty"`
}

// Status maps the stored flags onto Started -> InProgress -> Submitted
func (r *Response) Status() ResponseStatus {
	switch {
	case r.Submitted:
		return ResponseSubmitted
	case len(r.Answers) > 0:
		return ResponseInProgress
	default:
		return ResponseStarted
	}
}

// ResponseFilter narrows supervisor listings
type ResponseFilter struct {
	FormID    string
	Submitted *bool
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PerPage   int
}

// ResponsePage is one page of supervisor results
type ResponsePage struct {
	Data        []*Response `json:"data"`
	CurrentPage int         `json:"currentPage"`
	PerPage     int         `json:"perPage"`
	Total       int64       `json:"total"`
	LastPage    int         `json:"lastPage"`
}

// SaveAnswerRequest is one entry of a save payload. Answer is nil when the
// payload carried neither a value nor a file.
type SaveAnswerRequest struct {
	QuestionID string       `json:"questionId"`
	Answer     *AnswerValue `json:"answer"`
}

// UnmarshalJSON leaves Answer nil unless "value" or "filePath" is present;
// an explicit {"value": null} is still an answer.
func (r *SaveAnswerRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		QuestionID string          `json:"questionId"`
		Answer     json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.QuestionID = raw.QuestionID
	r.Answer = nil

	if len(raw.Answer) == 0 || string(raw.Answer) == "null" {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw.Answer, &fields); err != nil {
		return err
	}
	_, hasValue := fields["value"]
	_, hasFile := fields["filePath"]
	if !hasValue && !hasFile {
		return nil
	}

	var v AnswerValue
	if err := json.Unmarshal(raw.Answer, &v); err != nil {
		return err
	}
	r.Answer = &v
	return nil
}

// SubmissionResult is returned after a successful submit
type SubmissionResult struct {
	Response   *Response       `json:"response"`
	Visibility map[string]bool `json:"visibility"`
}

// ResponseDetail is the supervisor view of one response
type ResponseDetail struct {
	Response   *Response       `json:"response"`
	Status     ResponseStatus  `json:"status"`
	Form       *Form           `json:"form"`
	Visibility map[string]bool `json:"visibility"`
}
