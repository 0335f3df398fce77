package model

import (
	"encoding/json"
	"time"
)

// AnswerValue is either a boxed scalar ({"value": x}) or a stored file
// ({"filePath": p, "originalName": n}). File answers carry a null Value.
type AnswerValue struct {
	Value        Scalar `bson:"value"`
	FilePath     string `bson:"filePath,omitempty"`
	OriginalName string `bson:"originalName,omitempty"`
}

// ScalarAnswer boxes a scalar answer
func ScalarAnswer(v Scalar) AnswerValue {
	return AnswerValue{Value: v}
}

// FileAnswer records a stored upload
func FileAnswer(path, originalName string) AnswerValue {
	return AnswerValue{FilePath: path, OriginalName: originalName}
}

// IsFile reports whether the answer points at a stored file
func (v AnswerValue) IsFile() bool {
	return v.FilePath != ""
}

type scalarAnswerJSON struct {
	Value Scalar `json:"value"`
}

type fileAnswerJSON struct {
	FilePath     string `json:"filePath"`
	OriginalName string `json:"originalName"`
}

// MarshalJSON keeps the scalar and file shapes distinct on the wire
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.IsFile() {
		return json.Marshal(fileAnswerJSON{FilePath: v.FilePath, OriginalName: v.OriginalName})
	}
	return json.Marshal(scalarAnswerJSON{Value: v.Value})
}

// UnmarshalJSON accepts either shape
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, ok := raw["filePath"]; ok {
		var f fileAnswerJSON
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*v = FileAnswer(f.FilePath, f.OriginalName)
		return nil
	}
	var s Scalar
	if rv, ok := raw["value"]; ok {
		if err := json.Unmarshal(rv, &s); err != nil {
			return err
		}
	}
	*v = ScalarAnswer(s)
	return nil
}

// Answer is the latest value saved for one question of a response
type Answer struct {
	QuestionID string      `json:"questionId" bson:"questionId"`
	Answer     AnswerValue `json:"answer" bson:"answer"`
	UpdatedAt  time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// AnswerSet maps question id to its single answer (last write wins)
type AnswerSet map[string]Answer

// Has reports whether questionID has an answer
func (s AnswerSet) Has(questionID string) bool {
	_, ok := s[questionID]
	return ok
}

// Put stores v for questionID, replacing any earlier answer
func (s AnswerSet) Put(questionID string, v AnswerValue) {
	s[questionID] = Answer{QuestionID: questionID, Answer: v, UpdatedAt: time.Now()}
}
