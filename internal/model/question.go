package model

import "sort"

// QuestionType defines the type of question
type QuestionType string

const (
	QuestionTypeText    QuestionType = "text"
	QuestionTypeNumber  QuestionType = "number"
	QuestionTypeBoolean QuestionType = "boolean"
	QuestionTypeScale   QuestionType = "1-10_scale" // Integer rating 1-10
	QuestionTypeFile    QuestionType = "file"
	QuestionTypePhoto   QuestionType = "photo"
	QuestionTypeSelect  QuestionType = "select" // Single choice from Options
)

// Valid reports whether t is one of the known question types
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeNumber, QuestionTypeBoolean, QuestionTypeScale,
		QuestionTypeFile, QuestionTypePhoto, QuestionTypeSelect:
		return true
	default:
		return false
	}
}

// IsFile reports whether answers to this type are uploaded blobs
func (t QuestionType) IsFile() bool {
	return t == QuestionTypeFile || t == QuestionTypePhoto
}

// Operator is the comparison used by a conditional rule
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
)

// Valid reports whether o is one of the known operators
func (o Operator) Valid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan:
		return true
	default:
		return false
	}
}

// ConditionalRule shows a question only when the answer to DependsOn
// compares true against CompareValue.
type ConditionalRule struct {
	DependsOn    string   `json:"dependsOn" bson:"dependsOn"`
	Operator     Operator `json:"operator" bson:"operator"`
	CompareValue Scalar   `json:"compareValue" bson:"compareValue"`
}

// Question is one prompt in a form schema
type Question struct {
	ID       string           `json:"id" bson:"id"`
	Text     string           `json:"text" bson:"text"`
	Type     QuestionType     `json:"type" bson:"type"`
	Options  []string         `json:"options,omitempty" bson:"options,omitempty"` // select only
	Required bool             `json:"required" bson:"required"`
	Order    int              `json:"order" bson:"order"`
	Rule     *ConditionalRule `json:"conditionalRule,omitempty" bson:"conditionalRule,omitempty"`
}

// SortQuestions returns a copy of qs in evaluation order: ascending Order,
// ties broken by ID.
func SortQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	copy(out, qs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}
