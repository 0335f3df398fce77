package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"formgate/internal/model"
)

func rule(dependsOn string, op model.Operator, v model.Scalar) *model.ConditionalRule {
	return &model.ConditionalRule{DependsOn: dependsOn, Operator: op, CompareValue: v}
}

func answersOf(pairs map[string]model.Scalar) model.AnswerSet {
	set := model.AnswerSet{}
	for id, v := range pairs {
		set.Put(id, model.ScalarAnswer(v))
	}
	return set
}

func TestResolveVisibility_NoRuleAlwaysVisible(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Type: model.QuestionTypeText, Order: 1},
		{ID: "q2", Type: model.QuestionTypeNumber, Order: 2},
	}

	for _, answers := range []model.AnswerSet{
		{},
		answersOf(map[string]model.Scalar{"q1": model.String("x")}),
		answersOf(map[string]model.Scalar{"q1": model.Null(), "q2": model.Number(3)}),
	} {
		vis := ResolveVisibility(questions, answers)
		assert.True(t, vis.Visible("q1"))
		assert.True(t, vis.Visible("q2"))
	}
}

func TestResolveVisibility_UnansweredDependencyHides(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Type: model.QuestionTypeBoolean, Order: 1},
		// not_equals would match a null answer, but there is no answer at all
		{ID: "q2", Type: model.QuestionTypeText, Order: 2, Rule: rule("q1", model.OperatorNotEquals, model.Bool(true))},
	}

	vis := ResolveVisibility(questions, model.AnswerSet{})
	assert.False(t, vis.Visible("q2"))
}

func TestResolveVisibility_CoversEveryQuestion(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Type: model.QuestionTypeBoolean, Order: 1},
		{ID: "q2", Type: model.QuestionTypeText, Order: 2, Rule: rule("q1", model.OperatorEquals, model.Bool(true))},
		{ID: "q3", Type: model.QuestionTypeText, Order: 3, Rule: rule("q1", model.OperatorEquals, model.Bool(false))},
	}

	vis := ResolveVisibility(questions, answersOf(map[string]model.Scalar{"q1": model.Bool(true)}))
	assert.Equal(t, Visibility{"q1": true, "q2": true, "q3": false}, vis)
	assert.Equal(t, []string{"q3"}, vis.Hidden(questions))
}

func TestResolveVisibility_MalformedRulesFailOpen(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Type: model.QuestionTypeBoolean, Order: 1},
		{ID: "q2", Type: model.QuestionTypeText, Order: 2, Rule: rule("q1", model.Operator("matches"), model.String("x"))},
		{ID: "q3", Type: model.QuestionTypeText, Order: 3, Rule: rule("deleted", model.OperatorEquals, model.Bool(true))},
	}

	vis := ResolveVisibility(questions, model.AnswerSet{})
	assert.True(t, vis.Visible("q2"), "unknown operator")
	assert.True(t, vis.Visible("q3"), "dependency outside the form")
}

func TestResolveVisibility_DoesNotMutateInput(t *testing.T) {
	questions := []model.Question{
		{ID: "b", Order: 2},
		{ID: "a", Order: 1},
	}
	ResolveVisibility(questions, model.AnswerSet{})
	assert.Equal(t, "b", questions[0].ID)
	assert.Equal(t, "a", questions[1].ID)
}

func TestResolveVisibility_FileAnswerComparesAsNull(t *testing.T) {
	questions := []model.Question{
		{ID: "doc", Type: model.QuestionTypeFile, Order: 1},
		{ID: "why", Type: model.QuestionTypeText, Order: 2, Rule: rule("doc", model.OperatorEquals, model.Bool(false))},
	}
	answers := model.AnswerSet{}
	answers.Put("doc", model.FileAnswer("responses/abc", "scan.pdf"))

	vis := ResolveVisibility(questions, answers)
	assert.True(t, vis.Visible("why"), "null == false")
}
