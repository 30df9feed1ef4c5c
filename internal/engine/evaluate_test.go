package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formpulse_backend/internal/model"
)

func answersOf(values map[string]interface{}) model.AnswerSet {
	set := make(model.AnswerSet, len(values))
	for id, v := range values {
		set[id] = model.Answer{QuestionID: id, Value: v}
	}
	return set
}

func TestEvaluateNoLogicKeepsStaticFlags(t *testing.T) {
	hidden := false
	q := schemaFixture(
		model.Question{ID: "q1", Type: model.QuestionTextShort, Required: true},
		model.Question{ID: "q2", Type: model.QuestionTextShort, IsVisible: &hidden},
		model.Question{ID: "q3", Type: model.QuestionRating},
	)

	state := Evaluate(q, model.AnswerSet{})
	require.Len(t, state, 3)
	assert.Equal(t, QuestionState{Visible: true, Required: true, Reachable: true}, state["q1"])
	assert.Equal(t, QuestionState{Visible: false, Required: false, Reachable: true}, state["q2"])
	assert.Equal(t, QuestionState{Visible: true, Required: false, Reachable: true}, state["q3"])
}

func TestEvaluateHideOnAnswer(t *testing.T) {
	q := schemaFixture(
		model.Question{ID: "q1", Type: model.QuestionSingleChoice, Options: []model.Option{{ID: "A", Text: "A"}, {ID: "B", Text: "B"}}},
		model.Question{ID: "q2", Type: model.QuestionTextShort, Logic: []model.LogicRule{
			{Conditions: []model.Condition{{QuestionID: "q1", Operator: model.OpEquals, Value: "A"}}, Action: model.ActionHide},
		}},
	)

	assert.False(t, Evaluate(q, answersOf(map[string]interface{}{"q1": "A"}))["q2"].Visible)
	assert.True(t, Evaluate(q, answersOf(map[string]interface{}{"q1": "B"}))["q2"].Visible)
}

func TestEvaluateSkipOverridesShowAndRequire(t *testing.T) {
	q := schemaFixture(
		model.Question{ID: "q1", Type: model.QuestionSingleChoice, Logic: []model.LogicRule{
			{Conditions: []model.Condition{{QuestionID: "q4", Operator: model.OpIsEmpty}}, Action: model.ActionSkipTo, Target: "q4"},
		}},
		model.Question{ID: "q2", Type: model.QuestionTextShort, Required: true, Logic: []model.LogicRule{
			{Action: model.ActionShow},
			{Action: model.ActionRequire},
		}},
		model.Question{ID: "q3", Type: model.QuestionTextShort},
		model.Question{ID: "q4", Type: model.QuestionTextShort},
	)

	state := Evaluate(q, model.AnswerSet{})
	for _, id := range []string{"q2", "q3"} {
		assert.Equal(t, QuestionState{Visible: false, Required: false, Reachable: false}, state[id], id)
	}
	// 跳转目标本身不在区间内
	assert.Equal(t, QuestionState{Visible: true, Required: false, Reachable: true}, state["q4"])
}

func TestEvaluateSkippedQuestionRulesDoNotFire(t *testing.T) {
	// q2 处于跳过区间，其自身的 skip_to 不应再触发
	q := schemaFixture(
		model.Question{ID: "q1", Type: model.QuestionTextShort, Logic: []model.LogicRule{
			{Action: model.ActionSkipTo, Target: "q3"},
		}},
		model.Question{ID: "q2", Type: model.QuestionTextShort, Logic: []model.LogicRule{
			{Action: model.ActionSkipTo, Target: "q4"},
		}},
		model.Question{ID: "q3", Type: model.QuestionTextShort},
		model.Question{ID: "q4", Type: model.QuestionTextShort},
	)

	state := Evaluate(q, model.AnswerSet{})
	assert.False(t, state["q2"].Reachable)
	assert.True(t, state["q3"].Reachable)
	assert.True(t, state["q4"].Reachable)
}

func TestEvaluateLastRuleWins(t *testing.T) {
	q := schemaFixture(
		model.Question{ID: "q1", Type: model.QuestionTextShort},
		model.Question{ID: "q2", Type: model.QuestionTextShort, Logic: []model.LogicRule{
			{Conditions: []model.Condition{{QuestionID: "q1", Operator: model.OpIsNotEmpty}}, Action: model.ActionHide},
			{Conditions: []model.Condition{{QuestionID: "q1", Operator: model.OpIsNotEmpty}}, Action: model.ActionShow},
		}},
	)

	state := Evaluate(q, answersOf(map[string]interface{}{"q1": "anything"}))
	assert.True(t, state["q2"].Visible)
}

func TestEvaluateCombinators(t *testing.T) {
	conditions := []model.Condition{
		{QuestionID: "q1", Operator: model.OpEquals, Value: "yes"},
		{QuestionID: "q2", Operator: model.OpEquals, Value: "yes"},
	}
	build := func(combinator model.LogicCombinator) *model.Questionnaire {
		return schemaFixture(
			model.Question{ID: "q1", Type: model.QuestionTextShort},
			model.Question{ID: "q2", Type: model.QuestionTextShort},
			model.Question{ID: "q3", Type: model.QuestionTextShort, Logic: []model.LogicRule{
				{Conditions: conditions, Combinator: combinator, Action: model.ActionHide},
			}},
		)
	}
	partial := answersOf(map[string]interface{}{"q1": "yes", "q2": "no"})

	// 缺省 AND：只满足一个条件不触发
	assert.True(t, Evaluate(build(""), partial)["q3"].Visible)
	assert.True(t, Evaluate(build(model.CombinatorAnd), partial)["q3"].Visible)
	assert.False(t, Evaluate(build(model.CombinatorOr), partial)["q3"].Visible)
}

func TestEvalConditionOperators(t *testing.T) {
	answers := answersOf(map[string]interface{}{
		"choice": []interface{}{"a", "b"},
		"text":   "hello world",
		"num":    7,
		"blank":  "",
	})

	tests := []struct {
		name string
		cond model.Condition
		want bool
	}{
		{"equals scalar", model.Condition{QuestionID: "num", Operator: model.OpEquals, Value: 7}, true},
		{"equals list as set", model.Condition{QuestionID: "choice", Operator: model.OpEquals, Value: []interface{}{"b", "a"}}, true},
		{"not_equals list", model.Condition{QuestionID: "choice", Operator: model.OpNotEquals, Value: []interface{}{"a"}}, true},
		{"contains substring", model.Condition{QuestionID: "text", Operator: model.OpContains, Value: "world"}, true},
		{"contains member", model.Condition{QuestionID: "choice", Operator: model.OpContains, Value: "a"}, true},
		{"not_contains member", model.Condition{QuestionID: "choice", Operator: model.OpNotContains, Value: "z"}, true},
		{"greater_than", model.Condition{QuestionID: "num", Operator: model.OpGreaterThan, Value: 5}, true},
		{"less_than", model.Condition{QuestionID: "num", Operator: model.OpLessThan, Value: 5}, false},
		{"greater_than non-numeric is false", model.Condition{QuestionID: "text", Operator: model.OpGreaterThan, Value: 1}, false},
		{"is_empty blank string", model.Condition{QuestionID: "blank", Operator: model.OpIsEmpty}, true},
		{"is_empty missing answer", model.Condition{QuestionID: "never-answered", Operator: model.OpIsEmpty}, true},
		{"is_not_empty missing answer", model.Condition{QuestionID: "never-answered", Operator: model.OpIsNotEmpty}, false},
		{"unknown operator is false", model.Condition{QuestionID: "num", Operator: "between"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalCondition(tt.cond, answers))
		})
	}
}
