package engine

import (
	"strings"

	"github.com/spf13/cast"

	"formpulse_backend/internal/model"
)

// QuestionState 单题的派生状态
type QuestionState struct {
	Visible   bool `json:"visible"`
	Required  bool `json:"required"`
	Reachable bool `json:"reachable"`
}

// EvaluationState (Schema, AnswerSet) 对应的全部题目状态。
// 临时派生值，答案每次变化后重新计算，不落库。
type EvaluationState map[string]QuestionState

// conditionFuncs 运算符到求值函数的分发表
var conditionFuncs = map[model.ConditionOperator]func(answer, expected interface{}) bool{
	model.OpEquals:      valueEquals,
	model.OpNotEquals:   func(a, e interface{}) bool { return !valueEquals(a, e) },
	model.OpContains:    valueContains,
	model.OpNotContains: func(a, e interface{}) bool { return !valueContains(a, e) },
	model.OpGreaterThan: func(a, e interface{}) bool { return numericCompare(a, e, func(x, y float64) bool { return x > y }) },
	model.OpLessThan:    func(a, e interface{}) bool { return numericCompare(a, e, func(x, y float64) bool { return x < y }) },
	model.OpIsEmpty:     func(a, _ interface{}) bool { return ValueEmpty(a) },
	model.OpIsNotEmpty:  func(a, _ interface{}) bool { return !ValueEmpty(a) },
}

// Evaluate 对问卷按声明顺序做单趟求值，返回每题的可见/必答/可达状态。
//
// skip_to 只能向前（ValidateSchema 保证），因此一趟即可收敛，
// 无需不动点迭代。处于跳过区间内的题目不参与规则求值，
// 其 visible/required 被强制置为 false，优先级高于任何 show/require。
func Evaluate(q *model.Questionnaire, answers model.AnswerSet) EvaluationState {
	state := make(EvaluationState, len(q.Questions))

	positions := make(map[string]int, len(q.Questions))
	for i := range q.Questions {
		positions[q.Questions[i].ID] = i
	}

	skipUntil := -1 // 下标小于该值的后续题目都在跳过区间内

	for i := range q.Questions {
		question := &q.Questions[i]

		if i < skipUntil {
			state[question.ID] = QuestionState{Visible: false, Required: false, Reachable: false}
			continue
		}

		qs := QuestionState{
			Visible:   question.Visible(),
			Required:  question.Required,
			Reachable: true,
		}

		// 同题多条规则按声明顺序应用，冲突动作后者覆盖前者
		for _, rule := range question.Logic {
			if !ruleMatches(rule, answers) {
				continue
			}
			switch rule.Action {
			case model.ActionShow:
				qs.Visible = true
			case model.ActionHide:
				qs.Visible = false
			case model.ActionRequire:
				qs.Required = true
			case model.ActionUnrequire:
				qs.Required = false
			case model.ActionSkipTo:
				if target, ok := positions[rule.Target]; ok && target > skipUntil {
					skipUntil = target
				}
			}
		}

		state[question.ID] = qs
	}

	return state
}

// ruleMatches 按规则声明的组合方式求条件合取/析取，缺省为 AND
func ruleMatches(rule model.LogicRule, answers model.AnswerSet) bool {
	if len(rule.Conditions) == 0 {
		return true
	}

	or := rule.Combinator == model.CombinatorOr
	for _, cond := range rule.Conditions {
		matched := evalCondition(cond, answers)
		if or && matched {
			return true
		}
		if !or && !matched {
			return false
		}
	}
	return !or
}

// evalCondition 对单个条件求值。被引用题目尚无答案不是错误，
// 按空值处理。未知运算符恒为 false。
func evalCondition(cond model.Condition, answers model.AnswerSet) bool {
	fn, ok := conditionFuncs[cond.Operator]
	if !ok {
		return false
	}
	var value interface{}
	if ans, found := answers[cond.QuestionID]; found {
		value = ans.Value
	}
	return fn(value, cond.Value)
}

// valueEquals 深度相等。任一侧是列表时按集合比较（多选题选项无序）。
func valueEquals(answer, expected interface{}) bool {
	aList, aOK := toStringSlice(answer)
	eList, eOK := toStringSlice(expected)
	if aOK || eOK {
		if !aOK {
			aList = []string{cast.ToString(answer)}
		}
		if !eOK {
			eList = []string{cast.ToString(expected)}
		}
		return sameSet(aList, eList)
	}
	return cast.ToString(answer) == cast.ToString(expected)
}

// valueContains 文本按子串，列表按成员
func valueContains(answer, expected interface{}) bool {
	needle := cast.ToString(expected)
	if list, ok := toStringSlice(answer); ok {
		for _, item := range list {
			if item == needle {
				return true
			}
		}
		return false
	}
	if s, ok := answer.(string); ok {
		return strings.Contains(s, needle)
	}
	return false
}

// numericCompare 数值比较，任一操作数无法转为数值时恒为 false
func numericCompare(answer, expected interface{}, cmp func(a, b float64) bool) bool {
	a, err := cast.ToFloat64E(answer)
	if err != nil {
		return false
	}
	b, err := cast.ToFloat64E(expected)
	if err != nil {
		return false
	}
	return cmp(a, b)
}

// ValueEmpty nil、空串、空列表均视为空
func ValueEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	switch vv := v.(type) {
	case string:
		return strings.TrimSpace(vv) == ""
	case []interface{}:
		return len(vv) == 0
	case []string:
		return len(vv) == 0
	case map[string]interface{}:
		return len(vv) == 0
	}
	return false
}

func toStringSlice(v interface{}) ([]string, bool) {
	switch vv := v.(type) {
	case []string:
		return vv, true
	case []interface{}:
		out := make([]string, len(vv))
		for i, item := range vv {
			out[i] = cast.ToString(item)
		}
		return out, true
	}
	return nil, false
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, item := range a {
		set[item]++
	}
	for _, item := range b {
		set[item]--
		if set[item] < 0 {
			return false
		}
	}
	return true
}
