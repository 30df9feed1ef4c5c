// Package engine 实现问卷的纯计算核心：模式校验、条件逻辑求值、
// 答案校验、测验计分、质量检测与聚合统计。
//
// 所有入口都是输入的纯函数，不持有可变状态，不做任何 IO；
// 同一份 Questionnaire 可被多个会话并发求值。
package engine

import "formpulse_backend/internal/model"

// SchemaError 模式错误。存在任何一条即为致命错误，
// 调用方必须拒绝对该问卷执行求值、计分或聚合。
type SchemaError struct {
	Code       string `json:"code"`
	QuestionID string `json:"questionId,omitempty"`
	Message    string `json:"message"`
}

func (e SchemaError) Error() string {
	if e.QuestionID != "" {
		return e.Code + " [" + e.QuestionID + "]: " + e.Message
	}
	return e.Code + ": " + e.Message
}

const (
	ErrDuplicateQuestionID = "duplicate_question_id"
	ErrDuplicateOptionID   = "duplicate_option_id"
	ErrDanglingReference   = "dangling_reference"
	ErrSelfReference       = "self_reference"
	ErrBackwardSkip        = "backward_skip"
	ErrSkipCycle           = "skip_cycle"
	ErrMissingSkipTarget   = "missing_skip_target"
)

// ValidateSchema 校验问卷模式，返回全部发现的错误。
// 问卷从草稿发布前必须通过本校验。
func ValidateSchema(q *model.Questionnaire) []SchemaError {
	var errs []SchemaError

	index := make(map[string]int, len(q.Questions)) // question id -> schema position
	for i, question := range q.Questions {
		if _, dup := index[question.ID]; dup {
			errs = append(errs, SchemaError{
				Code:       ErrDuplicateQuestionID,
				QuestionID: question.ID,
				Message:    "question id declared more than once",
			})
			continue
		}
		index[question.ID] = i
	}

	for _, question := range q.Questions {
		seen := make(map[string]bool, len(question.Options))
		for _, opt := range question.Options {
			if seen[opt.ID] {
				errs = append(errs, SchemaError{
					Code:       ErrDuplicateOptionID,
					QuestionID: question.ID,
					Message:    "option id " + opt.ID + " declared more than once",
				})
			}
			seen[opt.ID] = true
		}
	}

	// skip_to 边，用于环检测
	skipEdges := make(map[string]string)

	for _, question := range q.Questions {
		for _, rule := range question.Logic {
			for _, cond := range rule.Conditions {
				if cond.QuestionID == question.ID {
					errs = append(errs, SchemaError{
						Code:       ErrSelfReference,
						QuestionID: question.ID,
						Message:    "logic condition references its own question",
					})
					continue
				}
				if _, ok := index[cond.QuestionID]; !ok {
					errs = append(errs, SchemaError{
						Code:       ErrDanglingReference,
						QuestionID: question.ID,
						Message:    "condition references unknown question " + cond.QuestionID,
					})
				}
			}

			if rule.Action != model.ActionSkipTo {
				continue
			}
			if rule.Target == "" {
				errs = append(errs, SchemaError{
					Code:       ErrMissingSkipTarget,
					QuestionID: question.ID,
					Message:    "skip_to rule has no target",
				})
				continue
			}
			targetPos, ok := index[rule.Target]
			if !ok {
				errs = append(errs, SchemaError{
					Code:       ErrDanglingReference,
					QuestionID: question.ID,
					Message:    "skip_to targets unknown question " + rule.Target,
				})
				continue
			}
			// skip_to 只允许向前，向后或指向自身会破坏单趟求值
			if targetPos <= index[question.ID] {
				errs = append(errs, SchemaError{
					Code:       ErrBackwardSkip,
					QuestionID: question.ID,
					Message:    "skip_to must target a later question",
				})
			}
			skipEdges[question.ID] = rule.Target
		}
	}

	errs = append(errs, detectSkipCycles(skipEdges)...)
	return errs
}

// detectSkipCycles 对 skip_to 边做有向图环检测。
// 向前跳转的约束已经排除了环，但模式错误要在此处集中报告，
// 而不是留给求值器死循环。
func detectSkipCycles(edges map[string]string) []SchemaError {
	var errs []SchemaError
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(edges))

	for start := range edges {
		if state[start] != unvisited {
			continue
		}
		node := start
		var path []string
		for node != "" && state[node] == unvisited {
			state[node] = inStack
			path = append(path, node)
			node = edges[node]
		}
		if node != "" && state[node] == inStack {
			errs = append(errs, SchemaError{
				Code:       ErrSkipCycle,
				QuestionID: node,
				Message:    "skip_to targets form a cycle",
			})
		}
		for _, n := range path {
			state[n] = done
		}
	}
	return errs
}
