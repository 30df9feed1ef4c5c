package engine

import (
	"math"

	"github.com/spf13/cast"

	"formpulse_backend/internal/model"
)

// Score 对测验类问卷计分，提交时调用一次。
// 非测验类问卷返回空结果。计分从不报错：
// 作者配置有误的题目按零分贡献处理，不能因此拦下整份提交。
// 满分为零（没有任何带分值的选项）时 Passed 保持 false，
// 不按 0/0 及格处理。
func Score(q *model.Questionnaire, answers model.AnswerSet) model.ScoreResult {
	if !q.IsQuiz() {
		return model.ScoreResult{}
	}

	var result model.ScoreResult
	for i := range q.Questions {
		question := &q.Questions[i]
		correct := correctOption(question)
		if correct == nil {
			continue
		}

		qs := model.QuestionScore{
			QuestionID: question.ID,
			Max:        *correct.Score,
		}
		if ans, ok := answers[question.ID]; ok && cast.ToString(ans.Value) == correct.ID {
			qs.Earned = *correct.Score
			qs.Correct = true
		}

		result.TotalScore += qs.Earned
		result.MaxScore += qs.Max
		result.Breakdown = append(result.Breakdown, qs)
	}

	if result.MaxScore > 0 {
		result.Percentage = int(math.Round(float64(result.TotalScore) / float64(result.MaxScore) * 100))
		result.Passed = float64(result.TotalScore) >= 0.6*float64(result.MaxScore)
	}
	result.Grade = gradeFor(result.Percentage)
	return result
}

// correctOption 返回该题的标准答案选项。
// 约定：声明顺序中第一个带分值的选项即标准答案。
func correctOption(q *model.Question) *model.Option {
	for i := range q.Options {
		if q.Options[i].Score != nil {
			return &q.Options[i]
		}
	}
	return nil
}

func gradeFor(percentage int) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}
