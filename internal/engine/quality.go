package engine

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"formpulse_backend/internal/model"
)

// QualityThresholds 质量启发式的可调阈值。
// 问卷长短与题目复杂度差异很大，阈值必须可配置。
type QualityThresholds struct {
	SpeedingSecondsPerQuestion float64
	MinAnswerRatio             float64
}

// DefaultThresholds 缺省阈值：每题 5 秒、作答率 70%
func DefaultThresholds() QualityThresholds {
	return QualityThresholds{
		SpeedingSecondsPerQuestion: 5,
		MinAnswerRatio:             0.7,
	}
}

// 各启发式命中后的扣分
const (
	deductSpeeding       = 30
	deductStraightLining = 25
	deductIncomplete     = 20
	deductBot            = 40
)

var botMarkers = []string{"bot", "crawler", "spider"}

// AssessQuality 对一份完成的响应运行全部质量启发式。
// 各启发式相互独立、各产出至多一条标记；多条标记可以并存。
// 每次运行整体替换上一次的标记列表，复核人可随时重新触发。
// IsSuspicious 当且仅当存在 high 级标记。
func AssessQuality(resp *model.Response, q *model.Questionnaire, th QualityThresholds) model.QualityAssessment {
	assessment := model.QualityAssessment{
		Score:     100,
		Flags:     []model.QualityFlag{},
		CheckedAt: time.Now(),
	}

	questionCount := len(q.Questions)

	if flag := checkSpeeding(resp, questionCount, th); flag != nil {
		assessment.Flags = append(assessment.Flags, *flag)
		assessment.Score -= deductSpeeding
	}
	if flag := checkStraightLining(resp, q); flag != nil {
		assessment.Flags = append(assessment.Flags, *flag)
		assessment.Score -= deductStraightLining
	}
	if flag := checkBotAgent(resp); flag != nil {
		assessment.Flags = append(assessment.Flags, *flag)
		assessment.Score -= deductBot
	}
	if incomplete(resp, questionCount, th) {
		assessment.Score -= deductIncomplete
	}

	if assessment.Score < 0 {
		assessment.Score = 0
	}
	for _, flag := range assessment.Flags {
		if flag.Severity == model.SeverityHigh {
			assessment.IsSuspicious = true
			break
		}
	}
	return assessment
}

// checkSpeeding 平均每题耗时低于阈值则判定刷题。
// 未上报完成耗时的响应不参与判定，避免对正常快速作答误报。
func checkSpeeding(resp *model.Response, questionCount int, th QualityThresholds) *model.QualityFlag {
	if resp.Metadata.CompletionTime == nil || questionCount == 0 {
		return nil
	}
	total := float64(*resp.Metadata.CompletionTime)
	if total <= 0 {
		return nil
	}
	if total/float64(questionCount) < th.SpeedingSecondsPerQuestion {
		return &model.QualityFlag{
			Type:        model.FlagSpeeding,
			Severity:    model.SeverityHigh,
			Description: "completed too quickly",
		}
	}
	return nil
}

// checkStraightLining 窄口径的字面重复检测：
// 至少 3 个答案全部相同，或按题目顺序拼接的答案串（长度大于 5）
// 由单一重复单元构成。不做跨多选数组或数列的语义重复识别。
func checkStraightLining(resp *model.Response, q *model.Questionnaire) *model.QualityFlag {
	answers := resp.AnswerSet()
	var values []string
	for i := range q.Questions {
		if ans, ok := answers[q.Questions[i].ID]; ok && !ValueEmpty(ans.Value) {
			values = append(values, cast.ToString(ans.Value))
		}
	}
	if len(values) < 3 {
		return nil
	}

	identical := true
	for _, v := range values[1:] {
		if v != values[0] {
			identical = false
			break
		}
	}

	joined := strings.Join(values, "")
	if identical || (len(joined) > 5 && hasRepeatingUnit(joined)) {
		return &model.QualityFlag{
			Type:        model.FlagStraightLining,
			Severity:    model.SeverityMedium,
			Description: "identical answer pattern across questions",
		}
	}
	return nil
}

// hasRepeatingUnit 字符串是否由某个短于自身的单元整周期重复构成
func hasRepeatingUnit(s string) bool {
	n := len(s)
	for period := 1; period <= n/2; period++ {
		if n%period != 0 {
			continue
		}
		if strings.Repeat(s[:period], n/period) == s {
			return true
		}
	}
	return false
}

func checkBotAgent(resp *model.Response) *model.QualityFlag {
	agent := strings.ToLower(resp.Metadata.UserAgent)
	for _, marker := range botMarkers {
		if strings.Contains(agent, marker) {
			return &model.QualityFlag{
				Type:        model.FlagBotDetected,
				Severity:    model.SeverityHigh,
				Description: "automated user agent detected",
			}
		}
	}
	return nil
}

func incomplete(resp *model.Response, questionCount int, th QualityThresholds) bool {
	if questionCount == 0 || th.MinAnswerRatio <= 0 {
		return false
	}
	answered := 0
	for _, ans := range resp.Answers {
		if !ValueEmpty(ans.Value) {
			answered++
		}
	}
	return float64(answered) < float64(questionCount)*th.MinAnswerRatio
}
