package engine

import (
	"fmt"

	"formpulse_backend/internal/model"
)

// GenerateInsights 基于聚合报表生成可读的结论与建议。
// 规则式文案，报表的纯函数。
func GenerateInsights(report *model.AggregateReport) model.Insights {
	return model.Insights{
		Summary:         buildSummary(report),
		KeyFindings:     keyFindings(report),
		Recommendations: recommendations(report),
	}
}

func buildSummary(report *model.AggregateReport) string {
	stats := report.ResponseStats
	summary := fmt.Sprintf("This questionnaire has received %d responses, with %d completed (%.2f%% completion rate).",
		stats.Total, stats.Completed, stats.CompletionRate)

	switch {
	case stats.CompletionRate > 80:
		summary += " The response rate is excellent."
	case stats.CompletionRate > 60:
		summary += " The response rate is good."
	default:
		summary += " Consider strategies to improve response rates."
	}

	if stats.AverageCompletionTime > 0 {
		summary += fmt.Sprintf(" Average completion time is %.0f seconds.", stats.AverageCompletionTime)
	}
	return summary
}

func keyFindings(report *model.AggregateReport) []string {
	var findings []string
	stats := report.ResponseStats

	if stats.CompletionRate > 90 {
		findings = append(findings, "Excellent completion rate indicates high engagement")
	} else if stats.Total > 0 && stats.CompletionRate < 50 {
		findings = append(findings, "Low completion rate suggests potential issues with survey design")
	}

	if stats.AverageCompletionTime > 600 {
		findings = append(findings, "Long average completion time may indicate complex questions")
	} else if stats.AverageCompletionTime > 0 && stats.AverageCompletionTime < 60 {
		findings = append(findings, "Very short completion time suggests questions may be too simple")
	}

	if stats.Total > 0 && float64(report.Quality.SuspiciousResponses)/float64(stats.Total) > 0.2 {
		findings = append(findings, "High number of suspicious responses detected")
	}
	return findings
}

func recommendations(report *model.AggregateReport) []string {
	var recs []string
	stats := report.ResponseStats

	if stats.Total > 0 && stats.CompletionRate < 70 {
		recs = append(recs,
			"Consider shortening the survey or adding progress indicators",
			"Review question wording for clarity")
	}
	if stats.AverageCompletionTime > 300 {
		recs = append(recs,
			"Break long surveys into multiple pages",
			"Consider using simpler question types")
	}

	// 作答率明显低于完成人数的题目
	var lowResponse []string
	threshold := float64(stats.Completed) * 0.8
	for _, qa := range report.Questions {
		if stats.Completed > 0 && float64(qa.Answered) < threshold {
			lowResponse = append(lowResponse, truncate(qa.Title, 50))
			if len(lowResponse) == 3 {
				break
			}
		}
	}
	if len(lowResponse) > 0 {
		recs = append(recs, fmt.Sprintf("Review questions with low response rates: %v", lowResponse))
	}
	return recs
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
