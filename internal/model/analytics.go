package model

import "time"

// DateRange 聚合统计的时间窗口
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains 判断时间点是否落在窗口内（含边界），零值窗口视为不限
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// ResponseStats 响应级统计
type ResponseStats struct {
	Total                 int     `json:"total"`
	Completed             int     `json:"completed"`
	Abandoned             int     `json:"abandoned"`
	CompletionRate        float64 `json:"completionRate"`
	AverageCompletionTime float64 `json:"averageCompletionTime"`
	MedianCompletionTime  float64 `json:"medianCompletionTime"`
}

// RatingStats 评分/量表题统计
type RatingStats struct {
	Average      float64        `json:"average"`
	Min          float64        `json:"min"`
	Max          float64        `json:"max"`
	Distribution map[string]int `json:"distribution"`
}

// Keyword 文本题关键词
type Keyword struct {
	Word      string `json:"word"`
	Count     int    `json:"count"`
	Relevance int    `json:"relevance"`
}

// SentimentOverview 情感分析载荷，由外部 NLP 协作方填充
type SentimentOverview struct {
	Overall      string             `json:"overall"` // positive / neutral / negative
	Score        float64            `json:"score"`
	Confidence   float64            `json:"confidence"`
	Distribution map[string]float64 `json:"distribution,omitempty"`
}

// TextStats 文本题统计
type TextStats struct {
	ResponseCount int                `json:"responseCount"`
	WordCount     int                `json:"wordCount"`
	AverageLength float64            `json:"averageLength"`
	Keywords      []Keyword          `json:"keywords"`
	Sentiment     *SentimentOverview `json:"sentiment,omitempty"`
}

// QuestionAnalytics 单题聚合结果，按题型携带不同字段
type QuestionAnalytics struct {
	QuestionID   string         `json:"questionId"`
	Type         QuestionType   `json:"questionType"`
	Title        string         `json:"questionTitle"`
	Answered     int            `json:"answered"`
	Skipped      int            `json:"skipped"`
	OptionCounts map[string]int `json:"optionCounts,omitempty"`
	Rating       *RatingStats   `json:"rating,omitempty"`
	Text         *TextStats     `json:"text,omitempty"`
}

// DemographicCount 人口属性分组计数
type DemographicCount struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Demographics 人口属性聚合
type Demographics struct {
	DeviceTypes []DemographicCount `json:"deviceTypes"`
	Browsers    []DemographicCount `json:"browsers"`
	Locations   []DemographicCount `json:"locations"`
	Languages   []DemographicCount `json:"languages"`
	Timezones   []DemographicCount `json:"timezones"`
}

// HourCount 提交时段计数
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// WeekdayCount 提交星期计数
type WeekdayCount struct {
	Weekday string `json:"weekday"`
	Count   int    `json:"count"`
}

// TimeAnalytics 提交时间分布
type TimeAnalytics struct {
	HourlyDistribution  []HourCount    `json:"hourlyDistribution"`
	WeekdayDistribution []WeekdayCount `json:"weekdayDistribution"`
	PeakHours           []HourCount    `json:"peakHours"`
}

// QualityMetrics 批次质量汇总，读取各响应已存的质量评估结果
type QualityMetrics struct {
	SuspiciousResponses int     `json:"suspiciousResponses"`
	AverageSecondsPerQ  float64 `json:"averageSecondsPerQuestion"`
	StraightLiningRate  float64 `json:"straightLiningRate"`
}

// AggregateReport 聚合报表。纯派生值，可随时丢弃重算。
type AggregateReport struct {
	QuestionnaireID  string              `json:"questionnaireId"`
	DateRange        DateRange           `json:"dateRange"`
	ResponseStats    ResponseStats       `json:"responseStats"`
	Questions        []QuestionAnalytics `json:"questionAnalytics"`
	Demographics     Demographics        `json:"demographics"`
	TimeAnalytics    TimeAnalytics       `json:"timeAnalytics"`
	Quality          QualityMetrics      `json:"qualityMetrics"`
	MalformedRecords int                 `json:"malformedRecords"`
}

// Insights 基于报表生成的可读结论
type Insights struct {
	Summary         string   `json:"summary"`
	KeyFindings     []string `json:"keyFindings"`
	Recommendations []string `json:"recommendations"`
}
