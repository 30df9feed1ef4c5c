package engine

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"formpulse_backend/internal/model"
)

// AggregateOptions 聚合的可调参数
type AggregateOptions struct {
	DefaultRatingMax int // 评分题未声明 max 时的直方图上限
	TopKeywords      int
}

func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{DefaultRatingMax: 5, TopKeywords: 10}
}

// Aggregate 把一批响应折叠为聚合报表。单趟流式累加，
// 内存占用与选项/关键词的基数成正比，与响应数无关
// （完成耗时中位数所需的时长序列除外）。
//
// 批次应当已按时间窗口过滤。结果是输入的确定性函数：
// 同一批响应重复聚合得到逐字节相同的报表。
// 个别损坏的记录跳过并计数，不中断整个批次。
func Aggregate(q *model.Questionnaire, responses []model.Response, dateRange model.DateRange) model.AggregateReport {
	return AggregateWith(q, responses, dateRange, DefaultAggregateOptions())
}

func AggregateWith(q *model.Questionnaire, responses []model.Response, dateRange model.DateRange, opts AggregateOptions) model.AggregateReport {
	if opts.DefaultRatingMax <= 0 {
		opts.DefaultRatingMax = 5
	}
	if opts.TopKeywords <= 0 {
		opts.TopKeywords = 10
	}

	report := model.AggregateReport{
		QuestionnaireID: q.ID,
		DateRange:       dateRange,
	}

	accs := newQuestionAccumulators(q, opts)
	demo := newDemographicsAccumulator()
	var hourly [24]int
	var weekday [7]int
	var completionTimes []float64
	var quality qualityAccumulator

	for i := range responses {
		resp := &responses[i]
		if malformedRecord(resp, q.ID) {
			report.MalformedRecords++
			continue
		}

		report.ResponseStats.Total++
		switch resp.Status {
		case model.ResponseStatusCompleted:
			report.ResponseStats.Completed++
		case model.ResponseStatusAbandoned:
			report.ResponseStats.Abandoned++
		}

		// 缺失的完成耗时不计入均值与中位数，不按 0 处理
		if resp.Metadata.CompletionTime != nil {
			completionTimes = append(completionTimes, float64(*resp.Metadata.CompletionTime))
		}

		answers := resp.AnswerSet()
		for _, acc := range accs {
			acc.fold(answers)
		}

		demo.fold(resp)
		if resp.Metadata.SubmittedAt != nil {
			t := resp.Metadata.SubmittedAt.UTC()
			hourly[t.Hour()]++
			weekday[int(t.Weekday())]++
		}
		quality.fold(resp, len(q.Questions))
	}

	stats := &report.ResponseStats
	if stats.Total > 0 {
		stats.CompletionRate = roundPercent(stats.Completed, stats.Total)
	}
	stats.AverageCompletionTime = round2(mean(completionTimes))
	stats.MedianCompletionTime = round2(median(completionTimes))

	report.Questions = make([]model.QuestionAnalytics, 0, len(accs))
	for _, acc := range accs {
		report.Questions = append(report.Questions, acc.result())
	}
	report.Demographics = demo.result()
	report.TimeAnalytics = timeAnalytics(hourly, weekday)
	report.Quality = quality.result()
	return report
}

// malformedRecord 基本形状检查，损坏记录跳过而不是放弃整批
func malformedRecord(resp *model.Response, questionnaireID string) bool {
	if resp.ID == "" || resp.QuestionnaireID != questionnaireID {
		return true
	}
	switch resp.Status {
	case model.ResponseStatusInProgress, model.ResponseStatusCompleted, model.ResponseStatusAbandoned:
		return false
	}
	return true
}

// ---- 单题累加器 ----

type questionAccumulator struct {
	question *model.Question
	opts     AggregateOptions

	answered int
	skipped  int

	optionCounts map[string]int
	optionLabels map[string]string // option id -> label

	ratingSum   float64
	ratingCount int
	ratingMin   float64
	ratingMax   float64
	ratingDist  map[string]int

	textCount  int
	totalWords int
	wordCounts map[string]int
}

func newQuestionAccumulators(q *model.Questionnaire, opts AggregateOptions) []*questionAccumulator {
	accs := make([]*questionAccumulator, 0, len(q.Questions))
	for i := range q.Questions {
		question := &q.Questions[i]
		acc := &questionAccumulator{question: question, opts: opts}

		switch {
		case question.Type.IsChoice():
			acc.optionCounts = make(map[string]int, len(question.Options))
			acc.optionLabels = make(map[string]string, len(question.Options))
			for _, opt := range question.Options {
				acc.optionCounts[opt.Text] = 0
				acc.optionLabels[opt.ID] = opt.Text
			}
		case question.Type.IsNumeric():
			acc.ratingDist = make(map[string]int)
			// 直方图桶从 1 到声明的最大值预置为 0
			for b := 1; b <= question.RatingMax(opts.DefaultRatingMax); b++ {
				acc.ratingDist[strconv.Itoa(b)] = 0
			}
		case question.Type.IsText():
			acc.wordCounts = make(map[string]int)
		}
		accs = append(accs, acc)
	}
	return accs
}

func (a *questionAccumulator) fold(answers model.AnswerSet) {
	ans, ok := answers[a.question.ID]
	if !ok || ValueEmpty(ans.Value) {
		a.skipped++
		return
	}
	a.answered++

	switch {
	case a.question.Type.IsChoice():
		a.foldChoice(ans.Value)
	case a.question.Type.IsNumeric():
		a.foldRating(ans.Value)
	case a.question.Type.IsText():
		a.foldText(cast.ToString(ans.Value))
	}
}

// foldChoice 多选答案按列表存储时，每个选中值独立累加对应选项
func (a *questionAccumulator) foldChoice(value interface{}) {
	values, ok := toStringSlice(value)
	if !ok {
		values = []string{cast.ToString(value)}
	}
	for _, v := range values {
		label := v
		if text, found := a.optionLabels[v]; found {
			label = text
		}
		a.optionCounts[label]++
	}
}

func (a *questionAccumulator) foldRating(value interface{}) {
	n, err := cast.ToFloat64E(value)
	if err != nil {
		return
	}
	if a.ratingCount == 0 || n < a.ratingMin {
		a.ratingMin = n
	}
	if a.ratingCount == 0 || n > a.ratingMax {
		a.ratingMax = n
	}
	a.ratingSum += n
	a.ratingCount++

	bucket := strconv.Itoa(int(n))
	if _, ok := a.ratingDist[bucket]; ok {
		a.ratingDist[bucket]++
	}
}

func (a *questionAccumulator) foldText(text string) {
	a.textCount++
	words := tokenize(text)
	a.totalWords += len(words)
	for _, w := range words {
		if len(w) > 2 && !stopWords[w] {
			a.wordCounts[w]++
		}
	}
}

func (a *questionAccumulator) result() model.QuestionAnalytics {
	qa := model.QuestionAnalytics{
		QuestionID: a.question.ID,
		Type:       a.question.Type,
		Title:      a.question.Title,
		Answered:   a.answered,
		Skipped:    a.skipped,
	}

	switch {
	case a.question.Type.IsChoice():
		qa.OptionCounts = a.optionCounts
	case a.question.Type.IsNumeric():
		stats := &model.RatingStats{Distribution: a.ratingDist}
		if a.ratingCount > 0 {
			stats.Average = round2(a.ratingSum / float64(a.ratingCount))
			stats.Min = a.ratingMin
			stats.Max = a.ratingMax
		}
		qa.Rating = stats
	case a.question.Type.IsText():
		avg := 0.0
		if a.textCount > 0 {
			avg = round2(float64(a.totalWords) / float64(a.textCount))
		}
		qa.Text = &model.TextStats{
			ResponseCount: a.textCount,
			WordCount:     a.totalWords,
			AverageLength: avg,
			Keywords:      topKeywords(a.wordCounts, a.textCount, a.opts.TopKeywords),
		}
	}
	return qa
}

// ---- 文本处理 ----

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"are": true, "was": true, "this": true, "that": true, "it": true,
}

func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// topKeywords 词频前 N 的关键词，按频次降序、同频按字典序，
// 保证输出确定性。relevance = round(count / 文本条数 × 100)。
func topKeywords(counts map[string]int, textCount, limit int) []model.Keyword {
	if len(counts) == 0 || textCount == 0 {
		return []model.Keyword{}
	}
	keywords := make([]model.Keyword, 0, len(counts))
	for word, count := range counts {
		keywords = append(keywords, model.Keyword{
			Word:      word,
			Count:     count,
			Relevance: int(math.Round(float64(count) / float64(textCount) * 100)),
		})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Word < keywords[j].Word
	})
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}

// ---- 人口属性 ----

type demographicsAccumulator struct {
	total     int
	devices   map[string]int
	browsers  map[string]int
	locations map[string]int
	languages map[string]int
	timezones map[string]int
}

func newDemographicsAccumulator() *demographicsAccumulator {
	return &demographicsAccumulator{
		devices:   map[string]int{},
		browsers:  map[string]int{},
		locations: map[string]int{},
		languages: map[string]int{},
		timezones: map[string]int{},
	}
}

func (d *demographicsAccumulator) fold(resp *model.Response) {
	d.total++
	meta := &resp.Metadata
	d.devices[classifyDevice(meta.UserAgent)]++
	d.browsers[classifyBrowser(meta.UserAgent)]++
	if meta.Location != "" {
		d.locations[meta.Location]++
	}
	if meta.Language != "" {
		d.languages[meta.Language]++
	}
	if meta.Timezone != "" {
		d.timezones[meta.Timezone]++
	}
}

func (d *demographicsAccumulator) result() model.Demographics {
	return model.Demographics{
		DeviceTypes: toDemographicCounts(d.devices, d.total),
		Browsers:    toDemographicCounts(d.browsers, d.total),
		Locations:   toDemographicCounts(d.locations, d.total),
		Languages:   toDemographicCounts(d.languages, d.total),
		Timezones:   toDemographicCounts(d.timezones, d.total),
	}
}

func toDemographicCounts(counts map[string]int, total int) []model.DemographicCount {
	out := make([]model.DemographicCount, 0, len(counts))
	for value, count := range counts {
		item := model.DemographicCount{Value: value, Count: count}
		if total > 0 {
			item.Percentage = roundPercent(count, total)
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// classifyDevice UA 子串判断：mobile / tablet / desktop
func classifyDevice(userAgent string) string {
	agent := strings.ToLower(userAgent)
	switch {
	case strings.Contains(agent, "tablet") || strings.Contains(agent, "ipad"):
		return "tablet"
	case strings.Contains(agent, "mobile"):
		return "mobile"
	default:
		return "desktop"
	}
}

// classifyBrowser 固定的已知浏览器子串表，匹配不到归入 Other。
// Chrome 系 UA 也带 Safari 标识，顺序在此有意义。
func classifyBrowser(userAgent string) string {
	agent := strings.ToLower(userAgent)
	switch {
	case strings.Contains(agent, "edg"):
		return "Edge"
	case strings.Contains(agent, "opr") || strings.Contains(agent, "opera"):
		return "Opera"
	case strings.Contains(agent, "chrome"):
		return "Chrome"
	case strings.Contains(agent, "firefox"):
		return "Firefox"
	case strings.Contains(agent, "safari"):
		return "Safari"
	default:
		return "Other"
	}
}

// ---- 时间分布 ----

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func timeAnalytics(hourly [24]int, weekday [7]int) model.TimeAnalytics {
	ta := model.TimeAnalytics{
		HourlyDistribution:  make([]model.HourCount, 24),
		WeekdayDistribution: make([]model.WeekdayCount, 7),
	}
	for h, count := range hourly {
		ta.HourlyDistribution[h] = model.HourCount{Hour: h, Count: count}
	}
	for d, count := range weekday {
		ta.WeekdayDistribution[d] = model.WeekdayCount{Weekday: weekdayNames[d], Count: count}
	}

	peaks := make([]model.HourCount, len(ta.HourlyDistribution))
	copy(peaks, ta.HourlyDistribution)
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].Count != peaks[j].Count {
			return peaks[i].Count > peaks[j].Count
		}
		return peaks[i].Hour < peaks[j].Hour
	})
	for _, p := range peaks[:3] {
		if p.Count > 0 {
			ta.PeakHours = append(ta.PeakHours, p)
		}
	}
	return ta
}

// ---- 质量汇总 ----

// qualityAccumulator 只读取各响应已存的质量评估结果，
// 不重新运行启发式，聚合器不依赖其它组件的运行时状态。
type qualityAccumulator struct {
	assessed       int
	suspicious     int
	straightLining int
	speedSum       float64
	speedCount     int
}

func (a *qualityAccumulator) fold(resp *model.Response, questionCount int) {
	if resp.Metadata.CompletionTime != nil && questionCount > 0 {
		a.speedSum += float64(*resp.Metadata.CompletionTime) / float64(questionCount)
		a.speedCount++
	}
	if resp.QualityChecks == nil {
		return
	}
	a.assessed++
	if resp.QualityChecks.IsSuspicious {
		a.suspicious++
	}
	for _, flag := range resp.QualityChecks.Flags {
		if flag.Type == model.FlagStraightLining {
			a.straightLining++
			break
		}
	}
}

func (a *qualityAccumulator) result() model.QualityMetrics {
	m := model.QualityMetrics{SuspiciousResponses: a.suspicious}
	if a.speedCount > 0 {
		m.AverageSecondsPerQ = round2(a.speedSum / float64(a.speedCount))
	}
	if a.assessed > 0 {
		m.StraightLiningRate = roundPercent(a.straightLining, a.assessed)
	}
	return m
}

// ---- 数值工具 ----

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundPercent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}
