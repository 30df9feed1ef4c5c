package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"formpulse_backend/internal/engine"
	"formpulse_backend/internal/model"
	"formpulse_backend/internal/repository"
	"formpulse_backend/pkg/logger"
	"formpulse_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type AnalyticsService struct {
	ResponseRepo      *repository.ResponseRepository
	QuestionnaireRepo *repository.QuestionnaireRepository
	Redis             *redis.Client
	CacheTTL          time.Duration
	AggregateOpts     engine.AggregateOptions

	// 可选的外部 NLP 协作方，未配置时文本题不带情感分析
	InsightProvider engine.TextInsightProvider
}

func NewAnalyticsService(
	responseRepo *repository.ResponseRepository,
	questionnaireRepo *repository.QuestionnaireRepository,
	rdb *redis.Client,
	cacheTTL time.Duration,
	opts engine.AggregateOptions,
) *AnalyticsService {
	return &AnalyticsService{
		ResponseRepo:      responseRepo,
		QuestionnaireRepo: questionnaireRepo,
		Redis:             rdb,
		CacheTTL:          cacheTTL,
		AggregateOpts:     opts,
		InsightProvider:   engine.NoopInsightProvider{},
	}
}

func reportCacheKey(questionnaireID string, dateRange model.DateRange) string {
	return fmt.Sprintf("analytics:report:%s:%d:%d",
		questionnaireID, dateRange.Start.Unix(), dateRange.End.Unix())
}

// Report 生成聚合报表。报表是响应批次的确定性函数，可以安全缓存；
// 缓存只是加速，丢失后随时重算。
func (s *AnalyticsService) Report(ctx context.Context, questionnaireID string, dateRange model.DateRange) (*model.AggregateReport, error) {
	key := reportCacheKey(questionnaireID, dateRange)

	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, key).Result(); err == nil {
			var report model.AggregateReport
			if err := json.Unmarshal([]byte(cached), &report); err == nil {
				monitoring.ReportsGenerated.WithLabelValues("hit").Inc()
				return &report, nil
			}
		}
	}

	q, err := s.QuestionnaireRepo.FindByID(questionnaireID)
	if err != nil {
		return nil, err
	}
	responses, err := s.ResponseRepo.ListForAggregation(questionnaireID, dateRange)
	if err != nil {
		return nil, err
	}

	report := engine.AggregateWith(q, responses, dateRange, s.AggregateOpts)
	if report.MalformedRecords > 0 {
		logger.Log.Warn("aggregation skipped malformed records",
			zap.String("questionnaireId", questionnaireID),
			zap.Int("skipped", report.MalformedRecords))
	}

	s.attachSentiment(ctx, q, responses, &report)
	monitoring.ReportsGenerated.WithLabelValues("miss").Inc()

	if s.Redis != nil {
		if payload, err := json.Marshal(report); err == nil {
			if err := s.Redis.Set(ctx, key, payload, s.CacheTTL).Err(); err != nil {
				logger.Log.Warn("failed to cache report", zap.Error(err))
			}
		}
	}
	return &report, nil
}

// attachSentiment 文本题的情感分析委托给外部协作方，失败只记日志不影响报表
func (s *AnalyticsService) attachSentiment(ctx context.Context, q *model.Questionnaire, responses []model.Response, report *model.AggregateReport) {
	if s.InsightProvider == nil {
		return
	}
	for i := range report.Questions {
		qa := &report.Questions[i]
		if qa.Text == nil || qa.Text.ResponseCount == 0 {
			continue
		}
		texts := collectTexts(qa.QuestionID, responses)
		sentiment, err := s.InsightProvider.AnalyzeTexts(ctx, q.ID, texts)
		if err != nil {
			logger.Log.Warn("sentiment analysis failed",
				zap.String("questionId", qa.QuestionID), zap.Error(err))
			continue
		}
		qa.Text.Sentiment = sentiment
	}
}

func collectTexts(questionID string, responses []model.Response) []string {
	var texts []string
	for i := range responses {
		for _, ans := range responses[i].Answers {
			if ans.QuestionID == questionID {
				if text, ok := ans.Value.(string); ok && text != "" {
					texts = append(texts, text)
				}
			}
		}
	}
	return texts
}

// Insights 基于报表生成结论与建议
func (s *AnalyticsService) Insights(ctx context.Context, questionnaireID string, dateRange model.DateRange) (*model.Insights, error) {
	report, err := s.Report(ctx, questionnaireID, dateRange)
	if err != nil {
		return nil, err
	}
	insights := engine.GenerateInsights(report)
	return &insights, nil
}

// InvalidateCache 新响应提交后调用，清掉全窗口报表缓存
func (s *AnalyticsService) InvalidateCache(ctx context.Context, questionnaireID string) {
	if s.Redis == nil {
		return
	}
	pattern := fmt.Sprintf("analytics:report:%s:*", questionnaireID)
	iter := s.Redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		s.Redis.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Log.Warn("failed to invalidate report cache", zap.Error(err))
	}
}
