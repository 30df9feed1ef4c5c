package engine

import (
	"context"

	"formpulse_backend/internal/model"
)

// TextInsightProvider 情感/关键词分析的插入点。
// 核心不做自然语言建模，外部 NLP 协作方实现本接口后
// 即可接入聚合管线，其余部分无需改动。
type TextInsightProvider interface {
	AnalyzeTexts(ctx context.Context, questionnaireID string, texts []string) (*model.SentimentOverview, error)
}

// NoopInsightProvider 缺省实现，不产出情感数据
type NoopInsightProvider struct{}

func (NoopInsightProvider) AnalyzeTexts(ctx context.Context, questionnaireID string, texts []string) (*model.SentimentOverview, error) {
	return nil, nil
}
