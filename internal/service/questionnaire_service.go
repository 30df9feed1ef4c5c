package service

import (
	"time"

	"formpulse_backend/internal/engine"
	"formpulse_backend/internal/model"
	"formpulse_backend/internal/repository"
	"formpulse_backend/internal/util"
	"formpulse_backend/pkg/logger"

	"go.uber.org/zap"
)

type QuestionnaireService struct {
	Repo *repository.QuestionnaireRepository
}

func NewQuestionnaireService(repo *repository.QuestionnaireRepository) *QuestionnaireService {
	return &QuestionnaireService{Repo: repo}
}

type QuestionnaireRequest struct {
	WorkspaceID string                      `json:"workspaceId"`
	CreatorID   string                      `json:"creatorId"`
	Title       string                      `json:"title" binding:"required"`
	Description string                      `json:"description"`
	Category    string                      `json:"category"`
	Questions   []model.Question            `json:"questions"`
	Settings    model.QuestionnaireSettings `json:"settings"`
}

func (s *QuestionnaireService) Create(req QuestionnaireRequest) (*model.Questionnaire, []engine.SchemaError, error) {
	q := &model.Questionnaire{
		WorkspaceID: req.WorkspaceID,
		CreatorID:   req.CreatorID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      model.QuestionnaireStatusDraft,
		Questions:   req.Questions,
		Settings:    req.Settings,
	}
	if q.Category == "" {
		q.Category = model.CategorySurvey
	}

	// 草稿允许结构不完整，但引用性错误尽早暴露
	if errs := engine.ValidateSchema(q); len(errs) > 0 {
		return nil, errs, util.ErrSchemaInvalid
	}

	if err := s.Repo.Create(q); err != nil {
		return nil, nil, err
	}
	return q, nil, nil
}

func (s *QuestionnaireService) Get(id string) (*model.Questionnaire, error) {
	return s.Repo.FindByID(id)
}

func (s *QuestionnaireService) List(workspaceID, status string, page, limit int) ([]model.Questionnaire, int64, error) {
	return s.Repo.List(workspaceID, status, page, limit)
}

func (s *QuestionnaireService) Update(id string, req QuestionnaireRequest) (*model.Questionnaire, []engine.SchemaError, error) {
	q, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, nil, err
	}

	q.Title = req.Title
	q.Description = req.Description
	if req.Category != "" {
		q.Category = req.Category
	}
	q.Questions = req.Questions
	q.Settings = req.Settings

	if errs := engine.ValidateSchema(q); len(errs) > 0 {
		return nil, errs, util.ErrSchemaInvalid
	}

	if err := s.Repo.Update(q); err != nil {
		return nil, nil, err
	}
	return q, nil, nil
}

func (s *QuestionnaireService) Delete(id string) error {
	return s.Repo.Delete(id)
}

// Publish 发布前必须通过完整的结构校验，不合法的问卷拒绝上线
func (s *QuestionnaireService) Publish(id string) (*model.Questionnaire, []engine.SchemaError, error) {
	q, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, nil, err
	}

	if errs := engine.ValidateSchema(q); len(errs) > 0 {
		logger.Log.Warn("questionnaire failed schema validation on publish",
			zap.String("questionnaireId", id),
			zap.Int("errors", len(errs)))
		return nil, errs, util.ErrSchemaInvalid
	}

	now := time.Now()
	q.Status = model.QuestionnaireStatusPublished
	q.PublishedAt = &now
	if err := s.Repo.Update(q); err != nil {
		return nil, nil, err
	}
	return q, nil, nil
}

func (s *QuestionnaireService) Close(id string) error {
	return s.Repo.UpdateStatus(id, model.QuestionnaireStatusClosed)
}

// ValidateSchema 不落库的预检，编辑器保存前调用
func (s *QuestionnaireService) ValidateSchema(q *model.Questionnaire) []engine.SchemaError {
	return engine.ValidateSchema(q)
}
