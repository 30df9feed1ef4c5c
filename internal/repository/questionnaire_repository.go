package repository

import (
	"formpulse_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionnaireRepository struct {
	DB *gorm.DB
}

func NewQuestionnaireRepository(db *gorm.DB) *QuestionnaireRepository {
	return &QuestionnaireRepository{DB: db}
}

func (r *QuestionnaireRepository) Create(q *model.Questionnaire) error {
	return r.DB.Create(q).Error
}

func (r *QuestionnaireRepository) FindByID(id string) (*model.Questionnaire, error) {
	var q model.Questionnaire
	err := r.DB.Where("id = ?", id).First(&q).Error
	return &q, err
}

func (r *QuestionnaireRepository) Update(q *model.Questionnaire) error {
	return r.DB.Save(q).Error
}

func (r *QuestionnaireRepository) Delete(id string) error {
	return r.DB.Where("id = ?", id).Delete(&model.Questionnaire{}).Error
}

func (r *QuestionnaireRepository) List(workspaceID, status string, page, limit int) ([]model.Questionnaire, int64, error) {
	var qs []model.Questionnaire
	var total int64
	query := r.DB.Model(&model.Questionnaire{})
	if workspaceID != "" {
		query = query.Where("workspace_id = ?", workspaceID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&qs).Error
	return qs, total, err
}

func (r *QuestionnaireRepository) UpdateStatus(id, status string) error {
	return r.DB.Model(&model.Questionnaire{}).Where("id = ?", id).Update("status", status).Error
}
