package repository

import (
	"formpulse_backend/internal/model"

	"gorm.io/gorm"
)

type ResponseRepository struct {
	DB *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: db}
}

func (r *ResponseRepository) Create(resp *model.Response) error {
	return r.DB.Create(resp).Error
}

func (r *ResponseRepository) FindByID(id string) (*model.Response, error) {
	var resp model.Response
	err := r.DB.Where("id = ?", id).First(&resp).Error
	return &resp, err
}

func (r *ResponseRepository) Update(resp *model.Response) error {
	return r.DB.Save(resp).Error
}

func (r *ResponseRepository) List(questionnaireID, status string, page, limit int) ([]model.Response, int64, error) {
	var rs []model.Response
	var total int64
	query := r.DB.Model(&model.Response{}).Where("questionnaire_id = ?", questionnaireID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&rs).Error
	return rs, total, err
}

// ListForAggregation 聚合用的全量拉取，按时间窗口过滤、创建时间升序保证批次顺序稳定
func (r *ResponseRepository) ListForAggregation(questionnaireID string, dateRange model.DateRange) ([]model.Response, error) {
	var rs []model.Response
	query := r.DB.Where("questionnaire_id = ?", questionnaireID)
	if !dateRange.Start.IsZero() {
		query = query.Where("created_at >= ?", dateRange.Start)
	}
	if !dateRange.End.IsZero() {
		query = query.Where("created_at <= ?", dateRange.End)
	}
	err := query.Order("created_at asc").Find(&rs).Error
	return rs, err
}

func (r *ResponseRepository) CountByStatus(questionnaireID, status string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Response{}).
		Where("questionnaire_id = ? AND status = ?", questionnaireID, status).
		Count(&count).Error
	return count, err
}
