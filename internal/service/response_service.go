package service

import (
	"context"
	"io"
	"path"
	"time"

	"formpulse_backend/internal/engine"
	"formpulse_backend/internal/model"
	"formpulse_backend/internal/repository"
	"formpulse_backend/internal/util"
	"formpulse_backend/pkg/logger"
	"formpulse_backend/pkg/monitoring"

	"go.uber.org/zap"
)

type ResponseService struct {
	Repo              *repository.ResponseRepository
	QuestionnaireRepo *repository.QuestionnaireRepository
	Storage           StorageProvider
	Thresholds        engine.QualityThresholds
}

func NewResponseService(repo *repository.ResponseRepository, qRepo *repository.QuestionnaireRepository, storage StorageProvider, thresholds engine.QualityThresholds) *ResponseService {
	return &ResponseService{Repo: repo, QuestionnaireRepo: qRepo, Storage: storage, Thresholds: thresholds}
}

type StartResponseRequest struct {
	RespondentID string                 `json:"respondentId"`
	Metadata     model.ResponseMetadata `json:"metadata"`
}

// Start 开始一次作答会话，返回初始的逻辑求值状态
func (s *ResponseService) Start(questionnaireID string, req StartResponseRequest) (*model.Response, engine.EvaluationState, error) {
	q, err := s.QuestionnaireRepo.FindByID(questionnaireID)
	if err != nil {
		return nil, nil, err
	}
	if q.Status != model.QuestionnaireStatusPublished {
		return nil, nil, util.ErrQuestionnaireNotOpen
	}

	resp := &model.Response{
		QuestionnaireID: q.ID,
		RespondentID:    req.RespondentID,
		Status:          model.ResponseStatusInProgress,
		Answers:         []model.Answer{},
		Metadata:        req.Metadata,
	}
	if resp.Metadata.StartedAt.IsZero() {
		resp.Metadata.StartedAt = time.Now()
	}
	if err := s.Repo.Create(resp); err != nil {
		return nil, nil, err
	}

	state := engine.Evaluate(q, resp.AnswerSet())
	monitoring.LogicEvaluations.Inc()
	return resp, state, nil
}

type SubmitAnswerRequest struct {
	QuestionID string      `json:"questionId" binding:"required"`
	Value      interface{} `json:"value"`
	TimeSpent  int         `json:"timeSpentSeconds"`
}

type AnswerOutcome struct {
	Response   *model.Response         `json:"response"`
	State      engine.EvaluationState  `json:"state"`
	Validation engine.ValidationResult `json:"validation"`
}

// Answer 记录单题答案。先对当前答案集求值，隐藏或被跳过的题目拒绝作答；
// 同一题重复作答时后写覆盖先写。
func (s *ResponseService) Answer(responseID string, req SubmitAnswerRequest) (*AnswerOutcome, error) {
	resp, err := s.Repo.FindByID(responseID)
	if err != nil {
		return nil, err
	}
	if resp.Status != model.ResponseStatusInProgress {
		return nil, util.ErrResponseAlreadyClosed
	}

	q, err := s.QuestionnaireRepo.FindByID(resp.QuestionnaireID)
	if err != nil {
		return nil, err
	}
	question := q.QuestionByID(req.QuestionID)
	if question == nil {
		return nil, util.ErrQuestionNotFound
	}

	state := engine.Evaluate(q, resp.AnswerSet())
	monitoring.LogicEvaluations.Inc()
	if qs, ok := state[req.QuestionID]; ok && (!qs.Visible || !qs.Reachable) {
		return nil, util.ErrQuestionNotAnswerable
	}

	// 必填状态以当前求值结果为准，而不是静态声明
	effective := *question
	if qs, ok := state[req.QuestionID]; ok {
		effective.Required = qs.Required
	}
	validation := engine.ValidateAnswer(&effective, req.Value)
	if !validation.IsValid {
		return &AnswerOutcome{Response: resp, State: state, Validation: validation}, util.ErrAnswerInvalid
	}

	answer := model.Answer{
		QuestionID: req.QuestionID,
		Type:       question.Type,
		Value:      req.Value,
		TimeSpent:  req.TimeSpent,
		AnsweredAt: time.Now(),
	}
	replaced := false
	for i := range resp.Answers {
		if resp.Answers[i].QuestionID == req.QuestionID {
			resp.Answers[i] = answer
			replaced = true
			break
		}
	}
	if !replaced {
		resp.Answers = append(resp.Answers, answer)
	}

	if err := s.Repo.Update(resp); err != nil {
		return nil, err
	}

	// 新答案可能改变后续题目的可见性，返回重新求值的状态
	state = engine.Evaluate(q, resp.AnswerSet())
	monitoring.LogicEvaluations.Inc()
	return &AnswerOutcome{Response: resp, State: state, Validation: validation}, nil
}

type UploadFileRequest struct {
	QuestionID  string
	Filename    string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// UploadFile 接收 file_upload 题型的附件。先按题目规则校验文件名与大小，
// 通过后写入存储，并把含访问 URL 的文件描述作为该题答案记录下来。
func (s *ResponseService) UploadFile(ctx context.Context, responseID string, req UploadFileRequest) (*AnswerOutcome, error) {
	resp, err := s.Repo.FindByID(responseID)
	if err != nil {
		return nil, err
	}
	if resp.Status != model.ResponseStatusInProgress {
		return nil, util.ErrResponseAlreadyClosed
	}

	q, err := s.QuestionnaireRepo.FindByID(resp.QuestionnaireID)
	if err != nil {
		return nil, err
	}
	question := q.QuestionByID(req.QuestionID)
	if question == nil {
		return nil, util.ErrQuestionNotFound
	}
	if question.Type != model.QuestionFileUpload {
		return nil, util.ErrQuestionNotFileUpload
	}

	state := engine.Evaluate(q, resp.AnswerSet())
	monitoring.LogicEvaluations.Inc()
	if qs, ok := state[req.QuestionID]; ok && (!qs.Visible || !qs.Reachable) {
		return nil, util.ErrQuestionNotAnswerable
	}

	value := map[string]interface{}{
		"filename": req.Filename,
		"size":     req.Size,
		"mimeType": req.ContentType,
	}
	validation := engine.ValidateAnswer(question, value)
	if !validation.IsValid {
		return &AnswerOutcome{Response: resp, State: state, Validation: validation}, util.ErrAnswerInvalid
	}

	object := "responses/" + resp.ID + "/" +
		time.Now().Format("20060102150405") + "_" + model.GenerateUUID()[:8] + path.Ext(req.Filename)
	url, err := s.Storage.Upload(ctx, object, req.Reader, req.Size, req.ContentType)
	if err != nil {
		return nil, err
	}
	value["url"] = url

	answer := model.Answer{
		QuestionID: req.QuestionID,
		Type:       question.Type,
		Value:      value,
		AnsweredAt: time.Now(),
	}
	replaced := false
	for i := range resp.Answers {
		if resp.Answers[i].QuestionID == req.QuestionID {
			resp.Answers[i] = answer
			replaced = true
			break
		}
	}
	if !replaced {
		resp.Answers = append(resp.Answers, answer)
	}

	if err := s.Repo.Update(resp); err != nil {
		return nil, err
	}

	state = engine.Evaluate(q, resp.AnswerSet())
	monitoring.LogicEvaluations.Inc()
	return &AnswerOutcome{Response: resp, State: state, Validation: validation}, nil
}

type SubmitOutcome struct {
	Response *model.Response        `json:"response"`
	Missing  []string               `json:"missing,omitempty"`
	State    engine.EvaluationState `json:"state,omitempty"`
}

// Submit 提交整份响应。最终求值确定生效的必填集合，缺答则整体拒绝；
// 通过后按需评分、评估质量并落库。
func (s *ResponseService) Submit(responseID string) (*SubmitOutcome, error) {
	resp, err := s.Repo.FindByID(responseID)
	if err != nil {
		return nil, err
	}
	if resp.Status != model.ResponseStatusInProgress {
		return nil, util.ErrResponseAlreadyClosed
	}

	q, err := s.QuestionnaireRepo.FindByID(resp.QuestionnaireID)
	if err != nil {
		return nil, err
	}

	answers := resp.AnswerSet()
	state := engine.Evaluate(q, answers)
	monitoring.LogicEvaluations.Inc()

	var missing []string
	for i := range q.Questions {
		id := q.Questions[i].ID
		qs := state[id]
		if !qs.Visible || !qs.Reachable || !qs.Required {
			continue
		}
		if ans, ok := answers[id]; !ok || engine.ValueEmpty(ans.Value) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &SubmitOutcome{Response: resp, Missing: missing, State: state}, util.ErrRequiredAnswersMissing
	}

	now := time.Now()
	resp.Status = model.ResponseStatusCompleted
	resp.Metadata.SubmittedAt = &now
	if resp.Metadata.CompletionTime == nil && !resp.Metadata.StartedAt.IsZero() {
		seconds := int(now.Sub(resp.Metadata.StartedAt).Seconds())
		resp.Metadata.CompletionTime = &seconds
	}

	if q.IsQuiz() {
		scoring := engine.Score(q, answers)
		resp.Scoring = &scoring
	}

	assessment := engine.AssessQuality(resp, q, s.Thresholds)
	resp.QualityChecks = &assessment
	if assessment.IsSuspicious {
		monitoring.SuspiciousResponses.Inc()
		logger.Log.Warn("suspicious response detected",
			zap.String("responseId", resp.ID),
			zap.String("questionnaireId", q.ID),
			zap.Int("qualityScore", assessment.Score))
	}

	if err := s.Repo.Update(resp); err != nil {
		return nil, err
	}
	return &SubmitOutcome{Response: resp}, nil
}

// ReassessQuality 对已完成的响应重跑质量启发式，整体替换旧标记
func (s *ResponseService) ReassessQuality(responseID string) (*model.Response, error) {
	resp, err := s.Repo.FindByID(responseID)
	if err != nil {
		return nil, err
	}
	q, err := s.QuestionnaireRepo.FindByID(resp.QuestionnaireID)
	if err != nil {
		return nil, err
	}

	assessment := engine.AssessQuality(resp, q, s.Thresholds)
	resp.QualityChecks = &assessment
	if err := s.Repo.Update(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ResponseService) Abandon(responseID string) error {
	resp, err := s.Repo.FindByID(responseID)
	if err != nil {
		return err
	}
	if resp.Status != model.ResponseStatusInProgress {
		return util.ErrResponseAlreadyClosed
	}
	resp.Status = model.ResponseStatusAbandoned
	return s.Repo.Update(resp)
}

func (s *ResponseService) Get(responseID string) (*model.Response, error) {
	return s.Repo.FindByID(responseID)
}

func (s *ResponseService) List(questionnaireID, status string, page, limit int) ([]model.Response, int64, error) {
	return s.Repo.List(questionnaireID, status, page, limit)
}
