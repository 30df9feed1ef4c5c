package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"formpulse_backend/internal/config"
	"formpulse_backend/internal/engine"
	"formpulse_backend/internal/model"
	"formpulse_backend/internal/repository"
	"formpulse_backend/internal/util"
	pkglogger "formpulse_backend/pkg/logger"

	"go.uber.org/zap"
)

func init() {
	// 服务层在可疑响应等路径上写日志
	pkglogger.Log = zap.NewNop()
}

func newTestService(t *testing.T) (*ResponseService, *QuestionnaireService) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Questionnaire{}, &model.Response{}))
	t.Cleanup(func() {
		db.Exec("DELETE FROM responses")
		db.Exec("DELETE FROM questionnaires")
	})

	qRepo := repository.NewQuestionnaireRepository(db)
	rRepo := repository.NewResponseRepository(db)
	storage := &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: t.TempDir()}}
	return NewResponseService(rRepo, qRepo, storage, engine.DefaultThresholds()),
		NewQuestionnaireService(qRepo)
}

func publishedQuestionnaire(t *testing.T, qs *QuestionnaireService, category string, questions []model.Question) *model.Questionnaire {
	t.Helper()
	q, schemaErrs, err := qs.Create(QuestionnaireRequest{
		Title:     "测试问卷",
		Category:  category,
		Questions: questions,
	})
	require.NoError(t, err)
	require.Empty(t, schemaErrs)

	published, schemaErrs, err := qs.Publish(q.ID)
	require.NoError(t, err)
	require.Empty(t, schemaErrs)
	return published
}

func TestStartRejectsDraftQuestionnaire(t *testing.T) {
	rs, qs := newTestService(t)

	q, _, err := qs.Create(QuestionnaireRequest{
		Title:     "草稿",
		Questions: []model.Question{{ID: "q1", Type: model.QuestionTextShort}},
	})
	require.NoError(t, err)

	_, _, err = rs.Start(q.ID, StartResponseRequest{})
	assert.ErrorIs(t, err, util.ErrQuestionnaireNotOpen)
}

func TestAnswerLifecycle(t *testing.T) {
	rs, qs := newTestService(t)
	q := publishedQuestionnaire(t, qs, model.CategorySurvey, []model.Question{
		{ID: "q1", Type: model.QuestionSingleChoice, Required: true, Options: []model.Option{
			{ID: "yes", Text: "Yes"}, {ID: "no", Text: "No"},
		}},
		{ID: "q2", Type: model.QuestionTextShort, Logic: []model.LogicRule{{
			Conditions: []model.Condition{{QuestionID: "q1", Operator: model.OpEquals, Value: "yes"}},
			Action:     model.ActionShow,
		}}},
	})

	resp, state, err := rs.Start(q.ID, StartResponseRequest{})
	require.NoError(t, err)
	assert.True(t, state["q1"].Visible)

	outcome, err := rs.Answer(resp.ID, SubmitAnswerRequest{QuestionID: "q1", Value: "yes"})
	require.NoError(t, err)
	assert.True(t, outcome.Validation.IsValid)
	// 答案改变了 q2 的可见性
	assert.True(t, outcome.State["q2"].Visible)

	// 重复作答覆盖旧值
	outcome, err = rs.Answer(resp.ID, SubmitAnswerRequest{QuestionID: "q1", Value: "no"})
	require.NoError(t, err)
	assert.Len(t, outcome.Response.Answers, 1)
	assert.Equal(t, "no", outcome.Response.Answers[0].Value)
}

func TestAnswerRejectsHiddenQuestion(t *testing.T) {
	rs, qs := newTestService(t)
	q := publishedQuestionnaire(t, qs, model.CategorySurvey, []model.Question{
		{ID: "q1", Type: model.QuestionSingleChoice, Options: []model.Option{
			{ID: "a", Text: "A"}, {ID: "b", Text: "B"},
		}},
		{ID: "q2", Type: model.QuestionTextShort, Logic: []model.LogicRule{{
			Conditions: []model.Condition{{QuestionID: "q1", Operator: model.OpEquals, Value: "a"}},
			Action:     model.ActionShow,
		}}},
	})

	resp, _, err := rs.Start(q.ID, StartResponseRequest{})
	require.NoError(t, err)

	// q1 未选 a，q2 处于隐藏状态
	_, err = rs.Answer(resp.ID, SubmitAnswerRequest{QuestionID: "q2", Value: "hello"})
	assert.ErrorIs(t, err, util.ErrQuestionNotAnswerable)
}

func TestSubmitRejectsMissingRequired(t *testing.T) {
	rs, qs := newTestService(t)
	q := publishedQuestionnaire(t, qs, model.CategorySurvey, []model.Question{
		{ID: "q1", Type: model.QuestionTextShort, Required: true},
		{ID: "q2", Type: model.QuestionTextShort},
	})

	resp, _, err := rs.Start(q.ID, StartResponseRequest{})
	require.NoError(t, err)

	outcome, err := rs.Submit(resp.ID)
	assert.ErrorIs(t, err, util.ErrRequiredAnswersMissing)
	assert.Equal(t, []string{"q1"}, outcome.Missing)

	// 缺答被拒后响应仍然可以继续作答
	_, err = rs.Answer(resp.ID, SubmitAnswerRequest{QuestionID: "q1", Value: "done"})
	require.NoError(t, err)
	outcome, err = rs.Submit(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResponseStatusCompleted, outcome.Response.Status)
	require.NotNil(t, outcome.Response.QualityChecks)
}

func TestSubmitScoresQuiz(t *testing.T) {
	rs, qs := newTestService(t)
	score := 10
	q := publishedQuestionnaire(t, qs, model.CategoryQuiz, []model.Question{
		{ID: "q1", Type: model.QuestionSingleChoice, Options: []model.Option{
			{ID: "right", Text: "Right", Score: &score},
			{ID: "wrong", Text: "Wrong"},
		}},
	})

	resp, _, err := rs.Start(q.ID, StartResponseRequest{})
	require.NoError(t, err)
	_, err = rs.Answer(resp.ID, SubmitAnswerRequest{QuestionID: "q1", Value: "right"})
	require.NoError(t, err)

	outcome, err := rs.Submit(resp.ID)
	require.NoError(t, err)
	require.NotNil(t, outcome.Response.Scoring)
	assert.Equal(t, 10, outcome.Response.Scoring.TotalScore)
	assert.Equal(t, 100, outcome.Response.Scoring.Percentage)
	assert.True(t, outcome.Response.Scoring.Passed)
}

func TestSubmitIsFinal(t *testing.T) {
	rs, qs := newTestService(t)
	q := publishedQuestionnaire(t, qs, model.CategorySurvey, []model.Question{
		{ID: "q1", Type: model.QuestionTextShort},
	})

	resp, _, err := rs.Start(q.ID, StartResponseRequest{})
	require.NoError(t, err)
	_, err = rs.Submit(resp.ID)
	require.NoError(t, err)

	_, err = rs.Answer(resp.ID, SubmitAnswerRequest{QuestionID: "q1", Value: "late"})
	assert.ErrorIs(t, err, util.ErrResponseAlreadyClosed)
	_, err = rs.Submit(resp.ID)
	assert.ErrorIs(t, err, util.ErrResponseAlreadyClosed)
	assert.ErrorIs(t, rs.Abandon(resp.ID), util.ErrResponseAlreadyClosed)
}

func TestReassessQualityReplacesFlags(t *testing.T) {
	rs, qs := newTestService(t)
	q := publishedQuestionnaire(t, qs, model.CategorySurvey, []model.Question{
		{ID: "q1", Type: model.QuestionTextShort},
	})

	resp, _, err := rs.Start(q.ID, StartResponseRequest{
		Metadata: model.ResponseMetadata{UserAgent: "my-crawler/1.0", StartedAt: time.Now()},
	})
	require.NoError(t, err)
	_, err = rs.Answer(resp.ID, SubmitAnswerRequest{QuestionID: "q1", Value: "hi"})
	require.NoError(t, err)
	outcome, err := rs.Submit(resp.ID)
	require.NoError(t, err)
	require.NotNil(t, outcome.Response.QualityChecks)
	assert.True(t, outcome.Response.QualityChecks.IsSuspicious)

	firstCheckedAt := outcome.Response.QualityChecks.CheckedAt
	reassessed, err := rs.ReassessQuality(resp.ID)
	require.NoError(t, err)
	assert.True(t, reassessed.QualityChecks.CheckedAt.After(firstCheckedAt) ||
		reassessed.QualityChecks.CheckedAt.Equal(firstCheckedAt))
	assert.True(t, reassessed.QualityChecks.IsSuspicious)
}

func TestPublishRejectsInvalidSchema(t *testing.T) {
	_, qs := newTestService(t)

	_, schemaErrs, err := qs.Create(QuestionnaireRequest{
		Title: "坏问卷",
		Questions: []model.Question{
			{ID: "q1", Type: model.QuestionTextShort, Logic: []model.LogicRule{{
				Conditions: []model.Condition{{QuestionID: "ghost", Operator: model.OpEquals, Value: 1}},
				Action:     model.ActionShow,
			}}},
		},
	})
	assert.ErrorIs(t, err, util.ErrSchemaInvalid)
	require.NotEmpty(t, schemaErrs)
	assert.Equal(t, engine.ErrDanglingReference, schemaErrs[0].Code)
}

func fileQuestionnaire(t *testing.T, qs *QuestionnaireService) *model.Questionnaire {
	t.Helper()
	return publishedQuestionnaire(t, qs, model.CategorySurvey, []model.Question{
		{ID: "doc", Type: model.QuestionFileUpload, Validation: &model.ValidationRules{
			FileTypes:   []string{"pdf"},
			MaxFileSize: 1 << 20,
		}},
		{ID: "note", Type: model.QuestionTextShort},
	})
}

func TestUploadFileStoresAnswer(t *testing.T) {
	rs, qs := newTestService(t)
	q := fileQuestionnaire(t, qs)

	resp, _, err := rs.Start(q.ID, StartResponseRequest{})
	require.NoError(t, err)

	content := "%PDF-1.4 fake"
	outcome, err := rs.UploadFile(context.Background(), resp.ID, UploadFileRequest{
		QuestionID:  "doc",
		Filename:    "resume.pdf",
		Size:        int64(len(content)),
		ContentType: "application/pdf",
		Reader:      strings.NewReader(content),
	})
	require.NoError(t, err)
	require.Len(t, outcome.Response.Answers, 1)

	value, ok := outcome.Response.Answers[0].Value.(map[string]interface{})
	require.True(t, ok)
	url, _ := value["url"].(string)
	require.True(t, strings.HasPrefix(url, "/uploads/responses/"+resp.ID+"/"))
	assert.True(t, strings.HasSuffix(url, ".pdf"))

	// 文件真实落盘
	local := rs.Storage.(*LocalStorageProvider)
	object := strings.TrimPrefix(url, "/uploads/")
	data, err := os.ReadFile(filepath.Join(local.Config.LocalPath, object))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	// 答案随响应持久化
	stored, err := rs.Get(resp.ID)
	require.NoError(t, err)
	require.Len(t, stored.Answers, 1)
	assert.Equal(t, "doc", stored.Answers[0].QuestionID)
}

func TestUploadFileRejectsDisallowedType(t *testing.T) {
	rs, qs := newTestService(t)
	q := fileQuestionnaire(t, qs)

	resp, _, err := rs.Start(q.ID, StartResponseRequest{})
	require.NoError(t, err)

	outcome, err := rs.UploadFile(context.Background(), resp.ID, UploadFileRequest{
		QuestionID:  "doc",
		Filename:    "payload.exe",
		Size:        64,
		ContentType: "application/octet-stream",
		Reader:      strings.NewReader("MZ"),
	})
	assert.ErrorIs(t, err, util.ErrAnswerInvalid)
	assert.Contains(t, outcome.Validation.Errors, "file type not allowed")

	// 被拒绝的文件不应留下答案
	stored, err := rs.Get(resp.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Answers)
}

func TestUploadFileRejectsNonFileQuestion(t *testing.T) {
	rs, qs := newTestService(t)
	q := fileQuestionnaire(t, qs)

	resp, _, err := rs.Start(q.ID, StartResponseRequest{})
	require.NoError(t, err)

	_, err = rs.UploadFile(context.Background(), resp.ID, UploadFileRequest{
		QuestionID:  "note",
		Filename:    "note.pdf",
		Size:        4,
		ContentType: "application/pdf",
		Reader:      strings.NewReader("text"),
	})
	assert.ErrorIs(t, err, util.ErrQuestionNotFileUpload)
}
