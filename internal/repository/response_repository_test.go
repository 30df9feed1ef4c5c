package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"formpulse_backend/internal/model"
)

func testDB(t *testing.T) *gorm.DB {
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
	return db
}

func TestResponseRepositoryRoundTrip(t *testing.T) {
	repo := NewResponseRepository(testDB(t))

	resp := &model.Response{
		QuestionnaireID: "qn-1",
		Status:          model.ResponseStatusInProgress,
		Answers: []model.Answer{
			{QuestionID: "q1", Value: "yes"},
			{QuestionID: "q2", Value: []interface{}{"a", "b"}},
		},
		Metadata: model.ResponseMetadata{SessionID: "sess-1", Language: "en"},
	}
	require.NoError(t, repo.Create(resp))
	require.NotEmpty(t, resp.ID)

	got, err := repo.FindByID(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "qn-1", got.QuestionnaireID)
	assert.Len(t, got.Answers, 2)
	assert.Equal(t, "yes", got.AnswerSet()["q1"].Value)
	assert.Equal(t, "sess-1", got.Metadata.SessionID)
}

func TestResponseRepositoryUpdatePersistsDerivedResults(t *testing.T) {
	repo := NewResponseRepository(testDB(t))

	resp := &model.Response{QuestionnaireID: "qn-1", Status: model.ResponseStatusInProgress}
	require.NoError(t, repo.Create(resp))

	resp.Status = model.ResponseStatusCompleted
	resp.Scoring = &model.ScoreResult{TotalScore: 10, MaxScore: 20, Percentage: 50, Grade: "F"}
	resp.QualityChecks = &model.QualityAssessment{Score: 70, Flags: []model.QualityFlag{}}
	require.NoError(t, repo.Update(resp))

	got, err := repo.FindByID(resp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Scoring)
	assert.Equal(t, 10, got.Scoring.TotalScore)
	require.NotNil(t, got.QualityChecks)
	assert.Equal(t, 70, got.QualityChecks.Score)
}

func TestResponseRepositoryListForAggregation(t *testing.T) {
	repo := NewResponseRepository(testDB(t))

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		resp := &model.Response{QuestionnaireID: "qn-1", Status: model.ResponseStatusCompleted}
		resp.CreatedAt = base.AddDate(0, 0, i)
		require.NoError(t, repo.Create(resp))
	}
	other := &model.Response{QuestionnaireID: "qn-2", Status: model.ResponseStatusCompleted}
	require.NoError(t, repo.Create(other))

	all, err := repo.ListForAggregation("qn-1", model.DateRange{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	windowed, err := repo.ListForAggregation("qn-1", model.DateRange{
		Start: base.AddDate(0, 0, 1),
		End:   base.AddDate(0, 0, 2),
	})
	require.NoError(t, err)
	assert.Len(t, windowed, 2)
}

func TestResponseRepositoryCountByStatus(t *testing.T) {
	repo := NewResponseRepository(testDB(t))

	for _, status := range []string{
		model.ResponseStatusCompleted,
		model.ResponseStatusCompleted,
		model.ResponseStatusAbandoned,
	} {
		require.NoError(t, repo.Create(&model.Response{QuestionnaireID: "qn-1", Status: status}))
	}

	completed, err := repo.CountByStatus("qn-1", model.ResponseStatusCompleted)
	require.NoError(t, err)
	assert.EqualValues(t, 2, completed)
}

func TestQuestionnaireRepositorySchemaColumn(t *testing.T) {
	repo := NewQuestionnaireRepository(testDB(t))

	q := &model.Questionnaire{
		Title:    "满意度调查",
		Category: model.CategorySurvey,
		Status:   model.QuestionnaireStatusDraft,
		Questions: []model.Question{
			{ID: "q1", Type: model.QuestionRating, Title: "整体满意度", Required: true},
		},
	}
	require.NoError(t, repo.Create(q))

	got, err := repo.FindByID(q.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, model.QuestionRating, got.Questions[0].Type)
	assert.True(t, got.Questions[0].Required)

	require.NoError(t, repo.UpdateStatus(q.ID, model.QuestionnaireStatusPublished))
	got, err = repo.FindByID(q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuestionnaireStatusPublished, got.Status)
}
