package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formpulse_backend/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func TestValidateAnswerRequired(t *testing.T) {
	q := &model.Question{ID: "q1", Type: model.QuestionTextShort, Required: true}

	result := ValidateAnswer(q, "")
	require.False(t, result.IsValid)
	assert.Equal(t, []string{"required"}, result.Errors)

	assert.True(t, ValidateAnswer(q, "something").IsValid)
}

func TestValidateAnswerOptionalEmptyPasses(t *testing.T) {
	q := &model.Question{ID: "q1", Type: model.QuestionRating, Validation: &model.ValidationRules{Min: floatPtr(1), Max: floatPtr(5)}}
	assert.True(t, ValidateAnswer(q, nil).IsValid)
}

func TestValidateAnswerNumericBounds(t *testing.T) {
	q := &model.Question{ID: "q1", Type: model.QuestionScale, Validation: &model.ValidationRules{Min: floatPtr(1), Max: floatPtr(10)}}

	tests := []struct {
		name  string
		value interface{}
		valid bool
	}{
		{"within bounds", 5, true},
		{"at lower bound", 1, true},
		{"at upper bound", 10, true},
		{"below minimum", 0, false},
		{"above maximum", 11, false},
		{"not numeric", "loud", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateAnswer(q, tt.value).IsValid)
		})
	}
}

func TestValidateAnswerPattern(t *testing.T) {
	q := &model.Question{ID: "q1", Type: model.QuestionTextShort, Validation: &model.ValidationRules{Pattern: `^\d{6}$`}}

	assert.True(t, ValidateAnswer(q, "123456").IsValid)
	assert.False(t, ValidateAnswer(q, "abc").IsValid)

	// 作者写错的正则不拦截答案
	broken := &model.Question{ID: "q2", Type: model.QuestionTextShort, Validation: &model.ValidationRules{Pattern: `([`}}
	assert.True(t, ValidateAnswer(broken, "anything").IsValid)
}

func TestValidateAnswerFile(t *testing.T) {
	q := &model.Question{ID: "q1", Type: model.QuestionFileUpload, Validation: &model.ValidationRules{
		FileTypes:   []string{"pdf", "png"},
		MaxFileSize: 1024,
	}}

	assert.True(t, ValidateAnswer(q, FileAnswer{Filename: "report.pdf", Size: 512}).IsValid)
	assert.True(t, ValidateAnswer(q, map[string]interface{}{"filename": "img.png", "size": 100}).IsValid)

	result := ValidateAnswer(q, FileAnswer{Filename: "movie.avi", Size: 4096})
	require.False(t, result.IsValid)
	// 文件类型与大小的违规同时上报，不短路
	assert.Len(t, result.Errors, 2)
}

func TestValidateAnswerAccumulatesCustomError(t *testing.T) {
	q := &model.Question{ID: "q1", Type: model.QuestionRating, Validation: &model.ValidationRules{
		Max:         floatPtr(5),
		CustomError: "rating must be between 1 and 5",
	}}

	result := ValidateAnswer(q, 9)
	require.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "rating must be between 1 and 5")
}
