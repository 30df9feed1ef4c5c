package engine

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"formpulse_backend/internal/model"
)

// ValidationResult 单题答案校验结果。Errors 收集全部违反的规则，
// 不短路，调用方据此渲染整组行内提示。
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors,omitempty"`
}

// FileAnswer 文件题答案的结构化视图
type FileAnswer struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType,omitempty"`
}

// ValidateAnswer 按题目类型与校验规则检查一个原始答案。
// 答案进入 AnswerSet 之前必须通过本校验。
func ValidateAnswer(q *model.Question, value interface{}) ValidationResult {
	var errs []string

	if q.Required && ValueEmpty(value) {
		return ValidationResult{IsValid: false, Errors: []string{"required"}}
	}
	if ValueEmpty(value) {
		return ValidationResult{IsValid: true}
	}

	rules := q.Validation

	switch {
	case q.Type.IsNumeric():
		errs = append(errs, validateNumeric(value, rules)...)
	case q.Type.IsText(), q.Type == model.QuestionDemographic:
		errs = append(errs, validatePattern(cast.ToString(value), rules)...)
	case q.Type == model.QuestionFileUpload:
		errs = append(errs, validateFile(value, rules)...)
	default:
		// 其余类型透传，仅当声明了 pattern 时检查
		errs = append(errs, validatePattern(cast.ToString(value), rules)...)
	}

	if len(errs) > 0 {
		if rules != nil && rules.CustomError != "" {
			errs = append(errs, rules.CustomError)
		}
		return ValidationResult{IsValid: false, Errors: errs}
	}
	return ValidationResult{IsValid: true}
}

func validateNumeric(value interface{}, rules *model.ValidationRules) []string {
	n, err := cast.ToFloat64E(value)
	if err != nil {
		return []string{"value is not numeric"}
	}

	var errs []string
	if rules != nil && rules.Min != nil && n < *rules.Min {
		errs = append(errs, fmt.Sprintf("value %v is below minimum %v", n, *rules.Min))
	}
	if rules != nil && rules.Max != nil && n > *rules.Max {
		errs = append(errs, fmt.Sprintf("value %v is above maximum %v", n, *rules.Max))
	}
	return errs
}

func validatePattern(s string, rules *model.ValidationRules) []string {
	if rules == nil || rules.Pattern == "" {
		return nil
	}
	re, err := regexp.Compile(rules.Pattern)
	if err != nil {
		// 作者写错的正则不应拦住受访者
		return nil
	}
	if !re.MatchString(s) {
		return []string{"value does not match required pattern"}
	}
	return nil
}

func validateFile(value interface{}, rules *model.ValidationRules) []string {
	file := toFileAnswer(value)
	if file == nil {
		return []string{"invalid file answer"}
	}

	var errs []string
	if rules != nil && len(rules.FileTypes) > 0 && !fileTypeAllowed(file, rules.FileTypes) {
		errs = append(errs, "file type not allowed")
	}
	if rules != nil && rules.MaxFileSize > 0 && file.Size > rules.MaxFileSize {
		errs = append(errs, fmt.Sprintf("file exceeds maximum size of %d bytes", rules.MaxFileSize))
	}
	return errs
}

func fileTypeAllowed(file *FileAnswer, allowed []string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(file.Filename), "."))
	mime := strings.ToLower(file.MimeType)
	for _, t := range allowed {
		t = strings.ToLower(strings.TrimPrefix(t, "."))
		if t == ext || t == mime {
			return true
		}
	}
	return false
}

func toFileAnswer(value interface{}) *FileAnswer {
	switch v := value.(type) {
	case FileAnswer:
		return &v
	case *FileAnswer:
		return v
	case map[string]interface{}:
		return &FileAnswer{
			Filename: cast.ToString(v["filename"]),
			Size:     cast.ToInt64(v["size"]),
			MimeType: cast.ToString(v["mimeType"]),
		}
	}
	return nil
}
