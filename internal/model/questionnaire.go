package model

import "time"

// QuestionType 题目类型
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multi_choice"
	QuestionTextShort    QuestionType = "text_short"
	QuestionTextLong     QuestionType = "text_long"
	QuestionRating       QuestionType = "rating"
	QuestionScale        QuestionType = "scale"
	QuestionDate         QuestionType = "date"
	QuestionTime         QuestionType = "time"
	QuestionDateTime     QuestionType = "datetime"
	QuestionFileUpload   QuestionType = "file_upload"
	QuestionMatrix       QuestionType = "matrix"
	QuestionRanking      QuestionType = "ranking"
	QuestionDemographic  QuestionType = "demographic"
)

// IsChoice 选择类题目（按选项聚合统计）
func (t QuestionType) IsChoice() bool {
	return t == QuestionSingleChoice || t == QuestionMultiChoice
}

// IsNumeric 数值类题目（按分布聚合统计）
func (t QuestionType) IsNumeric() bool {
	return t == QuestionRating || t == QuestionScale
}

// IsText 文本类题目（按词频聚合统计）
func (t QuestionType) IsText() bool {
	return t == QuestionTextShort || t == QuestionTextLong
}

// ConditionOperator 逻辑条件运算符
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not_equals"
	OpContains    ConditionOperator = "contains"
	OpNotContains ConditionOperator = "not_contains"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpIsEmpty     ConditionOperator = "is_empty"
	OpIsNotEmpty  ConditionOperator = "is_not_empty"
)

// LogicAction 逻辑规则动作
type LogicAction string

const (
	ActionShow      LogicAction = "show"
	ActionHide      LogicAction = "hide"
	ActionSkipTo    LogicAction = "skip_to"
	ActionRequire   LogicAction = "require"
	ActionUnrequire LogicAction = "unrequire"
)

// LogicCombinator 条件组合方式，缺省为 and
type LogicCombinator string

const (
	CombinatorAnd LogicCombinator = "and"
	CombinatorOr  LogicCombinator = "or"
)

// Option 题目选项
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Score   *int   `json:"score,omitempty"` // 测验类问卷的分值，正确选项才有
	IsOther bool   `json:"isOther,omitempty"`
	Image   string `json:"image,omitempty"`
}

// ValidationRules 单题校验规则
type ValidationRules struct {
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	CustomError string   `json:"customError,omitempty"`
	FileTypes   []string `json:"fileTypes,omitempty"`
	MaxFileSize int64    `json:"maxFileSize,omitempty"` // bytes
}

// Condition 逻辑条件：引用另一题的答案
type Condition struct {
	QuestionID string            `json:"questionId"`
	Operator   ConditionOperator `json:"operator"`
	Value      interface{}       `json:"value,omitempty"`
}

// LogicRule 条件逻辑规则，挂在目标动作的所属题目上
type LogicRule struct {
	Conditions []Condition     `json:"conditions"`
	Combinator LogicCombinator `json:"combinator,omitempty"`
	Action     LogicAction     `json:"action"`
	Target     string          `json:"target,omitempty"` // 仅 skip_to 需要
}

// Question 题目定义，按类型携带不同字段
type Question struct {
	ID          string           `json:"id"`
	Type        QuestionType     `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	HelpText    string           `json:"helpText,omitempty"`
	Required    bool             `json:"required"`
	IsVisible   *bool            `json:"isVisible,omitempty"` // 缺省可见
	Options     []Option         `json:"options,omitempty"`
	Validation  *ValidationRules `json:"validation,omitempty"`
	Logic       []LogicRule      `json:"logic,omitempty"`
	Randomize   bool             `json:"randomize,omitempty"`
}

// Visible 静态可见性，isVisible 未声明时默认可见
func (q *Question) Visible() bool {
	return q.IsVisible == nil || *q.IsVisible
}

// RatingMax 评分题的最大分值，未声明时默认 5
func (q *Question) RatingMax(fallback int) int {
	if q.Validation != nil && q.Validation.Max != nil && *q.Validation.Max >= 1 {
		return int(*q.Validation.Max)
	}
	if fallback > 0 {
		return fallback
	}
	return 5
}

// QuestionnaireSettings 问卷设置
type QuestionnaireSettings struct {
	AllowAnonymous bool `json:"allowAnonymous"`
	ShowProgress   bool `json:"showProgress"`
	Version        int  `json:"version"`
}

const (
	QuestionnaireStatusDraft     = "draft"
	QuestionnaireStatusPublished = "published"
	QuestionnaireStatusClosed    = "closed"

	CategorySurvey     = "survey"
	CategoryQuiz       = "quiz"
	CategoryAssessment = "assessment"
)

// swagger:model Questionnaire
type Questionnaire struct {
	UUIDBase
	WorkspaceID string                `gorm:"index;type:varchar(36)" json:"workspaceId"`
	CreatorID   string                `gorm:"index;type:varchar(36)" json:"creatorId"`
	Title       string                `gorm:"size:255;not null" json:"title"`
	Description string                `gorm:"type:text" json:"description"`
	Category    string                `gorm:"size:50;default:'survey'" json:"category"`
	Status      string                `gorm:"size:20;default:'draft'" json:"status"`
	Questions   []Question            `gorm:"type:json;serializer:json" json:"questions"`
	Settings    QuestionnaireSettings `gorm:"type:json;serializer:json" json:"settings"`
	PublishedAt *time.Time            `json:"publishedAt,omitempty"`
}

func (Questionnaire) TableName() string {
	return "questionnaires"
}

// IsQuiz 测验/考核类问卷才计分
func (q *Questionnaire) IsQuiz() bool {
	return q.Category == CategoryQuiz || q.Category == CategoryAssessment
}

// QuestionByID 按题目 ID 查找，找不到返回 nil
func (q *Questionnaire) QuestionByID(id string) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i]
		}
	}
	return nil
}
