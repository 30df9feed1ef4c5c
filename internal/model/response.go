package model

import "time"

const (
	ResponseStatusInProgress = "in_progress"
	ResponseStatusCompleted  = "completed"
	ResponseStatusAbandoned  = "abandoned"
)

// Answer 单题作答记录
type Answer struct {
	QuestionID string       `json:"questionId"`
	Type       QuestionType `json:"questionType,omitempty"`
	Value      interface{}  `json:"value"`
	TimeSpent  int          `json:"timeSpentSeconds,omitempty"`
	Skipped    bool         `json:"skipped,omitempty"` // 受访者主动跳过
	AnsweredAt time.Time    `json:"answeredAt,omitempty"`
}

// AnswerSet 一次作答会话中按题目 ID 索引的答案集合
type AnswerSet map[string]Answer

// BuildAnswerSet 由答案列表构建索引，后出现的覆盖先出现的
func BuildAnswerSet(answers []Answer) AnswerSet {
	set := make(AnswerSet, len(answers))
	for _, a := range answers {
		set[a.QuestionID] = a
	}
	return set
}

// ResponseMetadata 作答会话元数据，由采集端上报
type ResponseMetadata struct {
	SessionID      string     `json:"sessionId,omitempty"`
	StartedAt      time.Time  `json:"startedAt,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	IPAddress      string     `json:"ipAddress,omitempty"`
	UserAgent      string     `json:"userAgent,omitempty"`
	Referrer       string     `json:"referrer,omitempty"`
	Language       string     `json:"language,omitempty"`
	Timezone       string     `json:"timezone,omitempty"`
	Location       string     `json:"location,omitempty"`
	CompletionTime *int       `json:"completionTime,omitempty"` // seconds
}

// swagger:model Response
type Response struct {
	UUIDBase
	QuestionnaireID string             `gorm:"index;type:varchar(36);not null" json:"questionnaireId"`
	RespondentID    string             `gorm:"index;type:varchar(36)" json:"respondentId,omitempty"`
	Status          string             `gorm:"size:20;default:'in_progress'" json:"status"`
	Answers         []Answer           `gorm:"type:json;serializer:json" json:"answers"`
	Metadata        ResponseMetadata   `gorm:"type:json;serializer:json" json:"metadata"`
	Scoring         *ScoreResult       `gorm:"type:json;serializer:json" json:"scoring,omitempty"`
	QualityChecks   *QualityAssessment `gorm:"type:json;serializer:json" json:"qualityChecks,omitempty"`
}

func (Response) TableName() string {
	return "responses"
}

// AnswerSet 当前已收集答案的索引视图
func (r *Response) AnswerSet() AnswerSet {
	return BuildAnswerSet(r.Answers)
}

// ScoreResult 测验评分结果，提交时计算一次
type ScoreResult struct {
	TotalScore int             `json:"totalScore"`
	MaxScore   int             `json:"maxScore"`
	Percentage int             `json:"percentage"`
	Grade      string          `json:"grade"`
	Passed     bool            `json:"passed"`
	Breakdown  []QuestionScore `json:"breakdown,omitempty"`
}

// QuestionScore 单题得分明细
type QuestionScore struct {
	QuestionID string `json:"questionId"`
	Earned     int    `json:"earned"`
	Max        int    `json:"max"`
	Correct    bool   `json:"correct"`
}

// QualityFlagType 质量标记类型
type QualityFlagType string

const (
	FlagSpeeding       QualityFlagType = "speeding"
	FlagStraightLining QualityFlagType = "straight_lining"
	FlagInconsistent   QualityFlagType = "inconsistent"
	FlagBotDetected    QualityFlagType = "bot_detected"
)

// QualitySeverity 质量标记严重程度
type QualitySeverity string

const (
	SeverityLow    QualitySeverity = "low"
	SeverityMedium QualitySeverity = "medium"
	SeverityHigh   QualitySeverity = "high"
)

// QualityFlag 单项质量标记
type QualityFlag struct {
	Type        QualityFlagType `json:"type"`
	Severity    QualitySeverity `json:"severity"`
	Description string          `json:"description"`
}

// QualityAssessment 响应质量评估，每次重算整体替换
type QualityAssessment struct {
	Score        int           `json:"score"` // 0-100
	IsSuspicious bool          `json:"isSuspicious"`
	Flags        []QualityFlag `json:"flags"`
	CheckedAt    time.Time     `json:"checkedAt"`
}
