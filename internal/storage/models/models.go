package models

import (
	"encoding/json"
	"fmt"
	"time"

	"profile-insight-go/internal/types"

	"gorm.io/datatypes"
)

// 档案提交的处理状态
const (
	StatusParsed    = "PARSED"
	StatusAnalyzing = "ANALYZING"
	StatusAnalyzed  = "ANALYZED"
	StatusFailed    = "ANALYSIS_FAILED"
)

// ProfileSubmission 一次档案解析的快照
type ProfileSubmission struct {
	SubmissionID      string         `gorm:"type:char(36);primaryKey"`
	Source            string         `gorm:"type:varchar(16);not null;index:idx_ps_source"`
	SourceRef         string         `gorm:"type:varchar(1024)"` // URL、文件名或对象路径
	OriginalObjectKey string         `gorm:"type:varchar(1024)"`
	TextMD5           string         `gorm:"type:char(32);index:idx_ps_text_md5"`
	RawText           string         `gorm:"type:mediumtext"`
	Record            datatypes.JSON `gorm:"type:json"`
	Status            string         `gorm:"type:varchar(32);default:'PARSED';index:idx_ps_status"`
	CreatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ProfileSubmission) TableName() string {
	return "profile_submissions"
}

// ProfileRecord 反序列化档案记录，切片字段保证非nil
func (s *ProfileSubmission) ProfileRecord() (types.ProfileRecord, error) {
	record := types.NewProfileRecord()
	if len(s.Record) == 0 {
		return record, nil
	}
	if err := json.Unmarshal(s.Record, &record); err != nil {
		return record, fmt.Errorf("解析档案记录失败: %w", err)
	}
	record.EnsureSlices()
	return record, nil
}

// ProfileAnalysis 档案分析结果，一个提交可以有多次分析
type ProfileAnalysis struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement"`
	SubmissionID string         `gorm:"type:char(36);not null;index:idx_pa_submission_created,priority:1"`
	TargetRole   string         `gorm:"type:varchar(255)"`
	Result       datatypes.JSON `gorm:"type:json;not null"`
	Model        string         `gorm:"type:varchar(100)"`
	Fallback     bool           `gorm:"default:false"`
	OverallScore int            `gorm:"default:0"`
	CreatedAt    time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_pa_submission_created,priority:2"`

	Submission *ProfileSubmission `gorm:"foreignKey:SubmissionID;references:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ProfileAnalysis) TableName() string {
	return "profile_analyses"
}

// NewProfileAnalysis 从分析结果构造数据库行
func NewProfileAnalysis(submissionID, targetRole string, result *types.AnalysisResult) (*ProfileAnalysis, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("序列化分析结果失败: %w", err)
	}
	return &ProfileAnalysis{
		SubmissionID: submissionID,
		TargetRole:   targetRole,
		Result:       datatypes.JSON(data),
		Model:        result.Model,
		Fallback:     result.Fallback,
		OverallScore: result.OverallScore,
	}, nil
}

// AnalysisResult 反序列化分析结果
func (a *ProfileAnalysis) AnalysisResult() (*types.AnalysisResult, error) {
	var result types.AnalysisResult
	if err := json.Unmarshal(a.Result, &result); err != nil {
		return nil, fmt.Errorf("解析分析结果失败: %w", err)
	}
	return &result, nil
}
