package processor

import (
	"context"
	"io"
	"time"

	"profile-insight-go/internal/parser"
	"profile-insight-go/internal/storage/models"
	"profile-insight-go/internal/types"
)

//
// 文本提取相关接口
//

// PDFTextExtractor PDF文本提取器
type PDFTextExtractor interface {
	// ExtractText 从 reader 读取PDF并返回纯文本和元数据（页数等）
	ExtractText(ctx context.Context, reader io.Reader, uri string) (string, map[string]any, error)
}

// PDFInspector 提取前的PDF结构校验
type PDFInspector interface {
	Inspect(data []byte) (*parser.PDFInfo, error)
}

// OCRExtractor 图片文字识别
type OCRExtractor interface {
	// RecognizeImages 按输入顺序识别并用空行连接
	RecognizeImages(ctx context.Context, images []parser.ImageInput) (string, error)
}

// WebScraper 抓取公开档案页面的可见文本
type WebScraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

//
// 分析相关接口
//

// ProfileAnalyzer 档案分析器，analysis.Analyzer 满足该接口
type ProfileAnalyzer interface {
	Analyze(ctx context.Context, record types.ProfileRecord, targetRole string) (*types.AnalysisResult, error)
}

//
// 存储相关接口
//

// SubmissionStore 档案提交和分析结果的持久化，storage.MySQL 满足该接口
type SubmissionStore interface {
	CreateSubmissionWithEvent(ctx context.Context, submission *models.ProfileSubmission, event *models.OutboxMessage) error
	GetSubmission(ctx context.Context, submissionID string) (*models.ProfileSubmission, error)
	GetLatestAnalysis(ctx context.Context, submissionID string) (*models.ProfileAnalysis, error)
	SaveAnalysis(ctx context.Context, analysis *models.ProfileAnalysis) error
	RequestAnalysis(ctx context.Context, submissionID string, event *models.OutboxMessage) error
	UpdateSubmissionStatus(ctx context.Context, submissionID, status string) error
}

// ProfileCache 解析结果和分析结果缓存，storage.Redis 满足该接口
type ProfileCache interface {
	GetParsedProfile(ctx context.Context, textMD5 string) (*types.ProfileRecord, error)
	SetParsedProfile(ctx context.Context, textMD5 string, record types.ProfileRecord) error
	GetAnalysis(ctx context.Context, record types.ProfileRecord, targetRole string) (*types.AnalysisResult, error)
	SetAnalysis(ctx context.Context, record types.ProfileRecord, targetRole string, result *types.AnalysisResult) error
}

// OriginalStore 原始上传文件的对象存储
type OriginalStore interface {
	UploadOriginal(ctx context.Context, submissionID, fileExt string, data []byte) (string, error)
}

// AnalysisLocker 防止多个消费者同时分析同一份档案，storage.Redis 满足该接口
type AnalysisLocker interface {
	AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error)
	ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error)
}
