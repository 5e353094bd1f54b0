package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"profile-insight-go/internal/config"
	"profile-insight-go/internal/logger"
	"profile-insight-go/internal/parser"
	"profile-insight-go/internal/profiletext"
	"profile-insight-go/internal/storage"
	"profile-insight-go/internal/storage/models"
	"profile-insight-go/internal/tracing"
	"profile-insight-go/internal/types"
	"profile-insight-go/pkg/utils"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
)

var tracer = otel.Tracer("profile-insight-go/processor")

// ParseResult 一次解析的返回
type ParseResult struct {
	Profile types.ProfileRecord `json:"profile"`
	// 未启用持久化时为空
	SubmissionID    string `json:"submission_id,omitempty"`
	ExtractedLength int    `json:"extracted_length,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
	Cached          bool   `json:"cached,omitempty"`
}

// SubmissionView 已保存的档案及其最新一次分析
type SubmissionView struct {
	SubmissionID string                `json:"submission_id"`
	Source       string                `json:"source"`
	SourceRef    string                `json:"source_ref,omitempty"`
	Status       string                `json:"status"`
	Profile      types.ProfileRecord   `json:"profile"`
	Analysis     *types.AnalysisResult `json:"analysis,omitempty"`
	TargetRole   string                `json:"target_role,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type originalFile struct {
	ext  string
	data []byte
}

type parseInput struct {
	source    types.ProfileSource
	text      string
	sourceRef string
	originals []originalFile
	pageCount int
}

// ProfileService 档案解析与分析的编排服务
type ProfileService struct {
	components Components
	events     config.RabbitMQConfig
	// 配置了消息队列时才写 outbox 事件
	publishEvents bool
	logger        zerolog.Logger
}

// NewProfileService 创建服务，opts 覆盖 base 中的对应组件
func NewProfileService(cfg *config.Config, base Components, opts ...ComponentOpt) *ProfileService {
	comps := base
	for _, opt := range opts {
		opt(&comps)
	}
	s := &ProfileService{
		components: comps,
		logger:     logger.Logger.With().Str("component", "profile_service").Logger(),
	}
	if cfg != nil {
		s.events = cfg.RabbitMQ
		s.publishEvents = cfg.RabbitMQ.URL != "" && cfg.RabbitMQ.ProfileEventsExchange != ""
	}
	return s
}

// Persistent 是否会保存解析结果
func (s *ProfileService) Persistent() bool {
	return s.components.Submissions != nil
}

// CanAnalyze 是否配置了分析器
func (s *ProfileService) CanAnalyze() bool {
	return s.components.Analyzer != nil
}

// Close 释放组件持有的资源（例如无头浏览器）
func (s *ProfileService) Close() error {
	var errs []error
	for _, c := range s.components.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseText 解析粘贴的档案文本，含HTML标记时先转成纯文本
func (s *ProfileService) ParseText(ctx context.Context, text string) (*ParseResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newInvalidInputError(types.SourceText, "文本为空")
	}
	if parser.ContainsMarkup(text) {
		text = parser.StripMarkup(text)
	}
	return s.finish(ctx, parseInput{source: types.SourceText, text: text})
}

// ParsePDF 校验并提取PDF文本，清洗后解析
func (s *ProfileService) ParsePDF(ctx context.Context, fileName string, data []byte) (*ParseResult, error) {
	if len(data) == 0 {
		return nil, newInvalidInputError(types.SourcePDF, "文件为空")
	}
	if s.components.PDFExtractor == nil {
		return nil, ErrExtractorNotInit
	}

	ctx, span := tracer.Start(ctx, "ProfileService.ExtractPDF",
		trace.WithAttributes(
			attribute.String("file.name", tracing.SafeFileName(fileName)),
			attribute.Int("file.size", len(data)),
		))
	defer span.End()

	pageCount := 0
	if s.components.PDFInspector != nil {
		info, err := s.components.PDFInspector.Inspect(data)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeValidation)
			return nil, newExtractError(types.SourcePDF, err)
		}
		pageCount = info.PageCount
	}

	text, meta, err := s.components.PDFExtractor.ExtractText(ctx, bytes.NewReader(data), fileName)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return nil, newExtractError(types.SourcePDF, err)
	}
	if pageCount == 0 {
		pageCount = pageCountFromMeta(meta)
	}

	cleaned := parser.CleanExtractedText(text)
	if cleaned == "" {
		return nil, newExtractError(types.SourcePDF, parser.ErrNoTextExtracted)
	}
	span.SetAttributes(
		attribute.Int("pdf.page_count", pageCount),
		attribute.Int("pdf.text_length", len(cleaned)),
	)

	return s.finish(ctx, parseInput{
		source:    types.SourcePDF,
		text:      cleaned,
		sourceRef: fileName,
		originals: []originalFile{{ext: ".pdf", data: data}},
		pageCount: pageCount,
	})
}

func pageCountFromMeta(meta map[string]any) int {
	for _, key := range []string{"page_count", "pages", "_page_count"} {
		switch v := meta[key].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

// ParseImages 对截图做OCR后解析，多张图片的文字按上传顺序拼接
func (s *ProfileService) ParseImages(ctx context.Context, images []parser.ImageInput) (*ParseResult, error) {
	if len(images) == 0 {
		return nil, newInvalidInputError(types.SourceOCR, "未上传图片")
	}
	if s.components.OCR == nil {
		return nil, ErrExtractorNotInit
	}

	text, err := s.components.OCR.RecognizeImages(ctx, images)
	if err != nil {
		return nil, newExtractError(types.SourceOCR, err)
	}

	names := make([]string, 0, len(images))
	originals := make([]originalFile, 0, len(images))
	for i, img := range images {
		names = append(names, img.Name)
		originals = append(originals, originalFile{
			ext:  fmt.Sprintf("%d%s", i, strings.ToLower(filepath.Ext(img.Name))),
			data: img.Data,
		})
	}

	return s.finish(ctx, parseInput{
		source:    types.SourceOCR,
		text:      strings.TrimSpace(text),
		sourceRef: strings.Join(names, ","),
		originals: originals,
	})
}

// ParseURL 抓取公开档案页面后解析
func (s *ProfileService) ParseURL(ctx context.Context, rawURL string) (*ParseResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, newInvalidInputError(types.SourceURL, "URL为空")
	}
	if s.components.Scraper == nil {
		return nil, ErrExtractorNotInit
	}

	ctx, span := tracer.Start(ctx, "ProfileService.ScrapeURL",
		trace.WithAttributes(attribute.String("url.full", tracing.SafeURL(rawURL))))
	defer span.End()

	text, err := s.components.Scraper.Scrape(ctx, rawURL)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeOf(err, tracing.ErrorTypeExtraction))
		return nil, newExtractError(types.SourceURL, err)
	}
	return s.finish(ctx, parseInput{
		source:    types.SourceURL,
		text:      strings.TrimSpace(text),
		sourceRef: rawURL,
	})
}

// finish 解析 → 空结果判定 → 缓存 → 持久化
func (s *ProfileService) finish(ctx context.Context, in parseInput) (*ParseResult, error) {
	ctx, span := tracer.Start(ctx, "ProfileService.Parse",
		trace.WithAttributes(
			attribute.String("profile.source", string(in.source)),
			attribute.Int("profile.text_length", len(in.text)),
		))
	defer span.End()

	l := logger.Ctx(ctx).With().Str("source", string(in.source)).Logger()
	textMD5 := utils.CalculateMD5([]byte(in.text))

	res := &ParseResult{ExtractedLength: len(in.text), PageCount: in.pageCount}

	if cached := s.cachedProfile(ctx, textMD5); cached != nil {
		res.Profile = *cached
		res.Cached = true
	} else {
		parsed := profiletext.Parse(in.text)
		res.Profile = parsed.Record
		l.Debug().
			Int("lines", parsed.Stats.Lines).
			Int("noise_lines", parsed.Stats.NoiseLines).
			Strs("sections", parsed.Stats.Sections).
			Msg("档案文本解析完成")
	}

	span.SetAttributes(tracing.ProfileAttributes(res.Profile)...)
	if !hasEnoughContent(in.source, res.Profile) {
		span.SetAttributes(attribute.Bool("profile.empty", true))
		return nil, newEmptyExtractionError(in.source)
	}

	if !res.Cached && s.components.Cache != nil {
		if err := s.components.Cache.SetParsedProfile(ctx, textMD5, res.Profile); err != nil {
			l.Warn().Err(err).Msg("写入解析缓存失败")
		}
	}

	if s.components.Submissions != nil {
		id, err := s.persist(ctx, in, textMD5, res.Profile)
		if err != nil {
			// 解析结果照常返回，只是没有提交ID
			tracing.RecordError(span, err, tracing.ErrorTypeDB)
			l.Error().Err(err).Msg("保存档案提交失败")
		} else {
			res.SubmissionID = id
			span.SetAttributes(attribute.String("profile.submission_id", id))
		}
	}

	l.Info().
		Bool("cached", res.Cached).
		Str("submission_id", res.SubmissionID).
		Int("experience", len(res.Profile.Experience)).
		Int("skills", len(res.Profile.Skills)).
		Msg("档案解析完成")
	return res, nil
}

// hasEnoughContent PDF 允许只有工作经历，其余来源至少要有姓名、标题或简介之一
func hasEnoughContent(source types.ProfileSource, record types.ProfileRecord) bool {
	if source == types.SourcePDF {
		return record.HasIdentityOrExperience()
	}
	return record.HasIdentity()
}

func (s *ProfileService) cachedProfile(ctx context.Context, textMD5 string) *types.ProfileRecord {
	if s.components.Cache == nil {
		return nil
	}
	rec, err := s.components.Cache.GetParsedProfile(ctx, textMD5)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("text_md5", textMD5).Msg("读取解析缓存失败")
		return nil
	}
	return rec
}

func (s *ProfileService) persist(ctx context.Context, in parseInput, textMD5 string, record types.ProfileRecord) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成提交ID失败: %w", err)
	}
	submissionID := id.String()

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("序列化档案失败: %w", err)
	}

	sub := &models.ProfileSubmission{
		SubmissionID: submissionID,
		Source:       string(in.source),
		SourceRef:    in.sourceRef,
		TextMD5:      textMD5,
		RawText:      in.text,
		Record:       datatypes.JSON(recordJSON),
		Status:       models.StatusParsed,
	}

	if s.components.Originals != nil {
		keys := make([]string, 0, len(in.originals))
		for _, f := range in.originals {
			key, err := s.components.Originals.UploadOriginal(ctx, submissionID, f.ext, f.data)
			if err != nil {
				// 原始文件只用于追溯，上传失败不影响保存
				logger.Ctx(ctx).Warn().Err(err).Str("submission_id", submissionID).Msg("上传原始文件失败")
				continue
			}
			keys = append(keys, key)
		}
		sub.OriginalObjectKey = strings.Join(keys, ",")
	}

	var event *models.OutboxMessage
	if s.publishEvents {
		msg := storage.NewProfileEventMessage(storage.EventProfileParsed, submissionID, string(in.source), textMD5, "")
		event, err = storage.NewOutboxMessage(msg, s.events.ProfileEventsExchange, s.events.ParsedRoutingKey)
		if err != nil {
			return "", err
		}
	}

	if err := s.components.Submissions.CreateSubmissionWithEvent(ctx, sub, event); err != nil {
		return "", err
	}
	return submissionID, nil
}

// Analyze 同步分析档案，相同档案和目标岗位命中缓存时直接返回
func (s *ProfileService) Analyze(ctx context.Context, record types.ProfileRecord, targetRole string) (*types.AnalysisResult, error) {
	if s.components.Analyzer == nil {
		return nil, ErrAnalyzerNotInit
	}
	record.EnsureSlices()
	targetRole = strings.TrimSpace(targetRole)

	ctx, span := tracer.Start(ctx, "ProfileService.Analyze",
		trace.WithAttributes(attribute.Bool("analysis.has_target_role", targetRole != "")))
	defer span.End()

	if s.components.Cache != nil {
		cached, err := s.components.Cache.GetAnalysis(ctx, record, targetRole)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("读取分析缓存失败")
		} else if cached != nil {
			span.SetAttributes(attribute.Bool("analysis.cached", true))
			return cached, nil
		}
	}

	result, err := s.components.Analyzer.Analyze(ctx, record, targetRole)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeOf(err, tracing.ErrorTypeModel))
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("analysis.overall_score", result.OverallScore),
		attribute.Bool("analysis.fallback", result.Fallback),
	)

	if s.components.Cache != nil {
		if err := s.components.Cache.SetAnalysis(ctx, record, targetRole, result); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("写入分析缓存失败")
		}
	}
	return result, nil
}

// GetSubmission 读取已保存的档案和最新一次分析
func (s *ProfileService) GetSubmission(ctx context.Context, submissionID string) (*SubmissionView, error) {
	if s.components.Submissions == nil {
		return nil, ErrStorageNotInit
	}
	sub, err := s.components.Submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, mapStoreError(submissionID, err)
	}
	record, err := sub.ProfileRecord()
	if err != nil {
		return nil, err
	}

	view := &SubmissionView{
		SubmissionID: sub.SubmissionID,
		Source:       sub.Source,
		SourceRef:    sub.SourceRef,
		Status:       sub.Status,
		Profile:      record,
		CreatedAt:    sub.CreatedAt,
		UpdatedAt:    sub.UpdatedAt,
	}

	latest, err := s.components.Submissions.GetLatestAnalysis(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		result, err := latest.AnalysisResult()
		if err != nil {
			return nil, err
		}
		view.Analysis = result
		view.TargetRole = latest.TargetRole
	}
	return view, nil
}

// RequestAnalysis 为已保存的档案排队一次异步分析
func (s *ProfileService) RequestAnalysis(ctx context.Context, submissionID, targetRole string) error {
	if s.components.Submissions == nil || !s.publishEvents {
		return ErrStorageNotInit
	}
	msg := storage.NewProfileEventMessage(storage.EventAnalysisRequested, submissionID, "", "", strings.TrimSpace(targetRole))
	event, err := storage.NewOutboxMessage(msg, s.events.ProfileEventsExchange, s.events.AnalyzeRoutingKey)
	if err != nil {
		return err
	}
	if err := s.components.Submissions.RequestAnalysis(ctx, submissionID, event); err != nil {
		return mapStoreError(submissionID, err)
	}
	return nil
}

func mapStoreError(submissionID string, err error) error {
	if errors.Is(err, storage.ErrSubmissionNotFound) {
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, submissionID)
	}
	return err
}
