package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"

	"profile-insight-go/internal/analysis"
	"profile-insight-go/internal/config"
	"profile-insight-go/internal/constants"
	"profile-insight-go/internal/logger"
	"profile-insight-go/internal/parser"
	"profile-insight-go/internal/processor"
	"profile-insight-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
)

// ProfileHandler 档案解析与分析接口
type ProfileHandler struct {
	cfg     *config.Config
	service *processor.ProfileService
	logger  zerolog.Logger
}

// NewProfileHandler 创建档案处理器
func NewProfileHandler(cfg *config.Config, service *processor.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		cfg:     cfg,
		service: service,
		logger:  logger.Logger.With().Str("component", "profile_handler").Logger(),
	}
}

type parseTextRequest struct {
	Text string `json:"text"`
}

type parseURLRequest struct {
	URL string `json:"url"`
}

type analyzeRequest struct {
	Profile    *types.ProfileRecord `json:"profile"`
	TargetRole string               `json:"target_role"`
}

type analyzeSubmissionRequest struct {
	TargetRole string `json:"target_role"`
}

// HandleParseText POST /api/v1/profiles/parse/text
func (h *ProfileHandler) HandleParseText(ctx context.Context, c *app.RequestContext) {
	var req parseTextRequest
	if err := decodeJSON(c, &req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	res, err := h.service.ParseText(ctx, req.Text)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// HandleParsePDF POST /api/v1/profiles/parse/pdf，multipart 字段 file
func (h *ProfileHandler) HandleParsePDF(ctx context.Context, c *app.RequestContext) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "文件未找到")
		return
	}
	if !isPDF(fh) {
		h.badRequest(c, "只支持PDF文件")
		return
	}
	if fh.Size > constants.MaxPDFUploadSize {
		c.JSON(consts.StatusRequestEntityTooLarge, utils.H{
			"error": fmt.Sprintf("PDF文件不能超过 %dMB", constants.MaxPDFUploadSize>>20),
		})
		return
	}

	data, err := readFileHeader(fh)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", fh.Filename).Msg("读取上传文件失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "读取上传文件失败"})
		return
	}

	res, err := h.service.ParsePDF(ctx, fh.Filename, data)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// HandleParseOCR POST /api/v1/profiles/parse/ocr，字段名以 file 开头的所有图片
func (h *ProfileHandler) HandleParseOCR(ctx context.Context, c *app.RequestContext) {
	form, err := c.MultipartForm()
	if err != nil {
		h.badRequest(c, "请求不是有效的表单")
		return
	}

	files := imageFiles(form)
	if len(files) == 0 {
		h.badRequest(c, "未上传图片")
		return
	}
	if len(files) > parser.MaxOCRImages {
		h.badRequest(c, fmt.Sprintf("最多上传 %d 张图片", parser.MaxOCRImages))
		return
	}

	images := make([]parser.ImageInput, 0, len(files))
	for _, fh := range files {
		if fh.Size > constants.MaxImageUploadSize {
			c.JSON(consts.StatusRequestEntityTooLarge, utils.H{
				"error": fmt.Sprintf("图片 %s 超过 %dMB", fh.Filename, constants.MaxImageUploadSize>>20),
			})
			return
		}
		contentType := fh.Header.Get("Content-Type")
		if !parser.IsSupportedImageType(contentType) {
			h.badRequest(c, fmt.Sprintf("不支持的图片类型: %s", fh.Filename))
			return
		}
		data, err := readFileHeader(fh)
		if err != nil {
			h.logger.Error().Err(err).Str("filename", fh.Filename).Msg("读取上传图片失败")
			c.JSON(consts.StatusInternalServerError, utils.H{"error": "读取上传文件失败"})
			return
		}
		images = append(images, parser.ImageInput{Name: fh.Filename, ContentType: contentType, Data: data})
	}

	res, err := h.service.ParseImages(ctx, images)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// HandleParseURL POST /api/v1/profiles/parse/url
func (h *ProfileHandler) HandleParseURL(ctx context.Context, c *app.RequestContext) {
	var req parseURLRequest
	if err := decodeJSON(c, &req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	res, err := h.service.ParseURL(ctx, req.URL)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// HandleAnalyze POST /api/v1/profiles/analyze
func (h *ProfileHandler) HandleAnalyze(ctx context.Context, c *app.RequestContext) {
	var req analyzeRequest
	if err := decodeJSON(c, &req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	if req.Profile == nil {
		h.badRequest(c, "缺少档案数据")
		return
	}

	result, err := h.service.Analyze(ctx, *req.Profile, req.TargetRole)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"analysis": result})
}

// HandleGetSubmission GET /api/v1/profiles/:id
func (h *ProfileHandler) HandleGetSubmission(ctx context.Context, c *app.RequestContext) {
	view, err := h.service.GetSubmission(ctx, c.Param("id"))
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, view)
}

// HandleRequestAnalysis POST /api/v1/profiles/:id/analyze，请求体可以为空
func (h *ProfileHandler) HandleRequestAnalysis(ctx context.Context, c *app.RequestContext) {
	var req analyzeSubmissionRequest
	if len(c.Request.Body()) > 0 {
		if err := decodeJSON(c, &req); err != nil {
			h.badRequest(c, err.Error())
			return
		}
	}

	id := c.Param("id")
	if err := h.service.RequestAnalysis(ctx, id, req.TargetRole); err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusAccepted, utils.H{
		"submission_id": id,
		"status":        "ANALYZING",
	})
}

// HandleHealth GET /api/v1/health
func (h *ProfileHandler) HandleHealth(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"status":     "ok",
		"persistent": h.service.Persistent(),
		"analysis":   h.service.CanAnalyze(),
	})
}

func (h *ProfileHandler) badRequest(c *app.RequestContext, msg string) {
	c.JSON(consts.StatusBadRequest, utils.H{"error": msg})
}

// writeError 将服务层错误映射为HTTP状态码
func (h *ProfileHandler) writeError(ctx context.Context, c *app.RequestContext, err error) {
	status := StatusFor(err)
	ev := logger.Ctx(ctx).Warn()
	if status >= consts.StatusInternalServerError {
		ev = logger.Ctx(ctx).Error()
	}
	ev.Err(err).Int("status", status).Str("path", string(c.Path())).Msg("请求处理失败")

	msg := err.Error()
	if status == consts.StatusInternalServerError {
		msg = "服务器内部错误"
	}
	c.JSON(status, utils.H{"error": msg})
}

// StatusFor 返回错误对应的HTTP状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, processor.ErrInvalidInput),
		errors.Is(err, parser.ErrInvalidURL),
		errors.Is(err, parser.ErrUnsupportedImage),
		errors.Is(err, parser.ErrTooManyImages),
		errors.Is(err, parser.ErrPDFUnreadable),
		errors.Is(err, parser.ErrTooManyPages),
		errors.Is(err, analysis.ErrInvalidProfile):
		return consts.StatusBadRequest
	case errors.Is(err, processor.ErrEmptyExtraction),
		errors.Is(err, parser.ErrNoTextExtracted):
		return consts.StatusUnprocessableEntity
	case errors.Is(err, processor.ErrSubmissionNotFound):
		return consts.StatusNotFound
	case errors.Is(err, parser.ErrFetchFailed),
		errors.Is(err, analysis.ErrModelUnavailable),
		errors.Is(err, analysis.ErrEmptyModelResponse):
		return consts.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return consts.StatusGatewayTimeout
	case errors.Is(err, processor.ErrExtractorNotInit),
		errors.Is(err, processor.ErrAnalyzerNotInit),
		errors.Is(err, processor.ErrStorageNotInit):
		return consts.StatusServiceUnavailable
	}
	return consts.StatusInternalServerError
}

func decodeJSON(c *app.RequestContext, v any) error {
	body := c.Request.Body()
	if len(body) == 0 {
		return errors.New("请求体为空")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("请求体不是有效的JSON: %w", err)
	}
	return nil
}

func isPDF(fh *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(fh.Header.Get("Content-Type")), "application/pdf")
}

// imageFiles 收集字段名以 file 开头的文件，按字段名排序（file, file1, file2 ... file10）
func imageFiles(form *multipart.Form) []*multipart.FileHeader {
	keys := make([]string, 0, len(form.File))
	for k := range form.File {
		if strings.HasPrefix(k, "file") {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})

	var files []*multipart.FileHeader
	for _, k := range keys {
		files = append(files, form.File[k]...)
	}
	return files
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
