package parser

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultMaxPDFPages 默认允许的最大页数
const DefaultMaxPDFPages = 20

var disableConfigDirOnce sync.Once

// PDFInfo PDF结构校验结果
type PDFInfo struct {
	PageCount int
}

// PDFInspector 在提取文本前用 pdfcpu 校验PDF结构
type PDFInspector struct {
	maxPages int
}

// NewPDFInspector 创建校验器，maxPages <= 0 时使用 DefaultMaxPDFPages
func NewPDFInspector(maxPages int) *PDFInspector {
	if maxPages <= 0 {
		maxPages = DefaultMaxPDFPages
	}
	// pdfcpu 默认会在用户目录下创建配置文件
	disableConfigDirOnce.Do(api.DisableConfigDir)
	return &PDFInspector{maxPages: maxPages}
}

// Inspect 读取并校验PDF
// 结构损坏或加密的文件返回 ErrPDFUnreadable，页数超限返回 ErrTooManyPages
func (i *PDFInspector) Inspect(data []byte) (*PDFInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: 空文件", ErrPDFUnreadable)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFUnreadable, err)
	}

	info := &PDFInfo{PageCount: ctx.PageCount}
	if info.PageCount > i.maxPages {
		return info, fmt.Errorf("%w: %d > %d", ErrTooManyPages, info.PageCount, i.maxPages)
	}
	return info, nil
}
