package parser

import "errors"

var (
	// ErrPDFUnreadable PDF损坏、加密或只有图片，无法提取文本
	ErrPDFUnreadable = errors.New("PDF无法读取")
	// ErrTooManyPages PDF页数超过上限
	ErrTooManyPages = errors.New("PDF页数超过上限")
	// ErrNoTextExtracted 提取结果为空
	ErrNoTextExtracted = errors.New("未提取到文本内容")
	// ErrUnsupportedImage 不支持的图片类型
	ErrUnsupportedImage = errors.New("不支持的图片类型")
	// ErrTooManyImages 单次请求图片数量超限
	ErrTooManyImages = errors.New("图片数量超过上限")
	// ErrInvalidURL URL不合法或不在允许的站点内
	ErrInvalidURL = errors.New("无效的档案URL")
	// ErrFetchFailed 抓取页面失败
	ErrFetchFailed = errors.New("抓取页面失败")
)
