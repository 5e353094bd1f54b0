package processor

import (
	"errors"
	"fmt"

	"profile-insight-go/internal/types"
)

// 定义基础错误类型
var (
	ErrInvalidInput       = errors.New("输入无效")
	ErrEmptyExtraction    = errors.New("未能从内容中解析出档案信息")
	ErrExtractorNotInit   = errors.New("文本提取器未初始化")
	ErrAnalyzerNotInit    = errors.New("分析器未初始化")
	ErrStorageNotInit     = errors.New("持久化存储未初始化")
	ErrSubmissionNotFound = errors.New("档案提交不存在")
)

// 处理阶段
const (
	StageValidate = "validate"
	StageExtract  = "extract"
	StageParse    = "parse"
	StagePersist  = "persist"
	StageAnalyze  = "analyze"
)

// ProfileError 包含处理阶段和来源的错误
type ProfileError struct {
	Stage   string
	Source  types.ProfileSource
	BaseErr error
	Detail  string
}

func (e *ProfileError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (阶段:%s, 来源:%s): %s", e.BaseErr, e.Stage, e.Source, e.Detail)
	}
	return fmt.Sprintf("%s (阶段:%s, 来源:%s)", e.BaseErr, e.Stage, e.Source)
}

func (e *ProfileError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ProfileError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func newInvalidInputError(source types.ProfileSource, detail string) error {
	return &ProfileError{Stage: StageValidate, Source: source, BaseErr: ErrInvalidInput, Detail: detail}
}

func newExtractError(source types.ProfileSource, err error) error {
	return &ProfileError{Stage: StageExtract, Source: source, BaseErr: err}
}

func newEmptyExtractionError(source types.ProfileSource) error {
	return &ProfileError{Stage: StageParse, Source: source, BaseErr: ErrEmptyExtraction}
}
