package types

import "strings"

// ProfileRecord 从非结构化资料文本中解析出的结构化档案
// 所有切片字段始终非nil，序列化时输出 [] 而不是 null
type ProfileRecord struct {
	Name           string   `json:"name"`
	Headline       string   `json:"headline"`
	About          string   `json:"about"`
	Experience     []string `json:"experience"`
	Skills         []string `json:"skills"`
	Education      []string `json:"education"`
	Certifications []string `json:"certifications"`
}

// NewProfileRecord 创建一个所有字段都为空值的档案
func NewProfileRecord() ProfileRecord {
	return ProfileRecord{
		Experience:     []string{},
		Skills:         []string{},
		Education:      []string{},
		Certifications: []string{},
	}
}

// EnsureSlices 将nil切片替换为空切片（例如从JSON反序列化得到的记录）
func (r *ProfileRecord) EnsureSlices() {
	if r.Experience == nil {
		r.Experience = []string{}
	}
	if r.Skills == nil {
		r.Skills = []string{}
	}
	if r.Education == nil {
		r.Education = []string{}
	}
	if r.Certifications == nil {
		r.Certifications = []string{}
	}
}

// HasIdentity 姓名、标题、简介至少有一项非空
func (r ProfileRecord) HasIdentity() bool {
	return strings.TrimSpace(r.Name) != "" ||
		strings.TrimSpace(r.Headline) != "" ||
		strings.TrimSpace(r.About) != ""
}

// HasIdentityOrExperience 在 HasIdentity 的基础上，工作经历非空也算有效
func (r ProfileRecord) HasIdentityOrExperience() bool {
	return r.HasIdentity() || len(r.Experience) > 0
}

// ProfileSource 档案文本的来源
type ProfileSource string

const (
	SourceText ProfileSource = "text"
	SourcePDF  ProfileSource = "pdf"
	SourceOCR  ProfileSource = "ocr"
	SourceURL  ProfileSource = "url"
)

// Valid 判断来源是否为已知取值
func (s ProfileSource) Valid() bool {
	switch s {
	case SourceText, SourcePDF, SourceOCR, SourceURL:
		return true
	}
	return false
}
