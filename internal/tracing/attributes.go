package tracing

import (
	"net/url"
	"path"
	"strings"

	"profile-insight-go/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// span 属性长度上限
const (
	MaxSQLLength = 500
	MaxURLLength = 200
)

// ProfileAttributes 档案的结构统计，只记录数量不记录内容
func ProfileAttributes(r types.ProfileRecord) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool("profile.has_name", r.Name != ""),
		attribute.Bool("profile.has_headline", r.Headline != ""),
		attribute.Bool("profile.has_about", r.About != ""),
		attribute.Int("profile.experience_count", len(r.Experience)),
		attribute.Int("profile.skills_count", len(r.Skills)),
		attribute.Int("profile.education_count", len(r.Education)),
		attribute.Int("profile.certifications_count", len(r.Certifications)),
	}
}

// SafeURL 去掉用户信息、查询串和片段后截断
// 档案URL的路径通常带有用户标识，只保留主机和路径
func SafeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return TruncateString(raw, MaxURLLength)
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return TruncateString(u.String(), MaxURLLength)
}

// SafeFileName 上传文件名常常就是候选人姓名，掩码后保留扩展名
func SafeFileName(name string) string {
	if name == "" {
		return ""
	}
	ext := path.Ext(name)
	return MaskPII(strings.TrimSuffix(name, ext)) + ext
}

// SafeSQL 截断SQL语句
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// MaskPII 保留首尾字符，中间用 * 替换
func MaskPII(value string) string {
	runes := []rune(value)
	n := len(runes)
	switch {
	case n == 0:
		return ""
	case n == 1:
		return "*"
	case n == 2:
		return string(runes[0]) + "*"
	case n <= 4:
		return string(runes[0]) + strings.Repeat("*", n-2) + string(runes[n-1])
	}
	// "jane@example.com" -> "ja************om"
	return string(runes[:2]) + strings.Repeat("*", n-4) + string(runes[n-2:])
}

// TruncateString 超长时保留首尾，中间用 ... 连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	half := max((maxLength-3)/2, 1)
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}
