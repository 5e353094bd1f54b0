package profiletext

import (
	"strings"

	"profile-insight-go/internal/types"
)

// 各字段上限
const (
	MaxExperience     = 30
	MaxSkills         = 100
	MaxEducation      = 15
	MaxCertifications = 30
)

// Clean 去重、过滤过短条目并截断到上限；对同一记录重复执行结果不变
func Clean(r types.ProfileRecord) types.ProfileRecord {
	return types.ProfileRecord{
		Name:           strings.TrimSpace(r.Name),
		Headline:       strings.TrimSpace(r.Headline),
		About:          strings.TrimSpace(r.About),
		Experience:     dedupeFilterCap(r.Experience, 3, MaxExperience),
		Skills:         dedupeFilterCap(r.Skills, 1, MaxSkills),
		Education:      dedupeFilterCap(r.Education, 3, MaxEducation),
		Certifications: dedupeFilterCap(r.Certifications, 0, MaxCertifications),
	}
}

// dedupeFilterCap 保留首次出现的顺序去重，丢弃去空白后长度不超过 minLen 的条目，最多保留 limit 条
func dedupeFilterCap(items []string, minLen, limit int) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		if runeLen(strings.TrimSpace(it)) <= minLen {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}
