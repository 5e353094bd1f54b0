package profiletext

import (
	"profile-insight-go/internal/types"
)

// Stats 一次解析的统计信息，用于日志和调试
type Stats struct {
	Lines        int      `json:"lines"`
	NoiseLines   int      `json:"noise_lines"`
	ContactLines int      `json:"contact_lines"`
	Sections     []string `json:"sections"`
}

// Result 解析结果
type Result struct {
	Record types.ProfileRecord
	Stats  Stats
}

// ParseProfileText 将原始文本解析为结构化档案，永远不会失败
func ParseProfileText(raw string) types.ProfileRecord {
	return Parse(raw).Record
}

// Parse 与 ParseProfileText 相同，额外返回统计信息
func Parse(raw string) Result {
	record := types.NewProfileRecord()
	stats := Stats{Sections: []string{}}
	acc := newAccumulator(&record, &stats)

	lines, noise := NormalizeLines(raw)
	stats.Lines = len(lines) + noise
	stats.NoiseLines = noise

	for _, line := range lines {
		// 联系方式先于姓名、标题和章节识别被跳过
		if IsContactInfo(line) {
			stats.ContactLines++
			continue
		}

		if record.Name == "" && IsLikelyName(line) {
			record.Name = line
			continue
		}
		if record.Name != "" && record.Headline == "" && IsLikelyHeadline(line) {
			record.Headline = line
			continue
		}

		if next, ok := DetectSection(line); ok {
			acc.enter(next)
			continue
		}

		acc.add(line)
	}

	acc.finalize()

	return Result{Record: Clean(record), Stats: stats}
}
