package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"profile-insight-go/internal/types"
)

var (
	// ErrNoJSONObject 模型输出中找不到JSON对象
	ErrNoJSONObject = errors.New("模型输出中未找到JSON对象")
	// ErrInvalidAnalysis 模型输出的JSON缺少必需字段
	ErrInvalidAnalysis = errors.New("模型输出缺少必需字段")
)

var smartQuoteReplacer = strings.NewReplacer(
	"\u201c", "\"", "\u201d", "\"",
	"\u2018", "'", "\u2019", "'",
)

// stripCodeFence 去掉 BOM 与 ```json 代码块包裹
func stripCodeFence(text string) string {
	text = strings.TrimPrefix(strings.TrimSpace(text), "\uFEFF")
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// extractJSONObject 从第一个 { 开始按括号层级截取最外层对象
// 字符串字面量内的括号不计入层级
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON 修复模型常见的JSON瑕疵：
// 弯引号、字符串内部未转义的双引号、对象或数组末尾多余的逗号
func sanitizeJSON(src string) string {
	return removeTrailingCommas(escapeStrayQuotes(smartQuoteReplacer.Replace(src)))
}

// escapeStrayQuotes 将位于字符串字面量内部但并非真正结束的双引号写成 \"
// 通过下一个非空白字符是否为 : , ] } 判断该 " 是否为字符串的结束
func escapeStrayQuotes(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch {
		case c == '"' && !escaped:
			if !inStr {
				inStr = true
				b.WriteByte(c)
				break
			}
			j := i + 1
			for j < len(src) && isJSONSpace(src[j]) {
				j++
			}
			if j >= len(src) || src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}' {
				inStr = false
				b.WriteByte(c)
			} else {
				b.WriteString("\\\"")
			}
			escaped = false
		case c == '\\' && !escaped:
			escaped = true
			b.WriteByte(c)
		default:
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}

// removeTrailingCommas 删除字符串字面量之外、紧跟 ] 或 } 之前的逗号
func removeTrailingCommas(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inStr = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(src) && isJSONSpace(src[j]) {
				j++
			}
			if j < len(src) && (src[j] == ']' || src[j] == '}') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// rawAnalysis 模型原始输出，数值字段允许小数，缺失字段用指针区分
// careerMatches 同时接受 role/matchPercentage/description 这一组别名
type rawAnalysis struct {
	OverallScore  *float64 `json:"overallScore"`
	SectionScores *struct {
		Headline   float64 `json:"headline"`
		About      float64 `json:"about"`
		Experience float64 `json:"experience"`
		Skills     float64 `json:"skills"`
		Education  float64 `json:"education"`
	} `json:"sectionScores"`
	Rewrites struct {
		Headline string `json:"headline"`
		About    string `json:"about"`
	} `json:"rewrites"`
	Insights             []string         `json:"insights"`
	StrongSkills         []string         `json:"strongSkills"`
	MissingSkills        []string         `json:"missingSkills"`
	SkillRecommendations []string         `json:"skillRecommendations"`
	CareerMatches        []rawCareerMatch `json:"careerMatches"`
	KeywordGaps          []string         `json:"keywordGaps"`
	ATSScore             *float64         `json:"atsScore"`
	TargetRoleFit        *string          `json:"targetRoleFit"`
}

type rawCareerMatch struct {
	Title           string   `json:"title"`
	Role            string   `json:"role"`
	MatchScore      *float64 `json:"matchScore"`
	MatchPercentage *float64 `json:"matchPercentage"`
	Reason          string   `json:"reason"`
	Description     string   `json:"description"`
}

// decodeAnalysis 解析模型输出：先原样解析，失败后清洗再试一次
func decodeAnalysis(content string) (*types.AnalysisResult, error) {
	jsonStr := extractJSONObject(stripCodeFence(content))
	if jsonStr == "" {
		return nil, ErrNoJSONObject
	}
	jsonStr = strings.ToValidUTF8(jsonStr, "")

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		sanitized := sanitizeJSON(jsonStr)
		raw = rawAnalysis{}
		if err2 := json.Unmarshal([]byte(sanitized), &raw); err2 != nil {
			return nil, fmt.Errorf("解析模型JSON失败: %w (清洗后: %v)", err, err2)
		}
	}

	return normalize(&raw)
}

// normalize 校验必需字段并把分数收敛到 0..100
func normalize(raw *rawAnalysis) (*types.AnalysisResult, error) {
	if raw.OverallScore == nil {
		return nil, fmt.Errorf("%w: overallScore", ErrInvalidAnalysis)
	}
	if raw.SectionScores == nil {
		return nil, fmt.Errorf("%w: sectionScores", ErrInvalidAnalysis)
	}

	result := &types.AnalysisResult{
		OverallScore: clampScore(*raw.OverallScore),
		SectionScores: types.SectionScores{
			Headline:   clampScore(raw.SectionScores.Headline),
			About:      clampScore(raw.SectionScores.About),
			Experience: clampScore(raw.SectionScores.Experience),
			Skills:     clampScore(raw.SectionScores.Skills),
			Education:  clampScore(raw.SectionScores.Education),
		},
		Rewrites: types.Rewrites{
			Headline: strings.TrimSpace(raw.Rewrites.Headline),
			About:    strings.TrimSpace(raw.Rewrites.About),
		},
		Insights:             cleanList(raw.Insights),
		StrongSkills:         cleanList(raw.StrongSkills),
		MissingSkills:        cleanList(raw.MissingSkills),
		SkillRecommendations: cleanList(raw.SkillRecommendations),
		CareerMatches:        make([]types.CareerMatch, 0, len(raw.CareerMatches)),
	}

	for _, m := range raw.CareerMatches {
		title := firstNonEmpty(m.Title, m.Role)
		if title == "" {
			continue
		}
		score := 0.0
		if m.MatchScore != nil {
			score = *m.MatchScore
		} else if m.MatchPercentage != nil {
			score = *m.MatchPercentage
		}
		result.CareerMatches = append(result.CareerMatches, types.CareerMatch{
			Title:      title,
			MatchScore: clampScore(score),
			Reason:     firstNonEmpty(m.Reason, m.Description),
		})
	}

	if len(raw.KeywordGaps) > 0 {
		result.KeywordGaps = cleanList(raw.KeywordGaps)
	}
	if raw.ATSScore != nil {
		ats := clampScore(*raw.ATSScore)
		result.ATSScore = &ats
	}
	if raw.TargetRoleFit != nil {
		if fit := strings.TrimSpace(*raw.TargetRoleFit); fit != "" {
			result.TargetRoleFit = &fit
		}
	}

	return result, nil
}

func clampScore(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

// cleanList 去掉空白项，始终返回非 nil 切片
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
