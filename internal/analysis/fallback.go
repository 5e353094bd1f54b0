package analysis

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"profile-insight-go/internal/types"
)

// FallbackModelName 兜底结果的 Model 字段
const FallbackModelName = "heuristic"

var defaultMissingSkills = []string{"Leadership", "Project Management", "Data Analysis"}

var fallbackRecommendations = []string{
	"Consider obtaining certifications in your core competencies",
	"Develop leadership and management skills",
	"Stay current with industry trends and technologies",
}

// 各板块在总分中的权重
const (
	weightHeadline   = 0.20
	weightAbout      = 0.20
	weightExperience = 0.30
	weightSkills     = 0.20
	weightEducation  = 0.10
)

// FallbackAnalysis 在模型输出不可用时，根据档案完整度给出确定性的评估
// 相同输入总是得到相同输出
func FallbackAnalysis(record types.ProfileRecord) *types.AnalysisResult {
	record.EnsureSlices()

	scores := types.SectionScores{
		Headline:   scoreHeadline(record.Headline),
		About:      scoreAbout(record.About),
		Experience: scoreExperience(len(record.Experience)),
		Skills:     scoreSkills(len(record.Skills)),
		Education:  scoreEducation(len(record.Education)),
	}
	overall := float64(scores.Headline)*weightHeadline +
		float64(scores.About)*weightAbout +
		float64(scores.Experience)*weightExperience +
		float64(scores.Skills)*weightSkills +
		float64(scores.Education)*weightEducation

	headlineSubject := record.Headline
	if strings.TrimSpace(headlineSubject) == "" {
		headlineSubject = "your field"
	}
	topSkills := headN(record.Skills, 3)
	aboutRewrite := "Professional summary highlighting your key achievements and expertise."
	if len(topSkills) > 0 {
		aboutRewrite = fmt.Sprintf("Professional summary highlighting your key achievements and expertise in %s.", strings.Join(topSkills, ", "))
	}

	result := &types.AnalysisResult{
		OverallScore:  int(math.Round(overall)),
		SectionScores: scores,
		Rewrites: types.Rewrites{
			Headline: fmt.Sprintf("Experienced professional in %s with expertise in delivering results", headlineSubject),
			About:    aboutRewrite,
		},
		Insights:             fallbackInsights(record),
		StrongSkills:         headN(record.Skills, 5),
		MissingSkills:        missingFrom(record.Skills, defaultMissingSkills),
		SkillRecommendations: append([]string(nil), fallbackRecommendations...),
		CareerMatches: []types.CareerMatch{{
			Title:      "Senior Professional",
			MatchScore: int(math.Round(overall)),
			Reason:     "Advanced role matching your current skill set and experience level.",
		}},
		Fallback: true,
		Model:    FallbackModelName,
	}
	return result
}

func scoreHeadline(headline string) int {
	n := utf8.RuneCountInString(strings.TrimSpace(headline))
	switch {
	case n == 0:
		return 20
	case n < 20:
		return 60
	default:
		return 80
	}
}

func scoreAbout(about string) int {
	n := utf8.RuneCountInString(strings.TrimSpace(about))
	switch {
	case n == 0:
		return 20
	case n < 200:
		return 60
	default:
		return 80
	}
}

func scoreExperience(entries int) int {
	switch {
	case entries == 0:
		return 20
	case entries == 1:
		return 60
	case entries < 3:
		return 75
	default:
		return 85
	}
}

func scoreSkills(count int) int {
	switch {
	case count == 0:
		return 20
	case count < 5:
		return 55
	case count < 10:
		return 70
	default:
		return 85
	}
}

func scoreEducation(entries int) int {
	if entries == 0 {
		return 40
	}
	return 80
}

func fallbackInsights(record types.ProfileRecord) []string {
	insights := make([]string, 0, 4)
	if strings.TrimSpace(record.Headline) == "" {
		insights = append(insights, "Add a headline that states your role and focus area")
	}
	if strings.TrimSpace(record.About) == "" {
		insights = append(insights, "Professional summary is missing; add an About section")
	} else {
		insights = append(insights, "Professional summary could be more compelling")
	}
	if len(record.Experience) == 0 {
		insights = append(insights, "List your work experience with dates and responsibilities")
	} else {
		insights = append(insights, "Consider adding more quantified achievements")
	}
	if len(record.Skills) < 5 {
		insights = append(insights, "List more skills so recruiters can find your profile")
	}
	return insights
}

func headN(items []string, n int) []string {
	if len(items) < n {
		n = len(items)
	}
	out := make([]string, n)
	copy(out, items[:n])
	return out
}

// missingFrom 返回 candidates 中不在 have 里的项（忽略大小写）
func missingFrom(have, candidates []string) []string {
	present := make(map[string]struct{}, len(have))
	for _, h := range have {
		present[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := present[strings.ToLower(c)]; !ok {
			out = append(out, c)
		}
	}
	return out
}
