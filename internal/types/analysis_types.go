package types

// SectionScores 各板块评分 (0-100)
type SectionScores struct {
	Headline   int `json:"headline"`
	About      int `json:"about"`
	Experience int `json:"experience"`
	Skills     int `json:"skills"`
	Education  int `json:"education"`
}

// Rewrites 模型给出的改写建议
type Rewrites struct {
	Headline string `json:"headline"`
	About    string `json:"about"`
}

// CareerMatch 职业方向匹配
type CareerMatch struct {
	Title      string `json:"title"`
	MatchScore int    `json:"matchScore"`
	Reason     string `json:"reason"`
}

// AnalysisResult 档案分析结果
// 模型返回的JSON会被校验并归一化到该固定结构，可选字段使用指针或 omitempty
type AnalysisResult struct {
	OverallScore         int           `json:"overallScore"`
	SectionScores        SectionScores `json:"sectionScores"`
	Rewrites             Rewrites      `json:"rewrites"`
	Insights             []string      `json:"insights"`
	StrongSkills         []string      `json:"strongSkills"`
	MissingSkills        []string      `json:"missingSkills"`
	SkillRecommendations []string      `json:"skillRecommendations"`
	CareerMatches        []CareerMatch `json:"careerMatches"`

	// 可选字段
	KeywordGaps   []string `json:"keywordGaps,omitempty"`
	ATSScore      *int     `json:"atsScore,omitempty"`
	TargetRoleFit *string  `json:"targetRoleFit,omitempty"`

	// 服务端填充
	Fallback bool   `json:"fallback"`
	Model    string `json:"model,omitempty"`
}
