package analysis

import (
	"fmt"
	"strings"

	"profile-insight-go/internal/types"
)

// SystemPrompt 分析请求使用的系统提示词
const SystemPrompt = "You are a professional LinkedIn profile analyzer and career coach. " +
	"Provide detailed, actionable feedback in the exact JSON format requested."

const responseSchema = `{
  "overallScore": number (0-100),
  "sectionScores": {
    "headline": number (0-100),
    "about": number (0-100),
    "experience": number (0-100),
    "skills": number (0-100),
    "education": number (0-100)
  },
  "rewrites": {
    "headline": "Professional rewrite of the headline",
    "about": "Professional rewrite of the about section"
  },
  "insights": ["Key insight about the profile"],
  "strongSkills": ["5-7 strongest skills identified"],
  "missingSkills": ["5-7 skills missing for career advancement"],
  "skillRecommendations": ["Specific recommendation for skill development"],
  "careerMatches": [
    {
      "title": "Job title that matches the profile",
      "matchScore": number (0-100),
      "reason": "Why this role is a good fit"
    }
  ],
  "keywordGaps": ["Keywords recruiters search for that the profile lacks"],
  "atsScore": number (0-100)%s
}`

const guidelines = `Analysis Guidelines:
1. Be objective and constructive in your assessment
2. Focus on professional growth opportunities
3. Provide specific, actionable recommendations
4. Identify both strengths and areas for improvement
5. Suggest 2-3 career matches that align with the profile
6. Ensure all scores are realistic and well-reasoned
7. Make rewrites professional, engaging, and ATS-friendly`

// BuildPrompt 将档案内容与期望的JSON结构渲染为用户提示词
// targetRole 非空时额外要求模型评估与目标岗位的契合度
func BuildPrompt(record types.ProfileRecord, targetRole string) string {
	targetRole = strings.TrimSpace(targetRole)

	var b strings.Builder
	b.WriteString("Analyze the following LinkedIn profile and provide a comprehensive assessment in JSON format.\n\n")

	b.WriteString("Profile Data:\n")
	fmt.Fprintf(&b, "- Name: %s\n", record.Name)
	fmt.Fprintf(&b, "- Headline: %s\n", record.Headline)
	fmt.Fprintf(&b, "- About: %s\n", record.About)
	fmt.Fprintf(&b, "- Experience: %s\n", strings.Join(record.Experience, "\n\n"))
	fmt.Fprintf(&b, "- Skills: %s\n", strings.Join(record.Skills, ", "))
	fmt.Fprintf(&b, "- Education: %s\n", strings.Join(record.Education, "\n"))
	if len(record.Certifications) > 0 {
		fmt.Fprintf(&b, "- Certifications: %s\n", strings.Join(record.Certifications, "\n"))
	}

	if targetRole != "" {
		fmt.Fprintf(&b, "\nTarget Role: %s\n", targetRole)
		b.WriteString("Weigh every score and recommendation against this target role.\n")
	}

	b.WriteString("\nPlease analyze this profile and return a JSON object with the following structure:\n\n")
	extra := ""
	if targetRole != "" {
		extra = ",\n  \"targetRoleFit\": \"Short assessment of fit for the target role\""
	}
	fmt.Fprintf(&b, responseSchema, extra)
	b.WriteString("\n\n")
	b.WriteString(guidelines)
	b.WriteString("\n\nReturn only the JSON object, no additional text or formatting.\n")

	return b.String()
}
