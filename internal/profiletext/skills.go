package profiletext

import (
	"regexp"
	"strings"
)

// 技能文本的分隔符，按顺序逐轮切分
var skillDelimiters = []string{
	",", "•", "|", ";", "\n", "·", "/", "&", "\\", "+", ":", "–", "-",
	"(", ")", "[", "]", "{", "}",
}

var (
	digitsOnlyPattern    = regexp.MustCompile(`^\d+$`)
	skillStopwordPattern = regexp.MustCompile(`(?i)^(and|or|the|of|in|at|to|for|with|by|a|an)$`)
	hasLetterPattern     = regexp.MustCompile(`[a-zA-Z]`)
)

const (
	maxSkillLen    = 100
	maxSkillTokens = 100
)

// ParseSkills 将技能文本切分为技能列表
func ParseSkills(text string) []string {
	parts := []string{text}
	for _, d := range skillDelimiters {
		next := make([]string, 0, len(parts))
		for _, p := range parts {
			next = append(next, strings.Split(p, d)...)
		}
		parts = next
	}

	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		n := runeLen(p)
		if n <= 1 || n >= maxSkillLen {
			continue
		}
		if IsNoise(p) || digitsOnlyPattern.MatchString(p) || skillStopwordPattern.MatchString(p) {
			continue
		}
		if !hasLetterPattern.MatchString(p) {
			continue
		}
		skills = append(skills, p)
		if len(skills) == maxSkillTokens {
			break
		}
	}
	return skills
}
