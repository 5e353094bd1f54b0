package profiletext

import (
	"regexp"
	"strings"
)

var (
	nameWordPattern     = regexp.MustCompile(`^[A-Z][a-zA-Z\-'\.]*$`)
	nameStopwordPattern = regexp.MustCompile(`(?i)^(the|and|or|of|in|at|to|for|with|by|inc|llc|corp|ltd)$`)
	capitalStartPattern = regexp.MustCompile(`^[A-Z]`)
)

// 职位、职级关键字，按小写子串匹配
var headlineKeywords = []string{
	"manager", "developer", "engineer", "director", "specialist", "analyst",
	"consultant", "coordinator", "supervisor", "lead", "senior", "junior",
	"marketing", "sales", "product", "software", "data", "business",
	"executive", "officer", "administrator", "designer", "architect",
	"strategist", "expert", "professional", "associate", "assistant",
	"student", "intern", "freelancer", "entrepreneur", "founder", "ceo",
	"cto", "cfo", "vp", "vice president", "head of", "chief", "principal",
	"scientist", "researcher", "technician", "representative", "agent",
	"owner", "partner", "president", "team lead", "project manager",
}

var headlineSeparators = []string{"|", "•", "-", " at ", " @ "}

var jobSeekingPhrases = []string{"seeking", "looking for", "open to", "available for"}

// IsLikelyName 判断一行是否像人名：2-4个首字母大写的单词，不含冠词、介词和公司后缀
func IsLikelyName(line string) bool {
	var words []string
	for _, w := range strings.Split(line, " ") {
		if w != "" {
			words = append(words, w)
		}
	}
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		if !nameWordPattern.MatchString(w) || runeLen(w) <= 1 {
			return false
		}
		if nameStopwordPattern.MatchString(w) {
			return false
		}
	}
	return true
}

// IsLikelyHeadline 判断一行是否像职业标题
func IsLikelyHeadline(line string) bool {
	lower := strings.ToLower(line)

	signal := containsAny(lower, headlineKeywords) ||
		containsAny(line, headlineSeparators) ||
		containsAny(lower, jobSeekingPhrases)
	if !signal {
		return false
	}

	n := runeLen(line)
	if n < 8 || n > 150 {
		return false
	}

	// 标题形态：大写开头，不以句号结尾
	return capitalStartPattern.MatchString(line) &&
		(strings.Contains(line, " ") || n > 10) &&
		!strings.HasSuffix(line, ".")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
