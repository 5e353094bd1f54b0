package parser

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	manyNewlinesPattern = regexp.MustCompile(`\n{3,}`)
	manySpacesPattern   = regexp.MustCompile(`[ \t]{2,}`)
	pageNumberPattern   = regexp.MustCompile(`(?i)page \d+ of \d+`)
	generatedOnPattern  = regexp.MustCompile(`(?i)generated on .*`)
	resumeWordPattern   = regexp.MustCompile(`(?i)\bresume\b`)
	linkedInWordPattern = regexp.MustCompile(`(?i)\blinkedin\b`)
	ruleLinePattern     = regexp.MustCompile(`^[\s\-_=]*$`)
	digitLinePattern    = regexp.MustCompile(`^\d+$`)
)

// CleanExtractedText 清理PDF提取出的原始文本：
// NFKC 归一化（连字 ﬁ 变为 fi），统一换行，压缩空白，去掉页码和导出标记，
// 去掉控制字符，过滤分隔线和页码行
func CleanExtractedText(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = pageNumberPattern.ReplaceAllString(text, "")
	text = generatedOnPattern.ReplaceAllString(text, "")
	text = resumeWordPattern.ReplaceAllString(text, "")
	text = linkedInWordPattern.ReplaceAllString(text, "")

	text = strings.Map(func(r rune) rune {
		switch r {
		case '\f':
			return '\n'
		case '\x00':
			return -1
		case '\u00a0':
			return ' '
		}
		return r
	}, text)

	text = manySpacesPattern.ReplaceAllString(text, " ")
	text = manyNewlinesPattern.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			// 段落间的空行保留，最终由解析器丢弃
			kept = append(kept, "")
			continue
		}
		if ruleLinePattern.MatchString(trimmed) || digitLinePattern.MatchString(trimmed) {
			continue
		}
		if len([]rune(trimmed)) <= 1 && !strings.ContainsFunc(trimmed, unicode.IsLetter) {
			continue
		}
		kept = append(kept, trimmed)
	}

	text = strings.Join(kept, "\n")
	text = manyNewlinesPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
