package parser

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	markupPattern   = regexp.MustCompile(`<(?:[a-zA-Z][a-zA-Z0-9]*|/[a-zA-Z][a-zA-Z0-9]*)(?:\s[^<>]*)?/?>`)
	blockTagPattern = regexp.MustCompile(`(?i)<\s*(?:br\s*/?|/?(?:p|div|li|ul|ol|h[1-6]|tr|section|article|header|footer))(?:\s[^<>]*)?>`)

	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

func stripPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// ContainsMarkup 判断文本中是否包含HTML标签
func ContainsMarkup(text string) bool {
	return markupPattern.MatchString(text)
}

// StripMarkup 去掉粘贴文本中的HTML标签：块级元素变成换行，实体还原为字符
// 不含标签的文本原样返回
func StripMarkup(text string) string {
	if !ContainsMarkup(text) {
		return text
	}
	text = blockTagPattern.ReplaceAllString(text, "\n")
	text = stripPolicy().Sanitize(text)
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(manyNewlinesPattern.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
