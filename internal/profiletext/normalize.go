// Package profiletext 将非结构化的职业档案文本（PDF提取、OCR、网页抓取得到的文本）
// 解析为结构化的 types.ProfileRecord。
//
// 解析是单遍、纯内存的启发式过程：
// 行规范化 -> 姓名/标题识别 -> 章节边界识别 -> 按章节累积 -> 收尾整理。
// 解析永远不会失败，最坏情况下返回各字段为空的记录，是否拒绝空结果由调用方决定。
package profiletext

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// 噪声行：LinkedIn页面上的按钮、计数器、时间戳和孤立符号
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\d+\s*(connection|follower|view|like)s?\s*$`),
	regexp.MustCompile(`(?i)^(linkedin|view profile|connect|message|edit profile)$`),
	regexp.MustCompile(`(?i)^(home|posts|activity|recommendations)$`),
	regexp.MustCompile(`^\s*[•\-·]\s*$`),
	regexp.MustCompile(`^[^\w\s]*$`),
	regexp.MustCompile(`(?i)^\d{1,2}:\d{2}\s*(am|pm)$`),
	regexp.MustCompile(`^[\s\-•·]+$`),
}

var (
	phonePattern   = regexp.MustCompile(`^[\+]?[\d\s\-\(\)]{10,}$`)
	usPhonePattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)
)

// runeLen 按Unicode码点计算长度
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// IsNoise 判断一行是否为无内容的界面噪声
func IsNoise(line string) bool {
	if runeLen(line) < 1 {
		return true
	}
	for _, p := range noisePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// IsContactInfo 判断一行是否为联系方式（邮箱、链接、电话）
func IsContactInfo(line string) bool {
	if strings.Contains(line, "@") && strings.Contains(line, ".") {
		return true
	}
	if strings.Contains(line, "linkedin.com") || strings.Contains(line, "http") {
		return true
	}
	return phonePattern.MatchString(line) || usPhonePattern.MatchString(line)
}

// SplitLines 按换行切分并去除首尾空白，丢弃空行
func SplitLines(raw string) []string {
	parts := strings.Split(raw, "\n")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}

// NormalizeLines 切分文本并过滤噪声行，返回按文档顺序排列的有效行和丢弃的噪声行数
func NormalizeLines(raw string) (lines []string, noise int) {
	lines = SplitLines(raw)
	kept := lines[:0]
	for _, l := range lines {
		if IsNoise(l) {
			noise++
			continue
		}
		kept = append(kept, l)
	}
	return kept, noise
}
