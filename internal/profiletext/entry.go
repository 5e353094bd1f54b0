package profiletext

import "regexp"

var (
	jobTitleStartPattern = regexp.MustCompile(`(?i)^(senior|junior|lead|principal|chief|head of|vp|vice president|director|manager|engineer|developer|analyst|specialist|consultant|coordinator|assistant|associate|intern)`)
	jobTitleWordPattern  = regexp.MustCompile(`(?i)\b(manager|engineer|developer|analyst|specialist|consultant|director|coordinator|assistant|associate|lead|senior|junior|intern|owner|partner|president)\b`)
	companyPattern       = regexp.MustCompile(`(?i)(inc\.|llc|corp\.|company|ltd\.|organization|university|college|institute|group|solutions|systems|technologies|services|consulting|agency|firm)`)

	monthYearPattern = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\s+\d{4}`)
	bareYearPattern  = regexp.MustCompile(`\b\d{4}\b`)

	jobDatePatterns = []*regexp.Regexp{
		monthYearPattern,
		regexp.MustCompile(`(?i)\d{4}\s*[-–]\s*(\d{4}|present|current)`),
		regexp.MustCompile(`\d{1,2}/\d{4}`),
		bareYearPattern,
	}

	degreePattern      = regexp.MustCompile(`(?i)(bachelor|master|phd|doctorate|associate|certificate|diploma|degree|b\.?s\.?|b\.?a\.?|m\.?s\.?|m\.?a\.?|m\.?b\.?a\.?|ph\.?d\.?|high school|hs)`)
	institutionPattern = regexp.MustCompile(`(?i)(university|college|institute|school|academy|tech|polytechnic)`)
	academicPattern    = regexp.MustCompile(`(?i)(major|minor|gpa|honors|magna cum laude|summa cum laude|dean's list|graduated|graduation)`)

	educationDatePatterns = []*regexp.Regexp{
		monthYearPattern,
		regexp.MustCompile(`\d{4}\s*[-–]\s*\d{4}`),
		regexp.MustCompile(`(?i)class of \d{4}`),
		bareYearPattern,
	}
)

// 条目行的长度范围（不含边界）
const (
	entryMinLen = 3
	entryMaxLen = 300
)

// jobSignals 一行工作经历文本命中的特征
type jobSignals struct {
	title   bool
	company bool
	date    bool
}

func (s jobSignals) any() bool {
	return s.title || s.company || s.date
}

func inEntryLength(line string) bool {
	n := runeLen(line)
	return n > entryMinLen && n < entryMaxLen
}

func matchAny(line string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func detectJobSignals(line string) jobSignals {
	return jobSignals{
		title:   jobTitleStartPattern.MatchString(line) || jobTitleWordPattern.MatchString(line),
		company: companyPattern.MatchString(line),
		date:    matchAny(line, jobDatePatterns),
	}
}

// IsJobEntry 判断一行是否可能开始一条新的工作经历
func IsJobEntry(line string) bool {
	return detectJobSignals(line).any() && inEntryLength(line)
}

// IsEducationEntry 判断一行是否可能开始一条新的教育经历
func IsEducationEntry(line string) bool {
	hit := degreePattern.MatchString(line) ||
		institutionPattern.MatchString(line) ||
		academicPattern.MatchString(line) ||
		matchAny(line, educationDatePatterns)
	return hit && inEntryLength(line)
}
