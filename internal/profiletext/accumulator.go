package profiletext

import (
	"strings"

	"profile-insight-go/internal/types"
)

// 条目保留的最小长度（不含）
const (
	minExperienceEntryLen = 5
	minEducationEntryLen  = 3
)

// aboutFallbackMinLen 未进入任何章节时，长于该值的行可作为简介兜底
const aboutFallbackMinLen = 15

// accumulator 按章节累积行内容的状态机，每次解析新建一个
type accumulator struct {
	record  *types.ProfileRecord
	section Section

	// about/skills/certifications 的内容缓冲
	content []string
	// experience/education 当前条目的缓冲
	entry []string

	// entryHeaderOpen 当前工作经历条目只有一行不带日期的职位
	// 此时紧跟的一行公司/日期属于同一条目
	entryHeaderOpen bool

	stats *Stats
}

func newAccumulator(record *types.ProfileRecord, stats *Stats) *accumulator {
	return &accumulator{record: record, stats: stats}
}

// enter 结束当前章节并切换到新章节
func (a *accumulator) enter(next Section) {
	a.finalize()
	a.section = next
	a.content = nil
	a.entry = nil
	a.entryHeaderOpen = false
	a.stats.Sections = append(a.stats.Sections, next.String())
}

// add 处理一行非标题内容
func (a *accumulator) add(line string) {
	switch a.section {
	case SectionExperience:
		a.addExperience(line)
	case SectionEducation:
		if IsEducationEntry(line) {
			a.flushEntry()
		}
		a.entry = append(a.entry, line)
	case SectionAbout, SectionSkills, SectionCertifications:
		a.content = append(a.content, line)
	default:
		if a.record.About == "" && runeLen(line) > aboutFallbackMinLen &&
			!IsLikelyHeadline(line) && !IsLikelyName(line) {
			a.record.About = line
		}
	}
}

func (a *accumulator) addExperience(line string) {
	sig := detectJobSignals(line)
	if !sig.any() || !inEntryLength(line) {
		// 描述行之后的公司或日期行开始新条目
		a.entry = append(a.entry, line)
		a.entryHeaderOpen = false
		return
	}

	// 只有职位行时，紧跟的一行 "公司 | 起止时间" 补全当前条目
	if a.entryHeaderOpen && len(a.entry) > 0 && !sig.title {
		a.entry = append(a.entry, line)
		a.entryHeaderOpen = false
		return
	}

	a.flushEntry()
	a.entry = append(a.entry, line)
	a.entryHeaderOpen = sig.title && !sig.date
}

// flushEntry 将当前条目缓冲写入对应字段并清空
func (a *accumulator) flushEntry() {
	if len(a.entry) == 0 {
		return
	}
	text := strings.TrimSpace(strings.Join(a.entry, "\n"))
	a.entry = nil
	a.entryHeaderOpen = false

	switch a.section {
	case SectionExperience:
		if runeLen(text) > minExperienceEntryLen {
			a.record.Experience = append(a.record.Experience, text)
		}
	case SectionEducation:
		if runeLen(text) > minEducationEntryLen {
			a.record.Education = append(a.record.Education, text)
		}
	}
}

// finalize 将当前章节缓冲的内容落到记录中
func (a *accumulator) finalize() {
	switch a.section {
	case SectionExperience, SectionEducation:
		a.flushEntry()
	case SectionAbout:
		text := strings.TrimSpace(strings.Join(a.content, " "))
		if a.record.About == "" && text != "" {
			a.record.About = text
		}
	case SectionSkills:
		text := strings.TrimSpace(strings.Join(a.content, " "))
		a.record.Skills = append(a.record.Skills, ParseSkills(text)...)
	case SectionCertifications:
		for _, l := range a.content {
			if strings.TrimSpace(l) != "" {
				a.record.Certifications = append(a.record.Certifications, l)
			}
		}
	}
	a.content = nil
}
