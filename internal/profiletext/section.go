package profiletext

import "strings"

// Section 解析状态机当前所处的章节
type Section int

const (
	SectionNone Section = iota
	SectionAbout
	SectionExperience
	SectionSkills
	SectionEducation
	SectionCertifications
)

func (s Section) String() string {
	switch s {
	case SectionAbout:
		return "about"
	case SectionExperience:
		return "experience"
	case SectionSkills:
		return "skills"
	case SectionEducation:
		return "education"
	case SectionCertifications:
		return "certifications"
	default:
		return "none"
	}
}

// sectionVocabulary 章节标题词表，检测顺序即切片顺序
var sectionVocabulary = []struct {
	section Section
	terms   []string
}{
	{SectionAbout, []string{"about", "summary", "profile summary", "professional summary", "overview"}},
	{SectionExperience, []string{"experience", "work experience", "professional experience", "work history", "employment", "career history"}},
	{SectionSkills, []string{"skills", "technical skills", "core competencies", "expertise", "proficiencies", "technologies"}},
	{SectionEducation, []string{"education", "academic background", "academic", "university", "college", "school"}},
	{SectionCertifications, []string{"certification", "certifications", "certificate", "certificates", "license", "licenses", "credentials"}},
}

// headerSlack 包含词条的行最多可比词条长出的字符数（不含）
const headerSlack = 15

// matchesHeader 判断小写行是否为某个词条对应的章节标题
func matchesHeader(lower, term string) bool {
	switch {
	case lower == term, lower == term+":":
		return true
	case strings.HasPrefix(lower, term+" "):
		return true
	}
	// 长句中顺带提到的词条不算标题
	return strings.Contains(lower, term) && runeLen(lower) < runeLen(term)+headerSlack
}

// DetectSection 判断一行是否为章节标题，返回对应章节
func DetectSection(line string) (Section, bool) {
	lower := strings.ToLower(line)
	for _, v := range sectionVocabulary {
		for _, term := range v.terms {
			if matchesHeader(lower, term) {
				return v.section, true
			}
		}
	}
	return SectionNone, false
}
