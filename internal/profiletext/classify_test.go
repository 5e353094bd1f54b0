package profiletext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNoise(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"500 connections", true},
		{"12 followers", true},
		{"1 like", true},
		{"View Profile", true},
		{"LinkedIn", true},
		{"Home", true},
		{"•", true},
		{"---", true},
		{"—", true},
		{"3:45 PM", true},
		{"", true},
		{"Go", false},
		{"500+ connections", false},
		{"Senior Engineer", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNoise(tt.line), "IsNoise(%q)", tt.line)
	}
}

func TestIsContactInfo(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"jane@example.com", true},
		{"https://example.com", true},
		{"linkedin.com/in/jane", true},
		{"555-123-4567", true},
		{"(555) 123 4567", true},
		{"+44 20 7946 0958", true},
		{"Senior Engineer", false},
		{"Reach me @ the office", false},
		{"2019 - Present", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsContactInfo(tt.line), "IsContactInfo(%q)", tt.line)
	}
}

func TestNormalizeLines(t *testing.T) {
	raw := "  Jane Doe  \n\n\t\nView profile\n 42 connections \nProduct Manager\r"
	lines, noise := NormalizeLines(raw)
	assert.Equal(t, []string{"Jane Doe", "Product Manager"}, lines)
	assert.Equal(t, 2, noise)
}

func TestIsLikelyName(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Jane A. Doe", true},
		{"Mary-Jane O'Neil", true},
		{"Jean  Luc Picard", true},
		{"Jane", false},
		{"Jane doe", false},
		{"The Best Company", false},
		{"Acme Corp", false},
		{"A B", false},
		{"John Ronald Reuel Tolkien Jr", false},
		{"Jane Doe, PhD", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsLikelyName(tt.line), "IsLikelyName(%q)", tt.line)
	}
}

func TestIsLikelyHeadline(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Senior Software Engineer at Acme Corp", true},
		{"Open to new opportunities", true},
		{"Dev | Ops", true},
		{"Builds scalable systems.", false},
		{"Product Manager.", false},
		{"engineer at acme", false},
		{"CEO", false},
		{"Gardening enthusiast", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsLikelyHeadline(tt.line), "IsLikelyHeadline(%q)", tt.line)
	}
}

func TestDetectSection(t *testing.T) {
	tests := []struct {
		line   string
		want   Section
		header bool
	}{
		{"About", SectionAbout, true},
		{"Summary:", SectionAbout, true},
		{"Work Experience", SectionExperience, true},
		{"Skills & Endorsements", SectionSkills, true},
		{"Education", SectionEducation, true},
		{"Licenses & certifications", SectionCertifications, true},
		{"abcdefghijklm skills", SectionSkills, true},
		{"abcdefghijklmn skills", SectionNone, false},
		{"I have extensive experience in distributed systems", SectionNone, false},
		{"Led migration.", SectionNone, false},
	}
	for _, tt := range tests {
		got, ok := DetectSection(tt.line)
		assert.Equal(t, tt.header, ok, "DetectSection(%q) 是否为标题", tt.line)
		assert.Equal(t, tt.want, got, "DetectSection(%q) 章节", tt.line)
	}
}

func TestSectionString(t *testing.T) {
	assert.Equal(t, "none", SectionNone.String())
	assert.Equal(t, "certifications", SectionCertifications.String())
}

func TestIsJobEntry(t *testing.T) {
	assert.True(t, IsJobEntry("Acme Corp | 2020 - Present"))
	assert.True(t, IsJobEntry("Jan 2019"))
	assert.True(t, IsJobEntry("Senior Engineer"))
	assert.True(t, IsJobEntry("Globex Solutions"))
	assert.False(t, IsJobEntry("Led migration."))
	assert.False(t, IsJobEntry("VP"), "长度不超过3的行不算条目")
}

func TestIsEducationEntry(t *testing.T) {
	assert.True(t, IsEducationEntry("GPA: 3.9"))
	assert.True(t, IsEducationEntry("Class of 2015"))
	assert.True(t, IsEducationEntry("Stanford University"))
	assert.False(t, IsEducationEntry("Volunteered weekly"))
}

func TestParseSkills(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"逗号分隔", "Go, Rust, Kubernetes", []string{"Go", "Rust", "Kubernetes"}},
		{"混合分隔符", "Python/Go, Data-Analysis; SQL", []string{"Python", "Go", "Data", "Analysis", "SQL"}},
		{"项目符号与括号", "Leadership & Communication • Public Speaking (Advanced)", []string{"Leadership", "Communication", "Public Speaking", "Advanced"}},
		{"过滤停用词数字和单字符", "and, or, 2020, C, R&D", []string{}},
		{"空文本", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSkills(tt.in))
		})
	}
}
