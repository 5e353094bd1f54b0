package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_RendersProfile(t *testing.T) {
	r := sampleRecord()
	r.Experience = append(r.Experience, "Engineer Beta Inc 2016 - 2019")
	r.Certifications = []string{"CKA"}

	p := BuildPrompt(r, "")

	assert.Contains(t, p, "- Name: Jane Doe\n")
	assert.Contains(t, p, "- Skills: Go, Kubernetes, SQL, Leadership\n")
	assert.Contains(t, p, "Led platform team\n\nEngineer Beta Inc")
	assert.Contains(t, p, "- Certifications: CKA\n")
	assert.Contains(t, p, `"overallScore": number (0-100)`)
	assert.NotContains(t, p, "Target Role")
	assert.NotContains(t, p, "targetRoleFit")
	assert.True(t, strings.HasSuffix(p, "no additional text or formatting.\n"))
}

func TestBuildPrompt_TargetRole(t *testing.T) {
	p := BuildPrompt(sampleRecord(), "  Data Scientist ")
	assert.Contains(t, p, "Target Role: Data Scientist\n")
	assert.Contains(t, p, `"targetRoleFit"`)
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	assert.Equal(t, BuildPrompt(sampleRecord(), "x"), BuildPrompt(sampleRecord(), "x"))
}
