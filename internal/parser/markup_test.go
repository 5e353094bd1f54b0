package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"纯文本原样返回", "Jane Doe\nR&D <3 Go", "Jane Doe\nR&D <3 Go"},
		{"块级元素变成换行", "<div>Jane Doe</div><p>Engineer at <b>Acme</b></p>", "Jane Doe\n\nEngineer at Acme"},
		{"去掉脚本内容", "<h1>Jane</h1><script>alert(1)</script>Skills", "Jane\nSkills"},
		{"实体还原", "<li>R&amp;D</li><li>Q&amp;A</li>", "R&D\n\nQ&A"},
		{"换行标签", "Jane<br>Doe<br/>Smith", "Jane\nDoe\nSmith"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkup(tt.in))
		})
	}
}

func TestContainsMarkup(t *testing.T) {
	assert.True(t, ContainsMarkup("<p>x</p>"))
	assert.True(t, ContainsMarkup(`<a href="x">`))
	assert.False(t, ContainsMarkup("a < b and c > d"))
	assert.False(t, ContainsMarkup("I <3 Go"))
}
