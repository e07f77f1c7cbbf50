package htmlsanitize

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "formatting kept",
			input:    "<h2>Launch</h2><p>We <strong>shipped</strong> <em>it</em>.</p>",
			contains: []string{"<h2>Launch</h2>", "<strong>shipped</strong>", "<em>it</em>"},
		},
		{
			name:     "script removed",
			input:    "<p>Hi</p><script>alert('x')</script>",
			contains: []string{"<p>Hi</p>"},
			excludes: []string{"<script", "alert"},
		},
		{
			name:     "event handler removed",
			input:    `<img src="/files/a.png" onerror="alert(1)" alt="A">`,
			contains: []string{`src="/files/a.png"`, `alt="A"`},
			excludes: []string{"onerror"},
		},
		{
			name:     "javascript url removed",
			input:    `<a href="javascript:alert(1)">x</a>`,
			excludes: []string{"javascript:"},
		},
		{
			name:     "inline style removed",
			input:    `<p style="position:fixed">x</p>`,
			contains: []string{"<p>x</p>"},
			excludes: []string{"style"},
		},
		{
			name:     "external link opens in new tab",
			input:    `<a href="https://example.com/case">case</a>`,
			contains: []string{`href="https://example.com/case"`, `target="_blank"`, "noopener"},
		},
		{
			name:     "figure kept",
			input:    `<figure><img src="/files/b.jpg" alt="B"><figcaption>Site visit</figcaption></figure>`,
			contains: []string{"<figure>", "<figcaption>Site visit</figcaption>"},
		},
		{
			name:     "table spans kept",
			input:    `<table><tbody><tr><td colspan="2">Cell</td></tr></tbody></table>`,
			contains: []string{`<td colspan="2">Cell</td>`},
		},
		{
			name:     "iframe removed",
			input:    `<iframe src="https://evil.example"></iframe><p>ok</p>`,
			contains: []string{"<p>ok</p>"},
			excludes: []string{"iframe"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize() = %q, want it to contain %q", got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("Sanitize() = %q, must not contain %q", got, bad)
				}
			}
		})
	}
}

func TestSanitize_Empty(t *testing.T) {
	if got := Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	in := `<p>Read <a href="https://example.com">this</a></p><ul><li>one</li></ul><script>x</script>`
	once := Sanitize(in)
	if twice := Sanitize(once); twice != once {
		t.Errorf("Sanitize() not idempotent:\n once = %q\ntwice = %q", once, twice)
	}
}
