package security

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectInjection(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ThreatKind
	}{
		{"union select", "1 UNION SELECT password FROM users", ThreatSQL},
		{"union all select", "x union all select 1,2", ThreatSQL},
		{"quoted tautology", "admin' OR '1'='1", ThreatSQL},
		{"numeric tautology", "1 or 1=1", ThreatSQL},
		{"stacked drop", "x'; DROP TABLE users", ThreatSQL},
		{"comment", "admin'--", ThreatSQL},
		{"sleep", "1 AND SLEEP(5)", ThreatSQL},
		{"waitfor", "1; waitfor delay '0:0:5'", ThreatSQL},
		{"nosql where", `{"$where": "this.a > 1"}`, ThreatNoSQL},
		{"nosql bracket", "email[$ne]=", ThreatNoSQL},
		{"script tag", "<script>alert(1)</script>", ThreatXSS},
		{"script tag spaced", "< SCRIPT src=x>", ThreatXSS},
		{"javascript url", "javascript:alert(1)", ThreatXSS},
		{"event handler", `<img src=x onerror=alert(1)>`, ThreatXSS},
		{"iframe", `<iframe src="//evil">`, ThreatXSS},
		{"dot dot slash", "../../etc/hosts", ThreatPathTraversal},
		{"encoded traversal", "%2e%2e%2fsecret", ThreatPathTraversal},
		{"passwd", "/etc/passwd", ThreatPathTraversal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectInjection(tt.input)
			require.True(t, ok, "expected threat in %q", tt.input)
			assert.Equal(t, tt.want, got.Kind)
			assert.NotEmpty(t, got.Pattern)
		})
	}
}

func TestDetectInjection_BenignText(t *testing.T) {
	benign := []string{
		"",
		"Hello, I'd like a quote for a new website.",
		"We build 3D models -- fast and affordable.",
		"Price is $40 or more; call 555-0100.",
		"Select the union of both sets",
		"Tom & Jerry's \"#1\" fan",
		"one = two, if you squint",
		"email@example.com",
		"The years 1999...2001 were great.",
		"#1e40af",
	}
	for _, s := range benign {
		if th, ok := DetectInjection(s); ok {
			t.Errorf("DetectInjection(%q) = %+v, want no threat", s, th)
		}
	}
}

func TestScanValue(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "Ann",
		"tags": ["ok", "fine", "<script>x</script>"],
		"meta": {"note": "clean"}
	}`), &v))

	got, ok := ScanValue(v)
	require.True(t, ok)
	want := Threat{Kind: ThreatXSS, Pattern: "script tag", Field: "tags.2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ScanValue() mismatch (-want +got):\n%s", diff)
	}
}

func TestScanValue_OperatorKey(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b.c","password":{"$ne":null}}`), &v))

	got, ok := ScanValue(v)
	require.True(t, ok)
	assert.Equal(t, ThreatNoSQL, got.Kind)
	assert.Equal(t, "password.$ne", got.Field)
}

func TestScanValue_Clean(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":[true,null,"text"],"c":{"d":"e"}}`), &v))
	_, ok := ScanValue(v)
	assert.False(t, ok)
}

func TestScanQuery(t *testing.T) {
	q := url.Values{"page": {"2"}, "q": {"' or 'a'='a"}}
	got, ok := ScanQuery(q)
	require.True(t, ok)
	assert.Equal(t, ThreatSQL, got.Kind)
	assert.Equal(t, "q", got.Field)

	q = url.Values{"email[$ne]": {"x"}}
	got, ok = ScanQuery(q)
	require.True(t, ok)
	assert.Equal(t, ThreatNoSQL, got.Kind)

	_, ok = ScanQuery(url.Values{"category": {"web-design"}, "page": {"1"}})
	assert.False(t, ok)
}
