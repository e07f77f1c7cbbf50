package security

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ThreatKind classifies a detected injection pattern.
type ThreatKind string

const (
	ThreatSQL           ThreatKind = "sql_injection"
	ThreatNoSQL         ThreatKind = "nosql_injection"
	ThreatXSS           ThreatKind = "xss"
	ThreatPathTraversal ThreatKind = "path_traversal"
)

// Threat describes the first suspicious pattern found in an input.
type Threat struct {
	Kind    ThreatKind `json:"kind"`
	Pattern string     `json:"pattern"`
	Field   string     `json:"field,omitempty"`
}

type rule struct {
	kind ThreatKind
	name string
	re   *regexp.Regexp
}

// Rules are checked in order; the first match wins.
var rules = []rule{
	{ThreatSQL, "union select", regexp.MustCompile(`(?i)\bunion\b(\s+all)?\s+select\b`)},
	{ThreatSQL, "tautology", regexp.MustCompile(`(?i)['"]\s*(or|and)\s+['"]?[\w-]+['"]?\s*=\s*['"]?[\w-]+`)},
	{ThreatSQL, "tautology", regexp.MustCompile(`(?i)\bor\s+1\s*=\s*1\b`)},
	{ThreatSQL, "stacked query", regexp.MustCompile(`(?i);\s*(drop|delete|insert|update|alter|truncate|exec|create)\b`)},
	{ThreatSQL, "drop table", regexp.MustCompile(`(?i)\b(drop|truncate)\s+table\b`)},
	{ThreatSQL, "comment", regexp.MustCompile(`'\s*(--|/\*)|'\s*#\s*$`)},
	{ThreatSQL, "time delay", regexp.MustCompile(`(?i)\b(sleep|benchmark|pg_sleep)\s*\(|\bwaitfor\s+delay\b`)},
	{ThreatSQL, "system objects", regexp.MustCompile(`(?i)\b(xp_cmdshell|information_schema)\b`)},
	{ThreatNoSQL, "operator", regexp.MustCompile(`(?i)\$(where|ne|gt|gte|lt|lte|in|nin|regex|exists|expr|function)\b|\[\$[a-z]+\]`)},
	{ThreatXSS, "script tag", regexp.MustCompile(`(?i)<\s*script\b`)},
	{ThreatXSS, "script url", regexp.MustCompile(`(?i)(javascript|vbscript)\s*:|data\s*:\s*text/html`)},
	{ThreatXSS, "event handler", regexp.MustCompile(`(?i)<[^>]*\bon[a-z]+\s*=`)},
	{ThreatXSS, "embedded frame", regexp.MustCompile(`(?i)<\s*(iframe|object|embed)\b`)},
	{ThreatPathTraversal, "dot segments", regexp.MustCompile(`\.\.[/\\]`)},
	{ThreatPathTraversal, "encoded dot segments", regexp.MustCompile(`(?i)%2e%2e(%2f|%5c|/|\\)`)},
	{ThreatPathTraversal, "system file", regexp.MustCompile(`(?i)/etc/(passwd|shadow)\b`)},
}

// DetectInjection returns the first injection pattern found in s.
func DetectInjection(s string) (Threat, bool) {
	if s == "" {
		return Threat{}, false
	}
	for _, r := range rules {
		if r.re.MatchString(s) {
			return Threat{Kind: r.kind, Pattern: r.name}, true
		}
	}
	return Threat{}, false
}

// maxScanDepth bounds recursion into nested JSON.
const maxScanDepth = 32

// ScanValue walks a decoded JSON value (maps, slices, strings) and reports
// the first threat. Map keys beginning with "$" are reported as NoSQL
// operators. Field is the dotted path to the offending value.
func ScanValue(v any) (Threat, bool) {
	return scan(v, "", 0)
}

func scan(v any, path string, depth int) (Threat, bool) {
	if depth > maxScanDepth {
		return Threat{}, false
	}
	switch t := v.(type) {
	case string:
		if th, ok := DetectInjection(t); ok {
			th.Field = path
			return th, true
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := joinPath(path, k)
			if strings.HasPrefix(k, "$") {
				return Threat{Kind: ThreatNoSQL, Pattern: "operator key", Field: p}, true
			}
			if th, ok := scan(t[k], p, depth+1); ok {
				return th, true
			}
		}
	case []any:
		for i, e := range t {
			if th, ok := scan(e, joinPath(path, strconv.Itoa(i)), depth+1); ok {
				return th, true
			}
		}
	}
	return Threat{}, false
}

// ScanQuery checks query or form values, including their keys.
func ScanQuery(q url.Values) (Threat, bool) {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(k, "$") || strings.Contains(k, "[$") {
			return Threat{Kind: ThreatNoSQL, Pattern: "operator key", Field: k}, true
		}
		for _, v := range q[k] {
			if th, ok := DetectInjection(v); ok {
				th.Field = k
				return th, true
			}
		}
	}
	return Threat{}, false
}

func joinPath(base, k string) string {
	if base == "" {
		return k
	}
	return base + "." + k
}

