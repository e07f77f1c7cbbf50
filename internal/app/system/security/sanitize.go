package security

import (
	"html"
	"strings"
	"sync"

	"github.com/dalemusser/stratasite/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/microcosm-cc/bluemonday"
)

var (
	strict     *bluemonday.Policy
	strictOnce sync.Once
)

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// SanitizeText strips all markup and returns plain text. Entities are
// decoded, so the result must be escaped again when rendered as HTML.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy().Sanitize(s)))
}

// SanitizeRich keeps safe formatting markup (links, lists, tables).
func SanitizeRich(s string) string {
	return htmlsanitize.Sanitize(s)
}

// SanitizeStrings applies SanitizeText to each element and drops empties.
func SanitizeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = SanitizeText(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SanitizeMediaRef strips markup from the descriptive fields of a media
// reference. Path and URL are kept as given.
func SanitizeMediaRef(m models.MediaRef) models.MediaRef {
	m.Name = SanitizeText(m.Name)
	m.Alt = SanitizeText(m.Alt)
	m.Path = strings.TrimSpace(m.Path)
	m.URL = strings.TrimSpace(m.URL)
	return m
}
