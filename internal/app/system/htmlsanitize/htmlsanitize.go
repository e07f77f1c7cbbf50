// Package htmlsanitize cleans rich text submitted through the admin API
// (news articles, service descriptions, About content) before it is stored.
package htmlsanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var rich = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowElements("figure", "figcaption", "u", "s", "sub", "sup", "mark")
	p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
	p.AllowAttrs("loading").Matching(bluemonday.SpaceSeparatedTokens).OnElements("img")

	// Outbound links open in a new tab without handing over window.opener.
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
})

// Sanitize keeps structural and formatting markup (headings, lists, links,
// images, tables, figures) and removes scripts, event handlers, inline
// styles and unsafe URL schemes. Output is stable: sanitizing it again
// returns the same string.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return rich().Sanitize(html)
}
