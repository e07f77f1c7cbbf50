// Package htmltrunc shortens HTML fragments without breaking their markup.
//
// Only text counts toward the limit. Elements still open at the cut point
// are closed in reverse order, so the result is always tag-balanced.
package htmltrunc

import (
	"bytes"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Ellipsis is the default suffix for truncated content.
const Ellipsis = "…"

// voidElements never have a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Truncate returns src cut to at most maxRunes characters of text.
// The suffix is placed inside the innermost open element before the
// closing tags. When src already fits it is returned unchanged.
func Truncate(src string, maxRunes int, suffix string) string {
	if maxRunes <= 0 || src == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(src))
	var out bytes.Buffer
	var open []string
	count := 0
	skipDepth := 0 // inside script/style

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return src
			}
			return out.String()

		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			out.Write(z.Raw())
			if voidElements[tag] {
				continue
			}
			if tag == "script" || tag == "style" {
				skipDepth++
			}
			open = append(open, tag)

		case html.SelfClosingTagToken:
			out.Write(z.Raw())

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] == tag {
					open = open[:i]
					break
				}
			}
			out.Write(z.Raw())

		case html.TextToken:
			// Text unescapes in place, overwriting what Raw points at.
			raw := bytes.Clone(z.Raw())
			text := string(z.Text())
			if skipDepth > 0 || strings.TrimSpace(text) == "" {
				out.Write(raw)
				continue
			}
			n := utf8.RuneCountInString(text)
			if count+n <= maxRunes {
				out.Write(raw)
				count += n
				continue
			}
			out.WriteString(html.EscapeString(cutText(text, maxRunes-count)))
			out.WriteString(suffix)
			for i := len(open) - 1; i >= 0; i-- {
				out.WriteString("</" + open[i] + ">")
			}
			return out.String()

		default:
			out.Write(z.Raw())
		}
	}
}

// cutText keeps at most n runes of s, backing up to the last word
// boundary when the cut would split a word.
func cutText(s string, n int) string {
	runes := []rune(s)
	if n <= 0 {
		return ""
	}
	if n >= len(runes) {
		return s
	}
	cut := runes[:n]
	if !unicode.IsSpace(runes[n]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace)
}

// PlainText returns the text content of src with runs of whitespace
// collapsed to single spaces.
func PlainText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var parts []string
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if s := string(name); s == "script" || s == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if s := string(name); (s == "script" || s == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				parts = append(parts, string(z.Text()))
			}
		}
	}
}
