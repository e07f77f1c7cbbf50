// Package slug builds URL slugs for content documents.
package slug

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// MaxLen is the longest slug Make will return.
const MaxLen = 80

var validRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Make converts a title into a slug: diacritics folded, lowercase ASCII
// letters and digits, words joined by single dashes.
func Make(s string) string {
	folded := text.Fold(s)

	var b strings.Builder
	b.Grow(len(folded))
	dash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if len(out) > MaxLen {
		out = strings.TrimRight(out[:MaxLen], "-")
	}
	return out
}

// Valid reports whether s is already a well-formed slug.
func Valid(s string) bool {
	return len(s) <= MaxLen && validRe.MatchString(s)
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns base if it is free, otherwise base-2, base-3, ... .
func Unique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	if base == "" {
		base = "item"
	}
	candidate := base
	for n := 2; ; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		suffix := "-" + strconv.Itoa(n)
		trimmed := base
		if len(trimmed)+len(suffix) > MaxLen {
			trimmed = strings.TrimRight(trimmed[:MaxLen-len(suffix)], "-")
		}
		candidate = trimmed + suffix
	}
}
