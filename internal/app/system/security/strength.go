// Package security holds the request-level defenses of the site: password
// strength rules, injection heuristics, text sanitization, the in-memory
// security event monitor, and the middleware that ties them to HTTP.
package security

import (
	"regexp"
	"unicode/utf8"
)

// MinStrongLength is the length a password needs to earn the length point.
const MinStrongLength = 8

var (
	reLower  = regexp.MustCompile(`[a-z]`)
	reUpper  = regexp.MustCompile(`[A-Z]`)
	reDigit  = regexp.MustCompile(`[0-9]`)
	reSymbol = regexp.MustCompile(`[^A-Za-z0-9\s]`)
)

// Strength is the result of CheckPasswordStrength.
type Strength struct {
	Score   int      `json:"score"` // 0..5
	Label   string   `json:"label"`
	Missing []string `json:"missing,omitempty"`
}

// Strong reports whether every rule passed.
func (s Strength) Strong() bool { return s.Score == 5 }

var strengthLabels = [...]string{"very weak", "very weak", "weak", "fair", "good", "strong"}

// CheckPasswordStrength scores pw one point per satisfied rule.
func CheckPasswordStrength(pw string) Strength {
	var s Strength
	check := func(ok bool, missing string) {
		if ok {
			s.Score++
		} else {
			s.Missing = append(s.Missing, missing)
		}
	}
	check(utf8.RuneCountInString(pw) >= MinStrongLength, "at least 8 characters")
	check(reLower.MatchString(pw), "a lowercase letter")
	check(reUpper.MatchString(pw), "an uppercase letter")
	check(reDigit.MatchString(pw), "a number")
	check(reSymbol.MatchString(pw), "a symbol")
	s.Label = strengthLabels[s.Score]
	return s
}

// IsStrong reports whether pw satisfies every strength rule.
func IsStrong(pw string) bool {
	return CheckPasswordStrength(pw).Strong()
}
