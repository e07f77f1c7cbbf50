// Package status names the account states stored on users.
//
// The values are plain strings so they can be used directly in MongoDB
// filters and JSON bodies.
package status

import "github.com/dalemusser/stratasite/internal/app/system/normalize"

const (
	Active   = "active"
	Disabled = "disabled"
)

// IsValid reports whether s is a stored account state. It expects s to be
// normalized already.
func IsValid(s string) bool {
	return s == Active || s == Disabled
}

// Default is the state given to accounts created without one.
func Default() string {
	return Active
}

// CanSignIn reports whether an account in state s may start or keep a
// session. Unknown states are refused.
func CanSignIn(s string) bool {
	return normalize.Status(s) == Active
}
