package models

import "slices"

// Sign-in methods. A user has exactly one; Google accounts have no
// password hash.
const (
	AuthPassword = "password"
	AuthGoogle   = "google"
)

var authMethods = []string{AuthPassword, AuthGoogle}

func IsValidAuthMethod(value string) bool { return slices.Contains(authMethods, value) }

// AllAuthMethodValues returns a copy callers may modify.
func AllAuthMethodValues() []string { return slices.Clone(authMethods) }
