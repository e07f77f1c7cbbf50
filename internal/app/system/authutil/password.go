// internal/app/system/authutil/password.go
package authutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/stratasite/internal/app/system/security"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// MaxPasswordLength is bcrypt's input limit in bytes; longer input is
	// rejected by bcrypt rather than silently truncated.
	MaxPasswordLength = 72
	BcryptCost        = 12
)

var (
	ErrPasswordTooShort = fmt.Errorf("Password must be at least %d characters.", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("Password must be at most %d bytes.", MaxPasswordLength)
	ErrPasswordCommon   = errors.New("This password is too common. Please choose a different one.")
)

// commonPasswords are refused regardless of case. The list covers the
// top entries of public breach corpora plus obvious site-admin choices.
var commonPasswords = func() map[string]struct{} {
	list := []string{
		"123456", "1234567", "12345678", "123456789", "1234567890",
		"111111", "000000", "123123", "654321", "abc123", "abcdef",
		"password", "password1", "passw0rd", "qwerty", "qwerty123",
		"iloveyou", "monkey", "dragon", "master", "letmein", "welcome",
		"login", "admin", "admin123", "administrator", "changeme",
		"sunshine", "princess", "football", "baseball", "superman",
		"website", "webmaster", "editor",
	}
	m := make(map[string]struct{}, len(list))
	for _, p := range list {
		m[p] = struct{}{}
	}
	return m
}()

// ValidatePassword applies the baseline rules every stored password must
// meet: length bounds and not a common password. Admin-issued temporary
// passwords need only this.
func ValidatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return ErrPasswordCommon
	}
	return nil
}

// WeakPasswordError lists the strength rules a password failed.
type WeakPasswordError struct {
	Missing []string
}

func (e *WeakPasswordError) Error() string {
	return "Password needs " + strings.Join(e.Missing, ", ") + "."
}

// ValidateStrongPassword applies ValidatePassword and then requires every
// strength rule (length 8, lower, upper, digit, symbol). Used when users
// choose their own password; admin-issued temporary passwords only need
// ValidatePassword.
func ValidateStrongPassword(password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if st := security.CheckPasswordStrength(password); !st.Strong() {
		return &WeakPasswordError{Missing: st.Missing}
	}
	return nil
}

// StrongPasswordRules describes ValidateStrongPassword for forms.
func StrongPasswordRules() string {
	return "Password must be at least 8 characters and include a lowercase letter, an uppercase letter, a number and a symbol."
}

// HashPassword returns the bcrypt hash of password. Validate first.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. A malformed hash
// never matches.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
