// internal/app/system/authutil/authutil.go
// Package authutil centralizes password rules and the auth fields set
// when an admin creates or edits a user.
package authutil

import (
	"errors"
	"strings"

	"github.com/dalemusser/stratasite/internal/domain/models"
)

// Auth field errors
var (
	ErrUnknownMethod    = errors.New("Unknown authentication method.")
	ErrPasswordRequired = errors.New("Temporary password is required for password authentication.")
)

// AuthInput holds the auth-related fields of a user create/edit request.
type AuthInput struct {
	Method       string
	TempPassword string
	IsEdit       bool // If true, password is optional (leave blank to keep existing)
}

// AuthResult holds the processed auth fields ready for storage.
// ClearPassword is set when the user no longer signs in with a password.
type AuthResult struct {
	Method        string
	PasswordHash  *string
	PasswordTemp  *bool
	ClearPassword bool
}

// ResolveAuth validates in and hashes the temporary password if one was given.
// Google accounts never carry a password hash.
func ResolveAuth(in AuthInput) (*AuthResult, error) {
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if method == "" {
		method = "password"
	}
	if !models.IsValidAuthMethod(method) {
		return nil, ErrUnknownMethod
	}

	res := &AuthResult{Method: method}
	if method != "password" {
		res.ClearPassword = true
		return res, nil
	}

	if in.TempPassword == "" {
		if in.IsEdit {
			return res, nil
		}
		return nil, ErrPasswordRequired
	}
	if err := ValidatePassword(in.TempPassword); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.TempPassword)
	if err != nil {
		return nil, err
	}
	temp := true
	res.PasswordHash = &hash
	res.PasswordTemp = &temp
	return res, nil
}
