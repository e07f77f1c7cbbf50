package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an admin panel account.
//
// Email is the sign-in identifier. It is stored lowercase and is unique
// across all users regardless of auth method.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // folded for sorting/search

	Email      string `bson:"email" json:"email"`
	AuthMethod string `bson:"auth_method" json:"auth_method"` // password, google

	// Password auth fields
	PasswordHash *string `bson:"password_hash,omitempty" json:"-"`
	PasswordTemp *bool   `bson:"password_temp,omitempty" json:"password_temp,omitempty"` // must change on next login

	Role   string `bson:"role" json:"role"`
	Status string `bson:"status" json:"status"` // active, disabled

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// Roles. Editors manage content, media, theme and site settings; admins
// also manage users, security events, the audit trail and export stats.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

func AllRoles() []string { return []string{RoleAdmin, RoleEditor} }

func IsValidRole(role string) bool { return slices.Contains(AllRoles(), role) }

// MustChangePassword reports whether the user signed in with a temporary password.
func (u *User) MustChangePassword() bool {
	return u.PasswordTemp != nil && *u.PasswordTemp
}
