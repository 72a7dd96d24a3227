// user.go - Defines the User model for the database

package models

import "time"

// Roles a user account can hold.
const (
	RoleAdmin = "admin" // Full access, including account administration and export
	RoleUser  = "user"  // Registry read/write only
)

type User struct { // User is a staff account allowed to sign in
	ID           uint      `gorm:"primaryKey" json:"id"`                              // Unique user ID (primary key)
	Username     string    `gorm:"size:80;uniqueIndex;not null" json:"username"`      // Login name (unique)
	PasswordHash string    `gorm:"size:128;not null" json:"-"`                        // bcrypt hash, never the plaintext
	Role         string    `gorm:"size:20;not null;default:'user'" json:"role"`       // admin or user
	CreatedAt    time.Time `json:"created_at"`                                        // Set by gorm on insert
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// ToggledRole returns the role a toggle moves an account to.
func ToggledRole(role string) string {
	if role == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}
