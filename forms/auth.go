package forms

import (
	"fmt"
	"strings"

	"patient-registry/auth"
	"patient-registry/models"
	"patient-registry/validation"
)

// PasswordTooLong is reported when a new password exceeds auth.MaxPasswordBytes.
var PasswordTooLong = fmt.Sprintf("Must be at most %d bytes long.", auth.MaxPasswordBytes)

type LoginForm struct {
	Username string `form:"username" json:"username" binding:"required,min=3,max=80"`
	Password string `form:"password" json:"-" binding:"required"`
}

func (f *LoginForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

// UserForm is shared by account creation and editing. The password is
// optional at the tag level; Check makes it mandatory for new accounts.
type UserForm struct {
	Username string `form:"username" json:"username" binding:"required,min=3,max=80"`
	Password string `form:"password" json:"-" binding:"omitempty,min=6"`
	Role     string `form:"role" json:"role" binding:"required,oneof=user admin"`
}

func (f *UserForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Role = strings.TrimSpace(f.Role)
}

// Check adds the rules that depend on whether the account is new, and the
// byte limit bcrypt puts on passwords (the `max` tag counts characters).
func (f *UserForm) Check(isNew bool, errs validation.FieldErrors) {
	if isNew && f.Password == "" {
		errs.Add("password", "This field is required.")
	}
	if len(f.Password) > auth.MaxPasswordBytes {
		errs.Add("password", PasswordTooLong)
	}
}

// UserFormFrom pre-populates the edit form; the password is never echoed.
func UserFormFrom(u *models.User) UserForm {
	return UserForm{Username: u.Username, Role: u.Role}
}
