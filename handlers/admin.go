// admin.go - User account administration (admin only)
//
// An admin can never delete, toggle or demote their own account: the
// request is refused with a warning and nothing changes.

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"patient-registry/auth"
	"patient-registry/forms"
	"patient-registry/middleware"
	"patient-registry/models"
	"patient-registry/store"
	"patient-registry/validation"
)

const usersPath = "/admin/users"

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Store.Users.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, http.StatusOK, "users", gin.H{"users": users})
}

func (h *Handler) AddUserPage(c *gin.Context) {
	h.render(c, http.StatusOK, "user_form", gin.H{"title": "Add user", "form": forms.UserForm{Role: models.RoleUser}})
}

func (h *Handler) AddUser(c *gin.Context) {
	// STEP 1: Validate, including the password rules for new accounts
	var form forms.UserForm
	errs := forms.Bind(c, &form)
	form.Check(true, errs) // Password required, at most 72 bytes
	if !errs.Empty() {
		h.invalid(c, "user_form", errs, form, gin.H{"title": "Add user"})
		return
	}

	// STEP 2: Hash the password and store the account
	hash, err := auth.HashPassword(form.Password) // Plaintext never reaches the store
	if err != nil {
		h.fail(c, err, usersPath+"/add")
		return
	}
	u := &models.User{Username: form.Username, PasswordHash: hash, Role: form.Role}
	if err := h.Store.Users.Create(c.Request.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			errs.Add("username", validation.UsernameTaken)
			h.invalid(c, "user_form", errs, form, gin.H{"title": "Add user"})
			return
		}
		h.fail(c, err, usersPath+"/add")
		return
	}

	h.Log.Info().Uint("user_id", u.ID).Str("role", u.Role).Uint("by", middleware.CurrentUser(c).ID).Msg("user created")
	h.redirect(c, usersPath, auth.FlashSuccess, "User created successfully.")
}

func (h *Handler) EditUserPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.notFound(c)
		return
	}
	u, err := h.Store.Users.Get(c.Request.Context(), id)
	if !h.lookup(c, err, usersPath) {
		return
	}
	h.render(c, http.StatusOK, "user_form", gin.H{
		"title":   "Edit user",
		"form":    forms.UserFormFrom(u),
		"user_id": u.ID,
	})
}

// EditUser changes username and role. An empty password keeps the old one.
func (h *Handler) EditUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.notFound(c)
		return
	}
	ctx := c.Request.Context()
	u, err := h.Store.Users.Get(ctx, id)
	if !h.lookup(c, err, usersPath) {
		return
	}

	var form forms.UserForm
	errs := forms.Bind(c, &form)
	form.Check(false, errs)
	if u.ID == middleware.CurrentUser(c).ID && form.Role != "" && form.Role != u.Role {
		errs.Add("role", "You cannot change your own role.")
	}
	view := gin.H{"title": "Edit user", "user_id": u.ID}
	if !errs.Empty() {
		h.invalid(c, "user_form", errs, form, view)
		return
	}

	back := fmt.Sprintf("%s/edit/%d", usersPath, id)
	u.Username = form.Username
	u.Role = form.Role
	if form.Password != "" { // Empty keeps the current hash
		if u.PasswordHash, err = auth.HashPassword(form.Password); err != nil {
			h.fail(c, err, back)
			return
		}
	}
	if err := h.Store.Users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUsername):
			errs.Add("username", validation.UsernameTaken)
			h.invalid(c, "user_form", errs, form, view)
		case errors.Is(err, store.ErrNotFound):
			h.notFound(c)
		default:
			h.fail(c, err, back)
		}
		return
	}

	h.redirect(c, usersPath, auth.FlashSuccess, "User updated.")
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.notFound(c)
		return
	}
	if id == middleware.CurrentUser(c).ID { // No self-lockout
		h.redirect(c, usersPath, auth.FlashWarning, "You cannot delete your own account.")
		return
	}

	if err := h.Store.Users.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.fail(c, err, usersPath)
		return
	}
	h.Log.Info().Uint("user_id", id).Uint("by", middleware.CurrentUser(c).ID).Msg("user deleted")
	h.redirect(c, usersPath, auth.FlashSuccess, "User deleted.")
}

// ToggleRole switches an account between admin and user.
func (h *Handler) ToggleRole(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.notFound(c)
		return
	}
	if id == middleware.CurrentUser(c).ID {
		h.redirect(c, usersPath, auth.FlashWarning, "You cannot change your own role.")
		return
	}

	u, err := h.Store.Users.ToggleRole(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.fail(c, err, usersPath)
		return
	}
	h.redirect(c, usersPath, auth.FlashSuccess, fmt.Sprintf("Role of %s changed to %s.", u.Username, u.Role))
}
