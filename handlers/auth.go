// auth.go - Login and logout pages

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"patient-registry/auth"
	"patient-registry/forms"
	"patient-registry/middleware"
)

const invalidCredentials = "Invalid username or password." // Same text for unknown user and wrong password

// LoginPage shows the login form. Signed-in users go straight to the list.
func (h *Handler) LoginPage(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.render(c, http.StatusOK, "login", gin.H{"form": forms.LoginForm{}, "next": nextPath(c)})
}

// Login checks the credentials and starts a session, then returns the user
// to the page they originally asked for.
func (h *Handler) Login(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	var form forms.LoginForm
	if errs := forms.Bind(c, &form); !errs.Empty() {
		h.invalid(c, "login", errs, form, gin.H{"next": nextPath(c)})
		return
	}

	user, err := h.Auth.Authenticate(c.Request.Context(), form.Username, form.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) { // Unknown user or wrong password, same answer
		h.Log.Info().Str("username", form.Username).Str("remote_ip", c.ClientIP()).Msg("login failed")
		h.Sessions.AddFlash(c, auth.FlashDanger, invalidCredentials)
		h.render(c, http.StatusUnauthorized, "login", gin.H{"form": form, "next": nextPath(c)})
		return
	}
	if err != nil {
		h.fail(c, err, "/login")
		return
	}

	if err := h.Sessions.Issue(c, user.ID); err != nil { // Signed session cookie
		h.fail(c, err, "/login")
		return
	}
	target := "/" // Patient list unless a local next page was requested
	if next := nextPath(c); next != "" {
		target = next
	}
	h.redirect(c, target, auth.FlashSuccess, "Logged in successfully.")
}

// Logout ends the session whether or not one exists.
func (h *Handler) Logout(c *gin.Context) {
	h.Sessions.Clear(c)
	h.Sessions.AddFlash(c, auth.FlashInfo, "You have been logged out.")
	c.Redirect(http.StatusFound, "/login")
}

// nextPath returns the post-login target from the query or form, if it is
// a path on this site.
func nextPath(c *gin.Context) string {
	next := c.Query("next")
	if next == "" {
		next = c.PostForm("next")
	}
	if !middleware.LocalPath(next) {
		return ""
	}
	return next
}
