// auth.go - Session authentication and role-based access control
//
// Authentication Flow:
// 1. LoadSession reads the signed session cookie
// 2. The user it names is loaded from the database and stored in context
// 3. RequireLogin redirects anonymous callers to /login, keeping the target in ?next=
//
// Authorization Flow:
// 1. RequireRole runs the login check first
// 2. A user without the role is sent back to the patient list with a warning
//    (a redirect with a notice, not an error page)

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"patient-registry/auth"
	"patient-registry/models"
	"patient-registry/store"
)

const userKey = "user" // Context key for the authenticated *models.User

// UserGetter loads accounts by ID.
type UserGetter interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// LoadSession resolves the session cookie into the current user. Requests
// without a (valid) session continue anonymously.
func LoadSession(sessions *auth.Sessions, users UserGetter, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessions.UserID(c) // Verify signature and expiry
		if !ok {
			c.Next()
			return
		}

		user, err := users.Get(c.Request.Context(), id) // The account may have been deleted since login
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				logger.Error().Err(err).Uint("user_id", id).Msg("load session user")
			}
			sessions.Clear(c) // Drop the stale cookie
			c.Next()
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// RequireLogin sends anonymous callers to the login page.
func RequireLogin(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			redirectToLogin(c, sessions)
			return
		}
		c.Next()
	}
}

// RequireRole lets through only users holding role.
func RequireRole(sessions *auth.Sessions, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			redirectToLogin(c, sessions)
			return
		}
		if user.Role != role {
			sessions.AddFlash(c, auth.FlashWarning, "You do not have access to this page.")
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

func redirectToLogin(c *gin.Context, sessions *auth.Sessions) {
	sessions.AddFlash(c, auth.FlashInfo, "Please log in to access this page.")
	target := "/login?next=" + url.QueryEscape(c.Request.URL.RequestURI())
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

// LocalPath reports whether next is safe to redirect to after login: a
// path on this site, never another host.
func LocalPath(next string) bool {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return false
	}
	u, err := url.Parse(next)
	return err == nil && u.Host == "" && u.Scheme == ""
}
