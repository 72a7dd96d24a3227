// handler.go - Shared state and response helpers for the registry pages
//
// Every page is answered as a JSON view model:
//   {"page": "<name>", "user": {...}, "flashes": [...], ...page fields}
// Successful form posts redirect (303) with a flash; invalid forms answer
// 422 with per-field errors and the submitted input.

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"patient-registry/auth"
	"patient-registry/events"
	"patient-registry/middleware"
	"patient-registry/store"
	"patient-registry/validation"
)

const genericFailure = "Something went wrong. Please try again." // Shown for store failures

type Handler struct {
	Store    *store.Store
	Sessions *auth.Sessions
	Auth     *auth.Authenticator
	Events   events.Publisher
	Log      zerolog.Logger
	Now      func() time.Time // Clock used for the current-month default
}

func New(st *store.Store, sessions *auth.Sessions, pub events.Publisher, logger zerolog.Logger) *Handler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Handler{
		Store:    st,
		Sessions: sessions,
		Auth:     auth.NewAuthenticator(st.Users),
		Events:   pub,
		Log:      logger,
		Now:      time.Now,
	}
}

// render answers with the named page, the current user and pending flashes.
func (h *Handler) render(c *gin.Context, status int, page string, data gin.H) {
	body := gin.H{
		"page":    page,
		"user":    middleware.CurrentUser(c),
		"flashes": h.Sessions.Flashes(c),
	}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// invalid re-renders a form page with its field errors and the submitted input.
func (h *Handler) invalid(c *gin.Context, page string, errs validation.FieldErrors, form interface{}, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["errors"] = errs
	data["form"] = form
	h.render(c, http.StatusUnprocessableEntity, page, data)
}

// redirect flashes message and sends the browser to path with 303 See Other.
func (h *Handler) redirect(c *gin.Context, path, category, message string) {
	if message != "" {
		h.Sessions.AddFlash(c, category, message)
	}
	c.Redirect(http.StatusSeeOther, path)
}

func (h *Handler) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "not_found", gin.H{"error": "not found"})
}

// fail logs err and answers with a generic failure: a redirect with a
// danger flash for form posts, a 500 page otherwise.
func (h *Handler) fail(c *gin.Context, err error, back string) {
	_ = c.Error(err)
	h.Log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	if c.Request.Method == http.MethodPost {
		h.redirect(c, back, auth.FlashDanger, genericFailure)
		return
	}
	h.render(c, http.StatusInternalServerError, "error", gin.H{"error": genericFailure})
}

// lookup resolves err from a Get call: false means a response was written.
func (h *Handler) lookup(c *gin.Context, err error, back string) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, store.ErrNotFound) {
		h.notFound(c)
		return false
	}
	h.fail(c, err, back)
	return false
}

// idParam parses the :id path segment. Malformed IDs cannot name a record.
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
