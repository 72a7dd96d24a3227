// Package auth covers password hashing, credential checks and the signed
// cookies that carry the login session and one-shot flash notices.
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookie = "registry_session"
	FlashCookie   = "registry_flash"

	flashTTL   = 5 * time.Minute
	pendingKey = "auth.flashes"
)

// Flash categories.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a notice shown once on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type sessionClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

type flashClaims struct {
	Flashes []Flash `json:"flashes"`
	jwt.RegisteredClaims
}

// Sessions issues and reads HS256-signed cookies. It keeps no server-side
// state: the cookie is the session.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Issue starts a session for userID.
func (s *Sessions) Issue(c *gin.Context, userID uint) error {
	if userID == 0 {
		return errors.New("auth: cannot issue a session for user 0")
	}
	now := s.now()
	token, err := s.sign(sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	if err != nil {
		return err
	}
	s.setCookie(c, SessionCookie, token, int(s.ttl.Seconds()))
	return nil
}

// UserID returns the user of a valid, unexpired session cookie.
func (s *Sessions) UserID(c *gin.Context) (uint, bool) {
	raw, err := c.Cookie(SessionCookie)
	if err != nil || raw == "" {
		return 0, false
	}
	var claims sessionClaims
	if err := s.parse(raw, &claims); err != nil {
		return 0, false
	}
	return claims.UserID, claims.UserID != 0
}

// Clear ends the session.
func (s *Sessions) Clear(c *gin.Context) {
	s.setCookie(c, SessionCookie, "", -1)
}

// AddFlash queues a notice for the next rendered page.
func (s *Sessions) AddFlash(c *gin.Context, category, message string) {
	pending := append(s.pending(c), Flash{Category: category, Message: message})
	c.Set(pendingKey, pending)

	token, err := s.sign(flashClaims{
		Flashes:          pending,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(s.now().Add(flashTTL))},
	})
	if err != nil {
		return // notices are best effort
	}
	s.setCookie(c, FlashCookie, token, int(flashTTL.Seconds()))
}

// Flashes consumes every queued notice, including ones added during this request.
func (s *Sessions) Flashes(c *gin.Context) []Flash {
	out := s.pending(c)
	c.Set(pendingKey, []Flash{})
	if _, err := c.Cookie(FlashCookie); err == nil || len(out) > 0 {
		s.setCookie(c, FlashCookie, "", -1)
	}
	if out == nil {
		out = []Flash{}
	}
	return out
}

func (s *Sessions) pending(c *gin.Context) []Flash {
	if v, ok := c.Get(pendingKey); ok {
		return v.([]Flash)
	}
	raw, err := c.Cookie(FlashCookie)
	if err != nil || raw == "" {
		return nil
	}
	var claims flashClaims
	if err := s.parse(raw, &claims); err != nil {
		return nil
	}
	return claims.Flashes
}

func (s *Sessions) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Sessions) parse(raw string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	return err
}

func (s *Sessions) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", s.secure, true)
}
