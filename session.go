/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionCookieName = "ghostly_session"
	stateCookieName   = "ghostly_state"
	stateTimeout      = 10 * time.Minute
)

var ErrInvalidSession = errors.New("invalid session")

// Session is everything remembered about a visitor between requests.
type Session struct {
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`

	ChosenFirst  string `json:"chosen_first,omitempty"`
	ChosenFamily string `json:"chosen_family,omitempty"`
	GhostName    string `json:"ghost_name,omitempty"`
}

func (s Session) LoggedIn() bool {
	return s.Email != ""
}

func (s *Session) Clear() {
	*s = Session{}
}

type sessionClaims struct {
	Session
	jwt.RegisteredClaims
}

// sessionCodec stores a Session in an HS256-signed cookie.
type sessionCodec struct {
	secret  []byte
	timeout time.Duration
	secure  bool
	path    string
}

func newSessionCodec(cfg *Config) (*sessionCodec, error) {
	secret := []byte(cfg.sessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
	}

	path := cfg.prefix + "/"

	return &sessionCodec{
		secret:  secret,
		timeout: cfg.sessionTimeout,
		secure:  cfg.scheme() == "https",
		path:    path,
	}, nil
}

func (c *sessionCodec) encode(s Session, now time.Time) (string, error) {
	claims := sessionClaims{
		Session: s,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.timeout)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *sessionCodec) decode(token string) (Session, error) {
	var claims sessionClaims

	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	return claims.Session, nil
}

// load returns the request's session, or an empty one if the cookie is
// missing, expired or forged.
func (c *sessionCodec) load(r *http.Request) Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return Session{}
	}

	s, err := c.decode(cookie.Value)
	if err != nil {
		return Session{}
	}

	return s
}

func (c *sessionCodec) save(w http.ResponseWriter, s Session) error {
	now := time.Now()

	token, err := c.encode(s, now)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     c.path,
		Expires:  now.Add(c.timeout),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (c *sessionCodec) clear(w http.ResponseWriter) {
	c.expire(w, sessionCookieName)
	c.expire(w, stateCookieName)
}

func (c *sessionCodec) expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     c.path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// newState sets a short-lived cookie holding the OAuth state value.
func (c *sessionCodec) newState(w http.ResponseWriter) string {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     c.path,
		MaxAge:   int(stateTimeout.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return state
}

// checkState compares the callback's state with the cookie and expires the
// cookie so each state value is accepted once.
func (c *sessionCodec) checkState(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	c.expire(w, stateCookieName)

	return r.URL.Query().Get("state") == cookie.Value
}
