package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/shared"
)

// Store is a credential the auth layer can write. Everything else only
// reads it through apiclient.CredentialSource.
type Store interface {
	Token() string
	Invalidate()
	Set(token, username string)
}

// Credentials is the process-wide session credential of a terminal
// client. It is injected into the API client at construction.
type Credentials struct {
	mu        sync.RWMutex
	token     string
	username  string
	expiresAt time.Time
	now       func() time.Time
}

// NewCredentials returns empty credentials.
func NewCredentials() *Credentials {
	return &Credentials{now: time.Now}
}

// Set stores a token. An expiry is read from the JWT when it has one.
func (c *Credentials) Set(token, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.username = username
	c.expiresAt = tokenExpiry(token)
}

// Token returns the current token, or "" once it is cleared or expired.
func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || c.expired() {
		return ""
	}
	return c.token
}

// Invalidate forgets the token. Subsequent requests go out anonymous.
func (c *Credentials) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.username = ""
	c.expiresAt = time.Time{}
}

// Authenticated reports whether a usable token is held.
func (c *Credentials) Authenticated() bool {
	return c.Token() != ""
}

// Username returns the user the token was issued to.
func (c *Credentials) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// ExpiresAt returns the token expiry, zero when unknown.
func (c *Credentials) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

func (c *Credentials) expired() bool {
	return !c.expiresAt.IsZero() && !c.now().Before(c.expiresAt)
}

// SessionCredentials binds a browser session to the API client for the
// duration of one request.
type SessionCredentials struct {
	mu    sync.Mutex
	sess  *shared.Session
	token string
}

// FromSession snapshots the token held by sess.
func FromSession(sess *shared.Session) *SessionCredentials {
	sc := &SessionCredentials{sess: sess}
	if sess != nil {
		token := sess.APIToken()
		if exp := tokenExpiry(token); exp.IsZero() || time.Now().Before(exp) {
			sc.token = token
		}
	}
	return sc
}

// Token returns the session token.
func (s *SessionCredentials) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Set stores a fresh token in the session.
func (s *SessionCredentials) Set(token, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if s.sess != nil {
		s.sess.SetAPIToken(token, username)
	}
}

// Invalidate clears the token from the session.
func (s *SessionCredentials) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if s.sess != nil {
		s.sess.ClearAPIToken()
	}
}

// ClientFor returns api bound to the credential of the request's session.
func ClientFor(api *apiclient.Client, r *http.Request) *apiclient.Client {
	return api.WithCredentials(FromSession(shared.SessionFromContext(r.Context())))
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend is the party that verifies. Opaque tokens have no expiry.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
