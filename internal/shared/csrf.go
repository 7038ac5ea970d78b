package shared

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/google/uuid"
)

const (
	// CSRFSessionKey is the session value holding the current token.
	CSRFSessionKey = "csrf_token"
	// CSRFHeader carries the token on unsafe requests.
	CSRFHeader = "X-CSRF-Token"
)

// ErrNoSession is returned when a token is requested without a session.
var ErrNoSession = errors.New("session missing")

// CSRFManager issues session-bound tokens and checks them on requests
// that change state.
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager returns a CSRFManager signing tokens with secret.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// Token returns the session's token, issuing one on first use.
func (m *CSRFManager) Token(sess *Session) (string, error) {
	if sess == nil {
		return "", ErrNoSession
	}
	if token := sess.Get(CSRFSessionKey); token != "" {
		return token, nil
	}
	return m.Rotate(sess)
}

// Rotate replaces the session's token. Tokens handed out before a login
// stop working after it.
func (m *CSRFManager) Rotate(sess *Session) (string, error) {
	if sess == nil {
		return "", ErrNoSession
	}
	token := m.sign(sess.ID)
	sess.Set(CSRFSessionKey, token)
	return token, nil
}

// Check lets GET, HEAD and OPTIONS through and otherwise requires the
// CSRFHeader to match the token of the session in r's context.
func (m *CSRFManager) Check(r *http.Request) error {
	if SafeMethod(r.Method) {
		return nil
	}
	sess := SessionFromContext(r.Context())
	if sess == nil {
		return ErrCSRFTokenMissing
	}
	expected, got := sess.Get(CSRFSessionKey), r.Header.Get(CSRFHeader)
	if expected == "" || got == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(expected), []byte(got)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

// SafeMethod reports whether method is read-only.
func SafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func (m *CSRFManager) sign(sessionID string) string {
	nonce := uuid.New()
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(sessionID))
	_, _ = mac.Write(nonce[:])
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
