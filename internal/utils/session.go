package utils

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// SessionCookieName is the cookie browsers carry the access token in.
const SessionCookieName = "session"

// SessionCookie signs (and optionally encrypts) the access token stored in
// the browser session cookie.  API clients send the same token as a Bearer
// header instead.
type SessionCookie struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewSessionCookie builds the cookie codec.  blockKey may be empty, in
// which case the cookie is signed but not encrypted.
func NewSessionCookie(hashKey, blockKey string, secure bool) *SessionCookie {
	var block []byte
	if blockKey != "" {
		block = []byte(blockKey)
	}
	return &SessionCookie{codec: securecookie.New([]byte(hashKey), block), secure: secure}
}

// Set writes the encoded token with the token's own expiry.
func (s *SessionCookie) Set(w http.ResponseWriter, token string, exp time.Time) error {
	encoded, err := s.codec.Encode(SessionCookieName, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Token returns the access token carried by the request's session cookie.
func (s *SessionCookie) Token(r *http.Request) (string, error) {
	ck, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	var token string
	if err := s.codec.Decode(SessionCookieName, ck.Value, &token); err != nil {
		return "", err
	}
	return token, nil
}

// Clear expires the session cookie.
func (s *SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
