package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Session is the token pair issued by the platform on login or refresh.
// At most one session exists per store; it is written only by the login,
// refresh and logout paths and read by every outbound request.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// New builds a session from a token pair, deriving ExpiresAt from the access
// token's exp claim when the token parses as a JWT. The token is otherwise
// treated as opaque; a non-JWT access token leaves ExpiresAt zero.
func New(accessToken, refreshToken string) *Session {
	s := &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			s.ExpiresAt = exp.Time
		}
	}
	return s
}

// Expired reports whether the access token is known to have expired.
// Sessions without a parseable expiry are never reported as expired; the
// 401-refresh path covers those.
func (s *Session) Expired() bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return NowTimeFunc().After(s.ExpiresAt)
}

// Token converts the session to an oauth2 token for interop with callers
// expecting the standard type.
func (s *Session) Token() *oauth2.Token {
	if s == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       s.ExpiresAt,
	}
}

// FromToken builds a session from an oauth2 token.
func FromToken(t *oauth2.Token) *Session {
	if t == nil {
		return nil
	}
	return &Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.Expiry,
	}
}
