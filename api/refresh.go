package api

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/dentatrack/console/internal/errors"
	"github.com/dentatrack/console/session"
)

// TokenResponse is the payload of the login and refresh endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// refresh exchanges the stored refresh token for a new pair. staleToken is
// the access token that just failed with 401: once the lock is acquired, a
// stored token that differs from it means another request already refreshed,
// and no duplicate refresh call is issued.
func (c *Client) refresh(ctx context.Context, staleToken string) error {
	c.refreshLock.Lock()
	defer c.refreshLock.Unlock()

	s, err := c.store.Load()
	if err != nil {
		return apperrors.Wrapf(err, "[Client.refresh] load session")
	}
	if s == nil || s.RefreshToken == "" {
		return apperrors.ErrNoSession
	}
	if staleToken != "" && s.AccessToken != staleToken {
		return nil // refreshed by a concurrent request while we waited
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"refreshToken": s.RefreshToken}).
		SetResult(&TokenResponse{}).
		Post("/auth/refresh")
	if err != nil {
		return apperrors.Wrapf(err, "[Client.refresh] send refresh request")
	}
	if resp.StatusCode() != http.StatusOK {
		return apperrors.Wrapf(apperrors.ErrInvalidRefreshToken, "[Client.refresh] status %d", resp.StatusCode())
	}

	tokens, ok := resp.Result().(*TokenResponse)
	if !ok || tokens.AccessToken == "" {
		return apperrors.Wrapf(apperrors.ErrRefreshFailed, "[Client.refresh] malformed token response")
	}

	if err := c.SaveTokens(tokens); err != nil {
		return err
	}
	c.log.Debug().Msg("token pair refreshed")
	return nil
}

// SaveTokens persists a token pair. Expiry comes from the access token's exp
// claim, falling back to the reported expires_in for opaque tokens.
func (c *Client) SaveTokens(tokens *TokenResponse) error {
	s := session.New(tokens.AccessToken, tokens.RefreshToken)
	if s.ExpiresAt.IsZero() && tokens.ExpiresIn > 0 {
		s.ExpiresAt = session.NowTimeFunc().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	}
	if err := c.store.Save(s); err != nil {
		return apperrors.Wrapf(err, "[Client] save session")
	}
	return nil
}
