package auth

import (
	"net/http"
	"time"

	"github.com/okian/homedash/pkg/logger"
)

// Option configures a Manager.
type Option func(*Manager)

// WithOAuthClient sets the OAuth client id, redirect URL and scopes used
// for the consent URL.
func WithOAuthClient(clientID, redirectURL string, scopes []string) Option {
	return func(m *Manager) {
		m.oauth.ClientID = clientID
		if redirectURL != "" {
			m.oauth.RedirectURL = redirectURL
		}
		if len(scopes) > 0 {
			m.oauth.Scopes = append([]string(nil), scopes...)
		}
	}
}

// WithRefreshMargin sets how long before expiry a token is refreshed.
func WithRefreshMargin(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.margin = d
		}
	}
}

// WithHTTPClient sets the client that carries authorized requests.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		if c != nil {
			m.base = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}
