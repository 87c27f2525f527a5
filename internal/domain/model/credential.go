// Package model contains domain models passed between layers.
package model

import (
	"time"

	"golang.org/x/oauth2"
)

// CredentialKey is the storage key holding the serialized Credential.
const CredentialKey = "_auth.GoogleApi"

// Credential is the OAuth token bundle used for calendar access.
type Credential struct {
	AccessToken   string `json:"access_token"`
	IDToken       string `json:"id_token"`
	RefreshToken  string `json:"refresh_token"`
	ExpiryEpochMs int64  `json:"expiry_date"`
	Subject       string `json:"username"`
}

// Expiry returns the access token expiry instant.
func (c Credential) Expiry() time.Time {
	return time.UnixMilli(c.ExpiryEpochMs)
}

// ExpiresWithin reports whether the token expires at or before now+margin.
// An already expired token always does.
func (c Credential) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return !c.Expiry().After(now.Add(margin))
}

// OAuth2 converts the credential into an oauth2 token.
func (c Credential) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry(),
	}
}
