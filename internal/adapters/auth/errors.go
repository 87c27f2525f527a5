package auth

import "errors"

// Sentinel kinds for credential errors.
var (
	// ErrNotReady means no credential is stored yet; the user must log in.
	ErrNotReady = errors.New("credential not initialized")
	// ErrAuthFailure means the relay or identity provider rejected the request.
	ErrAuthFailure = errors.New("authentication rejected")
	// ErrNetwork means the relay could not be reached or answered garbage.
	ErrNetwork = errors.New("auth relay unavailable")
	// ErrInvalidState means a login callback carried an unknown or expired state.
	ErrInvalidState = errors.New("invalid login state")
)
