package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/homedash/internal/app"
)

// AuthDependencies drive the browser login flow.
type AuthDependencies interface {
	AuthStatus() service.AuthStatus
	BeginLogin() (state, authURL string, err error)
	CompleteLogin(ctx context.Context, state, code string) (service.AuthStatus, error)
}

// AuthHandler handles login and credential status requests.
type AuthHandler struct {
	deps AuthDependencies
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(deps AuthDependencies) *AuthHandler {
	return &AuthHandler{deps: deps}
}

// HandleLogin handles GET /auth/login by redirecting to the consent page.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_, url, err := h.deps.BeginLogin()
	if err != nil {
		writeFailure(r, w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// HandleCallback handles GET /auth/callback?state=&code= after consent.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeError(w, http.StatusBadRequest, "consent_denied", fmt.Errorf("%w: %s", ErrBadRequest, e))
		return
	}
	state, code := strings.TrimSpace(q.Get("state")), strings.TrimSpace(q.Get("code"))
	if state == "" || code == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing state or code", ErrBadRequest))
		return
	}
	status, err := h.deps.CompleteLogin(r.Context(), state, code)
	if err != nil {
		writeFailure(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleStatus handles GET /api/auth.
func (h *AuthHandler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.AuthStatus())
}
