// Package auth keeps the Google OAuth credential valid and gates calendar
// requests on it.
//
// Conventions:
// - The credential lives in a repository.Store under model.CredentialKey.
// - Refreshes go through a Relay that holds the client secret.
// - A refreshed credential is persisted before it becomes visible.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"github.com/okian/homedash/internal/adapters/mq/topic"
	"github.com/okian/homedash/internal/adapters/repository"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
	"github.com/okian/homedash/pkg/metrics"
)

const (
	defaultMargin   = 5 * time.Second
	loginStateTTL   = 10 * time.Minute
	refreshFlightID = "refresh"
	// postmessage is the redirect used by the popup code flow the relay expects.
	postmessage = "postmessage"
)

// Manager owns the credential lifecycle.
type Manager struct {
	store  repository.Store
	relay  Relay
	oauth  *oauth2.Config
	margin time.Duration
	base   *http.Client
	now    func() time.Time
	logger logger.Logger

	topic  *topic.Topic[model.Credential]
	flight singleflight.Group

	mu   sync.RWMutex
	cred *model.Credential

	statesMu sync.Mutex
	states   map[string]time.Time
}

// NewManager creates a Manager. Call Load to pick up a stored credential.
func NewManager(store repository.Store, relay Relay, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		relay: relay,
		oauth: &oauth2.Config{
			Endpoint:    google.Endpoint,
			RedirectURL: postmessage,
			Scopes:      []string{"https://www.googleapis.com/auth/calendar.readonly", "openid", "email"},
		},
		margin: defaultMargin,
		base:   http.DefaultClient,
		now:    time.Now,
		logger: logger.Get().Named("auth"),
		states: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.topic = topic.New[model.Credential]("credential", topic.WithClock[model.Credential](m.now))
	return m
}

// Load reads the persisted credential. A missing one leaves the manager
// uninitialized and is not an error.
func (m *Manager) Load(ctx context.Context) error {
	raw, err := m.store.Get(ctx, model.CredentialKey)
	if errors.Is(err, repository.ErrNotFound) {
		m.logger.Info(ctx, "no stored credential, login required")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	var cred model.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return fmt.Errorf("decode credential: %w", err)
	}
	if cred.AccessToken == "" {
		m.logger.Warn(ctx, "stored credential has no access token, ignoring")
		return nil
	}
	m.set(cred)
	m.logger.Info(ctx, "credential loaded",
		logger.String("subject", cred.Subject),
		logger.Time("expiry", cred.Expiry()),
	)
	return nil
}

// Ready reports whether a credential is available.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred != nil
}

// Credential returns the current credential.
func (m *Manager) Credential() (model.Credential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred == nil {
		return model.Credential{}, false
	}
	return *m.cred, true
}

// Subscribe streams credential changes until ctx is done.
func (m *Manager) Subscribe(ctx context.Context) <-chan topic.Snapshot[model.Credential] {
	return m.topic.Subscribe(ctx)
}

// LoginURL returns the consent page URL for state.
func (m *Manager) LoginURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// BeginLogin starts a login and returns its state and consent URL.
func (m *Manager) BeginLogin() (state, authURL string) {
	state = uuid.NewString()
	now := m.now()

	m.statesMu.Lock()
	for s, exp := range m.states {
		if now.After(exp) {
			delete(m.states, s)
		}
	}
	m.states[state] = now.Add(loginStateTTL)
	m.statesMu.Unlock()

	return state, m.LoginURL(state)
}

// CompleteLoginWithState finishes a login started with BeginLogin.
func (m *Manager) CompleteLoginWithState(ctx context.Context, state, code string) (model.Credential, error) {
	m.statesMu.Lock()
	exp, ok := m.states[state]
	delete(m.states, state)
	m.statesMu.Unlock()

	if !ok || m.now().After(exp) {
		return model.Credential{}, ErrInvalidState
	}
	return m.CompleteLogin(ctx, code)
}

// CompleteLogin exchanges an authorization code and stores the result.
func (m *Manager) CompleteLogin(ctx context.Context, code string) (model.Credential, error) {
	if code == "" {
		return model.Credential{}, fmt.Errorf("%w: empty authorization code", ErrAuthFailure)
	}
	resp, err := m.relay.Exchange(ctx, code)
	if err != nil {
		return model.Credential{}, fmt.Errorf("exchange code: %w", err)
	}
	cred := m.credentialFrom(ctx, resp, model.Credential{})
	if err := m.commit(ctx, cred); err != nil {
		return model.Credential{}, err
	}
	m.logger.Info(ctx, "logged in", logger.String("subject", cred.Subject))
	return cred, nil
}

// AuthorizedFetch sends req with a valid bearer token, refreshing first
// when the current one is about to expire.
func (m *Manager) AuthorizedFetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	tok, err := m.validToken(ctx)
	if err != nil {
		return nil, err
	}
	out := req.Clone(ctx)
	tok.SetAuthHeader(out)
	return m.base.Do(out)
}

// Client returns an HTTP client whose requests pass through AuthorizedFetch.
func (m *Manager) Client() *http.Client {
	next := m.base.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	return &http.Client{
		Transport: &transport{manager: m, next: next},
		Timeout:   m.base.Timeout,
	}
}

// Token implements oauth2.TokenSource.
func (m *Manager) Token() (*oauth2.Token, error) {
	return m.validToken(context.Background())
}

func (m *Manager) validToken(ctx context.Context) (*oauth2.Token, error) {
	cred, ok := m.Credential()
	if !ok {
		return nil, ErrNotReady
	}
	if cred.ExpiresWithin(m.now(), m.margin) {
		fresh, err := m.refresh(ctx)
		if err != nil {
			return nil, err
		}
		cred = fresh
	}
	return cred.OAuth2(), nil
}

// refresh renews the credential. Concurrent callers share one relay call;
// a caller arriving after a refresh finished sees the fresh credential.
func (m *Manager) refresh(ctx context.Context) (model.Credential, error) {
	v, err, _ := m.flight.Do(refreshFlightID, func() (any, error) {
		cur, ok := m.Credential()
		if !ok {
			return nil, ErrNotReady
		}
		if !cur.ExpiresWithin(m.now(), m.margin) {
			return cur, nil
		}
		if cur.RefreshToken == "" {
			metrics.RecordTokenRefresh(metrics.OutcomeFailure)
			return nil, fmt.Errorf("%w: no refresh token stored", ErrAuthFailure)
		}

		resp, err := m.relay.Refresh(ctx, cur.RefreshToken)
		if err != nil {
			metrics.RecordTokenRefresh(metrics.OutcomeFailure)
			m.logger.Error(ctx, "credential refresh failed", logger.Error(err))
			return nil, fmt.Errorf("refresh credential: %w", err)
		}

		next := m.credentialFrom(ctx, resp, cur)
		if err := m.commit(ctx, next); err != nil {
			metrics.RecordTokenRefresh(metrics.OutcomeFailure)
			return nil, err
		}
		metrics.RecordTokenRefresh(metrics.OutcomeSuccess)
		m.logger.Debug(ctx, "credential refreshed", logger.Time("expiry", next.Expiry()))
		return next, nil
	})
	if err != nil {
		return model.Credential{}, err
	}
	return v.(model.Credential), nil
}

// credentialFrom merges a relay response over prev. Tokens the relay omits
// are carried over.
func (m *Manager) credentialFrom(ctx context.Context, resp TokenResponse, prev model.Credential) model.Credential {
	cred := model.Credential{
		AccessToken:   resp.AccessToken,
		IDToken:       resp.IDToken,
		RefreshToken:  resp.RefreshToken,
		ExpiryEpochMs: resp.ExpiryDate,
		Subject:       prev.Subject,
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = prev.RefreshToken
	}
	if cred.IDToken == "" {
		cred.IDToken = prev.IDToken
	}
	if cred.ExpiryEpochMs == 0 && resp.ExpiresIn > 0 {
		cred.ExpiryEpochMs = m.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UnixMilli()
	}
	if resp.IDToken != "" {
		subject, err := subjectFromIDToken(resp.IDToken)
		if err != nil {
			m.logger.Warn(ctx, "cannot read id_token subject", logger.Error(err))
		} else {
			cred.Subject = subject
		}
	}
	return cred
}

// commit persists cred, then makes it current.
func (m *Manager) commit(ctx context.Context, cred model.Credential) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := m.store.Put(ctx, model.CredentialKey, raw); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	m.set(cred)
	return nil
}

func (m *Manager) set(cred model.Credential) {
	m.mu.Lock()
	m.cred = &cred
	m.mu.Unlock()
	m.topic.Publish(cred)
}

// Close releases subscribers.
func (m *Manager) Close() error {
	return m.topic.Close()
}
