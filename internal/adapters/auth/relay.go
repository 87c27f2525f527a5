package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/homedash/pkg/logger"
)

const (
	exchangePath        = "auth/google"
	refreshPath         = "auth/google/refresh-token"
	defaultRelayTimeout = 15 * time.Second
	defaultAttempts     = 3
	defaultRetryWait    = 500 * time.Millisecond
	maxErrorBody        = 512
)

// TokenResponse is the relay's answer to both endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiryDate   int64  `json:"expiry_date"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// Relay exchanges authorization codes and refresh tokens for tokens.
type Relay interface {
	Exchange(ctx context.Context, code string) (TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (TokenResponse, error)
}

// RelayClient talks to the code-exchange relay over HTTP.
type RelayClient struct {
	base      *url.URL
	http      *http.Client
	attempts  uint64
	retryWait time.Duration
	logger    logger.Logger
}

// RelayOption configures a RelayClient.
type RelayOption func(*RelayClient)

// WithRelayHTTPClient overrides the HTTP client.
func WithRelayHTTPClient(c *http.Client) RelayOption {
	return func(r *RelayClient) {
		if c != nil {
			r.http = c
		}
	}
}

// WithRelayRetry sets the attempt budget and the initial backoff interval.
func WithRelayRetry(attempts int, initial time.Duration) RelayOption {
	return func(r *RelayClient) {
		if attempts > 0 {
			r.attempts = uint64(attempts)
		}
		if initial > 0 {
			r.retryWait = initial
		}
	}
}

// WithRelayLogger sets a custom logger.
func WithRelayLogger(l logger.Logger) RelayOption {
	return func(r *RelayClient) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRelayClient creates a client for the relay rooted at baseURL.
func NewRelayClient(baseURL string, opts ...RelayOption) (*RelayClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("relay url: %w", err)
	}
	if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}
	r := &RelayClient{
		base:      u,
		http:      &http.Client{Timeout: defaultRelayTimeout},
		attempts:  defaultAttempts,
		retryWait: defaultRetryWait,
		logger:    logger.Get().Named("relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Exchange implements Relay.
func (r *RelayClient) Exchange(ctx context.Context, code string) (TokenResponse, error) {
	return r.post(ctx, exchangePath, map[string]string{"code": code})
}

// Refresh implements Relay.
func (r *RelayClient) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	return r.post(ctx, refreshPath, map[string]string{"refreshToken": refreshToken})
}

// post sends body as JSON, retrying network failures and 5xx answers.
// 4xx answers are final and map to ErrAuthFailure.
func (r *RelayClient) post(ctx context.Context, path string, body any) (TokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("encode request: %w", err)
	}
	endpoint := r.base.ResolveReference(&url.URL{Path: path}).String()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retryWait
	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.attempts-1), ctx)

	op := func() (TokenResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return TokenResponse{}, backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.http.Do(req)
		if err != nil {
			return TokenResponse{}, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return TokenResponse{}, fmt.Errorf("%w: %s returned %d", ErrNetwork, path, resp.StatusCode)
		case resp.StatusCode >= http.StatusBadRequest:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return TokenResponse{}, backoff.Permanent(fmt.Errorf("%w: %s returned %d: %s", ErrAuthFailure, path, resp.StatusCode, bytes.TrimSpace(msg)))
		}

		var out TokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return TokenResponse{}, backoff.Permanent(fmt.Errorf("%w: decode %s: %w", ErrNetwork, path, err))
		}
		if out.AccessToken == "" {
			return TokenResponse{}, backoff.Permanent(fmt.Errorf("%w: %s returned no access token", ErrAuthFailure, path))
		}
		return out, nil
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn(ctx, "relay call failed, retrying",
			logger.String("path", path),
			logger.Duration("wait", wait),
			logger.Error(err),
		)
	}
	return backoff.RetryNotifyWithData(op, policy, notify)
}
