package golemio

import (
	"net/http"
	"time"

	"github.com/okian/homedash/pkg/logger"
)

// Alert feed encodings.
const (
	FormatJSON     = "json"
	FormatProtobuf = "protobuf"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithAlertsFormat selects the GTFS-RT alert feed encoding: json or protobuf.
func WithAlertsFormat(format string) Option {
	return func(cl *Client) {
		if format == FormatJSON || format == FormatProtobuf {
			cl.alertsFormat = format
		}
	}
}

// WithClock overrides the time source used to stamp boards.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		if now != nil {
			cl.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// ReferenceOption configures a Reference.
type ReferenceOption func(*Reference)

// WithTTL sets how long reference data stays cached.
func WithTTL(d time.Duration) ReferenceOption {
	return func(r *Reference) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithLoadTimeout bounds one background reference load.
func WithLoadTimeout(d time.Duration) ReferenceOption {
	return func(r *Reference) {
		if d > 0 {
			r.loadTimeout = d
		}
	}
}

// WithReferenceLogger sets a custom logger.
func WithReferenceLogger(l logger.Logger) ReferenceOption {
	return func(r *Reference) {
		if l != nil {
			r.logger = l
		}
	}
}
