package repository

import "github.com/okian/homedash/pkg/logger"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithSecret seals stored values with a key derived from secret.
func WithSecret(secret string) Option {
	return func(s *SQLiteStore) {
		s.secret = secret
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}
