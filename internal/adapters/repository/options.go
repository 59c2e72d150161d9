package repository

import "time"

const defaultKeyPrefix = "stuffscore:leaderboard:"

type storeOptions struct {
	ttl       time.Duration
	now       func() time.Time
	keyPrefix string
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		now:       time.Now,
		keyPrefix: defaultKeyPrefix,
	}
}

// Option applies a configuration option to a snapshot store.
type Option func(*storeOptions)

// WithTTL expires snapshots after ttl. Zero keeps them until invalidated.
func WithTTL(ttl time.Duration) Option {
	return func(o *storeOptions) {
		if ttl >= 0 {
			o.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *storeOptions) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}
