package policies

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("policies: cache miss")

// LocalCache is the key-value store behind draft calendars and the
// process-wide weekend setting.
type LocalCache interface {
	// Get returns ErrCacheMiss when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	// Keys lists the keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
