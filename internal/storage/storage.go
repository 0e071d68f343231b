// Package storage provides the durable client-side key/value storage that the
// token and session stores persist into. Values survive a restart of the
// client process for every backend except Memory.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nidhal-dev/authfront/internal/config"
)

// Storage is a string key/value store. Remove of a missing key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend names accepted by Open
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendSQLite  = "sqlite"
	BackendRedis   = "redis"
	BackendMemory  = "memory"
)

// Open creates the backend selected by cfg. The returned close func releases
// any connection the backend holds and is always non-nil on success.
func Open(cfg config.StorageConfig, namespace string, log zerolog.Logger) (Storage, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Backend) {
	case BackendKeyring:
		return NewKeyring(namespace), noop, nil
	case BackendFile, "":
		return NewFile(cfg.Dir), noop, nil
	case BackendSQLite:
		s, err := OpenSQLite(cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case BackendRedis:
		s, err := OpenRedis(context.Background(), cfg.RedisAddress, namespace)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case BackendMemory:
		return NewMemory(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q (want keyring, file, sqlite, redis or memory)", cfg.Backend)
	}
}
