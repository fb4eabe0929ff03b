// Package store persists small JSON documents by key. It backs the
// conversation history and can run on SQLite, Postgres or bbolt.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agrimate/internal/config"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = eris.New("store: key not found")

// KV is a string-keyed document store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the backend selected by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (KV, error) {
	var (
		kv  KV
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		kv, err = NewSQLite(cfg.Path)
	case "postgres":
		kv, err = NewPostgres(ctx, cfg.DatabaseURL)
	case "bolt":
		kv, err = NewBolt(cfg.Path)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := kv.Migrate(ctx); err != nil {
		kv.Close() //nolint:errcheck
		return nil, err
	}
	return kv, nil
}
