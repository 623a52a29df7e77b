package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each provider (SQLite, Postgres) owns its own migration files, so the
// storage engine stays swappable behind configuration.
type Database interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
