package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/msomdec/password-validator/internal/domain"
	"github.com/msomdec/password-validator/internal/persistence/migrations"
)

// Provider owns the connection pool shared by every Context it creates.
// It is safe for concurrent use.
type Provider struct {
	dialect *dialect
	db      *sql.DB

	// An in-memory database lives only while a connection to it is open,
	// so the provider pins one from first use until Close.
	memory bool
	mu     sync.Mutex
	pinned *sql.Conn
}

var _ domain.Database = (*Provider)(nil)

// Open validates opts and prepares a connection pool. No connection is made
// until a Context or Migrate needs one.
func Open(opts Options) (*Provider, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	d := dialects[opts.Provider]
	dsn, memory := opts.DSN, false
	if d.memoryDSN != nil {
		dsn, memory = d.memoryDSN(opts.DSN)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrConfiguration, opts.Provider, err)
	}

	return &Provider{dialect: d, db: db, memory: memory}, nil
}

// conn hands out a pooled connection for a Context.
func (p *Provider) conn(ctx context.Context) (*sql.Conn, error) {
	if err := p.pin(ctx); err != nil {
		return nil, err
	}
	return p.db.Conn(ctx)
}

// pin keeps an in-memory database alive. It is a no-op for other stores.
func (p *Provider) pin(ctx context.Context) error {
	if !p.memory {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pinned != nil {
		return nil
	}
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("pin in-memory database: %w", err)
	}
	p.pinned = conn
	return nil
}

// NewContext starts a unit of work backed by this provider's pool.
func (p *Provider) NewContext() *Context {
	return newContext(p, false)
}

// Migrate applies the provider's embedded schema migrations.
func (p *Provider) Migrate(ctx context.Context) error {
	if err := p.pin(ctx); err != nil {
		return err
	}
	return migrations.Run(ctx, p.db, p.dialect.name)
}

// Ping verifies the store is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the pool. Contexts still holding a connection keep it until
// they are closed.
func (p *Provider) Close() error {
	p.mu.Lock()
	pinned := p.pinned
	p.pinned = nil
	p.mu.Unlock()

	var errs []error
	if pinned != nil {
		if err := pinned.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release pinned connection: %w", err))
		}
	}
	if err := p.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
