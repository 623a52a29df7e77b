package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/msomdec/password-validator/internal/domain"
)

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeRemove
)

func (k changeKind) String() string {
	switch k {
	case changeInsert:
		return "insert"
	case changeUpdate:
		return "update"
	case changeRemove:
		return "remove"
	}
	return "unknown"
}

// change is one queued mutation. Inserts and updates keep the caller's
// pointer, so field values are read at commit time. Removals capture the ID
// when queued.
type change struct {
	kind    changeKind
	attempt *domain.ValidationAttempt
	id      int64
}

// CommitError reports a SaveChanges call that could not be applied. The
// transaction was rolled back and the queued changes were discarded.
type CommitError struct {
	// Index is the position of the failing change in the queue, or -1 when
	// the failure happened outside a single change.
	Index int
	Op    string
	Err   error
}

func (e *CommitError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("commit failed: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("commit failed: %s #%d: %v", e.Op, e.Index, e.Err)
}

func (e *CommitError) Unwrap() []error {
	return []error{domain.ErrCommit, e.Err}
}

// Context is a unit of work over the validation_attempts table.
type Context struct {
	provider     *Provider
	ownsProvider bool

	busy    atomic.Bool
	closed  bool
	conn    *sql.Conn
	pending []change

	attempts *AttemptSet
}

// NewContext validates opts and returns a Context that owns a private
// Provider. Closing the Context closes the Provider too. The schema must
// already exist; to create it, use Open followed by Provider.Migrate and
// Provider.NewContext instead.
func NewContext(opts Options) (*Context, error) {
	p, err := Open(opts)
	if err != nil {
		return nil, err
	}
	return newContext(p, true), nil
}

func newContext(p *Provider, owns bool) *Context {
	c := &Context{provider: p, ownsProvider: owns}
	c.attempts = &AttemptSet{ctx: c}
	return c
}

// Attempts returns the ValidationAttempt collection of this unit of work.
func (c *Context) Attempts() *AttemptSet {
	return c.attempts
}

// Pending returns the number of queued changes.
func (c *Context) Pending() (int, error) {
	if err := c.enter(); err != nil {
		return 0, err
	}
	defer c.leave()
	return len(c.pending), nil
}

// DiscardChanges drops every queued change without touching the store.
func (c *Context) DiscardChanges() error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	c.pending = nil
	return nil
}

// SaveChanges applies the queued changes in order inside one transaction and
// returns how many were applied. On failure nothing is applied, the queue is
// discarded and the error is a *CommitError matching domain.ErrCommit.
// Inserted records receive their ID and CreatedAt only after the commit
// succeeds.
func (c *Context) SaveChanges(ctx context.Context) (int, error) {
	if err := c.enter(); err != nil {
		return 0, err
	}
	defer c.leave()

	if len(c.pending) == 0 {
		return 0, nil
	}
	pending := c.pending
	c.pending = nil

	conn, err := c.session(ctx)
	if err != nil {
		return 0, &CommitError{Index: -1, Op: "connect", Err: err}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, &CommitError{Index: -1, Op: "begin", Err: err}
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	ids := make([]int64, len(pending))
	for i, ch := range pending {
		var err error
		switch ch.kind {
		case changeInsert:
			ids[i], err = c.attempts.insert(ctx, tx, ch.attempt, now)
		case changeUpdate:
			err = c.attempts.update(ctx, tx, ch.attempt)
		case changeRemove:
			err = c.attempts.remove(ctx, tx, ch.id)
		}
		if err != nil {
			return 0, &CommitError{Index: i, Op: ch.kind.String(), Err: c.classify(err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &CommitError{Index: -1, Op: "commit", Err: c.classify(err)}
	}

	for i, ch := range pending {
		if ch.kind == changeInsert {
			ch.attempt.ID = ids[i]
			ch.attempt.CreatedAt = now
		}
	}
	return len(pending), nil
}

// Close releases the held connection and discards queued changes. It is
// safe to call more than once.
func (c *Context) Close() error {
	if !c.busy.CompareAndSwap(false, true) {
		return domain.ErrConcurrentUse
	}
	defer c.busy.Store(false)

	if c.closed {
		return nil
	}
	c.closed = true
	c.pending = nil

	var errs []error
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release connection: %w", err))
		}
		c.conn = nil
	}
	if c.ownsProvider {
		if err := c.provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Context) enter() error {
	if !c.busy.CompareAndSwap(false, true) {
		return domain.ErrConcurrentUse
	}
	if c.closed {
		c.busy.Store(false)
		return domain.ErrDisposed
	}
	return nil
}

func (c *Context) leave() {
	c.busy.Store(false)
}

func (c *Context) queue(ch change) error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	c.pending = append(c.pending, ch)
	return nil
}

// session returns the Context's connection, acquiring it on first use.
func (c *Context) session(ctx context.Context) (*sql.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	conn, err := c.provider.conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	for _, stmt := range c.provider.dialect.session {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("configure session %q: %w", stmt, err)
		}
	}

	c.conn = conn
	return conn, nil
}

func (c *Context) classify(err error) error {
	if c.provider.dialect.isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	}
	return err
}

func (c *Context) rebind(query string) string {
	return c.provider.dialect.rebind(query)
}
