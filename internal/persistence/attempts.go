package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/msomdec/password-validator/internal/domain"
)

const attemptColumns = `id, request_id, client_ip, fingerprint, length, score, valid, failures, created_at`

// AttemptSet is the ValidationAttempt collection of one Context. Add, Update
// and Remove are queued until Context.SaveChanges. Find, List and Count read
// committed rows only.
type AttemptSet struct {
	ctx *Context
}

// Add queues a new record for insertion.
func (s *AttemptSet) Add(a *domain.ValidationAttempt) error {
	if a == nil {
		return fmt.Errorf("%w: attempt is nil", domain.ErrInvalidInput)
	}
	if a.ID != 0 {
		return fmt.Errorf("%w: attempt %d is already persisted", domain.ErrInvalidInput, a.ID)
	}
	return s.ctx.queue(change{kind: changeInsert, attempt: a})
}

// Update queues a full-row update of a persisted record.
func (s *AttemptSet) Update(a *domain.ValidationAttempt) error {
	if a == nil || a.ID == 0 {
		return fmt.Errorf("%w: update needs a persisted attempt", domain.ErrInvalidInput)
	}
	return s.ctx.queue(change{kind: changeUpdate, attempt: a})
}

// Remove queues deletion of a persisted record.
func (s *AttemptSet) Remove(a *domain.ValidationAttempt) error {
	if a == nil || a.ID == 0 {
		return fmt.Errorf("%w: remove needs a persisted attempt", domain.ErrInvalidInput)
	}
	return s.ctx.queue(change{kind: changeRemove, id: a.ID})
}

// Find returns the record with the given ID.
func (s *AttemptSet) Find(ctx context.Context, id int64) (*domain.ValidationAttempt, error) {
	if err := s.ctx.enter(); err != nil {
		return nil, err
	}
	defer s.ctx.leave()

	conn, err := s.ctx.session(ctx)
	if err != nil {
		return nil, err
	}

	row := conn.QueryRowContext(ctx,
		s.ctx.rebind(`SELECT `+attemptColumns+` FROM validation_attempts WHERE id = ?`), id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query attempt by id: %w", err)
	}
	return a, nil
}

// List returns the records matching f, ordered by ID.
func (s *AttemptSet) List(ctx context.Context, f domain.AttemptFilter) ([]domain.ValidationAttempt, error) {
	if f.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", domain.ErrInvalidInput)
	}
	if err := s.ctx.enter(); err != nil {
		return nil, err
	}
	defer s.ctx.leave()

	conn, err := s.ctx.session(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildWhere(f)
	query := `SELECT ` + attemptColumns + ` FROM validation_attempts` + where + ` ORDER BY id`
	if f.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(f.Limit)
	} else if f.Offset > 0 {
		query += ` LIMIT ` + s.ctx.provider.dialect.noLimit
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + strconv.Itoa(f.Offset)
	}

	rows, err := conn.QueryContext(ctx, s.ctx.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.ValidationAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// Count returns how many records match f. Limit and Offset are ignored.
func (s *AttemptSet) Count(ctx context.Context, f domain.AttemptFilter) (int, error) {
	if err := s.ctx.enter(); err != nil {
		return 0, err
	}
	defer s.ctx.leave()

	conn, err := s.ctx.session(ctx)
	if err != nil {
		return 0, err
	}

	where, args := buildWhere(f)
	var n int
	err = conn.QueryRowContext(ctx,
		s.ctx.rebind(`SELECT COUNT(*) FROM validation_attempts`+where), args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

func (s *AttemptSet) insert(ctx context.Context, tx *sql.Tx, a *domain.ValidationAttempt, now time.Time) (int64, error) {
	failures, err := encodeFailures(a.Failures)
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRowContext(ctx, s.ctx.rebind(
		`INSERT INTO validation_attempts (request_id, client_ip, fingerprint, length, score, valid, failures, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		a.RequestID, a.ClientIP, a.Fingerprint, a.Length, a.Score, a.Valid, failures, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}
	return id, nil
}

func (s *AttemptSet) update(ctx context.Context, tx *sql.Tx, a *domain.ValidationAttempt) error {
	failures, err := encodeFailures(a.Failures)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, s.ctx.rebind(
		`UPDATE validation_attempts
		 SET request_id = ?, client_ip = ?, fingerprint = ?, length = ?, score = ?, valid = ?, failures = ?
		 WHERE id = ?`),
		a.RequestID, a.ClientIP, a.Fingerprint, a.Length, a.Score, a.Valid, failures, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update attempt %d: %w", a.ID, err)
	}
	return expectOneRow(result, a.ID)
}

func (s *AttemptSet) remove(ctx context.Context, tx *sql.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, s.ctx.rebind(`DELETE FROM validation_attempts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete attempt %d: %w", id, err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("attempt %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func buildWhere(f domain.AttemptFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Valid != nil {
		conds = append(conds, "valid = ?")
		args = append(args, *f.Valid)
	}
	if f.ClientIP != "" {
		conds = append(conds, "client_ip = ?")
		args = append(args, f.ClientIP)
	}
	if f.Fingerprint != "" {
		conds = append(conds, "fingerprint = ?")
		args = append(args, f.Fingerprint)
	}
	if f.RequestID != "" {
		conds = append(conds, "request_id = ?")
		args = append(args, f.RequestID)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*domain.ValidationAttempt, error) {
	a := &domain.ValidationAttempt{}
	var failures string
	if err := row.Scan(&a.ID, &a.RequestID, &a.ClientIP, &a.Fingerprint,
		&a.Length, &a.Score, &a.Valid, &failures, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(failures), &a.Failures); err != nil {
		return nil, fmt.Errorf("decode failures: %w", err)
	}
	return a, nil
}

func encodeFailures(failures []string) (string, error) {
	if failures == nil {
		failures = []string{}
	}
	b, err := json.Marshal(failures)
	if err != nil {
		return "", fmt.Errorf("encode failures: %w", err)
	}
	return string(b), nil
}
