package service_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/msomdec/password-validator/internal/domain"
	"github.com/msomdec/password-validator/internal/persistence"
	"github.com/msomdec/password-validator/internal/service"
)

func newTestAttemptService(t *testing.T) (*service.AttemptService, *persistence.Provider) {
	t.Helper()
	p, err := persistence.Open(persistence.Options{
		Provider: persistence.ProviderSQLite,
		DSN:      filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := p.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	fp, err := service.NewFingerprinter(bytes.Repeat([]byte("k"), 32))
	if err != nil {
		t.Fatalf("NewFingerprinter: %v", err)
	}
	return service.NewAttemptService(defaultPolicy, fp), p
}

func newStore(t *testing.T, p *persistence.Provider) *persistence.Context {
	t.Helper()
	c := p.NewContext()
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAttemptService_Validate_RecordsAttempt(t *testing.T) {
	svc, p := newTestAttemptService(t)
	ctx := context.Background()

	out, err := svc.Validate(ctx, newStore(t, p), service.ValidateInput{
		Password:  "Correct-Horse-9",
		ClientIP:  "192.0.2.10",
		RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	a := out.Attempt
	if a.ID == 0 {
		t.Fatal("expected attempt to be committed")
	}
	if !a.Valid || a.Score != 5 || a.Length != 15 {
		t.Fatalf("unexpected attempt: %+v", a)
	}
	if out.PreviousUses != 0 {
		t.Fatalf("expected no previous uses, got %d", out.PreviousUses)
	}

	got, err := svc.GetByID(ctx, newStore(t, p), a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Fingerprint != a.Fingerprint || got.ClientIP != "192.0.2.10" {
		t.Fatalf("stored attempt mismatch: %+v", got)
	}
	if got.Fingerprint == "Correct-Horse-9" {
		t.Fatal("password must not be stored")
	}
}

func TestAttemptService_Validate_CountsReuse(t *testing.T) {
	svc, p := newTestAttemptService(t)
	ctx := context.Background()

	for i, id := range []string{"r1", "r2", "r3"} {
		out, err := svc.Validate(ctx, newStore(t, p), service.ValidateInput{Password: "weak", RequestID: id})
		if err != nil {
			t.Fatalf("Validate %s: %v", id, err)
		}
		if out.PreviousUses != i {
			t.Fatalf("attempt %s: expected %d previous uses, got %d", id, i, out.PreviousUses)
		}
		if out.Attempt.Valid {
			t.Fatal("expected weak password to be invalid")
		}
	}
}

func TestAttemptService_Validate_InvalidInput(t *testing.T) {
	svc, p := newTestAttemptService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   service.ValidateInput
	}{
		{name: "empty password", in: service.ValidateInput{RequestID: "r"}},
		{name: "missing request id", in: service.ValidateInput{Password: "x"}},
		{name: "bad client ip", in: service.ValidateInput{Password: "x", RequestID: "r", ClientIP: "not-an-ip"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(ctx, newStore(t, p), tt.in)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAttemptService_Validate_DuplicateRequestID(t *testing.T) {
	svc, p := newTestAttemptService(t)
	ctx := context.Background()

	in := service.ValidateInput{Password: "Correct-Horse-9", RequestID: "same"}
	if _, err := svc.Validate(ctx, newStore(t, p), in); err != nil {
		t.Fatalf("first Validate: %v", err)
	}

	_, err := svc.Validate(ctx, newStore(t, p), in)
	if !errors.Is(err, domain.ErrCommit) || !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate commit failure, got %v", err)
	}
}

func TestAttemptService_Validate_ClosedStore(t *testing.T) {
	svc, p := newTestAttemptService(t)

	store := p.NewContext()
	store.Close()

	_, err := svc.Validate(context.Background(), store, service.ValidateInput{Password: "x", RequestID: "r"})
	if !errors.Is(err, domain.ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
}

func TestAttemptService_History(t *testing.T) {
	svc, p := newTestAttemptService(t)
	ctx := context.Background()

	for _, in := range []service.ValidateInput{
		{Password: "Correct-Horse-9", RequestID: "h1"},
		{Password: "weak", RequestID: "h2"},
		{Password: "Another-Good-1", RequestID: "h3"},
	} {
		if _, err := svc.Validate(ctx, newStore(t, p), in); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	}

	valid := true
	list, total, err := svc.History(ctx, newStore(t, p), domain.AttemptFilter{Valid: &valid, Limit: 1})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 valid attempts in total, got %d", total)
	}
	if len(list) != 1 || list[0].RequestID != "h1" {
		t.Fatalf("expected first page [h1], got %+v", list)
	}

	_, _, err = svc.History(ctx, newStore(t, p), domain.AttemptFilter{Limit: -1})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative limit, got %v", err)
	}
}

func TestAttemptService_GetByID_NotFound(t *testing.T) {
	svc, p := newTestAttemptService(t)

	_, err := svc.GetByID(context.Background(), newStore(t, p), 12345)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
