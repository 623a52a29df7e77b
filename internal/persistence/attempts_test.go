package persistence_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/msomdec/password-validator/internal/domain"
	"github.com/msomdec/password-validator/internal/persistence"
)

func seedAttempts(t *testing.T, p *persistence.Provider, attempts ...*domain.ValidationAttempt) {
	t.Helper()
	c := p.NewContext()
	defer c.Close()
	for _, a := range attempts {
		if err := c.Attempts().Add(a); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if _, err := c.SaveChanges(context.Background()); err != nil {
		t.Fatalf("SaveChanges: %v", err)
	}
}

func TestAttemptSet_Find_NotFound(t *testing.T) {
	p := newTestProvider(t)
	c := newTestContext(t, p)

	_, err := c.Attempts().Find(context.Background(), 99999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAttemptSet_List_Filters(t *testing.T) {
	p := newTestProvider(t)

	ok1 := sampleAttempt("ok-1")
	ok1.Valid = true
	ok1.Failures = nil
	bad := sampleAttempt("bad-1")
	bad.ClientIP = "198.51.100.1"
	bad.Fingerprint = "beef"
	ok2 := sampleAttempt("ok-2")
	ok2.Valid = true
	ok2.Failures = nil
	seedAttempts(t, p, ok1, bad, ok2)

	c := newTestContext(t, p)
	ctx := context.Background()
	valid := true
	invalid := false

	tests := []struct {
		name   string
		filter domain.AttemptFilter
		want   []string
	}{
		{name: "all", filter: domain.AttemptFilter{}, want: []string{"ok-1", "bad-1", "ok-2"}},
		{name: "valid", filter: domain.AttemptFilter{Valid: &valid}, want: []string{"ok-1", "ok-2"}},
		{name: "invalid", filter: domain.AttemptFilter{Valid: &invalid}, want: []string{"bad-1"}},
		{name: "client ip", filter: domain.AttemptFilter{ClientIP: "198.51.100.1"}, want: []string{"bad-1"}},
		{name: "fingerprint", filter: domain.AttemptFilter{Fingerprint: "f00d"}, want: []string{"ok-1", "ok-2"}},
		{name: "request id", filter: domain.AttemptFilter{RequestID: "ok-2"}, want: []string{"ok-2"}},
		{name: "limit", filter: domain.AttemptFilter{Limit: 2}, want: []string{"ok-1", "bad-1"}},
		{name: "limit and offset", filter: domain.AttemptFilter{Limit: 1, Offset: 1}, want: []string{"bad-1"}},
		{name: "offset only", filter: domain.AttemptFilter{Offset: 2}, want: []string{"ok-2"}},
		{name: "since past", filter: domain.AttemptFilter{Since: time.Now().Add(-time.Hour)}, want: []string{"ok-1", "bad-1", "ok-2"}},
		{name: "since future", filter: domain.AttemptFilter{Since: time.Now().Add(time.Hour)}, want: nil},
		{name: "combined", filter: domain.AttemptFilter{Valid: &valid, RequestID: "bad-1"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := c.Attempts().List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			var got []string
			for _, a := range list {
				got = append(got, a.RequestID)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAttemptSet_List_NegativeOffset(t *testing.T) {
	p := newTestProvider(t)
	c := newTestContext(t, p)

	_, err := c.Attempts().List(context.Background(), domain.AttemptFilter{Offset: -1})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAttemptSet_Count(t *testing.T) {
	p := newTestProvider(t)

	a := sampleAttempt("count-1")
	b := sampleAttempt("count-2")
	b.Valid = true
	seedAttempts(t, p, a, b)

	c := newTestContext(t, p)
	ctx := context.Background()

	total, err := c.Attempts().Count(ctx, domain.AttemptFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected Count to ignore limit and return 2, got %d", total)
	}

	valid := true
	n, err := c.Attempts().Count(ctx, domain.AttemptFilter{Valid: &valid})
	if err != nil {
		t.Fatalf("Count valid: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 valid attempt, got %d", n)
	}
}
