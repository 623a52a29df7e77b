package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/msomdec/password-validator/internal/domain"
	"github.com/msomdec/password-validator/internal/persistence"
)

// Store is the unit of work a request runs against.
type Store interface {
	Attempts() *persistence.AttemptSet
	SaveChanges(ctx context.Context) (int, error)
}

// ValidateInput is one validation request. Password length is capped
// independently of the policy to bound the work done per request.
type ValidateInput struct {
	Password  string `validate:"required,max=4096"`
	ClientIP  string `validate:"omitempty,ip"`
	RequestID string `validate:"required,max=128"`
}

// ValidateOutcome is the recorded attempt plus how often the same password
// was submitted before.
type ValidateOutcome struct {
	Attempt      *domain.ValidationAttempt
	PreviousUses int
}

// AttemptService checks passwords and records every check as a
// ValidationAttempt.
type AttemptService struct {
	policy      Policy
	fingerprint *Fingerprinter
	validate    *validator.Validate
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(policy Policy, fingerprint *Fingerprinter) *AttemptService {
	return &AttemptService{
		policy:      policy,
		fingerprint: fingerprint,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Policy returns the rules passwords are checked against.
func (s *AttemptService) Policy() Policy {
	return s.policy
}

// Validate evaluates the password, records the attempt and commits it.
func (s *AttemptService) Validate(ctx context.Context, store Store, in ValidateInput) (*ValidateOutcome, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	result := s.policy.Evaluate(in.Password)
	fp := s.fingerprint.Sum(in.Password)

	previous, err := store.Attempts().Count(ctx, domain.AttemptFilter{Fingerprint: fp})
	if err != nil {
		return nil, fmt.Errorf("count previous uses: %w", err)
	}

	attempt := &domain.ValidationAttempt{
		RequestID:   in.RequestID,
		ClientIP:    in.ClientIP,
		Fingerprint: fp,
		Length:      result.Length,
		Score:       result.Score,
		Valid:       result.Valid,
		Failures:    result.Failures,
	}
	if err := store.Attempts().Add(attempt); err != nil {
		return nil, fmt.Errorf("queue attempt: %w", err)
	}
	if _, err := store.SaveChanges(ctx); err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}

	return &ValidateOutcome{Attempt: attempt, PreviousUses: previous}, nil
}

// History returns one page of attempts matching the filter and the total
// number of matches.
func (s *AttemptService) History(ctx context.Context, store Store, filter domain.AttemptFilter) ([]domain.ValidationAttempt, int, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: limit and offset must not be negative", domain.ErrInvalidInput)
	}

	attempts, err := store.Attempts().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list attempts: %w", err)
	}
	total, err := store.Attempts().Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count attempts: %w", err)
	}
	return attempts, total, nil
}

// GetByID returns one attempt.
func (s *AttemptService) GetByID(ctx context.Context, store Store, id int64) (*domain.ValidationAttempt, error) {
	a, err := store.Attempts().Find(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return a, nil
}
