package handler

import (
	"time"

	"github.com/msomdec/password-validator/internal/domain"
)

// AttemptDTO is the JSON representation of a validation attempt.
type AttemptDTO struct {
	ID          int64    `json:"id"`
	RequestID   string   `json:"requestId"`
	ClientIP    string   `json:"clientIp"`
	Fingerprint string   `json:"fingerprint"`
	Length      int      `json:"length"`
	Score       int      `json:"score"`
	Valid       bool     `json:"valid"`
	Failures    []string `json:"failures"`
	CreatedAt   string   `json:"createdAt"`
}

func toAttemptDTO(a *domain.ValidationAttempt) AttemptDTO {
	failures := a.Failures
	if failures == nil {
		failures = []string{}
	}
	return AttemptDTO{
		ID:          a.ID,
		RequestID:   a.RequestID,
		ClientIP:    a.ClientIP,
		Fingerprint: a.Fingerprint,
		Length:      a.Length,
		Score:       a.Score,
		Valid:       a.Valid,
		Failures:    failures,
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toAttemptDTOs(attempts []domain.ValidationAttempt) []AttemptDTO {
	dtos := make([]AttemptDTO, len(attempts))
	for i := range attempts {
		dtos[i] = toAttemptDTO(&attempts[i])
	}
	return dtos
}
