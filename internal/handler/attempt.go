package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/msomdec/password-validator/internal/domain"
	"github.com/msomdec/password-validator/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// AttemptHandler serves password validation and attempt history.
type AttemptHandler struct {
	attempts *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// HandleValidate checks a password and records the attempt.
// POST /api/validate
// Request:  {"password":"..."}
// Response: {"attempt": {...}, "previousUses": 0}
func (h *AttemptHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	uow := UnitOfWorkFromContext(r.Context())
	if uow == nil {
		slog.Error("validate password: no unit of work in request context")
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	out, err := h.attempts.Validate(r.Context(), uow, service.ValidateInput{
		Password:  req.Password,
		ClientIP:  clientIP(r),
		RequestID: RequestIDFromContext(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, "validate password", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"attempt":      toAttemptDTO(out.Attempt),
		"previousUses": out.PreviousUses,
	})
}

// HandleList returns recorded attempts.
// GET /api/attempts?valid=true&ip=...&fingerprint=...&since=RFC3339&limit=50&offset=0
// Response: {"attempts": [...], "total": 0}
func (h *AttemptHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	uow := UnitOfWorkFromContext(r.Context())
	if uow == nil {
		slog.Error("list attempts: no unit of work in request context")
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	filter, err := parseAttemptFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	attempts, total, err := h.attempts.History(r.Context(), uow, filter)
	if err != nil {
		writeServiceError(w, r, "list attempts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"attempts": toAttemptDTOs(attempts),
		"total":    total,
	})
}

// HandleGet returns one attempt.
// GET /api/attempts/{id}
// Response: {"attempt": {...}} or 404
func (h *AttemptHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uow := UnitOfWorkFromContext(r.Context())
	if uow == nil {
		slog.Error("get attempt: no unit of work in request context")
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid attempt ID.")
		return
	}

	attempt, err := h.attempts.GetByID(r.Context(), uow, id)
	if err != nil {
		writeServiceError(w, r, "get attempt", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"attempt": toAttemptDTO(attempt),
	})
}

func parseAttemptFilter(r *http.Request) (domain.AttemptFilter, error) {
	q := r.URL.Query()
	f := domain.AttemptFilter{
		ClientIP:    q.Get("ip"),
		Fingerprint: q.Get("fingerprint"),
		Limit:       defaultPageSize,
	}

	if v := q.Get("valid"); v != "" {
		valid, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("invalid valid parameter %q", v)
		}
		f.Valid = &valid
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid since parameter %q: want RFC 3339", v)
		}
		f.Since = since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxPageSize {
			return f, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
		}
		f.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return f, fmt.Errorf("offset must be a non-negative integer")
		}
		f.Offset = offset
	}
	return f, nil
}
