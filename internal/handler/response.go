package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}

// writeServiceError maps domain errors to HTTP responses. The sentinel's
// text doubles as the error code.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case domain.IsNotFound(err):
		code := rootCode(err)
		WriteError(w, http.StatusNotFound, code, notFoundMessage(code))
	case errors.Is(err, domain.ErrInsufficientFunds):
		WriteError(w, http.StatusUnprocessableEntity, "insufficient_funds", "Insufficient cash balance")
	case errors.Is(err, domain.ErrInsufficientShares):
		WriteError(w, http.StatusUnprocessableEntity, "insufficient_shares", "Insufficient shares")
	case errors.Is(err, domain.ErrAmountOutOfRange):
		WriteError(w, http.StatusUnprocessableEntity, "amount_out_of_range", "Amount exceeds the supported range")
	case errors.Is(err, domain.ErrInvalidStateTransition):
		WriteError(w, http.StatusConflict, "invalid_state_transition", "Operation not allowed in the current state")
	case errors.Is(err, domain.ErrAccountAlreadyExists):
		WriteError(w, http.StatusConflict, "account_already_exists", "Username is already taken")
	case errors.Is(err, domain.ErrAlreadyWatched):
		WriteError(w, http.StatusConflict, "already_watched", "Symbol is already on the watchlist")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

var notFoundErrors = []error{
	domain.ErrAccountNotFound,
	domain.ErrInstrumentNotFound,
	domain.ErrHoldingNotFound,
	domain.ErrOrderNotFound,
	domain.ErrAlertNotFound,
	domain.ErrWatchlistItemNotFound,
	domain.ErrWebhookNotFound,
}

// rootCode returns the code of the not-found sentinel wrapped by err.
func rootCode(err error) string {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "not_found"
}

// notFoundMessage turns "order_not_found" into "Order not found".
func notFoundMessage(code string) string {
	words := strings.Split(code, "_")
	if len(words) > 0 && words[0] != "" {
		words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	}
	return strings.Join(words, " ")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func dollars(cents int64) float64 {
	return domain.CentsToDollars(cents)
}

// dollarsOrNil renders zero as null.
func dollarsOrNil(cents int64) *float64 {
	if cents == 0 {
		return nil
	}
	v := domain.CentsToDollars(cents)
	return &v
}
