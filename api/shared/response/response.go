// Package response writes JSON bodies and maps errors onto status codes.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"lattice/infrastructure/apperr"
)

// MaxBodyBytes caps request bodies decoded by DecodeJSON.
const MaxBodyBytes = 8 << 20

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Status maps an error kind onto an HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes {"error": message}. Storage errors are classified first; the
// message of unclassified errors is passed through as-is.
func Error(w http.ResponseWriter, err error) {
	err = apperr.FromStorage(err)
	JSON(w, Status(err), map[string]string{"error": err.Error()})
}

// DecodeJSON reads the request body into dst. Malformed JSON is a
// validation error.
func DecodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("malformed JSON body: %v", err)
	}
	return nil
}

// DecodeArray reads a non-empty JSON array body. emptyMsg is returned as a
// validation error when the body is not an array or has no elements.
func DecodeArray[T any](r *http.Request, emptyMsg string) ([]T, error) {
	var raw json.RawMessage
	if err := DecodeJSON(r, &raw); err != nil {
		return nil, err
	}
	var items []T
	if len(raw) == 0 || raw[0] != '[' {
		return nil, apperr.Validation("%s", emptyMsg)
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apperr.Validation("malformed JSON body: %v", err)
	}
	if len(items) == 0 {
		return nil, apperr.Validation("%s", emptyMsg)
	}
	return items, nil
}

// Deleted is the body returned by delete-all endpoints.
func Deleted(w http.ResponseWriter, n int64) {
	JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// Message writes {"message": text} with status.
func Message(w http.ResponseWriter, status int, format string, args ...any) {
	JSON(w, status, map[string]string{"message": fmt.Sprintf(format, args...)})
}
