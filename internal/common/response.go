package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the success body: the payload under "data", plus pagination
// metadata for list endpoints.
type Envelope[T any] struct {
	Data       T           `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Data writes v wrapped in an Envelope.
func Data[T any](w http.ResponseWriter, status int, v T) {
	JSON(w, status, Envelope[T]{Data: v})
}

// Page writes one page of items with its pagination metadata.
func Page[T any](w http.ResponseWriter, items []T, pg Pagination) {
	if items == nil {
		items = []T{}
	}
	JSON(w, http.StatusOK, Envelope[[]T]{Data: items, Pagination: &pg})
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
