// Package httputil provides the JSON response and decode helpers shared by
// every HTTP handler.
package httputil

import (
	"encoding/json"
	"net/http"

	"siterisk/pkg/apperr"
)

// errorBody is the error envelope clients receive. The single detail
// field mirrors what the frontend already parses.
type errorBody struct {
	Detail string `json:"detail"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its HTTP status and writes the error envelope.
// Uncoded errors come out as 500 with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	status := apperr.ToHTTPStatus(apperr.CodeOf(err))
	WriteJSON(w, status, errorBody{Detail: apperr.MessageOf(err)})
}

// Decode reads the request body into T. A malformed body produces a
// CodeBadRequest error ready for WriteError.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, apperr.Wrap(err, apperr.CodeBadRequest, "Invalid request body")
	}
	return v, nil
}
