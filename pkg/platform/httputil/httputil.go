// Package httputil writes the JSON envelopes shared by every HTTP handler.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "agora/pkg/domain-errors"
)

// errorResponse is the wire shape for failures. Description is omitted for
// opaque codes so internal details never reach clients.
type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError maps a domain error onto the HTTP envelope. Uncoded errors are
// treated as internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	resp := errorResponse{Error: string(code)}
	if !code.Opaque() {
		resp.Description = dErrors.MessageOf(err)
	}

	WriteJSON(w, code.HTTPStatus(), resp)
}

// WriteJSON writes v as a JSON response with the given status. A nil v
// writes the status alone, with no body and no content type.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure here can only be
	// truncated output, which the client sees as a broken body.
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads the request body into T, rejecting unknown fields. The
// returned error carries CodeBadRequest and is safe to pass to WriteError.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return v, nil
}
