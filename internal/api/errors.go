package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hlsgate/hlsgate/internal/errs"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a pipeline error onto its HTTP status and stable code.
func writeError(w http.ResponseWriter, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		e = errs.Internal(err)
	}
	writeJSON(w, e.HTTPStatus(), errorBody{Error: e.Error(), Code: e.Code()})
}

// writeInvalidSignature rejects a request whose sig parameter does not
// match. Deliberately unauthorized rather than bad-request: the URL may
// be well-formed but wasn't issued by this proxy.
func writeInvalidSignature(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid or missing URL signature", Code: "INVALID_SIGNATURE"})
}
