package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Envelope is the JSON body shape shared by all endpoints. The Valid
// field appears only on verification responses.
type Envelope struct {
	Success bool   `json:"success"`
	Valid   *bool  `json:"valid,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Status  string `json:"status,omitempty"`
}

// RespondJSON writes an envelope with the given status code.
func RespondJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// RespondOK writes a 200 success envelope wrapping data.
func RespondOK(w http.ResponseWriter, data any) {
	RespondJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// RespondValid writes the 200 envelope for a successful key verification.
func RespondValid(w http.ResponseWriter, data any) {
	valid := true
	RespondJSON(w, http.StatusOK, Envelope{Success: true, Valid: &valid, Data: data})
}

// RespondInvalid writes the failure envelope for a rejected key
// verification. Invalid keys answer 401 to match the external contract;
// an internal failure answers the given status instead so callers can
// tell a bad key from a broken service.
func RespondInvalid(w http.ResponseWriter, status int, code, message, subscriptionStatus string) {
	valid := false
	RespondJSON(w, status, Envelope{
		Valid:   &valid,
		Error:   message,
		Code:    code,
		Status:  subscriptionStatus,
	})
}

// RespondError maps an error onto the taxonomy and writes the failure
// envelope. Unrecognized errors become ErrInternal so internal details
// never reach the caller.
func RespondError(w http.ResponseWriter, err error) {
	httpErr := ErrInternal
	var known HTTPError
	if errors.As(err, &known) {
		httpErr = known
	}
	RespondJSON(w, httpErr.Status, Envelope{
		Error: httpErr.Message,
		Code:  httpErr.Code,
	})
}

// maxBodyBytes caps request bodies on JSON endpoints.
const maxBodyBytes = 1 << 20

// DecodeJSON reads a JSON request body into v. Unknown fields and
// trailing content are rejected. An empty body leaves v untouched, so
// endpoints with fully optional bodies accept bare requests.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ValidationError("malformed request body")
	}
	if dec.More() {
		return ValidationError("malformed request body")
	}
	return nil
}
