package errors

import (
	"encoding/json"
	"net/http"
)

// Problem is the JSON error body returned by every endpoint.
type Problem struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WithDetail returns a copy of p carrying key=value in Details.
func (p Problem) WithDetail(key string, value interface{}) Problem {
	details := make(map[string]interface{}, len(p.Details)+1)
	for k, v := range p.Details {
		details[k] = v
	}
	details[key] = value
	p.Details = details
	return p
}

// Write sends p with the given status. Error bodies are never cached.
func Write(w http.ResponseWriter, status int, p Problem) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

// StatusFor maps an error code to its HTTP status; unknown codes are 500.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Respond writes code with the status StatusFor assigns to it.
func Respond(w http.ResponseWriter, code, message string) {
	Write(w, StatusFor(code), Problem{Error: code, Message: message})
}

// RespondError writes code with an explicit status.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, Problem{Error: code, Message: message})
}

// RespondValidationError writes a 400 naming the offending field.
func RespondValidationError(w http.ResponseWriter, code, message, field string) {
	Write(w, http.StatusBadRequest, Problem{Error: code, Message: message, Field: field})
}

func RespondInternalError(w http.ResponseWriter, message string) {
	Respond(w, ErrCodeInternalError, message)
}

func RespondNotFound(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusNotFound, code, message)
}

func RespondUnauthorized(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusUnauthorized, code, message)
}

func RespondForbidden(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusForbidden, code, message)
}

func RespondBadRequest(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusBadRequest, code, message)
}
