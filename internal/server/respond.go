package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atlasclimate/atlas/internal/domain"
)

// envelope is the uniform response shape: status is "success", "error", or
// "partial"; code and message are set on errors and partials.
type envelope struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: data})
}

// respondPartial answers 200 with a partial status and a warning code; used
// for degraded hazard data and batches with failed slots.
func respondPartial(w http.ResponseWriter, code, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: "partial", Code: code, Message: message, Data: data})
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)

	message := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		message = de.Message
	}

	writeJSON(w, statusFor(kind), envelope{
		Status:  "error",
		Code:    string(kind),
		Message: message,
	})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindModelNotAvailable:
		return http.StatusServiceUnavailable
	case domain.KindUpstreamDegraded:
		return http.StatusBadGateway
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON request body.
func decodeJSON(r *http.Request, into any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 10<<20))
	if err := dec.Decode(into); err != nil {
		return domain.Invalidf("malformed JSON body: %v", err)
	}
	return nil
}
