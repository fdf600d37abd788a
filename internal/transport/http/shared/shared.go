// Package shared holds the JSON helpers every HTTP handler uses, so error
// translation from domain codes to status lines lives in exactly one place.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "veil/pkg/domain-errors"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into an HTTP response.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = messageOf(err)

	WriteJSON(w, statusOf(code), body)
}

func statusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeNotFound, dErrors.CodeSimulationNotRun, dErrors.CodeUnknownRequest:
		return http.StatusNotFound
	case dErrors.CodeAlreadyRevealed, dErrors.CodeSimulationAlreadyRun:
		return http.StatusConflict
	case dErrors.CodeInvalidProof:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func messageOf(err error) string {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "internal error"
}
