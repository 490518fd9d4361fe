package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sqewdb/sqew/internal/apperr"
)

// errorResponse is the user-visible error shape.
type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

func sendJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response body")
		sendError(w, http.StatusInternalServerError, apperr.KindStorage, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func sendNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func sendError(w http.ResponseWriter, status int, kind apperr.Kind, detail string) {
	sendJSON(w, status, errorResponse{Error: string(kind), Kind: string(kind), Detail: detail})
}

// sendFromErr maps a typed apperr.Error to an HTTP status code; anything
// untyped is a storage failure.
func sendFromErr(w http.ResponseWriter, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		log.Error().Err(err).Msg("untyped error reached the HTTP boundary")
		sendError(w, http.StatusInternalServerError, apperr.KindStorage, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindAlreadyExists, apperr.KindLeaseLost:
		status = http.StatusConflict
	case apperr.KindInvalidArg:
		status = http.StatusBadRequest
	case apperr.KindPayloadTooLarge:
		status = http.StatusRequestEntityTooLarge
	case apperr.KindOverload:
		status = http.StatusTooManyRequests
	case apperr.KindStorage, apperr.KindBusyTimeout:
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		log.Error().Err(ae).Str("kind", string(ae.Kind)).Msg("request failed")
	}
	sendError(w, status, ae.Kind, ae.Detail)
}
