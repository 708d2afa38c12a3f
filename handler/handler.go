package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// sendJSON writes v with the given status. Encode errors at this point are
// unrecoverable and only logged.
func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// sendError maps service errors to their carried status and everything else
// to a generic 500. Internal error detail never reaches the client.
func sendError(w http.ResponseWriter, err error) {
	var svcErr *types.ServiceError
	if errors.As(err, &svcErr) {
		log.Error().Err(svcErr.Unwrap()).Int("status", svcErr.StatusCode).Msg(svcErr.Message)
		sendJSON(w, svcErr.StatusCode, types.ErrorResponse{Detail: svcErr.Message})
		return
	}
	log.Error().Err(err).Msg("Unhandled error")
	sendJSON(w, http.StatusInternalServerError, types.ErrorResponse{Detail: "Internal server error"})
}

func sendErrorMessage(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, types.ErrorResponse{Detail: message})
}
