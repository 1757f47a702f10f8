package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var errInvalidRequest = errors.New("invalid request")

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := toStatusCode(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Warn("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func toStatusCode(err error) int {
	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrContributionLimit):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRaffleNotFound),
		errors.Is(err, domain.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRoundClosed),
		errors.Is(err, domain.ErrUpkeepNotNeeded),
		errors.Is(err, domain.ErrRequestInFlight),
		errors.Is(err, domain.ErrNoPendingSettlement):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownRequest):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %s", errInvalidRequest, err)
	}
	return nil
}

func parseUintVar(r *http.Request, name string) (uint64, error) {
	value, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", errInvalidRequest, name)
	}
	return value, nil
}
