package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sequencetheory/vaultclub/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto the shared JSON error shape.
// Unrecognized errors are internal faults.
func writeError(w http.ResponseWriter, err error) {
	resp := model.ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, model.ErrNotVerified):
		status = http.StatusForbidden
		resp.Error = "NOT_VERIFIED"
	case errors.Is(err, model.ErrWalletExists):
		status = http.StatusConflict
	case errors.Is(err, model.ErrNoWallet):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidPassword):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrWeakPassword),
		errors.Is(err, model.ErrInvalidMnemonic),
		errors.Is(err, model.ErrInvalidCode),
		errors.Is(err, model.ErrCodeExpired),
		errors.Is(err, model.ErrUserCancelled),
		errors.Is(err, model.ErrPasskeyFailed),
		errors.Is(err, model.ErrNoChallenge):
		status = http.StatusBadRequest
	}

	writeJSON(w, status, resp)
}
