// Package handler exposes the challenge ledger over HTTP: the game-facing
// challenge endpoints, a read-only JSON-RPC surface and owner maintenance.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/AccelByte/extend-challenge-ledger/pkg/auth"
	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/AccelByte/extend-challenge-ledger/pkg/session"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps a service error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotOperator),
		errors.Is(err, ledger.ErrNotOwner),
		errors.Is(err, auth.ErrMissingSignature),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrSignerMismatch):
		return http.StatusForbidden
	case errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, ledger.ErrInvalidAddress),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidRewardID):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, session.ErrRoomMismatch),
		errors.Is(err, session.ErrChallengeNotStarted),
		errors.Is(err, session.ErrChallengeExpired),
		errors.Is(err, ledger.ErrChallengeAlreadyActive),
		errors.Is(err, ledger.ErrChallengeNotActive),
		errors.Is(err, ledger.ErrNothingToRedeem),
		errors.Is(err, ledger.ErrRewardAlreadyGranted):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientPool):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with its mapped status. Internal errors are logged
// and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		if scope := requestScope(r); scope != nil {
			scope.TraceError(err)
			scope.Log.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
		} else {
			logrus.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
		}
		message = "internal server error"
		if errors.Is(err, ledger.ErrPayoutFailed) {
			message = ledger.ErrPayoutFailed.Error()
		}
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Warnf("failed to write response: %v", err)
	}
}

// decodeJSON reads a JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", session.ErrInvalidRequest, err)
	}
	return nil
}
