package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/services"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string                `json:"error"`
	Fields []services.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads the request body into dst and answers 400 itself when the
// body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError translates service errors into status codes. Details of
// unauthorized and internal failures are never sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	var verr *services.ValidationError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Fields: verr.Fields})
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, common.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many attempts, try again later")
	default:
		if !errors.Is(err, common.ErrorInternal) {
			log.Error(r.Context(), "unhandled service error", "error", err)
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
