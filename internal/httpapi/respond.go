package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sitetrace/sitetrace/internal/sitetrace/service"
	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
)

// maxRequestBody caps JSON request bodies.  Record payloads with a full
// permit roster stay well under this.
const maxRequestBody = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeServiceError maps store and service sentinels onto HTTP statuses.
// Unrecognized errors are reported as 500 and the caller should log them.
func writeServiceError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrDuplicateID):
		writeError(w, http.StatusConflict, "duplicate_id", err.Error())
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version_conflict", err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, service.ErrActorRequired):
		writeError(w, http.StatusBadRequest, "actor_required", err.Error())
	case errors.Is(err, service.ErrRoleNotAllowed):
		writeError(w, http.StatusForbidden, "role_not_allowed", err.Error())
	default:
		return false
	}
	return true
}
