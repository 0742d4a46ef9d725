package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sitetrace/sitetrace/internal/sitetrace/service"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
)

type permitActionRequest struct {
	Actor  types.Actor `json:"actor"`
	Reason string      `json:"reason,omitempty"`
}

type signRosterRequest struct {
	WorkerID string      `json:"worker_id"`
	Actor    types.Actor `json:"actor"`
}

type spawnCapaRequest struct {
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Owner            string         `json:"owner,omitempty"`
	Assignee         string         `json:"assignee,omitempty"`
	Priority         types.Priority `json:"priority,omitempty"`
	DueDate          *time.Time     `json:"due_date,omitempty"`
	RequiresEvidence bool           `json:"requires_evidence,omitempty"`
	Actor            types.Actor    `json:"actor"`
}

func (s *Server) handleSuspendPermit(w http.ResponseWriter, r *http.Request) {
	s.handlePermitAction(w, r, s.permits.Suspend)
}

func (s *Server) handleRevokePermit(w http.ResponseWriter, r *http.Request) {
	s.handlePermitAction(w, r, s.permits.Revoke)
}

func (s *Server) handleReinstatePermit(w http.ResponseWriter, r *http.Request) {
	var req permitActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	rec, err := s.permits.Reinstate(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("reinstate permit error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePermitAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, id string, actor types.Actor, reason string) (types.Record, error),
) {
	var req permitActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	rec, err := action(r.Context(), chi.URLParam(r, "id"), req.Actor, req.Reason)
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("permit action error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSignRoster(w http.ResponseWriter, r *http.Request) {
	var req signRosterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	rec, err := s.rosters.Sign(r.Context(), chi.URLParam(r, "id"), req.WorkerID, req.Actor)
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("roster sign error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSpawnCapa(w http.ResponseWriter, r *http.Request) {
	var req spawnCapaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	in := service.CapaInput{
		Title:            req.Title,
		Description:      req.Description,
		Owner:            req.Owner,
		Assignee:         req.Assignee,
		Priority:         req.Priority,
		DueDate:          req.DueDate,
		RequiresEvidence: req.RequiresEvidence,
	}

	capa, err := s.capas.CreateFromRecord(r.Context(), chi.URLParam(r, "id"), in, req.Actor)
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("spawn capa error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, capa)
}
