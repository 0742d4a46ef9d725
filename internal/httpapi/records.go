package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
)

// ── Requests ─────────────────────────────────────────────────────────────────

type createRecordRequest struct {
	Record types.Record `json:"record"`
	Actor  types.Actor  `json:"actor"`
}

type updateRecordRequest struct {
	Actor           types.Actor     `json:"actor"`
	Status          *types.State    `json:"status,omitempty"`
	Priority        *types.Priority `json:"priority,omitempty"`
	Owner           *string         `json:"owner,omitempty"`
	Assignee        *string         `json:"assignee,omitempty"`
	Title           *string         `json:"title,omitempty"`
	Location        *string         `json:"location,omitempty"`
	Description     *string         `json:"description,omitempty"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	ClearDueDate    bool            `json:"clear_due_date,omitempty"`
	ExpectedVersion int64           `json:"expected_version,omitempty"`
}

type changeStatusRequest struct {
	To    types.State `json:"to"`
	Actor types.Actor `json:"actor"`
}

type deleteRecordRequest struct {
	Actor types.Actor `json:"actor"`
}

type addLinkRequest struct {
	Link  types.LinkedRecord `json:"link"`
	Actor types.Actor        `json:"actor"`
}

type addEvidenceRequest struct {
	Evidence types.Evidence `json:"evidence"`
	Actor    types.Actor    `json:"actor"`
}

// ── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	rec, err := s.records.Create(r.Context(), req.Record, req.Actor)
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("create record error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RecordFilter{
		Kind:     types.RecordKind(q.Get("kind")),
		Status:   types.State(q.Get("status")),
		Assignee: q.Get("assignee"),
		Search:   q.Get("q"),
	}

	recs, err := s.records.List(r.Context(), filter)
	if err != nil {
		s.logger.Printf("list records error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("get record error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req updateRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	patch := store.RecordPatch{
		Status:          req.Status,
		Priority:        req.Priority,
		Owner:           req.Owner,
		Assignee:        req.Assignee,
		Title:           req.Title,
		Location:        req.Location,
		Description:     req.Description,
		DueDate:         req.DueDate,
		ClearDue:        req.ClearDueDate,
		ExpectedVersion: req.ExpectedVersion,
	}

	rec, err := s.records.Update(r.Context(), chi.URLParam(r, "id"), patch, req.Actor)
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("update record error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	var req deleteRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if err := s.records.Delete(r.Context(), chi.URLParam(r, "id"), req.Actor); err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("delete record error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	rec, err := s.records.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.To, req.Actor)
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("change status error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.records.AuditLog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("audit log error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleAddLink(w http.ResponseWriter, r *http.Request) {
	var req addLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	req.Link.RecordID = chi.URLParam(r, "id")

	link, err := s.records.AddLink(r.Context(), req.Link, req.Actor)
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("add link error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.records.Links(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("list links error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

func (s *Server) handleAddEvidence(w http.ResponseWriter, r *http.Request) {
	var req addEvidenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	req.Evidence.RecordID = chi.URLParam(r, "id")

	ev, err := s.records.AddEvidence(r.Context(), req.Evidence, req.Actor)
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("add evidence error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	evs, err := s.records.Evidence(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !writeServiceError(w, err) {
			s.logger.Printf("list evidence error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evidence": evs})
}
