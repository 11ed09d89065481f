package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/leads/internal/core"
)

// maxJSONBody bounds create and update payloads.
const maxJSONBody = 1 << 20

// parseFilter reads search, status, color and staff query parameters.
// Unknown status and color values are passed through and simply match nothing;
// a non-numeric staff ID is ignored.
func parseFilter(r *http.Request) core.LeadFilter {
	q := r.URL.Query()
	f := core.LeadFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Status: core.Status(strings.TrimSpace(q.Get("status"))),
		Color:  core.ColorCode(strings.TrimSpace(q.Get("color"))),
	}
	if id, err := strconv.ParseInt(q.Get("staff"), 10, 64); err == nil && id > 0 {
		f.StaffID = id
	}
	return f
}

// parseLeadID reads the {id} route parameter.
func parseLeadID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid lead id %q", raw)
	}
	return id, nil
}

// decodeLeadInput decodes the body over in. Fields absent from the body keep
// their current value in in.
func decodeLeadInput(w http.ResponseWriter, r *http.Request, in *core.LeadInput) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.service.ListLeads(r.Context(), parseFilter(r))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if leads == nil {
		leads = []core.Lead{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(leads),
		"leads": leads,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, err := parseLeadID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	lead, err := s.service.GetLead(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var in core.LeadInput
	if err := decodeLeadInput(w, r, &in); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	actor := core.ActorFromContext(r.Context())
	lead, err := s.service.CreateLead(r.Context(), in, actor)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	id, err := parseLeadID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var in core.LeadInput
	if err := decodeLeadInput(w, r, &in); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	lead, err := s.service.UpdateLead(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// handlePatchLead updates only the fields present in the body.
func (s *Server) handlePatchLead(w http.ResponseWriter, r *http.Request) {
	id, err := parseLeadID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	existing, err := s.service.GetLead(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	in := core.InputFromLead(existing)
	if err := decodeLeadInput(w, r, &in); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	lead, err := s.service.UpdateLead(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	id, err := parseLeadID(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.service.DeleteLead(r.Context(), id); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
