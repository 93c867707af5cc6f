package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/ElementGrid/internal/backend"
	"github.com/JonMunkholm/ElementGrid/internal/core"
)

// handlers_data.go serves the backend data port, so one deployment can act
// as the backend for another: GET returns records, POST upserts them by dbId
// and DELETE removes them.

// DataResponse is the body of GET /api/data.
type DataResponse struct {
	Data []core.WireRecord `json:"data"`
}

// handleDataPull returns stored records, optionally for one discipline.
func (s *Server) handleDataPull(w http.ResponseWriter, r *http.Request) {
	if s.data == nil {
		respondError(w, r, core.ErrNoBackend, http.StatusServiceUnavailable)
		return
	}

	discipline := strings.TrimSpace(r.URL.Query().Get("discipline"))
	records, err := s.data.Pull(r.Context(), discipline)
	if err != nil {
		respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}

	wire := core.ToWireAll(records)
	if wire == nil {
		wire = []core.WireRecord{}
	}
	writeJSON(w, DataResponse{Data: wire})
}

// handleDataPush upserts the posted records.
func (s *Server) handleDataPush(w http.ResponseWriter, r *http.Request) {
	if s.data == nil {
		respondError(w, r, core.ErrNoBackend, http.StatusServiceUnavailable)
		return
	}

	var wire []core.WireRecord
	if err := decodeJSON(w, r, &wire); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	for _, rec := range wire {
		if rec.DbID == 0 {
			respondError(w, r, invalidRequest("record without dbId"), http.StatusBadRequest)
			return
		}
	}

	if err := s.data.Push(r.Context(), core.FromWireAll(wire)); err != nil {
		respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}
	writeJSON(w, map[string]int{"stored": len(wire)})
}

// handleDataDelete removes stored records by dbId.
func (s *Server) handleDataDelete(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data.(core.Deleter)
	if !ok {
		respondError(w, r, core.ErrNoBackend, http.StatusServiceUnavailable)
		return
	}

	var req backend.DeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, r, invalidRequest("no ids to delete"), http.StatusBadRequest)
		return
	}

	n, err := d.Delete(r.Context(), req.IDs)
	if err != nil {
		respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}
	writeJSON(w, backend.DeleteResponse{Deleted: n})
}
