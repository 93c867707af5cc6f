package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/ElementGrid/internal/core"
	"github.com/JonMunkholm/ElementGrid/internal/web/views"
)

// GridResponse describes a newly created session.
type GridResponse struct {
	ID           string `json:"id"`
	PageSize     int    `json:"pageSize"`
	GroupByCode  bool   `json:"groupByCode"`
	Alphabetical bool   `json:"alphabetical"`
}

// optionsRequest carries view options; nil fields are left unchanged.
type optionsRequest struct {
	Filter       *string `json:"filter"`
	GroupByCode  *bool   `json:"groupByCode"`
	Alphabetical *bool   `json:"alphabetical"`
}

func (o optionsRequest) apply(g *core.Grid) {
	if o.Filter != nil {
		g.SetFilter(*o.Filter)
	}
	if o.GroupByCode != nil {
		g.SetGroupByCode(*o.GroupByCode)
	}
	if o.Alphabetical != nil {
		g.SetAlphabetical(*o.Alphabetical)
	}
}

// handleCreateGrid opens a new grid session. The body may override the
// configured grouping options.
func (s *Server) handleCreateGrid(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	g := s.service.CreateGrid()
	req.apply(g)

	view := g.View(core.SectionGeneral)
	writeJSONStatus(w, http.StatusCreated, GridResponse{
		ID:           g.ID,
		PageSize:     view.PageSize,
		GroupByCode:  view.GroupByCode,
		Alphabetical: view.Alphabetical,
	})
}

// handleCloseGrid ends a session and disconnects its viewer.
func (s *Server) handleCloseGrid(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	if err := s.service.CloseGrid(g.ID); err != nil {
		respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePull replaces the session's records from the backend.
func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Disciplines []string `json:"disciplines"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	n, err := s.service.Pull(r.Context(), g.ID, req.Disciplines)
	if err != nil {
		respondError(w, r, err, statusFor(err, http.StatusBadGateway))
		return
	}
	requestLogger(r).Info("grid pulled", "records", n, "disciplines", len(req.Disciplines))
	writeJSON(w, map[string]any{"records": n, "revision": g.Revision()})
}

// handlePush sends the session's records to the backend.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	n, err := s.service.Push(r.Context(), g.ID)
	if err != nil {
		respondError(w, r, err, statusFor(err, http.StatusBadGateway))
		return
	}
	writeJSON(w, map[string]any{"records": n, "revision": g.Revision()})
}

// handleView renders one page of a section. The optional page parameter
// moves the session's page first.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	if p := r.URL.Query().Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil {
			respondError(w, r, invalidRequest("page %q", p), http.StatusBadRequest)
			return
		}
		g.SetPage(page)
	}
	s.renderView(w, r, g)
}

// renderView writes the current view of the section named by the section
// query parameter, as a table fragment for htmx or JSON otherwise.
func (s *Server) renderView(w http.ResponseWriter, r *http.Request, g *core.Grid) {
	v := g.View(core.ParseSection(r.URL.Query().Get("section")))

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := views.GridTable(g.ID, v).Render(r.Context(), w); err != nil {
			requestLogger(r).Error("render grid table", "error", err)
		}
		return
	}
	writeJSON(w, newViewResponse(g.ID, v))
}

// handleOptions updates the filter and grouping options.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var req optionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	req.apply(g)
	s.renderView(w, r, g)
}

// handleCollapse toggles a discipline group, or a code group when code is set.
func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Key        string `json:"key"`
		Discipline string `json:"discipline"`
		Code       string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	key := core.GroupKey(req.Key)
	switch {
	case key != "":
	case req.Discipline == "":
		respondError(w, r, invalidRequest("collapse needs a key or discipline"), http.StatusBadRequest)
		return
	case req.Code != "":
		key = core.CodeKey(req.Discipline, req.Code)
	default:
		key = core.DisciplineKey(req.Discipline)
	}

	g.ToggleCollapse(key)
	s.renderView(w, r, g)
}

// handlePage applies a navigation action or jumps to a page number.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action"`
		Page   int    `json:"page"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	switch {
	case req.Action != "":
		action, err := core.ParsePageAction(req.Action)
		if err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
		g.Navigate(action)
	case req.Page > 0:
		g.SetPage(req.Page)
	default:
		respondError(w, r, invalidRequest("page needs an action or page number"), http.StatusBadRequest)
		return
	}
	s.renderView(w, r, g)
}

// handleSelection reports the local selection.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, newSelectionResponse(g.Selection()))
}

// handleClick selects a row; range extends from the anchor row.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		DbID  int64 `json:"dbId"`
		Range bool  `json:"range"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	rec, found := findRecord(g.Records(), req.DbID)
	if !found {
		respondError(w, r, core.ErrElementNotFound, http.StatusNotFound)
		return
	}
	g.Selection().Click(rec, req.Range)
	writeJSON(w, newSelectionResponse(g.Selection()))
}

func findRecord(records []core.ElementRecord, dbID int64) (core.ElementRecord, bool) {
	for _, rec := range records {
		if rec.DbID == dbID {
			return rec, true
		}
	}
	return core.ElementRecord{}, false
}

// handleSearch selects and frames an element by dbId.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		DbID int64 `json:"dbId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	result, err := g.Selection().SearchByDbID(r.Context(), req.DbID)
	if err != nil {
		respondError(w, r, err, statusFor(err, http.StatusBadGateway))
		return
	}
	writeJSON(w, map[string]any{
		"result":    result,
		"selection": newSelectionResponse(g.Selection()),
	})
}

// handleSync turns viewer selection sync on or off.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := g.Selection().SetSyncEnabled(r.Context(), req.Enabled); err != nil {
		respondError(w, r, err, statusFor(err, http.StatusBadGateway))
		return
	}
	writeJSON(w, newSelectionResponse(g.Selection()))
}

// EditResponse summarizes an applied edit.
type EditResponse struct {
	Updated   int    `json:"updated"`
	Broadcast bool   `json:"broadcast"`
	Reordered bool   `json:"reordered"`
	Revision  uint64 `json:"revision"`
}

// handleEdit applies a cell edit, broadcasting it to the selection when the
// edited row is selected.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var change core.FieldChange
	if err := decodeJSON(w, r, &change); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	result, err := s.service.Edit(r.Context(), g.ID, change)
	if err != nil {
		respondError(w, r, err, statusFor(err, http.StatusBadRequest))
		return
	}
	writeJSON(w, EditResponse{
		Updated:   result.Updated,
		Broadcast: result.Broadcast,
		Reordered: result.Reordered,
		Revision:  g.Revision(),
	})
}

// handleInsert adds one element, typically extracted from the viewer.
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var wire core.WireRecord
	if err := decodeJSON(w, r, &wire); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if wire.DbID == 0 {
		respondError(w, r, invalidRequest("element without dbId"), http.StatusBadRequest)
		return
	}

	if err := s.service.Insert(r.Context(), g.ID, core.FromWire(wire)); err != nil {
		respondError(w, r, err, statusFor(err, http.StatusBadRequest))
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"dbId": wire.DbID, "revision": g.Revision()})
}

// handleRemove deletes elements by dbId. Unknown ids are ignored.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	n, err := s.service.Remove(r.Context(), g.ID, req.IDs)
	if err != nil {
		respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}
	writeJSON(w, map[string]any{"removed": n, "revision": g.Revision()})
}
