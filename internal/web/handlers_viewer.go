package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/ElementGrid/internal/core"
	"github.com/go-chi/chi/v5"
)

// SSEKeepAlive is how often an idle event stream sends a comment line so
// proxies do not time it out.
var SSEKeepAlive = 25 * time.Second

// viewerCommands maps /viewer/{command} to the selection operation it runs.
var viewerCommands = map[string]func(*core.SelectionController, context.Context) error{
	"isolate":   (*core.SelectionController).Isolate,
	"hide":      (*core.SelectionController).Hide,
	"highlight": (*core.SelectionController).Highlight,
	"fit":       (*core.SelectionController).FitToView,
	"clear":     (*core.SelectionController).Clear,
}

// handleViewerCommand sends a selection-based command to the viewer.
// "color" colours the model by discipline and returns the assignment.
func (s *Server) handleViewerCommand(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	command := chi.URLParam(r, "command")

	if command == "color" {
		colors, err := g.Selection().ColorByDiscipline(r.Context())
		if err != nil {
			respondError(w, r, err, statusFor(err, http.StatusBadGateway))
			return
		}
		writeJSON(w, map[string]any{"command": command, "colors": colors})
		return
	}

	run, ok := viewerCommands[command]
	if !ok {
		respondError(w, r, invalidRequest("unknown viewer command %q", command), http.StatusNotFound)
		return
	}
	if err := run(g.Selection(), r.Context()); err != nil {
		respondError(w, r, err, statusFor(err, http.StatusBadGateway))
		return
	}
	writeJSON(w, map[string]any{
		"command":   command,
		"selection": newSelectionResponse(g.Selection()),
	})
}

// handleViewerSelection receives the viewer's selection-changed event.
// The ids are delivered to the session's selection controller, which drops
// them when sync is off or when they echo the last push.
func (s *Server) handleViewerSelection(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		IDs []core.ViewerID `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	bridge, ok := s.hub.Lookup(g.ID)
	if !ok {
		respondError(w, r, core.ErrNoViewer, http.StatusConflict)
		return
	}
	bridge.ReportSelection(req.IDs)
	writeJSON(w, newSelectionResponse(g.Selection()))
}

// handleViewerEvents streams viewer commands via Server-Sent Events.
// Supports resumption via the Last-Event-ID header or lastEventId query
// parameter: commands at or below that sequence number are skipped.
func (s *Server) handleViewerEvents(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFromRequest(w, r)
	if !ok {
		return
	}
	bridge, ok := s.hub.Lookup(g.ID)
	if !ok {
		respondError(w, r, core.ErrNoViewer, http.StatusConflict)
		return
	}

	lastEventID := r.Header.Get("Last-Event-ID")
	if lastEventID == "" {
		lastEventID = r.URL.Query().Get("lastEventId")
	}
	var lastSeq uint64
	if lastEventID != "" {
		lastSeq, _ = strconv.ParseUint(lastEventID, 10, 64)
	}

	commands, cancel := bridge.Listen()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	fmt.Fprintf(w, "event: ready\ndata: {\"gridId\":%q}\n\n", g.ID)
	if err := rc.Flush(); err != nil {
		requestLogger(r).Error("event stream not supported", "error", err)
		return
	}

	log := requestLogger(r)
	log.Info("viewer connected", "listeners", bridge.Listeners())
	defer log.Info("viewer disconnected", "dropped", bridge.Dropped())

	keepAlive := time.NewTicker(SSEKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case cmd, ok := <-commands:
			if !ok {
				// Session closed or expired
				fmt.Fprintf(w, "event: closed\ndata: {}\n\n")
				rc.Flush()
				return
			}
			if cmd.Seq <= lastSeq {
				continue
			}
			data, err := json.Marshal(cmd)
			if err != nil {
				log.Error("encode viewer command", "error", err)
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: command\ndata: %s\n\n", cmd.Seq, data)
			if err := rc.Flush(); err != nil {
				return
			}

		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			if err := rc.Flush(); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}
