package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/ElementGrid/internal/core"
	"github.com/JonMunkholm/ElementGrid/internal/logging"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds JSON request bodies. Pushes of a full model stay well under it.
const maxBodyBytes = 32 << 20

// gridFromRequest resolves the {gridID} route parameter, writing the error
// response when the session does not exist.
func (s *Server) gridFromRequest(w http.ResponseWriter, r *http.Request) (*core.Grid, bool) {
	g, err := s.service.Grid(chi.URLParam(r, "gridID"))
	if err != nil {
		respondError(w, r, err, statusFor(err, http.StatusNotFound))
		return nil, false
	}
	return g, true
}

// requestLogger returns the request-scoped logger tagged with the grid session.
func requestLogger(r *http.Request) *slog.Logger {
	return logging.WithGrid(r.Context(), chi.URLParam(r, "gridID"))
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// Keeps the message from reading as a dropped connection.
			return invalidRequest("truncated body")
		}
		return invalidRequest("%v", err)
	}
	return nil
}
