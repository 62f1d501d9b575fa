package web

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/logging"
)

// handleExport downloads every buyer as CSV (default) or XLSX.
// The file is rendered before any header is sent so failures still get a
// proper error response.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.service.Export(r.Context(), &buf, format); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write interrupted", "error", err)
	}
}

// handleArchiveExport stores an export in object storage and returns its
// location.
func (s *Server) handleArchiveExport(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.ArchiveExport(r.Context(), actor(r), format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}
