package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/JonMunkholm/leadbook/internal/core"
)

// importBody returns the CSV document of an import request. Three forms
// are accepted:
//
//	multipart/form-data   the "file" part
//	application/json      {"file": "<csv text>"}
//	anything else         the raw body, e.g. text/csv
//
// Every form is capped at the configured import size.
func (s *Server) importBody(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	noop := func() {}
	limit := s.cfg.Import.MaxFileSize
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		if err := r.ParseMultipartForm(limit); err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				return nil, noop, err
			}
			return nil, noop, errNoFile
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, noop, errNoFile
		}
		return file, func() { file.Close() }, nil

	case "application/json":
		var payload struct {
			File *string `json:"file"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(&payload); err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				return nil, noop, err
			}
			return nil, noop, core.ValidationErrors{{Field: "body", Message: `Request body must be {"file": "<csv text>"}`}}
		}
		if payload.File == nil {
			return nil, noop, errNoFile
		}
		return strings.NewReader(*payload.File), noop, nil

	default:
		body, err := readAllLimited(w, r.Body, limit)
		if err != nil {
			return nil, noop, err
		}
		if body.Len() == 0 {
			return nil, noop, errNoFile
		}
		return body, noop, nil
	}
}

// handleImport inserts every row of the uploaded CSV or none of them.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, done, err := s.importBody(w, r)
	defer done()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.ImportBuyers(r.Context(), actor(r), body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handleImportPreview validates the uploaded CSV without writing it.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	body, done, err := s.importBody(w, r)
	defer done()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.PreviewImport(r.Context(), body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}
