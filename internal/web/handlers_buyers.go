package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/leadbook/internal/core"
)

// updatedAtKey carries the optimistic concurrency token in update bodies.
const updatedAtKey = "updatedAt"

// decodeRaw reads a JSON object body into a RawBuyer. Numbers are kept as
// json.Number so budgets are never rounded through float64.
func (s *Server) decodeRaw(w http.ResponseWriter, r *http.Request) (core.RawBuyer, error) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw core.RawBuyer
	if err := dec.Decode(&raw); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, core.ValidationErrors{{Field: "body", Message: "Request body must be a JSON object"}}
	}
	if raw == nil {
		return nil, core.ValidationErrors{{Field: "body", Message: "Request body must be a JSON object"}}
	}
	return raw, nil
}

// actor returns the actor the auth middleware stored on the request.
func actor(r *http.Request) core.Actor {
	a, _ := core.ActorFromContext(r.Context())
	return a
}

func (s *Server) handleCreateBuyer(w http.ResponseWriter, r *http.Request) {
	raw, err := s.decodeRaw(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	b, err := s.service.CreateBuyer(r.Context(), actor(r), raw)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/buyers/"+b.ID)
	writeJSONStatus(w, http.StatusCreated, b)
}

func (s *Server) handleListBuyers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 1
	}

	result, err := s.service.ListBuyers(r.Context(), core.ListQuery{
		Page:         page,
		City:         q.Get("city"),
		PropertyType: q.Get("propertyType"),
		Status:       q.Get("status"),
		Timeline:     q.Get("timeline"),
		Search:       q.Get("search"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleGetBuyer(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.GetBuyer(r.Context(), chi.URLParam(r, "buyerID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, detail)
}

// handleUpdateBuyer applies a partial update. The body holds the fields to
// change and, optionally, the updatedAt value the client last saw.
func (s *Server) handleUpdateBuyer(w http.ResponseWriter, r *http.Request) {
	raw, err := s.decodeRaw(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	expected, err := popUpdatedAt(raw)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	b, err := s.service.UpdateBuyer(r.Context(), actor(r), chi.URLParam(r, "buyerID"), raw, expected)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, b)
}

// popUpdatedAt removes the concurrency token from raw and parses it.
func popUpdatedAt(raw core.RawBuyer) (*time.Time, error) {
	v, ok := raw[updatedAtKey]
	delete(raw, updatedAtKey)
	if !ok || v == nil || v == "" {
		return nil, nil
	}

	s, isString := v.(string)
	if !isString {
		return nil, core.ValidationErrors{{Field: updatedAtKey, Message: "updatedAt must be an RFC 3339 timestamp"}}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, core.ValidationErrors{{Field: updatedAtKey, Value: s, Message: "updatedAt must be an RFC 3339 timestamp"}}
	}
	return &t, nil
}

func (s *Server) handleDeleteBuyer(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteBuyer(r.Context(), actor(r), chi.URLParam(r, "buyerID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readAllLimited reads r fully, failing once more than limit bytes arrive.
func readAllLimited(w http.ResponseWriter, body io.ReadCloser, limit int64) (*bytes.Reader, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, body, limit))
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
