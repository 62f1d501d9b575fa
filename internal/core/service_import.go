package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/leadbook/internal/logging"
	"github.com/JonMunkholm/leadbook/internal/metrics"
)

// stagedImport is the outcome of parsing, mapping and validating a file.
type stagedImport struct {
	total  int
	valid  []Buyer
	errors []RowError
}

// stage runs every row through the legacy mapper and the validator. Row
// failures are collected, never returned as err. err is reserved for
// unreadable input and CapacityError.
func (s *Service) stage(r io.Reader) (stagedImport, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		return stagedImport{}, err
	}
	if len(rows) > s.maxImportRows {
		return stagedImport{}, &CapacityError{Rows: len(rows), Max: s.maxImportRows}
	}

	st := stagedImport{total: len(rows), errors: []RowError{}}
	for i, row := range rows {
		b, err := ValidateBuyer(MapLegacyRow(row))
		if err != nil {
			st.errors = append(st.errors, RowError{Row: i + 2, Message: rowMessage(err)})
			continue
		}
		st.valid = append(st.valid, b)
	}
	return st, nil
}

func rowMessage(err error) string {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return strings.Join(ve.Messages(), ", ")
	}
	return err.Error()
}

// ImportBuyers inserts every row of a CSV document, or none of them. Any
// invalid row rejects the whole file with an ImportError listing all row
// problems. Files over the row cap fail with CapacityError before any row
// is validated. Each buyer is owned by actor and gets a creation entry in
// its history.
func (s *Service) ImportBuyers(ctx context.Context, actor Actor, r io.Reader) (ImportResult, error) {
	if err := requireActor(actor); err != nil {
		return ImportResult{}, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		metrics.ImportsTotal.WithLabelValues("busy").Inc()
		return ImportResult{}, err
	}
	metrics.ActiveImports.Inc()
	defer func() {
		metrics.ActiveImports.Dec()
		s.limiter.Release()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.importTimeout)
	defer cancel()

	log := logging.WithFields(ctx, "import_id", uuid.NewString(), "actor", actor.ID)

	st, err := s.stage(r)
	if err != nil {
		if errors.Is(err, ErrCapacity) {
			metrics.ImportsTotal.WithLabelValues("capacity").Inc()
			log.Warn("import over row cap", "error", err)
			return ImportResult{}, err
		}
		metrics.ImportsTotal.WithLabelValues("error").Inc()
		return ImportResult{}, fmt.Errorf("read import: %w", err)
	}

	if len(st.errors) > 0 {
		metrics.ImportsTotal.WithLabelValues("rejected").Inc()
		metrics.ImportRows.WithLabelValues("invalid").Add(float64(len(st.errors)))
		log.Info("import rejected", "rows", st.total, "invalid_rows", len(st.errors))
		return ImportResult{}, &ImportError{Rows: st.errors}
	}

	if len(st.valid) == 0 {
		metrics.ImportsTotal.WithLabelValues("success").Inc()
		return ImportResult{InsertedCount: 0}, nil
	}

	now := s.now()
	history := make([]History, len(st.valid))
	for i := range st.valid {
		b := &st.valid[i]
		b.ID = uuid.NewString()
		b.OwnerID = actor.ID
		b.CreatedAt = now
		b.UpdatedAt = now
		history[i] = NewHistory(b.ID, actor, CreatedMarker(), now)
	}

	inserted, err := s.store.CreateBuyers(ctx, st.valid, history)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("error").Inc()
		return ImportResult{}, fmt.Errorf("insert import: %w", err)
	}

	metrics.ImportsTotal.WithLabelValues("success").Inc()
	metrics.ImportRows.WithLabelValues("inserted").Add(float64(len(inserted)))
	metrics.HistoryEntries.Add(float64(len(history)))
	log.Info("import completed", "inserted", len(inserted))

	return ImportResult{InsertedCount: len(inserted)}, nil
}

// PreviewImport reports what ImportBuyers would do with the document
// without writing anything.
func (s *Service) PreviewImport(ctx context.Context, r io.Reader) (PreviewResult, error) {
	st, err := s.stage(r)
	if err != nil {
		return PreviewResult{}, err
	}
	logging.FromContext(ctx).Debug("import preview", "rows", st.total, "invalid_rows", len(st.errors))
	return PreviewResult{
		TotalRows: st.total,
		ValidRows: len(st.valid),
		Errors:    st.errors,
	}, nil
}
