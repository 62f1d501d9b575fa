package core

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/leadbook/internal/logging"
	"github.com/JonMunkholm/leadbook/internal/metrics"
)

// ExportFormat selects the export file type.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "csv", "xlsx" or "" (csv).
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", ValidationErrors{{Field: "format", Value: s, Message: "Format must be one of: csv, xlsx"}}
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename returns the download name for the format.
func (f ExportFormat) Filename() string {
	return "buyers_export." + string(f)
}

// Export writes every buyer, most recently updated first, to w.
func (s *Service) Export(ctx context.Context, w io.Writer, format ExportFormat) error {
	if err := s.render(ctx, w, format); err != nil {
		return err
	}
	metrics.ExportsTotal.WithLabelValues(string(format), "download").Inc()
	return nil
}

func (s *Service) render(ctx context.Context, w io.Writer, format ExportFormat) error {
	buyers, err := s.store.AllBuyers(ctx)
	if err != nil {
		return fmt.Errorf("load buyers for export: %w", err)
	}

	switch format {
	case FormatXLSX:
		err = WriteXLSX(w, buyers)
	default:
		err = WriteCSV(w, buyers)
	}
	if err != nil {
		return fmt.Errorf("write %s export: %w", format, err)
	}
	return nil
}

// ArchiveResult describes a stored export.
type ArchiveResult struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Bytes    int    `json:"bytes"`
}

// ArchiveExport renders an export and hands it to the configured Archiver
// under exports/YYYY/MM/DD/buyers-<unix>.<ext>.
func (s *Service) ArchiveExport(ctx context.Context, actor Actor, format ExportFormat) (ArchiveResult, error) {
	if err := requireActor(actor); err != nil {
		return ArchiveResult{}, err
	}
	if s.archiver == nil {
		return ArchiveResult{}, ErrArchiveDisabled
	}

	var buf bytes.Buffer
	if err := s.render(ctx, &buf, format); err != nil {
		return ArchiveResult{}, err
	}

	now := s.now()
	key := fmt.Sprintf("exports/%s/buyers-%d.%s", now.Format("2006/01/02"), now.Unix(), format)
	size := buf.Len()

	location, err := s.archiver.Put(ctx, key, format.ContentType(), &buf)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("archive export: %w", err)
	}

	metrics.ExportsTotal.WithLabelValues(string(format), "archive").Inc()
	logging.WithFields(ctx, "actor", actor.ID, "key", key).Info("export archived", "bytes", size)

	return ArchiveResult{Key: key, Location: location, Bytes: size}, nil
}
