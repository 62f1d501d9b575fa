package core

// csv.go reads buyer CSV documents.
//
// Input goes through NewImportReader before parsing so that files saved by
// spreadsheet tools on Windows (leading BOM, stray Latin-1 bytes) still parse.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewImportReader skips a leading UTF-8 BOM and replaces every byte that is
// not part of a valid UTF-8 sequence with '?'.
func NewImportReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &sanitizingReader{br: br}
}

type sanitizingReader struct {
	br *bufio.Reader
}

func (s *sanitizingReader) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		return 0, io.ErrShortBuffer
	}
	n := 0
	for n+utf8.UTFMax <= len(p) {
		r, size, err := s.br.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}
		n += utf8.EncodeRune(p[n:], r)
		if s.br.Buffered() == 0 {
			// Hand back what we have instead of blocking on the next read.
			break
		}
	}
	return n, nil
}

// CSVRow maps canonical field names to raw cell text.
type CSVRow map[string]string

// headerFields maps lowercased header names to canonical field names.
var headerFields = func() map[string]string {
	m := make(map[string]string, len(BuyerFields))
	for _, spec := range BuyerFields {
		m[strings.ToLower(spec.Name)] = spec.Name
	}
	return m
}()

// cleanHeader trims whitespace and stray quotes from a header cell.
func cleanHeader(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// CanonicalHeader resolves a header cell to a buyer field name. Unknown
// headers are returned cleaned but otherwise unchanged.
func CanonicalHeader(h string) string {
	h = cleanHeader(h)
	if name, ok := headerFields[strings.ToLower(h)]; ok {
		return name
	}
	return h
}

// ParseCSV reads a header-delimited CSV document. Records whose cells are
// all blank are skipped. Short records leave the missing columns absent;
// surplus cells are dropped. Quotes are parsed leniently: a stray '"' in an
// unquoted cell is kept as text, so a file is only judged row by row.
func ParseCSV(r io.Reader) ([]CSVRow, error) {
	reader := csv.NewReader(NewImportReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = CanonicalHeader(h)
	}

	var rows []CSVRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		if blankRecord(record) {
			continue
		}

		row := make(CSVRow, len(columns))
		for i, col := range columns {
			if i >= len(record) || col == "" {
				continue
			}
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
