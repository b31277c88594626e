// Package export reads BORIS CSV event exports: it opens the file, detects
// the delimiter and the export layout, and yields rows as field-name to
// value mappings for a single forward pass.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrFormat reports an export that cannot be interpreted: missing header,
// no data rows, or a header matching neither known layout.
var ErrFormat = errors.New("unrecognized export format")

// Row is one CSV record as a field-name to value mapping. Values are the
// raw strings from the file; no type coercion happens at this stage.
type Row struct {
	values map[string]string
}

// Get returns the raw value of the named column, or "" if absent.
func (r Row) Get(col string) string {
	return r.values[col]
}

// Reader yields the rows of one export file in order. It is a lazy,
// single-pass reader: rows are only read as Next is called and the
// sequence is not restartable.
type Reader struct {
	closer io.Closer
	csv    *csv.Reader
	header []string
	path   string
}

// Open opens the export at path, detects its delimiter (comma or
// semicolon) and reads the header row.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}

	r, err := NewReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader wraps an already-open export stream. name is used in
// diagnostics only.
func NewReader(src io.Reader, name string) (*Reader, error) {
	br := bufio.NewReader(src)

	// Delimiter detection looks at the first line only: European exports
	// use semicolons, everything else commas.
	peek, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = detectDelimiter(peek)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s has no header row", ErrFormat, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	return &Reader{csv: cr, header: header, path: name}, nil
}

// Header returns the column names of the export, in file order.
func (r *Reader) Header() []string {
	return r.header
}

// Next returns the next data row. It returns io.EOF when the export is
// exhausted. Short records map only the columns they cover; extra fields
// beyond the header are dropped.
func (r *Reader) Next() (Row, error) {
	record, err := r.csv.Read()
	if err == io.EOF {
		return Row{}, io.EOF
	}
	if err != nil {
		return Row{}, fmt.Errorf("failed to read row from %s: %w", r.path, err)
	}

	values := make(map[string]string, len(r.header))
	for i, col := range r.header {
		if i < len(record) {
			values[col] = record[i]
		}
	}
	return Row{values: values}, nil
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// detectDelimiter picks between semicolon and comma by counting both in
// the first line of the file.
func detectDelimiter(peek []byte) rune {
	line := string(peek)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}
