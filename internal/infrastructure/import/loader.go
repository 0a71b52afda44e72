package csvimport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// File extensions accepted for uploads
const (
	ExtCSV  = ".csv"
	ExtJSON = ".json"
)

// Document is a loaded upload: one map per row plus the source headers
// offered to the column-mapping UI.
type Document struct {
	Rows    []map[string]any
	Headers []string
}

// IsSupportedFile reports whether filename has an accepted extension
func IsSupportedFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtCSV, ExtJSON:
		return true
	}
	return false
}

// Load dispatches on the file extension of filename
func Load(filename string, r io.Reader) (*Document, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtJSON:
		return LoadJSON(r)
	case ExtCSV:
		return LoadCSV(r)
	}
	return nil, ErrUnsupportedFileType
}

// LoadCSV reads a CSV upload whose first row holds the headers
func LoadCSV(r io.Reader) (*Document, error) {
	parser, err := NewCSVParser(r)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Rows:    make([]map[string]any, 0, len(rows)),
		Headers: parser.Headers(),
	}
	for _, row := range rows {
		m := make(map[string]any, len(row.Data))
		for k, v := range row.Data {
			m[k] = v
		}
		doc.Rows = append(doc.Rows, m)
	}
	return doc, nil
}

// LoadJSON reads a bare array of objects or an {"items": [...]} envelope.
// Headers are the sorted union of object keys. Entries that are not objects
// load as empty rows so they surface as validation errors at their index.
// Dumps in the minimal per-product shape are flattened to one row per variant.
func LoadJSON(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSONShape, err)
	}

	if obj, ok := payload.(map[string]any); ok {
		items, present := obj["items"]
		if !present {
			return nil, ErrInvalidJSONShape
		}
		payload = items
	}
	list, ok := payload.([]any)
	if !ok {
		return nil, ErrInvalidJSONShape
	}

	if IsMinimalDump(list) {
		list = FlattenMinimal(list)
	}

	doc := &Document{Rows: make([]map[string]any, 0, len(list))}
	keys := make(map[string]struct{})
	for _, entry := range list {
		row, ok := entry.(map[string]any)
		if !ok {
			row = map[string]any{}
		}
		for k := range row {
			keys[k] = struct{}{}
		}
		doc.Rows = append(doc.Rows, row)
	}

	doc.Headers = make([]string, 0, len(keys))
	for k := range keys {
		doc.Headers = append(doc.Headers, k)
	}
	sort.Strings(doc.Headers)
	return doc, nil
}
