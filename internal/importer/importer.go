// Package importer reads assignment rows from CSV files and structured
// documents (JSON or YAML) into raw records.
package importer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound means the path does not name a readable file.
	ErrNotFound = errors.New("file not found")
	// ErrParse means the content does not follow the file kind's grammar.
	ErrParse = errors.New("malformed input")
	// ErrUnsupportedKind means the file extension maps to no known kind.
	ErrUnsupportedKind = errors.New("unsupported file type")
)

// Kind is the declared shape of an input file.
type Kind int

const (
	KindTabular Kind = iota + 1
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindTabular:
		return "tabular"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// KindFromPath picks the kind from the file extension.
func KindFromPath(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return KindTabular, nil
	case ".json", ".yaml", ".yml":
		return KindDocument, nil
	default:
		return 0, fmt.Errorf("%q: %w", path, ErrUnsupportedKind)
	}
}

// Record is one input row keyed by field name.
type Record map[string]string

// Check reports ErrNotFound unless path is an existing regular file.
func Check(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	return nil
}

func open(path string) (*os.File, error) {
	if err := Check(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	return f, nil
}

// ReadTabular reads a CSV file. When the first row names the date field it
// is treated as a header and rows are keyed by the header's names; otherwise
// every row is keyed by fields in order.
func ReadTabular(path string, fields []string, dateField string) ([]Record, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseTabular(f, fields, dateField)
}

func parseTabular(r io.Reader, fields []string, dateField string) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(rows) == 0 {
		return []Record{}, nil
	}

	keys := fields
	if isHeader(rows[0], dateField) {
		keys = make([]string, len(rows[0]))
		for i, name := range rows[0] {
			keys[i] = fieldName(strings.TrimSpace(name), fields)
		}
		rows = rows[1:]
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(keys) {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrParse, i+1, len(row), len(keys))
		}
		record := make(Record, len(keys))
		for j, key := range keys {
			record[key] = row[j]
		}
		records = append(records, record)
	}

	return records, nil
}

// WriteTemplate writes a CSV file holding only the header row. An existing
// file is left alone.
func WriteTemplate(path string, fields []string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create template directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("failed to create template: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(fields); err != nil {
		return false, fmt.Errorf("failed to write template: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, fmt.Errorf("failed to write template: %w", err)
	}
	return true, nil
}

func isHeader(row []string, dateField string) bool {
	for _, cell := range row {
		if strings.EqualFold(strings.TrimSpace(cell), dateField) {
			return true
		}
	}
	return false
}

// fieldName returns the configured field matching name regardless of case,
// or name itself when none does.
func fieldName(name string, fields []string) string {
	for _, f := range fields {
		if strings.EqualFold(name, f) {
			return f
		}
	}
	return name
}

// ReadDocument decodes a JSON or YAML file into its list of items. A top
// level mapping contributes the list under its "results" key.
func ReadDocument(path string) ([]map[string]any, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var dec interface{ Decode(v any) error }
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec = yaml.NewDecoder(f)
	default:
		dec = json.NewDecoder(f)
	}

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	// The file must hold exactly one document.
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after the document")
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return documentItems(data)
}

func documentItems(data any) ([]map[string]any, error) {
	if m, ok := data.(map[string]any); ok {
		results, found := m["results"]
		if !found {
			return nil, fmt.Errorf("%w: document has no \"results\" list", ErrParse)
		}
		data = results
	}

	list, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of items, got %T", ErrParse, data)
	}

	items := make([]map[string]any, 0, len(list))
	for i, v := range list {
		item, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is %T, expected an object", ErrParse, i, v)
		}
		items = append(items, item)
	}
	return items, nil
}
