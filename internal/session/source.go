package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/asgcal/asgcal/internal/event"
	"github.com/asgcal/asgcal/internal/importer"
)

// loader reads an input file and turns it into events.
type loader interface {
	load(path string) ([]event.Event, error)
}

// pipeline pairs the import step for one input kind with its transform.
type pipeline[R any] struct {
	read      func(path string) ([]R, error)
	show      func(records []R)
	transform func(records []R) ([]event.Event, error)
}

func (p pipeline[R]) load(path string) ([]event.Event, error) {
	records, err := p.read(path)
	if err != nil {
		return nil, err
	}
	p.show(records)
	return p.transform(records)
}

// loaderFor picks the import and transform pair for kind.
func (s *Session) loaderFor(kind importer.Kind) (loader, error) {
	switch kind {
	case importer.KindTabular:
		return pipeline[importer.Record]{
			read: func(path string) ([]importer.Record, error) {
				return importer.ReadTabular(path, s.cfg.CSVFields, s.cfg.DateField())
			},
			show:      s.showRecords,
			transform: s.transformTabular,
		}, nil
	case importer.KindDocument:
		return pipeline[map[string]any]{
			read:      importer.ReadDocument,
			show:      s.showItems,
			transform: s.transformDocument,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %v", importer.ErrUnsupportedKind, kind)
	}
}

func (s *Session) transformTabular(records []importer.Record) ([]event.Event, error) {
	pattern, err := s.prompt.Ask(fmt.Sprintf(
		"Provide the date format for the dates in the %q column. Default is %q.\nFor additional format codes, type \"help\"",
		s.cfg.DateField(), s.cfg.DateFormat,
	), s.prompt.Strftime)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = s.cfg.DateFormat
	}
	s.log.Debug("transforming tabular records", "count", len(records), "pattern", pattern)

	return event.FromTabular(records, s.cfg.CSVFields, pattern)
}

func (s *Session) transformDocument(items []map[string]any) ([]event.Event, error) {
	conforming, err := s.prompt.AskYesNo("Is the data already in Google Calendar Event format?\n(If unsure, type \"n\".)")
	if err != nil {
		return nil, err
	}

	var courseKey string
	if !conforming {
		courseKey, err = s.prompt.Ask("Provide the course key for the gradebook file", nil)
		if err != nil {
			return nil, err
		}
	}
	s.log.Debug("transforming document items", "count", len(items), "conforming", conforming, "course_key", courseKey)

	return event.FromDocument(items, conforming, courseKey, s.loc)
}

func (s *Session) showRecords(records []importer.Record) {
	header := s.cfg.CSVFields
	rows := make([][]string, len(records))
	for i, record := range records {
		row := make([]string, len(header))
		for j, field := range header {
			row[j] = record[field]
		}
		rows[i] = row
	}
	s.prompt.Table("Imported data", header, rows)
}

func (s *Session) showItems(items []map[string]any) {
	keys := map[string]bool{}
	for _, item := range items {
		for k := range item {
			keys[k] = true
		}
	}
	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	rows := make([][]string, len(items))
	for i, item := range items {
		row := make([]string, len(header))
		for j, k := range header {
			if v, ok := item[k]; ok {
				row[j] = cell(v)
			}
		}
		rows[i] = row
	}
	s.prompt.Table("Imported data", header, rows)
}

func (s *Session) showEvents(events []event.Event) {
	rows := make([][]string, len(events))
	for i, e := range events {
		rows[i] = []string{e.Summary, e.StartString(), e.EndString(), e.Location, e.Description}
	}
	s.prompt.Table("Transformed data", []string{"summary", "start", "end", "location", "description"}, rows)
}

// cell renders v for the preview table, cut to 60 runes.
func cell(v any) string {
	s := strings.ReplaceAll(fmt.Sprint(v), "\n", " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}
