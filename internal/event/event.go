// Package event turns imported records into all-day calendar events.
package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"
	"google.golang.org/api/calendar/v3"

	"github.com/asgcal/asgcal/internal/importer"
)

// DefaultLocation is the location given to events built from gradebook items.
const DefaultLocation = "Blackboard"

// DefaultDateFormat is used when the operator leaves the pattern empty.
const DefaultDateFormat = "%Y-%m-%d"

const isoDate = "2006-01-02"

var (
	// ErrDateFormat means a due date did not match the supplied pattern.
	ErrDateFormat = errors.New("date does not match format")
	// ErrMissingField means a record lacks a field the event needs.
	ErrMissingField = errors.New("missing field")
)

// When is a start or end point in the calendar API's shape.
type When struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event is a normalized event ready to be handed to the calendar.
type Event struct {
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Start       *When  `json:"start,omitempty"`
	End         *When  `json:"end,omitempty"`
}

// AllDay returns a single-day event on date.
func AllDay(summary, description, location, date string) Event {
	return Event{
		Summary:     summary,
		Description: description,
		Location:    location,
		Start:       &When{Date: date},
		End:         &When{Date: date},
	}
}

// ToCalendar converts e to the Calendar API schema.
func (e Event) ToCalendar() *calendar.Event {
	out := &calendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
	}
	if e.Start != nil {
		out.Start = &calendar.EventDateTime{Date: e.Start.Date, DateTime: e.Start.DateTime, TimeZone: e.Start.TimeZone}
	}
	if e.End != nil {
		out.End = &calendar.EventDateTime{Date: e.End.Date, DateTime: e.End.DateTime, TimeZone: e.End.TimeZone}
	}
	return out
}

// StartString returns the start as shown to the operator.
func (e Event) StartString() string {
	return whenString(e.Start)
}

// EndString returns the end as shown to the operator.
func (e Event) EndString() string {
	return whenString(e.End)
}

func whenString(w *When) string {
	if w == nil {
		return ""
	}
	if w.DateTime != "" {
		return w.DateTime
	}
	return w.Date
}

// FromTabular builds one event per CSV record. fields names the columns in
// the fixed order course_key, course_name, asg_name, asg_desc, due_date,
// due_location. Every due date must parse under pattern; a single failure
// fails the batch.
func FromTabular(records []importer.Record, fields []string, pattern string) ([]Event, error) {
	if len(fields) != 6 {
		return nil, fmt.Errorf("expected 6 field names, got %d", len(fields))
	}
	if pattern == "" {
		pattern = DefaultDateFormat
	}

	courseKey, courseName, asgName, asgDesc, dueDate, dueLocation :=
		fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]

	events := make([]Event, 0, len(records))
	for i, record := range records {
		for _, f := range fields {
			if _, ok := record[f]; !ok {
				return nil, fmt.Errorf("row %d: %w %q", i+1, ErrMissingField, f)
			}
		}
		if strings.TrimSpace(record[asgName]) == "" {
			return nil, fmt.Errorf("row %d: %w %q", i+1, ErrMissingField, asgName)
		}

		due, err := parseDate(strings.TrimSpace(record[dueDate]), pattern)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w: %q with %q: %v", i+1, ErrDateFormat, record[dueDate], pattern, err)
		}

		events = append(events, AllDay(
			record[courseKey]+": "+record[asgName],
			record[courseName]+"<br>"+record[asgDesc],
			record[dueLocation],
			due.Format(isoDate),
		))
	}

	return events, nil
}

// parseDate parses s under pattern and rejects dates that do not exist,
// such as February 30, which the parser would otherwise roll into the
// next month.
func parseDate(s, pattern string) (time.Time, error) {
	t, err := timefmt.Parse(s, pattern)
	if err != nil {
		return time.Time{}, err
	}
	if !sameFields(s, strings.TrimSpace(timefmt.Format(t, pattern))) {
		return time.Time{}, fmt.Errorf("not a calendar date (read as %s)", t.Format(isoDate))
	}
	return t, nil
}

// sameFields compares two renderings of a date field by field: digit runs
// by numeric value, everything else case-insensitively with whitespace
// collapsed. "1/5/2024" and "01/05/2024" match; "2024-02-30" and
// "2024-03-01" do not.
func sameFields(a, b string) bool {
	ta, tb := fieldTokens(a), fieldTokens(b)
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		na, aNum := number(ta[i])
		nb, bNum := number(tb[i])
		switch {
		case aNum && bNum:
			if na != nb {
				return false
			}
		case aNum != bNum:
			return false
		case !strings.EqualFold(strings.Join(strings.Fields(ta[i]), " "), strings.Join(strings.Fields(tb[i]), " ")):
			return false
		}
	}
	return true
}

func fieldTokens(s string) []string {
	var tokens []string
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[start]) {
			tokens = append(tokens, s[start:i])
			start = i
		}
	}
	return tokens
}

func number(tok string) (int, bool) {
	if tok == "" || !isDigit(tok[0]) {
		return 0, false
	}
	n := 0
	for i := 0; i < len(tok); i++ {
		n = n*10 + int(tok[i]-'0')
	}
	return n, true
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// eventKeys are the item fields kept when a document is already event-shaped.
var eventKeys = []string{"summary", "start", "end", "location", "description"}

// FromDocument builds events from structured-document items. When conforming
// is true the items are already calendar events and are projected down to
// the event keys. Otherwise items are gradebook columns: each needs a
// grading.due timestamp, converted to a date in loc; items without one are
// skipped.
func FromDocument(items []map[string]any, conforming bool, courseKey string, loc *time.Location) ([]Event, error) {
	if conforming {
		return project(items)
	}

	if loc == nil {
		loc = time.Local
	}

	events := make([]Event, 0, len(items))
	for i, item := range items {
		due, ok := gradingDue(item)
		if !ok {
			continue
		}

		t, err := parseTimestamp(due, loc)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w: %v", i, ErrDateFormat, err)
		}

		name, _ := item["name"].(string)
		date := t.In(loc).Format(isoDate)
		events = append(events, AllDay(courseKey+": "+name, "", DefaultLocation, date))
	}

	return events, nil
}

// gradingDue returns item.grading.due when present and non-empty.
func gradingDue(item map[string]any) (any, bool) {
	grading, ok := item["grading"].(map[string]any)
	if !ok {
		return nil, false
	}
	due, ok := grading["due"]
	if !ok || due == nil {
		return nil, false
	}
	if s, isString := due.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return due, true
}

// parseTimestamp accepts RFC 3339 strings and, for zone-less strings, reads
// them in loc. YAML documents may already carry a decoded time.
func parseTimestamp(v any, loc *time.Location) (time.Time, error) {
	switch due := v.(type) {
	case time.Time:
		return due, nil
	case string:
		s := strings.TrimSpace(due)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, nil
		}
		for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04", "2006-01-02"} {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", due)
	default:
		return time.Time{}, fmt.Errorf("unexpected due value %v (%T)", v, v)
	}
}

func project(items []map[string]any) ([]Event, error) {
	events := make([]Event, 0, len(items))
	for i, item := range items {
		var e Event
		for _, key := range eventKeys {
			v, ok := item[key]
			if !ok || v == nil {
				continue
			}
			switch key {
			case "summary", "location", "description":
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("item %d: %w: %q must be a string, got %T", i, importer.ErrParse, key, v)
				}
				switch key {
				case "summary":
					e.Summary = s
				case "location":
					e.Location = s
				default:
					e.Description = s
				}
			case "start", "end":
				w, err := toWhen(v)
				if err != nil {
					return nil, fmt.Errorf("item %d: %w: %q: %v", i, importer.ErrParse, key, err)
				}
				if key == "start" {
					e.Start = w
				} else {
					e.End = w
				}
			}
		}
		if err := requireEventFields(e); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// requireEventFields checks what the calendar rejects on insert: a blank
// summary or a start or end without a date.
func requireEventFields(e Event) error {
	if strings.TrimSpace(e.Summary) == "" {
		return fmt.Errorf("%w %q", ErrMissingField, "summary")
	}
	if whenString(e.Start) == "" {
		return fmt.Errorf("%w %q", ErrMissingField, "start")
	}
	if whenString(e.End) == "" {
		return fmt.Errorf("%w %q", ErrMissingField, "end")
	}
	return nil
}

func toWhen(v any) (*When, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
	var w When
	for key, dst := range map[string]*string{"date": &w.Date, "dateTime": &w.DateTime, "timeZone": &w.TimeZone} {
		raw, ok := m[key]
		if !ok || raw == nil {
			continue
		}
		switch val := raw.(type) {
		case string:
			*dst = val
		case time.Time:
			if key == "date" {
				*dst = val.Format(isoDate)
			} else {
				*dst = val.Format(time.RFC3339)
			}
		default:
			return nil, fmt.Errorf("%q must be a string, got %T", key, raw)
		}
	}
	return &w, nil
}
