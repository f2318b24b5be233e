// Package results persists event results and reads them back for deletion.
package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-ical"
	"google.golang.org/api/calendar/v3"

	"github.com/asgcal/asgcal/internal/importer"
)

const productID = "-//asgcal//EN"

// DeleteTarget names an event to remove.
type DeleteTarget struct {
	Summary string `json:"summary"`
	ID      string `json:"id"`
}

// WriteJSON writes v to path as indented JSON, replacing any existing file.
// Markup such as "<br>" is written as-is.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

// ReadDeleteTargets reads a results file written by WriteJSON and returns
// the (summary, id) pair of every entry in file order.
func ReadDeleteTargets(path string) ([]DeleteTarget, error) {
	if err := importer.Check(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, importer.ErrNotFound)
	}

	var targets []DeleteTarget
	if err := json.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("%w: %v", importer.ErrParse, err)
	}
	for i, target := range targets {
		if target.ID == "" {
			return nil, fmt.Errorf("%w: entry %d (%q) has no id", importer.ErrParse, i, target.Summary)
		}
	}
	return targets, nil
}

// WriteICS exports events as an iCalendar file. stamp is used for DTSTAMP.
func WriteICS(path string, events []*calendar.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for i, event := range events {
		vevent, err := toVEvent(event, stamp)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		cal.Children = append(cal.Children, vevent)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write calendar file: %w", err)
	}
	return nil
}

func toVEvent(event *calendar.Event, stamp time.Time) (*ical.Component, error) {
	vevent := ical.NewComponent(ical.CompEvent)

	uid := event.Id
	if uid == "" {
		uid = fmt.Sprintf("%s@asgcal", stamp.UTC().Format("20060102T150405Z"))
	}
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if event.Summary != "" {
		vevent.Props.SetText(ical.PropSummary, event.Summary)
	}
	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		vevent.Props.SetText(ical.PropLocation, event.Location)
	}

	if event.Start == nil {
		return nil, fmt.Errorf("%q has no start", event.Summary)
	}

	if event.Start.Date != "" {
		start, err := time.Parse("2006-01-02", event.Start.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q: %w", event.Start.Date, err)
		}
		// DTEND is exclusive for all-day events
		end := start.AddDate(0, 0, 1)
		if event.End != nil && event.End.Date != "" {
			if d, err := time.Parse("2006-01-02", event.End.Date); err == nil && d.After(start) {
				end = d
			}
		}

		dtstart := ical.NewProp(ical.PropDateTimeStart)
		dtstart.SetDate(start)
		vevent.Props.Set(dtstart)
		dtend := ical.NewProp(ical.PropDateTimeEnd)
		dtend.SetDate(end)
		vevent.Props.Set(dtend)
		return vevent, nil
	}

	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", event.Start.DateTime, err)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	if event.End != nil && event.End.DateTime != "" {
		if end, err := time.Parse(time.RFC3339, event.End.DateTime); err == nil {
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
		}
	}
	return vevent, nil
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
