package session

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/calendar/v3"

	"github.com/asgcal/asgcal/internal/importer"
	"github.com/asgcal/asgcal/internal/prompt"
	"github.com/asgcal/asgcal/internal/results"
)

// List shows upcoming events, soonest first.
func (s *Session) List(ctx context.Context) (bool, error) {
	n, err := s.prompt.AskCount("Enter the number of events to retrieve", s.cfg.MaxListResults)
	if err != nil {
		return s.fail("list", err, "")
	}

	s.prompt.Printf("Getting the upcoming %d events\n", n)
	events, err := s.client.ListUpcoming(ctx, s.cfg.CalendarID, s.now(), int64(n))
	if err != nil {
		return s.fail("list", err, "")
	}

	if len(events) == 0 {
		s.prompt.Printf("No upcoming events found.\n")
		return false, nil
	}

	for _, e := range events {
		s.prompt.Printf("%s %s\n", startOf(e), e.Summary)
	}

	return s.offerSave(events)
}

// Create adds one event per input row after the operator confirms the
// transformed data. The first failed insert stops the batch; events already
// created stay in the calendar.
func (s *Session) Create(ctx context.Context) (bool, error) {
	path, err := s.askFile("Enter the filepath for either a .csv, .json or .yaml file to import")
	if err != nil {
		return s.fail("create", err, "")
	}

	kind, err := importer.KindFromPath(path)
	if err != nil {
		return s.fail("create", err, path)
	}
	ld, err := s.loaderFor(kind)
	if err != nil {
		return s.fail("create", err, path)
	}

	events, err := ld.load(path)
	if err != nil {
		return s.fail("create", err, path)
	}
	if len(events) == 0 {
		s.prompt.Error(fmt.Sprintf("File %q contains no events to create.", path))
		return false, nil
	}
	s.showEvents(events)

	decision, err := s.prompt.Gate("Confirm if the transformed data above is correct and to continue to add to calendar")
	if err != nil {
		return s.fail("create", err, path)
	}
	if decision != prompt.Confirmed {
		s.declined("create")
		return false, nil
	}

	created := make([]*calendar.Event, 0, len(events))
	for i, e := range events {
		result, err := s.client.InsertEvent(ctx, s.cfg.CalendarID, e.ToCalendar())
		if err != nil {
			s.log.Debug("create batch stopped", "created", len(created), "skipped", len(events)-i-1, "summary", e.Summary)
			return s.fail("create", err, path)
		}
		s.log.Debug("event created", "id", result.Id, "summary", result.Summary)
		s.prompt.Printf("Event created: %s\n", result.HtmlLink)
		created = append(created, result)
	}

	s.prompt.Panel("Success", "Created all events.")
	return s.offerSave(created)
}

// Delete removes every event listed in a results file after the operator
// confirms. The first failed delete stops the batch.
func (s *Session) Delete(ctx context.Context) (bool, error) {
	path, err := s.askFile("Enter the .json filepath that contains the event objects to delete")
	if err != nil {
		return s.fail("delete", err, "")
	}

	targets, err := results.ReadDeleteTargets(path)
	if err != nil {
		return s.fail("delete", err, path)
	}
	if len(targets) == 0 {
		s.prompt.Error(fmt.Sprintf("File %q contains no events to delete.", path))
		return false, nil
	}

	rows := make([][]string, len(targets))
	for i, t := range targets {
		rows[i] = []string{t.Summary, t.ID}
	}
	s.prompt.Table("Events to delete", []string{"summary", "id"}, rows)

	decision, err := s.prompt.Gate("Confirm if the data above is correct and to continue to delete from calendar")
	if err != nil {
		return s.fail("delete", err, path)
	}
	if decision != prompt.Confirmed {
		s.declined("delete")
		return false, nil
	}

	for i, t := range targets {
		s.prompt.Printf("Deleting event: %q - %s\n", t.Summary, t.ID)
		if err := s.client.DeleteEvent(ctx, s.cfg.CalendarID, t.ID); err != nil {
			s.log.Debug("delete batch stopped", "deleted", i, "skipped", len(targets)-i-1, "id", t.ID)
			return s.fail("delete", err, path)
		}
	}

	s.prompt.Panel("Success", "Deleted all events.")
	return true, nil
}

// askFile asks for a path until it names an existing file.
func (s *Session) askFile(msg string) (string, error) {
	for {
		path, err := s.prompt.Ask(msg, func() { s.prompt.WorkingDir(s.cfg.InputDir) })
		if err != nil {
			return "", err
		}
		if err := importer.Check(path); err != nil {
			if errors.Is(err, importer.ErrNotFound) {
				s.prompt.Error(fmt.Sprintf("%q is not recognized as a file.", path))
				continue
			}
			return "", err
		}
		return path, nil
	}
}

// offerSave asks whether to keep events in the results file. A failed write
// fails the operation.
func (s *Session) offerSave(events []*calendar.Event) (bool, error) {
	save, err := s.prompt.AskYesNo("Would you like to save the event objects to a file?")
	if err != nil {
		return s.fail("save", err, "")
	}
	if !save {
		return true, nil
	}

	if err := results.WriteJSON(s.cfg.EventsOutfile, events); err != nil {
		s.log.Debug("results write failed", "path", s.cfg.EventsOutfile, "error", err)
		s.prompt.Error(fmt.Sprintf("Could not write events to %q.", s.cfg.EventsOutfile))
		return false, nil
	}
	s.prompt.Panel("Success", fmt.Sprintf("Wrote events to %q", s.cfg.EventsOutfile))

	if s.cfg.ICSExport {
		if err := results.WriteICS(s.cfg.ICSOutfile, events, s.now()); err != nil {
			s.log.Debug("calendar export failed", "path", s.cfg.ICSOutfile, "error", err)
			s.prompt.Error(fmt.Sprintf("Could not export events to %q.", s.cfg.ICSOutfile))
			return false, nil
		}
		s.prompt.Panel("Success", fmt.Sprintf("Exported events to %q", s.cfg.ICSOutfile))
	}
	return true, nil
}

func (s *Session) declined(op string) {
	s.log.Debug("confirmation declined", "op", op)
	s.prompt.Error("User has confirmed that the data is incorrect.\nNo changes were made.")
}

func startOf(e *calendar.Event) string {
	if e.Start == nil {
		return ""
	}
	if e.Start.DateTime != "" {
		return e.Start.DateTime
	}
	return e.Start.Date
}
