package results

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"google.golang.org/api/calendar/v3"

	"github.com/asgcal/asgcal/internal/importer"
)

func createdEvents() []*calendar.Event {
	return []*calendar.Event{
		{
			Id:          "abc123",
			Summary:     "COSC-2436: Lab1",
			Description: "Prg III<br>Use course materials for lab 1.",
			Location:    "Blackboard",
			HtmlLink:    "https://calendar.example/event?eid=abc123",
			Start:       &calendar.EventDateTime{Date: "2024-10-21"},
			End:         &calendar.EventDateTime{Date: "2024-10-21"},
		},
		{
			Id:      "def456",
			Summary: "COSC-2436: Lab2",
			Start:   &calendar.EventDateTime{Date: "2024-10-28"},
			End:     &calendar.EventDateTime{Date: "2024-10-28"},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "events.json")

	if err := WriteJSON(path, createdEvents()); err != nil {
		t.Fatalf("WriteJSON() returned an error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read results file: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "Prg III<br>Use") {
		t.Errorf("Expected markup to be written unescaped, got:\n%s", s)
	}
	if !strings.Contains(s, "\n        \"id\": \"abc123\"") {
		t.Errorf("Expected 4-space indentation, got:\n%s", s)
	}
}

func TestWriteJSON_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := WriteJSON(path, createdEvents()); err != nil {
		t.Fatalf("WriteJSON() returned an error: %v", err)
	}
	if err := WriteJSON(path, []DeleteTarget{{Summary: "only", ID: "x"}}); err != nil {
		t.Fatalf("WriteJSON() returned an error: %v", err)
	}

	targets, err := ReadDeleteTargets(path)
	if err != nil {
		t.Fatalf("ReadDeleteTargets() returned an error: %v", err)
	}
	if len(targets) != 1 || targets[0].ID != "x" {
		t.Errorf("Expected the file to be replaced, got %+v", targets)
	}
}

func TestWriteJSON_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteJSON(filepath.Join(blocker, "events.json"), createdEvents()); err == nil {
		t.Error("WriteJSON() under a regular file should have returned an error")
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	events := createdEvents()

	if err := WriteJSON(path, events); err != nil {
		t.Fatalf("WriteJSON() returned an error: %v", err)
	}
	targets, err := ReadDeleteTargets(path)
	if err != nil {
		t.Fatalf("ReadDeleteTargets() returned an error: %v", err)
	}

	want := []DeleteTarget{
		{Summary: "COSC-2436: Lab1", ID: "abc123"},
		{Summary: "COSC-2436: Lab2", ID: "def456"},
	}
	if !reflect.DeepEqual(targets, want) {
		t.Errorf("ReadDeleteTargets() = %+v, want %+v", targets, want)
	}
}

func TestReadDeleteTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := os.WriteFile(path, []byte(`[{"summary":"Lab1","id":"abc123"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	targets, err := ReadDeleteTargets(path)
	if err != nil {
		t.Fatalf("ReadDeleteTargets() returned an error: %v", err)
	}
	want := []DeleteTarget{{Summary: "Lab1", ID: "abc123"}}
	if !reflect.DeepEqual(targets, want) {
		t.Errorf("ReadDeleteTargets() = %+v, want %+v", targets, want)
	}
}

func TestReadDeleteTargets_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadDeleteTargets(filepath.Join(dir, "missing.json")); !errors.Is(err, importer.ErrNotFound) {
		t.Errorf("Missing file error = %v, want ErrNotFound", err)
	}

	tests := map[string]string{
		"invalid json": `[{"summary":`,
		"not a list":   `{"summary":"Lab1","id":"abc123"}`,
		"missing id":   `[{"summary":"Lab1"}]`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".json")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadDeleteTargets(path); !errors.Is(err, importer.ErrParse) {
				t.Errorf("ReadDeleteTargets() error = %v, want ErrParse", err)
			}
		})
	}
}

func TestWriteICS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "events.ics")
	stamp := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

	if err := WriteICS(path, createdEvents(), stamp); err != nil {
		t.Fatalf("WriteICS() returned an error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open calendar file: %v", err)
	}
	defer f.Close()

	cal, err := ical.NewDecoder(f).Decode()
	if err != nil {
		t.Fatalf("Failed to decode calendar file: %v", err)
	}

	var vevents []*ical.Component
	for _, child := range cal.Children {
		if child.Name == ical.CompEvent {
			vevents = append(vevents, child)
		}
	}
	if len(vevents) != 2 {
		t.Fatalf("Expected 2 VEVENTs, got %d", len(vevents))
	}

	first := vevents[0]
	if uid := first.Props.Get(ical.PropUID); uid == nil || uid.Value != "abc123" {
		t.Errorf("Expected UID abc123, got %v", uid)
	}
	dtstart := first.Props.Get(ical.PropDateTimeStart)
	if dtstart == nil || dtstart.Value != "20241021" || dtstart.Params.Get(ical.ParamValue) != "DATE" {
		t.Errorf("Expected DTSTART;VALUE=DATE:20241021, got %+v", dtstart)
	}
	dtend := first.Props.Get(ical.PropDateTimeEnd)
	if dtend == nil || dtend.Value != "20241022" {
		t.Errorf("Expected exclusive DTEND 20241022, got %+v", dtend)
	}
}

func TestWriteICS_NoStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ics")
	err := WriteICS(path, []*calendar.Event{{Id: "x", Summary: "no dates"}}, time.Now())
	if err == nil {
		t.Error("WriteICS() should fail for an event without a start")
	}
}
