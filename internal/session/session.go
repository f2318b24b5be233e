// Package session runs the operator-facing operations: listing upcoming
// events, creating events from an input file, and deleting events recorded
// in a results file.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	calclient "github.com/asgcal/asgcal/internal/calendar"
	"github.com/asgcal/asgcal/internal/config"
	"github.com/asgcal/asgcal/internal/event"
	"github.com/asgcal/asgcal/internal/importer"
	"github.com/asgcal/asgcal/internal/logging"
	"github.com/asgcal/asgcal/internal/prompt"
)

// Operation runs one command. It reports whether the command succeeded; the
// only error it returns is prompt.ErrExit.
type Operation func(ctx context.Context) (bool, error)

// Session holds what the operations share for the life of the process.
type Session struct {
	cfg    *config.Config
	client calclient.CalendarClient
	prompt *prompt.Prompter
	log    *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.log = logger }
}

// WithClock sets the source of the current time used by List.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLocation sets the zone gradebook due times are converted into.
func WithLocation(loc *time.Location) Option {
	return func(s *Session) { s.loc = loc }
}

// New returns a Session using client for every calendar call.
func New(cfg *config.Config, client calclient.CalendarClient, p *prompt.Prompter, opts ...Option) *Session {
	s := &Session{
		cfg:    cfg,
		client: client,
		prompt: p,
		log:    logging.Discard(),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var commands = []prompt.Command{
	{Name: "display", Description: "Displays upcoming Google Calendar events (alias: list)"},
	{Name: "create", Description: "Creates Google Calendar events from a .csv, .json or .yaml file"},
	{Name: "delete", Description: "Deletes Google Calendar events from a .json results file"},
	{Name: "help", Description: "Displays available commands"},
	{Name: "exit", Description: "Exits the program"},
}

// Lookup returns the operation registered under name.
func (s *Session) Lookup(name string) (Operation, bool) {
	switch strings.ToLower(name) {
	case "display", "list":
		return s.List, true
	case "create":
		return s.Create, true
	case "delete":
		return s.Delete, true
	default:
		return nil, false
	}
}

// Do runs the named operation once and shows the outcome banner.
func (s *Session) Do(ctx context.Context, name string) (bool, error) {
	op, ok := s.Lookup(name)
	if !ok {
		return false, fmt.Errorf("unknown command %q", name)
	}

	s.prompt.Panel("Starting Process", "Command selected: "+strings.ToLower(name))
	s.log.Debug("operation started", "op", name)

	ok, err := op(ctx)
	if err != nil {
		return false, err
	}
	s.log.Debug("operation finished", "op", name, "success", ok)
	s.prompt.Banner(ok)
	return ok, nil
}

// Run reads commands until the operator exits. After every operation it
// returns to command selection.
func (s *Session) Run(ctx context.Context) error {
	for {
		answer, err := s.prompt.Ask("Enter a command", s.showCommands)
		if errors.Is(err, prompt.ErrExit) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, ok := s.Lookup(answer); !ok {
			s.prompt.Error(fmt.Sprintf("Unknown command %q. Type \"help\" to see the available commands.", answer))
			continue
		}

		if _, err := s.Do(ctx, answer); err != nil {
			if errors.Is(err, prompt.ErrExit) {
				s.log.Debug("session ended by operator")
				return nil
			}
			return err
		}
	}
}

func (s *Session) showCommands() {
	s.prompt.Commands(commands)
}

// fail reports err to the operator and ends the current operation. Exit
// requests pass through untouched.
func (s *Session) fail(op string, err error, path string) (bool, error) {
	if errors.Is(err, prompt.ErrExit) {
		return false, err
	}
	s.log.Debug("operation failed", "op", op, "path", path, "error", err)
	s.prompt.Error(message(err, path))
	return false, nil
}

func message(err error, path string) string {
	var remote *calclient.RemoteError
	switch {
	case errors.Is(err, importer.ErrUnsupportedKind):
		return fmt.Sprintf("File %q is not a supported filetype.", path)
	case errors.Is(err, importer.ErrNotFound):
		return fmt.Sprintf("File %q was not found.", path)
	case errors.Is(err, importer.ErrParse):
		return fmt.Sprintf("File %q contained invalid syntax.", path)
	case errors.Is(err, event.ErrDateFormat):
		return "The due dates do not match the supplied date format."
	case errors.Is(err, event.ErrMissingField):
		return "Could not convert the data into events."
	case errors.As(err, &remote):
		return remoteMessage(remote)
	default:
		return "Exception occurred. Try again."
	}
}

func remoteMessage(remote *calclient.RemoteError) string {
	var apiErr *googleapi.Error
	if errors.As(remote.Err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return "The calendar service rejected the credentials. Remove the saved token and sign in again."
		case http.StatusForbidden, http.StatusTooManyRequests:
			return fmt.Sprintf("The calendar service refused the %s request (HTTP %d).", remote.Op, apiErr.Code)
		case http.StatusNotFound:
			return fmt.Sprintf("The calendar service could not find the target of the %s request.", remote.Op)
		}
		return fmt.Sprintf("The calendar %s request failed (HTTP %d).", remote.Op, apiErr.Code)
	}
	return fmt.Sprintf("The calendar %s request failed. Check your connection and try again.", remote.Op)
}
