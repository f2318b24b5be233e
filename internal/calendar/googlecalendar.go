package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Client is a wrapper around the Google Calendar API service.
type Client struct {
	service *calendar.Service
}

// NewClient creates a new Google Calendar API client using the provided HTTP client.
// Extra options (an alternate endpoint in tests) are passed through to the service.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{service: service}, nil
}

// ListUpcoming returns at most maxResults events starting at or after timeMin,
// ordered by start time. Recurring events are expanded to instances, which
// orderBy=startTime requires.
func (c *Client) ListUpcoming(ctx context.Context, calendarID string, timeMin time.Time, maxResults int64) ([]*calendar.Event, error) {
	eventsList, err := c.service.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, &RemoteError{Op: "list", Err: err}
	}

	return eventsList.Items, nil
}

// InsertEvent inserts a new event into a calendar and returns the created event.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	created, err := c.service.Events.Insert(calendarID, event).
		SendUpdates("none"). // Disable notifications
		Context(ctx).
		Do()
	if err != nil {
		return nil, &RemoteError{Op: "insert", Err: err}
	}

	return created, nil
}

// DeleteEvent deletes an event from a calendar.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := c.service.Events.Delete(calendarID, eventID).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return &RemoteError{Op: "delete", Err: err}
	}

	return nil
}
