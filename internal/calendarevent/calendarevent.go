// Package calendarevent implements methods to get events from ical feeds.
package calendarevent

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/apognu/gocal"
)

type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

type EventGetter interface {
	EventFor(ctx context.Context, at time.Time) (*Event, error)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Service fetches an external calendar feed, used to annotate planned
// workouts with the event they were scheduled against.
type Service struct {
	Client  HTTPClient
	FeedURL string
}

func NewService(client HTTPClient, feedURL string) *Service {
	return &Service{Client: client, FeedURL: feedURL}
}

// EventsBetween returns all feed events overlapping the [start, end] window.
func (s *Service) EventsBetween(ctx context.Context, start, end time.Time) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.FeedURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching calendar feed: status %d", resp.StatusCode)
	}

	c := gocal.NewParser(resp.Body)
	c.Start, c.End = &start, &end

	if err := c.Parse(); err != nil {
		return nil, err
	}

	var events []Event
	for i := 0; i < len(c.Events); i++ {
		component := c.Events[i]
		events = append(events, Event{
			Summary:     component.Summary,
			Description: component.Description,
			Start:       *component.Start,
			End:         *component.End,
		})
	}

	return events, nil
}

// EventFor returns the event covering the day of the given time, or nil if
// the feed has none.
func (s *Service) EventFor(ctx context.Context, at time.Time) (*Event, error) {
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	events, err := s.EventsBetween(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		return &events[0], nil
	}
	return nil, nil
}
