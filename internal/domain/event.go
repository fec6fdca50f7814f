package domain

import (
	"context"
	"time"
)

// EventSource identifies which scraper produced an event record.
type EventSource string

// Known event sources.
const (
	EventSourceMeetup     EventSource = "meetup"
	EventSourceEventbrite EventSource = "eventbrite"
)

// Event is a discoverable happening ingested by the scrapers. Records are
// read-only from this backend's perspective; an event is "active" while its
// EndTime is strictly after the reference instant.
// swagger:model Event
type Event struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	Address     string      `json:"address"`
	ImageURL    string      `json:"image_url"`
	PageURL     string      `json:"page_url"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	TicketsSold int         `json:"tickets_sold"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     time.Time   `json:"end_time"`
	Source      EventSource `json:"source"`
	TimeAdded   time.Time   `json:"time_added"`
	TimeUpdated time.Time   `json:"time_updated"`
}

// EventRepository is the source of truth for event records. Both queries
// return events ordered by end time ascending (soonest-ending first).
type EventRepository interface {
	// FindActive returns every event whose end time is after now.
	FindActive(ctx context.Context, now time.Time) ([]*Event, error)
	// FindActiveInBounds returns events inside the box whose end time falls
	// within the half-open range [start, end).
	FindActiveInBounds(ctx context.Context, box BoundingBox, start, end time.Time) ([]*Event, error)
}

// EventService defines the business logic for the event discovery feed.
type EventService interface {
	GetActiveEvents(ctx context.Context) ([]*Event, error)
	GetActiveEventsInBounds(ctx context.Context, query GeoTimeQuery) ([]*Event, error)
	GetActiveEventsWithinRadius(ctx context.Context, lat, lng, radiusMiles float64, start, end time.Time) ([]*Event, error)
	// InvalidateCache drops every cached bounds query. Best-effort: cache
	// failures are logged, never surfaced. Returns the number of entries removed.
	InvalidateCache(ctx context.Context) int
}
