package postgres

import (
	"context"
	"database/sql"
	"time"

	"nextfare/internal/domain"
)

const eventColumns = `id, event_title, event_summary, event_address, event_image_url,
		event_page_url, latitude, longitude, tickets_sold, event_start_time,
		event_end_time, event_source, time_added, time_updated`

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository returns a read-only EventRepository over the events
// table populated by the scrapers.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) FindActive(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE event_end_time > $1
		ORDER BY event_end_time ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *eventRepository) FindActiveInBounds(ctx context.Context, box domain.BoundingBox, start, end time.Time) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		  AND event_end_time > $5
		  AND event_end_time < $6
		ORDER BY event_end_time ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, box.South, box.North, box.West, box.East, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// scanEvents maps rows to events. Text and counter columns are nullable in
// the scraper's schema and map to zero values here.
func scanEvents(rows *sql.Rows) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e := &domain.Event{}
		var (
			summaryNull, addressNull, imageNull, pageNull, sourceNull sql.NullString
			ticketsNull                                               sql.NullInt64
			latNull, lngNull                                          sql.NullFloat64
		)
		if err := rows.Scan(
			&e.ID, &e.Title, &summaryNull, &addressNull, &imageNull,
			&pageNull, &latNull, &lngNull, &ticketsNull, &e.StartTime,
			&e.EndTime, &sourceNull, &e.TimeAdded, &e.TimeUpdated,
		); err != nil {
			return nil, err
		}
		e.Summary = summaryNull.String
		e.Address = addressNull.String
		e.ImageURL = imageNull.String
		e.PageURL = pageNull.String
		e.Source = domain.EventSource(sourceNull.String)
		e.TicketsSold = int(ticketsNull.Int64)
		e.Latitude = latNull.Float64
		e.Longitude = lngNull.Float64
		events = append(events, e)
	}
	return events, rows.Err()
}
