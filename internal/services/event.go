package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nextfare/internal/cache"
	"nextfare/internal/domain"
)

const (
	// eventsCachePrefix namespaces every bounds-query cache entry so
	// invalidation cannot touch unrelated keys.
	eventsCachePrefix = "events:bounds:"

	// eventsCacheTTL bounds staleness after out-of-band ingestion. Up to 15
	// minutes of staleness is an accepted degradation, not a correctness bug.
	eventsCacheTTL = 15 * time.Minute
)

type eventService struct {
	eventRepo domain.EventRepository
	cache     cache.Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewEventService creates the cache-aside event feed service. The cache is
// best-effort: read and write failures are logged and the source of truth
// serves the request.
func NewEventService(eventRepo domain.EventRepository, c cache.Cache, logger *slog.Logger) domain.EventService {
	return &eventService{
		eventRepo: eventRepo,
		cache:     c,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *eventService) GetActiveEvents(ctx context.Context) ([]*domain.Event, error) {
	events, err := s.eventRepo.FindActive(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("find active events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *eventService) GetActiveEventsInBounds(ctx context.Context, query domain.GeoTimeQuery) ([]*domain.Event, error) {
	if err := query.Box.Validate(); err != nil {
		return nil, err
	}
	if !withinNYCArea(query.Box) {
		s.logger.WarnContext(ctx, "bounds outside expected NYC area",
			"north", query.Box.North, "south", query.Box.South,
			"east", query.Box.East, "west", query.Box.West)
	}

	key := buildCacheKey(query.Box, query.Start, query.End)
	if data, err := s.cache.Get(ctx, key); err == nil {
		var events []*domain.Event
		if decErr := json.Unmarshal(data, &events); decErr == nil {
			return events, nil
		}
		// Undecodable entries are treated as misses and overwritten below.
		s.logger.WarnContext(ctx, "discarding corrupt cache entry", "key", key)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "cache read failed", "key", key, "err", err)
	}

	events, err := s.eventRepo.FindActiveInBounds(ctx, query.Box, query.Start, query.End)
	if err != nil {
		return nil, fmt.Errorf("find active events in bounds: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}

	if data, err := json.Marshal(events); err == nil {
		if err := s.cache.Set(ctx, key, data, eventsCacheTTL); err != nil {
			s.logger.WarnContext(ctx, "cache write failed", "key", key, "err", err)
		}
	}
	return events, nil
}

func (s *eventService) GetActiveEventsWithinRadius(ctx context.Context, lat, lng, radiusMiles float64, start, end time.Time) ([]*domain.Event, error) {
	box := domain.BoundingBoxFromRadius(lat, lng, radiusMiles)
	return s.GetActiveEventsInBounds(ctx, domain.GeoTimeQuery{Box: box, Start: start, End: end})
}

func (s *eventService) InvalidateCache(ctx context.Context) int {
	removed, err := s.cache.DeleteByPrefix(ctx, eventsCachePrefix)
	if err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "prefix", eventsCachePrefix, "err", err)
		return removed
	}
	s.logger.InfoContext(ctx, "event cache invalidated", "entries", removed)
	return removed
}

// buildCacheKey derives the canonical cache key for a bounds query. Each edge
// is formatted with %.4f (round half to even, ~11m resolution), so boxes
// differing only past the fourth decimal intentionally share a key; the times
// are canonicalised to UTC RFC 3339 at second precision so logically equal
// instants always serialize identically.
func buildCacheKey(box domain.BoundingBox, start, end time.Time) string {
	return fmt.Sprintf("%s%.4f:%.4f:%.4f:%.4f:%s:%s",
		eventsCachePrefix,
		box.North, box.South, box.East, box.West,
		start.UTC().Truncate(time.Second).Format(time.RFC3339),
		end.UTC().Truncate(time.Second).Format(time.RFC3339),
	)
}

// withinNYCArea is a loose sanity check for the NYC metro area. Requests
// outside it are served normally; the warning exists to flag misbehaving
// clients during the NYC-only rollout.
func withinNYCArea(box domain.BoundingBox) bool {
	const (
		northLimit = 41.0
		southLimit = 40.4
		eastLimit  = -73.5
		westLimit  = -74.5
	)
	return box.North <= northLimit && box.South >= southLimit &&
		box.East <= eastLimit && box.West >= westLimit
}
