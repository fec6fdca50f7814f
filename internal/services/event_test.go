package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"nextfare/internal/cache"
	"nextfare/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventRepo implements domain.EventRepository and counts queries.
type fakeEventRepo struct {
	events            []*domain.Event
	err               error
	findActiveCalls   int
	findInBoundsCalls int
	lastBox           domain.BoundingBox
	lastStart         time.Time
	lastEnd           time.Time
}

func (f *fakeEventRepo) FindActive(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	f.findActiveCalls++
	return f.events, f.err
}

func (f *fakeEventRepo) FindActiveInBounds(ctx context.Context, box domain.BoundingBox, start, end time.Time) ([]*domain.Event, error) {
	f.findInBoundsCalls++
	f.lastBox, f.lastStart, f.lastEnd = box, start, end
	return f.events, f.err
}

// failingCache implements cache.Cache and fails every operation, standing in
// for an unreachable cache backend.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, cache.ErrCacheClosed
}
func (failingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return cache.ErrCacheClosed
}
func (failingCache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	return 0, cache.ErrCacheClosed
}
func (failingCache) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func nycQuery() domain.GeoTimeQuery {
	return domain.GeoTimeQuery{
		Box:   domain.BoundingBox{North: 40.8, South: 40.6, East: -73.9, West: -74.1},
		Start: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}
}

func sampleEvents() []*domain.Event {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return []*domain.Event{
		{
			ID: 1, Title: "Jazz in the Park", Latitude: 40.78, Longitude: -73.96,
			StartTime: now, EndTime: now.Add(3 * time.Hour),
			Source: domain.EventSourceEventbrite, TimeAdded: now, TimeUpdated: now,
		},
		{
			ID: 2, Title: "Rooftop Mixer", Latitude: 40.74, Longitude: -73.99,
			StartTime: now, EndTime: now.Add(5 * time.Hour),
			Source: domain.EventSourceMeetup, TimeAdded: now, TimeUpdated: now,
		},
	}
}

func TestEventService_GetActiveEventsInBounds_InvalidBox(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		box  domain.BoundingBox
	}{
		{name: "north not above south", box: domain.BoundingBox{North: 40.6, South: 40.8, East: -73.9, West: -74.1}},
		{name: "east not beyond west", box: domain.BoundingBox{North: 40.8, South: 40.6, East: -74.1, West: -73.9}},
		{name: "degenerate box", box: domain.BoundingBox{North: 40.7, South: 40.7, East: -74.0, West: -74.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeEventRepo{}
			svc := NewEventService(repo, failingCache{}, testLogger())

			_, err := svc.GetActiveEventsInBounds(ctx, domain.GeoTimeQuery{Box: tt.box})
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			// Contract violations never reach the cache or the store.
			assert.Zero(t, repo.findInBoundsCalls)
		})
	}
}

func TestEventService_GetActiveEventsInBounds_CacheAside(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEventRepo{events: sampleEvents()}
	mem := cache.NewMemory(time.Minute)
	svc := NewEventService(repo, mem, testLogger())
	query := nycQuery()

	first, err := svc.GetActiveEventsInBounds(ctx, query)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, repo.findInBoundsCalls)
	assert.Equal(t, query.Box, repo.lastBox)

	// Second identical query is served from the cache.
	second, err := svc.GetActiveEventsInBounds(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.findInBoundsCalls)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].Title, second[1].Title)
}

func TestEventService_GetActiveEventsInBounds_QuantizedKeysShareCache(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEventRepo{events: sampleEvents()}
	svc := NewEventService(repo, cache.NewMemory(time.Minute), testLogger())

	query := nycQuery()
	_, err := svc.GetActiveEventsInBounds(ctx, query)
	require.NoError(t, err)

	// Perturbations past the fourth decimal round to the same key.
	near := query
	near.Box.North += 0.000004
	near.Box.West -= 0.000004
	_, err = svc.GetActiveEventsInBounds(ctx, near)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.findInBoundsCalls)

	// A shift at the fourth decimal is a different key.
	far := query
	far.Box.North += 0.001
	_, err = svc.GetActiveEventsInBounds(ctx, far)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findInBoundsCalls)
}

func TestEventService_InvalidateCache(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEventRepo{events: sampleEvents()}
	mem := cache.NewMemory(time.Minute)
	svc := NewEventService(repo, mem, testLogger())
	query := nycQuery()

	_, err := svc.GetActiveEventsInBounds(ctx, query)
	require.NoError(t, err)
	require.Equal(t, 1, repo.findInBoundsCalls)

	removed := svc.InvalidateCache(ctx)
	assert.Equal(t, 1, removed)

	// Next call after invalidation hits the source of truth again.
	_, err = svc.GetActiveEventsInBounds(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findInBoundsCalls)
}

func TestEventService_GetActiveEventsInBounds_CacheFailuresSwallowed(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEventRepo{events: sampleEvents()}
	svc := NewEventService(repo, failingCache{}, testLogger())

	events, err := svc.GetActiveEventsInBounds(ctx, nycQuery())
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 1, repo.findInBoundsCalls)

	// Invalidation against a dead cache is logged, not raised.
	assert.Zero(t, svc.InvalidateCache(ctx))
}

func TestEventService_GetActiveEventsInBounds_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEventRepo{events: sampleEvents()}
	mem := cache.NewMemory(time.Minute)
	svc := NewEventService(repo, mem, testLogger())
	query := nycQuery()

	key := buildCacheKey(query.Box, query.Start, query.End)
	require.NoError(t, mem.Set(ctx, key, []byte("{not json"), 0))

	events, err := svc.GetActiveEventsInBounds(ctx, query)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 1, repo.findInBoundsCalls)

	// The corrupt entry was overwritten with a good one.
	_, err = svc.GetActiveEventsInBounds(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.findInBoundsCalls)
}

func TestEventService_GetActiveEventsWithinRadius(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEventRepo{events: sampleEvents()}
	svc := NewEventService(repo, cache.NewMemory(time.Minute), testLogger())

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.GetActiveEventsWithinRadius(ctx, 40.7, -74.0, 2.0, start, end)
	require.NoError(t, err)

	require.Equal(t, 1, repo.findInBoundsCalls)
	box := repo.lastBox
	assert.Less(t, box.South, 40.7)
	assert.Greater(t, box.North, 40.7)
	assert.Less(t, box.West, -74.0)
	assert.Greater(t, box.East, -74.0)
	assert.Equal(t, start, repo.lastStart)
	assert.Equal(t, end, repo.lastEnd)

	// A non-positive radius yields a degenerate box and is rejected before
	// any store access.
	_, err = svc.GetActiveEventsWithinRadius(ctx, 40.7, -74.0, 0, start, end)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, repo.findInBoundsCalls)
}

func TestEventService_GetActiveEvents(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEventRepo{events: sampleEvents()}
	svc := NewEventService(repo, cache.NewMemory(time.Minute), testLogger())

	events, err := svc.GetActiveEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 1, repo.findActiveCalls)

	// The uncached feed always hits the source of truth.
	_, err = svc.GetActiveEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findActiveCalls)
}

func TestBuildCacheKey_Deterministic(t *testing.T) {
	box := domain.BoundingBox{North: 40.81234, South: 40.61234, East: -73.91234, West: -74.11234}
	loc := time.FixedZone("EST", -5*3600)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	k1 := buildCacheKey(box, start, end)
	k2 := buildCacheKey(box, start, end)
	assert.Equal(t, k1, k2)

	// Equal instants serialize identically regardless of construction path.
	k3 := buildCacheKey(box, start.In(loc), end.In(loc))
	assert.Equal(t, k1, k3)

	// Boxes differing only past the fourth decimal alias to the same key.
	nudged := box
	nudged.South += 0.000004
	assert.Equal(t, k1, buildCacheKey(nudged, start, end))

	// Differences at the fourth decimal produce distinct keys.
	moved := box
	moved.East += 0.0002
	assert.NotEqual(t, k1, buildCacheKey(moved, start, end))
}
