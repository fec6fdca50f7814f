package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"nextfare/internal/delivery/http/helpers"
	"nextfare/internal/domain"
)

// defaultRadiusMiles is applied when the radius query param is omitted.
const defaultRadiusMiles = 2.0

// EventsSuccessResponse is the success response envelope for the event feed endpoints (200).
type EventsSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// InvalidateCacheResponse is the data payload for POST /events/cache/invalidate (200).
type InvalidateCacheResponse struct {
	Invalidated int `json:"invalidated"`
}

// InvalidateCacheSuccessResponse is the success response envelope for POST /events/cache/invalidate (200).
type InvalidateCacheSuccessResponse struct {
	Data  InvalidateCacheResponse `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// EventController handles the event discovery endpoints.
type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	Now     func() time.Time
}

// NewEventController creates an EventController with the given logger and service.
func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		Now:     time.Now,
	}
}

// ListActiveEvents godoc
// @Summary List all active events
// @Description Returns every event whose end time is in the future, ordered by end time ascending.
// @Tags events
// @Produce json
// @Success 200 {object} controllers.EventsSuccessResponse "data is an array of events"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/active [get]
func (c *EventController) ListActiveEvents(w http.ResponseWriter, r *http.Request) {
	events, err := c.Service.GetActiveEvents(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// ListActiveEventsInBounds godoc
// @Summary List active events inside a bounding box
// @Description Returns events inside the given bounding box whose end time falls in the [start, end) window. start and end default to now and the next local midnight.
// @Tags events
// @Produce json
// @Param north query number true "North edge latitude"
// @Param south query number true "South edge latitude"
// @Param east query number true "East edge longitude"
// @Param west query number true "West edge longitude"
// @Param start query string false "Window start (RFC 3339, default now)"
// @Param end query string false "Window end (RFC 3339, default next local midnight)"
// @Success 200 {object} controllers.EventsSuccessResponse "data is an array of events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/active-in-bounds [get]
func (c *EventController) ListActiveEventsInBounds(w http.ResponseWriter, r *http.Request) {
	north, err := parseFloatParam(r, "north")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	south, err := parseFloatParam(r, "south")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	east, err := parseFloatParam(r, "east")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	west, err := parseFloatParam(r, "west")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	start, end, err := c.parseTimeWindow(r)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}

	query := domain.GeoTimeQuery{
		Box:   domain.BoundingBox{North: north, South: south, East: east, West: west},
		Start: start,
		End:   end,
	}
	events, err := c.Service.GetActiveEventsInBounds(r.Context(), query)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// ListEventsWithinRadius godoc
// @Summary List active events within a radius of a point
// @Description Converts the point and radius (miles) to a bounding box and returns events inside it for the [start, end) window. radius defaults to 2.0 miles; start and end default to now and the next local midnight.
// @Tags events
// @Produce json
// @Param lat query number true "Center latitude"
// @Param lng query number true "Center longitude"
// @Param radius query number false "Radius in miles (default 2.0, must be > 0)"
// @Param start query string false "Window start (RFC 3339, default now)"
// @Param end query string false "Window end (RFC 3339, default next local midnight)"
// @Success 200 {object} controllers.EventsSuccessResponse "data is an array of events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/within-radius [get]
func (c *EventController) ListEventsWithinRadius(w http.ResponseWriter, r *http.Request) {
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	lng, err := parseFloatParam(r, "lng")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	radius := defaultRadiusMiles
	if raw := r.URL.Query().Get("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "radius must be a number")
			return
		}
	}
	if radius <= 0 {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "radius must be greater than zero")
		return
	}
	start, end, err := c.parseTimeWindow(r)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}

	events, err := c.Service.GetActiveEventsWithinRadius(r.Context(), lat, lng, radius, start, end)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// InvalidateCache godoc
// @Summary Invalidate the event query cache
// @Description Removes every cached bounds-query entry. Called after out-of-band event ingestion. Requires authentication.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.InvalidateCacheSuccessResponse "data contains the number of entries removed"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/cache/invalidate [post]
func (c *EventController) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	removed := c.Service.InvalidateCache(r.Context())
	helpers.WriteJSONSuccess(w, http.StatusOK, InvalidateCacheResponse{Invalidated: removed})
}

// parseFloatParam reads a required float query parameter.
func parseFloatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New(name + " is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(name + " must be a number")
	}
	return v, nil
}

// parseTimeWindow reads the optional start and end query parameters (RFC 3339).
// Omitted values default to the current instant and the next local midnight,
// so a bare query means "what is on for the rest of today".
func (c *EventController) parseTimeWindow(r *http.Request) (time.Time, time.Time, error) {
	now := c.Now()
	start, end := now, nextMidnight(now)
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("start must be an RFC 3339 timestamp")
		}
		start = t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("end must be an RFC 3339 timestamp")
		}
		end = t
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("end must be after start")
	}
	return start, end, nil
}

// nextMidnight returns 00:00 of the day after t in t's location.
func nextMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}
