package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"nextfare/internal/delivery/http/helpers"
	"nextfare/internal/delivery/http/middleware"
	"nextfare/internal/domain"
)

// ProfileRequest is the request body for POST /users/profile. Both fields are
// optional on update; username is required on first creation.
type ProfileRequest struct {
	Username     *string       `json:"username"`
	LastLocation *domain.Point `json:"last_location"`
}

// Validate implements Validator.
func (p ProfileRequest) Validate() []string {
	var errs []string
	if p.Username == nil && p.LastLocation == nil {
		errs = append(errs, "at least one of username or last_location is required")
	}
	if p.LastLocation != nil {
		errs = append(errs, validatePoint(*p.LastLocation)...)
	}
	return errs
}

// LocationRequest is the request body for POST /users/profile/location.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Validate implements Validator.
func (l LocationRequest) Validate() []string {
	var errs []string
	if l.Latitude == nil {
		errs = append(errs, "latitude is required")
	}
	if l.Longitude == nil {
		errs = append(errs, "longitude is required")
	}
	if l.Latitude != nil && l.Longitude != nil {
		errs = append(errs, validatePoint(domain.Point{Latitude: *l.Latitude, Longitude: *l.Longitude})...)
	}
	return errs
}

func validatePoint(p domain.Point) []string {
	var errs []string
	if p.Latitude < -90 || p.Latitude > 90 {
		errs = append(errs, "latitude must be between -90 and 90")
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		errs = append(errs, "longitude must be between -180 and 180")
	}
	return errs
}

// ProfileSuccessResponse is the success response envelope for the profile endpoints (200).
type ProfileSuccessResponse struct {
	Data  *domain.UserProfile `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// LocationUpdateResponse is the data payload for POST /users/profile/location (200).
type LocationUpdateResponse struct {
	Status string `json:"status"`
}

// LocationUpdateSuccessResponse is the success response envelope for POST /users/profile/location (200).
type LocationUpdateSuccessResponse struct {
	Data  LocationUpdateResponse `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// UserController handles the user profile endpoints.
type UserController struct {
	Logger  *slog.Logger
	Service domain.ProfileService
}

// NewUserController creates a UserController with the given logger and service.
func NewUserController(logger *slog.Logger, svc domain.ProfileService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// GetProfile godoc
// @Summary Get the current user's profile
// @Description Returns the authenticated user's profile. Requires Bearer token.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ProfileSuccessResponse "data contains the profile"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /users/profile [get]
func (c *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	profile, err := c.Service.GetProfile(r.Context(), identity.SubjectID)
	if err != nil {
		c.writeProfileError(w, r, err, "profile not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, profile)
}

// UpsertProfile godoc
// @Summary Create or update the current user's profile
// @Description Creates the profile on first call (username required, globally unique case-insensitively) or updates it afterwards. A new username is re-checked for uniqueness; last_location replaces the stored location wholesale. Requires Bearer token.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ProfileRequest true "Profile fields (username required on first creation)"
// @Success 200 {object} controllers.ProfileSuccessResponse "data contains the profile"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (username taken)"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /users/profile [post]
func (c *UserController) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req ProfileRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	profile, err := c.Service.CreateOrUpdateProfile(r.Context(), identity, domain.ProfileUpdate{
		Username:     req.Username,
		LastLocation: req.LastLocation,
	})
	if err != nil {
		c.writeProfileError(w, r, err, "profile not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, profile)
}

// UpdateLocation godoc
// @Summary Update the current user's last known location
// @Description High-frequency location ping. Writes only the location fields and updated_at; username and email are untouched. Requires Bearer token.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body LocationRequest true "Latitude and longitude"
// @Success 200 {object} controllers.LocationUpdateSuccessResponse "data contains status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (no profile yet)"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /users/profile/location [post]
func (c *UserController) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req LocationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	location := domain.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := c.Service.UpdateLastLocation(r.Context(), identity.SubjectID, location); err != nil {
		c.writeProfileError(w, r, err, "profile not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, LocationUpdateResponse{Status: "updated"})
}

// writeProfileError maps profile service errors onto the API envelope.
func (c *UserController) writeProfileError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, notFoundMsg)
	case errors.Is(err, domain.ErrUsernameTaken):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "username already taken")
	case errors.Is(err, domain.ErrStoreUnavailable):
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeUnavailable, "profile store unavailable")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}
